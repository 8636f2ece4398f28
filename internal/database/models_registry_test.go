package database

import (
	"testing"

	modelspkg "gatherly/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPersistentModels_CoversEveryTable(t *testing.T) {
	var haveUser, haveEdge, haveEvent, haveOccurrence, haveRSVP bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.User:
			haveUser = true
		case *modelspkg.ConnectionEdge:
			haveEdge = true
		case *modelspkg.Event:
			haveEvent = true
		case *modelspkg.Occurrence:
			haveOccurrence = true
		case *modelspkg.RSVP:
			haveRSVP = true
		}
	}
	assert.True(t, haveUser && haveEdge && haveEvent && haveOccurrence && haveRSVP)
}
