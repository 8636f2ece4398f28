package models

import (
	"strings"
	"time"
)

// RSVPStatus is a user's declared attendance intent.
type RSVPStatus string

const (
	RSVPStatusGoing      RSVPStatus = "Going"
	RSVPStatusInterested RSVPStatus = "Interested"
	RSVPStatusNotGoing   RSVPStatus = "Not Going"
)

// ParseRSVPStatus accepts any casing, and "not_going"/"notgoing" spellings.
func ParseRSVPStatus(raw string) (RSVPStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	switch s {
	case "going":
		return RSVPStatusGoing, true
	case "interested":
		return RSVPStatusInterested, true
	case "not going", "notgoing":
		return RSVPStatusNotGoing, true
	default:
		return "", false
	}
}

// RSVP is unique per (user, event, occurrence). OccurrenceID is empty for
// event-level RSVPs.
type RSVP struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_rsvps_target,priority:1" json:"user_id"`
	EventID      string     `gorm:"size:64;not null;uniqueIndex:idx_rsvps_target,priority:2;index:idx_rsvps_event" json:"event_id"`
	OccurrenceID string     `gorm:"size:96;not null;default:'';uniqueIndex:idx_rsvps_target,priority:3" json:"occurrence_id"`
	Status       RSVPStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (RSVP) TableName() string {
	return "rsvps"
}
