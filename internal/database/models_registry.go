package database

import "gatherly/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.ConnectionEdge{},
		&models.Event{},
		&models.Occurrence{},
		&models.RSVP{},
	}
}
