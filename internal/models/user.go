// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// Gender is the optional self-declared gender on a profile.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// ParseGender normalizes free-form input; anything unrecognized is unknown.
func ParseGender(raw string) Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Known reports whether the gender was declared.
func (g Gender) Known() bool {
	return g == GenderMale || g == GenderFemale
}

// User is a directory profile row, keyed by the identity provider subject.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AuthSubject string    `gorm:"size:255;not null;uniqueIndex" json:"auth_subject"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Email       string    `gorm:"size:255" json:"email"`
	Type        string    `gorm:"size:50" json:"type"`
	Location    string    `gorm:"size:255" json:"location"`
	Postcode    string    `gorm:"size:20" json:"postcode"`
	Interests   []string  `gorm:"serializer:json;type:text" json:"interests"`
	Gender      Gender    `gorm:"type:varchar(20);not null;default:'unknown'" json:"gender"`
	HeardAbout  string    `gorm:"size:255" json:"heard_about"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// UserSummary is the compact shape embedded in edges, feeds and notifications.
type UserSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// Summary returns the compact representation of u.
func (u *User) Summary() UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{ID: u.ID, Name: u.Name, Location: u.Location}
}
