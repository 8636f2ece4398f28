package models

import (
	"time"
)

// OccurrenceStatusScheduled is the default status of an occurrence.
const OccurrenceStatusScheduled = "Scheduled"

// Event is a host-submitted event series. Read-only for this service.
type Event struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	PublicID       string     `gorm:"size:64;not null;uniqueIndex" json:"event_id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	StartAt        *time.Time `gorm:"index" json:"start_at"`
	Duration       string     `gorm:"size:50" json:"duration,omitempty"`
	Venue          string     `gorm:"size:255" json:"venue,omitempty"`
	CityRegion     string     `gorm:"size:255" json:"city_region,omitempty"`
	Description    string     `gorm:"type:text" json:"description,omitempty"`
	Summary        string     `gorm:"type:text" json:"summary,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	TicketsURL     string     `json:"tickets_url,omitempty"`
	Cost           string     `gorm:"size:100" json:"cost,omitempty"`
	Audience       []string   `gorm:"serializer:json;type:text" json:"audience,omitempty"`
	Category       []string   `gorm:"serializer:json;type:text" json:"category,omitempty"`
	Repeat         string     `gorm:"size:50" json:"repeat,omitempty"`
	RepeatInterval int        `json:"repeat_interval,omitempty"`
	ByDay          []string   `gorm:"serializer:json;type:text" json:"by_day,omitempty"`
	RepeatUntil    *time.Time `json:"repeat_until,omitempty"`
	ApprovalStatus string     `gorm:"size:50" json:"approval_status,omitempty"`
	Published      bool       `gorm:"not null;default:false;index" json:"published"`
	OrganiserName  string     `gorm:"size:255" json:"organiser_name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

// Occurrence is one scheduled instance of an event series.
type Occurrence struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	PublicID      string     `gorm:"size:96;not null;uniqueIndex" json:"occurrence_id"`
	EventID       *uint      `gorm:"index" json:"series_record_id,omitempty"`
	EventPublicID string     `gorm:"size:64;index" json:"event_id"`
	StartAt       time.Time  `gorm:"not null;index" json:"start_at"`
	EndAt         *time.Time `json:"end_at,omitempty"`
	Status        string     `gorm:"size:20;not null;default:'Scheduled'" json:"status"`
	Venue         string     `gorm:"size:255" json:"venue,omitempty"`
	CityRegion    string     `gorm:"size:255" json:"city_region,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Occurrence) TableName() string {
	return "occurrences"
}

// EventListing is an event annotated with its next occurrence and RSVP counts.
type EventListing struct {
	Event
	NextOccurrence *Occurrence `json:"next_occurrence"`
	NextGoingCount int64       `json:"next_going_count"`
	GoingCount     int64       `json:"going_count"`
}

// FeedItem is an event that accepted connections plan to attend. The counts
// are distinct connections per status; the user lists carry who they are.
type FeedItem struct {
	Event
	ConnectionsGoing      int           `json:"connections_going"`
	ConnectionsInterested int           `json:"connections_interested"`
	GoingUsers            []UserSummary `json:"connections_going_users"`
	InterestedUsers       []UserSummary `json:"connections_interested_users"`
}
