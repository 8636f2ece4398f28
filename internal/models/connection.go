package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ConnectionStatus is the stored status of a connection edge.
type ConnectionStatus string

const (
	ConnectionStatusPending   ConnectionStatus = "Pending"
	ConnectionStatusAccepted  ConnectionStatus = "Accepted"
	ConnectionStatusDeclined  ConnectionStatus = "Declined"
	ConnectionStatusBlocked   ConnectionStatus = "Blocked"
	ConnectionStatusWithdrawn ConnectionStatus = "Withdrawn"
)

// ParseConnectionStatus accepts any casing of a known status.
func ParseConnectionStatus(raw string) (ConnectionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return ConnectionStatusPending, true
	case "accepted":
		return ConnectionStatusAccepted, true
	case "declined":
		return ConnectionStatusDeclined, true
	case "blocked":
		return ConnectionStatusBlocked, true
	case "withdrawn":
		return ConnectionStatusWithdrawn, true
	default:
		return "", false
	}
}

// Live reports whether an edge in this status still occupies its pair.
// Declined and Withdrawn edges are history; a new request may follow them.
func (s ConnectionStatus) Live() bool {
	switch s {
	case ConnectionStatusPending, ConnectionStatusAccepted, ConnectionStatusBlocked:
		return true
	default:
		return false
	}
}

// ConnectionEdge is a directional connection request between two users,
// queried as an unordered pair.
type ConnectionEdge struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	RequesterID   uint             `gorm:"not null;index:idx_connection_edges_requester" json:"requester_id"`
	RecipientID   uint             `gorm:"not null;index:idx_connection_edges_recipient" json:"recipient_id"`
	Status        ConnectionStatus `gorm:"type:varchar(20);not null;default:'Pending';index:idx_connection_edges_status" json:"status"`
	ActivePairKey *string          `gorm:"size:64;uniqueIndex:idx_connection_edges_active_pair" json:"-"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// Relationships
	Requester *User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Recipient *User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

// TableName specifies the table name for GORM
func (ConnectionEdge) TableName() string {
	return "connection_edges"
}

// BeforeCreate stamps the canonical pair key for live edges so the unique
// index rejects a second live edge for the same pair.
func (e *ConnectionEdge) BeforeCreate(_ *gorm.DB) error {
	if e.Status == "" {
		e.Status = ConnectionStatusPending
	}
	e.ActivePairKey = ActivePairKeyFor(e.RequesterID, e.RecipientID, e.Status)
	return nil
}

// PairKey returns the order-independent key "min:max" for two user ids.
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// ActivePairKeyFor returns the pair key while status is live and nil otherwise.
func ActivePairKeyFor(a, b uint, status ConnectionStatus) *string {
	if !status.Live() {
		return nil
	}
	key := PairKey(a, b)
	return &key
}

// Involves reports whether userID is the requester or the recipient.
func (e *ConnectionEdge) Involves(userID uint) bool {
	return e.RequesterID == userID || e.RecipientID == userID
}

// OtherParty returns the id of the user on the other side of the edge.
func (e *ConnectionEdge) OtherParty(userID uint) uint {
	if e.RequesterID == userID {
		return e.RecipientID
	}
	return e.RequesterID
}
