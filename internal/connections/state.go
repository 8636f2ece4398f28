// Package connections resolves the relationship state between two users and
// defines which actions move a connection edge between statuses.
package connections

import (
	"strings"

	"gatherly/internal/models"
)

// State is the relationship between a viewer and a target as the viewer sees it.
type State string

const (
	StateNone       State = "none"
	StatePendingOut State = "pending-out"
	StatePendingIn  State = "pending-in"
	StateAccepted   State = "accepted"
	StateBlocked    State = "blocked"
)

// rank orders states for precedence when several edges exist for a pair.
func (s State) rank() int {
	switch s {
	case StateBlocked:
		return 3
	case StateAccepted:
		return 2
	case StatePendingOut, StatePendingIn:
		return 1
	default:
		return 0
	}
}

// Relationship is the resolved state plus the edge that produced it.
type Relationship struct {
	State State                  `json:"state"`
	Edge  *models.ConnectionEdge `json:"edge,omitempty"`
}

// stateOf maps one edge to the viewer's state.
func stateOf(edge *models.ConnectionEdge, viewerID uint) State {
	switch edge.Status {
	case models.ConnectionStatusAccepted:
		return StateAccepted
	case models.ConnectionStatusPending:
		if edge.RequesterID == viewerID {
			return StatePendingOut
		}
		return StatePendingIn
	case models.ConnectionStatusBlocked:
		return StateBlocked
	default:
		return StateNone
	}
}

// Resolve returns the viewer's relationship with target given any edges
// touching the viewer. Blocked beats Accepted beats Pending beats none; among
// equals the most recently updated edge wins.
func Resolve(viewerID, targetID uint, edges []models.ConnectionEdge) Relationship {
	best := Relationship{State: StateNone}
	if viewerID == 0 || targetID == 0 || viewerID == targetID {
		return best
	}

	for i := range edges {
		edge := &edges[i]
		if !edge.Involves(viewerID) || edge.OtherParty(viewerID) != targetID {
			continue
		}

		state := stateOf(edge, viewerID)
		switch {
		case best.Edge == nil:
		case state.rank() > best.State.rank():
		case state.rank() == best.State.rank() && edge.UpdatedAt.After(best.Edge.UpdatedAt):
		default:
			continue
		}
		best = Relationship{State: state, Edge: edge}
	}

	// A Declined or Withdrawn edge is history, not a relationship.
	if best.State == StateNone {
		best.Edge = nil
	}
	return best
}

// Action is something a party can do to an existing edge.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionWithdraw Action = "withdraw"
	ActionBlock    Action = "block"
)

// ParseAction accepts any casing of a known action.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionAccept:
		return ActionAccept, true
	case ActionDecline:
		return ActionDecline, true
	case ActionWithdraw:
		return ActionWithdraw, true
	case ActionBlock:
		return ActionBlock, true
	default:
		return "", false
	}
}

// ActionForStatus maps a requested target status onto the action that produces it.
func ActionForStatus(status models.ConnectionStatus) (Action, bool) {
	switch status {
	case models.ConnectionStatusAccepted:
		return ActionAccept, true
	case models.ConnectionStatusDeclined:
		return ActionDecline, true
	case models.ConnectionStatusWithdrawn:
		return ActionWithdraw, true
	case models.ConnectionStatusBlocked:
		return ActionBlock, true
	default:
		return "", false
	}
}
