package connections

import (
	"fmt"

	"gatherly/internal/models"
)

// Role is the acting user's side of an edge.
type Role int

const (
	RoleOutsider Role = iota
	RoleRequester
	RoleRecipient
)

// RoleOf reports which side of edge userID is on.
func RoleOf(edge *models.ConnectionEdge, userID uint) Role {
	switch userID {
	case edge.RequesterID:
		return RoleRequester
	case edge.RecipientID:
		return RoleRecipient
	default:
		return RoleOutsider
	}
}

// Transition validates action by actorID against edge and returns the status
// the edge moves to. Outsiders and the wrong party get PolicyDenied.
// An edge no longer in a status the action applies to gets Conflict, except
// blocking through a closed edge, which is InvalidInput.
func Transition(edge *models.ConnectionEdge, actorID uint, action Action) (models.ConnectionStatus, error) {
	role := RoleOf(edge, actorID)
	if role == RoleOutsider {
		return "", models.NewPolicyDeniedError("Only parties to a connection may change it")
	}

	var (
		from    []models.ConnectionStatus
		to      models.ConnectionStatus
		allowed Role
	)
	switch action {
	case ActionAccept:
		from, to, allowed = []models.ConnectionStatus{models.ConnectionStatusPending}, models.ConnectionStatusAccepted, RoleRecipient
	case ActionDecline:
		from, to, allowed = []models.ConnectionStatus{models.ConnectionStatusPending}, models.ConnectionStatusDeclined, RoleRecipient
	case ActionWithdraw:
		from, to, allowed = []models.ConnectionStatus{models.ConnectionStatusPending}, models.ConnectionStatusWithdrawn, RoleRequester
	case ActionBlock:
		from = []models.ConnectionStatus{models.ConnectionStatusPending, models.ConnectionStatusAccepted}
		to, allowed = models.ConnectionStatusBlocked, RoleOutsider
	default:
		return "", models.NewValidationError(fmt.Sprintf("Unknown connection action %q", action))
	}

	if allowed != RoleOutsider && role != allowed {
		who := "recipient"
		if allowed == RoleRequester {
			who = "requester"
		}
		return "", models.NewPolicyDeniedError(fmt.Sprintf("Only the %s may %s this connection", who, action))
	}

	for _, status := range from {
		if edge.Status == status {
			return to, nil
		}
	}
	if action == ActionBlock && !edge.Status.Live() {
		return "", models.NewValidationError(fmt.Sprintf("A %s connection is closed; block the user by id instead", edge.Status))
	}
	return "", models.NewConflictError(fmt.Sprintf("Cannot %s a connection that is %s", action, edge.Status))
}
