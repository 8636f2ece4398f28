package service

import (
	"context"
	"errors"

	"gatherly/internal/cache"
	"gatherly/internal/connections"
	"gatherly/internal/middleware"
	"gatherly/internal/models"
	"gatherly/internal/observability"
	"gatherly/internal/recommend"
	"gatherly/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// PairLocker serializes writers for one unordered user pair.
type PairLocker interface {
	Acquire(ctx context.Context, pairKey string) (func(), error)
}

// ConnectionService provides connection-request and transition business logic.
type ConnectionService struct {
	connRepo repository.ConnectionRepository
	userRepo repository.UserRepository
	lock     PairLocker
}

// NewConnectionService returns a new ConnectionService. lock may be nil.
func NewConnectionService(connRepo repository.ConnectionRepository, userRepo repository.UserRepository, lock PairLocker) *ConnectionService {
	return &ConnectionService{connRepo: connRepo, userRepo: userRepo, lock: lock}
}

// RequestResult is the outcome of a connection request.
type RequestResult struct {
	Edge    *models.ConnectionEdge
	Target  *models.User
	Created bool
}

// ConnectionView is an edge as seen by one of its parties.
type ConnectionView struct {
	*models.ConnectionEdge
	State connections.State  `json:"state"`
	Other models.UserSummary `json:"other"`
}

// Request sends a connection request from viewer to targetID. Repeating a
// pending request returns the existing edge with Created false.
func (s *ConnectionService) Request(ctx context.Context, viewer *models.User, targetID uint) (*RequestResult, error) {
	span, ctx := observability.NewSpan(ctx, "connections.request",
		attribute.Int64("viewer_id", int64(viewer.ID)),
		attribute.Int64("target_id", int64(targetID)))
	defer span.End()

	res, err := s.request(ctx, viewer, targetID)
	result := "created"
	switch {
	case err != nil:
		span.SetError(err)
		result = resultLabel(err)
	case !res.Created:
		result = "existing"
	}
	observability.ConnectionTransitions.WithLabelValues("request", result).Inc()
	return res, err
}

func (s *ConnectionService) request(ctx context.Context, viewer *models.User, targetID uint) (*RequestResult, error) {
	if targetID == 0 {
		return nil, models.NewValidationError("Target user is required")
	}
	if viewer.ID == targetID {
		return nil, models.NewValidationError("Cannot connect to yourself")
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !recommend.GenderCompatible(viewer.Gender, target.Gender) {
		return nil, models.NewPolicyDeniedError("Connections are limited to members of the same gender")
	}

	release, err := s.lockPair(ctx, viewer.ID, targetID)
	if err != nil {
		return nil, err
	}
	defer release()

	if res, done, err := s.existing(ctx, viewer.ID, target); done {
		return res, err
	}

	edge := &models.ConnectionEdge{
		RequesterID: viewer.ID,
		RecipientID: targetID,
		Status:      models.ConnectionStatusPending,
	}
	if err := s.connRepo.Create(ctx, edge); err != nil {
		if !models.IsCode(err, models.CodeConflict) {
			return nil, err
		}
		// Lost the race for the pair; answer from the winner's edge.
		if res, done, rerr := s.existing(ctx, viewer.ID, target); done {
			return res, rerr
		}
		return nil, err
	}

	created, err := s.connRepo.GetByID(ctx, edge.ID)
	if err != nil {
		return nil, err
	}
	return &RequestResult{Edge: created, Target: target, Created: true}, nil
}

// existing resolves the live relationship for the pair. done is false when no
// live edge blocks a new request.
func (s *ConnectionService) existing(ctx context.Context, viewerID uint, target *models.User) (*RequestResult, bool, error) {
	edges, err := s.connRepo.ListBetween(ctx, viewerID, target.ID)
	if err != nil {
		return nil, true, err
	}

	rel := connections.Resolve(viewerID, target.ID, edges)
	switch rel.State {
	case connections.StateBlocked:
		return nil, true, models.NewPolicyDeniedError("Connection requests between these users are blocked")
	case connections.StateAccepted:
		return nil, true, models.NewConflictError("You are already connected")
	case connections.StatePendingIn:
		return nil, true, models.NewConflictError("This user has already sent you a request; accept it instead")
	case connections.StatePendingOut:
		return &RequestResult{Edge: rel.Edge, Target: target}, true, nil
	default:
		return nil, false, nil
	}
}

// lockPair serializes writers for the pair when a lock is configured. A busy
// lock is logged and skipped; the unique index still rejects a duplicate
// live edge.
func (s *ConnectionService) lockPair(ctx context.Context, a, b uint) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	release, err := s.lock.Acquire(ctx, models.PairKey(a, b))
	switch {
	case err == nil:
		return release, nil
	case errors.Is(err, cache.ErrLockBusy):
		middleware.Logger.WarnContext(ctx, "connection pair lock busy, continuing unlocked",
			"pair", models.PairKey(a, b))
		return func() {}, nil
	default:
		return nil, err
	}
}

// BlockResult is the outcome of blocking a user. Changed is false when the
// pair was already blocked.
type BlockResult struct {
	Edge    *models.ConnectionEdge
	Created bool
	Changed bool
}

// Block blocks targetID for viewer whatever their current state. A live edge
// moves to Blocked; with no live edge a new Blocked edge is inserted so the
// pair key stays taken. Blocking an already blocked pair returns that edge.
func (s *ConnectionService) Block(ctx context.Context, viewer *models.User, targetID uint) (*BlockResult, error) {
	span, ctx := observability.NewSpan(ctx, "connections.block",
		attribute.Int64("viewer_id", int64(viewer.ID)),
		attribute.Int64("target_id", int64(targetID)))
	defer span.End()

	res, err := s.block(ctx, viewer, targetID)
	result := "ok"
	if err != nil {
		span.SetError(err)
		result = resultLabel(err)
	}
	observability.ConnectionTransitions.WithLabelValues(string(connections.ActionBlock), result).Inc()
	return res, err
}

func (s *ConnectionService) block(ctx context.Context, viewer *models.User, targetID uint) (*BlockResult, error) {
	if targetID == 0 {
		return nil, models.NewValidationError("Target user is required")
	}
	if viewer.ID == targetID {
		return nil, models.NewValidationError("Cannot block yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	release, err := s.lockPair(ctx, viewer.ID, targetID)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.blockLive(ctx, viewer.ID, targetID)
	if res != nil || err != nil {
		return res, err
	}

	edge := &models.ConnectionEdge{
		RequesterID: viewer.ID,
		RecipientID: targetID,
		Status:      models.ConnectionStatusBlocked,
	}
	if err := s.connRepo.Create(ctx, edge); err != nil {
		if !models.IsCode(err, models.CodeConflict) {
			return nil, err
		}
		// A live edge appeared since the read; block that one instead.
		if res, rerr := s.blockLive(ctx, viewer.ID, targetID); res != nil || rerr != nil {
			return res, rerr
		}
		return nil, err
	}

	created, err := s.connRepo.GetByID(ctx, edge.ID)
	if err != nil {
		return nil, err
	}
	return &BlockResult{Edge: created, Created: true, Changed: true}, nil
}

// blockLive blocks through the pair's live edge. Both results are nil when
// the pair has no live edge.
func (s *ConnectionService) blockLive(ctx context.Context, viewerID, targetID uint) (*BlockResult, error) {
	edges, err := s.connRepo.ListBetween(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	rel := connections.Resolve(viewerID, targetID, edges)
	switch rel.State {
	case connections.StateNone:
		return nil, nil
	case connections.StateBlocked:
		return &BlockResult{Edge: rel.Edge}, nil
	}

	to, err := connections.Transition(rel.Edge, viewerID, connections.ActionBlock)
	if err != nil {
		return nil, err
	}
	if err := s.connRepo.UpdateStatus(ctx, rel.Edge, to); err != nil {
		return nil, err
	}
	return &BlockResult{Edge: rel.Edge, Changed: true}, nil
}

// Act applies action by actorID to the edge with edgeID.
func (s *ConnectionService) Act(ctx context.Context, actorID, edgeID uint, action connections.Action) (*models.ConnectionEdge, error) {
	span, ctx := observability.NewSpan(ctx, "connections.act",
		attribute.Int64("actor_id", int64(actorID)),
		attribute.Int64("edge_id", int64(edgeID)),
		attribute.String("action", string(action)))
	defer span.End()

	edge, err := s.act(ctx, actorID, edgeID, action)
	result := "ok"
	if err != nil {
		span.SetError(err)
		result = resultLabel(err)
	}
	observability.ConnectionTransitions.WithLabelValues(string(action), result).Inc()
	return edge, err
}

func (s *ConnectionService) act(ctx context.Context, actorID, edgeID uint, action connections.Action) (*models.ConnectionEdge, error) {
	if edgeID == 0 {
		return nil, models.NewValidationError("Connection id is required")
	}
	edge, err := s.connRepo.GetByID(ctx, edgeID)
	if err != nil {
		return nil, err
	}

	to, err := connections.Transition(edge, actorID, action)
	if err != nil {
		return nil, err
	}
	if err := s.connRepo.UpdateStatus(ctx, edge, to); err != nil {
		return nil, err
	}
	return edge, nil
}

// List returns the viewer's edges, optionally filtered by status, newest first.
func (s *ConnectionService) List(ctx context.Context, viewerID uint, status *models.ConnectionStatus) ([]ConnectionView, error) {
	edges, err := s.connRepo.ListForUser(ctx, viewerID, status)
	if err != nil {
		return nil, err
	}

	views := make([]ConnectionView, 0, len(edges))
	for i := range edges {
		edge := &edges[i]
		other := edge.Requester
		if edge.RequesterID == viewerID {
			other = edge.Recipient
		}
		summary := other.Summary()
		if other == nil {
			summary.ID = edge.OtherParty(viewerID)
		}
		views = append(views, ConnectionView{
			ConnectionEdge: edge,
			State:          connections.Resolve(viewerID, edge.OtherParty(viewerID), edges[i:i+1]).State,
			Other:          summary,
		})
	}
	return views, nil
}

// Status resolves how viewerID relates to targetID.
func (s *ConnectionService) Status(ctx context.Context, viewerID, targetID uint) (connections.Relationship, error) {
	if viewerID == targetID {
		return connections.Relationship{}, models.NewValidationError("Cannot check a connection with yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return connections.Relationship{}, err
	}
	edges, err := s.connRepo.ListBetween(ctx, viewerID, targetID)
	if err != nil {
		return connections.Relationship{}, err
	}
	return connections.Resolve(viewerID, targetID, edges), nil
}

// resultLabel turns an error into a low-cardinality metric label.
func resultLabel(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}
