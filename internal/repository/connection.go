package repository

import (
	"context"
	"time"

	"gatherly/internal/models"
	"gatherly/internal/observability"

	"gorm.io/gorm"
)

// ConnectionRepository defines persistence for connection edges. Edges are
// never deleted; they only change status.
type ConnectionRepository interface {
	Create(ctx context.Context, edge *models.ConnectionEdge) error
	GetByID(ctx context.Context, id uint) (*models.ConnectionEdge, error)
	ListForUser(ctx context.Context, userID uint, status *models.ConnectionStatus) ([]models.ConnectionEdge, error)
	ListBetween(ctx context.Context, userID1, userID2 uint) ([]models.ConnectionEdge, error)
	ListAcceptedPeerIDs(ctx context.Context, userID uint) ([]uint, error)
	UpdateStatus(ctx context.Context, edge *models.ConnectionEdge, to models.ConnectionStatus) error
}

type connectionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db, log: observability.NewRepoLogger("connection_edges")}
}

// Create inserts a live edge. A second live edge for the same pair violates
// idx_connection_edges_active_pair and is reported as Conflict.
func (r *connectionRepository) Create(ctx context.Context, edge *models.ConnectionEdge) error {
	defer observability.TrackQuery("create", "connection_edges")()

	if err := r.db.WithContext(ctx).Create(edge).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A live connection already exists between these users")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewUpstreamError(err)
	}
	r.log.LogCreate(ctx, map[string]any{
		"edge_id":      edge.ID,
		"requester_id": edge.RequesterID,
		"recipient_id": edge.RecipientID,
	})
	return nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uint) (*models.ConnectionEdge, error) {
	defer observability.TrackQuery("get_by_id", "connection_edges")()

	var edge models.ConnectionEdge
	if err := r.db.WithContext(ctx).Preload("Requester").Preload("Recipient").First(&edge, id).Error; err != nil {
		return nil, storeError(err, "Connection", id)
	}
	return &edge, nil
}

// ListForUser returns edges where userID is either party, newest first.
func (r *connectionRepository) ListForUser(ctx context.Context, userID uint, status *models.ConnectionStatus) ([]models.ConnectionEdge, error) {
	defer observability.TrackQuery("list_for_user", "connection_edges")()

	q := readDB(r.db).WithContext(ctx).
		Where("requester_id = ? OR recipient_id = ?", userID, userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var edges []models.ConnectionEdge
	if err := q.Preload("Requester").Preload("Recipient").
		Order("updated_at DESC").Order("id DESC").
		Find(&edges).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return edges, nil
}

// ListBetween reads from the primary: callers use it to decide writes.
func (r *connectionRepository) ListBetween(ctx context.Context, userID1, userID2 uint) ([]models.ConnectionEdge, error) {
	defer observability.TrackQuery("list_between", "connection_edges")()

	var edges []models.ConnectionEdge
	if err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)",
			userID1, userID2, userID2, userID1).
		Order("updated_at DESC").Order("id DESC").
		Find(&edges).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return edges, nil
}

func (r *connectionRepository) ListAcceptedPeerIDs(ctx context.Context, userID uint) ([]uint, error) {
	defer observability.TrackQuery("list_accepted_peers", "connection_edges")()

	var edges []models.ConnectionEdge
	if err := readDB(r.db).WithContext(ctx).
		Select("requester_id", "recipient_id").
		Where("status = ? AND (requester_id = ? OR recipient_id = ?)", models.ConnectionStatusAccepted, userID, userID).
		Find(&edges).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}

	seen := make(map[uint]struct{}, len(edges))
	peers := make([]uint, 0, len(edges))
	for i := range edges {
		other := edges[i].OtherParty(userID)
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		peers = append(peers, other)
	}
	return peers, nil
}

// UpdateStatus moves edge to status `to`, guarded on its current status so
// two racing actors cannot both transition it. The pair key is cleared when
// the edge stops being live.
func (r *connectionRepository) UpdateStatus(ctx context.Context, edge *models.ConnectionEdge, to models.ConnectionStatus) error {
	defer observability.TrackQuery("update_status", "connection_edges")()

	now := time.Now()
	key := models.ActivePairKeyFor(edge.RequesterID, edge.RecipientID, to)
	res := r.db.WithContext(ctx).
		Model(&models.ConnectionEdge{}).
		Where("id = ? AND status = ?", edge.ID, edge.Status).
		Updates(map[string]interface{}{
			"status":          to,
			"active_pair_key": key,
			"updated_at":      now,
		})
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("A live connection already exists between these users")
		}
		r.log.LogError(ctx, res.Error, "update_status")
		return models.NewUpstreamError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("Connection status changed concurrently")
	}

	r.log.LogUpdate(ctx, map[string]any{
		"edge_id": edge.ID,
		"from":    string(edge.Status),
		"to":      string(to),
	})
	edge.Status = to
	edge.ActivePairKey = key
	edge.UpdatedAt = now
	return nil
}
