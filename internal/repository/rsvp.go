package repository

import (
	"context"
	"errors"
	"time"

	"gatherly/internal/models"
	"gatherly/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RSVPFilter narrows RSVP listings. Zero values match everything.
type RSVPFilter struct {
	UserIDs      []uint
	EventID      string
	OccurrenceID string
	Statuses     []models.RSVPStatus
}

// RSVPRepository persists attendance intents, one row per (user, event, occurrence).
type RSVPRepository interface {
	Upsert(ctx context.Context, rsvp *models.RSVP) (created bool, err error)
	List(ctx context.Context, filter RSVPFilter) ([]models.RSVP, error)
	CountGoingByEvent(ctx context.Context, eventIDs []string) (map[string]int64, error)
	CountGoingByOccurrence(ctx context.Context, occurrenceIDs []string) (map[string]int64, error)
}

type rsvpRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewRSVPRepository creates a new RSVP repository
func NewRSVPRepository(db *gorm.DB) RSVPRepository {
	return &rsvpRepository{db: db, log: observability.NewRepoLogger("rsvps")}
}

// Upsert writes rsvp keyed on idx_rsvps_target. The insert carries
// ON CONFLICT DO UPDATE so a racing writer updates instead of failing; the
// last write wins. created reports whether no row existed beforehand.
func (r *rsvpRepository) Upsert(ctx context.Context, rsvp *models.RSVP) (bool, error) {
	defer observability.TrackQuery("upsert", "rsvps")()

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RSVP
		err := tx.Where("user_id = ? AND event_id = ? AND occurrence_id = ?",
			rsvp.UserID, rsvp.EventID, rsvp.OccurrenceID).
			First(&existing).Error
		switch {
		case err == nil:
			now := time.Now()
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"status":     rsvp.Status,
				"updated_at": now,
			}).Error; err != nil {
				return err
			}
			existing.Status = rsvp.Status
			existing.UpdatedAt = now
			*rsvp = existing
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		created = true
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "event_id"}, {Name: "occurrence_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(rsvp).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
		return false, models.NewUpstreamError(err)
	}

	if created {
		r.log.LogCreate(ctx, map[string]any{"rsvp_id": rsvp.ID, "event_id": rsvp.EventID, "status": string(rsvp.Status)})
	} else {
		r.log.LogUpdate(ctx, map[string]any{"rsvp_id": rsvp.ID, "event_id": rsvp.EventID, "status": string(rsvp.Status)})
	}
	return created, nil
}

func (r *rsvpRepository) List(ctx context.Context, filter RSVPFilter) ([]models.RSVP, error) {
	defer observability.TrackQuery("list", "rsvps")()

	q := readDB(r.db).WithContext(ctx)
	if len(filter.UserIDs) > 0 {
		q = q.Where("user_id IN ?", filter.UserIDs)
	}
	if filter.EventID != "" {
		q = q.Where("event_id = ?", filter.EventID)
	}
	if filter.OccurrenceID != "" {
		q = q.Where("occurrence_id = ?", filter.OccurrenceID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}

	var rsvps []models.RSVP
	if err := q.Order("id ASC").Find(&rsvps).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return rsvps, nil
}

type goingCount struct {
	GroupKey string
	Total    int64
}

// CountGoingByEvent counts Going RSVPs per event, matching status case-insensitively.
func (r *rsvpRepository) CountGoingByEvent(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	return r.countGoing(ctx, "event_id", eventIDs)
}

// CountGoingByOccurrence counts Going RSVPs per occurrence id.
func (r *rsvpRepository) CountGoingByOccurrence(ctx context.Context, occurrenceIDs []string) (map[string]int64, error) {
	return r.countGoing(ctx, "occurrence_id", occurrenceIDs)
}

func (r *rsvpRepository) countGoing(ctx context.Context, column string, keys []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return counts, nil
	}
	defer observability.TrackQuery("count_going_by_"+column, "rsvps")()

	var rows []goingCount
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.RSVP{}).
		Select(column+" AS group_key, COUNT(*) AS total").
		Where(column+" IN ?", keys).
		Where("LOWER(status) = ?", "going").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	for _, row := range rows {
		counts[row.GroupKey] = row.Total
	}
	return counts, nil
}
