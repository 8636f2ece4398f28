package repository

import (
	"context"

	"gatherly/internal/models"
	"gatherly/internal/observability"

	"gorm.io/gorm"
)

// EventRepository reads host-submitted events. This service never writes them
// outside of seeding.
type EventRepository interface {
	ListPublished(ctx context.Context) ([]models.Event, error)
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	GetByPublicID(ctx context.Context, publicID string) (*models.Event, error)
	GetByPublicIDs(ctx context.Context, publicIDs []string) ([]models.Event, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) ListPublished(ctx context.Context) ([]models.Event, error) {
	defer observability.TrackQuery("list_published", "events")()

	var events []models.Event
	if err := readDB(r.db).WithContext(ctx).
		Where("published = ?", true).
		Order("start_at ASC").Order("id ASC").
		Find(&events).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return events, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	defer observability.TrackQuery("get_by_id", "events")()

	var event models.Event
	if err := readDB(r.db).WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, storeError(err, "Event", id)
	}
	return &event, nil
}

func (r *eventRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Event, error) {
	defer observability.TrackQuery("get_by_public_id", "events")()

	var event models.Event
	if err := readDB(r.db).WithContext(ctx).Where("public_id = ?", publicID).First(&event).Error; err != nil {
		return nil, storeError(err, "Event", publicID)
	}
	return &event, nil
}

func (r *eventRepository) GetByPublicIDs(ctx context.Context, publicIDs []string) ([]models.Event, error) {
	if len(publicIDs) == 0 {
		return []models.Event{}, nil
	}
	defer observability.TrackQuery("get_by_public_ids", "events")()

	var events []models.Event
	if err := readDB(r.db).WithContext(ctx).Where("public_id IN ?", publicIDs).Find(&events).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return events, nil
}

// OccurrenceFilter narrows occurrence listings. Zero values match everything.
type OccurrenceFilter struct {
	EventPublicIDs []string
	SeriesIDs      []uint
}

// OccurrenceRepository reads scheduled instances of events.
type OccurrenceRepository interface {
	List(ctx context.Context, filter OccurrenceFilter) ([]models.Occurrence, error)
	GetByID(ctx context.Context, id uint) (*models.Occurrence, error)
	GetByPublicID(ctx context.Context, publicID string) (*models.Occurrence, error)
}

type occurrenceRepository struct {
	db *gorm.DB
}

// NewOccurrenceRepository creates a new occurrence repository
func NewOccurrenceRepository(db *gorm.DB) OccurrenceRepository {
	return &occurrenceRepository{db: db}
}

// List returns occurrences matching any of the filter's event ids or series
// ids, ordered by start.
func (r *occurrenceRepository) List(ctx context.Context, filter OccurrenceFilter) ([]models.Occurrence, error) {
	defer observability.TrackQuery("list", "occurrences")()

	q := readDB(r.db).WithContext(ctx)
	switch {
	case len(filter.EventPublicIDs) > 0 && len(filter.SeriesIDs) > 0:
		q = q.Where("event_public_id IN ? OR event_id IN ?", filter.EventPublicIDs, filter.SeriesIDs)
	case len(filter.EventPublicIDs) > 0:
		q = q.Where("event_public_id IN ?", filter.EventPublicIDs)
	case len(filter.SeriesIDs) > 0:
		q = q.Where("event_id IN ?", filter.SeriesIDs)
	}

	var occurrences []models.Occurrence
	if err := q.Order("start_at ASC").Order("id ASC").Find(&occurrences).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return occurrences, nil
}

func (r *occurrenceRepository) GetByID(ctx context.Context, id uint) (*models.Occurrence, error) {
	defer observability.TrackQuery("get_by_id", "occurrences")()

	var occurrence models.Occurrence
	if err := readDB(r.db).WithContext(ctx).First(&occurrence, id).Error; err != nil {
		return nil, storeError(err, "Occurrence", id)
	}
	return &occurrence, nil
}

func (r *occurrenceRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Occurrence, error) {
	defer observability.TrackQuery("get_by_public_id", "occurrences")()

	var occurrence models.Occurrence
	if err := readDB(r.db).WithContext(ctx).Where("public_id = ?", publicID).First(&occurrence).Error; err != nil {
		return nil, storeError(err, "Occurrence", publicID)
	}
	return &occurrence, nil
}
