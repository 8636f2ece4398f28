package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"gatherly/internal/middleware"
	"gatherly/internal/models"
	"gatherly/internal/repository"
	"gatherly/internal/validation"
)

// EventService composes event listings from events, occurrences and RSVP counts.
type EventService struct {
	eventRepo repository.EventRepository
	occRepo   repository.OccurrenceRepository
	rsvpRepo  repository.RSVPRepository
	now       func() time.Time
}

// NewEventService returns a new EventService.
func NewEventService(eventRepo repository.EventRepository, occRepo repository.OccurrenceRepository, rsvpRepo repository.RSVPRepository) *EventService {
	return &EventService{eventRepo: eventRepo, occRepo: occRepo, rsvpRepo: rsvpRepo, now: time.Now}
}

// ListEvents returns published events by start, each with its next occurrence
// and Going counts. Count failures are logged and reported as zero.
func (s *EventService) ListEvents(ctx context.Context) ([]models.EventListing, error) {
	events, err := s.eventRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []models.EventListing{}, nil
	}

	publicIDs := make([]string, 0, len(events))
	seriesIDs := make([]uint, 0, len(events))
	for i := range events {
		publicIDs = append(publicIDs, events[i].PublicID)
		seriesIDs = append(seriesIDs, events[i].ID)
	}

	occurrences, err := s.occRepo.List(ctx, repository.OccurrenceFilter{EventPublicIDs: publicIDs, SeriesIDs: seriesIDs})
	if err != nil {
		return nil, err
	}

	byEvent := make(map[string][]models.Occurrence, len(events))
	bySeries := make(map[uint][]models.Occurrence, len(events))
	for _, occ := range occurrences {
		if occ.EventPublicID != "" {
			byEvent[occ.EventPublicID] = append(byEvent[occ.EventPublicID], occ)
		} else if occ.EventID != nil {
			bySeries[*occ.EventID] = append(bySeries[*occ.EventID], occ)
		}
	}

	now := s.now()
	listings := make([]models.EventListing, len(events))
	nextIDs := make([]string, 0, len(events))
	for i := range events {
		candidates := make([]models.Occurrence, 0, len(byEvent[events[i].PublicID])+len(bySeries[events[i].ID]))
		candidates = append(candidates, byEvent[events[i].PublicID]...)
		candidates = append(candidates, bySeries[events[i].ID]...)
		listings[i] = models.EventListing{Event: events[i], NextOccurrence: NextOccurrence(candidates, now)}
		if next := listings[i].NextOccurrence; next != nil {
			nextIDs = append(nextIDs, next.PublicID)
		}
	}

	eventCounts, err := s.rsvpRepo.CountGoingByEvent(ctx, publicIDs)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "going counts unavailable", "error", err)
		eventCounts = nil
	}
	occCounts, err := s.rsvpRepo.CountGoingByOccurrence(ctx, nextIDs)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "next occurrence counts unavailable", "error", err)
		occCounts = nil
	}
	for i := range listings {
		listings[i].GoingCount = eventCounts[listings[i].PublicID]
		if next := listings[i].NextOccurrence; next != nil {
			listings[i].NextGoingCount = occCounts[next.PublicID]
		}
	}
	return listings, nil
}

// GetEvent resolves an event by public id, falling back to a numeric record id.
func (s *EventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.NewValidationError("Event id is required")
	}
	event, err := s.eventRepo.GetByPublicID(ctx, id)
	if err == nil || !models.IsCode(err, models.CodeNotFound) {
		return event, err
	}
	if n, ok := validation.NumericID(id); ok {
		return s.eventRepo.GetByID(ctx, n)
	}
	return nil, err
}

// ListOccurrences returns occurrences, optionally for one event, de-duplicated
// by (event, start) and sorted by start.
func (s *EventService) ListOccurrences(ctx context.Context, eventID string) ([]models.Occurrence, error) {
	filter := repository.OccurrenceFilter{}
	if eventID = strings.TrimSpace(eventID); eventID != "" {
		filter.EventPublicIDs = []string{eventID}
		if n, ok := validation.NumericID(eventID); ok {
			filter.SeriesIDs = []uint{n}
		}
	}

	occurrences, err := s.occRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return DedupeOccurrences(occurrences), nil
}

// NextOccurrence picks the earliest occurrence starting at or after now, else
// the earliest overall. It returns nil for an empty slice.
func NextOccurrence(occurrences []models.Occurrence, now time.Time) *models.Occurrence {
	var upcoming, earliest *models.Occurrence
	for i := range occurrences {
		occ := &occurrences[i]
		if earliest == nil || occ.StartAt.Before(earliest.StartAt) {
			earliest = occ
		}
		if !occ.StartAt.Before(now) && (upcoming == nil || occ.StartAt.Before(upcoming.StartAt)) {
			upcoming = occ
		}
	}
	if upcoming != nil {
		return upcoming
	}
	return earliest
}

// DedupeOccurrences keeps the first occurrence per (event public id or series
// id, start) and sorts the survivors by start.
func DedupeOccurrences(occurrences []models.Occurrence) []models.Occurrence {
	seen := make(map[string]struct{}, len(occurrences))
	out := make([]models.Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		key := occ.EventPublicID
		if key == "" && occ.EventID != nil {
			key = "#" + strconv.FormatUint(uint64(*occ.EventID), 10)
		}
		key += "|" + occ.StartAt.UTC().Format(time.RFC3339)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, occ)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}
