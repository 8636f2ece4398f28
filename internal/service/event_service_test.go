package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatherly/internal/models"
	"gatherly/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	past    = testNow.Add(-72 * time.Hour)
	soon    = testNow.Add(24 * time.Hour)
	later   = testNow.Add(96 * time.Hour)
)

func uintPtr(v uint) *uint { return &v }

func TestNextOccurrence(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NextOccurrence(nil, testNow))

	occs := []models.Occurrence{
		{PublicID: "later", StartAt: later},
		{PublicID: "past", StartAt: past},
		{PublicID: "soon", StartAt: soon},
	}
	assert.Equal(t, "soon", NextOccurrence(occs, testNow).PublicID)

	allPast := []models.Occurrence{
		{PublicID: "a", StartAt: past.Add(time.Hour)},
		{PublicID: "b", StartAt: past},
	}
	assert.Equal(t, "b", NextOccurrence(allPast, testNow).PublicID)
}

func TestDedupeOccurrences(t *testing.T) {
	t.Parallel()

	occs := []models.Occurrence{
		{ID: 1, PublicID: "E1-late", EventPublicID: "E1", StartAt: later},
		{ID: 2, PublicID: "E1-soon", EventPublicID: "E1", StartAt: soon},
		{ID: 3, PublicID: "E1-soon-dup", EventPublicID: "E1", StartAt: soon},
		{ID: 4, PublicID: "E2-soon", EventPublicID: "E2", StartAt: soon},
		{ID: 5, PublicID: "S9-soon", EventID: uintPtr(9), StartAt: soon},
		{ID: 6, PublicID: "S9-soon-dup", EventID: uintPtr(9), StartAt: soon},
	}

	out := DedupeOccurrences(occs)
	ids := make([]uint, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []uint{2, 4, 5, 1}, ids)
}

func TestEventService_ListEvents(t *testing.T) {
	t.Parallel()

	events := noopEventRepo()
	events.listPublishedFn = func(context.Context) ([]models.Event, error) {
		return []models.Event{
			{ID: 1, PublicID: "E1", Title: "Walk", Published: true},
			{ID: 2, PublicID: "E2", Title: "Gig", Published: true},
			{ID: 3, PublicID: "E3", Title: "No dates", Published: true},
		}, nil
	}
	occs := noopOccRepo()
	occs.listFn = func(_ context.Context, f repository.OccurrenceFilter) ([]models.Occurrence, error) {
		assert.ElementsMatch(t, []string{"E1", "E2", "E3"}, f.EventPublicIDs)
		return []models.Occurrence{
			{PublicID: "E1-past", EventPublicID: "E1", StartAt: past},
			{PublicID: "E1-soon", EventPublicID: "E1", StartAt: soon},
			{PublicID: "E2-series", EventID: uintPtr(2), StartAt: later},
		}, nil
	}
	rsvps := noopRSVPRepo()
	rsvps.countGoingByEventFn = func(context.Context, []string) (map[string]int64, error) {
		return map[string]int64{"E1": 5, "E2": 1}, nil
	}
	rsvps.countGoingByOccurrenceFn = func(_ context.Context, ids []string) (map[string]int64, error) {
		assert.ElementsMatch(t, []string{"E1-soon", "E2-series"}, ids)
		return map[string]int64{"E1-soon": 3}, nil
	}

	svc := NewEventService(events, occs, rsvps)
	svc.now = func() time.Time { return testNow }

	listings, err := svc.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 3)

	assert.Equal(t, "E1-soon", listings[0].NextOccurrence.PublicID)
	assert.Equal(t, int64(3), listings[0].NextGoingCount)
	assert.Equal(t, int64(5), listings[0].GoingCount)

	assert.Equal(t, "E2-series", listings[1].NextOccurrence.PublicID)
	assert.Equal(t, int64(0), listings[1].NextGoingCount)
	assert.Equal(t, int64(1), listings[1].GoingCount)

	assert.Nil(t, listings[2].NextOccurrence)
}

func TestEventService_ListEvents_CountsFailSoft(t *testing.T) {
	t.Parallel()

	events := noopEventRepo()
	events.listPublishedFn = func(context.Context) ([]models.Event, error) {
		return []models.Event{{ID: 1, PublicID: "E1", Published: true}}, nil
	}
	occs := noopOccRepo()
	occs.listFn = func(context.Context, repository.OccurrenceFilter) ([]models.Occurrence, error) {
		return []models.Occurrence{{PublicID: "E1-soon", EventPublicID: "E1", StartAt: soon}}, nil
	}
	rsvps := noopRSVPRepo()
	rsvps.countGoingByEventFn = func(context.Context, []string) (map[string]int64, error) {
		return nil, errors.New("timeout")
	}
	rsvps.countGoingByOccurrenceFn = func(context.Context, []string) (map[string]int64, error) {
		return nil, errors.New("timeout")
	}

	listings, err := NewEventService(events, occs, rsvps).ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Zero(t, listings[0].GoingCount)
	assert.Zero(t, listings[0].NextGoingCount)
}

func TestEventService_GetEvent(t *testing.T) {
	t.Parallel()

	events := noopEventRepo()
	events.getByPublicIDFn = func(_ context.Context, id string) (*models.Event, error) {
		if id == "E1" {
			return &models.Event{ID: 1, PublicID: "E1"}, nil
		}
		return nil, models.NewNotFoundError("Event", id)
	}
	events.getByIDFn = func(_ context.Context, id uint) (*models.Event, error) {
		if id == 12 {
			return &models.Event{ID: 12, PublicID: "E12"}, nil
		}
		return nil, models.NewNotFoundError("Event", id)
	}
	svc := NewEventService(events, noopOccRepo(), noopRSVPRepo())

	e, err := svc.GetEvent(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, uint(1), e.ID)

	e, err = svc.GetEvent(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, "E12", e.PublicID)

	_, err = svc.GetEvent(context.Background(), "nope")
	assertAppErrorCode(t, err, models.CodeNotFound)

	_, err = svc.GetEvent(context.Background(), " ")
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestEventService_ListOccurrencesFilter(t *testing.T) {
	t.Parallel()

	var got repository.OccurrenceFilter
	occs := noopOccRepo()
	occs.listFn = func(_ context.Context, f repository.OccurrenceFilter) ([]models.Occurrence, error) {
		got = f
		return nil, nil
	}
	svc := NewEventService(noopEventRepo(), occs, noopRSVPRepo())

	out, err := svc.ListOccurrences(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, []string{"42"}, got.EventPublicIDs)
	assert.Equal(t, []uint{42}, got.SeriesIDs)

	_, err = svc.ListOccurrences(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got.EventPublicIDs)
	assert.Empty(t, got.SeriesIDs)
}
