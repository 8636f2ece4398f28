package service

import (
	"context"
	"errors"
	"testing"

	"gatherly/internal/models"
	"gatherly/internal/repository"
)

type userRepoStub struct {
	getByIDFn          func(context.Context, uint) (*models.User, error)
	getByAuthSubjectFn func(context.Context, string) (*models.User, error)
	getByIDsFn         func(context.Context, []uint) ([]models.User, error)
	listFn             func(context.Context, int, int) ([]models.User, error)
	listAllFn          func(context.Context) ([]models.User, error)
	createFn           func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByAuthSubject(ctx context.Context, subject string) (*models.User, error) {
	return s.getByAuthSubjectFn(ctx, subject)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) ListAll(ctx context.Context) ([]models.User, error) {
	return s.listAllFn(ctx)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

type connRepoStub struct {
	createFn              func(context.Context, *models.ConnectionEdge) error
	getByIDFn             func(context.Context, uint) (*models.ConnectionEdge, error)
	listForUserFn         func(context.Context, uint, *models.ConnectionStatus) ([]models.ConnectionEdge, error)
	listBetweenFn         func(context.Context, uint, uint) ([]models.ConnectionEdge, error)
	listAcceptedPeerIDsFn func(context.Context, uint) ([]uint, error)
	updateStatusFn        func(context.Context, *models.ConnectionEdge, models.ConnectionStatus) error
}

func (s *connRepoStub) Create(ctx context.Context, edge *models.ConnectionEdge) error {
	return s.createFn(ctx, edge)
}
func (s *connRepoStub) GetByID(ctx context.Context, id uint) (*models.ConnectionEdge, error) {
	return s.getByIDFn(ctx, id)
}
func (s *connRepoStub) ListForUser(ctx context.Context, userID uint, status *models.ConnectionStatus) ([]models.ConnectionEdge, error) {
	return s.listForUserFn(ctx, userID, status)
}
func (s *connRepoStub) ListBetween(ctx context.Context, userID1, userID2 uint) ([]models.ConnectionEdge, error) {
	return s.listBetweenFn(ctx, userID1, userID2)
}
func (s *connRepoStub) ListAcceptedPeerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.listAcceptedPeerIDsFn(ctx, userID)
}
func (s *connRepoStub) UpdateStatus(ctx context.Context, edge *models.ConnectionEdge, to models.ConnectionStatus) error {
	return s.updateStatusFn(ctx, edge, to)
}

type eventRepoStub struct {
	listPublishedFn  func(context.Context) ([]models.Event, error)
	getByIDFn        func(context.Context, uint) (*models.Event, error)
	getByPublicIDFn  func(context.Context, string) (*models.Event, error)
	getByPublicIDsFn func(context.Context, []string) ([]models.Event, error)
}

func (s *eventRepoStub) ListPublished(ctx context.Context) ([]models.Event, error) {
	return s.listPublishedFn(ctx)
}
func (s *eventRepoStub) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	return s.getByIDFn(ctx, id)
}
func (s *eventRepoStub) GetByPublicID(ctx context.Context, publicID string) (*models.Event, error) {
	return s.getByPublicIDFn(ctx, publicID)
}
func (s *eventRepoStub) GetByPublicIDs(ctx context.Context, publicIDs []string) ([]models.Event, error) {
	return s.getByPublicIDsFn(ctx, publicIDs)
}

type occRepoStub struct {
	listFn          func(context.Context, repository.OccurrenceFilter) ([]models.Occurrence, error)
	getByIDFn       func(context.Context, uint) (*models.Occurrence, error)
	getByPublicIDFn func(context.Context, string) (*models.Occurrence, error)
}

func (s *occRepoStub) List(ctx context.Context, filter repository.OccurrenceFilter) ([]models.Occurrence, error) {
	return s.listFn(ctx, filter)
}
func (s *occRepoStub) GetByID(ctx context.Context, id uint) (*models.Occurrence, error) {
	return s.getByIDFn(ctx, id)
}
func (s *occRepoStub) GetByPublicID(ctx context.Context, publicID string) (*models.Occurrence, error) {
	return s.getByPublicIDFn(ctx, publicID)
}

type rsvpRepoStub struct {
	upsertFn                 func(context.Context, *models.RSVP) (bool, error)
	listFn                   func(context.Context, repository.RSVPFilter) ([]models.RSVP, error)
	countGoingByEventFn      func(context.Context, []string) (map[string]int64, error)
	countGoingByOccurrenceFn func(context.Context, []string) (map[string]int64, error)
}

func (s *rsvpRepoStub) Upsert(ctx context.Context, rsvp *models.RSVP) (bool, error) {
	return s.upsertFn(ctx, rsvp)
}
func (s *rsvpRepoStub) List(ctx context.Context, filter repository.RSVPFilter) ([]models.RSVP, error) {
	return s.listFn(ctx, filter)
}
func (s *rsvpRepoStub) CountGoingByEvent(ctx context.Context, ids []string) (map[string]int64, error) {
	return s.countGoingByEventFn(ctx, ids)
}
func (s *rsvpRepoStub) CountGoingByOccurrence(ctx context.Context, ids []string) (map[string]int64, error) {
	return s.countGoingByOccurrenceFn(ctx, ids)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByAuthSubjectFn: func(_ context.Context, subject string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", subject)
		},
		getByIDsFn: func(context.Context, []uint) ([]models.User, error) { return nil, nil },
		listFn:     func(context.Context, int, int) ([]models.User, error) { return nil, nil },
		listAllFn:  func(context.Context) ([]models.User, error) { return nil, nil },
		createFn:   func(context.Context, *models.User) error { return nil },
	}
}

func noopConnRepo() *connRepoStub {
	return &connRepoStub{
		createFn:  func(context.Context, *models.ConnectionEdge) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.ConnectionEdge, error) { return &models.ConnectionEdge{ID: id}, nil },
		listForUserFn: func(context.Context, uint, *models.ConnectionStatus) ([]models.ConnectionEdge, error) {
			return nil, nil
		},
		listBetweenFn:         func(context.Context, uint, uint) ([]models.ConnectionEdge, error) { return nil, nil },
		listAcceptedPeerIDsFn: func(context.Context, uint) ([]uint, error) { return nil, nil },
		updateStatusFn:        func(context.Context, *models.ConnectionEdge, models.ConnectionStatus) error { return nil },
	}
}

func noopEventRepo() *eventRepoStub {
	return &eventRepoStub{
		listPublishedFn: func(context.Context) ([]models.Event, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Event, error) {
			return nil, models.NewNotFoundError("Event", id)
		},
		getByPublicIDFn: func(_ context.Context, id string) (*models.Event, error) {
			return nil, models.NewNotFoundError("Event", id)
		},
		getByPublicIDsFn: func(context.Context, []string) ([]models.Event, error) { return nil, nil },
	}
}

func noopOccRepo() *occRepoStub {
	return &occRepoStub{
		listFn: func(context.Context, repository.OccurrenceFilter) ([]models.Occurrence, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Occurrence, error) {
			return nil, models.NewNotFoundError("Occurrence", id)
		},
		getByPublicIDFn: func(_ context.Context, id string) (*models.Occurrence, error) {
			return nil, models.NewNotFoundError("Occurrence", id)
		},
	}
}

func noopRSVPRepo() *rsvpRepoStub {
	return &rsvpRepoStub{
		upsertFn: func(context.Context, *models.RSVP) (bool, error) { return true, nil },
		listFn:   func(context.Context, repository.RSVPFilter) ([]models.RSVP, error) { return nil, nil },
		countGoingByEventFn: func(context.Context, []string) (map[string]int64, error) {
			return map[string]int64{}, nil
		},
		countGoingByOccurrenceFn: func(context.Context, []string) (map[string]int64, error) {
			return map[string]int64{}, nil
		},
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != code {
		t.Fatalf("expected %s app error, got %#v", code, err)
	}
}
