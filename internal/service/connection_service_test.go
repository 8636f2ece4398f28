package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatherly/internal/cache"
	"gatherly/internal/connections"
	"gatherly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockStub struct {
	acquired []string
	released int
	err      error
}

func (l *lockStub) Acquire(_ context.Context, pairKey string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, pairKey)
	return func() { l.released++ }, nil
}

func pendingEdge(id, requester, recipient uint) models.ConnectionEdge {
	return models.ConnectionEdge{
		ID:          id,
		RequesterID: requester,
		RecipientID: recipient,
		Status:      models.ConnectionStatusPending,
		UpdatedAt:   time.Now(),
	}
}

func TestConnectionService_RequestSelf(t *testing.T) {
	t.Parallel()
	svc := NewConnectionService(noopConnRepo(), noopUserRepo(), nil)
	_, err := svc.Request(context.Background(), &models.User{ID: 3}, 3)
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestConnectionService_RequestTargetMissing(t *testing.T) {
	t.Parallel()
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User", id)
	}
	svc := NewConnectionService(noopConnRepo(), users, nil)
	_, err := svc.Request(context.Background(), &models.User{ID: 1}, 2)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestConnectionService_RequestGenderPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		viewer models.Gender
		target models.Gender
		denied bool
	}{
		{"both known and different", models.GenderMale, models.GenderFemale, true},
		{"both known and same", models.GenderFemale, models.GenderFemale, false},
		{"target unknown", models.GenderMale, models.GenderUnknown, false},
		{"viewer unknown", models.GenderUnknown, models.GenderFemale, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			users := noopUserRepo()
			users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
				return &models.User{ID: id, Gender: tt.target}, nil
			}
			svc := NewConnectionService(noopConnRepo(), users, nil)
			_, err := svc.Request(context.Background(), &models.User{ID: 1, Gender: tt.viewer}, 2)
			if tt.denied {
				assertAppErrorCode(t, err, models.CodePolicyDenied)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConnectionService_RequestExistingEdges(t *testing.T) {
	t.Parallel()

	accepted := pendingEdge(7, 1, 2)
	accepted.Status = models.ConnectionStatusAccepted
	blocked := pendingEdge(8, 2, 1)
	blocked.Status = models.ConnectionStatusBlocked
	declined := pendingEdge(9, 1, 2)
	declined.Status = models.ConnectionStatusDeclined

	tests := []struct {
		name       string
		edges      []models.ConnectionEdge
		wantCode   string
		wantCreate bool
	}{
		{"blocked pair", []models.ConnectionEdge{blocked}, models.CodePolicyDenied, false},
		{"already connected", []models.ConnectionEdge{accepted}, models.CodeConflict, false},
		{"incoming pending", []models.ConnectionEdge{pendingEdge(5, 2, 1)}, models.CodeConflict, false},
		{"outgoing pending is idempotent", []models.ConnectionEdge{pendingEdge(5, 1, 2)}, "", false},
		{"declined allows a fresh request", []models.ConnectionEdge{declined}, "", true},
		{"no edges", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopConnRepo()
			repo.listBetweenFn = func(context.Context, uint, uint) ([]models.ConnectionEdge, error) {
				return tt.edges, nil
			}
			createCalls := 0
			repo.createFn = func(_ context.Context, edge *models.ConnectionEdge) error {
				createCalls++
				edge.ID = 42
				return nil
			}
			repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
				e := pendingEdge(id, 1, 2)
				return &e, nil
			}

			svc := NewConnectionService(repo, noopUserRepo(), nil)
			res, err := svc.Request(context.Background(), &models.User{ID: 1}, 2)
			if tt.wantCode != "" {
				assertAppErrorCode(t, err, tt.wantCode)
				assert.Zero(t, createCalls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreate, res.Created)
			if tt.wantCreate {
				assert.Equal(t, 1, createCalls)
				assert.Equal(t, uint(42), res.Edge.ID)
			} else {
				assert.Zero(t, createCalls)
				assert.Equal(t, uint(5), res.Edge.ID)
			}
		})
	}
}

func TestConnectionService_RequestLostRaceRereads(t *testing.T) {
	t.Parallel()
	repo := noopConnRepo()
	calls := 0
	repo.listBetweenFn = func(context.Context, uint, uint) ([]models.ConnectionEdge, error) {
		calls++
		if calls == 1 {
			return nil, nil
		}
		// The concurrent writer's edge is visible on the re-read.
		return []models.ConnectionEdge{pendingEdge(11, 1, 2)}, nil
	}
	repo.createFn = func(context.Context, *models.ConnectionEdge) error {
		return models.NewConflictError("Connection already exists for this pair")
	}

	svc := NewConnectionService(repo, noopUserRepo(), nil)
	res, err := svc.Request(context.Background(), &models.User{ID: 1}, 2)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, uint(11), res.Edge.ID)
	assert.Equal(t, 2, calls)
}

func TestConnectionService_RequestUsesPairLock(t *testing.T) {
	t.Parallel()
	lock := &lockStub{}
	svc := NewConnectionService(noopConnRepo(), noopUserRepo(), lock)

	_, err := svc.Request(context.Background(), &models.User{ID: 9}, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"4:9"}, lock.acquired)
	assert.Equal(t, 1, lock.released)
}

func TestConnectionService_RequestLockBusyContinues(t *testing.T) {
	t.Parallel()
	lock := &lockStub{err: cache.ErrLockBusy}
	svc := NewConnectionService(noopConnRepo(), noopUserRepo(), lock)

	res, err := svc.Request(context.Background(), &models.User{ID: 9}, 4)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestConnectionService_RequestLockContextError(t *testing.T) {
	t.Parallel()
	lock := &lockStub{err: context.Canceled}
	svc := NewConnectionService(noopConnRepo(), noopUserRepo(), lock)

	_, err := svc.Request(context.Background(), &models.User{ID: 9}, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnectionService_Act(t *testing.T) {
	t.Parallel()

	t.Run("recipient accepts", func(t *testing.T) {
		t.Parallel()
		repo := noopConnRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
			e := pendingEdge(id, 1, 2)
			return &e, nil
		}
		var got models.ConnectionStatus
		repo.updateStatusFn = func(_ context.Context, edge *models.ConnectionEdge, to models.ConnectionStatus) error {
			got = to
			edge.Status = to
			return nil
		}
		svc := NewConnectionService(repo, noopUserRepo(), nil)
		edge, err := svc.Act(context.Background(), 2, 5, connections.ActionAccept)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusAccepted, got)
		assert.Equal(t, models.ConnectionStatusAccepted, edge.Status)
	})

	t.Run("requester cannot accept", func(t *testing.T) {
		t.Parallel()
		repo := noopConnRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
			e := pendingEdge(id, 1, 2)
			return &e, nil
		}
		repo.updateStatusFn = func(context.Context, *models.ConnectionEdge, models.ConnectionStatus) error {
			t.Fatal("update must not run")
			return nil
		}
		svc := NewConnectionService(repo, noopUserRepo(), nil)
		_, err := svc.Act(context.Background(), 1, 5, connections.ActionAccept)
		assertAppErrorCode(t, err, models.CodePolicyDenied)
	})

	t.Run("outsider is denied", func(t *testing.T) {
		t.Parallel()
		repo := noopConnRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
			e := pendingEdge(id, 1, 2)
			return &e, nil
		}
		svc := NewConnectionService(repo, noopUserRepo(), nil)
		_, err := svc.Act(context.Background(), 3, 5, connections.ActionDecline)
		assertAppErrorCode(t, err, models.CodePolicyDenied)
	})

	t.Run("declined never becomes accepted", func(t *testing.T) {
		t.Parallel()
		repo := noopConnRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
			e := pendingEdge(id, 1, 2)
			e.Status = models.ConnectionStatusDeclined
			return &e, nil
		}
		svc := NewConnectionService(repo, noopUserRepo(), nil)
		_, err := svc.Act(context.Background(), 2, 5, connections.ActionAccept)
		assertAppErrorCode(t, err, models.CodeConflict)
	})

	t.Run("missing edge", func(t *testing.T) {
		t.Parallel()
		repo := noopConnRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
			return nil, models.NewNotFoundError("Connection", id)
		}
		svc := NewConnectionService(repo, noopUserRepo(), nil)
		_, err := svc.Act(context.Background(), 2, 5, connections.ActionAccept)
		assertAppErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("store error propagates", func(t *testing.T) {
		t.Parallel()
		storeErr := errors.New("connection reset")
		repo := noopConnRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
			e := pendingEdge(id, 1, 2)
			return &e, nil
		}
		repo.updateStatusFn = func(context.Context, *models.ConnectionEdge, models.ConnectionStatus) error {
			return storeErr
		}
		svc := NewConnectionService(repo, noopUserRepo(), nil)
		_, err := svc.Act(context.Background(), 1, 5, connections.ActionWithdraw)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestConnectionService_ListAndStatus(t *testing.T) {
	t.Parallel()
	repo := noopConnRepo()
	outgoing := pendingEdge(1, 10, 20)
	outgoing.Recipient = &models.User{ID: 20, Name: "Ada"}
	incoming := pendingEdge(2, 30, 10)
	repo.listForUserFn = func(context.Context, uint, *models.ConnectionStatus) ([]models.ConnectionEdge, error) {
		return []models.ConnectionEdge{outgoing, incoming}, nil
	}
	repo.listBetweenFn = func(_ context.Context, a, b uint) ([]models.ConnectionEdge, error) {
		return []models.ConnectionEdge{outgoing}, nil
	}

	svc := NewConnectionService(repo, noopUserRepo(), nil)
	views, err := svc.List(context.Background(), 10, nil)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, connections.StatePendingOut, views[0].State)
	assert.Equal(t, "Ada", views[0].Other.Name)
	assert.Equal(t, connections.StatePendingIn, views[1].State)
	assert.Equal(t, uint(30), views[1].Other.ID)

	rel, err := svc.Status(context.Background(), 20, 10)
	require.NoError(t, err)
	assert.Equal(t, connections.StatePendingIn, rel.State)

	_, err = svc.Status(context.Background(), 10, 10)
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestConnectionService_Block(t *testing.T) {
	t.Parallel()

	declined := pendingEdge(9, 2, 1)
	declined.Status = models.ConnectionStatusDeclined
	accepted := pendingEdge(7, 1, 2)
	accepted.Status = models.ConnectionStatusAccepted
	blocked := pendingEdge(8, 2, 1)
	blocked.Status = models.ConnectionStatusBlocked

	tests := []struct {
		name        string
		edges       []models.ConnectionEdge
		wantCreate  bool
		wantChanged bool
		wantEdgeID  uint
	}{
		{"no edges inserts a blocked edge", nil, true, true, 42},
		{"declined edge inserts a blocked edge", []models.ConnectionEdge{declined}, true, true, 42},
		{"accepted edge is blocked in place", []models.ConnectionEdge{accepted}, false, true, 7},
		{"incoming pending is blocked in place", []models.ConnectionEdge{pendingEdge(5, 2, 1)}, false, true, 5},
		{"already blocked is unchanged", []models.ConnectionEdge{blocked}, false, false, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopConnRepo()
			repo.listBetweenFn = func(context.Context, uint, uint) ([]models.ConnectionEdge, error) {
				return append([]models.ConnectionEdge(nil), tt.edges...), nil
			}
			var inserted *models.ConnectionEdge
			repo.createFn = func(_ context.Context, edge *models.ConnectionEdge) error {
				edge.ID = 42
				inserted = edge
				return nil
			}
			repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
				return inserted, nil
			}
			var moved models.ConnectionStatus
			repo.updateStatusFn = func(_ context.Context, edge *models.ConnectionEdge, to models.ConnectionStatus) error {
				moved = to
				edge.Status = to
				return nil
			}

			svc := NewConnectionService(repo, noopUserRepo(), nil)
			res, err := svc.Block(context.Background(), &models.User{ID: 1}, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreate, res.Created)
			assert.Equal(t, tt.wantChanged, res.Changed)
			assert.Equal(t, tt.wantEdgeID, res.Edge.ID)
			assert.Equal(t, models.ConnectionStatusBlocked, res.Edge.Status)
			if tt.wantCreate {
				require.NotNil(t, inserted)
				assert.Equal(t, uint(1), inserted.RequesterID)
				assert.Equal(t, uint(2), inserted.RecipientID)
				assert.Empty(t, moved)
			}
			if tt.wantChanged && !tt.wantCreate {
				assert.Equal(t, models.ConnectionStatusBlocked, moved)
			}
		})
	}
}

func TestConnectionService_BlockRejections(t *testing.T) {
	t.Parallel()

	svc := NewConnectionService(noopConnRepo(), noopUserRepo(), nil)
	_, err := svc.Block(context.Background(), &models.User{ID: 1}, 1)
	assertAppErrorCode(t, err, models.CodeValidation)

	_, err = svc.Block(context.Background(), &models.User{ID: 1}, 0)
	assertAppErrorCode(t, err, models.CodeValidation)

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User", id)
	}
	svc = NewConnectionService(noopConnRepo(), users, nil)
	_, err = svc.Block(context.Background(), &models.User{ID: 1}, 2)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestConnectionService_BlockIgnoresGenderPolicy(t *testing.T) {
	t.Parallel()
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Gender: models.GenderMale}, nil
	}
	repo := noopConnRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.ConnectionEdge, error) {
		return &models.ConnectionEdge{ID: id, Status: models.ConnectionStatusBlocked}, nil
	}
	svc := NewConnectionService(repo, users, nil)

	res, err := svc.Block(context.Background(), &models.User{ID: 1, Gender: models.GenderFemale}, 2)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestConnectionService_BlockLostRaceBlocksWinner(t *testing.T) {
	t.Parallel()
	repo := noopConnRepo()
	calls := 0
	repo.listBetweenFn = func(context.Context, uint, uint) ([]models.ConnectionEdge, error) {
		calls++
		if calls == 1 {
			return nil, nil
		}
		return []models.ConnectionEdge{pendingEdge(11, 2, 1)}, nil
	}
	repo.createFn = func(context.Context, *models.ConnectionEdge) error {
		return models.NewConflictError("A live connection already exists between these users")
	}
	lock := &lockStub{}

	svc := NewConnectionService(repo, noopUserRepo(), lock)
	res, err := svc.Block(context.Background(), &models.User{ID: 1}, 2)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(11), res.Edge.ID)
	assert.Equal(t, []string{"1:2"}, lock.acquired)
	assert.Equal(t, 1, lock.released)
}
