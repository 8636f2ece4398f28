package repository

import (
	"context"
	"sync"
	"testing"

	"gatherly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionRepository_ActivePairIsUnique(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	first := &models.ConnectionEdge{RequesterID: a.ID, RecipientID: b.ID}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, models.ConnectionStatusPending, first.Status)
	require.NotNil(t, first.ActivePairKey)
	assert.Equal(t, models.PairKey(a.ID, b.ID), *first.ActivePairKey)

	// Reverse direction targets the same unordered pair.
	reverse := &models.ConnectionEdge{RequesterID: b.ID, RecipientID: a.ID}
	err := repo.Create(ctx, reverse)
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
}

func TestConnectionRepository_DeclineFreesThePair(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	edge := &models.ConnectionEdge{RequesterID: a.ID, RecipientID: b.ID}
	require.NoError(t, repo.Create(ctx, edge))
	require.NoError(t, repo.UpdateStatus(ctx, edge, models.ConnectionStatusDeclined))
	assert.Nil(t, edge.ActivePairKey)

	again := &models.ConnectionEdge{RequesterID: a.ID, RecipientID: b.ID}
	require.NoError(t, repo.Create(ctx, again))
	assert.NotEqual(t, edge.ID, again.ID)

	between, err := repo.ListBetween(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, between, 2)
}

func TestConnectionRepository_UpdateStatusIsGuarded(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	edge := &models.ConnectionEdge{RequesterID: a.ID, RecipientID: b.ID}
	require.NoError(t, repo.Create(ctx, edge))

	stale := *edge
	require.NoError(t, repo.UpdateStatus(ctx, edge, models.ConnectionStatusAccepted))
	require.NotNil(t, edge.ActivePairKey)

	err := repo.UpdateStatus(ctx, &stale, models.ConnectionStatusDeclined)
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)

	got, err := repo.GetByID(ctx, edge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusAccepted, got.Status)
	require.NotNil(t, got.Requester)
	assert.Equal(t, a.Name, got.Requester.Name)
}

func TestConnectionRepository_ListForUser(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")
	c := createUser(t, db, "c")

	ab := &models.ConnectionEdge{RequesterID: a.ID, RecipientID: b.ID}
	require.NoError(t, repo.Create(ctx, ab))
	ca := &models.ConnectionEdge{RequesterID: c.ID, RecipientID: a.ID}
	require.NoError(t, repo.Create(ctx, ca))
	require.NoError(t, repo.UpdateStatus(ctx, ca, models.ConnectionStatusAccepted))

	all, err := repo.ListForUser(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending := models.ConnectionStatusPending
	incoming, err := repo.ListForUser(ctx, b.ID, &pending)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, a.ID, incoming[0].RequesterID)

	peers, err := repo.ListAcceptedPeerIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{c.ID}, peers)

	_, err = repo.GetByID(ctx, 9999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestConnectionRepository_ConcurrentCreateLeavesOneLiveEdge(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			edge := &models.ConnectionEdge{RequesterID: a.ID, RecipientID: b.ID}
			if i%2 == 1 {
				edge.RequesterID, edge.RecipientID = b.ID, a.ID
			}
			errs[i] = repo.Create(ctx, edge)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var live int64
	require.NoError(t, db.Model(&models.ConnectionEdge{}).Where("active_pair_key IS NOT NULL").Count(&live).Error)
	assert.Equal(t, int64(1), live)
}
