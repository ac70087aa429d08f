package entitlements

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/database/dbtest"
)

func TestPostgresDebit_ConcurrentNeverNegative(t *testing.T) {
	pool := dbtest.Pool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	user := dbtest.User(t, pool, models.RoleUser, 10, 0)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*DebitResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Debit(ctx, DebitRequest{
				RequestID: uuid.NewString(), UserID: user, Resource: Credits, Operation: "job_match", Amount: 3,
			})
		}(i)
	}
	wg.Wait()

	charged := 0
	for i := range results {
		require.NoError(t, errs[i])
		charged += results[i].Charged
		assert.GreaterOrEqual(t, results[i].Balance, 0)
	}
	bal, err := store.Balance(ctx, user, Credits)
	require.NoError(t, err)
	assert.Equal(t, 0, bal)
	assert.Equal(t, 10, charged)
}

func TestPostgresDebit_RequestIDIsIdempotent(t *testing.T) {
	pool := dbtest.Pool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	user := dbtest.User(t, pool, models.RoleUser, 0, 20)
	req := DebitRequest{RequestID: RequestID(user, "cv_chat", "k1"), UserID: user, Resource: CVChatTokens, Operation: "cv_chat", Amount: 4}

	first, err := store.Debit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Charged)
	assert.Equal(t, 16, first.Balance)

	again, err := store.Debit(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Zero(t, again.Charged)
	assert.Equal(t, 16, again.Balance)

	prior, err := store.Settled(ctx, req.RequestID)
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, 4, prior.Charged)
	assert.Equal(t, 16, prior.Balance)

	missing, err := store.Settled(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresDebit_UnderflowClampsAtZero(t *testing.T) {
	pool := dbtest.Pool(t)
	store := NewPostgresStore(pool)
	user := dbtest.User(t, pool, models.RoleUser, 2, 0)

	res, err := store.Debit(context.Background(), DebitRequest{
		RequestID: uuid.NewString(), UserID: user, Resource: Credits, Operation: "cv_import", Amount: 5,
	})
	require.NoError(t, err)
	assert.True(t, res.Underflow)
	assert.Equal(t, 2, res.Charged)
	assert.Equal(t, 0, res.Balance)
}
