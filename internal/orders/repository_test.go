package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/coupons"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/plans"
	"github.com/kariyerai/backend/pkg/database/dbtest"
)

func TestRepositoryPlace_LastCouponUseGoesToOneBuyer(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	code := dbtest.Code("ONCE")
	_, err := pool.Exec(ctx,
		`INSERT INTO coupons (code, discount_type, discount_value, valid_from, max_usage)
		 VALUES ($1, 'PERCENT', 10, NOW() - INTERVAL '1 hour', 1)`, code)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM coupons WHERE code = $1`, code) })

	const buyers = 4
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		user := dbtest.User(t, pool, models.RoleUser, 0, 0)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Place(ctx, PlaceParams{
				UserID: user, Plan: plans.MustLookup(models.PlanBasic), CouponCode: code,
				OrderCode: dbtest.Code("KAI-"), Now: time.Now(),
			})
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		var inv *coupons.InvalidCouponError
		require.True(t, errors.As(err, &inv), "unexpected error: %v", err)
		assert.Equal(t, coupons.ReasonUsageExceeded, inv.Reason)
	}
	assert.Equal(t, 1, placed)

	var usage, orders int
	require.NoError(t, pool.QueryRow(ctx, `SELECT usage_count FROM coupons WHERE code = $1`, code).Scan(&usage))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE coupon_code = $1`, code).Scan(&orders))
	assert.Equal(t, 1, usage)
	assert.Equal(t, 1, orders)
}

func TestRepositoryPlace_FreeOrderActivatesPlan(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user := dbtest.User(t, pool, models.RoleUser, 5, 50)

	code := dbtest.Code("FREE")
	_, err := pool.Exec(ctx,
		`INSERT INTO coupons (code, discount_type, discount_value, valid_from) VALUES ($1, 'PERCENT', 100, NOW() - INTERVAL '1 hour')`, code)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM coupons WHERE code = $1`, code) })

	premium := plans.MustLookup(models.PlanPremium)
	o, err := repo.Place(ctx, PlaceParams{UserID: user, Plan: premium, CouponCode: code, OrderCode: dbtest.Code("KAI-"), Now: time.Now()})
	require.NoError(t, err)
	assert.True(t, o.IsFree)
	assert.Equal(t, models.OrderCompleted, o.Status)

	var plan string
	var credits int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT s.plan, u.credits FROM users u JOIN subscriptions s ON s.user_id = u.id WHERE u.id = $1`, user).Scan(&plan, &credits))
	assert.Equal(t, string(models.PlanPremium), plan)
	assert.Equal(t, 5+premium.Credits, credits)
}
