// Package dbtest gives integration tests a migrated Postgres pool. Tests using it skip
// unless TEST_DATABASE_URL points at a disposable database.
package dbtest

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/database"
)

// EnvDSN names the connection string variable.
const EnvDSN = "TEST_DATABASE_URL"

// migrateLock serializes migrations across test binaries sharing one database.
const migrateLock = 7204117

// Pool connects, migrates and registers Close with t.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skip(EnvDSN + " not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()
	_, err = conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrateLock)
	require.NoError(t, err)
	defer conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, migrateLock)
	require.NoError(t, database.Migrate(ctx, pool))
	return pool
}

// User inserts an account with the given role and balances. It is deleted when t ends.
func User(t *testing.T, pool *pgxpool.Pool, role models.Role, credits, cvChatTokens int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, full_name, role, credits, cv_chat_tokens)
		 VALUES ($1, 'x', 'Test User', $2, $3, $4) RETURNING id`,
		"it-"+uuid.NewString()+"@kariyer.test", string(role), credits, cvChatTokens).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

// Code returns a unique upper-case code with prefix.
func Code(prefix string) string {
	return strings.ToUpper(prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
