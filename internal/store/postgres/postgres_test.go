package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/spigell/skills-extractor/internal/store/storetest"
)

// Set SKILLS_EXTRACTOR_TEST_DATABASE_URL to a disposable database to run these.
const testDSNEnv = "SKILLS_EXTRACTOR_TEST_DATABASE_URL"

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", testDSNEnv)
	}

	pool, err := Connect(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestStoreContract(t *testing.T) {
	pool := newTestPool(t)

	storetest.Run(t, func(t *testing.T) storetest.Backend {
		s, err := New(context.Background(), pool)
		require.NoError(t, err)
		return s
	})
}

func TestConnectRejectsBadDSN(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz")
	require.Error(t, err)
}
