package embeds

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"Threadmark/internal/db/migrations"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL and runs migrations. Tests are
// skipped when no database is configured.
func setupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, migrations.Up(db), "Failed to run migrations")

	return db
}

func cleanupEmbedCache(t *testing.T, db *sql.DB) {
	_, err := db.Exec("DELETE FROM embed_cache WHERE url LIKE 'https://repo.test/%'")
	require.NoError(t, err, "Failed to cleanup embed cache")
}

func TestEmbedRepo_SetAndGet(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()
	defer cleanupEmbedCache(t, db)

	repo := NewRepository(db)
	ctx := context.Background()

	key := "https://repo.test/a"
	got, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Set(ctx, key, &Result{Title: "First", Duration: Duration("[1:00]"), Provider: "example"}))
	require.NoError(t, repo.Set(ctx, key, &Result{Title: "Second", Duration: NoDuration(), Provider: "example"}))

	got, err = repo.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Second", got.Title)
	assert.Equal(t, "example", got.Provider)
	require.NotNil(t, got.Duration)
	assert.Empty(t, *got.Duration)
}
