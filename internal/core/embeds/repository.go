package embeds

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// undefinedTable is the postgres error code for a missing relation.
const undefinedTable = "42P01"

// ErrCacheTableMissing is returned when the embed_cache migration has not run
var ErrCacheTableMissing = errors.New("embed_cache table does not exist: run migrations")

type postgresEmbedRepo struct {
	db *sql.DB
}

// NewRepository creates a PostgreSQL embed cache repository
func NewRepository(db *sql.DB) Repository {
	return &postgresEmbedRepo{db: db}
}

// Get retrieves a stored result for the given normalized URL.
// Returns nil, nil if not found (not an error condition).
func (r *postgresEmbedRepo) Get(ctx context.Context, key string) (*Result, error) {
	query := `
		SELECT result, provider
		FROM embed_cache
		WHERE url = $1
	`

	var resultJSON []byte
	var provider string

	err := r.db.QueryRowContext(ctx, query, key).Scan(&resultJSON, &provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get embed cache entry: %w", err))
	}

	var result Result
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embed result: %w", err)
	}
	result.Provider = provider

	return &result, nil
}

// Set stores a result. If an entry already exists for the URL it is replaced.
func (r *postgresEmbedRepo) Set(ctx context.Context, key string, result *Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal embed result: %w", err)
	}

	query := `
		INSERT INTO embed_cache (url, provider, result)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO UPDATE
		SET provider = EXCLUDED.provider,
		    result = EXCLUDED.result,
		    fetched_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, key, result.Provider, resultJSON); err != nil {
		return classify(fmt.Errorf("failed to insert/update embed cache entry: %w", err))
	}
	return nil
}

// classify maps driver errors that need operator action to sentinels.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%w: %v", ErrCacheTableMissing, err)
	}
	return err
}
