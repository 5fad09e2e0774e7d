package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
)

const createCacheTable = `CREATE TABLE IF NOT EXISTS kv_cache (
	cache_key TEXT PRIMARY KEY,
	cache_value TEXT NOT NULL
)`

// SQLStore is a key-value store backed by a single table in a SQL database.
type SQLStore struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

// NewSQLStore returns a key-value store that uses the given database connection.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if db.DriverName() == DriverPostgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &SQLStore{db: db, builder: builder}
}

// Migrate creates the cache table if it doesn't exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createCacheTable)
	return errors.Wrap(err, "unable to create the cache table")
}

// Get obtains the value stored for a key.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	wrapMsg := "unable to look up the cached value for `" + key + "`"

	// Build the query.
	query, args, err := s.builder.
		Select("cache_value").
		From("kv_cache").
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return nil, false, errors.Wrap(err, wrapMsg)
	}

	// Query the database.
	var value string
	err = s.db.GetContext(ctx, &value, query, args...)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, wrapMsg)
	}

	return []byte(value), true, nil
}

// Put stores a value for a key, replacing any existing value.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	wrapMsg := "unable to store the cached value for `" + key + "`"

	// Build the statement.
	statement, args, err := s.builder.
		Insert("kv_cache").
		Columns("cache_key", "cache_value").
		Values(key, string(value)).
		Suffix("ON CONFLICT (cache_key) DO UPDATE SET cache_value = excluded.cache_value").
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	_, err = s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// Delete removes a key from the store. Deleting a key that isn't present is not an error.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	wrapMsg := "unable to delete the cached value for `" + key + "`"

	// Build the statement.
	statement, args, err := s.builder.
		Delete("kv_cache").
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	_, err = s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
