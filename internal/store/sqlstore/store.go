// Package sqlstore implements store.Store on database/sql for SQLite and
// Postgres (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/database"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

// New wraps an open, migrated database.
func New(db *sql.DB, driverName string) *SQLStore {
	return &SQLStore{db: db, driverName: driverName}
}

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, driverName, dsn string) (*SQLStore, error) {
	db, err := database.OpenAndMigrate(ctx, driverName, dsn)
	if err != nil {
		return nil, err
	}
	return New(db, driverName), nil
}

func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) rebind(query string) string {
	return database.Rebind(s.driverName, query)
}

// mapErr translates driver errors into common kinds. what names the
// entity for not-found messages.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.NotFoundf("%s not found", what)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return common.Conflictf("%s already exists", what)
		case sqlite3.ErrConstraintForeignKey:
			return common.Validationf("%s references a missing object", what)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return common.Conflictf("%s already exists", what)
		case "23503":
			return common.Validationf("%s references a missing object", what)
		}
	}

	return fmt.Errorf("db error: %w", err)
}

// mustAffect turns a zero-row update or delete into ErrNotFound.
func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.NotFoundf("%s not found", what)
	}
	return nil
}
