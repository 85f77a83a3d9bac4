// Package sqlitestore is the embedded single-file store used for local
// development and tests. It offers the same operations as the Postgres store
// without the outbox. Overlapping confirmed appointments are rejected by a
// trigger, and the single connection serializes writers.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/md-rashed-zaman/sellerbook/libs/db"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	conn, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	st := New(conn)
	if err := st.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return st, nil
}

func New(conn *sql.DB) *Store {
	return &Store{db: conn, now: time.Now}
}

func (s *Store) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return err
	}
	return db.MigrateSQL(ctx, s.db, sub)
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func isOverlap(err error) bool {
	return err != nil && strings.Contains(err.Error(), "appointments_no_overlap")
}

func isForeignKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, what, id)
	}
	return err
}

func unix(t time.Time) int64 { return t.UTC().Unix() }

func fromUnix(v int64) time.Time { return time.Unix(v, 0).UTC() }

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnix(v.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
