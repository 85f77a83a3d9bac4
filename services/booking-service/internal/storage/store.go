// Package storage is the Postgres store of the booking service: users and
// seller profiles, weekly availability, appointments, calendar credentials and
// the transactional outbox.
package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/sellerbook/libs/db"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/outbox"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the schema files in apply order.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewStore(pool *db.Pool, outboxRepo *outbox.Repository) *Store {
	return &Store{pool: pool, outbox: outboxRepo}
}

func (s *Store) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, s.pool, Migrations())
}

// IsConflict reports an exclusion constraint violation, i.e. an overlapping
// confirmed appointment.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// notFound maps missing rows and malformed ids onto model.ErrNotFound.
func notFound(err error, what, id string) error {
	if IsNotFound(err) || isInvalidText(err) {
		return fmt.Errorf("%w: %s %s", model.ErrNotFound, what, id)
	}
	return err
}
