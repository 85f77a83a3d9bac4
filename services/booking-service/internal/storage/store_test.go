package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/sellerbook/libs/db"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	conflict := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"})
	assert.True(t, IsConflict(conflict))
	assert.False(t, IsConflict(errors.New("other")))

	assert.ErrorIs(t, notFound(pgx.ErrNoRows, "seller", "x"), model.ErrNotFound)
	assert.ErrorIs(t, notFound(&pgconn.PgError{Code: "22P02"}, "seller", "not-a-uuid"), model.ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, notFound(other, "seller", "x"))
}

func TestMigrationsEmbedded(t *testing.T) {
	body, err := fs.ReadFile(Migrations(), "0001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "appointments_no_overlap")
}

// The tests below need a disposable Postgres with btree_gist available.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, url, db.PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	st := NewStore(pool, outbox.NewRepository(pool))
	require.NoError(t, st.Migrate(ctx))
	return st
}

func seedSeller(t *testing.T, st *Store, tz string) (model.Seller, model.User) {
	t.Helper()
	ctx := context.Background()
	seller := model.User{ID: uuid.NewString(), Name: "Seller", Email: uuid.NewString() + "@example.com"}
	buyer := model.User{ID: uuid.NewString(), Name: "Buyer", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, st.UpsertUser(ctx, seller))
	require.NoError(t, st.UpsertUser(ctx, buyer))
	s, err := st.UpsertSellerForUser(ctx, seller.ID, tz)
	require.NoError(t, err)
	return s, buyer
}

func TestPostgresConcurrentBookingsYieldOneConfirmed(t *testing.T) {
	st := openTestStore(t)
	seller, buyer := seedSeller(t, st, "UTC")
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.CreateConfirmed(context.Background(), model.Appointment{
				SellerID: seller.ID, BuyerID: buyer.ID,
				StartTime: start.Add(time.Duration(i%2) * 30 * time.Minute),
				EndTime:   start.Add(time.Hour + time.Duration(i%2)*30*time.Minute),
				Timezone:  "UTC",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, model.ErrSlotUnavailable)
	}
	assert.Equal(t, 1, ok)
}

func TestPostgresCancelAndDayQuery(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	seller, buyer := seedSeller(t, st, "America/New_York")
	ny, err := timeofday.LoadLocation("America/New_York")
	require.NoError(t, err)

	appt, err := st.CreateConfirmed(ctx, model.Appointment{
		SellerID: seller.ID, BuyerID: buyer.ID,
		StartTime: time.Date(2030, 1, 15, 23, 30, 0, 0, ny),
		EndTime:   time.Date(2030, 1, 16, 0, 30, 0, 0, ny),
		Timezone:  "America/New_York",
	})
	require.NoError(t, err)

	day := timeofday.Date{Year: 2030, Month: time.January, Day: 15}
	got, err := st.ConfirmedForSellerOnDate(ctx, seller.ID, day, ny)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, appt.ID, got[0].ID)

	_, err = st.Cancel(ctx, appt.ID)
	require.NoError(t, err)
	_, err = st.Cancel(ctx, appt.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyCancelled)

	got, err = st.ConfirmedForSellerOnDate(ctx, seller.ID, day, ny)
	require.NoError(t, err)
	assert.Empty(t, got)
}
