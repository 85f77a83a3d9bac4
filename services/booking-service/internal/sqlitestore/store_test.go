package sqlitestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seed(t *testing.T, st *Store, tz string) (model.Seller, model.User) {
	t.Helper()
	ctx := context.Background()
	owner := model.User{ID: uuid.NewString(), Name: "Sam Seller", Email: "sam@example.com"}
	buyer := model.User{ID: uuid.NewString(), Name: "Bea Buyer", Email: "bea@example.com"}
	require.NoError(t, st.UpsertUser(ctx, owner))
	require.NoError(t, st.UpsertUser(ctx, buyer))
	seller, err := st.UpsertSellerForUser(ctx, owner.ID, tz)
	require.NoError(t, err)
	return seller, buyer
}

func TestUpsertSellerKeepsTimezoneWhenBlank(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	seller, _ := seed(t, st, "Europe/Berlin")
	assert.Equal(t, "Europe/Berlin", seller.Timezone)
	assert.Equal(t, "Sam Seller", seller.Name)
	assert.True(t, seller.IsActive)

	again, err := st.UpsertSellerForUser(ctx, seller.UserID, "")
	require.NoError(t, err)
	assert.Equal(t, seller.ID, again.ID)
	assert.Equal(t, "Europe/Berlin", again.Timezone)

	_, err = st.UpsertSellerForUser(ctx, uuid.NewString(), "UTC")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReplaceWeeklyRules(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	seller, _ := seed(t, st, "UTC")

	rules, err := st.RulesForDay(ctx, seller.ID, time.Monday)
	require.NoError(t, err)
	assert.Empty(t, rules)

	require.NoError(t, st.ReplaceWeeklyRules(ctx, seller.ID, []model.WeeklyRule{
		{DayOfWeek: time.Monday, StartMinute: 13 * 60, EndMinute: 17 * 60, Enabled: true},
		{DayOfWeek: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60, Enabled: true},
		{DayOfWeek: time.Sunday, Enabled: false},
	}))

	rules, err = st.RulesForDay(ctx, seller.ID, time.Monday)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 9*60, rules[0].StartMinute)

	sunday, err := st.RulesForDay(ctx, seller.ID, time.Sunday)
	require.NoError(t, err)
	assert.Empty(t, sunday)

	all, err := st.WeeklyRules(ctx, seller.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, st.ReplaceWeeklyRules(ctx, seller.ID, []model.WeeklyRule{
		{DayOfWeek: time.Tuesday, StartMinute: 600, EndMinute: 660, Enabled: true},
	}))
	all, err = st.WeeklyRules(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, time.Tuesday, all[0].DayOfWeek)
}

func TestReplaceWeeklyRulesRejectsInvalidWithoutWriting(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	seller, _ := seed(t, st, "UTC")
	require.NoError(t, st.ReplaceWeeklyRules(ctx, seller.ID, []model.WeeklyRule{
		{DayOfWeek: time.Monday, StartMinute: 540, EndMinute: 600, Enabled: true},
	}))

	err := st.ReplaceWeeklyRules(ctx, seller.ID, []model.WeeklyRule{
		{DayOfWeek: time.Monday, StartMinute: 700, EndMinute: 600, Enabled: true},
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	all, err := st.WeeklyRules(ctx, seller.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRulesForUnknownSeller(t *testing.T) {
	st := openStore(t)
	_, err := st.RulesForDay(context.Background(), uuid.NewString(), time.Monday)
	assert.ErrorIs(t, err, model.ErrNotFound)
	err = st.ReplaceWeeklyRules(context.Background(), uuid.NewString(), nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateConfirmedRejectsOverlap(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	seller, buyer := seed(t, st, "UTC")
	start := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)

	first, err := st.CreateConfirmed(ctx, model.Appointment{
		SellerID: seller.ID, BuyerID: buyer.ID, StartTime: start, EndTime: start.Add(time.Hour), Timezone: "UTC",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.StatusConfirmed, first.Status)

	_, err = st.CreateConfirmed(ctx, model.Appointment{
		SellerID: seller.ID, BuyerID: buyer.ID, StartTime: start.Add(30 * time.Minute), EndTime: start.Add(90 * time.Minute), Timezone: "UTC",
	})
	assert.ErrorIs(t, err, model.ErrSlotUnavailable)

	// Touching intervals do not overlap.
	_, err = st.CreateConfirmed(ctx, model.Appointment{
		SellerID: seller.ID, BuyerID: buyer.ID, StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour), Timezone: "UTC",
	})
	require.NoError(t, err)

	_, err = st.CreateConfirmed(ctx, model.Appointment{
		SellerID: uuid.NewString(), BuyerID: buyer.ID, StartTime: start, EndTime: start.Add(time.Hour), Timezone: "UTC",
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCancelFreesInterval(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	seller, buyer := seed(t, st, "UTC")
	start := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)
	appt := model.Appointment{SellerID: seller.ID, BuyerID: buyer.ID, StartTime: start, EndTime: start.Add(time.Hour), Timezone: "UTC"}

	created, err := st.CreateConfirmed(ctx, appt)
	require.NoError(t, err)

	cancelled, err := st.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = st.Cancel(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyCancelled)

	stored, err := st.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)

	_, err = st.CreateConfirmed(ctx, appt)
	require.NoError(t, err, "a cancelled appointment must not block the slot")

	_, err = st.Cancel(ctx, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConfirmedForSellerOnLocalDate(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	seller, buyer := seed(t, st, "America/New_York")
	ny, err := timeofday.LoadLocation("America/New_York")
	require.NoError(t, err)

	late, err := st.CreateConfirmed(ctx, model.Appointment{
		SellerID: seller.ID, BuyerID: buyer.ID,
		StartTime: time.Date(2024, 1, 15, 23, 30, 0, 0, ny),
		EndTime:   time.Date(2024, 1, 16, 0, 30, 0, 0, ny),
		Timezone:  "America/New_York",
	})
	require.NoError(t, err)
	_, err = st.CreateConfirmed(ctx, model.Appointment{
		SellerID: seller.ID, BuyerID: buyer.ID,
		StartTime: time.Date(2024, 1, 16, 9, 0, 0, 0, ny),
		EndTime:   time.Date(2024, 1, 16, 10, 0, 0, 0, ny),
		Timezone:  "America/New_York",
	})
	require.NoError(t, err)

	jan15 := timeofday.Date{Year: 2024, Month: time.January, Day: 15}
	got, err := st.ConfirmedForSellerOnDate(ctx, seller.ID, jan15, ny)
	require.NoError(t, err)
	require.Len(t, got, 1, "the 23:30 local booking falls on Jan 16 in UTC but belongs to Jan 15")
	assert.Equal(t, late.ID, got[0].ID)

	jan16, err := st.ConfirmedForSellerOnDate(ctx, seller.ID, jan15.AddDays(1), ny)
	require.NoError(t, err)
	assert.Len(t, jan16, 2, "the spill-over past midnight also occupies Jan 16")
}

func TestCalendarRefsAndListForUser(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	seller, buyer := seed(t, st, "UTC")
	start := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)

	appt, err := st.CreateConfirmed(ctx, model.Appointment{
		SellerID: seller.ID, BuyerID: buyer.ID, StartTime: start, EndTime: start.Add(time.Hour), Timezone: "UTC", Notes: "intro",
	})
	require.NoError(t, err)
	require.NoError(t, st.SetCalendarRefs(ctx, appt.ID, model.CalendarRefs{SellerEventRef: "evt-1", MeetingLink: "https://meet.example/abc"}))

	got, err := st.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", got.SellerEventRef)
	assert.Empty(t, got.BuyerEventRef)
	assert.Equal(t, "intro", got.Notes)
	assert.True(t, got.StartTime.Equal(start))

	asBuyer, err := st.ListForUser(ctx, buyer.ID, 10)
	require.NoError(t, err)
	assert.Len(t, asBuyer, 1)
	asSeller, err := st.ListForUser(ctx, seller.UserID, 10)
	require.NoError(t, err)
	assert.Len(t, asSeller, 1)
	stranger, err := st.ListForUser(ctx, uuid.NewString(), 10)
	require.NoError(t, err)
	assert.Empty(t, stranger)

	assert.ErrorIs(t, st.SetCalendarRefs(ctx, uuid.NewString(), model.CalendarRefs{}), model.ErrNotFound)
}

func TestCredentialsKeepRefreshToken(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	_, buyer := seed(t, st, "UTC")

	_, err := st.GetCredentials(ctx, buyer.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	exp := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveCredentials(ctx, model.Credentials{UserID: buyer.ID, AccessToken: "a1", RefreshToken: "r1", Expiry: exp}))
	require.NoError(t, st.SaveCredentials(ctx, model.Credentials{UserID: buyer.ID, AccessToken: "a2", Expiry: exp.Add(time.Hour)}))

	c, err := st.GetCredentials(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "a2", c.AccessToken)
	assert.Equal(t, "r1", c.RefreshToken)
	assert.True(t, c.Expiry.Equal(exp.Add(time.Hour)))
}

func TestConcurrentCreateOnlyOneWins(t *testing.T) {
	st := openStore(t)
	seller, buyer := seed(t, st, "UTC")
	start := time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.CreateConfirmed(context.Background(), model.Appointment{
				SellerID: seller.ID, BuyerID: buyer.ID, StartTime: start, EndTime: start.Add(time.Hour), Timezone: "UTC",
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, model.ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, wins)
}
