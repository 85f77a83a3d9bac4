package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestUpdateWeeklyScheduleCreatesProfile(t *testing.T) {
	f := newFixture(t, "UTC", time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()
	newcomer := model.User{ID: uuid.NewString(), Name: "Nia", Email: "nia@example.com"}
	require.NoError(t, f.st.UpsertUser(ctx, newcomer))

	_, err := f.c.WeeklySchedule(ctx, newcomer.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	sched, err := f.c.UpdateWeeklySchedule(ctx, newcomer.ID, ScheduleUpdate{
		Timezone: "Asia/Tokyo",
		Title:    ptr("Japanese lessons"),
		Days: []DaySchedule{
			{DayOfWeek: 1, Available: true, Blocks: []TimeBlock{{Start: "09:00", End: "12:00"}, {Start: "13:00", End: "24:00"}}},
			{DayOfWeek: 0, Available: false},
			{DayOfWeek: 3, Available: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", sched.Timezone)
	assert.Equal(t, "Japanese lessons", sched.Title)
	require.Len(t, sched.Days, 7)
	assert.True(t, sched.Days[1].Available)
	assert.Equal(t, []TimeBlock{{Start: "09:00", End: "12:00"}, {Start: "13:00", End: "24:00"}}, sched.Days[1].Blocks)
	assert.False(t, sched.Days[0].Available)
	assert.False(t, sched.Days[3].Available, "an available day without blocks has no availability")

	rules, err := f.st.WeeklyRules(ctx, sched.SellerID)
	require.NoError(t, err)
	assert.Len(t, rules, 4, "two blocks plus two disabled placeholders")

	again, err := f.c.UpdateWeeklySchedule(ctx, newcomer.ID, ScheduleUpdate{
		Days: []DaySchedule{{DayOfWeek: 2, Available: true, Blocks: []TimeBlock{{Start: "10:00", End: "11:00"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, sched.SellerID, again.SellerID)
	assert.Equal(t, "Asia/Tokyo", again.Timezone, "blank timezone keeps the stored one")
	assert.Equal(t, "Japanese lessons", again.Title)
	assert.False(t, again.Days[1].Available)
	assert.True(t, again.Days[2].Available)
}

func TestUpdateWeeklyScheduleValidation(t *testing.T) {
	f := newFixture(t, "UTC", time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()
	f.openMonday(t, 9*60, 17*60)

	bad := []ScheduleUpdate{
		{Timezone: "Mars/Olympus"},
		{Days: []DaySchedule{{DayOfWeek: 7, Available: true, Blocks: []TimeBlock{{Start: "09:00", End: "10:00"}}}}},
		{Days: []DaySchedule{{DayOfWeek: 1, Available: true, Blocks: []TimeBlock{{Start: "12:00", End: "09:00"}}}}},
		{Days: []DaySchedule{{DayOfWeek: 1, Available: true, Blocks: []TimeBlock{{Start: "9", End: "10:00"}}}}},
		{Days: []DaySchedule{{DayOfWeek: 1}, {DayOfWeek: 1}}},
	}
	for _, upd := range bad {
		_, err := f.c.UpdateWeeklySchedule(ctx, f.seller.UserID, upd)
		assert.ErrorIs(t, err, model.ErrValidation, "%+v", upd)
	}

	sched, err := f.c.WeeklySchedule(ctx, f.seller.UserID)
	require.NoError(t, err)
	assert.True(t, sched.Days[1].Available, "rejected updates leave the schedule untouched")
}

func TestSellersDirectory(t *testing.T) {
	f := newFixture(t, "UTC", time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()
	f.openMonday(t, 9*60, 17*60)

	list, err := f.c.Sellers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.seller.ID, list[0].Seller.ID)
	assert.Equal(t, "Sam Seller", list[0].Seller.Name)
	require.Len(t, list[0].Availability, 7)
	assert.True(t, list[0].Availability[1].Available)
	assert.False(t, list[0].Availability[2].Available)

	one, err := f.c.Seller(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tax advice", one.Seller.Title)

	_, err = f.c.Seller(ctx, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrNotFound)
}
