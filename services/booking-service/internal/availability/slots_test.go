package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = timeofday.Date{Year: 2026, Month: time.January, Day: 26}

func starts(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start)
	}
	return out
}

func nineToFive() []Block {
	return []Block{{Start: 9 * 60, End: 17 * 60}}
}

func TestResolve_FullDay(t *testing.T) {
	slots, err := Resolve(Request{
		Blocks:   nineToFive(),
		Duration: 60,
		Interval: 30,
		Now:      monday.At(time.UTC, 8*60),
		Date:     monday,
		Location: time.UTC,
	})
	require.NoError(t, err)
	require.Len(t, slots, 15)
	assert.Equal(t, Slot{Start: "09:00", End: "10:00"}, slots[0])
	assert.Equal(t, Slot{Start: "16:00", End: "17:00"}, slots[14])
}

func TestResolve_BookingExcludesOverlaps(t *testing.T) {
	slots, err := Resolve(Request{
		Blocks:   nineToFive(),
		Booked:   []Block{{Start: 10 * 60, End: 11 * 60}},
		Duration: 60,
		Interval: 30,
		Now:      monday.At(time.UTC, 8*60),
		Date:     monday,
		Location: time.UTC,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"09:00", "11:00", "11:30", "12:00", "12:30", "13:00", "13:30",
		"14:00", "14:30", "15:00", "15:30", "16:00",
	}, starts(slots))
}

func TestResolve_SkipsPast(t *testing.T) {
	req := Request{
		Blocks:   nineToFive(),
		Duration: 60,
		Interval: 30,
		Now:      monday.At(time.UTC, 9*60+45),
		Date:     monday,
		Location: time.UTC,
	}
	slots, err := Resolve(req)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, "10:00", slots[0].Start)
	assert.Len(t, slots, 13)

	req.Booked = []Block{{Start: 10 * 60, End: 11 * 60}}
	slots, err = Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "11:00", slots[0].Start)
}

func TestResolve_StartExactlyNowIsOffered(t *testing.T) {
	slots, err := Resolve(Request{
		Blocks:   nineToFive(),
		Duration: 60,
		Interval: 30,
		Now:      monday.At(time.UTC, 10*60),
		Date:     monday,
		Location: time.UTC,
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00", slots[0].Start)
}

func TestResolve_SellerZoneMidnightCrossing(t *testing.T) {
	ny, err := timeofday.LoadLocation("America/New_York")
	require.NoError(t, err)
	date := timeofday.Date{Year: 2024, Month: time.January, Day: 15}

	appt := Interval{
		Start: time.Date(2024, 1, 15, 23, 30, 0, 0, ny),
		End:   time.Date(2024, 1, 16, 0, 30, 0, 0, ny),
	}
	booked := BookedFromInstants(date, ny, []Interval{appt})
	require.Equal(t, []Block{{Start: 1410, End: 1470}}, booked)

	slots, err := Resolve(Request{
		Blocks:   []Block{{Start: 21 * 60, End: timeofday.MinutesPerDay}},
		Booked:   booked,
		Duration: 60,
		Interval: 30,
		Now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Date:     date,
		Location: ny,
	})
	require.NoError(t, err)
	// 22:30-23:30 touches the booking only at its start, so it survives.
	assert.Equal(t, []string{"21:00", "21:30", "22:00", "22:30"}, starts(slots))
}

func TestResolve_EmptyInputs(t *testing.T) {
	slots, err := Resolve(Request{Duration: 60, Interval: 30, Date: monday})
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)

	slots, err = Resolve(Request{
		Blocks:   nineToFive(),
		Duration: 60,
		Interval: 30,
		Now:      monday.AddDays(1).Midnight(time.UTC),
		Date:     monday,
	})
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = Resolve(Request{
		Blocks:   []Block{{Start: 9 * 60, End: 9*60 + 45}},
		Duration: 60,
		Interval: 30,
		Date:     monday,
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolve_RejectsNonPositiveParameters(t *testing.T) {
	for _, req := range []Request{
		{Blocks: nineToFive(), Duration: 0, Interval: 30},
		{Blocks: nineToFive(), Duration: 60, Interval: 0},
		{Blocks: nineToFive(), Duration: -5, Interval: 30},
	} {
		_, err := Resolve(req)
		assert.ErrorIs(t, err, model.ErrValidation)
	}
}

func TestResolve_OverlappingBlocksPassDuplicatesThrough(t *testing.T) {
	slots, err := Resolve(Request{
		Blocks:   []Block{{Start: 540, End: 660}, {Start: 600, End: 720}},
		Duration: 60,
		Interval: 60,
		Date:     monday,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "10:00", "11:00"}, starts(slots))
}

func TestResolve_Properties(t *testing.T) {
	blocks := []Block{{Start: 8*60 + 15, End: 12 * 60}, {Start: 13 * 60, End: 18*60 + 10}}
	booked := []Block{{Start: 9 * 60, End: 10 * 60}, {Start: 14*60 + 20, End: 15 * 60}}
	now := monday.At(time.UTC, 8*60+40)

	for _, duration := range []int{15, 30, 45, 60, 90} {
		for _, interval := range []int{5, 15, 30, 60} {
			req := Request{Blocks: blocks, Booked: booked, Duration: duration, Interval: interval, Now: now, Date: monday, Location: time.UTC}
			first, err := Resolve(req)
			require.NoError(t, err)
			second, err := Resolve(req)
			require.NoError(t, err)
			assert.Equal(t, first, second, "resolver must be deterministic")

			prev := -1
			for _, s := range first {
				start, err := timeofday.Parse(s.Start)
				require.NoError(t, err)
				cand := Block{Start: start, End: start + duration}

				inBlock := false
				for _, b := range blocks {
					if b.Start <= cand.Start && cand.End <= b.End {
						inBlock = true
					}
				}
				assert.True(t, inBlock, "slot %s outside availability", s.Start)
				assert.False(t, overlapsAny(cand, booked), "slot %s overlaps a booking", s.Start)
				assert.False(t, monday.At(time.UTC, start).Before(now), "slot %s in the past", s.Start)
				assert.Greater(t, start, prev)
				prev = start
			}
		}
	}
}

func TestBlocksFromRulesDropsDisabled(t *testing.T) {
	blocks := BlocksFromRules([]model.WeeklyRule{
		{DayOfWeek: time.Monday, StartMinute: 540, EndMinute: 720, Enabled: true},
		{DayOfWeek: time.Monday, Enabled: false},
		{DayOfWeek: time.Monday, StartMinute: 800, EndMinute: 800, Enabled: true},
	})
	assert.Equal(t, []Block{{Start: 540, End: 720}}, blocks)
}

func TestContains(t *testing.T) {
	slots := []Slot{{Start: "09:00", End: "10:00"}}
	assert.True(t, Contains(slots, 540))
	assert.False(t, Contains(slots, 570))
}

func TestBookedFromInstantsRoundsPartialMinutesOut(t *testing.T) {
	booked := BookedFromInstants(monday, time.UTC, []Interval{{
		Start: monday.At(time.UTC, 600).Add(20 * time.Second),
		End:   monday.At(time.UTC, 659).Add(10 * time.Second),
	}})
	assert.Equal(t, []Block{{Start: 600, End: 660}}, booked)
}
