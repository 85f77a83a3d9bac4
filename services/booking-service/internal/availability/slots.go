// Package availability turns a seller's weekly blocks and existing bookings
// into the bookable slots of one local calendar day.
package availability

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
)

// Block is a half-open [Start, End) range in minutes relative to local
// midnight of the target date. Booked blocks may lie outside 0..1440.
type Block struct {
	Start int
	End   int
}

func (b Block) overlaps(o Block) bool {
	// [a,b) and [c,d) overlap iff a < d && c < b.
	return b.Start < o.End && o.Start < b.End
}

// Slot is a bookable interval rendered as local "HH:MM".
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Request struct {
	Blocks   []Block
	Booked   []Block
	Duration int
	Interval int
	Now      time.Time
	Date     timeofday.Date
	Location *time.Location
}

// Resolve lists the free slots of req.Date. Candidates start at every Interval
// from each block's start while the whole Duration fits in the block. A
// candidate is dropped if it overlaps a booked block or starts before Now.
// Output follows generation order; overlapping blocks can repeat a slot.
func Resolve(req Request) ([]Slot, error) {
	if req.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive (got %d)", model.ErrValidation, req.Duration)
	}
	if req.Interval <= 0 {
		return nil, fmt.Errorf("%w: slot interval must be positive (got %d)", model.ErrValidation, req.Interval)
	}

	slots := []Slot{}
	for _, blk := range req.Blocks {
		for start := blk.Start; start+req.Duration <= blk.End; start += req.Interval {
			cand := Block{Start: start, End: start + req.Duration}
			if overlapsAny(cand, req.Booked) {
				continue
			}
			if req.Date.At(req.Location, start).Before(req.Now) {
				continue
			}
			slots = append(slots, Slot{
				Start: timeofday.Format(cand.Start),
				End:   timeofday.Format(cand.End),
			})
		}
	}
	return slots, nil
}

func overlapsAny(c Block, booked []Block) bool {
	for _, b := range booked {
		if c.overlaps(b) {
			return true
		}
	}
	return false
}

// Contains reports whether a slot starting at start (minutes) is in slots.
func Contains(slots []Slot, start int) bool {
	want := timeofday.Format(start)
	for _, s := range slots {
		if s.Start == want {
			return true
		}
	}
	return false
}

// Interval is an absolute [Start, End) range, such as a confirmed appointment.
type Interval struct {
	Start time.Time
	End   time.Time
}

// BookedFromInstants maps absolute intervals onto minute offsets of date in
// loc. An appointment from 23:30 to 00:30 local maps to 1410..1470, so it
// still blocks the last slots of date.
func BookedFromInstants(date timeofday.Date, loc *time.Location, intervals []Interval) []Block {
	out := make([]Block, 0, len(intervals))
	for _, iv := range intervals {
		end := date.MinuteOffset(loc, iv.End)
		if !iv.End.Truncate(time.Minute).Equal(iv.End) {
			end++
		}
		out = append(out, Block{Start: date.MinuteOffset(loc, iv.Start), End: end})
	}
	return out
}

// BlocksFromRules keeps the enabled rules of one weekday.
func BlocksFromRules(rules []model.WeeklyRule) []Block {
	var out []Block
	for _, r := range rules {
		if !r.Enabled || r.EndMinute <= r.StartMinute {
			continue
		}
		out = append(out, Block{Start: r.StartMinute, End: r.EndMinute})
	}
	return out
}
