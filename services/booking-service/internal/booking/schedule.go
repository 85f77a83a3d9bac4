package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/timeofday"
)

func weekday(d int) time.Weekday { return time.Weekday(d) }

// summarizeWeek renders rules as seven days, Sunday first. Disabled
// placeholders and empty days both come out as unavailable.
func summarizeWeek(rules []model.WeeklyRule) []DaySchedule {
	days := make([]DaySchedule, 7)
	for i := range days {
		days[i] = DaySchedule{DayOfWeek: i, Blocks: []TimeBlock{}}
	}
	for _, r := range rules {
		if !r.Enabled || r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
			continue
		}
		d := &days[r.DayOfWeek]
		d.Available = true
		d.Blocks = append(d.Blocks, TimeBlock{
			Start: timeofday.Format(r.StartMinute),
			End:   timeofday.Format(r.EndMinute),
		})
	}
	return days
}

// WeeklySchedule returns the schedule of the seller profile owned by userID.
func (c *Coordinator) WeeklySchedule(ctx context.Context, userID string) (Schedule, error) {
	ctx, span := tracer.Start(ctx, "booking.WeeklySchedule")
	defer span.End()

	seller, err := c.store.GetSellerByUserID(ctx, userID)
	if err != nil {
		return Schedule{}, recordErr(span, err)
	}
	rules, err := c.store.WeeklyRules(ctx, seller.ID)
	if err != nil {
		return Schedule{}, recordErr(span, err)
	}
	return Schedule{
		SellerID:    seller.ID,
		Timezone:    seller.Timezone,
		Title:       seller.Title,
		Description: seller.Description,
		Days:        summarizeWeek(rules),
	}, nil
}

// UpdateWeeklySchedule replaces the user's weekly rules, creating the seller
// profile on first use. Input is fully validated before anything is written.
func (c *Coordinator) UpdateWeeklySchedule(ctx context.Context, userID string, upd ScheduleUpdate) (Schedule, error) {
	ctx, span := tracer.Start(ctx, "booking.UpdateWeeklySchedule")
	defer span.End()

	if upd.Timezone != "" {
		if _, err := timeofday.LoadLocation(upd.Timezone); err != nil {
			return Schedule{}, recordErr(span, err)
		}
	}
	rules, err := upd.rules()
	if err != nil {
		return Schedule{}, recordErr(span, err)
	}

	seller, err := c.store.UpsertSellerForUser(ctx, userID, upd.Timezone)
	if err != nil {
		return Schedule{}, recordErr(span, err)
	}
	if upd.Title != nil || upd.Description != nil {
		title, desc := seller.Title, seller.Description
		if upd.Title != nil {
			title = *upd.Title
		}
		if upd.Description != nil {
			desc = *upd.Description
		}
		if err := c.store.SetSellerProfile(ctx, seller.ID, title, desc); err != nil {
			return Schedule{}, recordErr(span, err)
		}
	}
	if err := c.store.ReplaceWeeklyRules(ctx, seller.ID, rules); err != nil {
		return Schedule{}, recordErr(span, err)
	}
	c.logger.Info("weekly schedule replaced", "seller_id", seller.ID, "rules", len(rules))
	return c.WeeklySchedule(ctx, userID)
}

// Sellers lists active sellers with their weekly availability.
func (c *Coordinator) Sellers(ctx context.Context) ([]SellerSummary, error) {
	ctx, span := tracer.Start(ctx, "booking.Sellers")
	defer span.End()

	sellers, err := c.store.ListActiveSellers(ctx)
	if err != nil {
		return nil, recordErr(span, err)
	}
	out := make([]SellerSummary, 0, len(sellers))
	for _, s := range sellers {
		rules, err := c.store.WeeklyRules(ctx, s.ID)
		if err != nil {
			return nil, recordErr(span, err)
		}
		out = append(out, SellerSummary{Seller: s, Availability: summarizeWeek(rules)})
	}
	return out, nil
}

// Seller returns one seller's public profile.
func (c *Coordinator) Seller(ctx context.Context, sellerID string) (SellerSummary, error) {
	ctx, span := tracer.Start(ctx, "booking.Seller")
	defer span.End()

	s, err := c.store.GetSeller(ctx, sellerID)
	if err != nil {
		return SellerSummary{}, recordErr(span, err)
	}
	rules, err := c.store.WeeklyRules(ctx, s.ID)
	if err != nil {
		return SellerSummary{}, recordErr(span, err)
	}
	return SellerSummary{Seller: s, Availability: summarizeWeek(rules)}, nil
}
