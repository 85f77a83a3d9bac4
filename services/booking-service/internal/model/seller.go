package model

import (
	"fmt"
	"time"
)

type User struct {
	ID    string
	Name  string
	Email string
}

// Seller is a user's bookable profile. Name and Email come from the owning user.
type Seller struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Timezone    string
	IsActive    bool
	Name        string
	Email       string
	CreatedAt   time.Time
}

// WeeklyRule is one open block on a weekday, in minutes since local midnight.
// A disabled rule with zero bounds marks a day the seller switched off.
type WeeklyRule struct {
	ID          string
	SellerID    string
	DayOfWeek   time.Weekday
	StartMinute int
	EndMinute   int
	Enabled     bool
}

// Credentials are a user's stored OAuth tokens for the calendar provider.
type Credentials struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Validate checks the rule shape: weekday in range and, when enabled, a
// non-empty block within one day.
func (r WeeklyRule) Validate() error {
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day_of_week %d out of range", ErrValidation, r.DayOfWeek)
	}
	if !r.Enabled {
		return nil
	}
	if r.StartMinute < 0 || r.EndMinute > 24*60 {
		return fmt.Errorf("%w: block bounds must lie within the day", ErrValidation)
	}
	if r.EndMinute <= r.StartMinute {
		return fmt.Errorf("%w: block end must be after start", ErrValidation)
	}
	return nil
}
