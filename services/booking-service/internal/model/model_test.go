package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeeklyRuleValidate(t *testing.T) {
	assert.NoError(t, WeeklyRule{DayOfWeek: time.Monday, StartMinute: 540, EndMinute: 1020, Enabled: true}.Validate())
	assert.NoError(t, WeeklyRule{DayOfWeek: time.Sunday, Enabled: false}.Validate())
	assert.NoError(t, WeeklyRule{DayOfWeek: time.Friday, StartMinute: 1200, EndMinute: 1440, Enabled: true}.Validate())

	for _, r := range []WeeklyRule{
		{DayOfWeek: 7, StartMinute: 540, EndMinute: 600, Enabled: true},
		{DayOfWeek: -1, Enabled: false},
		{DayOfWeek: time.Monday, StartMinute: 600, EndMinute: 600, Enabled: true},
		{DayOfWeek: time.Monday, StartMinute: 700, EndMinute: 600, Enabled: true},
		{DayOfWeek: time.Monday, StartMinute: 1380, EndMinute: 1500, Enabled: true},
	} {
		assert.ErrorIs(t, r.Validate(), ErrValidation, "%+v", r)
	}
}

func TestCalendarRefsEmpty(t *testing.T) {
	assert.True(t, CalendarRefs{}.Empty())
	assert.False(t, CalendarRefs{MeetingLink: "https://meet.example/x"}.Empty())
}
