package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecurrencePattern_NextAfter(t *testing.T) {
	anchor := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pattern RecurrencePattern
		want    time.Time
	}{
		{
			name:    "daily",
			pattern: RecurrencePattern{Frequency: FreqDaily, Interval: 1},
			want:    time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "every third day",
			pattern: RecurrencePattern{Frequency: FreqDaily, Interval: 3},
			want:    time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "weekly",
			pattern: RecurrencePattern{Frequency: FreqWeekly, Interval: 2},
			want:    time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "monthly from jan 31 normalizes",
			pattern: RecurrencePattern{Frequency: FreqMonthly, Interval: 1},
			want:    time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "yearly",
			pattern: RecurrencePattern{Frequency: FreqYearly, Interval: 1},
			want:    time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "zero interval treated as one",
			pattern: RecurrencePattern{Frequency: FreqDaily, Interval: 0},
			want:    time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pattern.NextAfter(anchor))
		})
	}
}

func TestRecurrencePattern_Exhausted(t *testing.T) {
	next := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	maxThree := 3
	endJune := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	unbounded := RecurrencePattern{Frequency: FreqDaily, Interval: 1}
	assert.False(t, unbounded.Exhausted(100, next))

	capped := RecurrencePattern{Frequency: FreqDaily, Interval: 1, MaxOccurrences: &maxThree}
	assert.False(t, capped.Exhausted(2, next))
	assert.True(t, capped.Exhausted(3, next))

	dated := RecurrencePattern{Frequency: FreqDaily, Interval: 1, EndDate: &endJune}
	assert.True(t, dated.Exhausted(1, next))
	assert.False(t, dated.Exhausted(1, endJune))
}

func TestBillingCycle_MonthlyAmount(t *testing.T) {
	assert.InDelta(t, 43.3, CycleWeekly.MonthlyAmount(10), 0.001)
	assert.InDelta(t, 10, CycleMonthly.MonthlyAmount(10), 0.001)
	assert.InDelta(t, 10, CycleQuarterly.MonthlyAmount(30), 0.001)
	assert.InDelta(t, 10, CycleBiannually.MonthlyAmount(60), 0.001)
	assert.InDelta(t, 9.99, CycleYearly.MonthlyAmount(119.88), 0.001)
}

func TestScheduledNotification_IsTerminal(t *testing.T) {
	n := ScheduledNotification{Status: StatusPending}
	assert.False(t, n.IsTerminal())
	n.Status = StatusProcessing
	assert.False(t, n.IsTerminal())
	for _, status := range []NotificationStatus{StatusSent, StatusFailed, StatusCancelled} {
		n.Status = status
		assert.True(t, n.IsTerminal())
	}
}
