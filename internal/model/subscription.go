package model

import "time"

// BillingCycle describes how often a subscription renews.
type BillingCycle string

const (
	// CycleWeekly renews every week.
	CycleWeekly BillingCycle = "weekly"
	// CycleMonthly renews every month.
	CycleMonthly BillingCycle = "monthly"
	// CycleQuarterly renews every three months.
	CycleQuarterly BillingCycle = "quarterly"
	// CycleBiannually renews every six months.
	CycleBiannually BillingCycle = "biannually"
	// CycleYearly renews every year.
	CycleYearly BillingCycle = "yearly"
)

// ValidBillingCycles lists every accepted billing cycle value.
var ValidBillingCycles = []BillingCycle{
	CycleWeekly,
	CycleMonthly,
	CycleQuarterly,
	CycleBiannually,
	CycleYearly,
}

// IsValid reports whether the cycle is one of the known values.
func (c BillingCycle) IsValid() bool {
	for _, valid := range ValidBillingCycles {
		if c == valid {
			return true
		}
	}
	return false
}

// MonthlyAmount converts a per-cycle price to its monthly equivalent.
// A weekly charge recurs ~4.33 times per month; longer cycles are divided
// down by the number of months they cover.
func (c BillingCycle) MonthlyAmount(amount float64) float64 {
	switch c {
	case CycleWeekly:
		return amount * 4.33
	case CycleMonthly:
		return amount
	case CycleQuarterly:
		return amount / 3
	case CycleBiannually:
		return amount / 6
	case CycleYearly:
		return amount / 12
	default:
		return amount
	}
}

// Subscription represents a single tracked subscription.
type Subscription struct {
	StartDate       time.Time
	NextBillingDate time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CategoryID      *string
	ID              string
	UserID          string
	Name            string
	Notes           string
	BillingCycle    BillingCycle
	Amount          float64
	AutoDetected    bool
}

// MonthlyAmount returns the subscription price normalized to a monthly cost.
func (s *Subscription) MonthlyAmount() float64 {
	return s.BillingCycle.MonthlyAmount(s.Amount)
}
