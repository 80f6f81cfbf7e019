package dedupe

import (
	"time"

	"github.com/subwatch/subwatch/internal/common"
	"github.com/subwatch/subwatch/internal/model"
)

// recencyWindow is how long a record's creation date keeps earning a bonus.
const recencyWindow = 30 * 24 * time.Hour

// PreferredSubscription picks which record to keep when resolving a
// duplicate group. Completeness wins first, then user-entered data over
// auto-detected, then recency. Ties keep the first record encountered.
func PreferredSubscription(duplicates []model.Subscription) (*model.Subscription, error) {
	return preferredSubscriptionAt(duplicates, time.Now())
}

func preferredSubscriptionAt(duplicates []model.Subscription, now time.Time) (*model.Subscription, error) {
	if len(duplicates) == 0 {
		return nil, common.ErrEmptyList
	}

	best := 0
	bestScore := completenessScore(&duplicates[0], now)
	for i := 1; i < len(duplicates); i++ {
		score := completenessScore(&duplicates[i], now)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	return &duplicates[best], nil
}

// completenessScore rates how much useful data a record carries.
func completenessScore(sub *model.Subscription, now time.Time) float64 {
	var score float64

	if sub.Name != "" {
		score++
	}
	if sub.Amount > 0 {
		score++
	}
	if sub.BillingCycle.IsValid() {
		score++
	}
	if !sub.StartDate.IsZero() {
		score++
	}
	if !sub.NextBillingDate.IsZero() {
		score++
	}
	if sub.CategoryID != nil && *sub.CategoryID != "" {
		score++
	}
	if sub.Notes != "" {
		score += 0.5
	}

	// User-entered data is more trustworthy than SMS-inferred data.
	if !sub.AutoDetected {
		score += 2
	}

	score += recencyBonus(sub.CreatedAt, now)

	return score
}

// recencyBonus decays linearly from 1 to 0 over the recency window.
func recencyBonus(createdAt, now time.Time) float64 {
	if createdAt.IsZero() || createdAt.After(now) {
		return 0
	}
	age := now.Sub(createdAt)
	if age >= recencyWindow {
		return 0
	}
	return 1 - float64(age)/float64(recencyWindow)
}
