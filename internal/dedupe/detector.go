// Package dedupe scores candidate subscriptions against existing records to
// catch duplicate entries before they are saved, whether the candidate came
// from user input or SMS auto-detection.
package dedupe

import (
	"math"
	"sort"
	"time"

	"github.com/subwatch/subwatch/internal/model"
	"github.com/subwatch/subwatch/internal/similarity"
)

// MatchReason explains what drove a duplicate verdict.
type MatchReason string

const (
	// ReasonServiceName means the names alone matched.
	ReasonServiceName MatchReason = "service_name_match"
	// ReasonAmountTime means amount and/or creation-time proximity matched
	// without a name match.
	ReasonAmountTime MatchReason = "amount_time_match"
	// ReasonFingerprint means an exact content hash matched.
	ReasonFingerprint MatchReason = "fingerprint_match"
	// ReasonMultipleFactors means more than one signal contributed.
	ReasonMultipleFactors MatchReason = "multiple_factors"
)

// Confidence weights and the qualification bar. A name match dominates;
// amount and date proximity can only push a borderline name over the bar
// or, together, qualify on their own.
const (
	nameWeight    = 60.0
	amountWeight  = 30.0
	dateWeight    = 10.0
	qualifyingBar = 60.0
)

// Config holds the tunable thresholds for duplicate detection.
type Config struct {
	// NameThreshold is the minimum similarity ratio for names to count.
	NameThreshold float64
	// AmountThresholdPct is the maximum percentage difference for amounts
	// to count as matching.
	AmountThresholdPct float64
	// DateWindowDays is how close two creation dates must be to count.
	DateWindowDays int
	// NormalizeAmounts converts both amounts to a monthly equivalent
	// before comparing, so $9.99/month matches $119.88/year.
	NormalizeAmounts bool
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		NameThreshold:      0.8,
		AmountThresholdPct: 5,
		DateWindowDays:     7,
		NormalizeAmounts:   true,
	}
}

// Match pairs an existing subscription with the confidence it is a duplicate
// of the candidate.
type Match struct {
	Subscription model.Subscription
	Confidence   float64
	Reason       MatchReason
}

// Result is the outcome of a duplicate check. It is computed on demand and
// never persisted.
type Result struct {
	Matches     []Match
	Reason      MatchReason
	Confidence  float64
	IsDuplicate bool
}

// Detector evaluates candidates against existing records.
type Detector struct {
	config Config
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(config Config) *Detector {
	return &Detector{config: config}
}

// DetectDuplicates scores the candidate against every existing subscription
// and returns all records that qualify as likely duplicates, ordered from
// highest to lowest confidence. An empty existing list yields a clean
// non-duplicate result.
func (d *Detector) DetectDuplicates(candidate model.Subscription, existing []model.Subscription) Result {
	var result Result

	candidateName := similarity.NormalizeServiceName(candidate.Name)

	for _, sub := range existing {
		if sub.ID != "" && sub.ID == candidate.ID {
			continue
		}

		confidence, reason := d.score(candidate, candidateName, sub)
		if confidence < qualifyingBar {
			continue
		}

		result.Matches = append(result.Matches, Match{
			Subscription: sub,
			Confidence:   confidence,
			Reason:       reason,
		})

		if confidence > result.Confidence {
			result.Confidence = confidence
			result.Reason = reason
		}
	}

	sortMatches(result.Matches)
	result.IsDuplicate = len(result.Matches) > 0

	return result
}

// score computes the weighted confidence for one existing record and the
// reason describing which signals fired.
func (d *Detector) score(candidate model.Subscription, candidateName string, sub model.Subscription) (float64, MatchReason) {
	var confidence float64
	var nameMatched, amountMatched, dateMatched bool

	existingName := similarity.NormalizeServiceName(sub.Name)
	nameSim := similarity.Ratio(candidateName, existingName)
	if nameSim >= d.config.NameThreshold {
		confidence += nameWeight * nameSim
		nameMatched = true
	}

	amountSim := d.amountSimilarity(candidate, sub)
	if amountSim >= 100-d.config.AmountThresholdPct {
		confidence += amountWeight * (amountSim / 100)
		amountMatched = true
	}

	if withinDayWindow(candidate.CreatedAt, sub.CreatedAt, d.config.DateWindowDays) {
		confidence += dateWeight
		dateMatched = true
	}

	reason := matchReason(nameMatched, amountMatched, dateMatched)
	return confidence, reason
}

// amountSimilarity returns a percentage similarity between the two amounts,
// optionally normalized to monthly equivalents. Two zero amounts are a
// perfect match; one zero amount is no match at all.
func (d *Detector) amountSimilarity(a, b model.Subscription) float64 {
	amountA := a.Amount
	amountB := b.Amount
	if d.config.NormalizeAmounts {
		amountA = a.MonthlyAmount()
		amountB = b.MonthlyAmount()
	}

	if amountA == 0 && amountB == 0 {
		return 100
	}
	if amountA == 0 || amountB == 0 {
		return 0
	}

	maxAmount := math.Max(amountA, amountB)
	diff := math.Abs(amountA - amountB)
	return 100 - (diff/maxAmount)*100
}

func matchReason(name, amount, date bool) MatchReason {
	switch {
	case name && (amount || date):
		return ReasonMultipleFactors
	case name:
		return ReasonServiceName
	case amount && date:
		return ReasonMultipleFactors
	default:
		return ReasonAmountTime
	}
}

// withinDayWindow reports whether two timestamps fall within windowDays of
// each other.
func withinDayWindow(a, b time.Time, windowDays int) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(windowDays)*24*time.Hour
}

// sortMatches orders matches from highest to lowest confidence, keeping the
// original order for equal scores.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
}
