package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// FingerprintKey is the extracted-data key under which a message's content
// fingerprint is stored.
const FingerprintKey = "fingerprint"

// SubscriptionMessage is an SMS-derived message that may describe a
// subscription charge. Messages are kept even after a subscription is
// created from them so repeat texts can be recognized.
type SubscriptionMessage struct {
	DetectedAt     time.Time
	ExtractedData  map[string]string
	SubscriptionID *string
	ID             string
	UserID         string
	Sender         string
	Body           string
	Confidence     float64
}

// GenerateFingerprint creates a content hash for exact-duplicate detection.
func (m *SubscriptionMessage) GenerateFingerprint() string {
	return FingerprintOf(fmt.Sprintf("%s:%s", m.Sender, m.Body))
}

// Fingerprint returns the stored fingerprint, computing and caching one if
// the extracted-data bag does not carry it yet.
func (m *SubscriptionMessage) Fingerprint() string {
	if fp, ok := m.ExtractedData[FingerprintKey]; ok && fp != "" {
		return fp
	}
	fp := m.GenerateFingerprint()
	if m.ExtractedData == nil {
		m.ExtractedData = make(map[string]string)
	}
	m.ExtractedData[FingerprintKey] = fp
	return fp
}

// FingerprintOf hashes raw message content.
func FingerprintOf(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}
