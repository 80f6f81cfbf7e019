package dedupe

import "github.com/subwatch/subwatch/internal/model"

// IsMessageDuplicate reports whether a message is an exact repeat of one
// already seen. Fingerprints are checked first; when an existing record has
// no stored fingerprint the body hash and then the raw sender+body pair act
// as fallbacks.
func IsMessageDuplicate(msg *model.SubscriptionMessage, existing []model.SubscriptionMessage) bool {
	fingerprint := msg.GenerateFingerprint()
	bodyHash := model.FingerprintOf(msg.Body)

	for i := range existing {
		other := &existing[i]

		if fp, ok := other.ExtractedData[model.FingerprintKey]; ok && fp != "" {
			if fp == fingerprint {
				return true
			}
		}

		if model.FingerprintOf(other.Body) == bodyHash {
			return true
		}

		if other.Sender == msg.Sender && other.Body == msg.Body {
			return true
		}
	}

	return false
}

// IsRawMessageDuplicate checks a raw message string that has not been parsed
// into sender and body yet.
func IsRawMessageDuplicate(raw string, existing []model.SubscriptionMessage) bool {
	fingerprint := model.FingerprintOf(raw)

	for i := range existing {
		other := &existing[i]

		if fp, ok := other.ExtractedData[model.FingerprintKey]; ok && fp == fingerprint {
			return true
		}
		if model.FingerprintOf(other.Body) == fingerprint {
			return true
		}
	}

	return false
}
