package bucket

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// maxUint64 as a float64, used to normalize a hash into [0, 1).
const maxUint64 = float64(math.MaxUint64)

// Decide reports whether rolloutID falls inside the fraction of
// traffic described by frequency, for the formula identified by
// formulaKey (typically [rule.CacheKey] of the formula text that
// produced frequency).
//
// frequency <= 0 always returns false and frequency >= 1 always
// returns true, regardless of rolloutID, so a formula that always
// evaluates to the boundary values behaves exactly like a hard
// on/off switch.
func Decide(formulaKey, rolloutID string, frequency float32) bool {
	if frequency <= 0 {
		return false
	}

	if frequency >= 1 {
		return true
	}

	h := xxhash.New()
	_, _ = h.WriteString(formulaKey)
	_, _ = h.WriteString(":")
	_, _ = h.WriteString(rolloutID)

	point := float64(h.Sum64()) / maxUint64

	return point < float64(frequency)
}
