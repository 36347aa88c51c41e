package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaCapExceeded     = errors.New("quota cap exceeded")
	ErrQuotaCounterOverflow = errors.New("quota counter overflow")
)

// Accumulate adds delta to a cumulative counter with overflow protection.
func Accumulate(current, delta uint64) (uint64, error) {
	if current > math.MaxUint64-delta {
		return current, ErrQuotaCounterOverflow
	}
	return current + delta, nil
}

// CheckQuota verifies whether the additional usage fits within the configured
// cap and returns the updated counter when it does. A zero cap disables the
// limit. The counter is never partially advanced: on failure the previous
// value is returned unchanged.
func CheckQuota(current, delta, cap uint64) (uint64, error) {
	next, err := Accumulate(current, delta)
	if err != nil {
		return current, err
	}
	if cap > 0 && next > cap {
		return current, ErrQuotaCapExceeded
	}
	return next, nil
}
