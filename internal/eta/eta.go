// Package eta turns progress readings into an estimated time remaining.
//
// All estimates are in seconds. An estimate that cannot be computed yet is
// +Inf rather than an error; callers render it with Format.
package eta

import (
	"fmt"
	"math"
	"time"

	"isoflash/internal/domain"
)

const (
	PolicyElapsed = "elapsed"
	PolicyRate    = "rate"

	bytesPerMB = 1e6
)

// Estimator computes the remaining seconds for one sample. Implementations are
// stateless: every call sees only the latest sample.
type Estimator interface {
	Remaining(total int64, elapsed time.Duration, s domain.Sample) float64
}

// New returns the estimator for policy. An empty policy selects PolicyElapsed.
func New(policy string) (Estimator, error) {
	switch policy {
	case "", PolicyElapsed:
		return ElapsedPolicy{}, nil
	case PolicyRate:
		return RatePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown eta policy %q (want %q or %q)", policy, PolicyElapsed, PolicyRate)
	}
}

// ElapsedRatio extrapolates from the fraction written so far:
// elapsed * (1/progress - 1), never negative.
func ElapsedRatio(written, total int64, elapsed time.Duration) float64 {
	if total <= 0 {
		return math.Inf(1)
	}
	progress := float64(written) / float64(total)
	if progress <= 0 || math.IsNaN(progress) {
		return math.Inf(1)
	}
	remaining := elapsed.Seconds() * (1/progress - 1)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// InstantRate divides the size by the latest reported rate.
func InstantRate(sizeMB, rateMBs float64) float64 {
	if rateMBs <= 0 || math.IsNaN(rateMBs) || math.IsNaN(sizeMB) {
		return math.Inf(1)
	}
	if sizeMB < 0 {
		return 0
	}
	return sizeMB / rateMBs
}

type ElapsedPolicy struct{}

func (ElapsedPolicy) Remaining(total int64, elapsed time.Duration, s domain.Sample) float64 {
	if !s.HasBytes {
		return math.Inf(1)
	}
	return ElapsedRatio(s.Bytes, total, elapsed)
}

// RatePolicy applies InstantRate to the bytes still to be written.
type RatePolicy struct{}

func (RatePolicy) Remaining(total int64, elapsed time.Duration, s domain.Sample) float64 {
	if !s.HasRate {
		return math.Inf(1)
	}
	left := total
	if s.HasBytes {
		left = total - s.Bytes
	}
	return InstantRate(float64(left)/bytesPerMB, s.RateMBs)
}

func Unbounded(sec float64) bool {
	return math.IsInf(sec, 1) || math.IsNaN(sec)
}

// Format renders seconds as "∞", "42s" or "3m07s".
func Format(sec float64) string {
	if Unbounded(sec) {
		return "∞"
	}
	if sec < 0 {
		sec = 0
	}
	d := time.Duration(math.Round(sec)) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
