package data

import "github.com/hkquant/equity-backtest/internal/engineerr"

// QualityError is the QUALITY_REJECTED failure; it carries the full
// report so callers can surface the per-category counts.
type QualityError struct {
	Cause  *engineerr.Error
	Report QualityReport
}

func (e *QualityError) Error() string { return e.Cause.Error() }
func (e *QualityError) Unwrap() error { return e.Cause }

// QualityReport totals the per-category validation counts for one
// prepared run and derives the 0-100 quality score.
type QualityReport struct {
	Total            int
	InvalidPrice     int
	InvalidVolume    int
	DuplicateTime    int
	SuspiciousChange int
	MissingSchedule  int
}

// Usability gate thresholds, expressed as rates of Total.
const (
	maxInvalidPriceRate  = 0.05
	maxInvalidVolumeRate = 0.10
	maxSuspiciousRate    = 0.02
	maxDuplicateRate     = 0.01
	maxMissingRate       = 0.10
	minUsableCandles     = 60
)

func (r QualityReport) rate(n int) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(n) / float64(r.Total)
}

// Usable reports whether the run passes every gate.
func (r QualityReport) Usable() bool {
	return r.Total >= minUsableCandles &&
		r.rate(r.InvalidPrice) <= maxInvalidPriceRate &&
		r.rate(r.InvalidVolume) <= maxInvalidVolumeRate &&
		r.rate(r.SuspiciousChange) <= maxSuspiciousRate &&
		r.rate(r.DuplicateTime) <= maxDuplicateRate &&
		r.rate(r.MissingSchedule) <= maxMissingRate
}

// Score derives the weighted 0-100 quality score. A run that fails any
// usability gate is capped below 60: the weighted penalty alone can
// stay mild while a single category (say, duplicates) already makes the
// data untradeable.
func (r QualityReport) Score() float64 {
	penalty := 0.40*r.rate(r.InvalidPrice) +
		0.20*r.rate(r.InvalidVolume) +
		0.30*r.rate(r.SuspiciousChange) +
		0.20*r.rate(r.DuplicateTime) +
		0.15*r.rate(r.MissingSchedule)
	score := 100 - 100*penalty
	if !r.Usable() && score >= 60 {
		score = 59.9
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Grade buckets the score the way the ops reports expect it.
func (r QualityReport) Grade() string {
	switch s := r.Score(); {
	case s >= 90:
		return "excellent"
	case s >= 80:
		return "good"
	case s >= 70:
		return "acceptable"
	case s >= 60:
		return "poor"
	default:
		return "unusable"
	}
}
