package data

import (
	"math"

	"github.com/hkquant/equity-backtest/internal/calendar"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// Validation bounds for HK equity prices.
const (
	minValidLow     = 0.001
	maxValidHigh    = 10000.0
	maxCloseChange  = 0.3
	priceFracDigits = 4
)

// Validator runs the ordered per-candle checks and accumulates a
// QualityReport. It is single-use: one Validator per prepared run.
type Validator struct {
	interval types.Interval
	seen     map[int64]bool
	report   QualityReport
}

// NewValidator creates a validator for one run.
func NewValidator(interval types.Interval) *Validator {
	return &Validator{interval: interval, seen: make(map[int64]bool)}
}

// Check validates one candle against its predecessor. prevClose <= 0
// means no predecessor. The checks run in a fixed order and the first
// failure categorises the candle; suspicious and schedule findings do
// not stop the candle from being used downstream.
func (v *Validator) Check(c types.Candle, prevClose float64) bool {
	v.report.Total++

	if c.Low <= minValidLow || c.High >= maxValidHigh ||
		!fracDigitsOK(c.Open) || !fracDigitsOK(c.High) || !fracDigitsOK(c.Low) || !fracDigitsOK(c.Close) {
		v.report.InvalidPrice++
		return false
	}
	if c.Low > c.Open || c.Low > c.Close || c.Open > c.High || c.Close > c.High {
		v.report.InvalidPrice++
		return false
	}
	if c.Volume < 0 {
		v.report.InvalidVolume++
		return false
	}
	key := c.Timestamp.Unix()
	if v.seen[key] {
		v.report.DuplicateTime++
		return false
	}
	v.seen[key] = true

	if prevClose > 0 {
		// A move of exactly 30% is already suspicious; the epsilon
		// keeps the boundary stable under float division.
		if math.Abs(c.Close-prevClose)/prevClose >= maxCloseChange-1e-9 {
			v.report.SuspiciousChange++
		}
	}
	if !calendar.OnGrid(c.Timestamp, v.interval.Duration()) {
		v.report.MissingSchedule++
	}
	return true
}

// Report returns the accumulated totals.
func (v *Validator) Report() QualityReport { return v.report }

// fracDigitsOK reports whether p carries at most four fractional digits,
// within a float tolerance.
func fracDigitsOK(p float64) bool {
	scaled := p * math.Pow10(priceFracDigits)
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}
