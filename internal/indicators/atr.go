package indicators

import "math"

// ATR is the Average True Range with Wilder's smoothing, seeded with the
// simple mean of the first period true-range values.
type ATR struct {
	period    int
	prevClose float64
	haveClose bool

	seedSum   float64
	seedCount int

	value       float64
	initialized bool
}

// NewATR creates an ATR(period) indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Update feeds one bar. The first bar only primes prevClose; true range
// needs a prior close.
func (a *ATR) Update(high, low, close float64) {
	if !a.haveClose {
		a.prevClose = close
		a.haveClose = true
		return
	}

	tr := TrueRange(high, low, a.prevClose)
	a.prevClose = close

	if !a.initialized {
		a.seedSum += tr
		a.seedCount++
		if a.seedCount >= a.period {
			a.value = a.seedSum / float64(a.period)
			a.initialized = true
		}
		return
	}

	a.value = (float64(a.period-1)*a.value + tr) / float64(a.period)
}

// Ready reports whether the seed window has filled.
func (a *ATR) Ready() bool { return a.initialized }

// Value returns the current ATR.
func (a *ATR) Value() float64 { return a.value }

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}
