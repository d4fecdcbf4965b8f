package indicators

import "math"

// BollingerBands maintains a fixed window of closes. Each bar recomputes
// mean and sample standard deviation over the window; the window length
// is a constant, so the per-bar cost is bounded. Summing the window
// afresh keeps values bit-identical to a from-scratch batch computation,
// which a running add/subtract sum would not.
type BollingerBands struct {
	period     int
	multiplier float64

	window []float64
	head   int
	count  int

	upper     float64
	middle    float64
	lower     float64
	bandwidth float64
}

// NewBollingerBands creates a Bollinger(period, multiplier) indicator.
func NewBollingerBands(period int, multiplier float64) *BollingerBands {
	return &BollingerBands{
		period:     period,
		multiplier: multiplier,
		window:     make([]float64, period),
	}
}

// Update feeds one close.
func (bb *BollingerBands) Update(close float64) {
	bb.window[bb.head] = close
	bb.head = (bb.head + 1) % bb.period
	if bb.count < bb.period {
		bb.count++
	}
	if bb.count < bb.period {
		return
	}

	n := float64(bb.period)
	// Oldest-first traversal so summation order matches the batch form.
	sum := 0.0
	for i := 0; i < bb.period; i++ {
		sum += bb.window[(bb.head+i)%bb.period]
	}
	bb.middle = sum / n

	sqSum := 0.0
	for i := 0; i < bb.period; i++ {
		d := bb.window[(bb.head+i)%bb.period] - bb.middle
		sqSum += d * d
	}
	band := bb.multiplier * math.Sqrt(sqSum/(n-1))
	bb.upper = bb.middle + band
	bb.lower = bb.middle - band
	if bb.middle != 0 {
		bb.bandwidth = (bb.upper - bb.lower) / bb.middle
	} else {
		bb.bandwidth = 0
	}
}

// Ready reports whether the window has filled.
func (bb *BollingerBands) Ready() bool { return bb.count >= bb.period }

// Bands returns upper, middle, lower.
func (bb *BollingerBands) Bands() (upper, middle, lower float64) {
	return bb.upper, bb.middle, bb.lower
}

// Bandwidth returns (upper - lower) / middle.
func (bb *BollingerBands) Bandwidth() float64 { return bb.bandwidth }
