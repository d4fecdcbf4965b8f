package indicators

// EMA is an incremental exponential moving average. The first value is
// seeded with the SMA of the first period closes, after which each bar
// costs O(1).
type EMA struct {
	period      int
	alpha       float64
	seedSum     float64
	seedCount   int
	value       float64
	initialized bool
}

// NewEMA creates an EMA with alpha = 2/(period+1).
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// Update feeds one value and returns the current EMA. The return value
// is meaningful only once Ready reports true.
func (e *EMA) Update(v float64) float64 {
	if !e.initialized {
		e.seedSum += v
		e.seedCount++
		if e.seedCount >= e.period {
			e.value = e.seedSum / float64(e.period)
			e.initialized = true
		}
		return e.value
	}
	e.value = v*e.alpha + e.value*(1-e.alpha)
	return e.value
}

// Value returns the last computed EMA.
func (e *EMA) Value() float64 { return e.value }

// Ready reports whether the seed window has filled.
func (e *EMA) Ready() bool { return e.initialized }

// Period returns the configured period.
func (e *EMA) Period() int { return e.period }
