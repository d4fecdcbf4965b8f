package indicators

// RSI is Wilder's Relative Strength Index. The first averages are the
// simple means of the first period gains and losses; later bars use
// Wilder's recurrence. By convention RSI is 100 while the average loss
// is zero.
type RSI struct {
	period    int
	prevClose float64
	haveClose bool

	gainSum   float64
	lossSum   float64
	seedCount int

	avgGain     float64
	avgLoss     float64
	value       float64
	initialized bool
}

// NewRSI creates an RSI(period) indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Update feeds one close.
func (r *RSI) Update(close float64) {
	if !r.haveClose {
		r.prevClose = close
		r.haveClose = true
		return
	}

	change := close - r.prevClose
	r.prevClose = close
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if !r.initialized {
		r.gainSum += gain
		r.lossSum += loss
		r.seedCount++
		if r.seedCount >= r.period {
			r.avgGain = r.gainSum / float64(r.period)
			r.avgLoss = r.lossSum / float64(r.period)
			r.initialized = true
			r.compute()
		}
		return
	}

	n := float64(r.period)
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	r.compute()
}

func (r *RSI) compute() {
	if r.avgLoss == 0 {
		r.value = 100
		return
	}
	rs := r.avgGain / r.avgLoss
	r.value = 100 - 100/(1+rs)
}

// Ready reports whether the seed window has filled.
func (r *RSI) Ready() bool { return r.initialized }

// Value returns the current RSI in [0, 100].
func (r *RSI) Value() float64 { return r.value }
