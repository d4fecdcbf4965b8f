package indicators

// MACD maintains the MACD line, signal line and histogram incrementally.
// The signal line is an EMA over the MACD line, seeded with the SMA of
// its first signalPeriod values once both price EMAs are ready.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	line      float64
	signalVal float64
	histogram float64

	prevLine      float64
	prevSignal    float64
	prevHistogram float64

	hasPrev bool
}

// NewMACD creates a MACD(fast, slow, signal) indicator.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

// Update feeds one close. Values are readable once Ready reports true.
func (m *MACD) Update(close float64) {
	m.fast.Update(close)
	m.slow.Update(close)
	if !m.slow.Ready() {
		return
	}

	if m.hasPrev {
		m.prevLine = m.line
		m.prevSignal = m.signalVal
		m.prevHistogram = m.histogram
	}

	m.line = m.fast.Value() - m.slow.Value()
	m.signalVal = m.signal.Update(m.line)
	m.histogram = m.line - m.signalVal
	m.hasPrev = true
}

// Ready reports whether both the slow EMA and the signal-line seed have
// completed, i.e. the histogram is meaningful.
func (m *MACD) Ready() bool { return m.slow.Ready() && m.signal.Ready() }

// Line returns the MACD line (fast EMA minus slow EMA).
func (m *MACD) Line() float64 { return m.line }

// Signal returns the signal line.
func (m *MACD) Signal() float64 { return m.signalVal }

// Histogram returns line minus signal.
func (m *MACD) Histogram() float64 { return m.histogram }

// Prev returns the previous bar's line, signal and histogram.
func (m *MACD) Prev() (line, signal, histogram float64) {
	return m.prevLine, m.prevSignal, m.prevHistogram
}

// HistogramShrinking reports whether the histogram's magnitude fell on
// the current bar.
func (m *MACD) HistogramShrinking() bool {
	abs := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}
	return m.Ready() && abs(m.histogram) < abs(m.prevHistogram)
}

// GoldenCross reports a bullish crossover on the current bar: the MACD
// line crossed the signal line from below.
func (m *MACD) GoldenCross() bool {
	return m.Ready() && m.prevLine <= m.prevSignal && m.line > m.signalVal
}

// HistogramRising reports whether the histogram grew on the current bar.
func (m *MACD) HistogramRising() bool {
	return m.Ready() && m.histogram > m.prevHistogram
}

// HistogramCrossedUp reports a histogram transition from <= 0 to > 0.
func (m *MACD) HistogramCrossedUp() bool {
	return m.Ready() && m.prevHistogram <= 0 && m.histogram > 0
}
