package indicators

// SMA is a fixed-window simple moving average. The window is rescanned
// each bar so values stay bit-identical to a batch computation.
type SMA struct {
	period int
	window []float64
	head   int
	count  int
	value  float64
}

// NewSMA creates an SMA(period).
func NewSMA(period int) *SMA {
	return &SMA{period: period, window: make([]float64, period)}
}

// Update feeds one value and returns the current mean.
func (s *SMA) Update(v float64) float64 {
	s.window[s.head] = v
	s.head = (s.head + 1) % s.period
	if s.count < s.period {
		s.count++
	}
	sum := 0.0
	if s.count < s.period {
		for i := 0; i < s.count; i++ {
			sum += s.window[i]
		}
	} else {
		for i := 0; i < s.period; i++ {
			sum += s.window[(s.head+i)%s.period]
		}
	}
	s.value = sum / float64(s.count)
	return s.value
}

// Ready reports whether the window has filled.
func (s *SMA) Ready() bool { return s.count >= s.period }

// Value returns the last computed mean.
func (s *SMA) Value() float64 { return s.value }
