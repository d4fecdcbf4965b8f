package indicators

import "math"

// VolumeRatio is the current volume relative to its fixed-window simple
// moving average. It is 0 (undefined) until the window fills.
type VolumeRatio struct {
	period int
	window []float64
	head   int
	count  int
	value  float64
}

// NewVolumeRatio creates a VolumeRatio over period bars.
func NewVolumeRatio(period int) *VolumeRatio {
	return &VolumeRatio{period: period, window: make([]float64, period)}
}

// Update feeds one volume.
func (v *VolumeRatio) Update(volume float64) {
	v.window[v.head] = volume
	v.head = (v.head + 1) % v.period
	if v.count < v.period {
		v.count++
	}
	if v.count < v.period {
		v.value = 0
		return
	}
	sum := 0.0
	for i := 0; i < v.period; i++ {
		sum += v.window[(v.head+i)%v.period]
	}
	mean := sum / float64(v.period)
	if mean == 0 {
		v.value = 0
		return
	}
	v.value = volume / mean
}

// Ready reports whether the window has filled.
func (v *VolumeRatio) Ready() bool { return v.count >= v.period }

// Value returns the current ratio, or 0 before warm-up.
func (v *VolumeRatio) Value() float64 { return v.value }

// RollingHigh tracks the maximum high over the current window and over
// the immediately preceding window of the same length.
type RollingHigh struct {
	period int
	window []float64 // last 2*period highs, ring ordered
	head   int
	count  int
}

// NewRollingHigh creates a RollingHigh over period bars.
func NewRollingHigh(period int) *RollingHigh {
	return &RollingHigh{period: period, window: make([]float64, 2*period)}
}

// Update feeds one high.
func (r *RollingHigh) Update(high float64) {
	r.window[r.head] = high
	r.head = (r.head + 1) % len(r.window)
	if r.count < len(r.window) {
		r.count++
	}
}

// High returns the max over the last period bars, 0 before warm-up.
func (r *RollingHigh) High() float64 {
	if r.count < r.period {
		return 0
	}
	return r.maxOfLast(r.period, 0)
}

// PrevHigh returns the max over the window immediately preceding the
// current one, 0 until both windows have filled.
func (r *RollingHigh) PrevHigh() float64 {
	if r.count < 2*r.period {
		return 0
	}
	return r.maxOfLast(r.period, r.period)
}

// Warm reports whether both the current and preceding windows have
// filled.
func (r *RollingHigh) Warm() bool { return r.count >= 2*r.period }

// maxOfLast returns the max of n values ending skip bars before the most
// recent one.
func (r *RollingHigh) maxOfLast(n, skip int) float64 {
	size := len(r.window)
	max := math.Inf(-1)
	for i := 0; i < n; i++ {
		idx := (r.head - 1 - skip - i + 2*size) % size
		if v := r.window[idx]; v > max {
			max = v
		}
	}
	return max
}
