package indicators

import "math"

// ADX is the Average Directional Index with Wilder's smoothing of +DM,
// -DM and TR. The DI sums seed as plain sums of the first period values;
// ADX itself seeds as the simple mean of the first period DX values and
// is Wilder-smoothed afterwards.
type ADX struct {
	period int

	prevHigh  float64
	prevLow   float64
	prevClose float64
	haveBar   bool

	trSum      float64
	plusDMSum  float64
	minusDMSum float64
	diCount    int

	dxSum       float64
	dxCount     int
	value       float64
	initialized bool

	plusDI  float64
	minusDI float64
}

// NewADX creates an ADX(period) indicator.
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

// Update feeds one bar.
func (a *ADX) Update(high, low, close float64) {
	if !a.haveBar {
		a.prevHigh, a.prevLow, a.prevClose = high, low, close
		a.haveBar = true
		return
	}

	tr := TrueRange(high, low, a.prevClose)
	plusDM, minusDM := 0.0, 0.0
	upMove := high - a.prevHigh
	downMove := a.prevLow - low
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}
	a.prevHigh, a.prevLow, a.prevClose = high, low, close

	if a.diCount < a.period {
		a.trSum += tr
		a.plusDMSum += plusDM
		a.minusDMSum += minusDM
		a.diCount++
		if a.diCount < a.period {
			return
		}
	} else {
		a.trSum = a.trSum - a.trSum/float64(a.period) + tr
		a.plusDMSum = a.plusDMSum - a.plusDMSum/float64(a.period) + plusDM
		a.minusDMSum = a.minusDMSum - a.minusDMSum/float64(a.period) + minusDM
	}

	if a.trSum == 0 {
		a.plusDI, a.minusDI = 0, 0
	} else {
		a.plusDI = 100 * a.plusDMSum / a.trSum
		a.minusDI = 100 * a.minusDMSum / a.trSum
	}

	dx := 0.0
	if s := a.plusDI + a.minusDI; s != 0 {
		dx = 100 * math.Abs(a.plusDI-a.minusDI) / s
	}

	if !a.initialized {
		a.dxSum += dx
		a.dxCount++
		if a.dxCount >= a.period {
			a.value = a.dxSum / float64(a.period)
			a.initialized = true
		}
		return
	}

	a.value = (a.value*float64(a.period-1) + dx) / float64(a.period)
}

// Ready reports whether the double warm-up (DI seed plus DX seed) has
// completed.
func (a *ADX) Ready() bool { return a.initialized }

// Value returns the current ADX in [0, 100].
func (a *ADX) Value() float64 { return a.value }

// DI returns the current +DI and -DI.
func (a *ADX) DI() (plusDI, minusDI float64) { return a.plusDI, a.minusDI }
