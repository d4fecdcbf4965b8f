package regime

import (
	"github.com/hkquant/equity-backtest/internal/indicators"
)

// Classification thresholds.
const (
	adxTrendMin      = 25.0
	adxRangeMax      = 20.0
	bandwidthTrend   = 0.10
	bandwidthRange   = 0.05
	breakoutVolRatio = 2.0
)

// Classify maps one indicator snapshot to a regime. Breakout takes
// priority over the ADX-based states because a volume surge through
// resistance overrides trend strength readings.
func Classify(s indicators.Snapshot) Type {
	if !s.ADXReady || !s.BollReady || !s.VolReady {
		return Neutral
	}

	if s.VolumeRat > breakoutVolRatio &&
		(s.Close > s.BollUpper || (s.High20 > 0 && s.Close > s.High20)) {
		return Breakout
	}
	if s.ADX >= adxTrendMin && s.BollBandwidth > bandwidthTrend {
		return Trending
	}
	if s.ADX < adxRangeMax && s.BollBandwidth < bandwidthRange {
		return Ranging
	}
	return Neutral
}

// Detector tracks the current regime across bars and records changes.
type Detector struct {
	current Type
	changes []Change
}

// NewDetector starts in the Neutral regime.
func NewDetector() *Detector {
	return &Detector{current: Neutral}
}

// Observe classifies the snapshot, records any transition and returns
// the new regime.
func (d *Detector) Observe(s indicators.Snapshot) Type {
	next := Classify(s)
	if next != d.current {
		d.changes = append(d.changes, Change{
			Timestamp: s.Timestamp,
			Old:       d.current,
			New:       next,
			Price:     s.Close,
		})
		d.current = next
	}
	return next
}

// Current returns the regime as of the last observed bar.
func (d *Detector) Current() Type { return d.current }

// Changes returns all recorded transitions in order.
func (d *Detector) Changes() []Change { return d.changes }
