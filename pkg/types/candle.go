package types

import "time"

// Candle is one OHLCV bar at a fixed interval for one symbol.
// Prices are HKD with at most four fractional digits.
type Candle struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Turnover  float64
}

// AdjustType marks how a candle's prices were rehabilitated for
// corporate actions.
type AdjustType int

const (
	AdjustNone AdjustType = iota
	AdjustForward
	AdjustBackward
)

func (a AdjustType) String() string {
	switch a {
	case AdjustForward:
		return "FORWARD"
	case AdjustBackward:
		return "BACKWARD"
	default:
		return "NONE"
	}
}

// AdjustedCandle is a Candle whose OHLC has been multiplied by the
// applicable cumulative adjustment factor. Volume is never adjusted.
type AdjustedCandle struct {
	Candle
	Adjust AdjustType
}

// Interval is a candle interval recognised by the engine.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval60m Interval = "60m"
	Interval1d  Interval = "1d"
)

// Duration returns the wall-clock span of one bar.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval60m:
		return time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether the interval is one the engine supports.
func (i Interval) Valid() bool {
	switch i {
	case Interval1m, Interval5m, Interval15m, Interval30m, Interval60m, Interval1d:
		return true
	}
	return false
}

// BarsPerDay returns the number of bars in one HK trading day
// (09:30-12:00 and 13:00-16:00, 5.5 hours).
func (i Interval) BarsPerDay() float64 {
	if i == Interval1d {
		return 1
	}
	d := i.Duration()
	if d == 0 {
		return 0
	}
	return (5*time.Hour + 30*time.Minute).Seconds() / d.Seconds()
}
