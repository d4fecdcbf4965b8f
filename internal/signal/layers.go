package signal

import (
	"github.com/hkquant/equity-backtest/internal/indicators"
)

// Layer weights and pass thresholds. Weights sum to 1.00.
const (
	weightMarketState = 0.15
	weightMACD        = 0.35
	weightBollinger   = 0.25
	weightVolume      = 0.25

	passMarketState = 50.0
	passMACD        = 60.0
	passBollinger   = 50.0
	passVolume      = 60.0

	minStrength = 70.0
)

// marketStateScore scores regime suitability from the ATR-to-price
// ratio, with a bonus for a healthy band width. A cold indicator fails
// the layer with a zero score.
func marketStateScore(p indicators.Snapshot) float64 {
	if !p.ATRReady || !p.BollReady {
		return 0
	}
	score := 100 * clamp((p.ATRPct-0.005)/(0.05-0.005), 0, 1)
	if p.BollBandwidth >= 0.03 && p.BollBandwidth <= 0.15 {
		score += 20
	}
	return clamp(score, 0, 100)
}

// macdScore rewards bullish line position, histogram sign, alignment
// with the confirmation timeframe, clean momentum (no divergence) and a
// growing histogram.
func macdScore(p, confirm indicators.Snapshot) float64 {
	if !p.MACDReady || !confirm.MACDReady {
		return 0
	}
	score := 0.0
	if p.MACD > p.MACDSignal {
		score += 20
	}
	if p.MACDHist > 0 {
		score += 20
	}
	if confirm.MACD > confirm.MACDSignal {
		score += 20
	}
	if !p.BearishDiverg {
		score += 30
	}
	if p.MACDHistRising {
		score += 10
	}
	return score
}

// bollScore scores price position inside the bands plus band width.
func bollScore(p indicators.Snapshot) float64 {
	if !p.BollReady {
		return 0
	}
	score := 0.0
	switch {
	case p.Close > p.BollMiddle && p.Close < p.BollUpper:
		score += 50
	case p.Close > p.BollLower && p.Close <= p.BollMiddle:
		score += 30
	}
	if p.BollBandwidth > 0.03 && p.BollBandwidth < 0.15 {
		score += 50
	}
	return score
}

// volumeScore scores the volume surge plus the price-volume relation:
// price up on expanding volume, or price down on drying volume.
func volumeScore(p indicators.Snapshot) float64 {
	if !p.VolReady {
		return 0
	}
	score := 0.0
	if p.VolumeRat >= 1.5 {
		score += 30
	}
	if p.VolumeRat >= 2.0 {
		score += 20
	}
	if (p.PriceChange > 0 && p.VolumeRat > 1.2) ||
		(p.PriceChange < 0 && p.VolumeRat < 0.8) {
		score += 50
	}
	return score
}

// resonance requires sign agreement across timeframes for MACD
// direction, price position against the middle band, and the trend EMA
// ordering.
func resonance(p, confirm indicators.Snapshot) bool {
	if !p.MACDReady || !confirm.MACDReady ||
		!p.BollReady || !confirm.BollReady ||
		!p.EMATrendOK || !confirm.EMATrendOK {
		return false
	}
	macdAgree := (p.MACD > p.MACDSignal) == (confirm.MACD > confirm.MACDSignal)
	bollAgree := (p.Close > p.BollMiddle) == (confirm.Close > confirm.BollMiddle)
	emaAgree := p.EMATrendUp == confirm.EMATrendUp
	return macdAgree && bollAgree && emaAgree
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
