package indicators

import "math"

// Batch (from-scratch) computations over a full price history. These
// exist as independent references: the incremental engines must produce
// bit-identical values for every prefix, which the integration tests
// assert. They are also handy for warm-up precomputation where a full
// slice is already in hand.

// BatchEMA returns the EMA series; entries before the seed window are
// NaN.
func BatchEMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	alpha := 2.0 / float64(period+1)
	sum := 0.0
	for i, v := range values {
		if i < period-1 {
			sum += v
			out[i] = math.NaN()
			continue
		}
		if i == period-1 {
			sum += v
			out[i] = sum / float64(period)
			continue
		}
		out[i] = v*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// BatchMACD returns the MACD line, signal line and histogram series.
// Entries before warm-up are NaN.
func BatchMACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	fastEMA := BatchEMA(closes, fast)
	slowEMA := BatchEMA(closes, slow)
	line = make([]float64, len(closes))
	sig = make([]float64, len(closes))
	hist = make([]float64, len(closes))

	// The signal EMA seeds over the first signal MACD-line values.
	seedSum, seedCount := 0.0, 0
	alpha := 2.0 / float64(signal+1)
	for i := range closes {
		if math.IsNaN(slowEMA[i]) {
			line[i], sig[i], hist[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		line[i] = fastEMA[i] - slowEMA[i]
		if seedCount < signal {
			seedSum += line[i]
			seedCount++
			if seedCount == signal {
				sig[i] = seedSum / float64(signal)
			} else {
				sig[i] = math.NaN()
			}
		} else {
			sig[i] = line[i]*alpha + sig[i-1]*(1-alpha)
		}
		if math.IsNaN(sig[i]) {
			hist[i] = math.NaN()
		} else {
			hist[i] = line[i] - sig[i]
		}
	}
	return line, sig, hist
}

// BatchBollinger returns upper, middle, lower series using the sample
// standard deviation. Entries before the window fills are NaN.
func BatchBollinger(closes []float64, period int, mult float64) (upper, middle, lower []float64) {
	n := len(closes)
	upper = nanSlice(n)
	middle = nanSlice(n)
	lower = nanSlice(n)
	for i := period - 1; i < n; i++ {
		win := closes[i-period+1 : i+1]
		sum := 0.0
		for _, v := range win {
			sum += v
		}
		mean := sum / float64(period)
		sq := 0.0
		for _, v := range win {
			d := v - mean
			sq += d * d
		}
		band := mult * math.Sqrt(sq/float64(period-1))
		middle[i] = mean
		upper[i] = mean + band
		lower[i] = mean - band
	}
	return upper, middle, lower
}

// BatchATR returns the Wilder ATR series. Entries before warm-up are
// NaN. Index 0 carries no true range (no previous close).
func BatchATR(highs, lows, closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	seedSum, seedCount := 0.0, 0
	for i := 1; i < len(closes); i++ {
		tr := TrueRange(highs[i], lows[i], closes[i-1])
		if seedCount < period {
			seedSum += tr
			seedCount++
			if seedCount == period {
				out[i] = seedSum / float64(period)
			}
			continue
		}
		out[i] = (float64(period-1)*out[i-1] + tr) / float64(period)
	}
	return out
}

// BatchRSI returns the Wilder RSI series; entries before warm-up are
// NaN.
func BatchRSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	gainSum, lossSum := 0.0, 0.0
	var avgGain, avgLoss float64
	seeded := false
	seedCount := 0
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if !seeded {
			gainSum += gain
			lossSum += loss
			seedCount++
			if seedCount == period {
				avgGain = gainSum / float64(period)
				avgLoss = lossSum / float64(period)
				seeded = true
				out[i] = rsiFrom(avgGain, avgLoss)
			}
			continue
		}
		n := float64(period)
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// BatchADX returns the ADX series; entries before the double warm-up
// are NaN.
func BatchADX(highs, lows, closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	var trSum, plusSum, minusSum float64
	diCount := 0
	var dxSum float64
	dxCount := 0
	var adx float64
	seeded := false
	for i := 1; i < len(closes); i++ {
		tr := TrueRange(highs[i], lows[i], closes[i-1])
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		plusDM, minusDM := 0.0, 0.0
		if up > down && up > 0 {
			plusDM = up
		}
		if down > up && down > 0 {
			minusDM = down
		}

		if diCount < period {
			trSum += tr
			plusSum += plusDM
			minusSum += minusDM
			diCount++
			if diCount < period {
				continue
			}
		} else {
			trSum = trSum - trSum/float64(period) + tr
			plusSum = plusSum - plusSum/float64(period) + plusDM
			minusSum = minusSum - minusSum/float64(period) + minusDM
		}

		var plusDI, minusDI float64
		if trSum != 0 {
			plusDI = 100 * plusSum / trSum
			minusDI = 100 * minusSum / trSum
		}
		dx := 0.0
		if s := plusDI + minusDI; s != 0 {
			dx = 100 * math.Abs(plusDI-minusDI) / s
		}

		if !seeded {
			dxSum += dx
			dxCount++
			if dxCount == period {
				adx = dxSum / float64(period)
				seeded = true
				out[i] = adx
			}
			continue
		}
		adx = (adx*float64(period-1) + dx) / float64(period)
		out[i] = adx
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
