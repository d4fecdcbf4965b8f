// Package indicators maintains rolling technical-indicator state updated
// incrementally, one bar at a time, in chronological order.
package indicators

import (
	"time"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// Params configures the engine's indicator periods. DefaultParams
// matches the standard MACD(12,26,9) / BOLL(20,2) / ATR(14) / RSI(14) /
// ADX(14) stack.
type Params struct {
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	BollPeriod  int
	BollStdDev  float64
	ATRPeriod   int
	RSIPeriod   int
	ADXPeriod   int
	VolPeriod   int
	HighPeriod  int
	EMATrendFst int // fast trend EMA for cross-timeframe ordering
	EMATrendSlw int
}

// DefaultParams returns the standard configuration.
func DefaultParams() Params {
	return Params{
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		BollPeriod:  20,
		BollStdDev:  2.0,
		ATRPeriod:   14,
		RSIPeriod:   14,
		ADXPeriod:   14,
		VolPeriod:   20,
		HighPeriod:  20,
		EMATrendFst: 20,
		EMATrendSlw: 50,
	}
}

// Snapshot is the indicator tuple for the most recent bar. Ready flags
// are the warm-up sentinels: a consumer must treat a false flag as "not
// yet available", never as a zero reading.
type Snapshot struct {
	Bars      int
	Timestamp time.Time
	Close     float64
	// PriceChange is close minus the previous bar's close.
	PriceChange float64

	MACD           float64
	MACDSignal     float64
	MACDHist       float64
	MACDGolden     bool
	MACDHistRising bool
	MACDHistUp     bool // histogram crossed from <= 0 to > 0 this bar
	MACDHistShrink bool // histogram magnitude fell this bar
	MACDReady      bool

	BollUpper     float64
	BollMiddle    float64
	BollLower     float64
	BollBandwidth float64
	BollReady     bool

	ATR        float64
	ATRPct     float64 // ATR / close
	ATRVsMean  float64 // ATR / its own 20-bar mean
	ATRReady   bool
	RSI        float64
	RSIReady   bool
	ADX        float64
	PlusDI     float64
	MinusDI    float64
	ADXReady   bool
	VolumeRat  float64
	VolReady   bool
	High20     float64
	PrevHigh20 float64
	Low20      float64
	PrevLow20  float64

	EMAFast       float64 // EMA(20)
	EMASlow       float64 // EMA(50)
	EMATrendUp    bool    // EMA(20) above EMA(50)
	EMATrendOK    bool    // both trend EMAs warmed up
	BearishDiverg bool
}

// Engine owns all rolling indicator state for one symbol/timeframe.
type Engine struct {
	params Params

	macd    *MACD
	boll    *BollingerBands
	atr     *ATR
	atrMean *SMA
	rsi     *RSI
	adx     *ADX
	volume  *VolumeRatio
	highs   *RollingHigh
	lows    *RollingHigh // fed negated lows
	emaFast *EMA
	emaSlow *EMA

	// Histogram maxima over the divergence lookback and the window
	// before it, for bearish-divergence detection.
	histRing *RollingHigh

	bars      int
	prevClose float64
	snapshot  Snapshot
}

// NewEngine creates an engine with the given parameters.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:   params,
		macd:     NewMACD(params.MACDFast, params.MACDSlow, params.MACDSignal),
		boll:     NewBollingerBands(params.BollPeriod, params.BollStdDev),
		atr:      NewATR(params.ATRPeriod),
		atrMean:  NewSMA(20),
		rsi:      NewRSI(params.RSIPeriod),
		adx:      NewADX(params.ADXPeriod),
		volume:   NewVolumeRatio(params.VolPeriod),
		highs:    NewRollingHigh(params.HighPeriod),
		lows:     NewRollingHigh(params.HighPeriod),
		emaFast:  NewEMA(params.EMATrendFst),
		emaSlow:  NewEMA(params.EMATrendSlw),
		histRing: NewRollingHigh(params.HighPeriod),
	}
}

// Update feeds one candle. It must be called exactly once per bar in
// chronological order; the snapshot for bar t is readable only after
// Update returns and reflects all candles in [0, t].
func (e *Engine) Update(c types.Candle) {
	priceChange := 0.0
	if e.bars > 0 {
		priceChange = c.Close - e.prevClose
	}

	// High windows are captured before this bar lands so breakout
	// checks compare against prior history, then advanced.
	priorHigh20 := e.highs.High()
	priorPrevHigh20 := e.highs.PrevHigh()
	priorLow20 := -e.lows.High()
	priorPrevLow20 := -e.lows.PrevHigh()

	e.macd.Update(c.Close)
	e.boll.Update(c.Close)
	e.atr.Update(c.High, c.Low, c.Close)
	if e.atr.Ready() {
		e.atrMean.Update(e.atr.Value())
	}
	e.rsi.Update(c.Close)
	e.adx.Update(c.High, c.Low, c.Close)
	e.volume.Update(c.Volume)
	e.emaFast.Update(c.Close)
	e.emaSlow.Update(c.Close)

	divergence := e.detectBearishDivergence(c.High, priorHigh20)
	if e.macd.Ready() {
		e.histRing.Update(e.macd.Histogram())
	}
	e.highs.Update(c.High)
	e.lows.Update(-c.Low)

	e.bars++
	e.prevClose = c.Close

	upper, middle, lower := e.boll.Bands()
	plusDI, minusDI := e.adx.DI()

	atrPct := 0.0
	if c.Close > 0 && e.atr.Ready() {
		atrPct = e.atr.Value() / c.Close
	}
	atrVsMean := 1.0
	if e.atrMean.Ready() && e.atrMean.Value() > 0 {
		atrVsMean = e.atr.Value() / e.atrMean.Value()
	}

	e.snapshot = Snapshot{
		Bars:           e.bars,
		Timestamp:      c.Timestamp,
		Close:          c.Close,
		PriceChange:    priceChange,
		MACD:           e.macd.Line(),
		MACDSignal:     e.macd.Signal(),
		MACDHist:       e.macd.Histogram(),
		MACDGolden:     e.macd.GoldenCross(),
		MACDHistRising: e.macd.HistogramRising(),
		MACDHistUp:     e.macd.HistogramCrossedUp(),
		MACDHistShrink: e.macd.HistogramShrinking(),
		MACDReady:      e.macd.Ready(),
		BollUpper:      upper,
		BollMiddle:     middle,
		BollLower:      lower,
		BollBandwidth:  e.boll.Bandwidth(),
		BollReady:      e.boll.Ready(),
		ATR:            e.atr.Value(),
		ATRPct:         atrPct,
		ATRVsMean:      atrVsMean,
		ATRReady:       e.atr.Ready(),
		RSI:            e.rsi.Value(),
		RSIReady:       e.rsi.Ready(),
		ADX:            e.adx.Value(),
		PlusDI:         plusDI,
		MinusDI:        minusDI,
		ADXReady:       e.adx.Ready(),
		VolumeRat:      e.volume.Value(),
		VolReady:       e.volume.Ready(),
		High20:         priorHigh20,
		PrevHigh20:     priorPrevHigh20,
		Low20:          priorLow20,
		PrevLow20:      priorPrevLow20,
		EMAFast:        e.emaFast.Value(),
		EMASlow:        e.emaSlow.Value(),
		EMATrendUp:     e.emaFast.Ready() && e.emaSlow.Ready() && e.emaFast.Value() > e.emaSlow.Value(),
		EMATrendOK:     e.emaFast.Ready() && e.emaSlow.Ready(),
		BearishDiverg:  divergence,
	}
}

// detectBearishDivergence: price makes a new high over the lookback
// window while the MACD histogram's peak over the same window sits below
// its peak in the window before. This is the concrete rule chosen for
// the narratively-defined "MACD divergence" filter.
func (e *Engine) detectBearishDivergence(high, priorHigh20 float64) bool {
	if !e.macd.Ready() || !e.histRing.Warm() {
		return false
	}
	newPriceHigh := priorHigh20 > 0 && high >= priorHigh20
	return newPriceHigh && e.histRing.High() < e.histRing.PrevHigh()
}

// Snapshot returns the indicator tuple for the most recent bar.
func (e *Engine) Snapshot() Snapshot { return e.snapshot }

// Bars returns the number of bars consumed.
func (e *Engine) Bars() int { return e.bars }
