package portfolio

import (
	"fmt"
	"time"
)

// ClosedTrade is one completed round trip (or partial exit).
type ClosedTrade struct {
	Symbol     string    `json:"symbol"`
	Strategy   string    `json:"strategy"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   int64     `json:"quantity"`
	PnL        float64   `json:"pnl"` // net of all fees
	Fees       float64   `json:"fees"`
	ExitReason string    `json:"exit_reason"`
}

// EquityPoint is one snapshot of total account value at a bar close.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// Portfolio is the run's cash and position ledger.
type Portfolio struct {
	cash      float64
	positions map[string]*Position
	trades    []ClosedTrade
	curve     []EquityPoint

	peakEquity  float64
	maxDrawdown float64

	dailyLossDay  time.Time
	dailyRealized float64

	consecutiveLosses int
}

// New creates a portfolio holding only cash.
func New(initialCapital float64) *Portfolio {
	return &Portfolio{
		cash:       initialCapital,
		positions:  make(map[string]*Position),
		peakEquity: initialCapital,
	}
}

// Cash returns available cash.
func (pf *Portfolio) Cash() float64 { return pf.cash }

// Position returns the open position for symbol, or nil.
func (pf *Portfolio) Position(symbol string) *Position {
	return pf.positions[symbol]
}

// Positions returns all open positions.
func (pf *Portfolio) Positions() []*Position {
	out := make([]*Position, 0, len(pf.positions))
	for _, p := range pf.positions {
		out = append(out, p)
	}
	return out
}

// Trades returns the completed trade list in close order.
func (pf *Portfolio) Trades() []ClosedTrade { return pf.trades }

// EquityCurve returns the snapshots recorded so far.
func (pf *Portfolio) EquityCurve() []EquityPoint { return pf.curve }

// MaxDrawdown returns the worst peak-to-trough fraction seen so far.
func (pf *Portfolio) MaxDrawdown() float64 { return pf.maxDrawdown }

// ConsecutiveLosses returns the current losing streak length.
func (pf *Portfolio) ConsecutiveLosses() int { return pf.consecutiveLosses }

// DailyRealizedLoss returns today's realized loss as a positive number,
// zero when the day is net positive.
func (pf *Portfolio) DailyRealizedLoss(day time.Time) float64 {
	if !sameDay(pf.dailyLossDay, day) || pf.dailyRealized >= 0 {
		return 0
	}
	return -pf.dailyRealized
}

// Open debits cash for qty shares at price plus fees and opens (or
// scales into) a position. Fails if cash would go negative.
func (pf *Portfolio) Open(symbol, strategy string, qty int64, price, fees float64, at time.Time) error {
	cost := float64(qty)*price + fees
	if cost > pf.cash+1e-9 {
		return fmt.Errorf("open %s: cost %.2f exceeds cash %.2f", symbol, cost, pf.cash)
	}
	pf.cash -= cost

	if pos, ok := pf.positions[symbol]; ok {
		total := float64(pos.Quantity)*pos.AvgCost + cost
		pos.Quantity += qty
		pos.InitialQty += qty
		pos.AvgCost = total / float64(pos.Quantity)
		return nil
	}
	pf.positions[symbol] = &Position{
		Symbol:     symbol,
		Strategy:   strategy,
		Quantity:   qty,
		InitialQty: qty,
		EntryPrice: price,
		AvgCost:    (float64(qty)*price + fees) / float64(qty),
		OpenedAt:   at,
		HighWater:  price,
	}
	return nil
}

// Close sells qty shares of the open position at price, credits cash
// net of fees, records the trade and updates the loss streak. Closing
// the full quantity removes the position.
func (pf *Portfolio) Close(symbol string, qty int64, price, fees float64, at time.Time, reason string) (ClosedTrade, error) {
	pos, ok := pf.positions[symbol]
	if !ok {
		return ClosedTrade{}, fmt.Errorf("close %s: no open position", symbol)
	}
	if qty <= 0 || qty > pos.Quantity {
		return ClosedTrade{}, fmt.Errorf("close %s: quantity %d outside open quantity %d", symbol, qty, pos.Quantity)
	}

	proceeds := float64(qty)*price - fees
	pf.cash += proceeds
	pnl := (price-pos.AvgCost)*float64(qty) - fees

	trade := ClosedTrade{
		Symbol:     symbol,
		Strategy:   pos.Strategy,
		EntryTime:  pos.OpenedAt,
		ExitTime:   at,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Quantity:   qty,
		PnL:        pnl,
		Fees:       fees,
		ExitReason: reason,
	}
	pf.trades = append(pf.trades, trade)

	pos.Quantity -= qty
	if pos.Quantity == 0 {
		delete(pf.positions, symbol)
	}

	pf.recordRealized(pnl, at)
	return trade, nil
}

// Snapshot marks all open positions at their close prices, appends an
// equity point and updates the running drawdown. marks maps symbol to
// bar close.
func (pf *Portfolio) Snapshot(at time.Time, marks map[string]float64) EquityPoint {
	equity := pf.cash
	for sym, pos := range pf.positions {
		equity += pos.MarketValue(marks[sym])
	}
	pt := EquityPoint{Timestamp: at, Equity: equity}
	pf.curve = append(pf.curve, pt)

	if equity > pf.peakEquity {
		pf.peakEquity = equity
	}
	if pf.peakEquity > 0 {
		dd := (pf.peakEquity - equity) / pf.peakEquity
		if dd > pf.maxDrawdown {
			pf.maxDrawdown = dd
		}
	}
	return pt
}

// Equity returns cash plus positions marked at the given prices,
// without recording a snapshot.
func (pf *Portfolio) Equity(marks map[string]float64) float64 {
	equity := pf.cash
	for sym, pos := range pf.positions {
		equity += pos.MarketValue(marks[sym])
	}
	return equity
}

func (pf *Portfolio) recordRealized(pnl float64, at time.Time) {
	if !sameDay(pf.dailyLossDay, at) {
		pf.dailyLossDay = at
		pf.dailyRealized = 0
	}
	pf.dailyRealized += pnl

	if pnl < 0 {
		pf.consecutiveLosses++
	} else {
		pf.consecutiveLosses = 0
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
