package risk

import (
	"fmt"
	"time"

	"github.com/hkquant/equity-backtest/internal/commission"
	"github.com/hkquant/equity-backtest/internal/engineerr"
	"github.com/hkquant/equity-backtest/internal/portfolio"
	"github.com/hkquant/equity-backtest/internal/signal"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// Manager sizes signals and runs the pre-trade validation chain.
type Manager struct {
	limits Limits
	fees   *commission.Schedule
}

// NewManager creates a manager with the given limits and fee schedule.
// The schedule is used to estimate buy-side fees in the capital check.
func NewManager(limits Limits, fees *commission.Schedule) *Manager {
	return &Manager{limits: limits, fees: fees}
}

// Limits returns the active limits.
func (m *Manager) Limits() Limits { return m.limits }

// Size converts a signal into a share quantity. The notional follows
// the adaptive formula, is clamped to [MinPosition, MaxSinglePosition]
// and quantized down to a whole lot. A zero quantity means the signal
// is too small to trade at this price and lot size.
func (m *Manager) Size(sig *signal.Signal, winRate float64, meta types.SymbolMeta) int64 {
	base := m.limits.MaxSinglePosition
	atrRatio := clamp(sig.ATRRatio, 0.5, 1.5)
	strengthFactor := sig.Strength / 100
	notional := base * (2 - atrRatio) * strengthFactor * (0.5 + winRate*0.5)

	notional = clamp(notional, m.limits.MinPosition, m.limits.MaxSinglePosition)

	if sig.Price <= 0 {
		return 0
	}
	lot := meta.LotSize
	if lot <= 0 {
		lot = types.DefaultLotSize
	}
	shares := int64(notional / sig.Price)
	return shares - shares%lot
}

// Validate runs the ordered pre-trade checks for a buy of qty shares at
// price. The first failure wins and is reported as RISK_REJECTED.
func (m *Manager) Validate(pf *portfolio.Portfolio, meta types.SymbolMeta, qty int64, price float64, at time.Time) error {
	estFees := m.fees.Calculate(commission.Buy, price, qty, meta)
	cost := float64(qty)*price + estFees.Total

	if cost > pf.Cash() {
		return m.reject(meta.Symbol, fmt.Sprintf(
			"insufficient capital: need %.2f, cash %.2f", cost, pf.Cash()))
	}
	if notional := float64(qty) * price; notional > m.limits.MaxSinglePosition {
		return m.reject(meta.Symbol, fmt.Sprintf(
			"notional %.2f exceeds single-position cap %.2f", notional, m.limits.MaxSinglePosition))
	}
	if loss := pf.DailyRealizedLoss(at); loss > m.limits.MaxDailyLoss*m.limits.TotalCapital {
		return m.reject(meta.Symbol, fmt.Sprintf(
			"daily loss %.2f breaches limit %.2f", loss, m.limits.MaxDailyLoss*m.limits.TotalCapital))
	}
	if pf.ConsecutiveLosses() >= m.limits.ConsecutiveLossLimit {
		return m.reject(meta.Symbol, fmt.Sprintf(
			"%d consecutive losses at limit %d", pf.ConsecutiveLosses(), m.limits.ConsecutiveLossLimit))
	}
	if pf.MaxDrawdown() > m.limits.MaxDrawdown {
		return m.reject(meta.Symbol, fmt.Sprintf(
			"drawdown %.4f beyond limit %.4f", pf.MaxDrawdown(), m.limits.MaxDrawdown))
	}
	return nil
}

func (m *Manager) reject(symbol, msg string) error {
	return engineerr.New(engineerr.CodeRiskRejected, "risk", msg).WithSymbol(symbol)
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
