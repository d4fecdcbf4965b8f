// Package commission implements the HKEX cash-equity fee model. Each
// fee component carries its own rate and caps, is rounded to 2 decimals
// with banker's rounding, and the trade total is the sum of the rounded
// components.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/hkquant/equity-backtest/pkg/types"
)

// Side distinguishes buy and sell fee treatment.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Breakdown itemizes the fees charged on one fill, in HKD, each
// component already rounded to 2 decimals.
type Breakdown struct {
	Commission   float64 `json:"commission"`
	StampDuty    float64 `json:"stamp_duty"`
	TradingFee   float64 `json:"trading_fee"`
	Settlement   float64 `json:"settlement_fee"`
	CCASS        float64 `json:"ccass_fee"`
	InvestorComp float64 `json:"investor_comp_fee"`
	Total        float64 `json:"total"`
}

// Add returns the component-wise sum of two breakdowns, for orders
// executed across several fills.
func (b Breakdown) Add(o Breakdown) Breakdown {
	return Breakdown{
		Commission:   b.Commission + o.Commission,
		StampDuty:    b.StampDuty + o.StampDuty,
		TradingFee:   b.TradingFee + o.TradingFee,
		Settlement:   b.Settlement + o.Settlement,
		CCASS:        b.CCASS + o.CCASS,
		InvestorComp: b.InvestorComp + o.InvestorComp,
		Total:        b.Total + o.Total,
	}
}

// component is one line of the fee schedule. A max of 0 means no cap.
type component struct {
	rate     float64
	min      float64
	max      float64
	sellOnly bool
}

// Schedule is the full HKEX fee table. Zero value is unusable; build
// one with NewSchedule.
type Schedule struct {
	commission   component
	tradingFee   component
	settlement   component
	ccass        component
	stampDuty    component
	investorComp component
}

// NewSchedule returns the standard HKEX schedule. The stamp duty
// minimum is frozen at 1.00 HKD for reproducibility across rule years.
func NewSchedule() *Schedule {
	return &Schedule{
		commission:   component{rate: 0.00025, min: 5.00, max: 100.00},
		tradingFee:   component{rate: 0.00005, min: 0.01, max: 100.00},
		settlement:   component{rate: 0.00002, min: 2.00, max: 100.00},
		ccass:        component{rate: 0.00002, min: 2.00, max: 100.00},
		stampDuty:    component{rate: 0.0013, min: 1.00, sellOnly: true},
		investorComp: component{rate: 0.00002, max: 100.00, sellOnly: true},
	}
}

// WithCommissionRate overrides the broker commission rate, keeping the
// min/max caps. Used for per-request commissionRate overrides.
func (s *Schedule) WithCommissionRate(rate float64) *Schedule {
	out := *s
	out.commission.rate = rate
	return &out
}

// WithStampDutyMin overrides the stamp duty minimum charge.
func (s *Schedule) WithStampDutyMin(min float64) *Schedule {
	out := *s
	out.stampDuty.min = min
	return &out
}

// Calculate computes the fee breakdown for a fill of qty shares at
// price, for the given symbol metadata. Stamp duty is sell-only and
// zero for ETFs; the investor compensation levy is sell-only.
func (s *Schedule) Calculate(side Side, price float64, qty int64, meta types.SymbolMeta) Breakdown {
	value := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty))

	b := Breakdown{
		Commission: s.commission.charge(value),
		TradingFee: s.tradingFee.charge(value),
		Settlement: s.settlement.charge(value),
		CCASS:      s.ccass.charge(value),
	}
	if side == Sell {
		if !meta.IsETF {
			b.StampDuty = s.stampDuty.charge(value)
		}
		b.InvestorComp = s.investorComp.charge(value)
	}
	b.Total = round2(b.Commission + b.StampDuty + b.TradingFee + b.Settlement + b.CCASS + b.InvestorComp)
	return b
}

// charge applies rate then min/max caps, returning a 2-decimal
// banker's-rounded amount.
func (c component) charge(value decimal.Decimal) float64 {
	fee := value.Mul(decimal.NewFromFloat(c.rate))
	if c.min > 0 {
		if min := decimal.NewFromFloat(c.min); fee.LessThan(min) {
			fee = min
		}
	}
	if c.max > 0 {
		if max := decimal.NewFromFloat(c.max); fee.GreaterThan(max) {
			fee = max
		}
	}
	f, _ := fee.RoundBank(2).Float64()
	return f
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).RoundBank(2).Float64()
	return f
}
