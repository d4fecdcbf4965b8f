// Package order models exchange orders and their lifecycle. Transitions
// outside the allowed table fail with INVALID_STATE_TRANSITION and
// leave the order untouched.
package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/hkquant/equity-backtest/internal/commission"
	"github.com/hkquant/equity-backtest/internal/engineerr"
)

// Side is the trade direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type is the order type.
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

// Status is the lifecycle state.
type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusSubmitted     Status = "SUBMITTED"
	StatusPartialFilled Status = "PARTIAL_FILLED"
	StatusFilled        Status = "FILLED"
	StatusRejected      Status = "REJECTED"
	StatusCancelled     Status = "CANCELLED"
)

// transitions is the allowed state table. Absent source states are
// terminal.
var transitions = map[Status]map[Status]bool{
	StatusCreated: {
		StatusSubmitted: true,
		StatusCancelled: true,
	},
	StatusSubmitted: {
		StatusPartialFilled: true,
		StatusFilled:        true,
		StatusRejected:      true,
		StatusCancelled:     true,
	},
	StatusPartialFilled: {
		StatusFilled:    true,
		StatusCancelled: true,
	},
}

// Order is one exchange order. Quantity is always a whole multiple of
// the symbol's lot size; price fields are HKD.
type Order struct {
	ID             string
	Symbol         string
	Side           Side
	Type           Type
	Quantity       int64
	SuggestedPrice float64
	ExecutedPrice  float64
	ExecutedQty    int64
	Fees           commission.Breakdown
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New creates an order in CREATED state.
func New(symbol string, side Side, orderType Type, qty int64, price float64, now time.Time) *Order {
	return &Order{
		ID:             uuid.New().String(),
		Symbol:         symbol,
		Side:           side,
		Type:           orderType,
		Quantity:       qty,
		SuggestedPrice: price,
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Transition moves the order to the target status. An illegal move
// returns INVALID_STATE_TRANSITION without mutating the order.
func (o *Order) Transition(to Status, now time.Time) error {
	if !transitions[o.Status][to] {
		return engineerr.New(engineerr.CodeInvalidStateTransition, "order",
			"illegal order transition "+string(o.Status)+" -> "+string(to)).
			WithSymbol(o.Symbol)
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// Fill records an execution and moves to FILLED (or PARTIAL_FILLED when
// qty is below the ordered quantity). Fills accumulate: ExecutedPrice
// is the volume-weighted average across fills and Fees sum per
// component. A FILLED order never mutates again.
func (o *Order) Fill(price float64, qty int64, fees commission.Breakdown, now time.Time) error {
	target := StatusFilled
	if o.ExecutedQty+qty < o.Quantity {
		target = StatusPartialFilled
	}
	if !transitions[o.Status][target] {
		return engineerr.New(engineerr.CodeInvalidStateTransition, "order",
			"illegal order transition "+string(o.Status)+" -> "+string(target)).
			WithSymbol(o.Symbol)
	}
	if o.ExecutedQty == 0 {
		o.ExecutedPrice = price
		o.Fees = fees
	} else {
		filled := float64(o.ExecutedQty)
		o.ExecutedPrice = (o.ExecutedPrice*filled + price*float64(qty)) / (filled + float64(qty))
		o.Fees = o.Fees.Add(fees)
	}
	o.ExecutedQty += qty
	o.Status = target
	o.UpdatedAt = now
	return nil
}

// Terminal reports whether the order can transition no further.
func (o *Order) Terminal() bool {
	return len(transitions[o.Status]) == 0
}
