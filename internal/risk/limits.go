// Package risk implements the pre-trade validation chain and the
// adaptive position sizer.
package risk

// Limits are the per-run risk parameters.
type Limits struct {
	TotalCapital         float64 `json:"total_capital"`
	MaxSinglePosition    float64 `json:"max_single_position"`
	MaxDailyLoss         float64 `json:"max_daily_loss"`    // fraction of total capital
	MaxDrawdown          float64 `json:"max_drawdown"`      // fraction
	ConsecutiveLossLimit int     `json:"consecutive_loss_limit"`
	MinPosition          float64 `json:"min_position"` // HKD floor for any sized trade
}

// DefaultLimits returns the standard configuration for capital.
func DefaultLimits(capital float64) Limits {
	return Limits{
		TotalCapital:         capital,
		MaxSinglePosition:    capital * 0.30,
		MaxDailyLoss:         0.03,
		MaxDrawdown:          0.15,
		ConsecutiveLossLimit: 5,
		MinPosition:          20000,
	}
}
