package types

import "time"

// ActionKind identifies a corporate action event.
type ActionKind string

const (
	ActionDividend    ActionKind = "DIVIDEND"
	ActionSplit       ActionKind = "SPLIT"
	ActionMerge       ActionKind = "MERGE"
	ActionBonus       ActionKind = "BONUS"
	ActionRightsIssue ActionKind = "RIGHTS_ISSUE"
)

// CorporateAction is one event per (symbol, ex-dividend date).
// Only the numeric fields relevant to its Kind are populated.
type CorporateAction struct {
	Symbol string
	ExDate time.Time
	Kind   ActionKind

	// Cash dividend per share, HKD.
	Dividend float64

	// Split: holders receive SplitRatio new shares per SplitBase old.
	SplitBase  float64
	SplitRatio float64

	// Merge (reverse split): JoinRatio old shares become JoinBase new.
	JoinBase  float64
	JoinRatio float64

	// Bonus: BonusRatio extra shares per BonusBase held.
	BonusBase  float64
	BonusRatio float64

	// Rights issue: RightsRatio new shares per RightsBase held at RightsPrice.
	RightsBase  float64
	RightsRatio float64
	RightsPrice float64

	// BackwardAdjFactor is the per-event backward factor. Zero means
	// "derive from the unadjusted series" (see adjust.FactorFor).
	BackwardAdjFactor float64
}
