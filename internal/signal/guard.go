package signal

// Performance guard parameters.
const (
	guardWindow      = 30
	guardMinWinRate  = 0.30
	guardMaxLossRun  = 3
	guardRecoverWins = 2
)

// strategyRecord is the rolling outcome history for one strategy.
type strategyRecord struct {
	outcomes   []bool // true = win, newest last, capped at guardWindow
	lossRun    int
	suppressed bool
	recovery   int // wins counted while suppressed
}

// Guard suppresses strategies that have gone cold: a low rolling win
// rate or a losing streak mutes the strategy until two winning trades
// have occurred from any source.
type Guard struct {
	records map[string]*strategyRecord
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{records: make(map[string]*strategyRecord)}
}

func (g *Guard) record(strategy string) *strategyRecord {
	r, ok := g.records[strategy]
	if !ok {
		r = &strategyRecord{}
		g.records[strategy] = r
	}
	return r
}

// RecordTrade feeds one completed trade outcome. Wins count toward
// recovery for every suppressed strategy, whichever strategy produced
// them.
func (g *Guard) RecordTrade(strategy string, win bool) {
	r := g.record(strategy)
	r.outcomes = append(r.outcomes, win)
	if len(r.outcomes) > guardWindow {
		r.outcomes = r.outcomes[1:]
	}
	if win {
		r.lossRun = 0
	} else {
		r.lossRun++
	}

	if win {
		for _, rec := range g.records {
			if rec.suppressed {
				rec.recovery++
				if rec.recovery >= guardRecoverWins {
					rec.suppressed = false
					rec.recovery = 0
					rec.lossRun = 0
				}
			}
		}
	}

	if !r.suppressed && (r.lossRun >= guardMaxLossRun ||
		(len(r.outcomes) >= 10 && r.winRate() < guardMinWinRate)) {
		r.suppressed = true
		r.recovery = 0
	}
}

// Suppressed reports whether the strategy is currently muted.
func (g *Guard) Suppressed(strategy string) bool {
	r, ok := g.records[strategy]
	return ok && r.suppressed
}

// WinRate returns the rolling win rate for strategy, defaulting to 0.5
// with fewer than 10 samples.
func (g *Guard) WinRate(strategy string) float64 {
	r, ok := g.records[strategy]
	if !ok || len(r.outcomes) < 10 {
		return 0.5
	}
	return r.winRate()
}

func (r *strategyRecord) winRate() float64 {
	if len(r.outcomes) == 0 {
		return 0
	}
	wins := 0
	for _, w := range r.outcomes {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(r.outcomes))
}
