// internal/ledger/state.go
package ledger

import "time"

// State is the serializable snapshot of a session, used by the storage
// layer to survive restarts.
type State struct {
	SessionID   string     `json:"session_id"`
	SavedAt     time.Time  `json:"saved_at"`
	StartSol    float64    `json:"start_sol"`
	CashSol     float64    `json:"cash_sol"`
	RealizedSol float64    `json:"realized_sol"`
	WinStreak   int        `json:"win_streak"`
	LossStreak  int        `json:"loss_streak"`
	Multiplier  int        `json:"multiplier"`
	Positions   []Position `json:"positions"`
	Trades      []Trade    `json:"trades"`
}

func (l *Ledger) stateLocked() State {
	st := State{
		SavedAt:     time.Now(),
		StartSol:    l.cfg.StartSol,
		CashSol:     l.cashSol,
		RealizedSol: l.realizedSol,
		WinStreak:   l.winStreak,
		LossStreak:  l.lossStreak,
		Multiplier:  l.lastPortfolioMultiplier,
		Positions:   make([]Position, 0, len(l.positions)),
		Trades:      make([]Trade, len(l.trades)),
	}
	for _, pos := range l.positions {
		st.Positions = append(st.Positions, *pos)
	}
	copy(st.Trades, l.trades)
	return st
}

// Snapshot returns a copy of the full session state.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

// Restore replaces the in-memory session with a previously saved state.
func (l *Ledger) Restore(st State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cashSol = st.CashSol
	l.realizedSol = st.RealizedSol
	l.winStreak = st.WinStreak
	l.lossStreak = st.LossStreak
	l.lastPortfolioMultiplier = st.Multiplier

	l.positions = make(map[string]*Position, len(st.Positions))
	for i := range st.Positions {
		pos := st.Positions[i]
		l.positions[pos.Key] = &pos
	}

	l.trades = make([]Trade, len(st.Trades))
	copy(l.trades, st.Trades)
}
