// internal/storage/saver.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/needsmorergb/paperterm/internal/ledger"
	"github.com/needsmorergb/paperterm/internal/storage/models"
)

// SessionSaver adapts a Storage backend to the ledger's persistence hook.
// Each save upserts the session row and mirrors any trades not yet seen.
type SessionSaver struct {
	mu          sync.Mutex
	store       Storage
	sessionName string
	logger      *zap.Logger
	seenTrades  map[string]struct{}
}

// NewSessionSaver creates a saver bound to one named session.
func NewSessionSaver(store Storage, sessionName string, logger *zap.Logger) *SessionSaver {
	return &SessionSaver{
		store:       store,
		sessionName: sessionName,
		logger:      logger.Named("session_saver"),
		seenTrades:  make(map[string]struct{}),
	}
}

// SaveState persists a ledger snapshot.
func (s *SessionSaver) SaveState(ctx context.Context, st ledger.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	row := &models.SessionState{
		SessionName: s.sessionName,
		StartSol:    st.StartSol,
		CashSol:     st.CashSol,
		RealizedSol: st.RealizedSol,
		Payload:     payload,
		SavedAt:     st.SavedAt,
	}
	if err := s.store.SaveSession(ctx, row); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for _, trade := range st.Trades {
		if _, ok := s.seenTrades[trade.ID]; ok {
			continue
		}
		record := &models.TradeRecord{
			TradeID:        trade.ID,
			SessionName:    s.sessionName,
			InstrumentKey:  trade.Key,
			Mint:           trade.Mint,
			Symbol:         trade.Symbol,
			Side:           string(trade.Side),
			Qty:            trade.Qty,
			SolSize:        trade.SolSize,
			PriceUsd:       trade.PriceUsd,
			MarketCapUsd:   trade.MarketCapUsd,
			RealizedPnlSol: trade.RealizedPnlSol,
			ExecutedAt:     trade.Ts,
		}
		if err := s.store.SaveTrade(ctx, record); err != nil {
			s.logger.Warn("Failed to mirror trade",
				zap.String("trade_id", trade.ID),
				zap.Error(err))
			continue
		}
		s.seenTrades[trade.ID] = struct{}{}
	}

	return nil
}

// LoadState fetches the previously saved snapshot for this session, if any.
func (s *SessionSaver) LoadState(ctx context.Context) (ledger.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.store.GetSession(ctx, s.sessionName)
	if err != nil {
		return ledger.State{}, false, nil
	}

	var st ledger.State
	if err := json.Unmarshal(row.Payload, &st); err != nil {
		return ledger.State{}, false, fmt.Errorf("failed to decode session state: %w", err)
	}

	for _, trade := range st.Trades {
		s.seenTrades[trade.ID] = struct{}{}
	}
	return st, true, nil
}
