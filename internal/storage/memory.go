// internal/storage/memory.go
package storage

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/needsmorergb/paperterm/internal/storage/models"
)

// memoryStorage keeps everything in process memory. It is the default when
// no database DSN is configured, and the backend the tests run against.
type memoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionState
	trades   []models.TradeRecord
	nextID   uint
}

// NewMemoryStorage creates an in-memory Storage.
func NewMemoryStorage() Storage {
	return &memoryStorage{
		sessions: make(map[string]models.SessionState),
		nextID:   1,
	}
}

func (m *memoryStorage) SaveSession(_ context.Context, state *models.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[state.SessionName]; ok {
		state.ID = existing.ID
	} else {
		state.ID = m.nextID
		m.nextID++
	}
	m.sessions[state.SessionName] = *state
	return nil
}

func (m *memoryStorage) GetSession(_ context.Context, sessionName string) (*models.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionName]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &state, nil
}

func (m *memoryStorage) SaveTrade(_ context.Context, trade *models.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	trade.ID = m.nextID
	m.nextID++
	m.trades = append(m.trades, *trade)
	return nil
}

func (m *memoryStorage) ListTrades(_ context.Context, instrumentKey string, limit, offset int) ([]*models.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.TradeRecord
	// Newest first, matching the SQL backend's ordering.
	for i := len(m.trades) - 1; i >= 0; i-- {
		if instrumentKey == "" || m.trades[i].InstrumentKey == instrumentKey {
			trade := m.trades[i]
			matched = append(matched, &trade)
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memoryStorage) RunMigrations() error { return nil }
