// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/needsmorergb/paperterm/internal/storage/models"
)

// Storage defines the persistence operations the session layer needs.
type Storage interface {
	// Sessions
	SaveSession(ctx context.Context, state *models.SessionState) error
	GetSession(ctx context.Context, sessionName string) (*models.SessionState, error)

	// Trades
	SaveTrade(ctx context.Context, trade *models.TradeRecord) error
	ListTrades(ctx context.Context, instrumentKey string, limit, offset int) ([]*models.TradeRecord, error)

	// Migrations
	RunMigrations() error
}
