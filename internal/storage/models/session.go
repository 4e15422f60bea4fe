// internal/storage/models/session.go
package models

import "time"

// SessionState is one persisted snapshot of a paper-trading session. The
// ledger payload is stored as JSON so schema churn in the ledger does not
// require a column migration.
type SessionState struct {
	BaseModel
	SessionName string    `gorm:"unique;not null;type:varchar(100)"`
	StartSol    float64   `gorm:"type:decimal(20,9);not null"`
	CashSol     float64   `gorm:"type:decimal(20,9);not null"`
	RealizedSol float64   `gorm:"type:decimal(20,9)"`
	Payload     []byte    `gorm:"type:jsonb;not null"`
	SavedAt     time.Time `gorm:"index;not null"`
}

// TradeRecord mirrors a committed simulated fill for offline analytics.
type TradeRecord struct {
	BaseModel
	TradeID        string    `gorm:"unique;not null;type:varchar(64)"`
	SessionName    string    `gorm:"index;not null;type:varchar(100)"`
	InstrumentKey  string    `gorm:"index;not null;type:varchar(64)"`
	Mint           string    `gorm:"type:varchar(44)"`
	Symbol         string    `gorm:"type:varchar(20)"`
	Side           string    `gorm:"not null;type:varchar(4)"`
	Qty            float64   `gorm:"type:decimal(30,12);not null"`
	SolSize        float64   `gorm:"type:decimal(20,9);not null"`
	PriceUsd       float64   `gorm:"type:decimal(30,18);not null"`
	MarketCapUsd   float64   `gorm:"type:decimal(24,4)"`
	RealizedPnlSol float64   `gorm:"type:decimal(20,9)"`
	ExecutedAt     time.Time `gorm:"index;not null"`
}
