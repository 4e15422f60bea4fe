// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Price events
	PriceResolved EventType = "price.resolved"

	// Instrument events
	ContextChanged EventType = "context.changed"

	// Trade events
	TradeExecuted EventType = "trade.executed"

	// Milestone events, consumed by presentation-layer collaborators
	StreakReached      EventType = "milestone.streak"
	PortfolioMilestone EventType = "milestone.portfolio"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// PriceResolvedEvent is emitted when the resolver accepts a new canonical
// price for the active instrument.
type PriceResolvedEvent struct {
	BaseEvent
	Mint       string
	Symbol     string
	PriceUsd   float64
	Source     string
	Confidence int
}

// ContextChangedEvent is emitted when the watched instrument changes.
type ContextChangedEvent struct {
	BaseEvent
	Mint   string
	Symbol string
}

// TradeExecutedEvent is emitted after a simulated fill commits.
type TradeExecutedEvent struct {
	BaseEvent
	TradeID         string
	Mint            string
	Side            string
	Qty             float64
	SolSize         float64
	PriceUsd        float64
	RealizedPnlSol  float64
	RealizedApplies bool // false on buys
}

// StreakKind discriminates win and loss streak milestones.
type StreakKind string

const (
	StreakWin  StreakKind = "win"
	StreakLoss StreakKind = "loss"
)

// StreakReachedEvent is emitted at streak checkpoints (every 5th win;
// losses at 3, 5, then every 5th).
type StreakReachedEvent struct {
	BaseEvent
	Kind  StreakKind
	Count int
}

// PortfolioMilestoneEvent is emitted when the session equity reaches a new
// whole multiple of the starting balance.
type PortfolioMilestoneEvent struct {
	BaseEvent
	Multiplier int
	EquitySol  float64
}
