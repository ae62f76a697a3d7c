// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trading-journal/internal/calendar"
	"trading-journal/internal/models"
)

// Repository defines the interface for journal persistence.
type Repository interface {
	// Trades
	SaveTrade(ctx context.Context, trade *models.TradeRecord) error
	SaveTrades(ctx context.Context, trades []models.TradeRecord) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.TradeRecord, error)
	DeleteTrade(ctx context.Context, userID, id string) error

	// Check-ins
	SaveCheckIn(ctx context.Context, checkIn *models.CheckInRecord) error
	GetCheckIns(ctx context.Context, filter CheckInFilter) ([]models.CheckInRecord, error)

	// Imports
	RecordImport(ctx context.Context, rec ImportRecord) error
	GetImports(ctx context.Context, userID string, limit int) ([]ImportRecord, error)

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades. Zero values do not filter.
type TradeFilter struct {
	UserID     string
	Instrument string
	From       calendar.Date
	To         calendar.Date
	ClosedOnly bool
	// Limit keeps the most recent trades.
	Limit int
}

// CheckInFilter represents filters for querying check-ins.
type CheckInFilter struct {
	UserID string
	From   calendar.Date
	To     calendar.Date
}

// ImportRecord is the history entry for one file import.
type ImportRecord struct {
	UserID     string    `json:"user_id"`
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Imported   int       `json:"imported"`
	Failed     int       `json:"failed"`
	ImportedAt time.Time `json:"imported_at"`
}
