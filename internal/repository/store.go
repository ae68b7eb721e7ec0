package repository

import (
	"context"
	"errors"

	"prism/internal/domain"
)

var (
	// ErrNotFound is returned when no ledger row exists for the account
	ErrNotFound = errors.New("ledger not found")
	// ErrConflict is returned when a write loses an optimistic version race
	// or collides with a row created concurrently
	ErrConflict = errors.New("ledger version conflict")
)

// LedgerStore is the durable per-account record storage behind the ledger
type LedgerStore interface {
	// LoadLedger returns the ledger with its full history, oldest first
	LoadLedger(ctx context.Context, accountID string) (*domain.Ledger, error)
	// CreateLedger inserts an empty ledger
	CreateLedger(ctx context.Context, ledger *domain.Ledger) error
	// SaveLedger persists balance, wallet address and timestamp guarded by
	// ledger.Version, inserts appended, and bumps ledger.Version on success
	SaveLedger(ctx context.Context, ledger *domain.Ledger, appended ...domain.Transaction) error
	// ListTransactions pages through an account's history, newest first
	ListTransactions(ctx context.Context, accountID string, offset, limit int) ([]domain.Transaction, int64, error)
	// ListAccountIDs returns every account that owns a ledger
	ListAccountIDs(ctx context.Context) ([]string, error)
	// WithinTx runs fn against a store whose writes commit together or not at all
	WithinTx(ctx context.Context, fn func(tx LedgerStore) error) error
}
