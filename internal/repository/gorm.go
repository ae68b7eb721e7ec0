package repository

import (
	"context"
	"errors"
	"fmt"

	"prism/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps ledgers in MySQL through GORM
type GormStore struct {
	db   *gorm.DB
	inTx bool // Rows are read FOR UPDATE when set
}

// NewGormStore wraps an open GORM handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LoadLedger(ctx context.Context, accountID string) (*domain.Ledger, error) {
	const op = "repository.LoadLedger"

	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"}) // Hold the row until commit
	}
	var ledger domain.Ledger
	err := q.Preload("Transactions", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq asc") // Insertion order is chronological order
	}).Where("account_id = ?", accountID).First(&ledger).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ledger.Transactions == nil {
		ledger.Transactions = []domain.Transaction{}
	}
	return &ledger, nil
}

func (s *GormStore) CreateLedger(ctx context.Context, ledger *domain.Ledger) error {
	const op = "repository.CreateLedger"

	row := *ledger
	row.Transactions = nil // History is inserted by SaveLedger only
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *GormStore) SaveLedger(ctx context.Context, ledger *domain.Ledger, appended ...domain.Transaction) error {
	const op = "repository.SaveLedger"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Ledger{}).
			Where("account_id = ? AND version = ?", ledger.AccountID, ledger.Version).
			Updates(map[string]any{
				"balance":        ledger.Balance,
				"wallet_address": ledger.WalletAddress,
				"last_updated":   ledger.LastUpdated,
				"version":        ledger.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict // Someone else moved the version
		}
		if len(appended) == 0 {
			return nil
		}
		return tx.Create(&appended).Error // Append-only insert
	})
	if errors.Is(err, ErrConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ledger.Version++
	return nil
}

func (s *GormStore) ListTransactions(ctx context.Context, accountID string, offset, limit int) ([]domain.Transaction, int64, error) {
	const op = "repository.ListTransactions"

	query := s.db.WithContext(ctx).Model(&domain.Transaction{}).Where("account_id = ?", accountID)
	var total int64 // Total transaction count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}
	var txs []domain.Transaction // Slice to hold the page
	if err := query.Order("seq desc").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return txs, total, nil
}

func (s *GormStore) ListAccountIDs(ctx context.Context) ([]string, error) {
	const op = "repository.ListAccountIDs"

	var ids []string
	if err := s.db.WithContext(ctx).Model(&domain.Ledger{}).Order("account_id").Pluck("account_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx LedgerStore) error) error {
	if s.inTx {
		return fn(s) // Already inside a database transaction
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}
