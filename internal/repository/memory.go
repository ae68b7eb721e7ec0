package repository

import (
	"context"
	"sort"
	"sync"

	"prism/internal/domain"
)

// MemoryStore is a process-local LedgerStore. Transactions stage their
// writes and publish them in one step on commit.
type MemoryStore struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.Ledger
	txMu    sync.Mutex // Serializes WithinTx callers
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ledgers: make(map[string]*domain.Ledger)}
}

func (s *MemoryStore) LoadLedger(ctx context.Context, accountID string) (*domain.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

func (s *MemoryStore) CreateLedger(ctx context.Context, ledger *domain.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ledgers[ledger.AccountID]; ok {
		return ErrConflict
	}
	s.ledgers[ledger.AccountID] = ledger.Clone()
	return nil
}

func (s *MemoryStore) SaveLedger(ctx context.Context, ledger *domain.Ledger, appended ...domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkSave(s.ledgers[ledger.AccountID], ledger, appended); err != nil {
		return err
	}
	ledger.Version++
	s.ledgers[ledger.AccountID] = ledger.Clone()
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, accountID string, offset, limit int) ([]domain.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[accountID]
	if !ok {
		return []domain.Transaction{}, 0, nil
	}
	return pageNewestFirst(l.Transactions, offset, limit), int64(len(l.Transactions)), nil
}

func (s *MemoryStore) ListAccountIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.ledgers))
	for id := range s.ledgers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx LedgerStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memoryTx{
		base:   s,
		staged: make(map[string]*domain.Ledger),
		seen:   make(map[string]int64),
	}
	if err := fn(tx); err != nil {
		return err // Staged writes are dropped
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range tx.staged {
		if versionOf(s.ledgers[id]) != tx.seen[id] {
			return ErrConflict // Written outside the transaction meanwhile
		}
	}
	for id, l := range tx.staged {
		s.ledgers[id] = l
	}
	return nil
}

// memoryTx reads through its staged writes to the base store
type memoryTx struct {
	base   *MemoryStore
	staged map[string]*domain.Ledger
	seen   map[string]int64 // Base version at first read, -1 when absent
}

func (t *memoryTx) current(accountID string) *domain.Ledger {
	if l, ok := t.staged[accountID]; ok {
		return l
	}
	t.base.mu.RLock()
	defer t.base.mu.RUnlock()
	l := t.base.ledgers[accountID]
	if _, ok := t.seen[accountID]; !ok {
		t.seen[accountID] = versionOf(l)
	}
	return l
}

func (t *memoryTx) LoadLedger(ctx context.Context, accountID string) (*domain.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := t.current(accountID)
	if l == nil {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

func (t *memoryTx) CreateLedger(ctx context.Context, ledger *domain.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.current(ledger.AccountID) != nil {
		return ErrConflict
	}
	t.staged[ledger.AccountID] = ledger.Clone()
	return nil
}

func (t *memoryTx) SaveLedger(ctx context.Context, ledger *domain.Ledger, appended ...domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSave(t.current(ledger.AccountID), ledger, appended); err != nil {
		return err
	}
	ledger.Version++
	t.staged[ledger.AccountID] = ledger.Clone()
	return nil
}

func (t *memoryTx) ListTransactions(ctx context.Context, accountID string, offset, limit int) ([]domain.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	l := t.current(accountID)
	if l == nil {
		return []domain.Transaction{}, 0, nil
	}
	return pageNewestFirst(l.Transactions, offset, limit), int64(len(l.Transactions)), nil
}

func (t *memoryTx) ListAccountIDs(ctx context.Context) ([]string, error) {
	ids, err := t.base.ListAccountIDs(ctx)
	if err != nil {
		return nil, err
	}
	for id := range t.staged {
		i := sort.SearchStrings(ids, id)
		if i < len(ids) && ids[i] == id {
			continue
		}
		ids = append(ids, "")
		copy(ids[i+1:], ids[i:])
		ids[i] = id
	}
	return ids, nil
}

func (t *memoryTx) WithinTx(_ context.Context, fn func(tx LedgerStore) error) error {
	return fn(t)
}

func versionOf(l *domain.Ledger) int64 {
	if l == nil {
		return -1
	}
	return l.Version
}

// checkSave enforces the version guard and the append-only history rule
func checkSave(stored, next *domain.Ledger, appended []domain.Transaction) error {
	if stored == nil || stored.Version != next.Version {
		return ErrConflict
	}
	if len(next.Transactions) != len(stored.Transactions)+len(appended) {
		return ErrConflict
	}
	for i, t := range appended {
		if t.Seq != int64(len(stored.Transactions)+i+1) {
			return ErrConflict
		}
	}
	return nil
}

func pageNewestFirst(txs []domain.Transaction, offset, limit int) []domain.Transaction {
	page := []domain.Transaction{}
	if offset < 0 || offset >= len(txs) {
		return page
	}
	for i := len(txs) - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, txs[i])
	}
	return page
}
