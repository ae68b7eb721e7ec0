package ledger

import (
	"context"
	"errors"
	"time"

	"prism/internal/domain"
	"prism/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Reconciliation compares a ledger's cached balance with its transaction log
type Reconciliation struct {
	AccountID       string          `json:"accountId"`
	StoredBalance   decimal.Decimal `json:"storedBalance"`
	ComputedBalance decimal.Decimal `json:"computedBalance"`
	Transactions    int             `json:"transactions"`
	Consistent      bool            `json:"consistent"`
	Repaired        bool            `json:"repaired,omitempty"`
}

func reconcileLedger(l *domain.Ledger) Reconciliation {
	computed := l.ComputedBalance()
	return Reconciliation{
		AccountID:       l.AccountID,
		StoredBalance:   l.Balance,
		ComputedBalance: computed,
		Transactions:    len(l.Transactions),
		Consistent:      computed.Equal(l.Balance),
	}
}

// Reconcile recomputes the balance of one ledger from its log. An account
// with no ledger yet is trivially consistent.
func (s *Service) Reconcile(ctx context.Context, accountID string) (*Reconciliation, error) {
	const op = "ledger.Reconcile"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAccount(ctx, op, accountID); err != nil {
		return nil, err
	}
	return s.reconcileOne(ctx, op, accountID)
}

func (s *Service) reconcileOne(ctx context.Context, op, accountID string) (*Reconciliation, error) {
	unlock, err := s.locks.Lock(ctx, accountID)
	if err != nil {
		return nil, failure(op, accountID, ErrPersistence, err)
	}
	defer unlock()

	l, err := s.store.LoadLedger(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return &Reconciliation{AccountID: accountID, Consistent: true}, nil
	}
	if err != nil {
		return nil, failure(op, accountID, ErrPersistence, err)
	}
	r := reconcileLedger(l)
	return &r, nil
}

// ReconcileAll checks every ledger and returns one report per account
func (s *Service) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	const op = "ledger.ReconcileAll"
	start := time.Now()

	reports, err := s.reconcileAll(ctx, op)
	s.metrics.observe("reconcile", start, err)
	return reports, err
}

func (s *Service) reconcileAll(ctx context.Context, op string) ([]Reconciliation, error) {
	ids, err := s.store.ListAccountIDs(ctx)
	if err != nil {
		return nil, failure(op, "", ErrPersistence, err)
	}
	reports := make([]Reconciliation, 0, len(ids))
	mismatched := 0
	for _, id := range ids {
		r, err := s.reconcileOne(ctx, op, id)
		if err != nil {
			return nil, err
		}
		if !r.Consistent {
			mismatched++
			s.log.WithFields(logrus.Fields{
				"account_id":       id,
				"stored_balance":   r.StoredBalance.String(),
				"computed_balance": r.ComputedBalance.String(),
			}).Error("Ledger balance diverges from transaction log")
		}
		reports = append(reports, *r)
	}
	s.metrics.mismatches(mismatched)
	return reports, nil
}

// Repair rewrites a diverged balance from the transaction log, which is the
// source of truth. Consistent ledgers are left untouched.
func (s *Service) Repair(ctx context.Context, accountID string) (*Reconciliation, error) {
	const op = "ledger.Repair"
	start := time.Now()

	r, err := s.repair(ctx, op, accountID)
	s.metrics.observe("repair", start, err)
	return r, err
}

func (s *Service) repair(ctx context.Context, op, accountID string) (*Reconciliation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAccount(ctx, op, accountID); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, accountID)
	if err != nil {
		return nil, failure(op, accountID, ErrPersistence, err)
	}
	defer unlock()

	var report Reconciliation
	err = s.store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		l, err := tx.LoadLedger(ctx, accountID)
		if errors.Is(err, repository.ErrNotFound) {
			report = Reconciliation{AccountID: accountID, Consistent: true}
			return nil
		}
		if err != nil {
			return err
		}
		report = reconcileLedger(l)
		if report.Consistent {
			return nil
		}
		l.Balance = report.ComputedBalance
		l.LastUpdated = s.now()
		if err := tx.SaveLedger(ctx, l); err != nil {
			return err
		}
		report.Repaired = true
		return nil
	})
	if err != nil {
		return nil, failure(op, accountID, ErrPersistence, err)
	}
	if report.Repaired {
		s.invalidate(ctx, accountID)
		s.log.WithFields(logrus.Fields{
			"account_id":     accountID,
			"stored_balance": report.StoredBalance.String(),
			"balance":        report.ComputedBalance.String(),
		}).Warn("Ledger balance repaired from transaction log")
	}
	return &report, nil
}
