// Package ledger owns token balances and transaction history. It enforces
// that balances never go negative, that the stored balance always equals the
// sum of the transaction log, and that a transfer applies both of its legs
// or neither.
package ledger

import (
	"context"
	"errors"
	"time"

	"prism/internal/directory"
	"prism/internal/domain"
	"prism/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MaxScale is the number of fractional digits an amount may carry
const MaxScale = 8

// maxAmount keeps amounts inside a decimal(30,8) column
var maxAmount = decimal.New(1, 21)

// Directory is the account directory the ledger consults
type Directory interface {
	AccountExists(ctx context.Context, accountID string) (bool, error)
	GetAccountIdentity(ctx context.Context, accountID string) (directory.Identity, error)
	UpdateWalletAddress(ctx context.Context, accountID, address string) error
}

// Cache holds recently read ledgers. Misses and errors fall through to the store.
type Cache interface {
	Get(ctx context.Context, accountID string) (*domain.Ledger, bool, error)
	Set(ctx context.Context, ledger *domain.Ledger) error
	Invalidate(ctx context.Context, accountIDs ...string) error
}

// Options are the optional collaborators of a Service
type Options struct {
	Cache     Cache              // Read cache, nil disables caching
	Logger    logrus.FieldLogger // Defaults to the logrus standard logger
	Metrics   *Metrics           // Nil disables metrics
	OpTimeout time.Duration      // Per-operation deadline, zero disables it
	Now       func() time.Time   // Clock, defaults to time.Now
	NewID     func() string      // Transaction id source, defaults to UUIDv4
}

// Service is the ledger. All mutations of one account are serialized
// through its lock; transfers hold both accounts' locks.
type Service struct {
	store     repository.LedgerStore
	directory Directory
	cache     Cache
	locks     *Locker
	log       logrus.FieldLogger
	metrics   *Metrics
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
}

// NewService builds a ledger over store and directory
func NewService(store repository.LedgerStore, dir Directory, opts Options) *Service {
	s := &Service{
		store:     store,
		directory: dir,
		cache:     opts.Cache,
		locks:     NewLocker(),
		log:       opts.Logger,
		metrics:   opts.Metrics,
		timeout:   opts.OpTimeout,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// CreditRequest describes a one-way issuance of tokens
type CreditRequest struct {
	AccountID     string
	Amount        decimal.Decimal
	Description   string
	Kind          domain.TransactionType // airdrop (default), reward or purchase
	WalletAddress string                 // Optional, recorded on ledger and profile
}

// CreditResult is the ledger after the credit and the appended transaction
type CreditResult struct {
	Ledger      *domain.Ledger     `json:"ledger"`
	Transaction domain.Transaction `json:"transaction"`
}

// DebitRequest describes a payment out of an account
type DebitRequest struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
}

// TransferRequest describes a movement of tokens between two accounts
type TransferRequest struct {
	SenderID    string
	RecipientID string
	Amount      decimal.Decimal
	Description string
}

// TransferResult holds both new balances and both appended legs
type TransferResult struct {
	SenderBalance        decimal.Decimal    `json:"senderBalance"`
	RecipientBalance     decimal.Decimal    `json:"recipientBalance"`
	Transaction          domain.Transaction `json:"transaction"`
	RecipientTransaction domain.Transaction `json:"recipientTransaction"`
}

// GetLedger returns the ledger for accountID, creating an empty one on first access
func (s *Service) GetLedger(ctx context.Context, accountID string) (*domain.Ledger, error) {
	const op = "ledger.GetLedger"
	start := time.Now()

	l, err := s.getLedger(ctx, op, accountID)
	s.metrics.observe("get", start, err)
	return l, err
}

func (s *Service) getLedger(ctx context.Context, op, accountID string) (*domain.Ledger, error) {
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

	if l := s.cached(ctx, accountID); l != nil {
		return l, nil
	}
	l, err := s.loadOrCreate(ctx, s.store, accountID)
	if err != nil {
		return nil, failure(op, accountID, ErrPersistence, err)
	}
	s.fill(ctx, l)
	return l, nil
}

// Credit appends a positive transaction of the requested kind
func (s *Service) Credit(ctx context.Context, req CreditRequest) (*CreditResult, error) {
	const op = "ledger.Credit"
	start := time.Now()

	res, err := s.credit(ctx, op, req)
	s.metrics.observe("credit", start, err)
	if err != nil {
		s.logFailure(op, err, logrus.Fields{"account_id": req.AccountID, "amount": req.Amount.String()})
		return nil, err
	}
	s.metrics.moved(string(res.Transaction.Type), req.Amount.InexactFloat64())
	s.log.WithFields(logrus.Fields{
		"account_id": req.AccountID,                       // Credited account
		"amount":     req.Amount.String(),                 // Credited amount
		"type":       res.Transaction.Type,                // Transaction type
		"balance":    res.Ledger.Balance.String(),         // New balance
		"timestamp":  res.Transaction.Timestamp.Format(time.RFC3339),
	}).Info("Credit transaction")
	return res, nil
}

func (s *Service) credit(ctx context.Context, op string, req CreditRequest) (*CreditResult, error) {
	kind := req.Kind
	if kind == "" {
		kind = domain.TransactionAirdrop
	}
	if !kind.IsCredit() {
		return nil, failure(op, req.AccountID, ErrInvalidKind, nil)
	}
	if !ValidAmount(req.Amount) {
		return nil, failure(op, req.AccountID, ErrInvalidAmount, nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAccount(ctx, op, req.AccountID); err != nil {
		return nil, err
	}
	if req.WalletAddress != "" {
		// Convenience write; the ledger does not depend on it
		if err := s.directory.UpdateWalletAddress(ctx, req.AccountID, req.WalletAddress); err != nil {
			s.log.WithFields(logrus.Fields{
				"account_id": req.AccountID,
				"error":      err.Error(),
			}).Warn("Failed to update wallet address")
		}
	}

	unlock, err := s.locks.Lock(ctx, req.AccountID)
	if err != nil {
		return nil, failure(op, req.AccountID, ErrPersistence, err)
	}
	defer unlock()

	var res *CreditResult
	err = s.store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		l, err := s.loadOrCreate(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if req.WalletAddress != "" {
			l.WalletAddress = req.WalletAddress
		}
		t := l.Append(domain.Transaction{
			ID:          s.newID(),
			Type:        kind,
			Amount:      req.Amount,
			Timestamp:   s.now(),
			Description: req.Description,
			ToAddress:   l.WalletAddress,
		})
		if err := tx.SaveLedger(ctx, l, t); err != nil {
			return err
		}
		res = &CreditResult{Ledger: l, Transaction: t}
		return nil
	})
	if err != nil {
		return nil, failure(op, req.AccountID, ErrPersistence, err)
	}
	s.invalidate(ctx, req.AccountID)
	return res, nil
}

// Debit appends a negative payment transaction, refusing to overdraw
func (s *Service) Debit(ctx context.Context, req DebitRequest) (*CreditResult, error) {
	const op = "ledger.Debit"
	start := time.Now()

	res, err := s.debit(ctx, op, req)
	s.metrics.observe("debit", start, err)
	if err != nil {
		s.logFailure(op, err, logrus.Fields{"account_id": req.AccountID, "amount": req.Amount.String()})
		return nil, err
	}
	s.metrics.moved(string(domain.TransactionPayment), req.Amount.InexactFloat64())
	s.log.WithFields(logrus.Fields{
		"account_id": req.AccountID,
		"amount":     req.Amount.String(),
		"balance":    res.Ledger.Balance.String(),
	}).Info("Payment transaction")
	return res, nil
}

func (s *Service) debit(ctx context.Context, op string, req DebitRequest) (*CreditResult, error) {
	if !ValidAmount(req.Amount) {
		return nil, failure(op, req.AccountID, ErrInvalidAmount, nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAccount(ctx, op, req.AccountID); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, req.AccountID)
	if err != nil {
		return nil, failure(op, req.AccountID, ErrPersistence, err)
	}
	defer unlock()

	var res *CreditResult
	err = s.store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		l, err := s.loadOrCreate(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if l.Balance.LessThan(req.Amount) {
			return failure(op, req.AccountID, ErrInsufficientBalance, nil)
		}
		t := l.Append(domain.Transaction{
			ID:          s.newID(),
			Type:        domain.TransactionPayment,
			Amount:      req.Amount.Neg(),
			Timestamp:   s.now(),
			Description: req.Description,
			FromAddress: l.WalletAddress,
		})
		if err := tx.SaveLedger(ctx, l, t); err != nil {
			return err
		}
		res = &CreditResult{Ledger: l, Transaction: t}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(op, req.AccountID, err)
	}
	s.invalidate(ctx, req.AccountID)
	return res, nil
}

// Transfer moves amount from sender to recipient as one unit. Either both
// ledgers gain their transaction and new balance, or neither changes.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	const op = "ledger.Transfer"
	start := time.Now()

	res, err := s.transfer(ctx, op, req)
	s.metrics.observe("transfer", start, err)
	fields := logrus.Fields{
		"from_account_id": req.SenderID,        // Sender account
		"to_account_id":   req.RecipientID,     // Recipient account
		"amount":          req.Amount.String(), // Transfer amount
	}
	if err != nil {
		s.logFailure(op, err, fields)
		return nil, err
	}
	s.metrics.moved("transfer", req.Amount.InexactFloat64())
	fields["type"] = "transfer"
	fields["timestamp"] = res.Transaction.Timestamp.Format(time.RFC3339)
	s.log.WithFields(fields).Info("Transfer transaction")
	return res, nil
}

func (s *Service) transfer(ctx context.Context, op string, req TransferRequest) (*TransferResult, error) {
	if !ValidAmount(req.Amount) {
		return nil, failure(op, req.SenderID, ErrInvalidAmount, nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAccount(ctx, op, req.SenderID); err != nil {
		return nil, err
	}
	if err := s.requireAccount(ctx, op, req.RecipientID); err != nil {
		return nil, err
	}
	if req.SenderID == req.RecipientID {
		return nil, failure(op, req.SenderID, ErrSameAccount, nil)
	}
	sender, err := s.identity(ctx, op, req.SenderID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.identity(ctx, op, req.RecipientID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.LockPair(ctx, req.SenderID, req.RecipientID)
	if err != nil {
		return nil, failure(op, req.SenderID, ErrPersistence, err)
	}
	defer unlock()

	var res *TransferResult
	err = s.store.WithinTx(ctx, func(tx repository.LedgerStore) error {
		ledgers, err := s.loadPair(ctx, tx, req.SenderID, req.RecipientID)
		if err != nil {
			return err
		}
		from, to := ledgers[0], ledgers[1]

		// Checked against the locked rows, after every concurrent debit has landed
		if from.Balance.LessThan(req.Amount) {
			return failure(op, req.SenderID, ErrInsufficientBalance, nil)
		}

		fromAddr := firstNonEmpty(from.WalletAddress, sender.WalletAddress)
		toAddr := firstNonEmpty(to.WalletAddress, recipient.WalletAddress)
		now := s.now()
		out := from.Append(domain.Transaction{
			ID:           s.newID(),
			Type:         domain.TransactionTransferOut,
			Amount:       req.Amount.Neg(),
			Timestamp:    now,
			Description:  req.Description,
			FromAddress:  fromAddr,
			ToAddress:    toAddr,
			Recipient:    recipient.Label(),
			Counterparty: req.RecipientID,
		})
		in := to.Append(domain.Transaction{
			ID:           s.newID(),
			Type:         domain.TransactionTransferIn,
			Amount:       req.Amount,
			Timestamp:    now,
			Description:  req.Description,
			FromAddress:  fromAddr,
			ToAddress:    toAddr,
			Sender:       sender.Label(),
			Counterparty: req.SenderID,
		})
		if err := tx.SaveLedger(ctx, from, out); err != nil {
			return err
		}
		if err := tx.SaveLedger(ctx, to, in); err != nil {
			return err // Rolls back the sender leg with it
		}
		res = &TransferResult{
			SenderBalance:        from.Balance,
			RecipientBalance:     to.Balance,
			Transaction:          out,
			RecipientTransaction: in,
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(op, req.SenderID, err)
	}
	s.invalidate(ctx, req.SenderID, req.RecipientID)
	return res, nil
}

// ValidAmount reports whether amount is positive, within range, and has no
// more than MaxScale fractional digits
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() || !amount.LessThan(maxAmount) {
		return false
	}
	return amount.Equal(amount.Truncate(MaxScale))
}

// loadPair loads or creates both ledgers in id order and returns them in argument order
func (s *Service) loadPair(ctx context.Context, tx repository.LedgerStore, a, b string) ([2]*domain.Ledger, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	x, err := s.loadOrCreate(ctx, tx, first)
	if err != nil {
		return [2]*domain.Ledger{}, err
	}
	y, err := s.loadOrCreate(ctx, tx, second)
	if err != nil {
		return [2]*domain.Ledger{}, err
	}
	if first != a {
		x, y = y, x
	}
	return [2]*domain.Ledger{x, y}, nil
}

// loadOrCreate is the only path that creates ledger records
func (s *Service) loadOrCreate(ctx context.Context, store repository.LedgerStore, accountID string) (*domain.Ledger, error) {
	l, err := store.LoadLedger(ctx, accountID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	l = domain.NewLedger(accountID, s.now())
	if err := store.CreateLedger(ctx, l); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return store.LoadLedger(ctx, accountID) // Created by another process first
		}
		return nil, err
	}
	return l, nil
}

func (s *Service) requireAccount(ctx context.Context, op, accountID string) error {
	if accountID == "" {
		return failure(op, accountID, ErrAccountNotFound, nil)
	}
	ok, err := s.directory.AccountExists(ctx, accountID)
	if err != nil {
		return failure(op, accountID, ErrPersistence, err)
	}
	if !ok {
		return failure(op, accountID, ErrAccountNotFound, nil)
	}
	return nil
}

func (s *Service) identity(ctx context.Context, op, accountID string) (directory.Identity, error) {
	id, err := s.directory.GetAccountIdentity(ctx, accountID)
	if errors.Is(err, directory.ErrUnknownAccount) {
		return directory.Identity{}, failure(op, accountID, ErrAccountNotFound, nil)
	}
	if err != nil {
		return directory.Identity{}, failure(op, accountID, ErrPersistence, err)
	}
	return id, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) cached(ctx context.Context, accountID string) *domain.Ledger {
	if s.cache == nil {
		return nil
	}
	l, found, err := s.cache.Get(ctx, accountID)
	if err != nil {
		s.log.WithFields(logrus.Fields{"account_id": accountID, "error": err.Error()}).Warn("Ledger cache read failed")
		return nil
	}
	if !found {
		return nil
	}
	return l
}

func (s *Service) fill(ctx context.Context, l *domain.Ledger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, l); err != nil {
		s.log.WithFields(logrus.Fields{"account_id": l.AccountID, "error": err.Error()}).Warn("Ledger cache write failed")
	}
}

// invalidate runs under the account locks so no reader can refill a stale entry
func (s *Service) invalidate(ctx context.Context, accountIDs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, accountIDs...); err != nil {
		s.log.WithFields(logrus.Fields{"account_ids": accountIDs, "error": err.Error()}).Error("Ledger cache invalidation failed")
	}
}

func (s *Service) logFailure(op string, err error, fields logrus.Fields) {
	fields["op"] = op
	fields["error"] = err.Error()
	entry := s.log.WithFields(fields)
	if IsClientError(err) {
		entry.Info("Ledger request rejected")
		return
	}
	entry.Error("Ledger operation failed")
}

// wrapTxError keeps rejections raised inside a store transaction as they are
func wrapTxError(op, accountID string, err error) error {
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return failure(op, accountID, ErrPersistence, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
