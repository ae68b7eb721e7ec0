package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// Ledger Model: balance plus transaction history for one account
type Ledger struct {
	AccountID     string          `gorm:"primaryKey;size:36" json:"accountId"`                          // Foreign key to User
	WalletAddress string          `gorm:"size:128" json:"walletAddress,omitempty"`                      // Last known wallet address
	Balance       decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"balance"`         // Cached sum of transaction amounts
	Version       int64           `gorm:"not null;default:0" json:"-"`                                  // Optimistic concurrency counter
	Transactions  []Transaction   `gorm:"foreignKey:AccountID;references:AccountID" json:"transactions"` // Ordered by Seq
	LastUpdated   time.Time       `gorm:"not null" json:"lastUpdated"`                                  // Last mutation
}

// NewLedger returns an empty ledger for accountID
func NewLedger(accountID string, now time.Time) *Ledger {
	return &Ledger{
		AccountID:    accountID,
		Balance:      decimal.Zero,
		Transactions: []Transaction{},
		LastUpdated:  now,
	}
}

// Append stamps t with the next sequence number and folds its amount into
// the balance. The caller persists the result.
func (l *Ledger) Append(t Transaction) Transaction {
	t.AccountID = l.AccountID
	t.Seq = int64(len(l.Transactions)) + 1
	l.Transactions = append(l.Transactions, t)
	l.Balance = l.Balance.Add(t.Amount)
	l.LastUpdated = t.Timestamp
	return t
}

// ComputedBalance sums the transaction log, which is the ground truth
func (l *Ledger) ComputedBalance() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range l.Transactions {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// Clone returns a deep copy so callers cannot alias stored history
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	c := *l
	c.Transactions = make([]Transaction, len(l.Transactions))
	copy(c.Transactions, l.Transactions)
	return &c
}
