package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType names the kind of ledger movement
type TransactionType string

const (
	TransactionAirdrop     TransactionType = "airdrop"      // One-way issuance
	TransactionTransferIn  TransactionType = "transfer_in"  // Inbound leg of a transfer
	TransactionTransferOut TransactionType = "transfer_out" // Outbound leg of a transfer
	TransactionPurchase    TransactionType = "purchase"     // Tokens bought by the account
	TransactionReward      TransactionType = "reward"       // Tokens granted as a reward
	TransactionPayment     TransactionType = "payment"      // Tokens spent by the account
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionAirdrop, TransactionTransferIn, TransactionTransferOut,
		TransactionPurchase, TransactionReward, TransactionPayment:
		return true
	}
	return false
}

// IsCredit reports whether t may be issued through a credit operation
func (t TransactionType) IsCredit() bool {
	switch t {
	case TransactionAirdrop, TransactionReward, TransactionPurchase:
		return true
	}
	return false
}

// Transaction Model. Rows are immutable once appended.
type Transaction struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`                              // Primary key (UUID)
	AccountID    string          `gorm:"size:36;not null;uniqueIndex:idx_account_seq" json:"-"`    // Owning ledger
	Seq          int64           `gorm:"not null;uniqueIndex:idx_account_seq" json:"-"`             // 1-based position in the ledger
	Type         TransactionType `gorm:"size:32;not null" json:"type"`                              // Transaction type
	Amount       decimal.Decimal `gorm:"type:decimal(30,8);not null" json:"amount"`                 // Signed amount
	Timestamp    time.Time       `gorm:"not null" json:"timestamp"`                                 // Creation time
	Description  string          `gorm:"size:255" json:"description"`                               // Free-text annotation
	FromAddress  string          `gorm:"size:128" json:"fromAddress,omitempty"`                     // Sender wallet address
	ToAddress    string          `gorm:"size:128" json:"toAddress,omitempty"`                       // Recipient wallet address
	Sender       string          `gorm:"size:191" json:"sender,omitempty"`                          // Sender identity
	Recipient    string          `gorm:"size:191" json:"recipient,omitempty"`                       // Recipient identity
	Counterparty string          `gorm:"size:36" json:"counterparty,omitempty"`                     // Counterparty account id
}

// TableName keeps transactions apart from any other "transactions" table
func (Transaction) TableName() string { return "ledger_transactions" }
