// Package directory resolves account ids against the user table.
package directory

import (
	"context"
	"errors"
	"fmt"

	"prism/internal/domain"

	"gorm.io/gorm"
)

// ErrUnknownAccount is returned by lookups for ids with no user behind them
var ErrUnknownAccount = errors.New("unknown account")

// Identity is what the ledger needs to annotate a counterparty
type Identity struct {
	DisplayName   string // First and last name
	Email         string // Login email
	WalletAddress string // Last known wallet address, may be empty
}

// Label is the identity string recorded on transactions
func (i Identity) Label() string {
	if i.Email != "" {
		return i.Email
	}
	return i.DisplayName
}

// Gorm is an account directory over the users table
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an open GORM handle
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// AccountExists reports whether a user with accountID exists
func (d *Gorm) AccountExists(ctx context.Context, accountID string) (bool, error) {
	const op = "directory.AccountExists"

	var count int64
	if err := d.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return count > 0, nil
}

// GetAccountIdentity loads the display identity of accountID
func (d *Gorm) GetAccountIdentity(ctx context.Context, accountID string) (Identity, error) {
	const op = "directory.GetAccountIdentity"

	var user domain.User
	err := d.db.WithContext(ctx).Select("id", "email", "first_name", "last_name", "wallet_address").
		Where("id = ?", accountID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrUnknownAccount
	}
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	return Identity{
		DisplayName:   user.DisplayName(),
		Email:         user.Email,
		WalletAddress: user.WalletAddress,
	}, nil
}

// UpdateWalletAddress stores the last known wallet address on the profile
func (d *Gorm) UpdateWalletAddress(ctx context.Context, accountID, address string) error {
	const op = "directory.UpdateWalletAddress"

	res := d.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", accountID).Update("wallet_address", address)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUnknownAccount
	}
	return nil
}
