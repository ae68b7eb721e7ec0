package domain

import "time"

// User Model
type User struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`                  // Primary key (UUID)
	Email         string    `gorm:"uniqueIndex;size:191;not null" json:"email"`    // Unique email
	FirstName     string    `gorm:"size:100;not null" json:"firstName"`            // Given name
	LastName      string    `gorm:"size:100;not null" json:"lastName"`             // Family name
	Password      string    `gorm:"not null" json:"-"`                             // Hashed password
	Role          string    `gorm:"size:16;default:user" json:"role"`              // Role: user or admin
	WalletAddress string    `gorm:"size:128" json:"walletAddress,omitempty"`       // Last known wallet address
	CreatedAt     time.Time `json:"createdAt"`                                     // Creation timestamp
	Ledger        *Ledger   `gorm:"foreignKey:AccountID;references:ID" json:"-"`   // One-to-one relationship with Ledger
}

// DisplayName joins the user's first and last names
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
