package api

import (
	"net/http" // HTTP status codes

	"prism/internal/domain"     // Importing domain models
	"prism/internal/ledger"     // Ledger service
	"prism/internal/middleware" // Context keys

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Token amounts
)

const (
	airdropDescription  = "Initial airdrop tokens" // Description of airdrop credits
	transferDescription = "Token transfer"         // Description when the caller gives none
)

// AirdropRequest represents an airdrop request
type AirdropRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required,eth_addr"` // Receiving wallet address
}

// TransferRequest represents a transfer request
type TransferRequest struct {
	RecipientID string           `json:"recipientId" binding:"required"` // Target account id
	Amount      *decimal.Decimal `json:"amount" binding:"required"`      // Transfer amount
	Description string           `json:"description" binding:"max=255"`  // Optional annotation
}

// balanceResponse pairs a new balance with the transaction that produced it
type balanceResponse struct {
	Transaction    domain.Transaction `json:"transaction"`    // Appended transaction
	CurrentBalance decimal.Decimal    `json:"currentBalance"` // Balance after the operation
}

// GetTokenInfoHandler returns the caller's ledger, creating it on first access
func GetTokenInfoHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := svc.GetLedger(c.Request.Context(), c.GetString(middleware.UserIDKey)) // Load or create ledger
		if err != nil {
			failLedger(c, err)
			return
		}
		respond(c, http.StatusOK, "Token information retrieved", l)
	}
}

// TransactionHistoryHandler returns one page of the caller's transactions
func TransactionHistoryHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c) // Read paging parameters
		res, err := svc.History(c.Request.Context(), c.GetString(middleware.UserIDKey), page, pageSize)
		if err != nil {
			failLedger(c, err)
			return
		}
		respond(c, http.StatusOK, "Transactions retrieved", res)
	}
}

// AirdropHandler credits the caller with the configured airdrop amount
func AirdropHandler(svc *ledger.Service, amount decimal.Decimal) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AirdropRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// Wallet address missing or malformed
			fail(c, http.StatusBadRequest, "A valid wallet address is required", err.Error())
			return
		}
		res, err := svc.Credit(c.Request.Context(), ledger.CreditRequest{
			AccountID:     c.GetString(middleware.UserIDKey), // Caller
			Amount:        amount,                            // Configured airdrop amount
			Description:   airdropDescription,                // Fixed description
			Kind:          domain.TransactionAirdrop,         // Airdrop credit
			WalletAddress: req.WalletAddress,                 // Receiving wallet
		})
		if err != nil {
			failLedger(c, err)
			return
		}
		respond(c, http.StatusOK, "Airdrop processed successfully", balanceResponse{
			Transaction:    res.Transaction,
			CurrentBalance: res.Ledger.Balance,
		})
	}
}

// TransferHandler moves tokens from the caller to another account
func TransferHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransferRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			fail(c, http.StatusBadRequest, "Recipient ID and amount are required", err.Error())
			return
		}
		description := req.Description // Default description when empty
		if description == "" {
			description = transferDescription
		}
		res, err := svc.Transfer(c.Request.Context(), ledger.TransferRequest{
			SenderID:    c.GetString(middleware.UserIDKey), // Caller
			RecipientID: req.RecipientID,                   // Target account
			Amount:      *req.Amount,                       // Transfer amount
			Description: description,                       // Annotation
		})
		if err != nil {
			failLedger(c, err)
			return
		}
		respond(c, http.StatusOK, "Transfer successful", balanceResponse{
			Transaction:    res.Transaction,
			CurrentBalance: res.SenderBalance,
		})
	}
}

// PaymentRequest represents tokens spent by the caller
type PaymentRequest struct {
	Amount      *decimal.Decimal `json:"amount" binding:"required"`              // Payment amount
	Description string           `json:"description" binding:"required,max=255"` // What the payment is for
}

// PaymentHandler debits the caller's ledger
func PaymentHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Amount and description are required", err.Error())
			return
		}
		res, err := svc.Debit(c.Request.Context(), ledger.DebitRequest{
			AccountID:   c.GetString(middleware.UserIDKey), // Caller
			Amount:      *req.Amount,                       // Payment amount
			Description: req.Description,                   // Annotation
		})
		if err != nil {
			failLedger(c, err)
			return
		}
		respond(c, http.StatusOK, "Payment successful", balanceResponse{
			Transaction:    res.Transaction,
			CurrentBalance: res.Ledger.Balance,
		})
	}
}
