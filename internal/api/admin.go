package api

import (
	"context"  // Cache helpers
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"prism/internal/domain" // Importing domain models
	"prism/internal/ledger" // Ledger service
	"prism/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Token amounts
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID            string          `json:"id"`                      // User ID
	Email         string          `json:"email"`                   // Email
	Name          string          `json:"name"`                    // Display name
	Role          string          `json:"role"`                    // User role
	WalletAddress string          `json:"walletAddress,omitempty"` // Last known wallet address
	Balance       decimal.Decimal `json:"balance"`                 // Ledger balance, zero without a ledger
}

// userPage is one cached page of the admin user listing
type userPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Cached     bool                `json:"cached"`      // Whether the page came from cache
}

// TransactionAdminResponse is a transaction together with its owning account
type TransactionAdminResponse struct {
	AccountID string `json:"accountId"` // Owning ledger
	Seq       int64  `json:"seq"`       // Position in the ledger
	domain.Transaction
}

// transactionPage is one cached page of the admin transaction listing
type transactionPage struct {
	Transactions []TransactionAdminResponse `json:"transactions"` // List of transactions
	Page         int                        `json:"page"`         // Current page
	PageSize     int                        `json:"page_size"`    // Page size
	Total        int64                      `json:"total"`        // Total number of transactions
	TotalPages   int                        `json:"total_pages"`  // Total pages
	Cached       bool                       `json:"cached"`       // Whether the page came from cache
}

// AdminCreditRequest represents an admin issued credit
type AdminCreditRequest struct {
	Amount        *decimal.Decimal `json:"amount" binding:"required"`                              // Credit amount
	Kind          string           `json:"kind" binding:"omitempty,oneof=airdrop reward purchase"` // Credit kind
	Description   string           `json:"description" binding:"max=255"`                          // Annotation
	WalletAddress string           `json:"walletAddress" binding:"omitempty,eth_addr"`             // Optional wallet address
}

// ListUsersHandler returns users with their ledger balances
func ListUsersHandler(db *gorm.DB, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()      // Request scoped context
		page, pageSize := pagination(c) // Read paging parameters
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached userPage
		// If cached data found, return it
		if found, err := cacheLookup(ctx, rdb, cacheKey, ttl, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			respond(c, http.StatusOK, "Users retrieved", cached)
			return
		}
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total user count
		if err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
			fail(c, http.StatusInternalServerError, "Failed to count users", nil) // Return on error
			return
		}
		var users []domain.User // Slice to hold users
		// Preload Ledger relation, apply offset and limit for pagination
		if err := db.WithContext(ctx).Preload("Ledger").Order("created_at asc").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			fail(c, http.StatusInternalServerError, "Failed to fetch users", nil) // Return on error
			return
		}
		resp := userPage{
			Users:      make([]UserAdminResponse, len(users)), // Mapped users
			Page:       page,                                  // Current page
			PageSize:   pageSize,                              // Page size
			Total:      total,                                 // Total number of users
			TotalPages: totalPages(total, pageSize),           // Total pages
		}
		// Map users to response format
		for i, u := range users {
			resp.Users[i] = UserAdminResponse{
				ID:            u.ID,            // User ID
				Email:         u.Email,         // Email
				Name:          u.DisplayName(), // Display name
				Role:          u.Role,          // User role
				WalletAddress: u.WalletAddress, // Wallet address
			}
			if u.Ledger != nil {
				resp.Users[i].Balance = u.Ledger.Balance // Ledger balance
			}
		}
		// Cache the response for future requests
		if err := cacheStore(ctx, rdb, cacheKey, resp, ttl); err != nil {
			logrus.WithError(err).Warn("failed to cache admin user listing")
		}
		respond(c, http.StatusOK, "Users retrieved", resp) // Return the response
	}
}

// ListTransactionsHandler returns all transactions, with optional filtering by account, type, or date
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()      // Request scoped context
		page, pageSize := pagination(c) // Read paging parameters
		var keyParts []string           // Parts of the cache key
		// Append each query parameter to the key parts
		for _, k := range []string{"account_id", "type", "from", "to"} {
			keyParts = append(keyParts, k+"="+c.Query(k)) // Append key-value pair
		}
		keyParts = append(keyParts, "page="+strconv.Itoa(page), "page_size="+strconv.Itoa(pageSize))
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":") // Final cache key
		var cached transactionPage
		// If cached data found, return it
		if found, err := cacheLookup(ctx, rdb, cacheKey, ttl, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			respond(c, http.StatusOK, "Transactions retrieved", cached)
			return
		}
		offset := (page - 1) * pageSize                           // Calculate offset for pagination
		query := db.WithContext(ctx).Model(&domain.Transaction{}) // Start building the query
		if accountID := c.Query("account_id"); accountID != "" {
			query = query.Where("account_id = ?", accountID) // Filter by account
		}
		if txType := c.Query("type"); txType != "" {
			query = query.Where("type = ?", txType) // Filter by transaction type
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("timestamp >= ?", from) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("timestamp <= ?", to) // Filter by end date
		}
		var total int64 // Total transaction count
		// Get total count of transactions matching the filters
		if err := query.Count(&total).Error; err != nil {
			fail(c, http.StatusInternalServerError, "Failed to count transactions", nil)
			return
		}
		var txs []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions with filters applied
		if err := query.Order("timestamp desc").Offset(offset).Limit(pageSize).Find(&txs).Error; err != nil {
			fail(c, http.StatusInternalServerError, "Failed to fetch transactions", nil)
			return
		}
		resp := transactionPage{
			Transactions: make([]TransactionAdminResponse, len(txs)), // Mapped transactions
			Page:         page,                                       // Current page
			PageSize:     pageSize,                                   // Page size
			Total:        total,                                      // Total number of transactions
			TotalPages:   totalPages(total, pageSize),                // Total pages
		}
		for i, t := range txs {
			resp.Transactions[i] = TransactionAdminResponse{AccountID: t.AccountID, Seq: t.Seq, Transaction: t}
		}
		// Cache the response for future requests
		if err := cacheStore(ctx, rdb, cacheKey, resp, ttl); err != nil {
			logrus.WithError(err).Warn("failed to cache admin transaction listing")
		}
		respond(c, http.StatusOK, "Transactions retrieved", resp)
	}
}

// ReconcileHandler checks every ledger's balance against its transaction log
func ReconcileHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := svc.ReconcileAll(c.Request.Context()) // Check all ledgers
		if err != nil {
			failLedger(c, err)
			return
		}
		mismatched := 0 // Count of diverged ledgers
		for _, r := range results {
			if !r.Consistent {
				mismatched++
			}
		}
		respond(c, http.StatusOK, "Reconciliation complete", gin.H{
			"ledgers":    results,    // Per ledger results
			"mismatched": mismatched, // Number of diverged ledgers
		})
	}
}

// RepairHandler rewrites one ledger's balance from its transaction log
func RepairHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Repair(c.Request.Context(), c.Param("accountId"))
		if err != nil {
			failLedger(c, err)
			return
		}
		respond(c, http.StatusOK, "Ledger reconciled", res)
	}
}

// AdminCreditHandler issues tokens of any credit kind to an account
func AdminCreditHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminCreditRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		res, err := svc.Credit(c.Request.Context(), ledger.CreditRequest{
			AccountID:     c.Param("accountId"),             // Target account
			Amount:        *req.Amount,                      // Credit amount
			Description:   req.Description,                  // Annotation
			Kind:          domain.TransactionType(req.Kind), // Empty defaults to airdrop
			WalletAddress: req.WalletAddress,                // Optional wallet address
		})
		if err != nil {
			failLedger(c, err)
			return
		}
		respond(c, http.StatusOK, "Credit applied", res)
	}
}

// cacheLookup reads a cached listing; a non-positive ttl turns listing caches off
func cacheLookup(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration, dest any) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	return utils.GetCache(ctx, rdb, key, dest)
}

// cacheStore writes a listing to cache for ttl; Redis treats zero as no expiry, so it is skipped
func cacheStore(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return utils.SetCache(ctx, rdb, key, value, ttl)
}
