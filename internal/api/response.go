package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // Query parameter parsing

	"prism/internal/ledger" // Ledger failure kinds

	"github.com/gin-gonic/gin" // Gin web framework
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool   `json:"success"`          // Whether the request succeeded
	Message string `json:"message"`          // Human readable outcome
	Data    any    `json:"data,omitempty"`   // Payload on success
	Errors  any    `json:"errors,omitempty"` // Details on failure
}

// respond writes a success envelope
func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// fail writes a failure envelope
func fail(c *gin.Context, status int, message string, errs any) {
	c.JSON(status, Response{Success: false, Message: message, Errors: errs})
}

// failLedger maps a ledger error onto its HTTP status
func failLedger(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		fail(c, http.StatusNotFound, "Account not found", nil)
	case errors.Is(err, ledger.ErrInvalidAmount):
		fail(c, http.StatusBadRequest, "Amount must be a positive number with at most 8 decimal places", nil)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		fail(c, http.StatusBadRequest, "Insufficient balance", nil)
	case errors.Is(err, ledger.ErrSameAccount):
		fail(c, http.StatusBadRequest, "Cannot transfer to yourself", nil)
	case errors.Is(err, ledger.ErrInvalidKind):
		fail(c, http.StatusBadRequest, "Invalid credit kind", nil)
	default:
		fail(c, http.StatusInternalServerError, "Server error", nil)
	}
}

// pagination reads page and page_size, falling back to defaults when absent or invalid
func pagination(c *gin.Context) (int, int) {
	page := 1                          // Default page number
	pageSize := ledger.DefaultPageSize // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= ledger.MaxPageSize {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}

// totalPages is the number of pages of pageSize needed for total rows
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}
