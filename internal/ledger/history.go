package ledger

import (
	"context"
	"math"
	"time"

	"prism/internal/domain"
)

const (
	DefaultPageSize = 20  // Page size when none is requested
	MaxPageSize     = 100 // Largest page a caller may request
)

// HistoryPage is one page of an account's transactions, newest first
type HistoryPage struct {
	Transactions []domain.Transaction `json:"transactions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	Total        int64                `json:"total"`
	TotalPages   int                  `json:"total_pages"`
}

// History pages through the transactions of accountID. Out of range page
// numbers and sizes fall back to the defaults.
func (s *Service) History(ctx context.Context, accountID string, page, pageSize int) (*HistoryPage, error) {
	const op = "ledger.History"
	start := time.Now()

	res, err := s.history(ctx, op, accountID, page, pageSize)
	s.metrics.observe("history", start, err)
	return res, err
}

func (s *Service) history(ctx context.Context, op, accountID string, page, pageSize int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAccount(ctx, op, accountID); err != nil {
		return nil, err
	}
	offset := math.MaxInt // Pages past the end of any ledger come back empty
	if page-1 <= math.MaxInt/pageSize {
		offset = (page - 1) * pageSize
	}
	txs, total, err := s.store.ListTransactions(ctx, accountID, offset, pageSize)
	if err != nil {
		return nil, failure(op, accountID, ErrPersistence, err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return &HistoryPage{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   (int(total) + pageSize - 1) / pageSize, // Calculate total pages
	}, nil
}
