package ledger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically reconciles every ledger and optionally repairs the
// ones whose balance diverged from their log.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	repair   bool
	log      logrus.FieldLogger
}

// NewSweeper returns a sweeper running every interval
func NewSweeper(svc *Service, interval time.Duration, repair bool) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: interval,
		repair:   repair,
		log:      svc.log.WithField("component", "ledger_sweeper"),
	}
}

// Run blocks until ctx is done
func (w *Sweeper) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single reconciliation pass and returns the number of
// diverged ledgers it found
func (w *Sweeper) Sweep(ctx context.Context) int {
	reports, err := w.svc.ReconcileAll(ctx)
	if err != nil {
		w.log.WithField("error", err.Error()).Error("Reconciliation sweep failed")
		return 0
	}
	mismatched := 0
	for _, r := range reports {
		if r.Consistent {
			continue
		}
		mismatched++
		if !w.repair {
			continue
		}
		if _, err := w.svc.Repair(ctx, r.AccountID); err != nil {
			w.log.WithFields(logrus.Fields{
				"account_id": r.AccountID,
				"error":      err.Error(),
			}).Error("Ledger repair failed")
		}
	}
	w.log.WithFields(logrus.Fields{
		"ledgers":    len(reports),
		"mismatched": mismatched,
	}).Info("Reconciliation sweep completed")
	return mismatched
}
