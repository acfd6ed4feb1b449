// Package worker runs the background job that finishes checkouts whose cart
// items could not be removed when the payment was recorded.
package worker

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"podreseller_back_end/internal/metrics"
	"podreseller_back_end/internal/models"
)

type CleanupStore interface {
	PendingCleanups(ctx context.Context) ([]models.CleanupJob, error)
	DeleteCarts(ctx context.Context, cartIDs []string) (models.DeleteResult, error)
	CompleteCleanup(ctx context.Context, jobID primitive.ObjectID) error
	FailCleanup(ctx context.Context, jobID primitive.ObjectID, cause error) error
}

// PassResult summarises one RunOnce call.
type PassResult struct {
	Pending   int
	Completed int
	Failed    int
}

type CleanupWorker struct {
	store    CleanupStore
	interval time.Duration
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewCleanupWorker(store CleanupStore, interval time.Duration, m *metrics.Metrics, log *slog.Logger) *CleanupWorker {
	if log == nil {
		log = slog.Default()
	}
	return &CleanupWorker{store: store, interval: interval, metrics: m, log: log.With("component", "cart_cleanup")}
}

// Run processes pending jobs every interval until ctx is cancelled.
func (w *CleanupWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("cleanup worker started", "interval", w.interval.String())
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Error("cleanup pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			w.log.Info("cleanup worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce retries every pending job once. A job is removed only after its
// cart items are deleted; otherwise its attempt count and last error grow.
func (w *CleanupWorker) RunOnce(ctx context.Context) (PassResult, error) {
	jobs, err := w.store.PendingCleanups(ctx)
	if err != nil {
		return PassResult{}, err
	}

	res := PassResult{Pending: len(jobs)}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		log := w.log.With("job_id", job.ID.Hex(), "payment_id", job.PaymentID.Hex(), "attempt", job.Attempts+1)

		del, err := w.store.DeleteCarts(ctx, job.CartIDs)
		if err != nil {
			res.Failed++
			w.metrics.ObserveCleanupJob("failed")
			log.Warn("cart cleanup attempt failed", "cart_ids", job.CartIDs, "error", err)
			if ferr := w.store.FailCleanup(ctx, job.ID, err); ferr != nil {
				log.Error("record cleanup failure", "error", ferr)
			}
			continue
		}

		if err := w.store.CompleteCleanup(ctx, job.ID); err != nil {
			res.Failed++
			log.Error("complete cleanup job", "error", err)
			continue
		}
		res.Completed++
		w.metrics.ObserveCleanupJob("ok")
		log.Info("cart cleanup completed", "deleted", del.DeletedCount)
	}

	w.metrics.ObserveCleanupPass(res.Pending - res.Completed)
	return res, nil
}
