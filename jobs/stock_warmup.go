package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/packtrack/packtrack/internal/ledger"
)

// StockWarmupJob rebuilds the cached stock overview so the first dashboard
// hit after an invalidation does not pay the aggregation cost.
type StockWarmupJob struct {
	Ledger *ledger.Service
	Logger *slog.Logger
}

// NewStockWarmupJob wires dependencies for the warmup handler.
func NewStockWarmupJob(ledgerSvc *ledger.Service, logger *slog.Logger) *StockWarmupJob {
	return &StockWarmupJob{Ledger: ledgerSvc, Logger: logger}
}

// Handle processes stock warmup tasks.
func (j *StockWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("stock warmup: handler not configured")
	}
	overview, err := j.Ledger.StockOverview(ctx)
	if err != nil {
		j.Logger.Error("stock warmup", slog.Any("error", err))
		return err
	}
	j.Logger.Info("stock overview warmed",
		slog.Int("packaging_items", len(overview.Packaging)),
		slog.Int("finished_goods", len(overview.FinishedGoods)))
	return nil
}
