package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity cross-checks the movement log against document rows.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskStockWarmup pre-populates the stock overview cache.
	TaskStockWarmup = "stock:warmup"
)

// LedgerIntegrityPayload bounds one integrity run.
type LedgerIntegrityPayload struct {
	// Tolerance is the largest absolute difference treated as agreement.
	Tolerance float64 `json:"tolerance"`
}

// NewLedgerIntegrityTask constructs an Asynq task.
func NewLedgerIntegrityTask(tolerance float64) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{Tolerance: tolerance})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// StockWarmupPayload is currently empty; the task always rebuilds the whole
// overview.
type StockWarmupPayload struct{}

// NewStockWarmupTask constructs an Asynq task.
func NewStockWarmupTask() (*asynq.Task, error) {
	data, err := json.Marshal(StockWarmupPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockWarmup, data), nil
}
