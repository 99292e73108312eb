package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/packtrack/packtrack/internal/observability"
)

// LedgerIntegrityJob cross-checks the two derivations of remaining batch
// stock: the ledger balance per batch item against produced quantity minus
// the sum of its shipment lines. The figures come from independent tables,
// so any disagreement means a workflow wrote one side without the other.
type LedgerIntegrityJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewLedgerIntegrityJob wires dependencies for the integrity handler.
func NewLedgerIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Pool: pool, Logger: logger, Metrics: metrics}
}

type integrityRow struct {
	BatchItemID   int64
	BatchCode     string
	LedgerBalance float64
	DocBalance    float64
}

// Handle processes ledger integrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tolerance := payload.Tolerance
	if tolerance <= 0 {
		tolerance = 1e-6
	}

	scanned, err := j.scan(ctx)
	if err != nil {
		j.Logger.Error("ledger integrity scan", slog.Any("error", err))
		return err
	}
	mismatches := filterMismatches(scanned, tolerance)

	j.Metrics.SetIntegrityDrift(len(mismatches))
	for _, row := range mismatches {
		j.Logger.Error("ledger integrity mismatch",
			slog.Int64("batch_item_id", row.BatchItemID),
			slog.String("batch_code", row.BatchCode),
			slog.Float64("ledger_balance", row.LedgerBalance),
			slog.Float64("document_balance", row.DocBalance))
	}
	if len(mismatches) == 0 {
		j.Logger.Info("ledger integrity clean")
	}
	return nil
}

// filterMismatches keeps the rows whose two derivations of remaining stock
// disagree by more than tolerance. NUMERIC columns arrive as float64, so
// sub-tolerance noise counts as agreement.
func filterMismatches(rows []integrityRow, tolerance float64) []integrityRow {
	var mismatches []integrityRow
	for _, row := range rows {
		if math.Abs(row.LedgerBalance-row.DocBalance) > tolerance {
			mismatches = append(mismatches, row)
		}
	}
	return mismatches
}

func (j *LedgerIntegrityJob) scan(ctx context.Context) ([]integrityRow, error) {
	rows, err := j.Pool.Query(ctx, `
SELECT bi.id, bi.batch_code,
	COALESCE((SELECT SUM(CASE WHEN m.direction = 'in' THEN m.qty ELSE -m.qty END)
		FROM stock_movements m
		WHERE m.item_kind = 'finished_goods' AND m.batch_item_id = bi.id), 0) AS ledger_balance,
	bi.qty_produced - COALESCE((SELECT SUM(sl.qty) FROM shipment_lines sl WHERE sl.batch_item_id = bi.id), 0) AS doc_balance
FROM production_batch_items bi
ORDER BY bi.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []integrityRow
	for rows.Next() {
		var row integrityRow
		if err := rows.Scan(&row.BatchItemID, &row.BatchCode, &row.LedgerBalance, &row.DocBalance); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
