package db

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

// The sufficiency check reads SUM(stock_movements) after taking FOR UPDATE
// locks on rows the workflows never update. Only statement-level snapshots
// make that read see the movements committed by whoever held the lock
// first; repeatable read would pin the snapshot before the lock wait and
// let both of two racing workflows consume the same balance.
func TestWorkflowTxUsesStatementSnapshots(t *testing.T) {
	assert.Equal(t, pgx.ReadCommitted, workflowTxOptions.IsoLevel)
}
