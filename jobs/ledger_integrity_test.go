package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMismatchesAgreesAtSteadyState(t *testing.T) {
	rows := []integrityRow{
		{BatchItemID: 1, BatchCode: "B20260115-01", LedgerBalance: 40, DocBalance: 40},
		{BatchItemID: 2, BatchCode: "B20260115-02", LedgerBalance: 0, DocBalance: 0},
		// NUMERIC-to-float64 noise below the tolerance is agreement.
		{BatchItemID: 3, BatchCode: "B20260116-01", LedgerBalance: 0.1 + 0.2, DocBalance: 0.3},
	}

	assert.Empty(t, filterMismatches(rows, 1e-6))
}

func TestFilterMismatchesDetectsDrift(t *testing.T) {
	rows := []integrityRow{
		{BatchItemID: 1, BatchCode: "B20260115-01", LedgerBalance: 40, DocBalance: 40},
		{BatchItemID: 2, BatchCode: "B20260115-02", LedgerBalance: 35, DocBalance: 40},
		{BatchItemID: 3, BatchCode: "B20260116-01", LedgerBalance: -5, DocBalance: 0},
	}

	mismatches := filterMismatches(rows, 1e-6)

	require.Len(t, mismatches, 2)
	assert.Equal(t, int64(2), mismatches[0].BatchItemID)
	assert.Equal(t, "B20260115-02", mismatches[0].BatchCode)
	assert.Equal(t, int64(3), mismatches[1].BatchItemID)
}
