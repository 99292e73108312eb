package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulateCombinesRepeatedItems(t *testing.T) {
	reqs := []Requirement{
		{ItemKind: KindPackaging, ItemID: 1, Label: "Box A", Qty: 300},
		{ItemKind: KindPackaging, ItemID: 2, Label: "Label roll", Qty: 50},
		{ItemKind: KindPackaging, ItemID: 1, Label: "Box A", Qty: 250},
	}

	out := Accumulate(reqs)

	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ItemID)
	assert.Equal(t, 550.0, out[0].Qty)
	assert.Equal(t, int64(2), out[1].ItemID)
	assert.Equal(t, 50.0, out[1].Qty)
}

func TestAccumulateKeepsKindsSeparate(t *testing.T) {
	reqs := []Requirement{
		{ItemKind: KindPackaging, ItemID: 7, Qty: 10},
		{ItemKind: KindFinishedGoods, ItemID: 7, Qty: 4},
	}

	out := Accumulate(reqs)

	require.Len(t, out, 2)
	assert.Equal(t, 10.0, out[0].Qty)
	assert.Equal(t, 4.0, out[1].Qty)
}

func TestEvaluateExactBalancePasses(t *testing.T) {
	reqs := Accumulate([]Requirement{
		{ItemKind: KindPackaging, ItemID: 1, Label: "Box A", Qty: 550},
	})
	balances := map[ItemRef]float64{
		{Kind: KindPackaging, ID: 1}: 550,
	}

	assert.Empty(t, Evaluate(reqs, balances))
}

func TestEvaluateToleratesFloatNoise(t *testing.T) {
	// 0.1 per unit over three lines does not sum to exactly 0.3 in float64.
	// The request is still arithmetically equal to the balance and must pass.
	reqs := Accumulate([]Requirement{
		{ItemKind: KindPackaging, ItemID: 4, Label: "Label roll", Qty: 0.1},
		{ItemKind: KindPackaging, ItemID: 4, Label: "Label roll", Qty: 0.1},
		{ItemKind: KindPackaging, ItemID: 4, Label: "Label roll", Qty: 0.1},
	})
	balances := map[ItemRef]float64{
		{Kind: KindPackaging, ID: 4}: 0.3,
	}

	assert.Empty(t, Evaluate(reqs, balances))
}

func TestEvaluateStillCatchesFractionalShortage(t *testing.T) {
	reqs := []Requirement{
		{ItemKind: KindPackaging, ItemID: 4, Label: "Label roll", Qty: 0.31},
	}
	balances := map[ItemRef]float64{
		{Kind: KindPackaging, ID: 4}: 0.3,
	}

	shortages := Evaluate(reqs, balances)

	require.Len(t, shortages, 1)
	assert.InDelta(t, 0.01, shortages[0].Shortage, 1e-9)
}

func TestEvaluateCumulativeShortage(t *testing.T) {
	// Two lines need 550 of the same item in total; 505 on hand is enough
	// for either line alone but not for the request as a whole.
	reqs := Accumulate([]Requirement{
		{ItemKind: KindPackaging, ItemID: 1, Label: "Box A", Qty: 300},
		{ItemKind: KindPackaging, ItemID: 1, Label: "Box A", Qty: 250},
	})
	balances := map[ItemRef]float64{
		{Kind: KindPackaging, ID: 1}: 505,
	}

	shortages := Evaluate(reqs, balances)

	require.Len(t, shortages, 1)
	assert.Equal(t, 550.0, shortages[0].Required)
	assert.Equal(t, 505.0, shortages[0].Available)
	assert.Equal(t, 45.0, shortages[0].Shortage)
}

func TestEvaluateMissingBalanceIsZero(t *testing.T) {
	reqs := []Requirement{
		{ItemKind: KindPackaging, ItemID: 9, Label: "Tape", Qty: 12},
	}

	shortages := Evaluate(reqs, map[ItemRef]float64{})

	require.Len(t, shortages, 1)
	assert.Equal(t, 0.0, shortages[0].Available)
	assert.Equal(t, 12.0, shortages[0].Shortage)
}

func TestEvaluateReportsEveryShortItem(t *testing.T) {
	reqs := []Requirement{
		{ItemKind: KindPackaging, ItemID: 1, Label: "Box A", Qty: 100},
		{ItemKind: KindPackaging, ItemID: 2, Label: "Label roll", Qty: 30},
		{ItemKind: KindPackaging, ItemID: 3, Label: "Tape", Qty: 5},
	}
	balances := map[ItemRef]float64{
		{Kind: KindPackaging, ID: 1}: 40,
		{Kind: KindPackaging, ID: 2}: 30,
		{Kind: KindPackaging, ID: 3}: 0,
	}

	shortages := Evaluate(reqs, balances)

	require.Len(t, shortages, 2)
	assert.Equal(t, "Box A", shortages[0].Label)
	assert.Equal(t, "Tape", shortages[1].Label)
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{Shortages: []Shortage{
		{Label: "Box A", Required: 1550, Available: 1505, Shortage: 45},
	}}

	assert.Contains(t, err.Error(), "insufficient stock")
	assert.Contains(t, err.Error(), "Box A")
	assert.Contains(t, err.Error(), "1,550")
}
