package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockRow(id int64, condition string, qty float64, age time.Duration) StockRow {
	return StockRow{
		ID:        id,
		Condition: condition,
		Quantity:  qty,
		CreatedAt: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC).Add(age),
	}
}

func TestPlanDepletionConditionPrecedence(t *testing.T) {
	rows := []StockRow{
		stockRow(1, ConditionUsed, 5, 0),
		stockRow(2, ConditionNew, 3, time.Hour),
	}

	takes, err := PlanDepletion(rows, 4)
	require.NoError(t, err)
	require.Len(t, takes, 2)
	assert.Equal(t, int64(2), takes[0].RowID)
	assert.Equal(t, 3.0, takes[0].Quantity)
	assert.Equal(t, int64(1), takes[1].RowID)
	assert.Equal(t, 1.0, takes[1].Quantity)
}

func TestPlanDepletionOldestFirstWithinCondition(t *testing.T) {
	rows := []StockRow{
		stockRow(1, ConditionNew, 2, 2*time.Hour),
		stockRow(2, ConditionNew, 2, time.Hour),
	}

	takes, err := PlanDepletion(rows, 3)
	require.NoError(t, err)
	require.Len(t, takes, 2)
	assert.Equal(t, int64(2), takes[0].RowID)
	assert.Equal(t, 2.0, takes[0].Quantity)
	assert.Equal(t, int64(1), takes[1].RowID)
	assert.Equal(t, 1.0, takes[1].Quantity)
}

func TestPlanDepletionRefurbishedLast(t *testing.T) {
	rows := []StockRow{
		stockRow(1, ConditionRefurbished, 10, 0),
		stockRow(2, ConditionUsed, 1, time.Hour),
	}

	takes, err := PlanDepletion(rows, 2)
	require.NoError(t, err)
	require.Len(t, takes, 2)
	assert.Equal(t, int64(2), takes[0].RowID)
	assert.Equal(t, int64(1), takes[1].RowID)
	assert.Equal(t, 1.0, takes[1].Quantity)
}

func TestPlanDepletionInsufficient(t *testing.T) {
	rows := []StockRow{
		stockRow(1, ConditionNew, 3, 0),
	}

	takes, err := PlanDepletion(rows, 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Nil(t, takes)
}

func TestPlanDepletionSkipsEmptyRows(t *testing.T) {
	rows := []StockRow{
		stockRow(1, ConditionNew, 0, 0),
		stockRow(2, ConditionNew, 4, time.Hour),
	}

	takes, err := PlanDepletion(rows, 4)
	require.NoError(t, err)
	require.Len(t, takes, 1)
	assert.Equal(t, int64(2), takes[0].RowID)
}

func TestPlanDepletionExactZeroRemainder(t *testing.T) {
	rows := []StockRow{
		stockRow(1, ConditionNew, 0.1, 0),
		stockRow(2, ConditionNew, 0.2, time.Hour),
	}

	takes, err := PlanDepletion(rows, 0.3)
	require.NoError(t, err)
	assert.Len(t, takes, 2)
}

func TestConditionRank(t *testing.T) {
	assert.Less(t, ConditionRank(ConditionNew), ConditionRank(ConditionUsed))
	assert.Less(t, ConditionRank(ConditionUsed), ConditionRank(ConditionRefurbished))
	assert.Greater(t, ConditionRank("MYSTERY"), ConditionRank(ConditionRefurbished))
}
