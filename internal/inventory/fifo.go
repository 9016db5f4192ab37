package inventory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInsufficientStock signals that the available ledger rows cannot cover a
// requested quantity. Nothing is depleted when it is returned.
var ErrInsufficientStock = errors.New("insufficient stock")

// PlanDepletion decides which ledger rows a requested quantity is drawn from.
// Rows are consumed in condition order (NEW, USED, REFURBISHED) and oldest
// first within each condition. The plan covers the full quantity or fails.
func PlanDepletion(rows []StockRow, required float64) ([]Take, error) {
	ordered := make([]StockRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ConditionRank(ordered[i].Condition), ConditionRank(ordered[j].Condition)
		if ri != rj {
			return ri < rj
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	remaining := decimal.NewFromFloat(required)
	var takes []Take
	for _, row := range ordered {
		if !remaining.IsPositive() {
			break
		}
		available := decimal.NewFromFloat(row.Quantity)
		if !available.IsPositive() {
			continue
		}
		take := decimal.Min(available, remaining)
		qty, _ := take.Float64()
		takes = append(takes, Take{RowID: row.ID, Quantity: qty})
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		short, _ := remaining.Float64()
		return nil, fmt.Errorf("%w: short %v", ErrInsufficientStock, short)
	}
	return takes, nil
}
