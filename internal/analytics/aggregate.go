// Package analytics computes sales summaries: totals plus count and revenue
// grouped by branch, city, category and customer type.
package analytics

import (
	"math"
	"sort"

	"github.com/kiranshivaraju/salesboard/pkg/models"
	"github.com/shopspring/decimal"
)

type groupState struct {
	count   int
	revenue decimal.Decimal
}

// Accumulator folds sales into a Summary one at a time. Revenue is summed
// in decimal so the result does not depend on the order sales arrive in.
type Accumulator struct {
	count   int
	revenue decimal.Decimal
	groups  map[models.Dimension]map[string]*groupState
}

func NewAccumulator() *Accumulator {
	groups := make(map[models.Dimension]map[string]*groupState, len(models.Dimensions))
	for _, d := range models.Dimensions {
		groups[d] = make(map[string]*groupState)
	}
	return &Accumulator{groups: groups}
}

// Add counts s in the totals and in every dimension. An empty group value
// is a bucket of its own. A non-finite total counts as zero revenue.
func (a *Accumulator) Add(s *models.Sale) {
	amount := decimal.Zero
	if !math.IsInf(s.TotalPrice, 0) && !math.IsNaN(s.TotalPrice) {
		amount = decimal.NewFromFloat(s.TotalPrice)
	}
	a.count++
	a.revenue = a.revenue.Add(amount)

	for _, d := range models.Dimensions {
		key := d.Value(s)
		gs, exists := a.groups[d][key]
		if !exists {
			gs = &groupState{}
			a.groups[d][key] = gs
		}
		gs.count++
		gs.revenue = gs.revenue.Add(amount)
	}
}

// Summary returns the accumulated totals. Groups are never nil.
func (a *Accumulator) Summary() *models.Summary {
	sum := &models.Summary{
		TotalSales:   a.count,
		TotalRevenue: a.revenue.InexactFloat64(),
	}
	for _, d := range models.Dimensions {
		stats := make([]models.GroupStat, 0, len(a.groups[d]))
		for key, gs := range a.groups[d] {
			stats = append(stats, models.GroupStat{Key: key, Count: gs.count, Revenue: gs.revenue.InexactFloat64()})
		}
		SortGroups(stats)
		*sum.Groups(d) = stats
	}
	return sum
}

// Aggregate summarizes sales in one pass.
func Aggregate(sales []*models.Sale) *models.Summary {
	acc := NewAccumulator()
	for _, s := range sales {
		acc.Add(s)
	}
	return acc.Summary()
}

// SortGroups orders groups by revenue descending, then key ascending.
func SortGroups(groups []models.GroupStat) {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Revenue != groups[j].Revenue {
			return groups[i].Revenue > groups[j].Revenue
		}
		return groups[i].Key < groups[j].Key
	})
}
