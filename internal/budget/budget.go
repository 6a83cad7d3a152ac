// Package budget compares spending against a group's budget ceiling.
package budget

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/filter"
)

// Tier is the budget-usage severity used for warnings.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Alerting reports whether t should surface a warning.
func (t Tier) Alerting() bool {
	return t == TierWarning || t == TierCritical
}

// Pace is the timeline severity of actual against ideal spend. It is a
// separate scale from Tier and never feeds warnings.
type Pace string

const (
	PaceOnTrack  Pace = "on_track"
	PaceElevated Pace = "elevated"
	PaceOver     Pace = "over"
)

var (
	hundred         = decimal.NewFromInt(100)
	warningPercent  = decimal.NewFromInt(60)
	criticalPercent = decimal.NewFromInt(80)
	elevatedRatio   = decimal.NewFromInt(1)
	overRatio       = decimal.RequireFromString("1.2")
)

// Result is the evaluation of one period. When NoBudget is set every other
// field is zero.
type Result struct {
	NoBudget bool

	Spent decimal.Decimal
	// UsedPercent may exceed 100.
	UsedPercent decimal.Decimal
	// DisplayPercent is UsedPercent clamped to 100 for progress bars.
	DisplayPercent decimal.Decimal
	Tier           Tier

	IdealToDate decimal.Decimal
	// ProjectedTotal is nil until at least one day of the period has elapsed.
	ProjectedTotal *decimal.Decimal
	Pace           Pace
}

// TierFor buckets a usage percentage.
func TierFor(usedPercent decimal.Decimal) Tier {
	switch {
	case usedPercent.GreaterThanOrEqual(criticalPercent):
		return TierCritical
	case usedPercent.GreaterThanOrEqual(warningPercent):
		return TierWarning
	}

	return TierNormal
}

// PaceFor buckets the ratio of actual to ideal spend.
func PaceFor(actual, ideal decimal.Decimal) Pace {
	if !ideal.IsPositive() {
		if actual.IsPositive() {
			return PaceOver
		}

		return PaceOnTrack
	}

	ratio := actual.DivRound(ideal, 8)

	switch {
	case ratio.LessThanOrEqual(elevatedRatio):
		return PaceOnTrack
	case ratio.LessThanOrEqual(overRatio):
		return PaceElevated
	}

	return PaceOver
}

// Evaluate rates expenseSum, a signed sum of expenses, against ceiling. A
// missing or non-positive ceiling yields NoBudget rather than zero usage.
func Evaluate(expenseSum decimal.Decimal, ceiling *decimal.Decimal, progress filter.Progress) Result {
	if ceiling == nil || !ceiling.IsPositive() {
		return Result{NoBudget: true}
	}

	spent := expenseSum.Abs()
	used := spent.Mul(hundred).Div(*ceiling)

	res := Result{
		Spent:          spent,
		UsedPercent:    used,
		DisplayPercent: decimal.Min(used, hundred),
		Tier:           TierFor(used),
	}

	total := max(progress.Total, 1)
	elapsed := min(max(progress.Elapsed, 1), total)

	res.IdealToDate = ceiling.Mul(decimal.NewFromInt(int64(elapsed))).Div(decimal.NewFromInt(int64(total)))
	res.Pace = PaceFor(spent, res.IdealToDate)

	if progress.Elapsed > 0 {
		projected := spent.Mul(decimal.NewFromInt(int64(progress.Total))).Div(decimal.NewFromInt(int64(progress.Elapsed)))
		res.ProjectedTotal = &projected
	}

	return res
}
