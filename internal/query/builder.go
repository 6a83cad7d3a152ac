package query

import (
	"time"

	"github.com/MrJamesThe3rd/splitbook/internal/filter"
)

// DefaultMaxMembership is the largest value list the document store accepts
// in a single membership test.
const DefaultMaxMembership = 10

// Categorized is implemented by rows a post filter can inspect.
type Categorized interface {
	CategoryKey() string
}

// Plan is an arranged constraint list plus whatever the store could not
// express. PostFilter is nil when the server constraints are exact.
type Plan struct {
	Constraints []Constraint
	PostFilter  func(categoryID string) bool
	Limit       int
}

// Unbounded returns a copy of p without a result limit.
func (p Plan) Unbounded() Plan {
	p.Limit = 0
	return p
}

// ServerLimit is the limit a store may apply itself. A post-filtered plan
// must be read in full so the limit applies to the filtered rows.
func (p Plan) ServerLimit() int {
	if p.PostFilter != nil {
		return 0
	}

	return p.Limit
}

// Apply runs the post filter and the limit over rows read for p.
func Apply[R Categorized](p Plan, rows []R) []R {
	if p.PostFilter != nil {
		kept := rows[:0:0]

		for _, r := range rows {
			if p.PostFilter(r.CategoryKey()) {
				kept = append(kept, r)
			}
		}

		rows = kept
	}

	if p.Limit > 0 && len(rows) > p.Limit {
		rows = rows[:p.Limit]
	}

	return rows
}

type Builder struct {
	maxMembership int
	listLimit     int
}

// NewBuilder returns a builder capping membership tests at maxMembership
// values and lists at listLimit rows. Non-positive values select defaults.
func NewBuilder(maxMembership, listLimit int) *Builder {
	if maxMembership <= 0 {
		maxMembership = DefaultMaxMembership
	}

	return &Builder{maxMembership: maxMembership, listLimit: max(listLimit, 0)}
}

func (b *Builder) Build(f filter.Filter, now time.Time) Plan {
	var plan Plan

	if f.Type == filter.TypeIncome || f.Type == filter.TypeExpense {
		plan.Constraints = append(plan.Constraints, Equal(FieldType, string(f.Type)))
	}

	switch n := len(f.Categories); {
	case n == 0:
	case n <= b.maxMembership:
		plan.Constraints = append(plan.Constraints, In(FieldCategory, f.Categories.Sorted()))
	default:
		set := f.Categories
		plan.PostFilter = set.Has
	}

	period := f.Period(now)
	plan.Constraints = append(plan.Constraints,
		AtLeast(FieldTime, period.Start),
		AtMost(FieldTime, period.End),
	)

	if f.SortBy == filter.SortByAmount {
		plan.Constraints = append(plan.Constraints, OrderBy(FieldAmount, OpDescAbs))
	} else {
		plan.Constraints = append(plan.Constraints, OrderBy(FieldTime, OpDesc))
	}

	plan.Limit = b.listLimit

	return plan
}
