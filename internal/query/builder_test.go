package query_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/query"
)

var now = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

type row struct {
	id       int
	category string
}

func (r row) CategoryKey() string { return r.category }

func kinds(cs []query.Constraint) []query.Kind {
	out := make([]query.Kind, len(cs))
	for i, c := range cs {
		out[i] = c.Kind
	}

	return out
}

func TestBuilder_Build_Order(t *testing.T) {
	b := query.NewBuilder(10, 50)

	f := filter.Month(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	f.Type = filter.TypeExpense
	f.SortBy = filter.SortByAmount
	f.Categories = filter.NewSet("rent", "food")

	plan := b.Build(f, now)

	require.Len(t, plan.Constraints, 5)
	assert.Equal(t, []query.Kind{
		query.KindEquality, query.KindMembership, query.KindRange, query.KindRange, query.KindOrder,
	}, kinds(plan.Constraints))

	assert.Equal(t, query.Equal(query.FieldType, "expense"), plan.Constraints[0])
	assert.Equal(t, query.In(query.FieldCategory, []string{"food", "rent"}), plan.Constraints[1])
	assert.Equal(t, query.AtLeast(query.FieldTime, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), plan.Constraints[2])
	assert.Equal(t, query.AtMost(query.FieldTime, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)), plan.Constraints[3])
	assert.Equal(t, query.OrderBy(query.FieldAmount, query.OpDescAbs), plan.Constraints[4])
	assert.Nil(t, plan.PostFilter)
	assert.Equal(t, 50, plan.Limit)

	arranged, err := query.Arrange(plan.Constraints)
	require.NoError(t, err)
	assert.Equal(t, plan.Constraints, arranged)
}

func TestBuilder_Build_AllTypesOmitsEquality(t *testing.T) {
	plan := query.NewBuilder(0, 0).Build(filter.Month(now), now)

	assert.Equal(t, []query.Kind{query.KindRange, query.KindRange, query.KindOrder}, kinds(plan.Constraints))
	assert.Equal(t, query.OrderBy(query.FieldTime, query.OpDesc), plan.Constraints[2])
	assert.Zero(t, plan.Limit)
}

func TestBuilder_Build_RangeBounds(t *testing.T) {
	var f filter.Filter
	f.UseRange(time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC), time.Date(2024, 2, 20, 6, 0, 0, 0, time.UTC))

	plan := query.NewBuilder(10, 0).Build(f, now)

	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), plan.Constraints[0].Value)
	assert.Equal(t, time.Date(2024, 2, 21, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), plan.Constraints[1].Value)
}

func TestBuilder_Build_NoPeriodDefaultsToCurrentMonth(t *testing.T) {
	plan := query.NewBuilder(10, 0).Build(filter.Filter{}, now)

	require.Len(t, plan.Constraints, 3)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), plan.Constraints[0].Value)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), plan.Constraints[1].Value)
}

func TestBuilder_Build_TooManyCategoriesFallsBackToPostFilter(t *testing.T) {
	ids := make([]string, 11)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%02d", i)
	}

	f := filter.Month(now)
	f.Categories = filter.NewSet(ids...)

	plan := query.NewBuilder(10, 0).Build(f, now)

	for _, c := range plan.Constraints {
		assert.NotEqual(t, query.KindMembership, c.Kind)
	}

	require.NotNil(t, plan.PostFilter)

	var rows []row
	for i := range 20 {
		rows = append(rows, row{id: i, category: fmt.Sprintf("c%02d", i)})
	}

	rows = append(rows, row{id: 99, category: "uncategorized"})

	kept := query.Apply(plan, rows)
	require.Len(t, kept, 11)

	for i, r := range kept {
		assert.Equal(t, i, r.id)
	}
}

func TestBuilder_Build_ExactlyMaxCategoriesStaysOnServer(t *testing.T) {
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%02d", i)
	}

	f := filter.Month(now)
	f.Categories = filter.NewSet(ids...)

	plan := query.NewBuilder(10, 0).Build(f, now)

	assert.Nil(t, plan.PostFilter)
	assert.Equal(t, query.KindMembership, plan.Constraints[0].Kind)
}

func TestPlan_LimitAppliesAfterPostFilter(t *testing.T) {
	plan := query.Plan{
		PostFilter: func(c string) bool { return c == "keep" },
		Limit:      2,
	}

	assert.Zero(t, plan.ServerLimit())

	rows := []row{{1, "drop"}, {2, "keep"}, {3, "drop"}, {4, "keep"}, {5, "keep"}}
	assert.Equal(t, []row{{2, "keep"}, {4, "keep"}}, query.Apply(plan, rows))

	unbounded := plan.Unbounded()
	assert.Len(t, query.Apply(unbounded, rows), 3)
	assert.Equal(t, 2, plan.Limit)
}

func TestArrange(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Reorders", func(t *testing.T) {
		cs := []query.Constraint{
			query.OrderBy(query.FieldTime, query.OpDesc),
			query.AtLeast(query.FieldTime, start),
			query.Equal(query.FieldType, "income"),
			query.In(query.FieldCategory, []string{"a"}),
		}

		got, err := query.Arrange(cs)
		require.NoError(t, err)
		assert.Equal(t, []query.Kind{
			query.KindEquality, query.KindMembership, query.KindRange, query.KindOrder,
		}, kinds(got))
		assert.Equal(t, query.KindOrder, cs[0].Kind, "input must not be modified")
	})

	t.Run("TwoOrders", func(t *testing.T) {
		_, err := query.Arrange([]query.Constraint{
			query.OrderBy(query.FieldTime, query.OpDesc),
			query.OrderBy(query.FieldAmount, query.OpDesc),
		})
		assert.True(t, errors.Is(err, query.ErrInfeasible))
	})

	t.Run("RangeOnTwoFields", func(t *testing.T) {
		_, err := query.Arrange([]query.Constraint{
			query.AtLeast(query.FieldTime, start),
			query.AtMost(query.FieldAmount, 10),
		})
		assert.True(t, errors.Is(err, query.ErrInfeasible))
	})
}
