package aggregate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/splitbook/internal/aggregate"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/query"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction/transactiontest"
)

var now = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

func tx(amount int64, typ transaction.Type, at time.Time, category string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:         uuid.New(),
		Amount:     transaction.Signed(decimal.NewFromInt(amount), typ),
		Type:       typ,
		Time:       at,
		CategoryID: category,
	}
}

func newEngine(r *transactiontest.Reader) *aggregate.Engine {
	// A tiny list limit proves sums are never truncated.
	return aggregate.NewEngine(r, query.NewBuilder(10, 1))
}

func TestEngine_Sum(t *testing.T) {
	type testCase struct {
		name   string
		filter filter.Filter
		want   int64
	}

	trackerID := uuid.New()
	reader := transactiontest.NewReader()
	reader.Add(trackerID,
		tx(500000, transaction.TypeIncome, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "salary"),
		tx(200000, transaction.TypeExpense, time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC), "rent"),
		tx(999, transaction.TypeExpense, time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC), "rent"),
		tx(777, transaction.TypeIncome, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "salary"),
	)

	expenses := filter.Month(now).WithType(filter.TypeExpense)

	rentOnly := filter.Month(now)
	rentOnly.Categories = filter.NewSet("rent")

	tests := []testCase{
		{name: "NetOfMonth", filter: filter.Month(now), want: 300000},
		{name: "ExpensesOnly", filter: expenses, want: -200000},
		{name: "CategoryOnly", filter: rentOnly, want: -200000},
		{name: "PreviousMonth", filter: filter.Month(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), want: -999},
		{name: "EmptyMonthIsZero", filter: filter.Month(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)), want: 0},
	}

	engine := newEngine(reader)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Sum(context.Background(), trackerID, tt.filter, now)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestEngine_Sum_PostFilteredCategories(t *testing.T) {
	trackerID := uuid.New()
	reader := transactiontest.NewReader()

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	for _, id := range ids {
		reader.Add(trackerID, tx(10, transaction.TypeExpense, now, id))
	}

	reader.Add(trackerID, tx(5000, transaction.TypeExpense, now, "z"))

	f := filter.Month(now)
	f.Categories = filter.NewSet(ids...)

	got, err := newEngine(reader).Sum(context.Background(), trackerID, f, now)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-110).Equal(got), "got %s", got)
}

func TestEngine_Collect_PreservesRequestOrder(t *testing.T) {
	reader := transactiontest.NewReader()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	for i, id := range ids {
		reader.Add(id, tx(int64(i+1)*100, transaction.TypeIncome, now, ""))
	}

	reader.Delay(ids[1], 50*time.Millisecond)

	reqs := make([]aggregate.Request, len(ids))
	for i, id := range ids {
		reqs[i] = aggregate.Request{TrackerID: id, Filter: filter.Month(now)}
	}

	got, err := newEngine(reader).Collect(context.Background(), reqs, now)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, want := range []int64{100, 200, 300} {
		assert.True(t, decimal.NewFromInt(want).Equal(got[i]), "result %d: %s", i, got[i])
	}
}

func TestEngine_Collect_AllOrNothing(t *testing.T) {
	reader := transactiontest.NewReader()
	ok, broken := uuid.New(), uuid.New()
	storageErr := errors.New("permission denied")

	reader.Add(ok, tx(100, transaction.TypeIncome, now, ""))
	reader.Fail(broken, storageErr)

	got, err := newEngine(reader).Collect(context.Background(), []aggregate.Request{
		{TrackerID: ok, Filter: filter.Month(now)},
		{TrackerID: broken, Filter: filter.Month(now)},
		{TrackerID: ok, Filter: filter.Month(now)},
	}, now)

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, aggregate.ErrPartialFailure))
	assert.True(t, errors.Is(err, storageErr))
}

func TestEngine_Collect_Empty(t *testing.T) {
	got, err := newEngine(transactiontest.NewReader()).Collect(context.Background(), nil, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngine_Totals(t *testing.T) {
	trackerID := uuid.New()
	reader := transactiontest.NewReader()
	reader.Add(trackerID,
		tx(500000, transaction.TypeIncome, now, "salary"),
		tx(150000, transaction.TypeExpense, now, "rent"),
		tx(50000, transaction.TypeExpense, now, "food"),
	)

	// The requested type does not narrow totals.
	got, err := newEngine(reader).Totals(context.Background(), trackerID, filter.Month(now).WithType(filter.TypeIncome), now)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(500000).Equal(got.Income))
	assert.True(t, decimal.NewFromInt(-200000).Equal(got.Expense))
	assert.True(t, decimal.NewFromInt(300000).Equal(got.Balance()))
}

func TestEngine_ByCategory(t *testing.T) {
	trackerID := uuid.New()
	reader := transactiontest.NewReader()
	reader.Add(trackerID,
		tx(100, transaction.TypeExpense, now, "food"),
		tx(40, transaction.TypeIncome, now, "food"),
		tx(300, transaction.TypeExpense, now, "rent"),
		tx(900, transaction.TypeExpense, now, "travel"),
	)

	engine := newEngine(reader)

	t.Run("NoCategoriesReadsNothing", func(t *testing.T) {
		got, err := engine.ByCategory(context.Background(), trackerID, filter.Month(now), now)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, reader.Plans())
	})

	t.Run("Selected", func(t *testing.T) {
		f := filter.Month(now)
		f.Categories = filter.NewSet("food", "rent", "empty")

		got, err := engine.ByCategory(context.Background(), trackerID, f, now)
		require.NoError(t, err)
		require.Len(t, got, 3)

		assert.True(t, decimal.NewFromInt(40).Equal(got["food"].Income))
		assert.True(t, decimal.NewFromInt(-100).Equal(got["food"].Expense))
		assert.True(t, decimal.NewFromInt(-300).Equal(got["rent"].Balance()))
		assert.True(t, got["empty"].Balance().IsZero())
	})
}
