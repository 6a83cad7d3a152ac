// Package aggregate reduces constrained reads to signed sums.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/query"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

// ErrPartialFailure wraps the first error of a fan-out. No partial result is
// ever returned alongside it.
var ErrPartialFailure = errors.New("aggregation partially failed")

const defaultConcurrency = 8

type Reader interface {
	Read(ctx context.Context, trackerID uuid.UUID, plan query.Plan) ([]*transaction.Transaction, error)
}

type Engine struct {
	reader      Reader
	builder     *query.Builder
	concurrency int
}

func NewEngine(reader Reader, builder *query.Builder) *Engine {
	return &Engine{reader: reader, builder: builder, concurrency: defaultConcurrency}
}

// Request is one sum in a fan-out.
type Request struct {
	TrackerID uuid.UUID
	Filter    filter.Filter
}

// PeriodSum holds the income and expense totals of a window. Expense is
// negative or zero.
type PeriodSum struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (p PeriodSum) Balance() decimal.Decimal {
	return p.Income.Add(p.Expense)
}

// Sum adds the signed amounts of every row f selects, ignoring the list
// limit. An empty selection sums to zero.
func (e *Engine) Sum(ctx context.Context, trackerID uuid.UUID, f filter.Filter, now time.Time) (decimal.Decimal, error) {
	plan := e.builder.Build(f, now).Unbounded()

	rows, err := e.reader.Read(ctx, trackerID, plan)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading tracker %s: %w", trackerID, err)
	}

	sum := decimal.Zero
	for _, tx := range query.Apply(plan, rows) {
		sum = sum.Add(tx.Amount)
	}

	return sum, nil
}

// SumMany sums several filters over one tracker concurrently.
func (e *Engine) SumMany(ctx context.Context, trackerID uuid.UUID, filters []filter.Filter, now time.Time) ([]decimal.Decimal, error) {
	reqs := make([]Request, len(filters))
	for i, f := range filters {
		reqs[i] = Request{TrackerID: trackerID, Filter: f}
	}

	return e.Collect(ctx, reqs, now)
}

// Collect runs every request concurrently and returns the sums in request
// order. It returns only after all reads have settled; if any failed the
// whole batch fails.
func (e *Engine) Collect(ctx context.Context, reqs []Request, now time.Time) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, r := range reqs {
		g.Go(func() error {
			sum, err := e.Sum(gctx, r.TrackerID, r.Filter, now)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}

			out[i] = sum

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPartialFailure, err)
	}

	return out, nil
}

// Totals returns the income and expense sums of f's period, issued together.
func (e *Engine) Totals(ctx context.Context, trackerID uuid.UUID, f filter.Filter, now time.Time) (PeriodSum, error) {
	sums, err := e.SumMany(ctx, trackerID, []filter.Filter{
		f.WithType(filter.TypeIncome),
		f.WithType(filter.TypeExpense),
	}, now)
	if err != nil {
		return PeriodSum{}, err
	}

	return PeriodSum{Income: sums[0], Expense: sums[1]}, nil
}

// ByCategory returns per-category totals for the categories f names. With no
// categories selected nothing is read and the map is empty.
func (e *Engine) ByCategory(ctx context.Context, trackerID uuid.UUID, f filter.Filter, now time.Time) (map[string]PeriodSum, error) {
	out := make(map[string]PeriodSum, len(f.Categories))
	if len(f.Categories) == 0 {
		return out, nil
	}

	ids := f.Categories.Sorted()
	reqs := make([]Request, 0, 2*len(ids))

	for _, id := range ids {
		one := f
		one.Categories = filter.NewSet(id)

		reqs = append(reqs,
			Request{TrackerID: trackerID, Filter: one.WithType(filter.TypeIncome)},
			Request{TrackerID: trackerID, Filter: one.WithType(filter.TypeExpense)},
		)
	}

	sums, err := e.Collect(ctx, reqs, now)
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		out[id] = PeriodSum{Income: sums[2*i], Expense: sums[2*i+1]}
	}

	return out, nil
}
