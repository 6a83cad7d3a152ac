// Package dashboard assembles the list, totals, budget and warning views of
// a group or wallet from one filter.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/splitbook/internal/aggregate"
	"github.com/MrJamesThe3rd/splitbook/internal/budget"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

type Groups interface {
	Get(ctx context.Context, id uuid.UUID) (*group.Group, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*group.Wallet, error)
	WalletGroups(ctx context.Context, w *group.Wallet) ([]*group.Group, error)
}

type Transactions interface {
	List(ctx context.Context, trackerID uuid.UUID, f filter.Filter, now time.Time) ([]*transaction.Transaction, error)
}

type Warnings interface {
	Observe(ctx context.Context, o warning.Observation) (bool, error)
	State(ctx context.Context, groupID uuid.UUID) (warning.Entry, error)
}

type Service struct {
	groups   Groups
	txs      Transactions
	engine   *aggregate.Engine
	warnings Warnings
}

func NewService(groups Groups, txs Transactions, engine *aggregate.Engine, warnings Warnings) *Service {
	return &Service{groups: groups, txs: txs, engine: engine, warnings: warnings}
}

type GroupDashboard struct {
	Group        *group.Group
	Filter       filter.Filter
	Period       filter.Period
	Transactions []*transaction.Transaction
	Totals       aggregate.PeriodSum
	// Categories is empty unless the filter selects categories.
	Categories map[string]aggregate.PeriodSum
	Budget     budget.Result
	Warning    warning.Entry
	// Notified is set when this request sent the group's warning.
	Notified bool
}

// Group builds a group's dashboard. Every read must succeed before anything
// is returned. The budget always covers all categories of the period, and
// warnings are only evaluated for the live month.
func (s *Service) Group(ctx context.Context, groupID uuid.UUID, f filter.Filter, now time.Time) (*GroupDashboard, error) {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	d := &GroupDashboard{Group: g, Filter: f, Period: f.Period(now)}

	spent := decimal.Zero

	eg, ectx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		txs, err := s.txs.List(ectx, g.TrackerID, f, now)
		d.Transactions = txs

		return err
	})
	eg.Go(func() error {
		totals, err := s.engine.Totals(ectx, g.TrackerID, f, now)
		d.Totals = totals

		return err
	})
	eg.Go(func() error {
		sums, err := s.engine.ByCategory(ectx, g.TrackerID, f, now)
		d.Categories = sums

		return err
	})
	eg.Go(func() error {
		sum, err := s.engine.Sum(ectx, g.TrackerID, f.WithoutCategories().WithType(filter.TypeExpense), now)
		spent = sum

		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("building dashboard for group %s: %w", groupID, err)
	}

	d.Budget = budget.Evaluate(spent, g.Budget, d.Period.Progress(now))

	if s.warnings == nil {
		return d, nil
	}

	if f.IsCurrentMonth(now) && !d.Budget.NoBudget {
		sent, err := s.warnings.Observe(ctx, warning.Observation{
			GroupID:     g.ID,
			GroupName:   g.Name,
			Budget:      *g.Budget,
			Version:     g.Version,
			Period:      d.Period,
			Tier:        d.Budget.Tier,
			UsedPercent: d.Budget.UsedPercent,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to observe budget warning", "group_id", g.ID, "error", err)
		}

		d.Notified = sent
	}

	entry, err := s.warnings.State(ctx, g.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load warning state", "group_id", g.ID, "error", err)
	}

	d.Warning = entry

	return d, nil
}

type GroupSummary struct {
	Group  *group.Group
	Totals aggregate.PeriodSum
}

type WalletOverview struct {
	Wallet *group.Wallet
	Period filter.Period
	Groups []GroupSummary
	Total  aggregate.PeriodSum
}

// Wallet sums income and expense for the wallet's groups in one fan-out.
// Groups viewerID does not belong to are left out of both the summaries and
// the total. Category selections are ignored.
func (s *Service) Wallet(ctx context.Context, walletID uuid.UUID, viewerID string, f filter.Filter, now time.Time) (*WalletOverview, error) {
	w, err := s.groups.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	all, err := s.groups.WalletGroups(ctx, w)
	if err != nil {
		return nil, err
	}

	groups := make([]*group.Group, 0, len(all))
	for _, g := range all {
		if g.HasMember(viewerID) {
			groups = append(groups, g)
		}
	}

	f = f.WithoutCategories()

	reqs := make([]aggregate.Request, 0, 2*len(groups))
	for _, g := range groups {
		reqs = append(reqs,
			aggregate.Request{TrackerID: g.TrackerID, Filter: f.WithType(filter.TypeIncome)},
			aggregate.Request{TrackerID: g.TrackerID, Filter: f.WithType(filter.TypeExpense)},
		)
	}

	sums, err := s.engine.Collect(ctx, reqs, now)
	if err != nil {
		return nil, fmt.Errorf("building overview for wallet %s: %w", walletID, err)
	}

	o := &WalletOverview{
		Wallet: w,
		Period: f.Period(now),
		Groups: make([]GroupSummary, len(groups)),
		Total:  aggregate.PeriodSum{Income: decimal.Zero, Expense: decimal.Zero},
	}

	for i, g := range groups {
		totals := aggregate.PeriodSum{Income: sums[2*i], Expense: sums[2*i+1]}
		o.Groups[i] = GroupSummary{Group: g, Totals: totals}
		o.Total.Income = o.Total.Income.Add(totals.Income)
		o.Total.Expense = o.Total.Expense.Add(totals.Expense)
	}

	return o, nil
}
