package dashboard_test

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
	"github.com/MrJamesThe3rd/splitbook/internal/budget"
	"github.com/MrJamesThe3rd/splitbook/internal/dashboard"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/query"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction/transactiontest"
	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

var now = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

type fakeGroups struct {
	groups  map[uuid.UUID]*group.Group
	wallets map[uuid.UUID]*group.Wallet
}

func (f *fakeGroups) Get(_ context.Context, id uuid.UUID) (*group.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, group.ErrNotFound
	}

	return g, nil
}

func (f *fakeGroups) GetWallet(_ context.Context, id uuid.UUID) (*group.Wallet, error) {
	w, ok := f.wallets[id]
	if !ok {
		return nil, group.ErrWalletNotFound
	}

	return w, nil
}

func (f *fakeGroups) WalletGroups(_ context.Context, w *group.Wallet) ([]*group.Group, error) {
	out := make([]*group.Group, 0, len(w.GroupIDs))
	for _, id := range w.GroupIDs {
		out = append(out, f.groups[id])
	}

	return out, nil
}

type lister struct {
	reader  *transactiontest.Reader
	builder *query.Builder
}

func (l lister) List(ctx context.Context, trackerID uuid.UUID, f filter.Filter, now time.Time) ([]*transaction.Transaction, error) {
	plan := l.builder.Build(f, now)

	rows, err := l.reader.Read(ctx, trackerID, plan)
	if err != nil {
		return nil, err
	}

	return query.Apply(plan, rows), nil
}

type notifications struct{ sent []warning.Notification }

func (n *notifications) Notify(_ context.Context, w warning.Notification) error {
	n.sent = append(n.sent, w)
	return nil
}

type brokenWarnings struct{}

func (brokenWarnings) Observe(context.Context, warning.Observation) (bool, error) {
	return false, errors.New("redis down")
}

func (brokenWarnings) State(context.Context, uuid.UUID) (warning.Entry, error) {
	return warning.Entry{}, errors.New("redis down")
}

type fixture struct {
	reader  *transactiontest.Reader
	groups  *fakeGroups
	sent    *notifications
	service *dashboard.Service
	group   *group.Group
}

func newFixture(t *testing.T, ceiling *decimal.Decimal) *fixture {
	t.Helper()

	builder := query.NewBuilder(10, 2)
	reader := transactiontest.NewReader()
	sent := &notifications{}

	g := &group.Group{ID: uuid.New(), Name: "Flat", Budget: ceiling, TrackerID: uuid.New(), Version: 1, OwnerID: "alice"}
	groups := &fakeGroups{
		groups:  map[uuid.UUID]*group.Group{g.ID: g},
		wallets: map[uuid.UUID]*group.Wallet{},
	}

	svc := dashboard.NewService(
		groups,
		lister{reader: reader, builder: builder},
		aggregate.NewEngine(reader, builder),
		warning.NewDispatcher(warning.NewMemoryStore(), sent),
	)

	return &fixture{reader: reader, groups: groups, sent: sent, service: svc, group: g}
}

func entry(amount int64, typ transaction.Type, at time.Time, category string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:         uuid.New(),
		Amount:     transaction.Signed(decimal.NewFromInt(amount), typ),
		Type:       typ,
		Time:       at,
		CategoryID: category,
	}
}

func TestService_Group_CurrentMonth(t *testing.T) {
	ceiling := decimal.NewFromInt(100000)
	fx := newFixture(t, &ceiling)

	fx.reader.Add(fx.group.TrackerID,
		entry(500000, transaction.TypeIncome, now.AddDate(0, 0, -10), "salary"),
		entry(50000, transaction.TypeExpense, now.AddDate(0, 0, -5), "rent"),
		entry(30000, transaction.TypeExpense, now.AddDate(0, 0, -1), "food"),
		entry(99999, transaction.TypeExpense, now.AddDate(0, -1, 0), "rent"),
	)

	got, err := fx.service.Group(context.Background(), fx.group.ID, filter.Month(now), now)
	require.NoError(t, err)

	assert.Len(t, got.Transactions, 2, "list honours the configured limit")
	assert.True(t, decimal.NewFromInt(500000).Equal(got.Totals.Income))
	assert.True(t, decimal.NewFromInt(-80000).Equal(got.Totals.Expense))
	assert.Empty(t, got.Categories)

	assert.Equal(t, budget.TierCritical, got.Budget.Tier)
	assert.True(t, decimal.NewFromInt(80).Equal(got.Budget.UsedPercent))

	assert.True(t, got.Notified)
	assert.Equal(t, warning.StateShown, got.Warning.State)
	require.Len(t, fx.sent.sent, 1)

	again, err := fx.service.Group(context.Background(), fx.group.ID, filter.Month(now), now)
	require.NoError(t, err)
	assert.False(t, again.Notified)
	assert.Len(t, fx.sent.sent, 1)
}

func TestService_Group_PastMonthDoesNotWarn(t *testing.T) {
	ceiling := decimal.NewFromInt(100)
	fx := newFixture(t, &ceiling)

	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	fx.reader.Add(fx.group.TrackerID, entry(1000, transaction.TypeExpense, feb, "rent"))

	got, err := fx.service.Group(context.Background(), fx.group.ID, filter.Month(feb), now)
	require.NoError(t, err)

	assert.Equal(t, budget.TierCritical, got.Budget.Tier)
	assert.False(t, got.Notified)
	assert.Equal(t, warning.StateUnarmed, got.Warning.State)
	assert.Empty(t, fx.sent.sent)
}

func TestService_Group_BudgetIgnoresCategorySelection(t *testing.T) {
	ceiling := decimal.NewFromInt(1000)
	fx := newFixture(t, &ceiling)

	fx.reader.Add(fx.group.TrackerID,
		entry(300, transaction.TypeExpense, now, "rent"),
		entry(400, transaction.TypeExpense, now, "food"),
	)

	f := filter.Month(now)
	f.Categories = filter.NewSet("rent")

	got, err := fx.service.Group(context.Background(), fx.group.ID, f, now)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(-300).Equal(got.Totals.Expense))
	assert.True(t, decimal.NewFromInt(-300).Equal(got.Categories["rent"].Expense))
	assert.True(t, decimal.NewFromInt(70).Equal(got.Budget.UsedPercent), "used %s", got.Budget.UsedPercent)
	assert.Equal(t, budget.TierWarning, got.Budget.Tier)
}

func TestService_Group_NoBudget(t *testing.T) {
	fx := newFixture(t, nil)
	fx.reader.Add(fx.group.TrackerID, entry(10, transaction.TypeExpense, now, ""))

	got, err := fx.service.Group(context.Background(), fx.group.ID, filter.Month(now), now)
	require.NoError(t, err)

	assert.True(t, got.Budget.NoBudget)
	assert.False(t, got.Notified)
}

func TestService_Group_ReadFailureReturnsNothing(t *testing.T) {
	ceiling := decimal.NewFromInt(100)
	fx := newFixture(t, &ceiling)
	fx.reader.Fail(fx.group.TrackerID, errors.New("permission denied"))

	got, err := fx.service.Group(context.Background(), fx.group.ID, filter.Month(now), now)
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.Empty(t, fx.sent.sent)
}

func TestService_Group_UnknownGroup(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.service.Group(context.Background(), uuid.New(), filter.Month(now), now)
	assert.True(t, errors.Is(err, group.ErrNotFound))
}

func TestService_Group_WarningFailureIsNotFatal(t *testing.T) {
	ceiling := decimal.NewFromInt(100)
	builder := query.NewBuilder(10, 0)
	reader := transactiontest.NewReader()

	g := &group.Group{ID: uuid.New(), Budget: &ceiling, TrackerID: uuid.New()}
	reader.Add(g.TrackerID, entry(90, transaction.TypeExpense, now, ""))

	svc := dashboard.NewService(
		&fakeGroups{groups: map[uuid.UUID]*group.Group{g.ID: g}},
		lister{reader: reader, builder: builder},
		aggregate.NewEngine(reader, builder),
		brokenWarnings{},
	)

	got, err := svc.Group(context.Background(), g.ID, filter.Month(now), now)
	require.NoError(t, err)
	assert.Equal(t, budget.TierCritical, got.Budget.Tier)
	assert.False(t, got.Notified)
}

func TestService_Wallet(t *testing.T) {
	fx := newFixture(t, nil)

	second := &group.Group{ID: uuid.New(), Name: "Trip", TrackerID: uuid.New(), OwnerID: "bob", MemberIDs: []string{"alice"}}
	fx.groups.groups[second.ID] = second

	fx.reader.Add(fx.group.TrackerID,
		entry(1000, transaction.TypeIncome, now, ""),
		entry(250, transaction.TypeExpense, now, "food"),
	)
	fx.reader.Add(second.TrackerID, entry(600, transaction.TypeExpense, now, ""))
	// The first group reads slowest but must stay first.
	fx.reader.Delay(fx.group.TrackerID, 30*time.Millisecond)

	w := &group.Wallet{ID: uuid.New(), GroupIDs: []uuid.UUID{fx.group.ID, second.ID}}
	fx.groups.wallets[w.ID] = w

	f := filter.Month(now)
	f.Categories = filter.NewSet("food")

	got, err := fx.service.Wallet(context.Background(), w.ID, "alice", f, now)
	require.NoError(t, err)
	require.Len(t, got.Groups, 2)

	assert.Equal(t, fx.group.ID, got.Groups[0].Group.ID)
	assert.True(t, decimal.NewFromInt(750).Equal(got.Groups[0].Totals.Balance()))
	assert.Equal(t, second.ID, got.Groups[1].Group.ID)
	assert.True(t, decimal.NewFromInt(-600).Equal(got.Groups[1].Totals.Expense))

	assert.True(t, decimal.NewFromInt(1000).Equal(got.Total.Income))
	assert.True(t, decimal.NewFromInt(-850).Equal(got.Total.Expense))
}

func TestService_Wallet_PartialFailure(t *testing.T) {
	fx := newFixture(t, nil)
	fx.reader.Fail(fx.group.TrackerID, errors.New("timeout"))

	w := &group.Wallet{ID: uuid.New(), GroupIDs: []uuid.UUID{fx.group.ID}}
	fx.groups.wallets[w.ID] = w

	got, err := fx.service.Wallet(context.Background(), w.ID, "alice", filter.Month(now), now)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, aggregate.ErrPartialFailure))
}

func TestService_Wallet_OmitsGroupsOfOthers(t *testing.T) {
	fx := newFixture(t, nil)

	private := &group.Group{ID: uuid.New(), Name: "Private", TrackerID: uuid.New(), OwnerID: "carol"}
	fx.groups.groups[private.ID] = private

	fx.reader.Add(fx.group.TrackerID, entry(100, transaction.TypeExpense, now, ""))
	// Reading the private tracker at all would fail the whole overview.
	fx.reader.Fail(private.TrackerID, errors.New("must not be read"))

	w := &group.Wallet{ID: uuid.New(), OwnerID: "alice", MemberIDs: []string{"carol"}, GroupIDs: []uuid.UUID{private.ID, fx.group.ID}}
	fx.groups.wallets[w.ID] = w

	got, err := fx.service.Wallet(context.Background(), w.ID, "alice", filter.Month(now), now)
	require.NoError(t, err)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, fx.group.ID, got.Groups[0].Group.ID)
	assert.True(t, got.Total.Income.IsZero())
	assert.True(t, decimal.NewFromInt(-100).Equal(got.Total.Expense))

	got, err = fx.service.Wallet(context.Background(), w.ID, "dave", filter.Month(now), now)
	require.NoError(t, err)
	assert.Empty(t, got.Groups)
	assert.True(t, got.Total.Balance().IsZero())
}
