package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/splitbook/internal/aggregate"
	"github.com/MrJamesThe3rd/splitbook/internal/dashboard"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/http/auth"
	"github.com/MrJamesThe3rd/splitbook/internal/query"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction/transactiontest"
)

var now = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

type overviews struct {
	err     error
	filters []filter.Filter
	viewers []string
}

func (o *overviews) Wallet(_ context.Context, walletID uuid.UUID, viewerID string, f filter.Filter, _ time.Time) (*dashboard.WalletOverview, error) {
	o.filters = append(o.filters, f)
	o.viewers = append(o.viewers, viewerID)

	if o.err != nil {
		return nil, o.err
	}

	home := aggregate.PeriodSum{Income: decimal.NewFromInt(3000), Expense: decimal.NewFromInt(-1200)}
	trip := aggregate.PeriodSum{Income: decimal.Zero, Expense: decimal.NewFromInt(-450)}

	return &dashboard.WalletOverview{
		Wallet: &group.Wallet{ID: walletID, Name: "Family"},
		Period: f.Period(now),
		Groups: []dashboard.GroupSummary{
			{Group: &group.Group{ID: uuid.New(), Name: "Home"}, Totals: home},
			{Group: &group.Group{ID: uuid.New(), Name: "Trip"}, Totals: trip},
		},
		Total: aggregate.PeriodSum{Income: decimal.NewFromInt(3000), Expense: decimal.NewFromInt(-1650)},
	}, nil
}

type fixture struct {
	repo      *group.MockRepository
	overviews *overviews
	router    http.Handler
	wallet    *group.Wallet
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	repo := group.NewMockRepository(ctrl)

	f := &fixture{
		repo:      repo,
		overviews: &overviews{},
		wallet:    &group.Wallet{ID: uuid.New(), Name: "Family", OwnerID: "alice", MemberIDs: []string{"bob"}},
	}

	h := NewHandler(group.NewService(repo), f.overviews)
	h.now = func() time.Time { return now }

	router := chi.NewRouter()
	router.Route("/wallets", h.Routes)
	f.router = router

	return f
}

func (f *fixture) do(user, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithUserID(req.Context(), user))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func (f *fixture) path(suffix string) string {
	return "/wallets/" + f.wallet.ID.String() + suffix
}

func TestHandler_Create(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().
		CreateWallet(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, w *group.Wallet) error {
			assert.Equal(t, "alice", w.OwnerID)
			w.ID = uuid.New()
			return nil
		})

	rec := f.do("alice", http.MethodPost, "/wallets/", `{"name":"Family","member_ids":["bob"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp walletResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Family", resp.Name)
}

func TestHandler_Get(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		err      error
		wantCode int
	}{
		{name: "Owner", user: "alice", wantCode: http.StatusOK},
		{name: "Member", user: "bob", wantCode: http.StatusOK},
		{name: "Stranger", user: "mallory", wantCode: http.StatusForbidden},
		{name: "Missing", user: "alice", err: group.ErrWalletNotFound, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			if tt.err != nil {
				f.repo.EXPECT().GetWallet(gomock.Any(), f.wallet.ID).Return(nil, tt.err)
			} else {
				f.repo.EXPECT().GetWallet(gomock.Any(), f.wallet.ID).Return(f.wallet, nil)
			}

			assert.Equal(t, tt.wantCode, f.do(tt.user, http.MethodGet, f.path(""), "").Code)
		})
	}
}

func TestHandler_AddGroup(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		g := &group.Group{ID: uuid.New(), OwnerID: "bob"}

		f.repo.EXPECT().GetWallet(gomock.Any(), f.wallet.ID).Return(f.wallet, nil)
		f.repo.EXPECT().GetGroup(gomock.Any(), g.ID).Return(g, nil).Times(2)
		f.repo.EXPECT().AddGroupToWallet(gomock.Any(), f.wallet.ID, g.ID).Return(nil)

		rec := f.do("bob", http.MethodPost, f.path("/groups"), `{"group_id":"`+g.ID.String()+`"}`)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("NotAGroupMember", func(t *testing.T) {
		f := newFixture(t)
		g := &group.Group{ID: uuid.New(), OwnerID: "carol"}

		f.repo.EXPECT().GetWallet(gomock.Any(), f.wallet.ID).Return(f.wallet, nil)
		f.repo.EXPECT().GetGroup(gomock.Any(), g.ID).Return(g, nil)

		rec := f.do("bob", http.MethodPost, f.path("/groups"), `{"group_id":"`+g.ID.String()+`"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandler_Overview(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		f.repo.EXPECT().GetWallet(gomock.Any(), f.wallet.ID).Return(f.wallet, nil)

		rec := f.do("alice", http.MethodGet, f.path("/overview?time=2024-02-01"), "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		require.Len(t, f.overviews.filters, 1)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), f.overviews.filters[0].Month)
		assert.Equal(t, []string{"alice"}, f.overviews.viewers)

		var resp overviewResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Groups, 2)
		assert.Equal(t, "Home", resp.Groups[0].Name)
		assert.Equal(t, "Trip", resp.Groups[1].Name)
		assert.True(t, decimal.NewFromInt(1800).Equal(resp.Groups[0].Totals.Balance))
		assert.True(t, decimal.NewFromInt(1350).Equal(resp.Total.Balance))
	})

	t.Run("PartialFailure", func(t *testing.T) {
		f := newFixture(t)
		f.overviews.err = errors.Join(aggregate.ErrPartialFailure, errors.New("read failed"))
		f.repo.EXPECT().GetWallet(gomock.Any(), f.wallet.ID).Return(f.wallet, nil)

		rec := f.do("alice", http.MethodGet, f.path("/overview"), "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_Overview_OnlyOwnGroups(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := group.NewMockRepository(ctrl)
	reader := transactiontest.NewReader()

	home := &group.Group{ID: uuid.New(), Name: "Home", OwnerID: "alice", TrackerID: uuid.New()}
	trip := &group.Group{ID: uuid.New(), Name: "Trip", OwnerID: "carol", MemberIDs: []string{"alice"}, TrackerID: uuid.New()}
	wallet := &group.Wallet{
		ID:        uuid.New(),
		Name:      "Family",
		OwnerID:   "alice",
		MemberIDs: []string{"bob"},
		GroupIDs:  []uuid.UUID{home.ID, trip.ID},
	}

	reader.Add(home.TrackerID, &transaction.Transaction{
		ID: uuid.New(), Amount: decimal.NewFromInt(1800), Type: transaction.TypeIncome, Time: now,
	})
	reader.Add(trip.TrackerID, &transaction.Transaction{
		ID: uuid.New(), Amount: decimal.NewFromInt(-450), Type: transaction.TypeExpense, Time: now,
	})

	groups := group.NewService(repo)
	builder := query.NewBuilder(10, 0)

	h := NewHandler(groups, dashboard.NewService(groups, nil, aggregate.NewEngine(reader, builder), nil))
	h.now = func() time.Time { return now }

	router := chi.NewRouter()
	router.Route("/wallets", h.Routes)

	overview := func(t *testing.T, user string) overviewResponse {
		req := httptest.NewRequest(http.MethodGet, "/wallets/"+wallet.ID.String()+"/overview", nil)
		req = req.WithContext(auth.WithUserID(req.Context(), user))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp overviewResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

		return resp
	}

	repo.EXPECT().GetWallet(gomock.Any(), wallet.ID).Return(wallet, nil).Times(4)
	repo.EXPECT().GetGroups(gomock.Any(), wallet.GroupIDs).Return([]*group.Group{home, trip}, nil).Times(2)

	t.Run("WalletOnlyMember", func(t *testing.T) {
		resp := overview(t, "bob")
		assert.Empty(t, resp.Groups)
		assert.True(t, resp.Total.Income.IsZero())
		assert.True(t, resp.Total.Expense.IsZero())
	})

	t.Run("MemberOfBoth", func(t *testing.T) {
		resp := overview(t, "alice")
		require.Len(t, resp.Groups, 2)
		assert.Equal(t, "Home", resp.Groups[0].Name)
		assert.True(t, decimal.NewFromInt(1350).Equal(resp.Total.Balance))
	})
}
