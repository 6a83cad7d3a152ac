package transaction

import (
	"context"
	"encoding/json"
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

	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/http/access"
	"github.com/MrJamesThe3rd/splitbook/internal/http/auth"
	"github.com/MrJamesThe3rd/splitbook/internal/query"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

var now = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

type groups map[uuid.UUID]*group.Group

func (g groups) Get(_ context.Context, id uuid.UUID) (*group.Group, error) {
	if found, ok := g[id]; ok {
		return found, nil
	}

	return nil, group.ErrNotFound
}

type fixture struct {
	repo   *transaction.MockRepository
	router http.Handler
	group  *group.Group
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	repo := transaction.NewMockRepository(ctrl)

	h := NewHandler(transaction.NewService(repo, query.NewBuilder(10, 50)))
	h.now = func() time.Time { return now }

	g := &group.Group{ID: uuid.New(), OwnerID: "alice", TrackerID: uuid.New()}

	router := chi.NewRouter()
	router.Route("/groups/{groupID}/transactions", func(r chi.Router) {
		r.Use(access.Group(groups{g.ID: g}))
		h.Routes(r)
	})

	return &fixture{repo: repo, router: router, group: g}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/groups/"+f.group.ID.String()+"/transactions"+path, strings.NewReader(body))
	req = req.WithContext(auth.WithUserID(req.Context(), "alice"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *transaction.MockRepository, trackerID uuid.UUID)
		wantCode   int
		wantAmount string
	}{
		{
			name: "ExpenseStoredNegative",
			body: `{"amount":"1250.50","type":"expense","name":"Groceries","category_id":"food","time":"2024-03-10T12:00:00Z"}`,
			setupMock: func(m *transaction.MockRepository, trackerID uuid.UUID) {
				m.EXPECT().HasCategory(gomock.Any(), trackerID, "food").Return(true, nil)
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, trackerID, tx.TrackerID)
						assert.Equal(t, "alice", tx.OwnerID)
						tx.ID = uuid.New()
						return nil
					})
			},
			wantCode:   http.StatusCreated,
			wantAmount: "-1250.5",
		},
		{
			name: "NumericAmountDefaultsTime",
			body: `{"amount":300,"type":"income","name":"Salary"}`,
			setupMock: func(m *transaction.MockRepository, _ uuid.UUID) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, now, tx.Time)
						assert.Equal(t, transaction.Uncategorized, tx.CategoryID)
						return nil
					})
			},
			wantCode:   http.StatusCreated,
			wantAmount: "300",
		},
		{
			name: "CategoryOfAnotherGroup",
			body: `{"amount":"5","type":"expense","category_id":"elsewhere"}`,
			setupMock: func(m *transaction.MockRepository, trackerID uuid.UUID) {
				m.EXPECT().HasCategory(gomock.Any(), trackerID, "elsewhere").Return(false, nil)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "InvalidType",
			body:     `{"amount":"10","type":"transfer"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "MalformedBody",
			body:     `{`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setupMock != nil {
				tt.setupMock(f.repo, f.group.TrackerID)
			}

			rec := f.do(http.MethodPost, "/", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantAmount == "" {
				return
			}

			var resp transactionResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.True(t, decimal.RequireFromString(tt.wantAmount).Equal(resp.Amount), "got %s", resp.Amount)
		})
	}
}

func TestHandler_List(t *testing.T) {
	t.Run("AppliesFilter", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().
			Read(gomock.Any(), f.group.TrackerID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, plan query.Plan) ([]*transaction.Transaction, error) {
				assert.Equal(t, query.Equal(query.FieldType, "expense"), plan.Constraints[0])
				assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), plan.Constraints[1].Value)
				return []*transaction.Transaction{{ID: uuid.New(), Amount: decimal.NewFromInt(-5)}}, nil
			})

		rec := f.do(http.MethodGet, "/?type=expense&time=2024-01-20", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []transactionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp, 1)
	})

	t.Run("InvalidFilter", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodGet, "/?dateRange=true&dateRangeStart=2024-02-10&dateRangeEnd=2024-02-01", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Get(t *testing.T) {
	t.Run("OtherGroupIsHidden", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()

		f.repo.EXPECT().GetTransaction(gomock.Any(), id).Return(&transaction.Transaction{ID: id, TrackerID: uuid.New()}, nil)

		assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/"+id.String(), "").Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()

		f.repo.EXPECT().GetTransaction(gomock.Any(), id).Return(nil, transaction.ErrNotFound)

		assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/"+id.String(), "").Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/abc", "").Code)
	})
}

func TestHandler_Update(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	stored := &transaction.Transaction{
		ID:         id,
		TrackerID:  f.group.TrackerID,
		Amount:     decimal.NewFromInt(-40),
		Type:       transaction.TypeExpense,
		CategoryID: "food",
		Name:       "Lunch",
	}

	f.repo.EXPECT().GetTransaction(gomock.Any(), id).Return(stored, nil)
	f.repo.EXPECT().HasCategory(gomock.Any(), f.group.TrackerID, "food").Return(true, nil)
	f.repo.EXPECT().UpdateTransaction(gomock.Any(), stored).Return(nil)

	rec := f.do(http.MethodPatch, "/"+id.String(), `{"type":"income","name":"Refund"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transactionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Refund", resp.Name)
	assert.Equal(t, transaction.TypeIncome, resp.Type)
	assert.True(t, decimal.NewFromInt(40).Equal(resp.Amount))
	assert.Equal(t, "food", resp.CategoryID)
}

func TestHandler_Delete(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	f.repo.EXPECT().GetTransaction(gomock.Any(), id).Return(&transaction.Transaction{ID: id, TrackerID: f.group.TrackerID}, nil)
	f.repo.EXPECT().DeleteTransaction(gomock.Any(), id).Return(nil)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/"+id.String(), "").Code)
}
