package group

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/aggregate"
	"github.com/MrJamesThe3rd/splitbook/internal/budget"
	"github.com/MrJamesThe3rd/splitbook/internal/dashboard"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

type groupResponse struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Color     string           `json:"color,omitempty"`
	Budget    *decimal.Decimal `json:"budget"`
	OwnerID   string           `json:"owner_id"`
	MemberIDs []string         `json:"member_ids"`
	TrackerID uuid.UUID        `json:"tracker_id"`
	Version   int64            `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}

func toGroupResponse(g *group.Group) groupResponse {
	return groupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Color:     g.Color,
		Budget:    g.Budget,
		OwnerID:   g.OwnerID,
		MemberIDs: g.MemberIDs,
		TrackerID: g.TrackerID,
		Version:   g.Version,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func toGroupResponseList(groups []*group.Group) []groupResponse {
	resp := make([]groupResponse, len(groups))
	for i, g := range groups {
		resp[i] = toGroupResponse(g)
	}

	return resp
}

type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

func toCategoryResponseList(cs []*group.Category) []categoryResponse {
	resp := make([]categoryResponse, len(cs))
	for i, c := range cs {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, Color: c.Color}
	}

	return resp
}

type periodResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func toPeriodResponse(p filter.Period) periodResponse {
	return periodResponse{Start: p.Start, End: p.End}
}

type sumResponse struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

func toSumResponse(s aggregate.PeriodSum) sumResponse {
	return sumResponse{Income: s.Income, Expense: s.Expense, Balance: s.Balance()}
}

type budgetResponse struct {
	NoBudget       bool             `json:"no_budget"`
	Spent          decimal.Decimal  `json:"spent"`
	UsedPercent    decimal.Decimal  `json:"used_percent"`
	DisplayPercent decimal.Decimal  `json:"display_percent"`
	Tier           budget.Tier      `json:"tier,omitempty"`
	IdealToDate    decimal.Decimal  `json:"ideal_to_date"`
	ProjectedTotal *decimal.Decimal `json:"projected_total"`
	Pace           budget.Pace      `json:"pace,omitempty"`
}

type transactionResponse struct {
	ID         uuid.UUID        `json:"id"`
	Amount     decimal.Decimal  `json:"amount"`
	Type       transaction.Type `json:"type"`
	Time       time.Time        `json:"time"`
	CategoryID string           `json:"category_id"`
	Name       string           `json:"name"`
}

type dashboardResponse struct {
	Group        groupResponse          `json:"group"`
	Period       periodResponse         `json:"period"`
	Transactions []transactionResponse  `json:"transactions"`
	Totals       sumResponse            `json:"totals"`
	Categories   map[string]sumResponse `json:"categories"`
	Budget       budgetResponse         `json:"budget"`
	Warning      warning.State          `json:"warning"`
	Notified     bool                   `json:"notified"`
}

func toDashboardResponse(d *dashboard.GroupDashboard) dashboardResponse {
	resp := dashboardResponse{
		Group:        toGroupResponse(d.Group),
		Period:       toPeriodResponse(d.Period),
		Transactions: make([]transactionResponse, len(d.Transactions)),
		Totals:       toSumResponse(d.Totals),
		Categories:   make(map[string]sumResponse, len(d.Categories)),
		Budget: budgetResponse{
			NoBudget:       d.Budget.NoBudget,
			Spent:          d.Budget.Spent,
			UsedPercent:    d.Budget.UsedPercent,
			DisplayPercent: d.Budget.DisplayPercent,
			Tier:           d.Budget.Tier,
			IdealToDate:    d.Budget.IdealToDate,
			ProjectedTotal: d.Budget.ProjectedTotal,
			Pace:           d.Budget.Pace,
		},
		Warning:  d.Warning.State,
		Notified: d.Notified,
	}

	for i, tx := range d.Transactions {
		resp.Transactions[i] = transactionResponse{
			ID:         tx.ID,
			Amount:     tx.Amount,
			Type:       tx.Type,
			Time:       tx.Time,
			CategoryID: tx.CategoryID,
			Name:       tx.Name,
		}
	}

	for id, s := range d.Categories {
		resp.Categories[id] = toSumResponse(s)
	}

	return resp
}
