package view

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/splitbook/internal/dashboard"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/group"
)

type Overviews interface {
	Wallet(ctx context.Context, walletID uuid.UUID, viewerID string, f filter.Filter, now time.Time) (*dashboard.WalletOverview, error)
}

type walletsState int

const (
	walletsStateList walletsState = iota
	walletsStateOverview
)

// WalletsModel lists the user's wallets and sums a wallet's groups for a
// month.
type WalletsModel struct {
	groups    *group.Service
	overviews Overviews
	userID    string
	now       func() time.Time

	state    walletsState
	table    table.Model
	overview table.Model
	wallets  []*group.Wallet
	current  *dashboard.WalletOverview
	month    time.Time
	loading  bool
	err      error
}

func NewWalletsModel(groupSvc *group.Service, overviews Overviews, userID string) WalletsModel {
	return WalletsModel{
		groups:    groupSvc,
		overviews: overviews,
		userID:    userID,
		now:       time.Now,
		table: newTable([]table.Column{
			{Title: "Wallet", Width: 24},
			{Title: "Groups", Width: 8},
		}, 10),
		overview: newTable([]table.Column{
			{Title: "Group", Width: 24},
			{Title: "Income", Width: 12},
			{Title: "Expense", Width: 12},
			{Title: "Balance", Width: 12},
		}, 10),
	}
}

func (m WalletsModel) Title() string { return "Wallets" }

func (m WalletsModel) ShortHelp() string {
	if m.state == walletsStateOverview {
		return "←/→: month | Esc: back to wallets"
	}

	return "Enter: overview | r: refresh | Esc: back"
}

func (m WalletsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m WalletsModel) Update(msg tea.Msg) (WalletsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loadWalletsMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.wallets = msg.wallets
			m.refreshWallets()
		}

		return m, nil

	case overviewMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.current = msg.overview
			m.refreshOverview()
		}

		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == walletsStateOverview {
		switch key.String() {
		case "esc":
			m.state = walletsStateList
			m.err = nil

			return m, nil
		case "left", "h":
			m.month = m.month.AddDate(0, -1, 0)
			return m, m.overviewCmd()
		case "right", "l":
			m.month = m.month.AddDate(0, 1, 0)
			return m, m.overviewCmd()
		}

		var cmd tea.Cmd
		m.overview, cmd = m.overview.Update(msg)

		return m, cmd
	}

	switch key.String() {
	case "esc":
		return m, Back
	case "r":
		m.loading = true
		return m, m.loadCmd()
	case "enter":
		idx := m.table.Cursor()
		if idx < 0 || idx >= len(m.wallets) {
			return m, nil
		}

		m.state = walletsStateOverview
		m.current = nil
		m.month = filter.MonthOf(m.now()).Start
		m.loading = true

		return m, m.overviewCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m WalletsModel) View() string {
	var content string

	switch {
	case m.loading:
		content = "Loading..."
	case m.err != nil:
		content = errorStyle(fmt.Sprintf("Error: %v", m.err))
	case m.state == walletsStateOverview && m.current != nil:
		header := fmt.Sprintf("%s  %s → %s",
			lipgloss.NewStyle().Bold(true).Render(m.current.Wallet.Name),
			FormatDate(m.current.Period.Start), FormatDate(m.current.Period.End))

		total := fmt.Sprintf("Total: income %s | expense %s | balance %s",
			FormatAmount(m.current.Total.Income),
			FormatAmount(m.current.Total.Expense),
			activeStyle(FormatAmount(m.current.Total.Balance())))

		content = lipgloss.JoinVertical(lipgloss.Left, header, "", m.overview.View(), "", total)
	default:
		content = m.table.View()
		if len(m.wallets) == 0 {
			content = lipgloss.NewStyle().Faint(true).Render("No wallets yet.")
		}
	}

	return lipgloss.NewStyle().Padding(1).Render(content + "\n\n" + m.ShortHelp())
}

func (m *WalletsModel) refreshWallets() {
	rows := make([]table.Row, 0, len(m.wallets))
	for _, w := range m.wallets {
		rows = append(rows, table.Row{w.Name, fmt.Sprint(len(w.GroupIDs))})
	}

	m.table.SetRows(rows)
}

func (m *WalletsModel) refreshOverview() {
	rows := make([]table.Row, 0, len(m.current.Groups))
	for _, s := range m.current.Groups {
		rows = append(rows, table.Row{
			s.Group.Name,
			FormatAmount(s.Totals.Income),
			FormatAmount(s.Totals.Expense),
			FormatAmount(s.Totals.Balance()),
		})
	}

	m.overview.SetRows(rows)
}

// Messages

type loadWalletsMsg struct {
	wallets []*group.Wallet
	err     error
}

type overviewMsg struct {
	overview *dashboard.WalletOverview
	err      error
}

func (m WalletsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		wallets, err := m.groups.ListWallets(ctx, m.userID)

		return loadWalletsMsg{wallets: wallets, err: err}
	}
}

func (m WalletsModel) overviewCmd() tea.Cmd {
	w := m.wallets[m.table.Cursor()]
	f := filter.Month(m.month)
	now := m.now()
	userID := m.userID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		o, err := m.overviews.Wallet(ctx, w.ID, userID, f, now)

		return overviewMsg{overview: o, err: err}
	}
}
