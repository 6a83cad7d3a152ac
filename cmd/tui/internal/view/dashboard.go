package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/budget"
	"github.com/MrJamesThe3rd/splitbook/internal/dashboard"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/state"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

const barWidth = 30

type Dashboards interface {
	Group(ctx context.Context, groupID uuid.UUID, f filter.Filter, now time.Time) (*dashboard.GroupDashboard, error)
}

type Warnings interface {
	Dismiss(ctx context.Context, groupID uuid.UUID) error
}

type dashState int

const (
	dashStateBrowse dashState = iota
	dashStateTimeframe
	dashStateForm
)

// StateMsg signals that the state container changed.
type StateMsg state.State

type DashboardModel struct {
	store      *state.Store
	dashboards Dashboards
	warnings   Warnings
	txService  *transaction.Service
	groups     *group.Service
	userID     string
	now        func() time.Time

	mode       dashState
	snapshot   state.State
	group      *group.Group
	categories []*group.Category
	picker     TimeframePicker
	table      table.Model
	form       *huh.Form
	onSubmit   func() tea.Cmd
	status     string
	fields     *dashFields
}

// dashFields holds form bindings. huh keeps pointers to them, so they must
// outlive the model copies bubbletea makes.
type dashFields struct {
	typ        string
	amount     string
	name       string
	category   string
	date       string
	budget     string
	categories []string
}

func NewDashboardModel(
	store *state.Store,
	dashboards Dashboards,
	warnings Warnings,
	txSvc *transaction.Service,
	groupSvc *group.Service,
	userID string,
) DashboardModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Amount", Width: 12},
		{Title: "Category", Width: 16},
		{Title: "Name", Width: 30},
	}

	return DashboardModel{
		store:      store,
		dashboards: dashboards,
		warnings:   warnings,
		txService:  txSvc,
		groups:     groupSvc,
		userID:     userID,
		now:        time.Now,
		snapshot:   store.State(),
		picker:     NewTimeframePicker(),
		table:      newTable(columns, 12),
		fields:     &dashFields{},
	}
}

func (m DashboardModel) Title() string { return "Dashboard" }

func (m DashboardModel) ShortHelp() string {
	return "←/→: month | f: timeframe | t: type | s: sort | c: categories | a: add | b: budget | x: dismiss | r: refresh | Esc: back"
}

// Open shows g's dashboard for the current month.
func (m DashboardModel) Open(g *group.Group) (DashboardModel, tea.Cmd) {
	m.group = g
	m.mode = dashStateBrowse
	m.status = ""
	m.categories = nil

	m.store.Dispatch(state.GroupSelected{GroupID: g.ID})
	m.snapshot = m.store.Dispatch(state.FilterChanged{Filter: filter.Month(m.now())})

	load, cmd := m.load()

	return load, tea.Batch(cmd, m.loadCategoriesCmd())
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		// Snapshots are delivered asynchronously and may arrive out of
		// order, so read the current one.
		m.snapshot = m.store.State()
		m.refreshTable()

		return m, nil

	case dashboardResultMsg:
		if msg.err != nil {
			m.snapshot = m.store.Dispatch(state.DashboardFailed{Generation: msg.generation, Err: msg.err})
		} else {
			m.snapshot = m.store.Dispatch(state.DashboardLoaded{Generation: msg.generation, Dashboard: msg.dashboard})
		}

		if d := m.snapshot.Dashboard; d != nil {
			m.group = d.Group
		}

		m.refreshTable()

		return m, nil

	case categoriesMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading categories: %v", msg.err)
			return m, nil
		}

		m.categories = msg.categories

		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.status = msg.status

		if msg.dismissed {
			m.snapshot = m.store.Dispatch(state.WarningDismissed{})
			return m, nil
		}

		return m.load()

	case categoriesChosenMsg:
		return m.changeFilter(msg.filter)

	case TimeframeSelectedMsg:
		m.mode = dashStateBrowse
		m.picker.Reset()

		f := m.snapshot.Filter
		msg.Apply(&f)

		return m.changeFilter(f)

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-18, 5))
		return m, nil
	}

	switch m.mode {
	case dashStateTimeframe:
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc && m.picker.IsSelecting() {
			m.mode = dashStateBrowse
			return m, nil
		}

		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		return m, cmd
	case dashStateForm:
		return m.updateForm(msg)
	}

	return m.updateBrowse(msg)
}

func (m DashboardModel) updateBrowse(msg tea.Msg) (DashboardModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	f := m.snapshot.Filter

	switch key.String() {
	case "esc":
		return m, Back
	case "r":
		return m.load()
	case "left", "h":
		f.UseMonth(f.Period(m.now()).Start.AddDate(0, -1, 0))
		return m.changeFilter(f)
	case "right", "l":
		f.UseMonth(f.Period(m.now()).Start.AddDate(0, 1, 0))
		return m.changeFilter(f)
	case "t":
		f.Type = nextType(f.Type)
		return m.changeFilter(f)
	case "s":
		if f.SortBy == filter.SortByAmount {
			f.SortBy = filter.SortByDate
		} else {
			f.SortBy = filter.SortByAmount
		}

		return m.changeFilter(f)
	case "f":
		m.mode = dashStateTimeframe
		return m, nil
	case "c":
		return m.openCategoryForm()
	case "a":
		return m.openAddForm()
	case "b":
		return m.openBudgetForm()
	case "x":
		return m, m.dismissCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DashboardModel) changeFilter(f filter.Filter) (DashboardModel, tea.Cmd) {
	m.store.Dispatch(state.FilterChanged{Filter: f})
	return m.load()
}

// load issues a new dashboard request. Only the response to the latest
// request is kept by the store.
func (m DashboardModel) load() (DashboardModel, tea.Cmd) {
	m.snapshot = m.store.Dispatch(state.DashboardRequested{})

	var (
		generation = m.snapshot.Generation
		groupID    = m.snapshot.GroupID
		f          = m.snapshot.Filter
		now        = m.now()
	)

	return m, func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		d, err := m.dashboards.Group(ctx, groupID, f, now)

		return dashboardResultMsg{generation: generation, dashboard: d, err: err}
	}
}

func nextType(t filter.Type) filter.Type {
	switch t {
	case filter.TypeIncome:
		return filter.TypeExpense
	case filter.TypeExpense:
		return filter.TypeAll
	}

	return filter.TypeIncome
}

func (m DashboardModel) openAddForm() (DashboardModel, tea.Cmd) {
	if m.group == nil {
		return m, nil
	}

	m.fields.typ = string(transaction.TypeExpense)
	m.fields.amount = ""
	m.fields.name = ""
	m.fields.category = transaction.Uncategorized
	m.fields.date = FormatDate(m.now())

	categoryOptions := []huh.Option[string]{huh.NewOption("Uncategorized", transaction.Uncategorized)}
	for _, c := range m.categories {
		categoryOptions = append(categoryOptions, huh.NewOption(c.Name, c.ID))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Expense", string(transaction.TypeExpense)),
					huh.NewOption("Income", string(transaction.TypeIncome)),
				).
				Value(&m.fields.typ),
			huh.NewInput().
				Title("Amount").
				Value(&m.fields.amount).
				Validate(func(s string) error {
					d, err := decimal.NewFromString(strings.TrimSpace(s))
					if err != nil || d.IsZero() {
						return errors.New("enter a non-zero amount")
					}

					return nil
				}),
			huh.NewInput().
				Title("Name").
				Value(&m.fields.name),
			huh.NewSelect[string]().
				Title("Category").
				Options(categoryOptions...).
				Value(&m.fields.category),
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fields.date).
				Validate(func(s string) error {
					if _, err := time.ParseInLocation(time.DateOnly, s, time.Local); err != nil {
						return errors.New("date must be YYYY-MM-DD")
					}

					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.onSubmit = m.addCmd

	return m.enterForm()
}

func (m DashboardModel) openBudgetForm() (DashboardModel, tea.Cmd) {
	if m.group == nil {
		return m, nil
	}

	m.fields.budget = ""
	if m.group.Budget != nil {
		m.fields.budget = m.group.Budget.String()
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Monthly budget").
				Description("Leave empty to remove the budget").
				Value(&m.fields.budget).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}

					d, err := decimal.NewFromString(strings.TrimSpace(s))
					if err != nil || !d.IsPositive() {
						return errors.New("budget must be a positive amount")
					}

					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.onSubmit = m.budgetCmd

	return m.enterForm()
}

func (m DashboardModel) openCategoryForm() (DashboardModel, tea.Cmd) {
	if len(m.categories) == 0 {
		m.status = "This group has no categories"
		return m, nil
	}

	m.fields.categories = m.snapshot.Filter.Categories.Sorted()

	options := []huh.Option[string]{huh.NewOption("Uncategorized", transaction.Uncategorized)}
	for _, c := range m.categories {
		options = append(options, huh.NewOption(c.Name, c.ID))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Show categories").
				Description("Select none to show everything").
				Options(options...).
				Value(&m.fields.categories),
		),
	).WithWidth(45).WithShowHelp(false)

	m.onSubmit = func() tea.Cmd {
		f := m.snapshot.Filter
		f.Categories = filter.NewSet(m.fields.categories...)

		return func() tea.Msg { return categoriesChosenMsg{filter: f} }
	}

	return m.enterForm()
}

func (m DashboardModel) enterForm() (DashboardModel, tea.Cmd) {
	m.mode = dashStateForm
	m.table.Blur()

	return m, m.form.Init()
}

func (m DashboardModel) updateForm(msg tea.Msg) (DashboardModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.mode = dashStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.mode = dashStateBrowse
	m.form = nil
	m.table.Focus()

	return m, m.onSubmit()
}

func (m DashboardModel) View() string {
	if m.mode == dashStateTimeframe {
		return lipgloss.NewStyle().Padding(1).Render(m.picker.View())
	}

	s := m.snapshot

	var b strings.Builder

	title := "Dashboard"
	if m.group != nil {
		title = m.group.Name
	}

	period := s.Filter.Period(m.now())

	fmt.Fprintf(&b, "%s  %s → %s\n",
		lipgloss.NewStyle().Bold(true).Render(title),
		FormatDate(period.Start), FormatDate(period.End))

	fmt.Fprintf(&b, "Type: %s | Sort: %s | Categories: %s\n\n",
		activeStyle(string(s.Filter.Type)),
		activeStyle(string(s.Filter.SortBy)),
		activeStyle(categoryLabel(s.Filter.Categories)))

	if d := s.Dashboard; d != nil {
		if banner := WarningBanner(d); banner != "" {
			b.WriteString(banner + "\n\n")
		}

		b.WriteString(BudgetLine(d.Budget, barWidth) + "\n")
		fmt.Fprintf(&b, "Income %s | Expense %s | Balance %s\n\n",
			FormatAmount(d.Totals.Income), FormatAmount(d.Totals.Expense), FormatAmount(d.Totals.Balance()))
	}

	switch {
	case s.Loading:
		b.WriteString(lipgloss.NewStyle().Faint(true).Render("Loading...") + "\n")
	case s.Err != nil:
		b.WriteString(errorStyle(fmt.Sprintf("Error: %v", s.Err)) + "\n")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		b.String(),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
	)

	if m.mode == dashStateForm && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content + "\n\n" + m.ShortHelp())
}

func categoryLabel(s filter.Set) string {
	if len(s) == 0 {
		return "all"
	}

	return strings.Join(s.Sorted(), ",")
}

var tierColors = map[budget.Tier]lipgloss.Color{
	budget.TierNormal:   lipgloss.Color("42"),
	budget.TierWarning:  lipgloss.Color("214"),
	budget.TierCritical: lipgloss.Color("196"),
}

// ProgressBar renders percent (0 to 100) as a bar of width cells.
func ProgressBar(percent decimal.Decimal, width int) string {
	filled := int(percent.Mul(decimal.NewFromInt(int64(width))).Div(decimal.NewFromInt(100)).IntPart())
	filled = min(max(filled, 0), width)

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// BudgetLine summarizes a budget evaluation on one line.
func BudgetLine(r budget.Result, width int) string {
	if r.NoBudget {
		return lipgloss.NewStyle().Faint(true).Render("No budget set")
	}

	bar := lipgloss.NewStyle().Foreground(tierColors[r.Tier]).Render(ProgressBar(r.DisplayPercent, width))

	line := fmt.Sprintf("Budget %s %s%% spent %s", bar, r.UsedPercent.StringFixed(1), FormatAmount(r.Spent))
	if r.Pace != "" {
		line += " | pace " + string(r.Pace)
	}

	return line
}

// WarningBanner is shown while a budget warning awaits dismissal.
func WarningBanner(d *dashboard.GroupDashboard) string {
	if d.Warning.State != warning.StateShown || !d.Warning.Tier.Alerting() {
		return ""
	}

	style := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(lipgloss.Color("0")).
		Background(tierColors[d.Warning.Tier])

	return style.Render(fmt.Sprintf("%s: %s%% of the budget used (x to dismiss)",
		strings.ToUpper(string(d.Warning.Tier)), d.Budget.UsedPercent.StringFixed(1)))
}

func (m *DashboardModel) refreshTable() {
	d := m.snapshot.Dashboard
	if d == nil {
		m.table.SetRows(nil)
		return
	}

	names := make(map[string]string, len(m.categories))
	for _, c := range m.categories {
		names[c.ID] = c.Name
	}

	rows := make([]table.Row, 0, len(d.Transactions))

	for _, tx := range d.Transactions {
		category, ok := names[tx.CategoryID]
		if !ok {
			category = tx.CategoryID
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Time),
			FormatAmount(tx.Amount),
			category,
			tx.Name,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type dashboardResultMsg struct {
	generation uint64
	dashboard  *dashboard.GroupDashboard
	err        error
}

type categoriesMsg struct {
	categories []*group.Category
	err        error
}

type categoriesChosenMsg struct {
	filter filter.Filter
}

type actionDoneMsg struct {
	status    string
	dismissed bool
	err       error
}

func (m DashboardModel) loadCategoriesCmd() tea.Cmd {
	trackerID := m.group.TrackerID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cs, err := m.groups.ListCategories(ctx, trackerID)

		return categoriesMsg{categories: cs, err: err}
	}
}

func (m DashboardModel) addCmd() tea.Cmd {
	var (
		trackerID = m.group.TrackerID
		typ       = transaction.Type(m.fields.typ)
		amount    = strings.TrimSpace(m.fields.amount)
		name      = m.fields.name
		category  = m.fields.category
		date      = m.fields.date
		userID    = m.userID
	)

	return func() tea.Msg {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return actionDoneMsg{err: err}
		}

		t, err := time.ParseInLocation(time.DateOnly, date, time.Local)
		if err != nil {
			return actionDoneMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.txService.Create(ctx, transaction.CreateParams{
			TrackerID:  trackerID,
			Amount:     d,
			Type:       typ,
			Time:       t,
			CategoryID: category,
			Name:       name,
			OwnerID:    userID,
		}); err != nil {
			return actionDoneMsg{err: err}
		}

		return actionDoneMsg{status: "Transaction added"}
	}
}

func (m DashboardModel) budgetCmd() tea.Cmd {
	var (
		groupID = m.group.ID
		version = m.group.Version
		input   = strings.TrimSpace(m.fields.budget)
	)

	return func() tea.Msg {
		var ceiling *decimal.Decimal

		if input != "" {
			d, err := decimal.NewFromString(input)
			if err != nil {
				return actionDoneMsg{err: err}
			}

			ceiling = &d
		}

		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.groups.SetBudget(ctx, groupID, ceiling, version); err != nil {
			if errors.Is(err, group.ErrConflict) {
				err = errors.New("budget was changed elsewhere, refresh and try again")
			}

			return actionDoneMsg{err: err}
		}

		return actionDoneMsg{status: "Budget updated"}
	}
}

func (m DashboardModel) dismissCmd() tea.Cmd {
	groupID := m.snapshot.GroupID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.warnings.Dismiss(ctx, groupID); err != nil {
			return actionDoneMsg{err: err}
		}

		return actionDoneMsg{status: "Warning dismissed", dismissed: true}
	}
}
