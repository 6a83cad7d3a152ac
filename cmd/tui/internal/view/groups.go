package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/group"
)

// GroupChosenMsg opens a group's dashboard.
type GroupChosenMsg struct {
	Group *group.Group
}

type groupsState int

const (
	groupsStateBrowse groupsState = iota
	groupsStateCreate
)

type GroupsModel struct {
	groups *group.Service
	userID string

	state    groupsState
	table    table.Model
	list     []*group.Group
	form     *huh.Form
	fields   *groupFields
	onSubmit func() tea.Cmd
	loading  bool
	err      error
	status   string
}

type groupFields struct {
	name     string
	budget   string
	category string
}

func NewGroupsModel(groupSvc *group.Service, userID string) GroupsModel {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Budget", Width: 12},
		{Title: "Members", Width: 8},
		{Title: "Role", Width: 8},
	}

	return GroupsModel{
		groups: groupSvc,
		userID: userID,
		table:  newTable(columns, 12),
		fields: &groupFields{},
	}
}

func (m GroupsModel) Title() string { return "Groups" }

func (m GroupsModel) ShortHelp() string {
	if m.state == groupsStateCreate {
		return "Navigate form | Esc: cancel"
	}

	return "Enter: open | n: new group | k: new category | r: refresh | Esc: back"
}

func (m GroupsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m GroupsModel) Update(msg tea.Msg) (GroupsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loadGroupsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.list = msg.groups
		m.refreshTable()

		return m, nil

	case groupSavedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
			return m, nil
		}

		m.status = msg.status

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-10, 5))
		return m, nil
	}

	if m.state == groupsStateCreate {
		return m.updateForm(msg)
	}

	key, ok := msg.(tea.KeyMsg)
	if ok {
		switch key.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "enter":
			if g := m.selected(); g != nil {
				return m, func() tea.Msg { return GroupChosenMsg{Group: g} }
			}

			return m, nil
		case "n":
			return m.openGroupForm()
		case "k":
			return m.openCategoryForm()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m GroupsModel) selected() *group.Group {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.list) {
		return nil
	}

	return m.list[idx]
}

func (m GroupsModel) openGroupForm() (GroupsModel, tea.Cmd) {
	*m.fields = groupFields{}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.fields.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name cannot be empty")
					}

					return nil
				}),
			huh.NewInput().
				Title("Monthly budget").
				Description("Optional").
				Value(&m.fields.budget).
				Validate(validOptionalBudget),
		),
	).WithWidth(45).WithShowHelp(false)

	return m.enterForm(m.createGroupCmd)
}

func (m GroupsModel) openCategoryForm() (GroupsModel, tea.Cmd) {
	g := m.selected()
	if g == nil {
		return m, nil
	}

	*m.fields = groupFields{}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("New category for " + g.Name).
				CharLimit(20).
				Value(&m.fields.category),
		),
	).WithWidth(45).WithShowHelp(false)

	return m.enterForm(func() tea.Cmd { return m.createCategoryCmd(g) })
}

func (m GroupsModel) enterForm(submit func() tea.Cmd) (GroupsModel, tea.Cmd) {
	m.state = groupsStateCreate
	m.table.Blur()
	m.onSubmit = submit

	return m, m.form.Init()
}

func (m GroupsModel) updateForm(msg tea.Msg) (GroupsModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.state = groupsStateBrowse
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

	m.state = groupsStateBrowse
	m.form = nil
	m.table.Focus()

	return m, m.onSubmit()
}

func validOptionalBudget(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return errors.New("budget must be a positive amount")
	}

	return nil
}

func (m GroupsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading groups...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	content := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	if len(m.list) == 0 {
		content = lipgloss.NewStyle().Faint(true).Render("No groups yet. Press n to create one.")
	}

	if m.state == groupsStateCreate && m.form != nil {
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

func (m *GroupsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.list))

	for _, g := range m.list {
		ceiling := "-"
		if g.Budget != nil {
			ceiling = FormatAmount(*g.Budget)
		}

		role := "member"
		if g.OwnerID == m.userID {
			role = "owner"
		}

		rows = append(rows, table.Row{g.Name, ceiling, fmt.Sprint(len(g.MemberIDs) + 1), role})
	}

	m.table.SetRows(rows)
}

// Messages

type loadGroupsMsg struct {
	groups []*group.Group
	err    error
}

type groupSavedMsg struct {
	status string
	err    error
}

func (m GroupsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		groups, err := m.groups.List(ctx, m.userID)

		return loadGroupsMsg{groups: groups, err: err}
	}
}

func (m GroupsModel) createGroupCmd() tea.Cmd {
	var (
		name   = m.fields.name
		input  = strings.TrimSpace(m.fields.budget)
		userID = m.userID
	)

	return func() tea.Msg {
		params := group.CreateParams{Name: name, OwnerID: userID}

		if input != "" {
			d, err := decimal.NewFromString(input)
			if err != nil {
				return groupSavedMsg{err: err}
			}

			params.Budget = &d
		}

		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.groups.Create(ctx, params); err != nil {
			return groupSavedMsg{err: err}
		}

		return groupSavedMsg{status: "Group created"}
	}
}

func (m GroupsModel) createCategoryCmd(g *group.Group) tea.Cmd {
	name := m.fields.category

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.groups.CreateCategory(ctx, group.CategoryParams{TrackerID: g.TrackerID, Name: name}); err != nil {
			return groupSavedMsg{err: err}
		}

		return groupSavedMsg{status: fmt.Sprintf("Category %q added to %s", name, g.Name)}
	}
}
