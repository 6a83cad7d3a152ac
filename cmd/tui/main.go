package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/splitbook/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/splitbook/internal/app"
	"github.com/MrJamesThe3rd/splitbook/internal/config"
	"github.com/MrJamesThe3rd/splitbook/internal/logging"
	"github.com/MrJamesThe3rd/splitbook/internal/state"
)

type model struct {
	app   *app.App
	store *state.Store

	currentView View

	groupsView    view.GroupsModel
	dashboardView view.DashboardModel
	walletsView   view.WalletsModel
}

type View int

const (
	ViewMenu      View = 0
	ViewGroups    View = 1
	ViewDashboard View = 2
	ViewWallets   View = 3
)

func initialModel(a *app.App, store *state.Store, userID string) model {
	return model{
		app:           a,
		store:         store,
		currentView:   ViewMenu,
		groupsView:    view.NewGroupsModel(a.Groups, userID),
		dashboardView: view.NewDashboardModel(store, a.Dashboards, a.Warnings, a.Transactions, a.Groups, userID),
		walletsView:   view.NewWalletsModel(a.Groups, a.Dashboards, userID),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewGroups
				return m, m.groupsView.Init()
			case "2":
				m.currentView = ViewWallets
				return m, m.walletsView.Init()
			}
		}
	case view.GroupChosenMsg:
		m.currentView = ViewDashboard
		m.dashboardView, cmd = m.dashboardView.Open(msg.Group)

		return m, cmd
	case view.StateMsg:
		m.dashboardView, cmd = m.dashboardView.Update(msg)
		return m, cmd
	case view.BackMsg:
		if m.currentView == ViewDashboard {
			m.currentView = ViewGroups
			return m, m.groupsView.Init()
		}

		m.currentView = ViewMenu

		return m, nil
	}

	switch m.currentView {
	case ViewGroups:
		m.groupsView, cmd = m.groupsView.Update(msg)
	case ViewDashboard:
		m.dashboardView, cmd = m.dashboardView.Update(msg)
	case ViewWallets:
		m.walletsView, cmd = m.walletsView.Update(msg)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Splitbook\n\n" +
				"1. Groups\n" +
				"2. Wallets\n\n" +
				"q. Quit",
		)
	case ViewGroups:
		return m.groupsView.View()
	case ViewDashboard:
		return m.dashboardView.View()
	case ViewWallets:
		return m.walletsView.View()
	}

	return "Unknown View"
}

// askUser prompts for the identity the UI acts as.
func askUser() (string, error) {
	var userID string

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("User ID").
				Description("Set SPLITBOOK_USER to skip this prompt").
				Value(&userID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("user id cannot be empty")
					}

					return nil
				}),
		),
	).Run()

	return strings.TrimSpace(userID), err
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile("splitbook-tui.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if err := logging.SetupWriter(logFile, cfg.App.LogLevel, cfg.App.LogFormat); err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}

	userID := cfg.TUI.User
	if userID == "" {
		if userID, err = askUser(); err != nil {
			slog.Error("failed to read user id", "error", err)
			os.Exit(1)
		}
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	store := state.NewStore(state.State{})

	p := tea.NewProgram(initialModel(a, store, userID))

	unsubscribe := store.Subscribe(func(s state.State) {
		go p.Send(view.StateMsg(s))
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
