// Package state holds view state behind an explicit store. All changes go
// through Dispatch and the pure Reduce function.
package state

import (
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/splitbook/internal/dashboard"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

type State struct {
	GroupID uuid.UUID
	Filter  filter.Filter
	// Dashboard is the last successfully loaded view. Failed loads leave it
	// untouched.
	Dashboard *dashboard.GroupDashboard
	// Generation identifies the latest dashboard request. Responses for
	// older generations are dropped.
	Generation uint64
	Loading    bool
	Err        error
}

type Action interface {
	isAction()
}

type GroupSelected struct{ GroupID uuid.UUID }

type FilterChanged struct{ Filter filter.Filter }

type DashboardRequested struct{}

type DashboardLoaded struct {
	Generation uint64
	Dashboard  *dashboard.GroupDashboard
}

type DashboardFailed struct {
	Generation uint64
	Err        error
}

type WarningDismissed struct{}

func (GroupSelected) isAction()      {}
func (FilterChanged) isAction()      {}
func (DashboardRequested) isAction() {}
func (DashboardLoaded) isAction()    {}
func (DashboardFailed) isAction()    {}
func (WarningDismissed) isAction()   {}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case GroupSelected:
		if a.GroupID != s.GroupID {
			s.GroupID = a.GroupID
			s.Dashboard = nil
			s.Err = nil
		}
	case FilterChanged:
		s.Filter = a.Filter
	case DashboardRequested:
		s.Generation++
		s.Loading = true
		s.Err = nil
	case DashboardLoaded:
		if a.Generation != s.Generation {
			return s
		}

		s.Dashboard = a.Dashboard
		s.Loading = false
		s.Err = nil
	case DashboardFailed:
		if a.Generation != s.Generation {
			return s
		}

		s.Loading = false
		s.Err = a.Err
	case WarningDismissed:
		if s.Dashboard == nil {
			return s
		}

		d := *s.Dashboard
		d.Warning.State = warning.StateUnarmed
		d.Notified = false
		s.Dashboard = &d
	}

	return s
}

// Store is safe for concurrent use. Subscribers run after the state has
// changed, outside the store's lock.
type Store struct {
	mu     sync.Mutex
	state  State
	nextID int
	subs   map[int]func(State)
}

func NewStore(initial State) *Store {
	return &Store{state: initial, subs: make(map[int]func(State))}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state

	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}

	return next
}

// Subscribe registers fn for every later state change and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs, id)
	}
}
