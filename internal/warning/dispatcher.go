// Package warning surfaces budget tier changes once per armed cycle.
//
// Each group carries one of three states. A budget edit or a new period
// arms it; the first alerting tier seen while armed sends one notification
// and marks it shown; dismissing a shown warning disarms it until the budget
// or period changes again.
package warning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/budget"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
)

type State string

const (
	StateUnarmed State = "unarmed"
	StateArmed   State = "armed"
	StateShown   State = "shown"
)

// Entry is the persisted state of one group. Budget, Version and Period
// identify the cycle the state belongs to.
type Entry struct {
	State     State       `json:"state"`
	Budget    string      `json:"budget"`
	Version   int64       `json:"version,omitempty"`
	Period    string      `json:"period"`
	Tier      budget.Tier `json:"tier,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type StateStore interface {
	// Load returns false when nothing is stored for the group.
	Load(ctx context.Context, groupID uuid.UUID) (Entry, bool, error)
	Save(ctx context.Context, groupID uuid.UUID, e Entry) error
}

// Observation is a budget evaluation of a group's live period.
type Observation struct {
	GroupID   uuid.UUID
	GroupName string
	Budget    decimal.Decimal
	// Version is the group version the budget was read at. Every budget
	// edit bumps it, so editing back to an earlier value still re-arms.
	Version     int64
	Period      filter.Period
	Tier        budget.Tier
	UsedPercent decimal.Decimal
}

type Notification struct {
	GroupID     uuid.UUID
	GroupName   string
	Budget      decimal.Decimal
	Period      filter.Period
	Tier        budget.Tier
	UsedPercent decimal.Decimal
	At          time.Time
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type Dispatcher struct {
	mu       sync.Mutex
	store    StateStore
	notifier Notifier
	now      func() time.Time
}

func NewDispatcher(store StateStore, notifier Notifier) *Dispatcher {
	return &Dispatcher{store: store, notifier: notifier, now: time.Now}
}

// Observe advances the group's state for o and reports whether a
// notification was sent. A failed notification leaves the state armed so a
// later observation retries it.
func (d *Dispatcher) Observe(ctx context.Context, o Observation) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, found, err := d.store.Load(ctx, o.GroupID)
	if err != nil {
		return false, fmt.Errorf("loading warning state: %w", err)
	}

	budgetKey, periodKey := o.Budget.String(), o.Period.Key()
	changed := false

	if !found || e.Budget != budgetKey || e.Version != o.Version || e.Period != periodKey {
		e = Entry{State: StateArmed, Budget: budgetKey, Version: o.Version, Period: periodKey}
		changed = true
	}

	if e.State == StateArmed && o.Tier.Alerting() {
		at := d.now()

		err := d.notifier.Notify(ctx, Notification{
			GroupID:     o.GroupID,
			GroupName:   o.GroupName,
			Budget:      o.Budget,
			Period:      o.Period,
			Tier:        o.Tier,
			UsedPercent: o.UsedPercent,
			At:          at,
		})
		if err != nil {
			if changed {
				e.UpdatedAt = at
				if saveErr := d.store.Save(ctx, o.GroupID, e); saveErr != nil {
					return false, fmt.Errorf("saving warning state: %w", saveErr)
				}
			}

			return false, fmt.Errorf("notifying: %w", err)
		}

		e.State = StateShown
		e.Tier = o.Tier
		e.UpdatedAt = at

		if err := d.store.Save(ctx, o.GroupID, e); err != nil {
			return true, fmt.Errorf("saving warning state: %w", err)
		}

		return true, nil
	}

	if changed {
		e.UpdatedAt = d.now()
		if err := d.store.Save(ctx, o.GroupID, e); err != nil {
			return false, fmt.Errorf("saving warning state: %w", err)
		}
	}

	return false, nil
}

// Dismiss acknowledges a shown warning. It is a no-op in any other state.
func (d *Dispatcher) Dismiss(ctx context.Context, groupID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, found, err := d.store.Load(ctx, groupID)
	if err != nil {
		return fmt.Errorf("loading warning state: %w", err)
	}

	if !found || e.State != StateShown {
		return nil
	}

	e.State = StateUnarmed
	e.UpdatedAt = d.now()

	if err := d.store.Save(ctx, groupID, e); err != nil {
		return fmt.Errorf("saving warning state: %w", err)
	}

	return nil
}

// State returns the stored entry, or an unarmed one if none exists.
func (d *Dispatcher) State(ctx context.Context, groupID uuid.UUID) (Entry, error) {
	e, found, err := d.store.Load(ctx, groupID)
	if err != nil {
		return Entry{}, fmt.Errorf("loading warning state: %w", err)
	}

	if !found {
		return Entry{State: StateUnarmed}, nil
	}

	return e, nil
}
