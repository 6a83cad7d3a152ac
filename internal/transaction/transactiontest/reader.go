// Package transactiontest provides an in-memory plan reader for tests.
package transactiontest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/splitbook/internal/query"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

// Reader evaluates plans against rows held in memory. Per-tracker delays and
// errors can be injected to exercise concurrent callers.
type Reader struct {
	mu     sync.Mutex
	rows   map[uuid.UUID][]*transaction.Transaction
	delays map[uuid.UUID]time.Duration
	errs   map[uuid.UUID]error
	plans  []query.Plan
}

func NewReader() *Reader {
	return &Reader{
		rows:   make(map[uuid.UUID][]*transaction.Transaction),
		delays: make(map[uuid.UUID]time.Duration),
		errs:   make(map[uuid.UUID]error),
	}
}

func (r *Reader) Add(trackerID uuid.UUID, txs ...*transaction.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tx := range txs {
		tx.TrackerID = trackerID
		r.rows[trackerID] = append(r.rows[trackerID], tx)
	}
}

func (r *Reader) Delay(trackerID uuid.UUID, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.delays[trackerID] = d
}

func (r *Reader) Fail(trackerID uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs[trackerID] = err
}

// Plans returns every plan read so far.
func (r *Reader) Plans() []query.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.plans)
}

func (r *Reader) Read(ctx context.Context, trackerID uuid.UUID, plan query.Plan) ([]*transaction.Transaction, error) {
	r.mu.Lock()
	r.plans = append(r.plans, plan)
	delay, err := r.delays[trackerID], r.errs[trackerID]
	rows := slices.Clone(r.rows[trackerID])
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	if _, err := query.Arrange(plan.Constraints); err != nil {
		return nil, err
	}

	var out []*transaction.Transaction

	for _, tx := range rows {
		if matches(tx, plan.Constraints) {
			out = append(out, tx)
		}
	}

	if limit := plan.ServerLimit(); limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func matches(tx *transaction.Transaction, cs []query.Constraint) bool {
	for _, c := range cs {
		switch c.Kind {
		case query.KindEquality:
			if c.Field == query.FieldType && string(tx.Type) != c.Value {
				return false
			}

			if c.Field == query.FieldCategory && tx.CategoryID != c.Value {
				return false
			}
		case query.KindMembership:
			if values, _ := c.Value.([]string); !slices.Contains(values, tx.CategoryID) {
				return false
			}
		case query.KindRange:
			bound, ok := c.Value.(time.Time)
			if !ok || c.Field != query.FieldTime {
				continue
			}

			if c.Op == query.OpGte && tx.Time.Before(bound) {
				return false
			}

			if c.Op == query.OpLte && tx.Time.After(bound) {
				return false
			}
		}
	}

	return true
}
