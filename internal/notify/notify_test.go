package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/splitbook/internal/budget"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/notify"
	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

type notifierFunc func(context.Context, warning.Notification) error

func (f notifierFunc) Notify(ctx context.Context, n warning.Notification) error { return f(ctx, n) }

func notification() warning.Notification {
	now := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

	return warning.Notification{
		GroupID:     uuid.New(),
		GroupName:   "Flat",
		Budget:      decimal.NewFromInt(1000),
		Period:      filter.MonthOf(now),
		Tier:        budget.TierWarning,
		UsedPercent: decimal.RequireFromString("61.2"),
		At:          now,
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	assert.NoError(t, notify.Log{}.Notify(context.Background(), notification()))

	out := buf.String()
	assert.Contains(t, out, "budget warning")
	assert.Contains(t, out, "tier=warning")
	assert.Contains(t, out, "used_percent=61.2")
	assert.Contains(t, out, "period=2024-03-01..2024-03-31")
}

func TestMulti(t *testing.T) {
	errA := errors.New("a failed")
	calls := 0

	count := notifierFunc(func(context.Context, warning.Notification) error {
		calls++
		return nil
	})
	fail := notifierFunc(func(context.Context, warning.Notification) error { return errA })

	err := notify.Multi{fail, count, count}.Notify(context.Background(), notification())

	assert.True(t, errors.Is(err, errA))
	assert.Equal(t, 2, calls)

	assert.NoError(t, notify.Multi{count}.Notify(context.Background(), notification()))
	assert.NoError(t, notify.Multi{}.Notify(context.Background(), notification()))
}
