// Package notify delivers budget warnings.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

// Log writes warnings to the default structured logger.
type Log struct{}

func (Log) Notify(ctx context.Context, n warning.Notification) error {
	slog.WarnContext(ctx, "budget warning",
		"group_id", n.GroupID,
		"group", n.GroupName,
		"tier", n.Tier,
		"used_percent", n.UsedPercent.StringFixed(1),
		"budget", n.Budget.String(),
		"period", n.Period.Key(),
	)

	return nil
}

// Multi sends every notification to all of its notifiers, even when some
// fail, and returns their joined errors.
type Multi []warning.Notifier

func (m Multi) Notify(ctx context.Context, n warning.Notification) error {
	var errs []error

	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
