package engage

import (
	"context"
	"time"

	"hypebot/internal/config"
)

// ActionReply is the action type logged for every answered mention.
const ActionReply = "reply"

// ActionLog counts and records timestamped actions.
type ActionLog interface {
	PutAction(ctx context.Context, ts time.Time, typ string) error
	CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error)
}

// Budget gates answered mentions by hourly and daily caps.
type Budget struct {
	Log ActionLog
	Cfg config.BudgetConfig
}

// Allow checks hourly/daily budgets before answering. A nil Budget or one
// with no caps always allows.
func (b *Budget) Allow(ctx context.Context, now time.Time) (bool, error) {
	if b == nil || b.Log == nil || (b.Cfg.MaxPerHour <= 0 && b.Cfg.MaxPerDay <= 0) {
		return true, nil
	}
	now = now.UTC()
	startHour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
	startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if b.Cfg.MaxPerHour > 0 {
		n, err := b.Log.CountActionsWithin(ctx, startHour, startHour.Add(time.Hour), ActionReply)
		if err != nil {
			return false, err
		}
		if n >= b.Cfg.MaxPerHour {
			return false, nil
		}
	}
	if b.Cfg.MaxPerDay > 0 {
		n, err := b.Log.CountActionsWithin(ctx, startDay, startDay.Add(24*time.Hour), ActionReply)
		if err != nil {
			return false, err
		}
		if n >= b.Cfg.MaxPerDay {
			return false, nil
		}
	}
	return true, nil
}

// Record logs an answered mention.
func (b *Budget) Record(ctx context.Context, now time.Time) error {
	if b == nil || b.Log == nil {
		return nil
	}
	return b.Log.PutAction(ctx, now, ActionReply)
}
