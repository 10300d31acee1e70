package tracker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Run polls until the context is canceled or too many consecutive cycles
// fail. Once a day at the 5 AM rollover the week's scoreboard is
// refetched and the drive debounce state is cleared.
func (t *Tracker) Run(ctx context.Context) error {
	backoff := t.cfg.InitialBackoff
	failures := 0
	rollover := nextRollover(t.now())
	needRefresh := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !t.now().Before(rollover) {
			zap.L().Info("daily rollover", zap.Time("next", nextRollover(t.now())))
			rollover = nextRollover(t.now())
			t.deps.Seen.ResetSeen()
			needRefresh = true
		}

		if needRefresh {
			if err := t.RefreshWeek(ctx); err != nil {
				if abort := t.failCycle(ctx, err, &failures, &backoff); abort != nil {
					return abort
				}
				continue
			}
			needRefresh = false
		}

		active := t.ActiveGames()
		if len(active) == 0 {
			zap.L().Info("no active games, sleeping",
				zap.Duration("idle_sleep", t.cfg.IdleSleep),
			)
			if err := t.sleep(ctx, t.cfg.IdleSleep); err != nil {
				return err
			}
			continue
		}

		start := t.now()
		dispatched, err := t.RunCycle(ctx, active)
		if err != nil {
			if abort := t.failCycle(ctx, err, &failures, &backoff); abort != nil {
				return abort
			}
			continue
		}
		failures = 0
		backoff = t.cfg.InitialBackoff

		if len(dispatched) > 0 {
			zap.L().Info("cycle complete",
				zap.Int("active_games", len(active)),
				zap.Int("dispatched", len(dispatched)),
			)
		}

		if elapsed := t.now().Sub(start); elapsed < t.cfg.CycleFloor {
			if err := t.sleep(ctx, t.cfg.CycleFloor-elapsed); err != nil {
				return err
			}
		}
	}
}

// failCycle applies the doubling backoff and aborts once the consecutive
// failure budget is spent. Returns nil when the loop should keep going.
func (t *Tracker) failCycle(ctx context.Context, err error, failures *int, backoff *time.Duration) error {
	*failures++
	if *failures >= t.cfg.MaxConsecutiveFailures {
		return eris.Wrapf(err, "tracker: aborting after %d consecutive failures", *failures)
	}

	zap.L().Warn("poll cycle failed",
		zap.Int("consecutive_failures", *failures),
		zap.Duration("backoff", *backoff),
		zap.Error(err),
	)
	if sleepErr := t.sleep(ctx, *backoff); sleepErr != nil {
		return sleepErr
	}

	*backoff *= 2
	if *backoff > t.cfg.MaxBackoff {
		*backoff = t.cfg.MaxBackoff
	}
	return nil
}

// nextRollover returns the next 5 AM local time strictly after now.
func nextRollover(now time.Time) time.Time {
	rollover := time.Date(now.Year(), now.Month(), now.Day(), 5, 0, 0, 0, now.Location())
	if !now.Before(rollover) {
		rollover = rollover.AddDate(0, 0, 1)
	}
	return rollover
}
