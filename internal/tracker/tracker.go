// Package tracker runs the live polling loop: it keeps the current week's
// games, fetches summaries for the active ones, pushes every new punt
// through scoring and ranking, and dispatches notifications.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/puntwatch/puntwatch/internal/cancel"
	"github.com/puntwatch/puntwatch/internal/compose"
	"github.com/puntwatch/puntwatch/internal/dedupe"
	"github.com/puntwatch/puntwatch/internal/events"
	"github.com/puntwatch/puntwatch/internal/extract"
	"github.com/puntwatch/puntwatch/internal/model"
	"github.com/puntwatch/puntwatch/internal/provider"
	"github.com/puntwatch/puntwatch/internal/rank"
	"github.com/puntwatch/puntwatch/internal/scoring"
	"github.com/puntwatch/puntwatch/internal/social"
	"github.com/puntwatch/puntwatch/internal/store"
)

// Config tunes the polling loop. Zero values take defaults.
type Config struct {
	// CycleFloor is the minimum duration of one poll cycle. Default 30s.
	CycleFloor time.Duration

	// IdleSleep is how long to sleep when no games are active. Default 14m.
	IdleSleep time.Duration

	// InitialBackoff and MaxBackoff bound the doubling backoff applied
	// after a failed cycle. Defaults 1m and 32m.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// MaxConsecutiveFailures aborts the loop once this many cycles fail
	// back to back. Default 10.
	MaxConsecutiveFailures int

	// BoostThreshold is the current-season percentile at or above which
	// a punt is boosted to the curated account and put to a vote.
	// Default 70.
	BoostThreshold float64

	// FetchConcurrency bounds parallel summary fetches. Default 4.
	FetchConcurrency int

	// Labels names the two ranking populations in notification text.
	Labels compose.Labels
}

func (c Config) withDefaults() Config {
	if c.CycleFloor <= 0 {
		c.CycleFloor = 30 * time.Second
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = 14 * time.Minute
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Minute
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 32 * time.Minute
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = 10
	}
	if c.BoostThreshold <= 0 {
		c.BoostThreshold = 70
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
	return c
}

// Deps are the collaborators the tracker drives. Publisher and Cancels
// are optional.
type Deps struct {
	Provider  provider.Client
	Engine    *scoring.Engine
	Ranker    *rank.Ranker
	Seen      *dedupe.Store
	Primary   social.Client
	Records   store.Store
	Publisher events.Publisher
	Cancels   *cancel.Manager
}

// Tracker polls active games and dispatches punt notifications.
type Tracker struct {
	deps Deps
	cfg  Config

	games     map[string]*model.Game
	finalSeen map[string]bool
	completed map[string]bool

	votes  sync.WaitGroup
	voteMu sync.Mutex
	tally  VoteTally

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// VoteTally counts settled cancellation votes by outcome.
type VoteTally struct {
	Retracted int
	Kept      int
	Failed    int
}

// New creates a Tracker.
func New(deps Deps, cfg Config) *Tracker {
	t := &Tracker{
		deps:      deps,
		cfg:       cfg.withDefaults(),
		games:     make(map[string]*model.Game),
		finalSeen: make(map[string]bool),
		completed: make(map[string]bool),
		now:       time.Now,
		sleep:     sleepCtx,
	}
	if t.deps.Publisher == nil {
		t.deps.Publisher = events.NopPublisher{}
	}
	return t
}

// RefreshWeek replaces the tracked game set with the current scoreboard.
// Completion state survives the refresh so a finished game is not
// re-polled after a mid-day restart of the week list.
func (t *Tracker) RefreshWeek(ctx context.Context) error {
	scoreboard, err := t.deps.Provider.Scoreboard(ctx)
	if err != nil {
		return eris.Wrap(err, "tracker: refresh week")
	}

	t.games = make(map[string]*model.Game, len(scoreboard))
	for i := range scoreboard {
		g := scoreboard[i]
		t.games[g.ID] = &g
	}
	zap.L().Info("week games refreshed", zap.Int("count", len(t.games)))
	return nil
}

// ActiveGames returns the games currently inside their polling window,
// excluding completed ones.
func (t *Tracker) ActiveGames() []*model.Game {
	now := t.now()
	var active []*model.Game
	for _, g := range t.games {
		if t.completed[g.ID] {
			continue
		}
		if g.ActiveWindow(now) {
			active = append(active, g)
		}
	}
	return active
}

// RunCycle fetches summaries for the active games and processes every
// drive, returning the notifications dispatched this cycle.
func (t *Tracker) RunCycle(ctx context.Context, active []*model.Game) ([]model.NotificationEvent, error) {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(t.cfg.FetchConcurrency)
	for _, game := range active {
		game := game
		eg.Go(func() error {
			summary, err := t.deps.Provider.GameSummary(gctx, game.ID)
			if err != nil {
				return eris.Wrapf(err, "tracker: fetch summary for game %s", game.ID)
			}
			game.Summary = summary
			game.State = model.GameActive
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var dispatched []model.NotificationEvent
	for _, game := range active {
		dispatched = append(dispatched, t.processGame(ctx, game)...)

		if game.Summary.Final && t.markFinal(game.ID) {
			game.State = model.GameFinal
			zap.L().Info("game complete", zap.String("game_id", game.ID))
		}
	}
	return dispatched, nil
}

// markFinal debounces completion: a game is completed only on its second
// final observation, so a transiently wrong status does not retire it.
func (t *Tracker) markFinal(gameID string) bool {
	if t.completed[gameID] {
		return true
	}
	if t.finalSeen[gameID] {
		t.completed[gameID] = true
		return true
	}
	t.finalSeen[gameID] = true
	return false
}

func (t *Tracker) processGame(ctx context.Context, game *model.Game) []model.NotificationEvent {
	log := zap.L().With(zap.String("game_id", game.ID))

	var dispatched []model.NotificationEvent
	for _, drive := range game.Summary.Drives {
		if !extract.IsPunt(drive) {
			continue
		}
		if t.deps.Seen.HasBeenNotified(game.ID, drive.ID) {
			continue
		}
		// A new drive must survive into the next snapshot before it is
		// eligible, so a still-in-progress drive is never charged.
		if !t.deps.Seen.Observed(game.ID, drive.ID) {
			continue
		}

		cand, ok := extract.PuntCandidate(drive)
		if !ok {
			continue
		}

		ev, err := t.dispatch(ctx, game, drive, cand)
		if err != nil {
			log.Error("failed to dispatch punt notification",
				zap.String("drive_id", drive.ID),
				zap.Error(err),
			)
			continue
		}
		dispatched = append(dispatched, *ev)
	}
	return dispatched
}

// dispatch scores one punt and pushes it out. The drive is marked
// notified before the post goes out: a punt is charged at most once even
// if the transport fails mid-flight.
func (t *Tracker) dispatch(ctx context.Context, game *model.Game, drive model.Drive, cand extract.Candidate) (*model.NotificationEvent, error) {
	summary := game.Summary

	score := t.deps.Engine.Index(cand.ScoringPlay, cand.Context, summary)
	pct, err := t.deps.Ranker.Rank(score)
	if err != nil {
		zap.L().Warn("failed to persist season population", zap.Error(err))
	}

	var unadjusted float64
	var unadjustedPct model.PercentileResult
	if cand.DelayOfGame {
		unadjusted = t.deps.Engine.Index(cand.Punt, cand.Context, summary)
		unadjustedPct = t.deps.Ranker.Preview(unadjusted)
	}

	text := compose.Notification(cand.ScoringPlay, cand.Context, summary, score, pct, cand.DelayOfGame, t.cfg.Labels)

	if err := t.deps.Seen.MarkNotified(game.ID, drive.ID); err != nil {
		return nil, eris.Wrap(err, "tracker: mark notified")
	}

	status, err := t.deps.Primary.Post(ctx, text, "", nil)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: post notification")
	}

	rec := &model.NotificationRecord{
		GameID:               game.ID,
		DriveID:              drive.ID,
		StatusID:             status.ID,
		Score:                score,
		CurrentPercentile:    pct.CurrentSeason,
		HistoricalPercentile: pct.Historical,
		Status:               model.NotificationPosted,
	}
	if err := t.deps.Records.CreateNotification(ctx, rec); err != nil {
		zap.L().Warn("failed to record notification",
			zap.String("drive_id", drive.ID),
			zap.Error(err),
		)
	}

	if cand.DelayOfGame {
		followUp := compose.DelayOfGame(cand.Punt, cand.Context, summary, unadjusted, unadjustedPct, t.cfg.Labels)
		if _, err := t.deps.Primary.Post(ctx, followUp, status.ID, nil); err != nil {
			zap.L().Warn("failed to post delay-of-game follow-up", zap.Error(err))
		}
	}

	ev := model.NotificationEvent{
		ID:                   rec.ID,
		GameID:               game.ID,
		DriveID:              drive.ID,
		StatusID:             status.ID,
		Text:                 text,
		Score:                score,
		CurrentPercentile:    pct.CurrentSeason,
		HistoricalPercentile: pct.Historical,
		DelayOfGame:          cand.DelayOfGame,
		CreatedAt:            rec.CreatedAt,
	}
	_ = t.deps.Publisher.Publish(ctx, ev)

	if pct.CurrentSeason >= t.cfg.BoostThreshold && t.deps.Cancels != nil {
		t.collectVote(ev, t.deps.Cancels.Submit(ctx, *rec))
	}

	zap.L().Info("punt notification dispatched",
		zap.String("game_id", game.ID),
		zap.String("drive_id", drive.ID),
		zap.Float64("index", score),
		zap.Float64("season_percentile", pct.CurrentSeason),
	)
	return &ev, nil
}

// collectVote waits out one cancellation workflow and tallies its
// outcome, so every submitted vote reports back to the tracker instead
// of settling silently inside the worker pool.
func (t *Tracker) collectVote(ev model.NotificationEvent, h *cancel.Handle) {
	t.votes.Add(1)
	go func() {
		defer t.votes.Done()
		res := <-h.Done()

		t.voteMu.Lock()
		switch res.Outcome {
		case cancel.OutcomeRetracted:
			t.tally.Retracted++
		case cancel.OutcomeKept:
			t.tally.Kept++
		default:
			t.tally.Failed++
		}
		t.voteMu.Unlock()

		if res.Err != nil {
			zap.L().Warn("cancellation vote failed",
				zap.String("status_id", ev.StatusID),
				zap.Error(res.Err),
			)
			return
		}
		zap.L().Info("cancellation vote settled",
			zap.String("status_id", ev.StatusID),
			zap.String("outcome", string(res.Outcome)),
		)
	}()
}

// VoteTally returns the counts of cancellation votes collected so far.
func (t *Tracker) VoteTally() VoteTally {
	t.voteMu.Lock()
	defer t.voteMu.Unlock()
	return t.tally
}

// DrainVotes blocks until every collected cancellation outcome has been
// tallied. Call after the cancel manager has drained.
func (t *Tracker) DrainVotes() {
	t.votes.Wait()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
