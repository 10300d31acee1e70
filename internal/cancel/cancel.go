// Package cancel runs the vote-gated retraction workflow for
// high-percentile punts: boost the notification on the curated account,
// attach a Yes/No poll, wait out the voting window, tally, and either
// retract the boost or keep it.
package cancel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/puntwatch/puntwatch/internal/model"
	"github.com/puntwatch/puntwatch/internal/social"
	"github.com/puntwatch/puntwatch/internal/store"
)

// Question is the poll prompt attached to the boosted notification.
const Question = "Should this punt's Surrender Index be canceled?"

// retractionText is the reply posted when a vote succeeds.
const retractionText = "CANCELED"

// Outcome classifies how a cancellation vote ended.
type Outcome string

const (
	// OutcomeRetracted means the vote passed and the boost was retracted.
	OutcomeRetracted Outcome = "retracted"
	// OutcomeKept means the vote failed (or drew too few votes) and the
	// boost stands.
	OutcomeKept Outcome = "kept"
	// OutcomeFailed means the workflow errored before a verdict.
	OutcomeFailed Outcome = "failed"
)

// Result is the terminal state of one cancellation workflow.
type Result struct {
	Outcome Outcome
	Err     error
}

// Handle lets a caller await one submitted workflow.
type Handle struct {
	done chan Result
}

// Done is closed-by-send once the workflow reaches a terminal state.
func (h *Handle) Done() <-chan Result {
	return h.done
}

// Options tunes the manager. Zero values take defaults.
type Options struct {
	// VoteWait is how long after posting the poll the tally is read.
	// Default 61 minutes: the poll runs for an hour, plus a grace minute
	// for federation lag.
	VoteWait time.Duration

	// MaxConcurrent bounds simultaneous workflows. Default 8.
	MaxConcurrent int

	// Sleep is the waiting primitive, injectable for tests. Defaults to
	// a timer that aborts on context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Manager owns a bounded pool of cancellation workers.
type Manager struct {
	curated social.Client
	records store.Store
	opts    Options

	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a Manager posting through the curated account and
// recording transitions in the store.
func New(curated social.Client, records store.Store, opts Options) *Manager {
	if opts.VoteWait <= 0 {
		opts.VoteWait = 61 * time.Minute
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Manager{
		curated: curated,
		records: records,
		opts:    opts,
		sem:     make(chan struct{}, opts.MaxConcurrent),
	}
}

// Submit starts one cancellation workflow for a posted notification and
// returns immediately, even when the worker pool is saturated: the
// worker itself waits for a slot, so a long vote window never stalls the
// caller. The workflow boosts rec.StatusID, polls, waits, and settles
// the record's status.
func (m *Manager) Submit(ctx context.Context, rec model.NotificationRecord) *Handle {
	h := &Handle{done: make(chan Result, 1)}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		select {
		case m.sem <- struct{}{}:
		case <-ctx.Done():
			h.done <- Result{Outcome: OutcomeFailed, Err: eris.Wrap(ctx.Err(), "cancel: wait for worker slot")}
			return
		}
		defer func() { <-m.sem }()

		h.done <- m.run(ctx, rec)
	}()
	return h
}

// Wait blocks until every submitted workflow has settled.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, rec model.NotificationRecord) Result {
	log := zap.L().With(
		zap.String("notification_id", rec.ID),
		zap.String("status_id", rec.StatusID),
	)

	boost, err := m.curated.Boost(ctx, rec.StatusID)
	if err != nil {
		return fail(log, eris.Wrap(err, "cancel: boost"))
	}
	if err := m.records.SetBoostID(ctx, rec.ID, boost.ID); err != nil {
		return fail(log, eris.Wrap(err, "cancel: record boost id"))
	}
	if err := m.records.UpdateNotificationStatus(ctx, rec.ID, model.NotificationBoosted); err != nil {
		return fail(log, eris.Wrap(err, "cancel: mark boosted"))
	}

	poll, err := m.curated.Post(ctx, Question, boost.ID, social.YesNoPoll(time.Hour))
	if err != nil {
		return fail(log, eris.Wrap(err, "cancel: post poll"))
	}
	if err := m.records.UpdateNotificationStatus(ctx, rec.ID, model.NotificationCancelPending); err != nil {
		return fail(log, eris.Wrap(err, "cancel: mark cancel pending"))
	}

	log.Info("cancellation poll posted",
		zap.String("poll_status_id", poll.ID),
		zap.Duration("vote_wait", m.opts.VoteWait),
	)

	if err := m.opts.Sleep(ctx, m.opts.VoteWait); err != nil {
		return fail(log, eris.Wrap(err, "cancel: wait for votes"))
	}

	options, err := m.curated.PollResult(ctx, poll.ID)
	if err != nil {
		return fail(log, eris.Wrap(err, "cancel: fetch poll result"))
	}

	if !shouldRetract(options) {
		if err := m.records.UpdateNotificationStatus(ctx, rec.ID, model.NotificationBoosted); err != nil {
			return fail(log, eris.Wrap(err, "cancel: revert to boosted"))
		}
		log.Info("cancellation vote failed, boost stands")
		return Result{Outcome: OutcomeKept}
	}

	if err := m.curated.Unboost(ctx, boost.ID); err != nil {
		return fail(log, eris.Wrap(err, "cancel: unboost"))
	}
	if _, err := m.curated.Post(ctx, retractionText, boost.ID, nil); err != nil {
		return fail(log, eris.Wrap(err, "cancel: post retraction"))
	}
	if err := m.records.UpdateNotificationStatus(ctx, rec.ID, model.NotificationCanceled); err != nil {
		return fail(log, eris.Wrap(err, "cancel: mark canceled"))
	}

	log.Info("cancellation vote passed, boost retracted")
	return Result{Outcome: OutcomeRetracted}
}

// fail logs the error and settles the workflow. The record keeps
// whatever status it last reached; the next metrics sweep surfaces
// stuck cancel_pending rows.
func fail(log *zap.Logger, err error) Result {
	log.Error("cancellation workflow failed", zap.Error(err))
	return Result{Outcome: OutcomeFailed, Err: err}
}

// shouldRetract applies the vote gate: more than 2 total votes, and Yes
// holding at least 66.67 percent of them.
func shouldRetract(options []social.PollOption) bool {
	total := 0
	yes := 0
	for _, opt := range options {
		total += opt.Votes
		if strings.EqualFold(opt.Title, "yes") {
			yes += opt.Votes
		}
	}
	if total <= 2 {
		return false
	}
	yesShare := float64(yes) / float64(total) * 100
	return yesShare >= 66.67
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
