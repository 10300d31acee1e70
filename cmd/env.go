package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/puntwatch/puntwatch/internal/cancel"
	"github.com/puntwatch/puntwatch/internal/compose"
	"github.com/puntwatch/puntwatch/internal/config"
	"github.com/puntwatch/puntwatch/internal/dedupe"
	"github.com/puntwatch/puntwatch/internal/events"
	"github.com/puntwatch/puntwatch/internal/provider"
	"github.com/puntwatch/puntwatch/internal/rank"
	"github.com/puntwatch/puntwatch/internal/scoring"
	"github.com/puntwatch/puntwatch/internal/social"
	"github.com/puntwatch/puntwatch/internal/store"
	"github.com/puntwatch/puntwatch/internal/tracker"
)

// monitorEnv holds the wired collaborators of the monitor loop.
type monitorEnv struct {
	tracker   *tracker.Tracker
	records   store.Store
	publisher events.Publisher
	cancels   *cancel.Manager
}

func (e *monitorEnv) Close() {
	if e.cancels != nil {
		e.cancels.Wait()
	}
	if e.tracker != nil {
		e.tracker.DrainVotes()
	}
	if e.publisher != nil {
		_ = e.publisher.Close()
	}
	if e.records != nil {
		_ = e.records.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initAccount(acct config.AccountConfig) (*social.MastodonClient, error) {
	if acct.Server == "" || acct.AccessToken == "" {
		return nil, eris.New("social account server and access token are required")
	}
	return social.NewMastodonClient(acct.Server, acct.AccessToken,
		social.WithRateLimit(acct.RequestsPerSecond),
	), nil
}

func initMonitor(ctx context.Context) (*monitorEnv, error) {
	records, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := records.Migrate(ctx); err != nil {
		records.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	primary, err := initAccount(cfg.Social.Primary)
	if err != nil {
		records.Close()
		return nil, eris.Wrap(err, "primary account")
	}

	ranker, err := rank.New(cfg.Data.HistoricalPath, cfg.Data.CurrentSeasonPath)
	if err != nil {
		records.Close()
		return nil, err
	}

	seen, err := dedupe.Open(cfg.Data.NotifiedPath, time.Duration(cfg.Data.NotifiedFreshHours)*time.Hour)
	if err != nil {
		records.Close()
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Addr != "" {
		stream, err := events.NewStreamPublisher(ctx, cfg.Events.Addr, cfg.Events.Password, cfg.Events.DB)
		if err != nil {
			records.Close()
			return nil, err
		}
		publisher = events.LoggingPublisher{Next: stream}
	}

	var cancels *cancel.Manager
	if cfg.Cancel.Enabled {
		curated, err := initAccount(cfg.Social.Curated)
		if err != nil {
			records.Close()
			return nil, eris.Wrap(err, "curated account")
		}
		cancels = cancel.New(curated, records, cancel.Options{
			VoteWait:      time.Duration(cfg.Cancel.VoteWaitMins) * time.Minute,
			MaxConcurrent: cfg.Cancel.MaxConcurrent,
		})
	}

	espn := provider.NewESPN(
		provider.WithBaseURL(cfg.Provider.BaseURL),
		provider.WithRateLimit(cfg.Provider.RequestsPerSecond),
	)

	current, historical := ranker.Size()
	zap.L().Info("populations loaded",
		zap.Int("current_season", current),
		zap.Int("historical", historical),
	)

	tr := tracker.New(tracker.Deps{
		Provider:  espn,
		Engine:    scoring.NewEngine(),
		Ranker:    ranker,
		Seen:      seen,
		Primary:   primary,
		Records:   records,
		Publisher: publisher,
		Cancels:   cancels,
	}, tracker.Config{
		CycleFloor:             time.Duration(cfg.Monitor.CycleFloorSecs) * time.Second,
		IdleSleep:              time.Duration(cfg.Monitor.IdleSleepMins) * time.Minute,
		MaxConsecutiveFailures: cfg.Monitor.MaxConsecutiveFailures,
		BoostThreshold:         cfg.Monitor.BoostThreshold,
		FetchConcurrency:       cfg.Monitor.FetchConcurrency,
		Labels: compose.Labels{
			Season:     cfg.Monitor.SeasonLabel,
			Historical: cfg.Monitor.HistoricalLabel,
		},
	})

	return &monitorEnv{
		tracker:   tr,
		records:   records,
		publisher: publisher,
		cancels:   cancels,
	}, nil
}
