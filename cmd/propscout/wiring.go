package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/api/rest"
	"github.com/fortuna/propscout/internal/config"
	"github.com/fortuna/propscout/internal/ingest/bbref"
	"github.com/fortuna/propscout/internal/ingest/hashtag"
	"github.com/fortuna/propscout/internal/ingest/nbastats"
	"github.com/fortuna/propscout/internal/ingest/prizepicks"
	"github.com/fortuna/propscout/internal/pipeline"
	"github.com/fortuna/propscout/internal/store"
	"github.com/fortuna/propscout/internal/store/repository"
)

// app holds the collaborators built from config for one process
type app struct {
	sources pipeline.Sources
	teams   rest.TeamGameSource
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	dvp := hashtag.NewClient(cfg.DvpURL, cfg.DvpWindowDays, logger)
	a.closers = append(a.closers, dvp.Close)

	a.sources = pipeline.Sources{
		Projections: prizepicks.NewClient(cfg.PrizePicksURL, cfg.PrizePicksLeagueID, cfg.HTTPTimeout, logger),
		Dvp:         dvp,
		Positions:   bbref.NewClient(cfg.PositionsURL, cfg.HTTPTimeout, logger),
	}

	switch cfg.GameLogSource {
	case config.SourceAtlas:
		db, err := store.NewDatabase(ctx, cfg.AtlasDSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to Atlas: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		logger.Info("game logs from Atlas")

		a.sources.GameLogs = repository.NewGameLogRepository(db)
		a.teams = repository.NewTeamGameRepository(db, cfg.Season)
	default:
		stats := nbastats.NewClient(nbastats.Options{
			BaseURL:        cfg.NBAStatsBaseURL,
			Season:         cfg.Season,
			DateFrom:       cfg.DateFrom,
			GameLogDelay:   cfg.GameLogDelay,
			LeagueLogDelay: cfg.LeagueLogDelay,
			Timeout:        cfg.HTTPTimeout,
		}, logger)
		logger.Info("game logs from stats API", zap.String("season", cfg.Season))

		a.sources.GameLogs = stats
		a.teams = stats
	}

	return a, nil
}
