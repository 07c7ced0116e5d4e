package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/app"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository/postgres"
)

// env holds the connections opened for one command.
type env struct {
	db         *postgres.DB
	components *app.Components
}

func openEnv(cfg *config.Config, onProduct func(pipeline.Outcome)) (*env, error) {
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}

	runs := pipeline.NewRepository(db.DB.DB)
	components := app.Build(cfg, postgres.NewStore(db), app.Deps{
		Recorder:    runs,
		ReportStore: runs,
		ReportCache: reportCache,
		OnProduct:   onProduct,
	})

	return &env{db: db, components: components}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
}

func asOfFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "as-of",
		Usage: "Reference date (YYYY-MM-DD); defaults to today",
	}
}

func parseAsOf(c *cli.Context) (time.Time, error) {
	raw := strings.TrimSpace(c.String("as-of"))
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// parseIDs accepts comma-separated ids, possibly repeated.
func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid product id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
