package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
	"github.com/andresuchdata/autopo-forecast/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Server.Mode, cfg.App.LogLevel)

	app := &cli.App{
		Name:  "forecastctl",
		Usage: "Run demand forecasts, stock recommendations and sales imports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			if level := c.String("log-level"); level != "" {
				logger.SetLevel(level)
			}
			return nil
		},
		Commands: []*cli.Command{
			migrateCommand(cfg),
			runCommand(cfg),
			predictCommand(cfg),
			ingestCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("forecastctl failed")
	}
}
