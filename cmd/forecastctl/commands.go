package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/drive"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/ingest"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/storage"
)

func migrateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the database schema",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "steps",
				Usage: "Number of migrations to apply; negative rolls back, 0 applies all",
			},
		},
		Action: func(c *cli.Context) error {
			db, err := postgres.NewDB(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			return postgres.Migrate(db, c.Int("steps"))
		},
	}
}

func runCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the end-of-month forecast and recommendation batch",
		Flags: []cli.Flag{
			asOfFlag(),
			&cli.StringSliceFlag{
				Name:  "products",
				Usage: "Restrict the run to these product ids (comma-separated)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Products processed concurrently; overrides FORECAST_WORKERS",
			},
			&cli.BoolFlag{
				Name:  "upload",
				Usage: "Upload the run report to object storage",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Disable the progress bar",
			},
		},
		Action: func(c *cli.Context) error {
			asOf, err := parseAsOf(c)
			if err != nil {
				return err
			}
			ids, err := parseIDs(c.StringSlice("products"))
			if err != nil {
				return err
			}
			if w := c.Int("workers"); w > 0 {
				cfg.Forecast.Workers = w
			}

			var bar *progressbar.ProgressBar
			onProduct := func(out pipeline.Outcome) {
				if bar != nil {
					_ = bar.Add(1)
				}
				if out.Err != nil {
					log.Debug().Str("product", out.Product.DisplayName()).Str("stage", string(out.FailedStage)).Err(out.Err).Msg("product failed")
				}
			}

			e, err := openEnv(cfg, onProduct)
			if err != nil {
				return err
			}
			defer e.Close()

			if !c.Bool("no-progress") {
				total := len(ids)
				if total == 0 {
					products, err := e.components.Store.Products.ListProducts(c.Context)
					if err != nil {
						return fmt.Errorf("failed to list products: %w", err)
					}
					total = len(products)
				}
				bar = progressbar.Default(int64(total), "forecasting")
			}

			var report *domain.RunReport
			if len(ids) > 0 {
				report, err = e.components.Orchestrator.RunProducts(c.Context, asOf, ids)
			} else {
				report, err = e.components.Orchestrator.Run(c.Context, asOf)
			}
			if err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Finish()
			}

			e.components.Reports.Publish(c.Context, report)

			if c.Bool("upload") {
				store, err := storage.NewS3Client(cfg.Storage)
				if err != nil {
					return err
				}
				if _, err := e.components.Reports.Archive(c.Context, store, report); err != nil {
					return err
				}
			}

			printReport(report)
			return nil
		},
	}
}

func printReport(report *domain.RunReport) {
	fmt.Printf("Target month: %s\n", domain.MonthKey(report.TargetMonth))
	fmt.Printf("Forecast:       %d succeeded, %d failed\n", len(report.ForecastSuccess), len(report.ForecastFailed))
	fmt.Printf("Recommendation: %d succeeded, %d failed\n", len(report.RecommendationSuccess), len(report.RecommendationFailed))
	if names := pipeline.SortedNames(report.ForecastFailed); len(names) > 0 {
		fmt.Printf("Forecast failures: %s\n", strings.Join(names, ", "))
	}
	if names := pipeline.SortedNames(report.RecommendationFailed); len(names) > 0 {
		fmt.Printf("Recommendation failures: %s\n", strings.Join(names, ", "))
	}
}

func predictCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Forecast one product for the months following --as-of",
		Flags: []cli.Flag{
			asOfFlag(),
			&cli.Int64Flag{Name: "product", Usage: "Product id", Required: true},
			&cli.IntFlag{Name: "horizon", Usage: "Number of months to forecast", Value: 1},
		},
		Action: func(c *cli.Context) error {
			asOf, err := parseAsOf(c)
			if err != nil {
				return err
			}

			e, err := openEnv(cfg, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			product, points, err := e.components.Forecasts.PredictByID(c.Context, c.Int64("product"), asOf, c.Int("horizon"))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"product":   product,
				"forecasts": points,
			})
		},
	}
}

func ingestCommand(cfg *config.Config) *cli.Command {
	withImporter := func(c *cli.Context, fn func(ctx context.Context, im *ingest.Importer) (ingest.Result, error)) error {
		e, err := openEnv(cfg, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := fn(c.Context, e.components.Importer)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d rows, %d inserted, %d unknown products, %d invalid\n",
			res.Source, res.Rows, res.Inserted, res.UnknownProducts, res.Invalid)
		return nil
	}

	return &cli.Command{
		Name:  "ingest",
		Usage: "Import sales transactions",
		Subcommands: []*cli.Command{
			{
				Name:      "file",
				Usage:     "Import local CSV or XLSX files",
				ArgsUsage: "PATH [PATH...]",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return fmt.Errorf("at least one file path is required")
					}
					return withImporter(c, func(ctx context.Context, im *ingest.Importer) (ingest.Result, error) {
						return im.ImportFiles(ctx, c.Args().Slice())
					})
				},
			},
			{
				Name:  "drive",
				Usage: "Import every sales file of a Google Drive folder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Usage: "Drive folder id; defaults to SALES_DRIVE_FOLDER_ID"},
				},
				Action: func(c *cli.Context) error {
					folder := c.String("folder")
					if folder == "" {
						folder = cfg.Drive.FolderID
					}
					if folder == "" {
						return fmt.Errorf("a Drive folder id is required")
					}

					source, err := drive.NewService(c.Context, cfg.Drive.CredentialsJSON)
					if err != nil {
						return err
					}
					return withImporter(c, func(ctx context.Context, im *ingest.Importer) (ingest.Result, error) {
						return drive.NewIngestService(source, im, cfg.App.UploadDir).IngestFolder(ctx, folder)
					})
				},
			},
			{
				Name:  "s3",
				Usage: "Import every sales file under a bucket prefix",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Usage: "Object key prefix", Value: "sales/"},
				},
				Action: func(c *cli.Context) error {
					store, err := storage.NewS3Client(cfg.Storage)
					if err != nil {
						return err
					}
					return withImporter(c, func(ctx context.Context, im *ingest.Importer) (ingest.Result, error) {
						return im.ImportObjects(ctx, store, c.String("prefix"), cfg.App.UploadDir)
					})
				},
			},
		},
	}
}
