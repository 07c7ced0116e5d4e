package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	_ = godotenv.Load(".env")

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed products, lead times and stock snapshots",
		Commands: []*cli.Command{
			{
				Name:  "master",
				Usage: "Seed master data from a directory of CSV files",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing products.csv, lead_times.csv and stock_snapshots.csv",
						Value:   "./data/seeds/master_data",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Action: runSeeder,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func runSeeder(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return seedMasterData(c.Context, db, c.String("data-dir"))
}

// seedMasterData loads every present file in one transaction. Missing files are skipped.
func seedMasterData(ctx context.Context, db *sql.DB, dataDir string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	log.Info().Str("dir", dataDir).Msg("starting database seeding")

	steps := []struct {
		file string
		fn   func(context.Context, *sql.Tx, [][]string) (int, error)
	}{
		{"products.csv", seedProducts},
		{"lead_times.csv", seedLeadTimes},
		{"stock_snapshots.csv", seedStockSnapshots},
	}

	for _, step := range steps {
		records, err := readCSV(filepath.Join(dataDir, step.file))
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("file", step.file).Msg("seed file not found, skipping")
			continue
		}
		if err != nil {
			return err
		}

		n, err := step.fn(ctx, tx, records)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", step.file, err)
		}
		log.Info().Str("file", step.file).Int("rows", n).Msg("seeded")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().Msg("database seeding completed")
	return nil
}

// readCSV returns the data rows of a CSV file, skipping its header.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record of %s: %w", path, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// seedProducts expects name, model_prediksi, arima_p, arima_d, arima_q.
func seedProducts(ctx context.Context, tx *sql.Tx, records [][]string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (name, model_prediksi, arima_p, arima_d, arima_q, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			model_prediksi = EXCLUDED.model_prediksi,
			arima_p = EXCLUDED.arima_p,
			arima_d = EXCLUDED.arima_d,
			arima_q = EXCLUDED.arima_q,
			updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare product statement: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		if len(record) < 2 {
			return i, fmt.Errorf("invalid product record (expected at least 2 columns): %v", record)
		}
		name := strings.TrimSpace(record[0])
		model := strings.ToUpper(strings.TrimSpace(record[1]))

		var order [3]*int
		for j := range order {
			if v, err := parseNullableInt(column(record, 2+j)); err != nil {
				return i, fmt.Errorf("product %s: %w", name, err)
			} else if v.Valid {
				n := int(v.Int64)
				order[j] = &n
			}
		}

		if _, err := domain.NewProduct(0, name, model, order[0], order[1], order[2]); err != nil {
			return i, err
		}

		if _, err := stmt.ExecContext(ctx, name, model,
			nullableInt(order[0]), nullableInt(order[1]), nullableInt(order[2])); err != nil {
			return i, fmt.Errorf("failed to upsert product %s: %w", name, err)
		}
	}
	return len(records), nil
}

// seedLeadTimes expects product, avg_lead_time, max_lead_time.
func seedLeadTimes(ctx context.Context, tx *sql.Tx, records [][]string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lead_times (product_id, avg_lead_time, max_lead_time, updated_at)
		SELECT id, $2, $3, NOW() FROM products WHERE name = $1
		ON CONFLICT (product_id) DO UPDATE SET
			avg_lead_time = EXCLUDED.avg_lead_time,
			max_lead_time = EXCLUDED.max_lead_time,
			updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare lead time statement: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		if len(record) < 3 {
			return i, fmt.Errorf("invalid lead time record (expected 3 columns): %v", record)
		}
		avgLT, err := parseFloat(record[1])
		if err != nil {
			return i, err
		}
		maxLT, err := parseFloat(record[2])
		if err != nil {
			return i, err
		}
		if _, err := stmt.ExecContext(ctx, strings.TrimSpace(record[0]), avgLT, maxLT); err != nil {
			return i, fmt.Errorf("failed to upsert lead time for %s: %w", record[0], err)
		}
	}
	return len(records), nil
}

// seedStockSnapshots expects product, location, as_of_date, quantity.
func seedStockSnapshots(ctx context.Context, tx *sql.Tx, records [][]string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_snapshots (product_id, location, as_of_date, quantity)
		SELECT id, $2, $3, $4 FROM products WHERE name = $1
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare stock snapshot statement: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		if len(record) < 4 {
			return i, fmt.Errorf("invalid stock snapshot record (expected 4 columns): %v", record)
		}
		asOf, err := time.Parse("2006-01-02", strings.TrimSpace(record[2]))
		if err != nil {
			return i, fmt.Errorf("invalid as_of_date %q: %w", record[2], err)
		}
		qty, err := parseFloat(record[3])
		if err != nil {
			return i, err
		}
		if _, err := stmt.ExecContext(ctx, strings.TrimSpace(record[0]), strings.TrimSpace(record[1]), asOf, qty); err != nil {
			return i, fmt.Errorf("failed to insert stock snapshot for %s: %w", record[0], err)
		}
	}
	return len(records), nil
}

func column(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseFloat(value string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value %s: %w", value, err)
	}
	return num, nil
}

func parseNullableInt(value string) (sql.NullInt64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullInt64{}, nil
	}
	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("invalid integer value %s: %w", value, err)
	}
	return sql.NullInt64{Int64: num, Valid: true}, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
