// Package ingest imports raw sales files into the sales store.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository"
)

const defaultBatchSize = 500

// Accepted header names per column, compared case-insensitively.
var (
	productNameColumns = []string{"product", "nama", "nama_barang", "barang"}
	productIDColumns   = []string{"product_id", "id_barang"}
	dateColumns        = []string{"date", "tanggal", "sold_at"}
	quantityColumns    = []string{"quantity", "qty", "jumlah"}
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "02-01-2006", time.RFC3339}

// Result summarises one imported file.
type Result struct {
	Source          string `json:"source"`
	Rows            int    `json:"rows"`
	Inserted        int    `json:"inserted"`
	UnknownProducts int    `json:"unknown_products"`
	Invalid         int    `json:"invalid"`
}

func (r *Result) add(o Result) {
	r.Rows += o.Rows
	r.Inserted += o.Inserted
	r.UnknownProducts += o.UnknownProducts
	r.Invalid += o.Invalid
}

// Importer maps sales rows to products and inserts them in batches.
type Importer struct {
	products  repository.ProductRepository
	sales     repository.SalesRepository
	batchSize int
}

func NewImporter(products repository.ProductRepository, sales repository.SalesRepository) *Importer {
	return &Importer{products: products, sales: sales, batchSize: defaultBatchSize}
}

// ImportFile imports a local .csv or .xlsx file.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return im.ImportCSV(ctx, f, filepath.Base(path))
	case ".xlsx":
		records, err := readXLSX(path)
		if err != nil {
			return Result{}, err
		}
		return im.importRecords(ctx, records, filepath.Base(path))
	default:
		return Result{}, fmt.Errorf("unsupported sales file %s", path)
	}
}

// ImportFiles imports several files and sums their results. The first error stops the import.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) (Result, error) {
	total := Result{Source: fmt.Sprintf("%d files", len(paths))}
	for _, path := range paths {
		res, err := im.ImportFile(ctx, path)
		if err != nil {
			return total, err
		}
		total.add(res)
	}
	return total, nil
}

// ImportCSV imports CSV content with a header row.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, source string) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("failed to read CSV record: %w", err)
		}
		records = append(records, record)
	}

	return im.importRecords(ctx, records, source)
}

func (im *Importer) importRecords(ctx context.Context, records [][]string, source string) (Result, error) {
	res := Result{Source: source}
	if len(records) == 0 {
		return res, fmt.Errorf("%s: empty file", source)
	}

	cols, err := mapColumns(records[0])
	if err != nil {
		return res, fmt.Errorf("%s: %w", source, err)
	}

	byName := make(map[string]int64)
	byID := make(map[int64]bool)
	batch := make([]domain.SalesTransaction, 0, im.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.sales.InsertSales(ctx, batch)
		if err != nil {
			return err
		}
		res.Inserted += n
		batch = batch[:0]
		return nil
	}

	for line, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		res.Rows++

		soldAt, qty, err := parseValues(record, cols)
		if err != nil {
			res.Invalid++
			log.Debug().Str("source", source).Int("line", line+2).Err(err).Msg("skipping invalid sales row")
			continue
		}

		productID, ok, err := im.resolveProduct(ctx, record, cols, byName, byID)
		if err != nil {
			return res, err
		}
		if !ok {
			res.UnknownProducts++
			continue
		}

		batch = append(batch, domain.SalesTransaction{ProductID: productID, SoldAt: soldAt, Quantity: qty})
		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return res, fmt.Errorf("%s: %w", source, err)
			}
		}
	}
	if err := flush(); err != nil {
		return res, fmt.Errorf("%s: %w", source, err)
	}

	log.Info().
		Str("source", source).
		Int("rows", res.Rows).
		Int("inserted", res.Inserted).
		Int("unknown_products", res.UnknownProducts).
		Int("invalid", res.Invalid).
		Msg("sales file imported")

	return res, nil
}

type columns struct {
	name, id, date, quantity int
}

func mapColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		index[strings.ReplaceAll(key, " ", "_")] = i
	}

	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i
			}
		}
		return -1
	}

	cols := columns{
		name:     find(productNameColumns),
		id:       find(productIDColumns),
		date:     find(dateColumns),
		quantity: find(quantityColumns),
	}
	if cols.name < 0 && cols.id < 0 {
		return cols, fmt.Errorf("missing product column")
	}
	if cols.date < 0 {
		return cols, fmt.Errorf("missing date column")
	}
	if cols.quantity < 0 {
		return cols, fmt.Errorf("missing quantity column")
	}
	return cols, nil
}

func (im *Importer) resolveProduct(ctx context.Context, record []string, cols columns, byName map[string]int64, byID map[int64]bool) (int64, bool, error) {
	if raw := field(record, cols.id); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			known, seen := byID[id]
			if !seen {
				_, err := im.products.GetProduct(ctx, id)
				switch {
				case errors.Is(err, domain.ErrProductNotFound):
					known = false
				case err != nil:
					return 0, false, err
				default:
					known = true
				}
				byID[id] = known
			}
			return id, known, nil
		}
	}

	name := field(record, cols.name)
	if name == "" {
		return 0, false, nil
	}
	if id, seen := byName[name]; seen {
		return id, id != 0, nil
	}

	product, err := im.products.GetProductByName(ctx, name)
	if errors.Is(err, domain.ErrProductNotFound) {
		byName[name] = 0
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	byName[name] = product.ID
	return product.ID, true, nil
}

func parseValues(record []string, cols columns) (time.Time, float64, error) {
	soldAt, err := parseDate(field(record, cols.date))
	if err != nil {
		return time.Time{}, 0, err
	}
	qty, err := parseQuantity(field(record, cols.quantity))
	if err != nil {
		return time.Time{}, 0, err
	}
	return soldAt, qty, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// parseQuantity accepts 1234.5 and the Indonesian 1.234,5 form.
func parseQuantity(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if raw == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	qty, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	return qty, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
