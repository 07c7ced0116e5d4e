// Package memory is an in-process implementation of the repository
// interfaces, used by the CLI dry-run mode and by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository"
)

type forecastKey struct {
	productID int64
	month     time.Time
}

type Store struct {
	mu              sync.RWMutex
	products        map[int64]domain.Product
	sales           []domain.SalesTransaction
	forecasts       map[forecastKey]domain.ForecastRow
	leadTimes       map[int64]domain.LeadTimeStats
	snapshots       []domain.StockSnapshot
	recommendations []domain.Recommendation
	nextID          int64
	listErr         error

	// Now stamps UpdatedAt and CreatedAt; defaults to time.Now.
	Now func() time.Time
}

var (
	_ repository.ProductRepository        = (*Store)(nil)
	_ repository.SalesRepository          = (*Store)(nil)
	_ repository.ForecastRepository       = (*Store)(nil)
	_ repository.InventoryRepository      = (*Store)(nil)
	_ repository.RecommendationRepository = (*Store)(nil)
)

func New() *Store {
	return &Store{
		products:  make(map[int64]domain.Product),
		forecasts: make(map[forecastKey]domain.ForecastRow),
		leadTimes: make(map[int64]domain.LeadTimeStats),
		Now:       time.Now,
	}
}

// Repositories exposes the store through every repository interface.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Products:        s,
		Sales:           s,
		Forecasts:       s,
		Inventory:       s,
		Recommendations: s,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddProduct registers a product as-is, without validating its model.
func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// AddSale records a single sale.
func (s *Store) AddSale(productID int64, soldAt time.Time, quantity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, domain.SalesTransaction{
		ID:        s.id(),
		ProductID: productID,
		SoldAt:    soldAt.UTC(),
		Quantity:  quantity,
	})
}

func (s *Store) SetLeadTime(stats domain.LeadTimeStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leadTimes[stats.ProductID] = stats
}

func (s *Store) AddStockSnapshot(snap domain.StockSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

// FailListProducts makes ListProducts return err.
func (s *Store) FailListProducts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

func (s *Store) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) GetProductByName(_ context.Context, name string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *Store) ListProductsByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var products []domain.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *Store) GetMonthlySales(_ context.Context, productID int64, start, end time.Time) ([]domain.MonthlySalesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end = domain.MonthStart(start), domain.MonthStart(end)
	totals := make(map[time.Time]float64)
	for _, tx := range s.sales {
		if tx.ProductID != productID {
			continue
		}
		month := domain.MonthStart(tx.SoldAt)
		if month.Before(start) || month.After(end) {
			continue
		}
		totals[month] += tx.Quantity
	}

	points := make([]domain.MonthlySalesPoint, 0, len(totals))
	for month, qty := range totals {
		points = append(points, domain.MonthlySalesPoint{ProductID: productID, Month: month, Quantity: qty})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month.Before(points[j].Month) })
	return points, nil
}

func (s *Store) GetFirstSaleDate(_ context.Context, productID int64) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first time.Time
	found := false
	for _, tx := range s.sales {
		if tx.ProductID != productID {
			continue
		}
		if !found || tx.SoldAt.Before(first) {
			first = tx.SoldAt
			found = true
		}
	}
	return first, found, nil
}

func (s *Store) InsertSales(_ context.Context, rows []domain.SalesTransaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		row.ID = s.id()
		row.SoldAt = row.SoldAt.UTC()
		s.sales = append(s.sales, row)
	}
	return len(rows), nil
}

func (s *Store) GetStoredForecasts(_ context.Context, productID int64, start, end time.Time) ([]domain.ForecastRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end = domain.MonthStart(start), domain.MonthStart(end)
	var rows []domain.ForecastRow
	for key, row := range s.forecasts {
		if key.productID != productID || key.month.Before(start) || key.month.After(end) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month.Before(rows[j].Month) })
	return rows, nil
}

func (s *Store) UpsertForecast(_ context.Context, productID int64, month time.Time, quantity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := forecastKey{productID: productID, month: domain.MonthStart(month)}
	row, ok := s.forecasts[key]
	if !ok {
		row = domain.ForecastRow{ID: s.id(), ProductID: productID, Month: key.month}
	}
	row.Quantity = domain.Round2(quantity)
	row.UpdatedAt = s.Now()
	s.forecasts[key] = row
	return nil
}

// Forecasts returns every stored forecast row ordered by product and month.
func (s *Store) Forecasts() []domain.ForecastRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.ForecastRow, 0, len(s.forecasts))
	for _, row := range s.forecasts {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductID != rows[j].ProductID {
			return rows[i].ProductID < rows[j].ProductID
		}
		return rows[i].Month.Before(rows[j].Month)
	})
	return rows
}

func (s *Store) GetLeadTimeStats(_ context.Context, productID int64) (domain.LeadTimeStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.leadTimes[productID]
	return stats, ok, nil
}

func (s *Store) GetLatestStockSnapshot(_ context.Context, productID int64, asOf time.Time) (domain.StockSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, snap := range s.snapshots {
		if snap.ProductID != productID || snap.AsOf.After(asOf) {
			continue
		}
		if !found || snap.AsOf.After(latest) {
			latest = snap.AsOf
			found = true
		}
	}
	if !found {
		return domain.StockSnapshot{}, false, nil
	}

	result := domain.StockSnapshot{ProductID: productID, AsOf: latest}
	for _, snap := range s.snapshots {
		if snap.ProductID == productID && snap.AsOf.Equal(latest) {
			result.Quantity += snap.Quantity
		}
	}
	return result, true, nil
}

func (s *Store) InsertRecommendation(_ context.Context, rec *domain.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.id()
	rec.Month = domain.MonthStart(rec.Month)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.Now()
	}
	s.recommendations = append(s.recommendations, *rec)
	return nil
}

func (s *Store) ListRecommendations(_ context.Context, productID int64, month time.Time) ([]domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	month = domain.MonthStart(month)
	var recs []domain.Recommendation
	for _, rec := range s.recommendations {
		if rec.ProductID == productID && rec.Month.Equal(month) {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// Recommendations returns every stored recommendation in insertion order.
func (s *Store) Recommendations() []domain.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Recommendation(nil), s.recommendations...)
}
