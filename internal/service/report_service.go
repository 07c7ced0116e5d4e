package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/storage"
)

// ReportStore reads persisted run reports.
type ReportStore interface {
	LatestReport(ctx context.Context, month time.Time) (*domain.RunReport, bool, error)
}

type ReportService struct {
	store ReportStore
	cache cache.ReportCache
}

func NewReportService(store ReportStore, cacheImpl cache.ReportCache) *ReportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &ReportService{store: store, cache: cacheImpl}
}

// Latest returns the most recent report for the target month, from cache when possible.
func (s *ReportService) Latest(ctx context.Context, month time.Time) (*domain.RunReport, bool, error) {
	if report, ok, err := s.cache.GetReport(ctx, month); err == nil && ok {
		return report, true, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("forecast report: cache get failed")
	}

	if s.store == nil {
		return nil, false, nil
	}

	report, ok, err := s.store.LatestReport(ctx, month)
	if err != nil || !ok {
		return nil, false, err
	}

	if err := s.cache.SetReport(ctx, report); err != nil {
		log.Warn().Err(err).Msg("forecast report: cache set failed")
	}

	return report, true, nil
}

// Publish replaces the cached report after a run.
func (s *ReportService) Publish(ctx context.Context, report *domain.RunReport) {
	if err := s.cache.InvalidateReport(ctx, report.TargetMonth); err != nil {
		log.Warn().Err(err).Msg("forecast report: cache invalidate failed")
	}
	if err := s.cache.SetReport(ctx, report); err != nil {
		log.Warn().Err(err).Msg("forecast report: cache set failed")
	}
}

// ArchiveKey is the object key a report is uploaded under.
func ArchiveKey(report *domain.RunReport) string {
	name := "latest.json"
	if report.RunID > 0 {
		name = fmt.Sprintf("run-%d.json", report.RunID)
	}
	return fmt.Sprintf("reports/%s/%s", domain.MonthKey(report.TargetMonth), name)
}

// Archive uploads the report as indented JSON and returns its key.
func (s *ReportService) Archive(ctx context.Context, store storage.ObjectStorage, report *domain.RunReport) (string, error) {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode run report: %w", err)
	}

	key := ArchiveKey(report)
	if err := store.UploadObject(ctx, key, payload); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Msg("forecast report archived")
	return key, nil
}
