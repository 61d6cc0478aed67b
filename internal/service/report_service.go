package service

import (
	"context"
	"sync"
	"time"

	"github.com/field-worksheet-api/internal/config"
	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/repository"
	"github.com/rs/zerolog"
)

// reportService is the concrete implementation of ReportService. The
// distinct-value reads back the filter dropdowns on every screen, so
// they sit behind a small TTL cache; everything else hits the database.
type reportService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger

	mu          sync.Mutex
	valueCache  map[models.FilterColumn]*valuesEntry
	countsCache map[models.FilterColumn]*countsEntry
}

type valuesEntry struct {
	values  []string
	expires time.Time
}

type countsEntry struct {
	counts  map[string]int
	expires time.Time
}

// newReportService creates a new ReportService
func newReportService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *reportService {
	return &reportService{
		repos:       repos,
		cfg:         cfg,
		log:         log.With().Str("service", "report").Logger(),
		valueCache:  make(map[models.FilterColumn]*valuesEntry),
		countsCache: make(map[models.FilterColumn]*countsEntry),
	}
}

// Stats returns the whole-table dashboard summary.
func (s *reportService) Stats(ctx context.Context) (*models.RecordStats, error) {
	return s.repos.Record.Stats(ctx)
}

// Operational returns the per-PT progress, top localities and geo
// density views in one call.
func (s *reportService) Operational(ctx context.Context) (*OperationalReport, error) {
	pts, err := s.repos.Record.PTProgress(ctx)
	if err != nil {
		return nil, err
	}
	localities, err := s.repos.Record.TopLocalities(ctx)
	if err != nil {
		return nil, err
	}
	geo, err := s.repos.Record.GeoDensity(ctx)
	if err != nil {
		return nil, err
	}
	return &OperationalReport{PTs: pts, Localities: localities, Geo: geo}, nil
}

// Dashboard breaks one criterion column down by value, optionally scoped
// to a single value.
func (s *reportService) Dashboard(ctx context.Context, column models.FilterColumn, value string) ([]models.CriterionSlice, error) {
	if _, ok := column.SQLName(); !ok {
		return nil, models.NewValidationError("unknown column")
	}
	return s.repos.Record.CriterionBreakdown(ctx, column, value)
}

// DistinctValues returns the distinct non-placeholder values of a filter
// column, cached for the configured TTL.
func (s *reportService) DistinctValues(ctx context.Context, column models.FilterColumn) ([]string, error) {
	s.mu.Lock()
	if entry, ok := s.valueCache[column]; ok && time.Now().Before(entry.expires) {
		values := entry.values
		s.mu.Unlock()
		return values, nil
	}
	s.mu.Unlock()

	values, err := s.repos.Record.DistinctValues(ctx, column)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.valueCache[column] = &valuesEntry{values: values, expires: time.Now().Add(s.cfg.Cache.ValuesTTL)}
	s.mu.Unlock()
	return values, nil
}

// DistinctValueCounts returns available-record counts per value. These
// change with every generation and reset, so the TTL is short.
func (s *reportService) DistinctValueCounts(ctx context.Context, column models.FilterColumn) (map[string]int, error) {
	s.mu.Lock()
	if entry, ok := s.countsCache[column]; ok && time.Now().Before(entry.expires) {
		counts := entry.counts
		s.mu.Unlock()
		return counts, nil
	}
	s.mu.Unlock()

	counts, err := s.repos.Record.DistinctValueCounts(ctx, column)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.countsCache[column] = &countsEntry{counts: counts, expires: time.Now().Add(s.cfg.Cache.CountsTTL)}
	s.mu.Unlock()
	return counts, nil
}
