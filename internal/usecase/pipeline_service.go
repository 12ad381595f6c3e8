package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/ballparklabs/diamondline/internal/domain/extraction"
	"github.com/ballparklabs/diamondline/internal/domain/validation"
	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
)

// Notifier delivers validation reports and alerts to an external sink. The
// pipeline only produces the structured payload.
type Notifier interface {
	Notify(ctx context.Context, report validation.Report, alerts []validation.Alert) error
}

// RunSummary is the user-visible outcome of one daily run: partial successes,
// counts, and per-table load results.
type RunSummary struct {
	Date           time.Time
	ScheduledGames int
	FetchedGames   int
	Load           LoadSummary
}

// PipelineService composes extraction, loading, and validation into the
// trigger-facing operations.
type PipelineService struct {
	extractor *ExtractionService
	loader    *LoaderService
	validator *ValidationService
	notifier  Notifier
	logger    *logging.Logger
}

func NewPipelineService(
	extractor *ExtractionService,
	loader *LoaderService,
	validator *ValidationService,
	notifier Notifier,
	logger *logging.Logger,
) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PipelineService{
		extractor: extractor,
		loader:    loader,
		validator: validator,
		notifier:  notifier,
		logger:    logger,
	}
}

// RunDaily extracts and loads one date. Extraction failure aborts; load
// failures are carried in the summary per table.
func (s *PipelineService) RunDaily(ctx context.Context, date time.Time) (RunSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "PipelineService.RunDaily")
	defer span.End()

	bundle, err := s.extractor.ExtractDailyData(ctx, date)
	if err != nil {
		return RunSummary{}, crerr.Wrapf(err, "daily run date=%s", date.Format("2006-01-02"))
	}

	load, err := s.loader.LoadDailyExtraction(ctx, bundle)
	if err != nil {
		return RunSummary{}, crerr.Wrapf(err, "load daily extraction date=%s", date.Format("2006-01-02"))
	}

	return RunSummary{
		Date:           date,
		ScheduledGames: bundle.ScheduledGames,
		FetchedGames:   bundle.TotalGames,
		Load:           load,
	}, nil
}

// RunLive extracts one in-progress game and appends its row to the games
// table.
func (s *PipelineService) RunLive(ctx context.Context, gameID int64) (warehouse.LoadResult, error) {
	ctx, span := startUsecaseSpan(ctx, "PipelineService.RunLive")
	defer span.End()

	record, err := s.extractor.ExtractLiveGame(ctx, gameID)
	if err != nil {
		return warehouse.LoadResult{}, err
	}

	partition := time.Now().UTC()
	row, err := transformGameDetail(record, partition)
	if err != nil {
		return warehouse.LoadResult{}, crerr.Wrapf(err, "transform live game game_id=%d", gameID)
	}

	return s.loader.Load(ctx, "games", []warehouse.Record{row}, warehouse.WriteAppend)
}

// Backfill runs the daily pipeline for every date in [start, end], one day at
// a time. A failed day is recorded and the range continues.
func (s *PipelineService) Backfill(ctx context.Context, start, end time.Time) ([]extraction.DayResult, error) {
	ctx, span := startUsecaseSpan(ctx, "PipelineService.Backfill")
	defer span.End()

	if start.IsZero() || end.IsZero() {
		return nil, crerr.Wrap(ErrInvalidInput, "start and end dates are required")
	}
	if end.Before(start) {
		return nil, crerr.Wrap(ErrInvalidInput, "end date precedes start date")
	}

	results := make([]extraction.DayResult, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		summary, err := s.RunDaily(ctx, day)
		if err != nil {
			s.logger.WarnContext(ctx, "backfill day failed, continuing",
				"date", day.Format("2006-01-02"),
				"error", err,
			)
			results = append(results, extraction.DayResult{
				Date:   day,
				Status: extraction.DayStatusFailed,
				Error:  err.Error(),
			})
			continue
		}
		results = append(results, extraction.DayResult{
			Date:       day,
			Status:     extraction.DayStatusSuccess,
			TotalGames: summary.FetchedGames,
		})
	}
	return results, nil
}

// RunValidation generates the report for one date, derives alerts, and hands
// both to the notifier. Notification failure is logged, not fatal: the report
// is still returned to the caller.
func (s *PipelineService) RunValidation(ctx context.Context, date time.Time) (validation.Report, []validation.Alert, error) {
	ctx, span := startUsecaseSpan(ctx, "PipelineService.RunValidation")
	defer span.End()

	report, err := s.validator.GenerateValidationReport(ctx, date)
	if err != nil {
		return validation.Report{}, nil, crerr.Wrapf(err, "validate date=%s", date.Format("2006-01-02"))
	}

	alerts := s.validator.AlertOnAnomalies(report)
	if s.notifier != nil && len(alerts) > 0 {
		if notifyErr := s.notifier.Notify(ctx, report, alerts); notifyErr != nil {
			s.logger.WarnContext(ctx, "alert delivery failed", "alerts", len(alerts), "error", notifyErr)
		}
	}
	return report, alerts, nil
}

// Cleanup removes rows older than the retention window from one table.
func (s *PipelineService) Cleanup(ctx context.Context, table string, retentionDays int) (CleanupResult, error) {
	ctx, span := startUsecaseSpan(ctx, "PipelineService.Cleanup")
	defer span.End()
	return s.loader.CleanupOldData(ctx, table, retentionDays)
}
