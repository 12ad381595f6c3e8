package usecase

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/ballparklabs/diamondline/external/statsapi"
	"github.com/ballparklabs/diamondline/internal/domain/extraction"
	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
)

const (
	maxRejectionReasons = 10
	defaultWriteRetries = 2
)

// requiredKeyByTable is the per-table minimum-field contract. A record
// missing its table's key is rejected; everything else passes through.
var requiredKeyByTable = map[string]string{
	"games":        "game_id",
	"game_events":  "game_id",
	"teams":        "team_id",
	"standings":    "team_id",
	"players":      "player_id",
	"player_stats": "player_id",
}

// Overall load statuses for a daily bundle.
const (
	LoadOverallSuccess = "success"
	LoadOverallFailed  = "failed"
)

// LoadSummary is the outcome of loading one extraction bundle, one result per
// table. Status is failed if any table's load failed.
type LoadSummary struct {
	Date    time.Time
	Results map[string]warehouse.LoadResult
	Status  string
}

// CleanupResult reports one retention sweep.
type CleanupResult struct {
	Table       string
	Cutoff      time.Time
	RowsDeleted int64
}

// LoaderService validates record shape against per-table contracts and
// performs idempotent batch writes. Timestamp injection is the only mutation
// it applies to a record.
type LoaderService struct {
	store        warehouse.Writer
	logger       *logging.Logger
	writeRetries int
	retryDelay   time.Duration
	now          func() time.Time
}

func NewLoaderService(store warehouse.Writer, logger *logging.Logger) *LoaderService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LoaderService{
		store:        store,
		logger:       logger,
		writeRetries: defaultWriteRetries,
		retryDelay:   time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Load writes one table's batch. Validation failures accumulate instead of
// failing fast; the write itself is retried only for transient store errors.
func (s *LoaderService) Load(ctx context.Context, table string, records []warehouse.Record, mode warehouse.WriteMode) (warehouse.LoadResult, error) {
	ctx, span := startUsecaseSpan(ctx, "LoaderService.Load")
	defer span.End()

	requiredKey, known := requiredKeyByTable[table]
	if !known {
		return warehouse.LoadResult{}, crerr.Wrapf(ErrInvalidInput, "unknown table %q", table)
	}
	if mode == "" {
		mode = warehouse.WriteAppend
	}

	result := warehouse.LoadResult{Table: table, Timestamp: s.now()}
	if len(records) == 0 {
		result.Status = warehouse.LoadSkipped
		result.Reason = "no records to load"
		return result, nil
	}

	valid := make([]warehouse.Record, 0, len(records))
	var reasons []string
	for idx, record := range records {
		if value, ok := record[requiredKey]; !ok || value == nil {
			result.RowsRejected++
			if len(reasons) < maxRejectionReasons {
				reasons = append(reasons, fmt.Sprintf("record %d: missing required field %s", idx, requiredKey))
			}
			continue
		}
		if _, ok := record[warehouse.ColumnExtractionTimestamp]; !ok {
			record[warehouse.ColumnExtractionTimestamp] = s.now()
		}
		valid = append(valid, record)
	}
	result.RejectionReasons = reasons

	if result.RowsRejected > 0 {
		s.logger.WarnContext(ctx, "records rejected before load",
			"table", table,
			"rejected", result.RowsRejected,
			"total", len(records),
			"reasons", reasons,
		)
	}

	if len(valid) == 0 {
		result.Status = warehouse.LoadSkipped
		result.Reason = "no valid records after validation"
		return result, nil
	}

	loaded, err := s.writeWithRetry(ctx, table, valid, mode)
	if err != nil {
		result.Status = warehouse.LoadFailed
		result.Reason = err.Error()
		return result, crerr.Wrapf(err, "load table %s", table)
	}

	result.Status = warehouse.LoadSuccess
	result.RowsLoaded = loaded
	s.logger.InfoContext(ctx, "table load completed",
		"table", table,
		"rows_loaded", loaded,
		"rows_rejected", result.RowsRejected,
		"mode", string(mode),
	)
	return result, nil
}

func (s *LoaderService) writeWithRetry(ctx context.Context, table string, rows []warehouse.Record, mode warehouse.WriteMode) (int, error) {
	var lastErr error
	for attempt := 0; attempt <= s.writeRetries; attempt++ {
		loaded, err := s.store.InsertRows(ctx, table, rows, mode)
		if err == nil {
			return loaded, nil
		}
		lastErr = err
		if !warehouse.IsTransient(err) {
			return 0, err
		}
		if attempt == s.writeRetries {
			break
		}
		s.logger.WarnContext(ctx, "transient write failure, retrying",
			"table", table,
			"attempt", attempt+1,
			"error", err,
		)
		timer := time.NewTimer(s.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
	return 0, lastErr
}

// LoadDailyExtraction decomposes a bundle into per-table record sets and
// loads each table independently. One table's failure never stops the next.
func (s *LoaderService) LoadDailyExtraction(ctx context.Context, bundle extraction.Bundle) (LoadSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "LoaderService.LoadDailyExtraction")
	defer span.End()

	partition := bundle.ExtractionDate
	summary := LoadSummary{
		Date:    partition,
		Results: make(map[string]warehouse.LoadResult, 2),
		Status:  LoadOverallSuccess,
	}

	gameRows := make([]warehouse.Record, 0, len(bundle.Games))
	var gameRejects []string
	for _, game := range bundle.Games {
		row, err := transformGameDetail(game, partition)
		if err != nil {
			gameRejects = append(gameRejects, fmt.Sprintf("game %d: %v", game.GameID, err))
			continue
		}
		gameRows = append(gameRows, row)
	}
	for _, entry := range statsapi.ScheduleGames(bundle.Schedule) {
		row, err := transformScheduleEntry(entry, partition)
		if err != nil {
			gameRejects = append(gameRejects, err.Error())
			continue
		}
		gameRows = append(gameRows, row)
	}

	standingRows, standingRejects := transformStandings(bundle.Standings, partition)

	s.loadTable(ctx, &summary, "games", gameRows, gameRejects)
	s.loadTable(ctx, &summary, "standings", standingRows, standingRejects)

	return summary, nil
}

// loadTable folds transform-stage rejections into the table's load result so
// rejection accounting covers the whole path from payload to row.
func (s *LoaderService) loadTable(ctx context.Context, summary *LoadSummary, table string, rows []warehouse.Record, transformRejects []string) {
	result, err := s.Load(ctx, table, rows, warehouse.WriteAppend)
	if err != nil {
		summary.Status = LoadOverallFailed
		s.logger.ErrorContext(ctx, "table load failed, continuing with remaining tables",
			"table", table,
			"error", err,
		)
	}

	result.RowsRejected += len(transformRejects)
	for _, reason := range transformRejects {
		if len(result.RejectionReasons) >= maxRejectionReasons {
			break
		}
		result.RejectionReasons = append(result.RejectionReasons, reason)
	}
	summary.Results[table] = result
}

// CleanupOldData removes rows whose partition date is older than the
// retention window. Not part of the hot load path.
func (s *LoaderService) CleanupOldData(ctx context.Context, table string, retentionDays int) (CleanupResult, error) {
	ctx, span := startUsecaseSpan(ctx, "LoaderService.CleanupOldData")
	defer span.End()

	if _, known := requiredKeyByTable[table]; !known {
		return CleanupResult{}, crerr.Wrapf(ErrInvalidInput, "unknown table %q", table)
	}
	if retentionDays <= 0 {
		return CleanupResult{}, crerr.Wrap(ErrInvalidInput, "retention days must be greater than zero")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted, err := s.store.DeleteOlderThan(ctx, table, cutoff)
	if err != nil {
		return CleanupResult{}, crerr.Wrapf(err, "cleanup table %s", table)
	}

	s.logger.InfoContext(ctx, "cleanup completed",
		"table", table,
		"cutoff", cutoff.Format("2006-01-02"),
		"rows_deleted", deleted,
	)
	return CleanupResult{Table: table, Cutoff: cutoff, RowsDeleted: deleted}, nil
}
