package usecase

import (
	"context"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/ballparklabs/diamondline/internal/domain/validation"
	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
	"github.com/ballparklabs/diamondline/internal/infrastructure/warehouse/memory"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
)

type stubNotifier struct {
	notify func(ctx context.Context, report validation.Report, alerts []validation.Alert) error
}

func (s stubNotifier) Notify(ctx context.Context, report validation.Report, alerts []validation.Alert) error {
	if s.notify == nil {
		return nil
	}
	return s.notify(ctx, report, alerts)
}

func newTestPipeline(provider StatsProvider, store warehouse.Store, notifier Notifier) *PipelineService {
	logger := logging.NewNop()
	extractor := NewExtractionService(provider, logger, 2)
	loader := NewLoaderService(store, logger)
	loader.retryDelay = time.Millisecond
	validator := NewValidationService(store, logger)
	return NewPipelineService(extractor, loader, validator, notifier, logger)
}

func TestPipelineService_RunDaily(t *testing.T) {
	t.Parallel()

	provider := stubStatsProvider{
		schedule: func(_ context.Context, _ time.Time) (map[string]any, error) {
			return schedulePayload(745891, 745892), nil
		},
		gameDetail: func(_ context.Context, gameID int64) (map[string]any, error) {
			return gameDetailPayload(gameID, "Final"), nil
		},
		standings: func(_ context.Context, _ int) (map[string]any, error) {
			return standingsPayload(), nil
		},
	}
	store := memory.NewStore()
	svc := newTestPipeline(provider, store, stubNotifier{})

	date := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	summary, err := svc.RunDaily(context.Background(), date)
	if err != nil {
		t.Fatalf("RunDaily error: %v", err)
	}

	if summary.ScheduledGames != 2 {
		t.Fatalf("expected 2 scheduled games, got=%d", summary.ScheduledGames)
	}
	if summary.FetchedGames != 2 {
		t.Fatalf("expected 2 fetched games, got=%d", summary.FetchedGames)
	}
	if summary.Load.Status != LoadOverallSuccess {
		t.Fatalf("expected successful load, got=%s", summary.Load.Status)
	}
	// Two detail rows plus two schedule rows: append never deduplicates.
	if got := store.RowCount("games"); got != 4 {
		t.Fatalf("expected 4 game rows, got=%d", got)
	}
	if got := store.RowCount("standings"); got != 2 {
		t.Fatalf("expected 2 standings rows, got=%d", got)
	}
}

func TestPipelineService_RunDaily_ExtractionFailureAborts(t *testing.T) {
	t.Parallel()

	provider := stubStatsProvider{
		schedule: func(_ context.Context, _ time.Time) (map[string]any, error) {
			return nil, crerr.New("upstream unavailable")
		},
	}
	store := memory.NewStore()
	svc := newTestPipeline(provider, store, stubNotifier{})

	_, err := svc.RunDaily(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error when extraction fails")
	}
	if got := store.RowCount("games"); got != 0 {
		t.Fatalf("expected no rows after aborted run, got=%d", got)
	}
}

func TestPipelineService_RunLive(t *testing.T) {
	t.Parallel()

	provider := stubStatsProvider{
		gameDetail: func(_ context.Context, gameID int64) (map[string]any, error) {
			return gameDetailPayload(gameID, "In Progress"), nil
		},
		liveFeed: func(_ context.Context, _ int64) (map[string]any, error) {
			return map[string]any{"diffPatch": []any{}}, nil
		},
	}
	store := memory.NewStore()
	svc := newTestPipeline(provider, store, stubNotifier{})

	result, err := svc.RunLive(context.Background(), 745891)
	if err != nil {
		t.Fatalf("RunLive error: %v", err)
	}

	if result.Status != warehouse.LoadSuccess {
		t.Fatalf("expected successful load, got=%s", result.Status)
	}
	if result.RowsLoaded != 1 {
		t.Fatalf("expected 1 row loaded, got=%d", result.RowsLoaded)
	}
	if got := store.RowCount("games"); got != 1 {
		t.Fatalf("expected 1 game row, got=%d", got)
	}
}

func TestPipelineService_RunLive_InvalidID(t *testing.T) {
	t.Parallel()

	svc := newTestPipeline(stubStatsProvider{}, memory.NewStore(), stubNotifier{})
	_, err := svc.RunLive(context.Background(), -1)
	if !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got=%v", err)
	}
}

func TestPipelineService_Backfill_ContinuesPastFailedDay(t *testing.T) {
	t.Parallel()

	badDay := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	provider := stubStatsProvider{
		schedule: func(_ context.Context, date time.Time) (map[string]any, error) {
			if date.Equal(badDay) {
				return nil, crerr.New("upstream unavailable")
			}
			return schedulePayload(745891), nil
		},
		gameDetail: func(_ context.Context, gameID int64) (map[string]any, error) {
			return gameDetailPayload(gameID, "Final"), nil
		},
		standings: func(_ context.Context, _ int) (map[string]any, error) {
			return standingsPayload(), nil
		},
	}
	svc := newTestPipeline(provider, memory.NewStore(), stubNotifier{})

	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)
	results, err := svc.Backfill(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Backfill error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 day results, got=%d", len(results))
	}
	if results[0].Status != "success" || results[2].Status != "success" {
		t.Fatalf("expected surrounding days to succeed, got=%s / %s", results[0].Status, results[2].Status)
	}
	if results[1].Status != "failed" {
		t.Fatalf("expected failed middle day, got=%s", results[1].Status)
	}
	if results[1].Error == "" {
		t.Fatal("expected failed day to carry its error")
	}
	if results[0].TotalGames != 1 {
		t.Fatalf("expected 1 game on successful day, got=%d", results[0].TotalGames)
	}
}

func TestPipelineService_Backfill_InvalidRange(t *testing.T) {
	t.Parallel()

	svc := newTestPipeline(stubStatsProvider{}, memory.NewStore(), stubNotifier{})

	start := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Backfill(context.Background(), start, end); !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for reversed range, got=%v", err)
	}
	if _, err := svc.Backfill(context.Background(), time.Time{}, end); !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero start, got=%v", err)
	}
}

func TestPipelineService_RunValidation_NotifiesOnAlerts(t *testing.T) {
	t.Parallel()

	var gotAlerts []validation.Alert
	notifier := stubNotifier{
		notify: func(_ context.Context, _ validation.Report, alerts []validation.Alert) error {
			gotAlerts = alerts
			return nil
		},
	}
	// Empty store: every monitored table reports no_data, failing freshness.
	svc := newTestPipeline(stubStatsProvider{}, memory.NewStore(), notifier)

	report, alerts, err := svc.RunValidation(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("RunValidation error: %v", err)
	}

	if report.OverallStatus != validation.StatusFailed {
		t.Fatalf("expected failed report, got=%s", report.OverallStatus)
	}
	if len(alerts) == 0 {
		t.Fatal("expected alerts for failed report")
	}
	if len(gotAlerts) != len(alerts) {
		t.Fatalf("expected notifier to receive %d alerts, got=%d", len(alerts), len(gotAlerts))
	}
}

func TestPipelineService_RunValidation_NotifierFailureNotFatal(t *testing.T) {
	t.Parallel()

	notifier := stubNotifier{
		notify: func(_ context.Context, _ validation.Report, _ []validation.Alert) error {
			return crerr.New("webhook unreachable")
		},
	}
	svc := newTestPipeline(stubStatsProvider{}, memory.NewStore(), notifier)

	report, alerts, err := svc.RunValidation(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected notifier failure to be non-fatal, got=%v", err)
	}
	if report.OverallStatus != validation.StatusFailed {
		t.Fatalf("expected failed report, got=%s", report.OverallStatus)
	}
	if len(alerts) == 0 {
		t.Fatal("expected alerts despite notifier failure")
	}
}

func TestPipelineService_Cleanup(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Now().UTC()
	records := []warehouse.Record{
		{"game_id": int64(745000), warehouse.ColumnPartitionDate: old},
		{"game_id": int64(745891), warehouse.ColumnPartitionDate: recent},
	}
	if _, err := store.InsertRows(context.Background(), "games", records, warehouse.WriteAppend); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	svc := newTestPipeline(stubStatsProvider{}, store, stubNotifier{})

	result, err := svc.Cleanup(context.Background(), "games", 90)
	if err != nil {
		t.Fatalf("Cleanup error: %v", err)
	}

	if result.RowsDeleted != 1 {
		t.Fatalf("expected 1 row deleted, got=%d", result.RowsDeleted)
	}
	if got := store.RowCount("games"); got != 1 {
		t.Fatalf("expected 1 row remaining, got=%d", got)
	}
}
