package usecase

import (
	"context"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/ballparklabs/diamondline/internal/domain/validation"
	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
)

type stubReader struct {
	gamesByDate         func(ctx context.Context, date time.Time) ([]warehouse.GameRow, error)
	standingsByDate     func(ctx context.Context, date time.Time) ([]warehouse.StandingRow, error)
	playerStatsBySeason func(ctx context.Context, season int) ([]warehouse.PlayerStatRow, error)
	latestExtraction    func(ctx context.Context, table string, date time.Time) (time.Time, int64, error)
}

func (s stubReader) GamesByDate(ctx context.Context, date time.Time) ([]warehouse.GameRow, error) {
	if s.gamesByDate == nil {
		return nil, nil
	}
	return s.gamesByDate(ctx, date)
}

func (s stubReader) StandingsByDate(ctx context.Context, date time.Time) ([]warehouse.StandingRow, error) {
	if s.standingsByDate == nil {
		return nil, nil
	}
	return s.standingsByDate(ctx, date)
}

func (s stubReader) PlayerStatsBySeason(ctx context.Context, season int) ([]warehouse.PlayerStatRow, error) {
	if s.playerStatsBySeason == nil {
		return nil, nil
	}
	return s.playerStatsBySeason(ctx, season)
}

func (s stubReader) LatestExtraction(ctx context.Context, table string, date time.Time) (time.Time, int64, error) {
	if s.latestExtraction == nil {
		return time.Time{}, 0, nil
	}
	return s.latestExtraction(ctx, table, date)
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func TestValidationService_ValidateGames(t *testing.T) {
	t.Parallel()

	store := stubReader{
		gamesByDate: func(_ context.Context, _ time.Time) ([]warehouse.GameRow, error) {
			return []warehouse.GameRow{
				{GameID: 745891, Status: "Final", AbstractState: "Final", HomeScore: int64Ptr(5), AwayScore: int64Ptr(3)},
				{GameID: 745892, Status: "Game Over", AbstractState: "Final", HomeScore: int64Ptr(2)},
				{GameID: 745893, Status: "Final", AbstractState: "Live", HomeScore: int64Ptr(1), AwayScore: int64Ptr(0)},
				{GameID: 745894, Status: "In Progress", AbstractState: "Live", HomeScore: int64Ptr(-1), AwayScore: int64Ptr(4)},
			}, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())

	result, err := svc.ValidateGames(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ValidateGames error: %v", err)
	}

	if result.TotalGames != 4 {
		t.Fatalf("expected 4 total games, got=%d", result.TotalGames)
	}
	if result.FinalGames != 3 {
		t.Fatalf("expected 3 final games, got=%d", result.FinalGames)
	}
	if len(result.MissingScores) != 1 {
		t.Fatalf("expected 1 missing-scores anomaly, got=%d", len(result.MissingScores))
	}
	if result.MissingScores[0].Details["game_id"] != int64(745892) {
		t.Fatalf("unexpected missing-scores game: %v", result.MissingScores[0].Details["game_id"])
	}
	if len(result.Anomalies) != 2 {
		t.Fatalf("expected 2 anomalies, got=%d", len(result.Anomalies))
	}
	if result.Anomalies[0].Type != validation.AnomalyImpossibleGameState {
		t.Fatalf("expected impossible_game_state first, got=%s", result.Anomalies[0].Type)
	}
	if result.Anomalies[1].Type != validation.AnomalyNegativeHomeScore {
		t.Fatalf("expected negative_home_score, got=%s", result.Anomalies[1].Type)
	}
	if result.Passed {
		t.Fatal("expected games validation to fail")
	}
}

func TestValidationService_ValidateGames_Clean(t *testing.T) {
	t.Parallel()

	store := stubReader{
		gamesByDate: func(_ context.Context, _ time.Time) ([]warehouse.GameRow, error) {
			return []warehouse.GameRow{
				{GameID: 745891, Status: "Final", AbstractState: "Final", HomeScore: int64Ptr(5), AwayScore: int64Ptr(3)},
				{GameID: 745892, Status: "Scheduled", AbstractState: "Preview"},
			}, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())

	result, err := svc.ValidateGames(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ValidateGames error: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected passing result, got anomalies=%v missing=%v", result.Anomalies, result.MissingScores)
	}
}

func TestValidationService_ValidateStandings(t *testing.T) {
	t.Parallel()

	store := stubReader{
		standingsByDate: func(_ context.Context, _ time.Time) ([]warehouse.StandingRow, error) {
			return []warehouse.StandingRow{
				// 95/162 = .58642, stored .586 is within tolerance.
				{TeamID: 111, Wins: 95, Losses: 67, WinPercentage: 0.586, RunsScored: 780, RunsAllowed: 700, RunDifferential: 80},
				{TeamID: 147, Wins: 92, Losses: 70, WinPercentage: 0.600, RunsScored: 760, RunsAllowed: 710, RunDifferential: 50},
				{TeamID: 121, Wins: 80, Losses: 82, WinPercentage: 0.494, RunsScored: 700, RunsAllowed: 705, RunDifferential: 10},
				{TeamID: 133, Wins: -1, Losses: 70, WinPercentage: 0.0, RunsScored: 0, RunsAllowed: 0, RunDifferential: 0},
			}, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())

	result, err := svc.ValidateStandings(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ValidateStandings error: %v", err)
	}

	if result.TotalRows != 4 {
		t.Fatalf("expected 4 rows, got=%d", result.TotalRows)
	}
	wantTypes := map[string]int{}
	for _, anomaly := range result.Anomalies {
		wantTypes[anomaly.Type]++
	}
	if wantTypes[validation.AnomalyIncorrectWinPercentage] != 2 {
		t.Fatalf("expected 2 win-percentage anomalies, got=%d", wantTypes[validation.AnomalyIncorrectWinPercentage])
	}
	if wantTypes[validation.AnomalyIncorrectRunDifferential] != 1 {
		t.Fatalf("expected 1 run-differential anomaly, got=%d", wantTypes[validation.AnomalyIncorrectRunDifferential])
	}
	if wantTypes[validation.AnomalyNegativeWins] != 1 {
		t.Fatalf("expected 1 negative-wins anomaly, got=%d", wantTypes[validation.AnomalyNegativeWins])
	}
	if result.Passed {
		t.Fatal("expected standings validation to fail")
	}
}

func TestValidationService_ValidateStandings_Clean(t *testing.T) {
	t.Parallel()

	store := stubReader{
		standingsByDate: func(_ context.Context, _ time.Time) ([]warehouse.StandingRow, error) {
			return []warehouse.StandingRow{
				{TeamID: 111, Wins: 95, Losses: 67, WinPercentage: 0.586, RunsScored: 780, RunsAllowed: 700, RunDifferential: 80},
			}, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())

	result, err := svc.ValidateStandings(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ValidateStandings error: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected passing result, got anomalies=%v", result.Anomalies)
	}
}

func TestValidationService_ValidatePlayerStats(t *testing.T) {
	t.Parallel()

	store := stubReader{
		playerStatsBySeason: func(_ context.Context, _ int) ([]warehouse.PlayerStatRow, error) {
			return []warehouse.PlayerStatRow{
				// 155/497 = .31187, stored .312 is within tolerance.
				{PlayerID: 660271, StatGroup: "hitting", AtBats: 497, Hits: 155, BattingAverage: float64Ptr(0.312)},
				{PlayerID: 545361, StatGroup: "hitting", AtBats: 500, Hits: 150, BattingAverage: float64Ptr(0.350)},
				{PlayerID: 592450, StatGroup: "hitting", AtBats: 400, Hits: 120, BattingAverage: float64Ptr(1.2)},
				{PlayerID: 477132, StatGroup: "pitching", ERA: float64Ptr(25.0), WHIP: float64Ptr(6.0)},
			}, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())

	result, err := svc.ValidatePlayerStats(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ValidatePlayerStats error: %v", err)
	}

	if result.Season != 2024 {
		t.Fatalf("expected season 2024, got=%d", result.Season)
	}
	wantTypes := map[string]int{}
	for _, anomaly := range result.Anomalies {
		wantTypes[anomaly.Type]++
	}
	if wantTypes[validation.AnomalyIncorrectBattingAverage] != 2 {
		t.Fatalf("expected 2 incorrect-average anomalies, got=%d", wantTypes[validation.AnomalyIncorrectBattingAverage])
	}
	if wantTypes[validation.AnomalyInvalidBattingAverageRange] != 1 {
		t.Fatalf("expected 1 average-range anomaly, got=%d", wantTypes[validation.AnomalyInvalidBattingAverageRange])
	}
	if wantTypes[validation.AnomalyInvalidERARange] != 1 {
		t.Fatalf("expected 1 era-range anomaly, got=%d", wantTypes[validation.AnomalyInvalidERARange])
	}
	if wantTypes[validation.AnomalyInvalidWHIPRange] != 1 {
		t.Fatalf("expected 1 whip-range anomaly, got=%d", wantTypes[validation.AnomalyInvalidWHIPRange])
	}
	if result.Passed {
		t.Fatal("expected player stats validation to fail")
	}
}

func TestValidationService_ValidatePlayerStats_PitchingSkipsAverageRecompute(t *testing.T) {
	t.Parallel()

	store := stubReader{
		playerStatsBySeason: func(_ context.Context, _ int) ([]warehouse.PlayerStatRow, error) {
			return []warehouse.PlayerStatRow{
				{PlayerID: 477132, StatGroup: "pitching", ERA: float64Ptr(3.14), WHIP: float64Ptr(1.06)},
			}, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())

	result, err := svc.ValidatePlayerStats(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ValidatePlayerStats error: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected passing result, got anomalies=%v", result.Anomalies)
	}
}

func TestValidationService_CheckDataFreshness(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 7, 4, 20, 0, 0, 0, time.UTC)
	today := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		gamesAge    time.Duration
		gamesCount  int64
		wantGames   validation.FreshnessStatus
		wantOverall validation.FreshnessStatus
	}{
		{"fresh within threshold", 3500 * time.Second, 15, validation.FreshnessFresh, validation.FreshnessFresh},
		{"stale beyond threshold", 3700 * time.Second, 15, validation.FreshnessStale, validation.FreshnessStale},
		{"no data", 0, 0, validation.FreshnessNoData, validation.FreshnessNoData},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := stubReader{
				latestExtraction: func(_ context.Context, table string, date time.Time) (time.Time, int64, error) {
					if !date.Equal(today) {
						t.Fatalf("expected today's partition %v, got=%v", today, date)
					}
					if table == "games" {
						return now.Add(-tc.gamesAge), tc.gamesCount, nil
					}
					return now.Add(-30 * time.Minute), 30, nil
				},
			}
			svc := NewValidationService(store, logging.NewNop())
			svc.now = func() time.Time { return now }

			result, err := svc.CheckDataFreshness(context.Background())
			if err != nil {
				t.Fatalf("CheckDataFreshness error: %v", err)
			}

			if len(result.Tables) != 2 {
				t.Fatalf("expected 2 tables, got=%d", len(result.Tables))
			}
			if result.Tables[0].Table != "games" || result.Tables[1].Table != "standings" {
				t.Fatalf("unexpected table ordering: %s, %s", result.Tables[0].Table, result.Tables[1].Table)
			}
			if result.Tables[0].Status != tc.wantGames {
				t.Fatalf("expected games status %s, got=%s", tc.wantGames, result.Tables[0].Status)
			}
			if result.Overall != tc.wantOverall {
				t.Fatalf("expected overall %s, got=%s", tc.wantOverall, result.Overall)
			}
		})
	}
}

func TestValidationService_CheckDataFreshness_StaleDominatesNoData(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 7, 4, 20, 0, 0, 0, time.UTC)
	store := stubReader{
		latestExtraction: func(_ context.Context, table string, _ time.Time) (time.Time, int64, error) {
			if table == "games" {
				return time.Time{}, 0, nil
			}
			return now.Add(-3 * time.Hour), 30, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())
	svc.now = func() time.Time { return now }

	result, err := svc.CheckDataFreshness(context.Background())
	if err != nil {
		t.Fatalf("CheckDataFreshness error: %v", err)
	}
	if result.Overall != validation.FreshnessStale {
		t.Fatalf("expected stale overall, got=%s", result.Overall)
	}
}

func TestValidationService_GenerateValidationReport(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 7, 4, 20, 0, 0, 0, time.UTC)
	store := stubReader{
		gamesByDate: func(_ context.Context, _ time.Time) ([]warehouse.GameRow, error) {
			return []warehouse.GameRow{
				{GameID: 745891, Status: "Final", AbstractState: "Final", HomeScore: int64Ptr(5), AwayScore: int64Ptr(3)},
			}, nil
		},
		standingsByDate: func(_ context.Context, _ time.Time) ([]warehouse.StandingRow, error) {
			return []warehouse.StandingRow{
				{TeamID: 111, Wins: 95, Losses: 67, WinPercentage: 0.586, RunsScored: 780, RunsAllowed: 700, RunDifferential: 80},
			}, nil
		},
		latestExtraction: func(_ context.Context, _ string, _ time.Time) (time.Time, int64, error) {
			return now.Add(-10 * time.Minute), 15, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())
	svc.now = func() time.Time { return now }

	report, err := svc.GenerateValidationReport(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GenerateValidationReport error: %v", err)
	}

	if report.OverallStatus != validation.StatusPassed {
		t.Fatalf("expected passed status, got=%s", report.OverallStatus)
	}
	if len(report.FailedValidations) != 0 {
		t.Fatalf("expected no failed validations, got=%v", report.FailedValidations)
	}
}

func TestValidationService_GenerateValidationReport_FreshnessFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 7, 4, 20, 0, 0, 0, time.UTC)
	store := stubReader{
		latestExtraction: func(_ context.Context, _ string, _ time.Time) (time.Time, int64, error) {
			return time.Time{}, 0, nil
		},
	}
	svc := NewValidationService(store, logging.NewNop())
	svc.now = func() time.Time { return now }

	report, err := svc.GenerateValidationReport(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GenerateValidationReport error: %v", err)
	}

	if report.OverallStatus != validation.StatusFailed {
		t.Fatalf("expected failed status, got=%s", report.OverallStatus)
	}
	if len(report.FailedValidations) != 1 || report.FailedValidations[0] != "data_freshness" {
		t.Fatalf("unexpected failed validations: %v", report.FailedValidations)
	}
}

func TestValidationService_GenerateValidationReport_StoreError(t *testing.T) {
	t.Parallel()

	store := stubReader{
		gamesByDate: func(_ context.Context, _ time.Time) ([]warehouse.GameRow, error) {
			return nil, crerr.New("connection refused")
		},
	}
	svc := NewValidationService(store, logging.NewNop())

	_, err := svc.GenerateValidationReport(context.Background(), time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error when a check cannot query the store")
	}
}

func TestValidationService_AlertOnAnomalies(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 7, 4, 20, 0, 0, 0, time.UTC)
	svc := NewValidationService(stubReader{}, logging.NewNop())
	svc.now = func() time.Time { return now }

	report := validation.Report{
		ValidationDate:    time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
		OverallStatus:     validation.StatusFailed,
		FailedValidations: []string{"games", "data_freshness"},
		Games: validation.GamesResult{
			MissingScores: []validation.Anomaly{
				{Type: validation.AnomalyMissingScores, Details: map[string]any{"game_id": int64(745892)}},
			},
			Anomalies: []validation.Anomaly{
				{Type: validation.AnomalyNegativeHomeScore},
			},
		},
		Freshness: validation.FreshnessResult{
			Overall: validation.FreshnessStale,
			Tables: []validation.TableFreshness{
				{Table: "games", Status: validation.FreshnessStale},
				{Table: "standings", Status: validation.FreshnessFresh},
			},
		},
	}

	alerts := svc.AlertOnAnomalies(report)
	if len(alerts) != 4 {
		t.Fatalf("expected 4 alerts, got=%d", len(alerts))
	}

	wantTypes := []string{
		validation.AlertTypeValidationFailure,
		validation.AlertTypeMissingScores,
		validation.AlertTypeStaleData,
		validation.AlertTypeDataAnomalies,
	}
	for i, want := range wantTypes {
		if alerts[i].Type != want {
			t.Fatalf("expected alert %s at index %d, got=%s", want, i, alerts[i].Type)
		}
	}
	if alerts[0].Level != validation.AlertError || alerts[1].Level != validation.AlertWarning {
		t.Fatalf("unexpected alert levels: %s / %s", alerts[0].Level, alerts[1].Level)
	}
	if alerts[0].Message != "Data validation failed for 2024-07-04" {
		t.Fatalf("unexpected failure message: %q", alerts[0].Message)
	}
	stale, _ := alerts[2].Details["stale_tables"].([]string)
	if len(stale) != 1 || stale[0] != "games" {
		t.Fatalf("unexpected stale tables: %v", alerts[2].Details["stale_tables"])
	}
}

func TestValidationService_AlertOnAnomalies_CleanReport(t *testing.T) {
	t.Parallel()

	svc := NewValidationService(stubReader{}, logging.NewNop())
	report := validation.Report{
		OverallStatus: validation.StatusPassed,
		Freshness:     validation.FreshnessResult{Overall: validation.FreshnessFresh},
	}

	if alerts := svc.AlertOnAnomalies(report); len(alerts) != 0 {
		t.Fatalf("expected no alerts, got=%d", len(alerts))
	}
}
