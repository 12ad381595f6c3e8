package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/ballparklabs/diamondline/internal/domain/validation"
	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
)

// numericTolerance bounds the recompute-vs-stored comparison for rate stats.
// TODO: confirm against upstream rounding; .586-style values suggest three
// decimals but postseason formats have not been checked.
const numericTolerance = 0.001

// Rate-stat sanity bounds. Out-of-range values are anomalies even when
// internally consistent.
const (
	battingAverageMin = 0.0
	battingAverageMax = 1.0
	eraMin            = 0.0
	eraMax            = 20.0
	whipMin           = 0.0
	whipMax           = 5.0
)

// freshnessThresholds is per monitored table; standings updates less often
// than games, so it tolerates twice the age.
var freshnessThresholds = map[string]time.Duration{
	"games":     time.Hour,
	"standings": 2 * time.Hour,
}

// ValidationService runs read-only consistency, freshness, and anomaly checks
// over what the loader wrote. It never mutates warehouse data.
type ValidationService struct {
	store  warehouse.Reader
	logger *logging.Logger
	now    func() time.Time
}

func NewValidationService(store warehouse.Reader, logger *logging.Logger) *ValidationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ValidationService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func isFinalStatus(status string) bool {
	return status == "Final" || status == "Game Over"
}

// ValidateGames checks structural invariants of one date's games: a final
// game must carry both scores, scores are never negative, and final and live
// are mutually exclusive states.
func (s *ValidationService) ValidateGames(ctx context.Context, date time.Time) (validation.GamesResult, error) {
	ctx, span := startUsecaseSpan(ctx, "ValidationService.ValidateGames")
	defer span.End()

	rows, err := s.store.GamesByDate(ctx, date)
	if err != nil {
		return validation.GamesResult{}, crerr.Wrapf(err, "query games date=%s", date.Format("2006-01-02"))
	}

	result := validation.GamesResult{
		Date:          date,
		TotalGames:    len(rows),
		MissingScores: []validation.Anomaly{},
		Anomalies:     []validation.Anomaly{},
	}

	for _, row := range rows {
		final := isFinalStatus(row.Status)
		if final {
			result.FinalGames++
			if row.HomeScore == nil || row.AwayScore == nil {
				result.MissingScores = append(result.MissingScores, validation.Anomaly{
					Type: validation.AnomalyMissingScores,
					Details: map[string]any{
						"game_id": row.GameID,
						"status":  row.Status,
					},
				})
			}
		}
		if row.HomeScore != nil && *row.HomeScore < 0 {
			result.Anomalies = append(result.Anomalies, validation.Anomaly{
				Type:    validation.AnomalyNegativeHomeScore,
				Details: map[string]any{"game_id": row.GameID, "home_score": *row.HomeScore},
			})
		}
		if row.AwayScore != nil && *row.AwayScore < 0 {
			result.Anomalies = append(result.Anomalies, validation.Anomaly{
				Type:    validation.AnomalyNegativeAwayScore,
				Details: map[string]any{"game_id": row.GameID, "away_score": *row.AwayScore},
			})
		}
		if final && row.AbstractState == "Live" {
			result.Anomalies = append(result.Anomalies, validation.Anomaly{
				Type:    validation.AnomalyImpossibleGameState,
				Details: map[string]any{"game_id": row.GameID, "status": row.Status, "abstract_state": row.AbstractState},
			})
		}
	}

	result.Passed = len(result.MissingScores) == 0 && len(result.Anomalies) == 0
	return result, nil
}

// ValidateStandings recomputes win percentage and run differential for one
// date's standings and compares them to the stored values.
func (s *ValidationService) ValidateStandings(ctx context.Context, date time.Time) (validation.StandingsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "ValidationService.ValidateStandings")
	defer span.End()

	rows, err := s.store.StandingsByDate(ctx, date)
	if err != nil {
		return validation.StandingsResult{}, crerr.Wrapf(err, "query standings date=%s", date.Format("2006-01-02"))
	}

	result := validation.StandingsResult{
		Date:      date,
		TotalRows: len(rows),
		Anomalies: []validation.Anomaly{},
	}

	for _, row := range rows {
		if row.Wins < 0 {
			result.Anomalies = append(result.Anomalies, validation.Anomaly{
				Type:    validation.AnomalyNegativeWins,
				Details: map[string]any{"team_id": row.TeamID, "wins": row.Wins},
			})
		}
		if row.Losses < 0 {
			result.Anomalies = append(result.Anomalies, validation.Anomaly{
				Type:    validation.AnomalyNegativeLosses,
				Details: map[string]any{"team_id": row.TeamID, "losses": row.Losses},
			})
		}

		if games := row.Wins + row.Losses; games > 0 {
			expected := float64(row.Wins) / float64(games)
			if math.Abs(expected-row.WinPercentage) > numericTolerance {
				result.Anomalies = append(result.Anomalies, validation.Anomaly{
					Type: validation.AnomalyIncorrectWinPercentage,
					Details: map[string]any{
						"team_id":  row.TeamID,
						"expected": expected,
						"actual":   row.WinPercentage,
					},
				})
			}
		}

		if expected := row.RunsScored - row.RunsAllowed; expected != row.RunDifferential {
			result.Anomalies = append(result.Anomalies, validation.Anomaly{
				Type: validation.AnomalyIncorrectRunDifferential,
				Details: map[string]any{
					"team_id":  row.TeamID,
					"expected": expected,
					"actual":   row.RunDifferential,
				},
			})
		}
	}

	result.Passed = len(result.Anomalies) == 0
	return result, nil
}

// ValidatePlayerStats recomputes batting average for hitting rows and
// range-checks rate stats against domain sanity bounds.
func (s *ValidationService) ValidatePlayerStats(ctx context.Context, season int) (validation.PlayerStatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "ValidationService.ValidatePlayerStats")
	defer span.End()

	rows, err := s.store.PlayerStatsBySeason(ctx, season)
	if err != nil {
		return validation.PlayerStatsResult{}, crerr.Wrapf(err, "query player stats season=%d", season)
	}

	result := validation.PlayerStatsResult{
		Season:    season,
		TotalRows: len(rows),
		Anomalies: []validation.Anomaly{},
	}

	for _, row := range rows {
		if row.BattingAverage != nil {
			avg := *row.BattingAverage
			if row.StatGroup == "hitting" && row.AtBats > 0 {
				expected := float64(row.Hits) / float64(row.AtBats)
				if math.Abs(expected-avg) > numericTolerance {
					result.Anomalies = append(result.Anomalies, validation.Anomaly{
						Type: validation.AnomalyIncorrectBattingAverage,
						Details: map[string]any{
							"player_id": row.PlayerID,
							"expected":  expected,
							"actual":    avg,
						},
					})
				}
			}
			if avg < battingAverageMin || avg > battingAverageMax {
				result.Anomalies = append(result.Anomalies, validation.Anomaly{
					Type:    validation.AnomalyInvalidBattingAverageRange,
					Details: map[string]any{"player_id": row.PlayerID, "batting_avg": avg},
				})
			}
		}
		if row.ERA != nil && (*row.ERA < eraMin || *row.ERA > eraMax) {
			result.Anomalies = append(result.Anomalies, validation.Anomaly{
				Type:    validation.AnomalyInvalidERARange,
				Details: map[string]any{"player_id": row.PlayerID, "era": *row.ERA},
			})
		}
		if row.WHIP != nil && (*row.WHIP < whipMin || *row.WHIP > whipMax) {
			result.Anomalies = append(result.Anomalies, validation.Anomaly{
				Type:    validation.AnomalyInvalidWHIPRange,
				Details: map[string]any{"player_id": row.PlayerID, "whip": *row.WHIP},
			})
		}
	}

	result.Passed = len(result.Anomalies) == 0
	return result, nil
}

// CheckDataFreshness classifies the age of each monitored table's latest
// write to today's partition. Stale dominates no_data in the aggregate.
func (s *ValidationService) CheckDataFreshness(ctx context.Context) (validation.FreshnessResult, error) {
	ctx, span := startUsecaseSpan(ctx, "ValidationService.CheckDataFreshness")
	defer span.End()

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	tables := make([]string, 0, len(freshnessThresholds))
	for table := range freshnessThresholds {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	result := validation.FreshnessResult{
		Tables:  make([]validation.TableFreshness, 0, len(tables)),
		Overall: validation.FreshnessFresh,
	}

	anyStale := false
	anyEmpty := false
	for _, table := range tables {
		latest, count, err := s.store.LatestExtraction(ctx, table, today)
		if err != nil {
			return validation.FreshnessResult{}, crerr.Wrapf(err, "query latest extraction table=%s", table)
		}

		entry := validation.TableFreshness{Table: table, RowCount: count}
		if count == 0 {
			entry.Status = validation.FreshnessNoData
			anyEmpty = true
		} else {
			age := now.Sub(latest)
			entry.AgeSeconds = age.Seconds()
			entry.LatestExtraction = latest
			if age > freshnessThresholds[table] {
				entry.Status = validation.FreshnessStale
				anyStale = true
			} else {
				entry.Status = validation.FreshnessFresh
			}
		}
		result.Tables = append(result.Tables, entry)
	}

	switch {
	case anyStale:
		result.Overall = validation.FreshnessStale
	case anyEmpty:
		result.Overall = validation.FreshnessNoData
	}
	return result, nil
}

// GenerateValidationReport runs every check for one date and folds the
// outcomes into a single report.
func (s *ValidationService) GenerateValidationReport(ctx context.Context, date time.Time) (validation.Report, error) {
	ctx, span := startUsecaseSpan(ctx, "ValidationService.GenerateValidationReport")
	defer span.End()

	games, err := s.ValidateGames(ctx, date)
	if err != nil {
		return validation.Report{}, err
	}
	standings, err := s.ValidateStandings(ctx, date)
	if err != nil {
		return validation.Report{}, err
	}
	playerStats, err := s.ValidatePlayerStats(ctx, date.Year())
	if err != nil {
		return validation.Report{}, err
	}
	freshness, err := s.CheckDataFreshness(ctx)
	if err != nil {
		return validation.Report{}, err
	}

	report := validation.Report{
		ValidationDate:    date,
		Games:             games,
		Standings:         standings,
		PlayerStats:       playerStats,
		Freshness:         freshness,
		OverallStatus:     validation.StatusPassed,
		FailedValidations: []string{},
	}

	if !games.Passed {
		report.FailedValidations = append(report.FailedValidations, "games")
	}
	if !standings.Passed {
		report.FailedValidations = append(report.FailedValidations, "standings")
	}
	if !playerStats.Passed {
		report.FailedValidations = append(report.FailedValidations, "player_stats")
	}
	if freshness.Overall != validation.FreshnessFresh {
		report.FailedValidations = append(report.FailedValidations, "data_freshness")
	}
	if len(report.FailedValidations) > 0 {
		report.OverallStatus = validation.StatusFailed
	}

	s.logger.InfoContext(ctx, "validation report generated",
		"date", date.Format("2006-01-02"),
		"overall_status", report.OverallStatus,
		"failed_validations", report.FailedValidations,
	)
	return report, nil
}

// AlertOnAnomalies derives the ordered alert list from one report. Pure and
// stateless: every run regenerates alerts from scratch, no dedup.
func (s *ValidationService) AlertOnAnomalies(report validation.Report) []validation.Alert {
	now := s.now()
	alerts := make([]validation.Alert, 0, 4)

	if report.OverallStatus == validation.StatusFailed {
		alerts = append(alerts, validation.Alert{
			Level:     validation.AlertError,
			Type:      validation.AlertTypeValidationFailure,
			Message:   fmt.Sprintf("Data validation failed for %s", report.ValidationDate.Format("2006-01-02")),
			Details:   map[string]any{"failed_validations": report.FailedValidations},
			Timestamp: now,
		})
	}

	if len(report.Games.MissingScores) > 0 {
		alerts = append(alerts, validation.Alert{
			Level:     validation.AlertWarning,
			Type:      validation.AlertTypeMissingScores,
			Message:   fmt.Sprintf("%d final games are missing scores", len(report.Games.MissingScores)),
			Details:   map[string]any{"games": report.Games.MissingScores},
			Timestamp: now,
		})
	}

	if report.Freshness.Overall == validation.FreshnessStale {
		stale := make([]string, 0, len(report.Freshness.Tables))
		for _, table := range report.Freshness.Tables {
			if table.Status == validation.FreshnessStale {
				stale = append(stale, table.Table)
			}
		}
		alerts = append(alerts, validation.Alert{
			Level:     validation.AlertWarning,
			Type:      validation.AlertTypeStaleData,
			Message:   "Warehouse data is stale",
			Details:   map[string]any{"stale_tables": stale},
			Timestamp: now,
		})
	}

	anomalies := make([]validation.Anomaly, 0,
		len(report.Games.Anomalies)+len(report.Standings.Anomalies)+len(report.PlayerStats.Anomalies))
	anomalies = append(anomalies, report.Games.Anomalies...)
	anomalies = append(anomalies, report.Standings.Anomalies...)
	anomalies = append(anomalies, report.PlayerStats.Anomalies...)
	if len(anomalies) > 0 {
		alerts = append(alerts, validation.Alert{
			Level:     validation.AlertError,
			Type:      validation.AlertTypeDataAnomalies,
			Message:   fmt.Sprintf("%d data anomalies detected", len(anomalies)),
			Details:   map[string]any{"anomalies": anomalies},
			Timestamp: now,
		})
	}

	return alerts
}
