package validation

import "time"

// Anomaly is one structural or statistical invariant violation discovered
// during post-load validation. Details carries the offending values.
type Anomaly struct {
	Type    string         `json:"type"`
	Details map[string]any `json:"details,omitempty"`
}

// Anomaly types emitted by the games check.
const (
	AnomalyMissingScores       = "missing_scores"
	AnomalyNegativeHomeScore   = "negative_home_score"
	AnomalyNegativeAwayScore   = "negative_away_score"
	AnomalyImpossibleGameState = "impossible_game_state"
)

// Anomaly types emitted by the standings check.
const (
	AnomalyIncorrectWinPercentage   = "incorrect_win_percentage"
	AnomalyIncorrectRunDifferential = "incorrect_run_differential"
	AnomalyNegativeWins             = "negative_wins"
	AnomalyNegativeLosses           = "negative_losses"
)

// Anomaly types emitted by the player-stats check.
const (
	AnomalyIncorrectBattingAverage    = "incorrect_batting_average"
	AnomalyInvalidBattingAverageRange = "invalid_batting_average_range"
	AnomalyInvalidERARange            = "invalid_era_range"
	AnomalyInvalidWHIPRange           = "invalid_whip_range"
)

// GamesResult is the games-domain validation outcome for one date.
type GamesResult struct {
	Date          time.Time `json:"validation_date"`
	TotalGames    int       `json:"total_games"`
	FinalGames    int       `json:"final_games"`
	MissingScores []Anomaly `json:"missing_scores"`
	Anomalies     []Anomaly `json:"anomalies"`
	Passed        bool      `json:"validation_passed"`
}

// StandingsResult is the standings-domain validation outcome for one date.
type StandingsResult struct {
	Date      time.Time `json:"validation_date"`
	TotalRows int       `json:"total_rows"`
	Anomalies []Anomaly `json:"anomalies"`
	Passed    bool      `json:"validation_passed"`
}

// PlayerStatsResult is the player-stats validation outcome for one season.
type PlayerStatsResult struct {
	Season    int       `json:"season"`
	TotalRows int       `json:"total_rows"`
	Anomalies []Anomaly `json:"anomalies"`
	Passed    bool      `json:"validation_passed"`
}

// FreshnessStatus classifies the age of a table's latest write to today's
// partition.
type FreshnessStatus string

const (
	FreshnessFresh  FreshnessStatus = "fresh"
	FreshnessStale  FreshnessStatus = "stale"
	FreshnessNoData FreshnessStatus = "no_data"
)

// TableFreshness is one monitored table's freshness classification.
type TableFreshness struct {
	Table            string          `json:"table"`
	Status           FreshnessStatus `json:"status"`
	AgeSeconds       float64         `json:"age_seconds"`
	LatestExtraction time.Time       `json:"latest_extraction"`
	RowCount         int64           `json:"row_count"`
}

// FreshnessResult aggregates per-table freshness. Overall is stale if any
// table is stale, else no_data if any table has none, else fresh.
type FreshnessResult struct {
	Tables  []TableFreshness `json:"tables"`
	Overall FreshnessStatus  `json:"overall"`
}

// Report statuses.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// Report folds every validation domain into one result for a date. Built
// fresh on each invocation and never persisted by the pipeline.
type Report struct {
	ValidationDate    time.Time         `json:"validation_date"`
	Games             GamesResult       `json:"games"`
	Standings         StandingsResult   `json:"standings"`
	PlayerStats       PlayerStatsResult `json:"player_stats"`
	Freshness         FreshnessResult   `json:"data_freshness"`
	OverallStatus     string            `json:"overall_status"`
	FailedValidations []string          `json:"failed_validations"`
}

// Alert levels.
const (
	AlertWarning = "warning"
	AlertError   = "error"
)

// Alert types.
const (
	AlertTypeValidationFailure = "validation_failure"
	AlertTypeMissingScores     = "missing_scores"
	AlertTypeStaleData         = "stale_data"
	AlertTypeDataAnomalies     = "data_anomalies"
)

// Alert is derived purely from a Report; no deduplication across runs.
type Alert struct {
	Level     string         `json:"level"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
