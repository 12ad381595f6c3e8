package warehouse

import "time"

// Record is a single row destined for a named table, mapping column name to
// a scalar value. Records are produced by the transformers and mutated by the
// loader only to inject a missing extraction timestamp.
type Record map[string]any

// Column names the loader manages on every record.
const (
	ColumnExtractionTimestamp = "extraction_timestamp"
	ColumnPartitionDate       = "partition_date"
)

// WriteMode controls whether a batch write appends to the target partition or
// replaces it.
type WriteMode string

const (
	WriteAppend  WriteMode = "append"
	WriteReplace WriteMode = "replace"
)

// LoadStatus is the outcome of one table load call.
type LoadStatus string

const (
	LoadSuccess LoadStatus = "success"
	LoadSkipped LoadStatus = "skipped"
	LoadFailed  LoadStatus = "failed"
)

// LoadResult reports one table's load outcome. RejectionReasons carries at
// most the first ten reasons; RowsRejected carries the full count.
type LoadResult struct {
	Table            string
	Status           LoadStatus
	RowsLoaded       int
	RowsRejected     int
	Reason           string
	RejectionReasons []string
	Timestamp        time.Time
}

// GameRow is the validator's read model for the games table.
type GameRow struct {
	GameID        int64
	Status        string
	AbstractState string
	HomeScore     *int64
	AwayScore     *int64
}

// StandingRow is the validator's read model for the standings table.
type StandingRow struct {
	TeamID          int64
	TeamName        string
	Wins            int64
	Losses          int64
	WinPercentage   float64
	RunsScored      int64
	RunsAllowed     int64
	RunDifferential int64
}

// PlayerStatRow is the validator's read model for the player_stats table.
// Rate stats are pointers because pitching rows carry no batting average and
// hitting rows carry no ERA or WHIP.
type PlayerStatRow struct {
	PlayerID       int64
	Season         int
	StatGroup      string
	AtBats         int64
	Hits           int64
	BattingAverage *float64
	ERA            *float64
	WHIP           *float64
}
