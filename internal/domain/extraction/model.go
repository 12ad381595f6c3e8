package extraction

import "time"

// Request identifies a single pipeline invocation target. Either Date is set
// (daily extraction) or GameID is set (live-feed-only extraction).
type Request struct {
	Date   time.Time
	GameID int64
	Season int
}

// GameRecord is one successfully fetched game detail. LiveFeed is populated
// only when the game was in progress at extraction time and the secondary
// live-feed fetch succeeded.
type GameRecord struct {
	GameID   int64
	Payload  map[string]any
	LiveFeed map[string]any
}

// Bundle aggregates one day's extraction across schedule, standings, and
// per-game detail. TotalGames counts successfully fetched details, never the
// scheduled count. A scheduled game whose detail fetch failed is simply
// absent from Games.
type Bundle struct {
	ExtractionDate      time.Time
	Schedule            map[string]any
	Standings           map[string]any
	Games               []GameRecord
	TotalGames          int
	ScheduledGames      int
	ExtractionTimestamp time.Time
}

// Day statuses reported inside a backfill range.
const (
	DayStatusSuccess = "success"
	DayStatusFailed  = "failed"
)

// DayResult reports one day's outcome inside a backfill range. A failed day
// never aborts the remaining days.
type DayResult struct {
	Date       time.Time
	Status     string
	TotalGames int
	Error      string
}
