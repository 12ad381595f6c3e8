package postgres

import (
	"database/sql"
	"time"

	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
)

type gameRowModel struct {
	GameID        int64          `db:"game_id"`
	Status        sql.NullString `db:"status"`
	AbstractState sql.NullString `db:"abstract_state"`
	HomeScore     sql.NullInt64  `db:"home_score"`
	AwayScore     sql.NullInt64  `db:"away_score"`
}

func (m gameRowModel) toDomain() warehouse.GameRow {
	row := warehouse.GameRow{
		GameID:        m.GameID,
		Status:        m.Status.String,
		AbstractState: m.AbstractState.String,
	}
	if m.HomeScore.Valid {
		score := m.HomeScore.Int64
		row.HomeScore = &score
	}
	if m.AwayScore.Valid {
		score := m.AwayScore.Int64
		row.AwayScore = &score
	}
	return row
}

type standingRowModel struct {
	TeamID          int64           `db:"team_id"`
	TeamName        sql.NullString  `db:"team_name"`
	Wins            int64           `db:"wins"`
	Losses          int64           `db:"losses"`
	WinPercentage   sql.NullFloat64 `db:"win_percentage"`
	RunsScored      int64           `db:"runs_scored"`
	RunsAllowed     int64           `db:"runs_allowed"`
	RunDifferential int64           `db:"run_differential"`
}

func (m standingRowModel) toDomain() warehouse.StandingRow {
	return warehouse.StandingRow{
		TeamID:          m.TeamID,
		TeamName:        m.TeamName.String,
		Wins:            m.Wins,
		Losses:          m.Losses,
		WinPercentage:   m.WinPercentage.Float64,
		RunsScored:      m.RunsScored,
		RunsAllowed:     m.RunsAllowed,
		RunDifferential: m.RunDifferential,
	}
}

type playerStatRowModel struct {
	PlayerID       int64           `db:"player_id"`
	Season         int             `db:"season"`
	StatGroup      sql.NullString  `db:"stat_group"`
	AtBats         int64           `db:"at_bats"`
	Hits           int64           `db:"hits"`
	BattingAverage sql.NullFloat64 `db:"batting_avg"`
	ERA            sql.NullFloat64 `db:"era"`
	WHIP           sql.NullFloat64 `db:"whip"`
}

func (m playerStatRowModel) toDomain() warehouse.PlayerStatRow {
	row := warehouse.PlayerStatRow{
		PlayerID:  m.PlayerID,
		Season:    m.Season,
		StatGroup: m.StatGroup.String,
		AtBats:    m.AtBats,
		Hits:      m.Hits,
	}
	if m.BattingAverage.Valid {
		avg := m.BattingAverage.Float64
		row.BattingAverage = &avg
	}
	if m.ERA.Valid {
		era := m.ERA.Float64
		row.ERA = &era
	}
	if m.WHIP.Valid {
		whip := m.WHIP.Float64
		row.WHIP = &whip
	}
	return row
}

type latestExtractionModel struct {
	Latest   sql.NullTime `db:"latest"`
	RowCount int64        `db:"row_count"`
}

func normalizePartition(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}
