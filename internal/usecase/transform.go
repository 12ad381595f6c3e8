package usecase

import (
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/ballparklabs/diamondline/external/statsapi"
	"github.com/ballparklabs/diamondline/internal/domain/extraction"
	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
)

// ErrNotTransformable marks payloads that cannot become a warehouse record.
// The wrapped reason feeds the loader's rejection accounting.
var ErrNotTransformable = crerr.New("payload not transformable")

func notTransformable(reason string) error {
	return crerr.Wrap(ErrNotTransformable, reason)
}

// transformGameDetail shapes one game-detail payload into a games-table row.
func transformGameDetail(record extraction.GameRecord, partition time.Time) (warehouse.Record, error) {
	gameData := statsapi.Dig(record.Payload, "gameData")
	if gameData == nil {
		return nil, notTransformable("missing gameData")
	}

	gameID := statsapi.GetInt64(statsapi.Dig(gameData, "game"), "pk")
	if gameID <= 0 {
		gameID = record.GameID
	}
	if gameID <= 0 {
		return nil, notTransformable("missing game pk")
	}

	status := statsapi.Dig(gameData, "status")
	home := statsapi.Dig(gameData, "teams", "home")
	away := statsapi.Dig(gameData, "teams", "away")
	officialDate := statsapi.GetString(statsapi.Dig(gameData, "datetime"), "officialDate")

	row := warehouse.Record{
		"game_id":                     gameID,
		"game_date":                   firstNonEmptyString(officialDate, partition.Format("2006-01-02")),
		"status":                      statsapi.GetString(status, "detailedState"),
		"abstract_state":              statsapi.GetString(status, "abstractGameState"),
		"home_team_id":                statsapi.GetInt64(home, "id"),
		"home_team_name":              statsapi.GetString(home, "name"),
		"away_team_id":                statsapi.GetInt64(away, "id"),
		"away_team_name":              statsapi.GetString(away, "name"),
		"venue_name":                  statsapi.GetString(statsapi.Dig(gameData, "venue"), "name"),
		warehouse.ColumnPartitionDate: partitionValue(officialDate, partition),
	}

	linescore := statsapi.Dig(record.Payload, "liveData", "linescore", "teams")
	if homeScore := statsapi.Dig(linescore, "home"); statsapi.HasKey(homeScore, "runs") {
		row["home_score"] = statsapi.GetInt64(homeScore, "runs")
	}
	if awayScore := statsapi.Dig(linescore, "away"); statsapi.HasKey(awayScore, "runs") {
		row["away_score"] = statsapi.GetInt64(awayScore, "runs")
	}

	return row, nil
}

// transformScheduleEntry shapes one schedule game entry into a games-table
// row. Schedule rows carry less detail than full game payloads but keep the
// games table complete when a detail fetch failed.
func transformScheduleEntry(entry map[string]any, partition time.Time) (warehouse.Record, error) {
	gameID := statsapi.GetInt64(entry, "gamePk")
	if gameID <= 0 {
		return nil, notTransformable("schedule entry missing gamePk")
	}

	status := statsapi.Dig(entry, "status")
	home := statsapi.Dig(entry, "teams", "home")
	away := statsapi.Dig(entry, "teams", "away")
	officialDate := statsapi.GetString(entry, "officialDate")

	row := warehouse.Record{
		"game_id":                     gameID,
		"game_date":                   firstNonEmptyString(officialDate, partition.Format("2006-01-02")),
		"status":                      statsapi.GetString(status, "detailedState"),
		"abstract_state":              statsapi.GetString(status, "abstractGameState"),
		"home_team_id":                statsapi.GetInt64(statsapi.Dig(home, "team"), "id"),
		"home_team_name":              statsapi.GetString(statsapi.Dig(home, "team"), "name"),
		"away_team_id":                statsapi.GetInt64(statsapi.Dig(away, "team"), "id"),
		"away_team_name":              statsapi.GetString(statsapi.Dig(away, "team"), "name"),
		"venue_name":                  statsapi.GetString(statsapi.Dig(entry, "venue"), "name"),
		warehouse.ColumnPartitionDate: partitionValue(officialDate, partition),
	}

	if statsapi.HasKey(home, "score") {
		row["home_score"] = statsapi.GetInt64(home, "score")
	}
	if statsapi.HasKey(away, "score") {
		row["away_score"] = statsapi.GetInt64(away, "score")
	}

	return row, nil
}

// transformStandings flattens a standings payload's nested records into one
// row per team-division pairing. Entries without a team id are reported as
// rejections, not silently dropped.
func transformStandings(standings map[string]any, partition time.Time) ([]warehouse.Record, []string) {
	rows := make([]warehouse.Record, 0, 30)
	var rejections []string

	for _, rawRecord := range statsapi.AsSlice(standings["records"]) {
		divisionRecord := statsapi.AsMap(rawRecord)
		if divisionRecord == nil {
			rejections = append(rejections, "standings record is not an object")
			continue
		}
		divisionID := statsapi.GetInt64(statsapi.Dig(divisionRecord, "division"), "id")
		leagueID := statsapi.GetInt64(statsapi.Dig(divisionRecord, "league"), "id")

		for _, rawTeam := range statsapi.AsSlice(divisionRecord["teamRecords"]) {
			teamRecord := statsapi.AsMap(rawTeam)
			if teamRecord == nil {
				rejections = append(rejections, "team record is not an object")
				continue
			}
			team := statsapi.Dig(teamRecord, "team")
			teamID := statsapi.GetInt64(team, "id")
			if teamID <= 0 {
				rejections = append(rejections, "team record missing team id")
				continue
			}

			row := warehouse.Record{
				"team_id":                     teamID,
				"team_name":                   statsapi.GetString(team, "name"),
				"division_id":                 divisionID,
				"league_id":                   leagueID,
				"wins":                        statsapi.GetInt64(teamRecord, "wins"),
				"losses":                      statsapi.GetInt64(teamRecord, "losses"),
				"runs_scored":                 statsapi.GetInt64(teamRecord, "runsScored"),
				"runs_allowed":                statsapi.GetInt64(teamRecord, "runsAllowed"),
				"run_differential":            statsapi.GetInt64(teamRecord, "runDifferential"),
				"division_rank":               statsapi.GetString(teamRecord, "divisionRank"),
				"games_back":                  statsapi.GetString(teamRecord, "gamesBack"),
				warehouse.ColumnPartitionDate: partition,
			}
			if pct, ok := statsapi.GetFloat64(teamRecord, "winningPercentage"); ok {
				row["win_percentage"] = pct
			} else if pct, ok := statsapi.GetFloat64(statsapi.Dig(teamRecord, "leagueRecord"), "pct"); ok {
				row["win_percentage"] = pct
			}

			rows = append(rows, row)
		}
	}

	return rows, rejections
}

// transformPlayerStats flattens a people-stats payload into one row per stat
// group split.
func transformPlayerStats(payload map[string]any, season int, partition time.Time) ([]warehouse.Record, []string) {
	rows := make([]warehouse.Record, 0, 4)
	var rejections []string

	people := statsapi.AsSlice(payload["people"])
	if len(people) == 0 {
		return nil, []string{"payload missing people"}
	}

	for _, rawPerson := range people {
		person := statsapi.AsMap(rawPerson)
		if person == nil {
			rejections = append(rejections, "person entry is not an object")
			continue
		}
		playerID := statsapi.GetInt64(person, "id")
		if playerID <= 0 {
			rejections = append(rejections, "person entry missing id")
			continue
		}

		for _, rawStat := range statsapi.AsSlice(person["stats"]) {
			statGroup := statsapi.AsMap(rawStat)
			if statGroup == nil {
				continue
			}
			groupName := statsapi.GetString(statsapi.Dig(statGroup, "group"), "displayName")

			for _, rawSplit := range statsapi.AsSlice(statGroup["splits"]) {
				split := statsapi.AsMap(rawSplit)
				if split == nil {
					continue
				}
				stat := statsapi.Dig(split, "stat")
				if stat == nil {
					rejections = append(rejections, "split missing stat object")
					continue
				}

				row := warehouse.Record{
					"player_id":                   playerID,
					"player_name":                 statsapi.GetString(person, "fullName"),
					"season":                      seasonOrDefault(split, season),
					"stat_group":                  groupName,
					"at_bats":                     statsapi.GetInt64(stat, "atBats"),
					"hits":                        statsapi.GetInt64(stat, "hits"),
					warehouse.ColumnPartitionDate: partition,
				}
				if avg, ok := statsapi.GetFloat64(stat, "avg"); ok {
					row["batting_avg"] = avg
				}
				if era, ok := statsapi.GetFloat64(stat, "era"); ok {
					row["era"] = era
				}
				if whip, ok := statsapi.GetFloat64(stat, "whip"); ok {
					row["whip"] = whip
				}

				rows = append(rows, row)
			}
		}
	}

	return rows, rejections
}

func seasonOrDefault(split map[string]any, fallback int) int {
	if season := statsapi.GetInt(split, "season"); season > 0 {
		return season
	}
	return fallback
}

func partitionValue(officialDate string, fallback time.Time) time.Time {
	if officialDate != "" {
		if parsed, err := time.Parse("2006-01-02", officialDate); err == nil {
			return parsed
		}
	}
	return time.Date(fallback.Year(), fallback.Month(), fallback.Day(), 0, 0, 0, 0, time.UTC)
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
