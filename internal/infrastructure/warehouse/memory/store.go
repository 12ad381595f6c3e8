// Package memory provides an in-process warehouse store for tests and local
// development without postgres.
package memory

import (
	"context"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string][]warehouse.Record
}

func NewStore() *Store {
	return &Store{tables: make(map[string][]warehouse.Record)}
}

var _ warehouse.Store = (*Store)(nil)

func (s *Store) InsertRows(_ context.Context, table string, rows []warehouse.Record, mode warehouse.WriteMode) (int, error) {
	if table == "" {
		return 0, crerr.New("table name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == warehouse.WriteReplace {
		partitions := make(map[time.Time]struct{}, 2)
		for _, row := range rows {
			if partition, ok := rowPartition(row); ok {
				partitions[partition] = struct{}{}
			}
		}
		kept := s.tables[table][:0]
		for _, existing := range s.tables[table] {
			partition, ok := rowPartition(existing)
			if !ok {
				kept = append(kept, existing)
				continue
			}
			if _, drop := partitions[partition]; !drop {
				kept = append(kept, existing)
			}
		}
		s.tables[table] = kept
	}

	for _, row := range rows {
		clone := make(warehouse.Record, len(row))
		for key, value := range row {
			clone[key] = value
		}
		s.tables[table] = append(s.tables[table], clone)
	}
	return len(rows), nil
}

func (s *Store) DeleteOlderThan(_ context.Context, table string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tables[table][:0]
	var deleted int64
	for _, row := range s.tables[table] {
		partition, ok := rowPartition(row)
		if ok && partition.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return deleted, nil
}

func (s *Store) GamesByDate(_ context.Context, date time.Time) ([]warehouse.GameRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]warehouse.GameRow, 0, 16)
	for _, row := range s.tables["games"] {
		if !samePartition(row, date) {
			continue
		}
		game := warehouse.GameRow{
			GameID:        asInt64(row["game_id"]),
			Status:        asString(row["status"]),
			AbstractState: asString(row["abstract_state"]),
		}
		if value, ok := row["home_score"]; ok && value != nil {
			score := asInt64(value)
			game.HomeScore = &score
		}
		if value, ok := row["away_score"]; ok && value != nil {
			score := asInt64(value)
			game.AwayScore = &score
		}
		out = append(out, game)
	}
	return out, nil
}

func (s *Store) StandingsByDate(_ context.Context, date time.Time) ([]warehouse.StandingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]warehouse.StandingRow, 0, 30)
	for _, row := range s.tables["standings"] {
		if !samePartition(row, date) {
			continue
		}
		out = append(out, warehouse.StandingRow{
			TeamID:          asInt64(row["team_id"]),
			TeamName:        asString(row["team_name"]),
			Wins:            asInt64(row["wins"]),
			Losses:          asInt64(row["losses"]),
			WinPercentage:   asFloat64(row["win_percentage"]),
			RunsScored:      asInt64(row["runs_scored"]),
			RunsAllowed:     asInt64(row["runs_allowed"]),
			RunDifferential: asInt64(row["run_differential"]),
		})
	}
	return out, nil
}

func (s *Store) PlayerStatsBySeason(_ context.Context, season int) ([]warehouse.PlayerStatRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]warehouse.PlayerStatRow, 0, 32)
	for _, row := range s.tables["player_stats"] {
		if int(asInt64(row["season"])) != season {
			continue
		}
		stat := warehouse.PlayerStatRow{
			PlayerID:  asInt64(row["player_id"]),
			Season:    season,
			StatGroup: asString(row["stat_group"]),
			AtBats:    asInt64(row["at_bats"]),
			Hits:      asInt64(row["hits"]),
		}
		if value, ok := row["batting_avg"]; ok && value != nil {
			avg := asFloat64(value)
			stat.BattingAverage = &avg
		}
		if value, ok := row["era"]; ok && value != nil {
			era := asFloat64(value)
			stat.ERA = &era
		}
		if value, ok := row["whip"]; ok && value != nil {
			whip := asFloat64(value)
			stat.WHIP = &whip
		}
		out = append(out, stat)
	}
	return out, nil
}

func (s *Store) LatestExtraction(_ context.Context, table string, date time.Time) (time.Time, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	var count int64
	for _, row := range s.tables[table] {
		if !samePartition(row, date) {
			continue
		}
		count++
		if ts, ok := row[warehouse.ColumnExtractionTimestamp].(time.Time); ok && ts.After(latest) {
			latest = ts
		}
	}
	return latest, count, nil
}

// RowCount reports how many rows a table holds across all partitions.
func (s *Store) RowCount(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

func rowPartition(row warehouse.Record) (time.Time, bool) {
	partition, ok := row[warehouse.ColumnPartitionDate].(time.Time)
	if !ok {
		return time.Time{}, false
	}
	return truncateToDay(partition), true
}

func samePartition(row warehouse.Record, date time.Time) bool {
	partition, ok := rowPartition(row)
	return ok && partition.Equal(truncateToDay(date))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func asInt64(value any) int64 {
	switch typed := value.(type) {
	case int64:
		return typed
	case int:
		return int64(typed)
	case int32:
		return int64(typed)
	case float64:
		return int64(typed)
	default:
		return 0
	}
}

func asFloat64(value any) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int64:
		return float64(typed)
	case int:
		return float64(typed)
	default:
		return 0
	}
}

func asString(value any) string {
	typed, _ := value.(string)
	return typed
}
