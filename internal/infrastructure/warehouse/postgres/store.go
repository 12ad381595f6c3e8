// Package postgres implements the warehouse store over a date-partitioned
// postgres schema.
package postgres

import (
	"context"
	"database/sql/driver"
	"net"
	"sort"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
	qb "github.com/ballparklabs/diamondline/internal/platform/querybuilder"
)

// allowedTables guards the table identifiers interpolated into SQL. The
// loader validates tables too; the store does not trust its callers.
var allowedTables = map[string]struct{}{
	"games":        {},
	"game_events":  {},
	"teams":        {},
	"standings":    {},
	"players":      {},
	"player_stats": {},
}

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var _ warehouse.Store = (*Store)(nil)

// InsertRows writes a batch inside one transaction. Replace mode first clears
// every partition date present in the batch; append inserts blindly and never
// deduplicates.
func (s *Store) InsertRows(ctx context.Context, table string, rows []warehouse.Record, mode warehouse.WriteMode) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, classifyStoreError(crerr.Wrap(err, "begin tx"))
	}
	defer func() { _ = tx.Rollback() }()

	if mode == warehouse.WriteReplace {
		if err := clearPartitions(ctx, tx, table, rows); err != nil {
			return 0, err
		}
	}

	for idx, row := range rows {
		columns := make([]string, 0, len(row))
		for column := range row {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		values := make([]any, 0, len(columns))
		for _, column := range columns {
			values = append(values, row[column])
		}

		query, args, err := qb.InsertInto(table).
			Columns(columns...).
			Values(values...).
			ToSQL()
		if err != nil {
			return 0, crerr.Wrapf(err, "build insert row %d", idx)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, classifyStoreError(crerr.Wrapf(err, "insert row %d into %s", idx, table))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, classifyStoreError(crerr.Wrap(err, "commit tx"))
	}
	return len(rows), nil
}

func clearPartitions(ctx context.Context, tx *sqlx.Tx, table string, rows []warehouse.Record) error {
	seen := make(map[time.Time]struct{}, 2)
	partitions := make([]any, 0, 2)
	for _, row := range rows {
		partition, ok := row[warehouse.ColumnPartitionDate].(time.Time)
		if !ok {
			continue
		}
		partition = normalizePartition(partition)
		if _, dup := seen[partition]; dup {
			continue
		}
		seen[partition] = struct{}{}
		partitions = append(partitions, partition)
	}
	if len(partitions) == 0 {
		return nil
	}

	query, args, err := qb.DeleteFrom(table).
		Where(qb.In(warehouse.ColumnPartitionDate, partitions)).
		ToSQL()
	if err != nil {
		return crerr.Wrap(err, "build partition delete")
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return classifyStoreError(crerr.Wrapf(err, "clear partitions of %s", table))
	}
	return nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	query, args, err := qb.DeleteFrom(table).
		Where(qb.Lt(warehouse.ColumnPartitionDate, normalizePartition(cutoff))).
		ToSQL()
	if err != nil {
		return 0, crerr.Wrap(err, "build retention delete")
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyStoreError(crerr.Wrapf(err, "delete old rows from %s", table))
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, crerr.Wrap(err, "read rows affected")
	}
	return deleted, nil
}

func (s *Store) GamesByDate(ctx context.Context, date time.Time) ([]warehouse.GameRow, error) {
	query, args, err := qb.Select("game_id", "status", "abstract_state", "home_score", "away_score").
		From("games").
		Where(qb.Eq(warehouse.ColumnPartitionDate, normalizePartition(date))).
		OrderBy("game_id").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build games query")
	}

	var models []gameRowModel
	if err := s.db.SelectContext(ctx, &models, query, args...); err != nil {
		return nil, classifyStoreError(crerr.Wrap(err, "query games"))
	}

	rows := make([]warehouse.GameRow, 0, len(models))
	for _, model := range models {
		rows = append(rows, model.toDomain())
	}
	return rows, nil
}

func (s *Store) StandingsByDate(ctx context.Context, date time.Time) ([]warehouse.StandingRow, error) {
	query, args, err := qb.Select(
		"team_id", "team_name", "wins", "losses", "win_percentage",
		"runs_scored", "runs_allowed", "run_differential",
	).
		From("standings").
		Where(qb.Eq(warehouse.ColumnPartitionDate, normalizePartition(date))).
		OrderBy("team_id").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build standings query")
	}

	var models []standingRowModel
	if err := s.db.SelectContext(ctx, &models, query, args...); err != nil {
		return nil, classifyStoreError(crerr.Wrap(err, "query standings"))
	}

	rows := make([]warehouse.StandingRow, 0, len(models))
	for _, model := range models {
		rows = append(rows, model.toDomain())
	}
	return rows, nil
}

func (s *Store) PlayerStatsBySeason(ctx context.Context, season int) ([]warehouse.PlayerStatRow, error) {
	query, args, err := qb.Select(
		"player_id", "season", "stat_group", "at_bats", "hits",
		"batting_avg", "era", "whip",
	).
		From("player_stats").
		Where(qb.Eq("season", season)).
		OrderBy("player_id", "stat_group").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build player stats query")
	}

	var models []playerStatRowModel
	if err := s.db.SelectContext(ctx, &models, query, args...); err != nil {
		return nil, classifyStoreError(crerr.Wrap(err, "query player stats"))
	}

	rows := make([]warehouse.PlayerStatRow, 0, len(models))
	for _, model := range models {
		rows = append(rows, model.toDomain())
	}
	return rows, nil
}

func (s *Store) LatestExtraction(ctx context.Context, table string, date time.Time) (time.Time, int64, error) {
	if err := checkTable(table); err != nil {
		return time.Time{}, 0, err
	}

	query, args, err := qb.Select("MAX(extraction_timestamp) AS latest", "COUNT(*) AS row_count").
		From(table).
		Where(qb.Eq(warehouse.ColumnPartitionDate, normalizePartition(date))).
		ToSQL()
	if err != nil {
		return time.Time{}, 0, crerr.Wrap(err, "build latest extraction query")
	}

	var model latestExtractionModel
	if err := s.db.GetContext(ctx, &model, query, args...); err != nil {
		return time.Time{}, 0, classifyStoreError(crerr.Wrapf(err, "query latest extraction of %s", table))
	}
	return model.Latest.Time, model.RowCount, nil
}

func checkTable(table string) error {
	if _, ok := allowedTables[table]; !ok {
		return crerr.Newf("table %q is not managed by the warehouse", table)
	}
	return nil
}

// classifyStoreError marks infrastructure failures as transient so the
// loader's retry only fires for them, never for data errors.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if crerr.Is(err, driver.ErrBadConn) || crerr.Is(err, context.DeadlineExceeded) {
		return warehouse.MarkTransient(err)
	}
	var netErr net.Error
	if crerr.As(err, &netErr) && netErr.Timeout() {
		return warehouse.MarkTransient(err)
	}
	var pqErr *pq.Error
	if crerr.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		// connection exceptions, transaction rollbacks, insufficient
		// resources, operator intervention
		case "08", "40", "53", "57":
			return warehouse.MarkTransient(err)
		}
	}
	return err
}
