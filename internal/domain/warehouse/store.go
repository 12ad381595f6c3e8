package warehouse

import (
	"context"
	"time"
)

// Writer is the batch-write surface the loader targets. InsertRows writes all
// rows inside one transaction; with WriteReplace it first clears the
// partition dates present in the batch. Append never deduplicates.
type Writer interface {
	InsertRows(ctx context.Context, table string, rows []Record, mode WriteMode) (int, error)
	DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) (int64, error)
}

// Reader is the read-only surface the validator queries. Implementations
// never mutate data.
type Reader interface {
	GamesByDate(ctx context.Context, date time.Time) ([]GameRow, error)
	StandingsByDate(ctx context.Context, date time.Time) ([]StandingRow, error)
	PlayerStatsBySeason(ctx context.Context, season int) ([]PlayerStatRow, error)
	LatestExtraction(ctx context.Context, table string, date time.Time) (time.Time, int64, error)
}

// Store combines the loader and validator surfaces over one warehouse.
type Store interface {
	Writer
	Reader
}
