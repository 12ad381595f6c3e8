package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"

	"github.com/ballparklabs/diamondline/external/statsapi"
	"github.com/ballparklabs/diamondline/internal/domain/extraction"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
)

const (
	defaultExtractionWorkers = 5
	maxExtractionWorkers     = 10

	stateInProgress = "In Progress"
)

// StatsProvider is the upstream surface the orchestrator composes. Every call
// carries the provider's own retry and classification policy.
type StatsProvider interface {
	FetchDailySchedule(ctx context.Context, date time.Time) (map[string]any, error)
	FetchGameDetail(ctx context.Context, gameID int64) (map[string]any, error)
	FetchLiveFeedDiff(ctx context.Context, gameID int64) (map[string]any, error)
	FetchStandings(ctx context.Context, season int) (map[string]any, error)
	FetchTeamStats(ctx context.Context, teamID int64, season int) (map[string]any, error)
	FetchPlayerStats(ctx context.Context, personID int64, season int, group string) (map[string]any, error)
}

// ExtractionService fans one daily request out into the extraction graph:
// schedule and standings first, then bounded-concurrency per-game detail.
type ExtractionService struct {
	provider    StatsProvider
	logger      *logging.Logger
	workerCount int
}

func NewExtractionService(provider StatsProvider, logger *logging.Logger, workerCount int) *ExtractionService {
	if logger == nil {
		logger = logging.Default()
	}
	if workerCount <= 0 {
		workerCount = defaultExtractionWorkers
	}
	if workerCount > maxExtractionWorkers {
		workerCount = maxExtractionWorkers
	}
	return &ExtractionService{provider: provider, logger: logger, workerCount: workerCount}
}

// ExtractDailyData builds the bundle for one date. Schedule and standings are
// load-bearing: either failing aborts the run. A single game's detail failure
// only removes that game from the bundle.
func (s *ExtractionService) ExtractDailyData(ctx context.Context, date time.Time) (extraction.Bundle, error) {
	ctx, span := startUsecaseSpan(ctx, "ExtractionService.ExtractDailyData")
	defer span.End()

	if date.IsZero() {
		return extraction.Bundle{}, crerr.Wrap(ErrInvalidInput, "extraction date is required")
	}

	var (
		schedule     map[string]any
		standings    map[string]any
		scheduleErr  error
		standingsErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		schedule, scheduleErr = s.provider.FetchDailySchedule(ctx, date)
	})
	wg.Go(func() {
		standings, standingsErr = s.provider.FetchStandings(ctx, date.Year())
	})
	wg.Wait()

	if scheduleErr != nil {
		return extraction.Bundle{}, crerr.Wrapf(scheduleErr, "fetch schedule date=%s", date.Format("2006-01-02"))
	}
	if standingsErr != nil {
		return extraction.Bundle{}, crerr.Wrapf(standingsErr, "fetch standings season=%d", date.Year())
	}

	gameIDs := statsapi.ScheduleGameIDs(schedule)
	games, failed := s.fetchGameDetails(ctx, gameIDs)

	bundle := extraction.Bundle{
		ExtractionDate:      date,
		Schedule:            schedule,
		Standings:           standings,
		Games:               games,
		TotalGames:          len(games),
		ScheduledGames:      len(gameIDs),
		ExtractionTimestamp: time.Now().UTC(),
	}

	s.logger.InfoContext(ctx, "daily extraction completed",
		"date", date.Format("2006-01-02"),
		"scheduled_games", len(gameIDs),
		"fetched_games", len(games),
		"failed_games", failed,
	)
	return bundle, nil
}

// fetchGameDetails fans detail fetches out on a bounded worker pool. Failures
// are logged and the game omitted; the loop never aborts.
func (s *ExtractionService) fetchGameDetails(ctx context.Context, gameIDs []int64) ([]extraction.GameRecord, int) {
	if len(gameIDs) == 0 {
		return nil, 0
	}

	pool, err := ants.NewPool(s.workerCount)
	if err != nil {
		s.logger.WarnContext(ctx, "worker pool init failed, falling back to sequential fetch", "error", err)
		return s.fetchGameDetailsSequential(ctx, gameIDs)
	}
	defer pool.Release()

	results := make(chan extraction.GameRecord, len(gameIDs))
	var failed atomic.Int32
	var wg sync.WaitGroup

	for _, id := range gameIDs {
		gameID := id
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			record, ok := s.fetchGame(ctx, gameID)
			if !ok {
				failed.Add(1)
				return
			}
			results <- record
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			s.logger.WarnContext(ctx, "submit game fetch task failed", "game_id", gameID, "error", submitErr)
		}
	}

	wg.Wait()
	close(results)

	games := make([]extraction.GameRecord, 0, len(gameIDs))
	for record := range results {
		games = append(games, record)
	}
	sort.SliceStable(games, func(i, j int) bool { return games[i].GameID < games[j].GameID })
	return games, int(failed.Load())
}

func (s *ExtractionService) fetchGameDetailsSequential(ctx context.Context, gameIDs []int64) ([]extraction.GameRecord, int) {
	games := make([]extraction.GameRecord, 0, len(gameIDs))
	failed := 0
	for _, gameID := range gameIDs {
		record, ok := s.fetchGame(ctx, gameID)
		if !ok {
			failed++
			continue
		}
		games = append(games, record)
	}
	return games, failed
}

// fetchGame pulls one game's detail and, for in-progress games, attaches the
// live feed. A live-feed failure never discards the already-fetched detail.
func (s *ExtractionService) fetchGame(ctx context.Context, gameID int64) (extraction.GameRecord, bool) {
	detail, err := s.provider.FetchGameDetail(ctx, gameID)
	if err != nil {
		s.logger.WarnContext(ctx, "game detail fetch failed, omitting game", "game_id", gameID, "error", err)
		return extraction.GameRecord{}, false
	}

	record := extraction.GameRecord{GameID: gameID, Payload: detail}
	if statsapi.GameDetailedState(detail) == stateInProgress {
		live, liveErr := s.provider.FetchLiveFeedDiff(ctx, gameID)
		if liveErr != nil {
			s.logger.WarnContext(ctx, "live feed fetch failed, keeping game detail", "game_id", gameID, "error", liveErr)
		} else {
			record.LiveFeed = live
		}
	}
	return record, true
}

// ExtractLiveGame fetches one game's detail plus live feed, for live-only
// trigger invocations.
func (s *ExtractionService) ExtractLiveGame(ctx context.Context, gameID int64) (extraction.GameRecord, error) {
	ctx, span := startUsecaseSpan(ctx, "ExtractionService.ExtractLiveGame")
	defer span.End()

	if gameID <= 0 {
		return extraction.GameRecord{}, crerr.Wrap(ErrInvalidInput, "game id must be greater than zero")
	}

	detail, err := s.provider.FetchGameDetail(ctx, gameID)
	if err != nil {
		return extraction.GameRecord{}, crerr.Wrapf(err, "fetch live game game_id=%d", gameID)
	}

	record := extraction.GameRecord{GameID: gameID, Payload: detail}
	live, liveErr := s.provider.FetchLiveFeedDiff(ctx, gameID)
	if liveErr != nil {
		s.logger.WarnContext(ctx, "live feed fetch failed, keeping game detail", "game_id", gameID, "error", liveErr)
	} else {
		record.LiveFeed = live
	}
	return record, nil
}
