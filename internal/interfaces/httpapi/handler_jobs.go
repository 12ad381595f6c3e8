package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/ballparklabs/diamondline/internal/domain/extraction"
	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
	"github.com/ballparklabs/diamondline/internal/usecase"
)

const dateLayout = "2006-01-02"

type runDailyJobRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type extractLiveJobRequest struct {
	GameID int64 `json:"game_id" validate:"required,gt=0"`
}

type backfillJobRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type validateJobRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type cleanupJobRequest struct {
	Table         string `json:"table" validate:"required"`
	RetentionDays int    `json:"retention_days" validate:"omitempty,gte=1"`
}

type loadResultDTO struct {
	Table            string    `json:"table"`
	Status           string    `json:"status"`
	RowsLoaded       int       `json:"rows_loaded"`
	RowsRejected     int       `json:"rows_rejected"`
	Reason           string    `json:"reason,omitempty"`
	RejectionReasons []string  `json:"rejection_reasons,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

type loadSummaryDTO struct {
	Date    string                   `json:"date"`
	Status  string                   `json:"status"`
	Results map[string]loadResultDTO `json:"results"`
}

type runSummaryDTO struct {
	Date           string         `json:"date"`
	ScheduledGames int            `json:"scheduled_games"`
	FetchedGames   int            `json:"fetched_games"`
	Load           loadSummaryDTO `json:"load"`
}

type dayResultDTO struct {
	Date       string `json:"date"`
	Status     string `json:"status"`
	TotalGames int    `json:"total_games"`
	Error      string `json:"error,omitempty"`
}

type cleanupResultDTO struct {
	Table       string `json:"table"`
	Cutoff      string `json:"cutoff"`
	RowsDeleted int64  `json:"rows_deleted"`
}

// RunDailyJob triggers the full extract-and-load pipeline for one date,
// defaulting to today (UTC).
func (h *Handler) RunDailyJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunDailyJob")
	defer span.End()

	var req runDailyJobRequest
	if err := h.decodeJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	date, err := dateOrToday(req.Date)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := h.pipeline.RunDaily(ctx, date)
	if err != nil {
		h.logger.ErrorContext(ctx, "run daily job failed", "date", date.Format(dateLayout), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toRunSummaryDTO(summary))
}

// ExtractLiveJob pulls the live feed of one in-progress game and appends it
// to the games table.
func (h *Handler) ExtractLiveJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ExtractLiveJob")
	defer span.End()

	var req extractLiveJobRequest
	if err := h.decodeJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.pipeline.RunLive(ctx, req.GameID)
	if err != nil {
		h.logger.ErrorContext(ctx, "extract live job failed", "game_id", req.GameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toLoadResultDTO(result))
}

// BackfillJob replays the daily pipeline over an inclusive date range. Failed
// days are reported per day; the range keeps going.
func (h *Handler) BackfillJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.BackfillJob")
	defer span.End()

	var req backfillJobRequest
	if err := h.decodeJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid start_date: %v", usecase.ErrInvalidInput, err))
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid end_date: %v", usecase.ErrInvalidInput, err))
		return
	}

	results, err := h.pipeline.Backfill(ctx, start, end)
	if err != nil {
		h.logger.ErrorContext(ctx, "backfill job failed",
			"start_date", req.StartDate,
			"end_date", req.EndDate,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	items := make([]dayResultDTO, 0, len(results))
	for _, day := range results {
		items = append(items, toDayResultDTO(day))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

// ValidateJob runs post-load validation for one date and returns the report
// plus any derived alerts.
func (h *Handler) ValidateJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ValidateJob")
	defer span.End()

	var req validateJobRequest
	if err := h.decodeJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	date, err := dateOrToday(req.Date)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	report, alerts, err := h.pipeline.RunValidation(ctx, date)
	if err != nil {
		h.logger.ErrorContext(ctx, "validate job failed", "date", date.Format(dateLayout), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"report": report,
		"alerts": alerts,
	})
}

// CleanupJob deletes rows older than the retention window from one table.
// retention_days falls back to the configured default.
func (h *Handler) CleanupJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CleanupJob")
	defer span.End()

	var req cleanupJobRequest
	if err := h.decodeJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	retentionDays := req.RetentionDays
	if retentionDays == 0 {
		retentionDays = h.cleanupRetentionDays
	}

	result, err := h.pipeline.Cleanup(ctx, req.Table, retentionDays)
	if err != nil {
		h.logger.ErrorContext(ctx, "cleanup job failed",
			"table", req.Table,
			"retention_days", retentionDays,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, cleanupResultDTO{
		Table:       result.Table,
		Cutoff:      result.Cutoff.Format(dateLayout),
		RowsDeleted: result.RowsDeleted,
	})
}

func (h *Handler) decodeJobRequest(r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	if err := h.validator.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func dateOrToday(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date: %v", usecase.ErrInvalidInput, err)
	}
	return date, nil
}

func toRunSummaryDTO(summary usecase.RunSummary) runSummaryDTO {
	return runSummaryDTO{
		Date:           summary.Date.Format(dateLayout),
		ScheduledGames: summary.ScheduledGames,
		FetchedGames:   summary.FetchedGames,
		Load:           toLoadSummaryDTO(summary.Load),
	}
}

func toLoadSummaryDTO(summary usecase.LoadSummary) loadSummaryDTO {
	results := make(map[string]loadResultDTO, len(summary.Results))
	for table, result := range summary.Results {
		results[table] = toLoadResultDTO(result)
	}
	return loadSummaryDTO{
		Date:    summary.Date.Format(dateLayout),
		Status:  summary.Status,
		Results: results,
	}
}

func toLoadResultDTO(result warehouse.LoadResult) loadResultDTO {
	return loadResultDTO{
		Table:            result.Table,
		Status:           string(result.Status),
		RowsLoaded:       result.RowsLoaded,
		RowsRejected:     result.RowsRejected,
		Reason:           result.Reason,
		RejectionReasons: result.RejectionReasons,
		Timestamp:        result.Timestamp,
	}
}

func toDayResultDTO(day extraction.DayResult) dayResultDTO {
	return dayResultDTO{
		Date:       day.Date.Format(dateLayout),
		Status:     day.Status,
		TotalGames: day.TotalGames,
		Error:      day.Error,
	}
}
