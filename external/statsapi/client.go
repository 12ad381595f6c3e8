package statsapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ballparklabs/diamondline/internal/platform/cache"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
	"github.com/ballparklabs/diamondline/internal/platform/resilience"
)

const (
	defaultBaseURL     = "https://statsapi.mlb.com/api/v1"
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 5
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 60 * time.Second
	maxResponseBytes   = 24 << 20
	sportIDMajorLeague = "1"

	// Standings are season-level: every day of a backfill range asks for the
	// same payload, so a short cache collapses those into one upstream call.
	standingsCacheTTL = 5 * time.Minute
)

// errTransient marks failures that consumed a retry slot: timeouts, 5xx,
// transport resets. A 4xx is never marked and surfaces on the first attempt.
var errTransient = crerr.New("statsapi transient failure")

// StatusError preserves the upstream HTTP status so callers can distinguish
// a 404 from a 503 after retries are exhausted.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("statsapi %s status=%d body=%s", e.Path, e.StatusCode, e.Body)
}

// IsTransient reports whether err was retried with backoff before surfacing.
func IsTransient(err error) bool {
	return crerr.Is(err, errTransient)
}

// IsFatal reports whether err is a client-caused upstream rejection (4xx)
// that was propagated without retry.
func IsFatal(err error) bool {
	var statusErr *StatusError
	if !crerr.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode >= 400 && statusErr.StatusCode < 500
}

// ClientConfig is run-local: concurrent runs and tests construct independent
// clients with independent policies.
type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client is a resilient MLB Stats API client. One client owns one connection
// pool for the lifetime of a run; Close releases it.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	baseDelay      time.Duration
	maxDelay       time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	standings      *cache.Store
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone()),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if cfg.MaxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     maxRetries,
		baseDelay:      baseDelay,
		maxDelay:       maxDelay,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		standings:      cache.NewStore(standingsCacheTTL),
	}
}

// Close releases idle connections held by the client's pool. Safe to defer on
// every exit path of a run.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// FetchDailySchedule returns the schedule payload for one calendar date.
func (c *Client) FetchDailySchedule(ctx context.Context, date time.Time) (map[string]any, error) {
	query := map[string]string{
		"sportId": sportIDMajorLeague,
		"date":    date.Format("2006-01-02"),
	}
	payload, err := c.doJSON(ctx, "/schedule", query)
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch daily schedule date=%s", date.Format("2006-01-02"))
	}
	return payload, nil
}

// FetchGameDetail returns the full live feed for one game.
func (c *Client) FetchGameDetail(ctx context.Context, gameID int64) (map[string]any, error) {
	if gameID <= 0 {
		return nil, crerr.New("game id must be greater than zero")
	}
	payload, err := c.doJSON(ctx, fmt.Sprintf("/game/%d/feed/live", gameID), nil)
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch game detail game_id=%d", gameID)
	}
	return payload, nil
}

// FetchLiveFeedDiff returns the incremental live-feed patch for an in-progress
// game.
func (c *Client) FetchLiveFeedDiff(ctx context.Context, gameID int64) (map[string]any, error) {
	if gameID <= 0 {
		return nil, crerr.New("game id must be greater than zero")
	}
	payload, err := c.doJSON(ctx, fmt.Sprintf("/game/%d/feed/live/diffPatch", gameID), nil)
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch live feed diff game_id=%d", gameID)
	}
	return payload, nil
}

// FetchStandings returns both league standings for a season.
func (c *Client) FetchStandings(ctx context.Context, season int) (map[string]any, error) {
	if season <= 0 {
		return nil, crerr.New("season must be greater than zero")
	}
	query := map[string]string{
		"leagueId": "103,104",
		"season":   strconv.Itoa(season),
	}
	out, err := c.standings.GetOrLoad(ctx, "standings:"+strconv.Itoa(season), func(ctx context.Context) (any, error) {
		return c.doJSON(ctx, "/standings", query)
	})
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch standings season=%d", season)
	}
	payload, ok := out.(map[string]any)
	if !ok {
		return nil, crerr.Newf("unexpected standings payload type %T", out)
	}
	return payload, nil
}

// FetchTeamStats returns season aggregates for one team.
func (c *Client) FetchTeamStats(ctx context.Context, teamID int64, season int) (map[string]any, error) {
	if teamID <= 0 {
		return nil, crerr.New("team id must be greater than zero")
	}
	query := map[string]string{
		"teamId": strconv.FormatInt(teamID, 10),
		"season": strconv.Itoa(season),
		"stats":  "season",
	}
	payload, err := c.doJSON(ctx, "/teams/stats", query)
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch team stats team_id=%d season=%d", teamID, season)
	}
	return payload, nil
}

// FetchPlayerStats returns one player's season splits for a stat group
// (hitting, pitching, fielding).
func (c *Client) FetchPlayerStats(ctx context.Context, personID int64, season int, group string) (map[string]any, error) {
	if personID <= 0 {
		return nil, crerr.New("person id must be greater than zero")
	}
	query := map[string]string{
		"personId": strconv.FormatInt(personID, 10),
		"season":   strconv.Itoa(season),
		"stats":    "season",
	}
	if group = strings.TrimSpace(group); group != "" {
		query["group"] = group
	}
	payload, err := c.doJSON(ctx, "/people/stats", query)
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch player stats person_id=%d season=%d", personID, season)
	}
	return payload, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string) (map[string]any, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "statsapi circuit breaker rejected request", "path", path, "state", c.breaker.State())
			return nil, crerr.Mark(crerr.New("stats provider is temporarily unavailable"), errTransient)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, path, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && IsTransient(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, crerr.Newf("unexpected response payload type %T", out)
	}

	payload := map[string]any{}
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, crerr.Wrap(err, "decode upstream payload")
	}
	return payload, nil
}

// executeRequest performs the retry loop. A status in [400,500) returns
// immediately with the status preserved; everything else consumes a retry
// slot. On exhaustion the last observed error is surfaced, not a summary.
func (c *Client) executeRequest(ctx context.Context, path, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Mark(crerr.Wrap(err, "send request"), errTransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(crerr.Wrap(readErr, "read response body"), errTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return nil, &StatusError{StatusCode: resp.StatusCode, Path: path, Body: abbreviateBody(raw)}
			default:
				lastErr = crerr.Mark(&StatusError{StatusCode: resp.StatusCode, Path: path, Body: abbreviateBody(raw)}, errTransient)
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(c.backoffDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.Mark(crerr.New("upstream request failed"), errTransient)
	}
	c.logger.WarnContext(ctx, "statsapi request failed", "path", path, "attempts", c.maxRetries+1, "error", lastErr)
	return nil, lastErr
}

// backoffDelay computes min(base * 2^attempt, cap).
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.baseDelay << uint(attempt)
	if delay <= 0 || delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
