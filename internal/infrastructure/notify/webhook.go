// Package notify delivers validation reports and alerts to external sinks.
// The pipeline core only produces the structured payload; delivery lives
// here.
package notify

import (
	"context"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/ballparklabs/diamondline/internal/domain/validation"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
	"github.com/ballparklabs/diamondline/internal/platform/resilience"
)

type WebhookConfig struct {
	Endpoint       string
	Token          string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookNotifier posts report+alert payloads to an operator-configured HTTP
// endpoint.
type WebhookNotifier struct {
	client         *fasthttp.Client
	endpoint       string
	token          string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewWebhookNotifier(cfg WebhookConfig, logger *logging.Logger) (*WebhookNotifier, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, crerr.New("webhook endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &WebhookNotifier{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		endpoint:       endpoint,
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, report validation.Report, alerts []validation.Alert) error {
	if n.circuitEnabled {
		if err := n.breaker.Allow(); err != nil {
			n.logger.WarnContext(ctx, "webhook circuit breaker rejected delivery", "state", n.breaker.State())
			return crerr.Wrap(err, "alert webhook is temporarily unavailable")
		}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	body, err := sonic.Marshal(map[string]any{
		"report": report,
		"alerts": alerts,
	})
	if err != nil {
		return crerr.Wrap(err, "marshal alert payload")
	}
	_, _ = buf.Write(body)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(n.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}
	req.SetBody(buf.B)

	err = n.client.DoTimeout(req, resp, n.timeout)
	if err == nil && resp.StatusCode()/100 != 2 {
		err = crerr.Newf("alert webhook status=%d", resp.StatusCode())
	}

	if n.circuitEnabled {
		if err != nil {
			n.breaker.RecordFailure()
		} else {
			n.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return crerr.Wrap(err, "deliver alerts")
	}

	n.logger.InfoContext(ctx, "alerts delivered",
		"alerts", len(alerts),
		"overall_status", report.OverallStatus,
	)
	return nil
}
