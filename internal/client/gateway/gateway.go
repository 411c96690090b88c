package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/notekeep-go/internal/core/domain"
	"github.com/yndnr/notekeep-go/internal/telemetry/logger"
	"github.com/yndnr/notekeep-go/internal/telemetry/metric"
)

const (
	// DefaultBaseURL is the notes API.
	DefaultBaseURL = "https://notes-backend-rouge.vercel.app/api"
	// DefaultRefreshURL is the credential refresh endpoint.
	DefaultRefreshURL = "https://eightbackend.amyalsmart.com/auth/refresh"
	// DefaultTimeout bounds every HTTP exchange, including refresh.
	DefaultTimeout = 30 * time.Second

	// HeaderRequestID carries the per-request ULID.
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 8 << 20
)

// ErrResponseTooLarge is returned when a response body exceeds 8MB.
var ErrResponseTooLarge = errors.New("gateway: response body exceeds 8MB")

// CredentialStore is the session state the gateway reads and rotates.
type CredentialStore interface {
	Credential() domain.Credential
	Rotate(ctx context.Context, cred domain.Credential) error
}

// Config holds gateway settings.
type Config struct {
	BaseURL    string
	RefreshURL string
	UserAgent  string
	Timeout    time.Duration

	// RateLimit is the outbound request rate in requests per second.
	// Zero disables limiting. Refresh calls are never limited.
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns the production endpoints.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		RefreshURL: DefaultRefreshURL,
		UserAgent:  "notekeep",
		Timeout:    DefaultTimeout,
	}
}

// Gateway sends authenticated API requests.
type Gateway struct {
	cfg     Config
	store   CredentialStore
	client  *http.Client
	limiter *rate.Limiter
	metrics *metric.Registry
	logger  logger.Logger
	coord   coordinator
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.client = c
	}
}

// WithMetrics records into reg instead of a private registry.
func WithMetrics(reg *metric.Registry) Option {
	return func(g *Gateway) {
		g.metrics = reg
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

// New creates a gateway bound to store.
func New(cfg Config, store CredentialStore, opts ...Option) (*Gateway, error) {
	if cfg.BaseURL == "" {
		return nil, domain.ErrMissingArgument.WithDetails("gateway base url")
	}
	if cfg.RefreshURL == "" {
		return nil, domain.ErrMissingArgument.WithDetails("gateway refresh url")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	g := &Gateway{cfg: cfg, store: store, logger: logger.Default()}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: cfg.Timeout}
	}
	if g.metrics == nil {
		g.metrics = metric.NewRegistry()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	g.coord.onWait = func(delta int) {
		g.metrics.RefreshWaiters.Add(float64(delta))
	}
	return g, nil
}

// Metrics returns the registry the gateway records into.
func (g *Gateway) Metrics() *metric.Registry {
	return g.metrics
}

// Send dispatches req with the current credential and returns the 2xx
// response. A 401 on an authenticated request triggers the shared refresh
// and a single replay; a second 401 is returned as domain.ErrUnauthorized.
// Any other non-2xx status is returned as *APIError. A 401 on an anonymous
// request is terminal: there is no credential to refresh.
func (g *Gateway) Send(ctx context.Context, req *Request) (*Response, error) {
	reqID := ulid.Make().String()
	ctx = logger.WithRequestID(ctx, reqID)

	// New requests queue behind a refresh that is already running.
	if err := g.coord.wait(ctx, g.coord.inFlight()); err != nil {
		return nil, err
	}

	used := g.store.Credential()
	resp, err := g.dispatch(ctx, req, reqID, used)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return finish(resp)
	}

	first := newAPIError(resp.StatusCode, resp.Body, reqID)
	if used.IsZero() {
		return nil, domain.ErrUnauthorized.WithCause(first)
	}

	next, err := g.recover(ctx, used, first)
	if err != nil {
		return nil, err
	}

	resp, err = g.dispatch(ctx, req, reqID, next)
	if err != nil {
		g.metrics.RecordRetry(metric.RetryFailed)
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		g.metrics.RecordRetry(metric.RetryUnauthorized)
		return nil, domain.ErrUnauthorized.WithCause(newAPIError(resp.StatusCode, resp.Body, reqID))
	case isSuccess(resp.StatusCode):
		g.metrics.RecordRetry(metric.RetrySucceeded)
	default:
		g.metrics.RecordRetry(metric.RetryFailed)
	}
	return finish(resp)
}

// recover runs the 401 protocol for a request sent with used and returns
// the credential to replay with.
func (g *Gateway) recover(ctx context.Context, used domain.Credential, first *APIError) (domain.Credential, error) {
	log := logger.L(ctx)

	switch role, f := g.coord.join(used, g.store.Credential); role {
	case roleRetry:
		log.Debug("credential already rotated, replaying")
		return g.store.Credential(), nil

	case roleWait:
		log.Debug("waiting for in-flight refresh")
		if err := g.coord.wait(ctx, f); err != nil {
			return "", err
		}
		return g.store.Credential(), nil

	default:
		defer g.coord.finish(f)

		cred, err := g.refresh(ctx, used)
		if err == nil {
			err = g.store.Rotate(ctx, cred)
		}
		if err != nil {
			log.Warn("credential refresh failed", "error", err)
			return "", domain.ErrUnauthorized.WithDetails(first.Error()).WithCause(err)
		}

		log.Info("credential refreshed")
		return cred, nil
	}
}

// dispatch performs one HTTP exchange.
func (g *Gateway) dispatch(ctx context.Context, req *Request, reqID string, cred domain.Credential) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("gateway: rate limit: %w", err)
		}
	}

	target, err := req.url(g.cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	g.decorate(httpReq, reqID, cred)

	return g.roundTrip(ctx, httpReq, reqID)
}

func (g *Gateway) decorate(r *http.Request, reqID string, cred domain.Credential) {
	r.Header.Set("Accept", "application/json")
	r.Header.Set(HeaderRequestID, reqID)
	if g.cfg.UserAgent != "" {
		r.Header.Set("User-Agent", g.cfg.UserAgent)
	}
	if !cred.IsZero() {
		r.Header.Set("Authorization", cred.BearerHeader())
	}
}

func (g *Gateway) roundTrip(ctx context.Context, r *http.Request, reqID string) (*Response, error) {
	start := time.Now()
	httpResp, err := g.client.Do(r)
	elapsed := time.Since(start)
	g.metrics.ObserveRequestDuration(r.Method, elapsed.Seconds())

	if err != nil {
		logger.L(ctx).Debug("api request failed", "method", r.Method, "url", r.URL.Redacted(), "error", err)
		return nil, fmt.Errorf("gateway: %s %s: %w", r.Method, r.URL.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}
	if len(data) > maxBodyBytes {
		logger.L(ctx).Warn("api response too large", "method", r.Method, "url", r.URL.Redacted(), "status", httpResp.StatusCode)
		return nil, fmt.Errorf("%w: %s %s", ErrResponseTooLarge, r.Method, r.URL.Path)
	}

	g.metrics.RecordRequest(r.Method, httpResp.StatusCode)
	logger.L(ctx).Debug("api request",
		"method", r.Method,
		"url", r.URL.Redacted(),
		"status", httpResp.StatusCode,
		"elapsed", elapsed)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  reqID,
	}, nil
}

func finish(resp *Response) (*Response, error) {
	if isSuccess(resp.StatusCode) {
		return resp, nil
	}
	return nil, newAPIError(resp.StatusCode, resp.Body, resp.RequestID)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// IsStatus reports whether err carries an API response with the given code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
