package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/yndnr/garagebook-go/internal/core/domain"
	"github.com/yndnr/garagebook-go/internal/storage"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
	"github.com/yndnr/garagebook-go/internal/telemetry/metric"
)

// Status codes with protocol meaning.
const (
	StatusTokenExpired    = 419
	StatusUnauthenticated = http.StatusUnauthorized
	StatusUnprocessable   = http.StatusUnprocessableEntity
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 10 << 20

// Config configures the transport.
type Config struct {
	// BaseURL is the API origin, e.g. http://localhost:8000.
	BaseURL string
	// Timeout bounds a single HTTP exchange. Zero means no timeout.
	Timeout time.Duration
	// RateLimit is the maximum requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int

	CSRFEndpoint string
	CSRFCookie   string
	CSRFHeader   string

	// LoginPath is exempt from session invalidation on 401.
	LoginPath string

	UserAgent string
}

// DefaultConfig returns the settings the service ships with.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:8000",
		Timeout:      30 * time.Second,
		RateBurst:    1,
		CSRFEndpoint: "/sanctum/csrf-cookie",
		CSRFCookie:   "XSRF-TOKEN",
		CSRFHeader:   "X-XSRF-TOKEN",
		LoginPath:    "/api/login",
		UserAgent:    "garagebook-cli",
	}
}

// Invalidator is told when the remote session is gone.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Client performs JSON exchanges with the API under a cookie session.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	jar       *CredentialJar
	tokens    *TokenBroker
	limiter   *rate.Limiter
	loginPath string
	userAgent string
	logger    logger.Logger
	metrics   *metric.Registry

	mu          sync.RWMutex
	invalidator Invalidator

	teardownMu sync.Mutex
}

// Option configures a Client.
type Option func(*options)

type options struct {
	store     storage.KV
	logger    logger.Logger
	metrics   *metric.Registry
	transport http.RoundTripper
	tls       *tls.Config
}

// WithStore persists cookies in store.
func WithStore(store storage.KV) Option {
	return func(o *options) { o.store = store }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records transport metrics in r.
func WithMetrics(r *metric.Registry) Option {
	return func(o *options) { o.metrics = r }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTLSConfig sets the TLS configuration of the default transport.
// Ignored when WithTransport is given.
func WithTLSConfig(tc *tls.Config) Option {
	return func(o *options) { o.tls = tc }
}

// New creates a client for cfg.BaseURL, restoring persisted cookies.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	o := options{logger: logger.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if cfg.CSRFEndpoint == "" {
		cfg.CSRFEndpoint = def.CSRFEndpoint
	}
	if cfg.CSRFCookie == "" {
		cfg.CSRFCookie = def.CSRFCookie
	}
	if cfg.CSRFHeader == "" {
		cfg.CSRFHeader = def.CSRFHeader
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}

	log := o.logger.With("component", "transport")

	jar, err := NewCredentialJar(ctx, base, o.store, log)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	if o.transport == nil && o.tls != nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = o.tls
		o.transport = t
	}

	httpClient := &http.Client{
		Jar:       jar,
		Timeout:   cfg.Timeout,
		Transport: o.transport,
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		jar:     jar,
		tokens: &TokenBroker{
			http:       httpClient,
			endpoint:   base.ResolveReference(&url.URL{Path: cfg.CSRFEndpoint}).String(),
			jar:        jar,
			cookieName: cfg.CSRFCookie,
			headerName: cfg.CSRFHeader,
			userAgent:  cfg.UserAgent,
			logger:     log,
			metrics:    o.metrics,
		},
		limiter:   limiter,
		loginPath: cfg.LoginPath,
		userAgent: cfg.UserAgent,
		logger:    log,
		metrics:   o.metrics,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("api url is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || u.Host == "" {
		return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("api url %q", raw)).WithCause(err)
	}
	return u, nil
}

// SetInvalidator registers who is told about a 401 teardown.
func (c *Client) SetInvalidator(inv Invalidator) {
	c.mu.Lock()
	c.invalidator = inv
	c.mu.Unlock()
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Tokens returns the client's token broker.
func (c *Client) Tokens() *TokenBroker {
	return c.tokens
}

// Jar returns the client's credential jar.
func (c *Client) Jar() *CredentialJar {
	return c.jar
}

// PurgeCredentials removes every session-scoped credential.
func (c *Client) PurgeCredentials(ctx context.Context) error {
	return c.jar.Purge(ctx)
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put is Do with PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete is Do with DELETE and no body.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// IsMutating reports whether method changes server state.
func IsMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Do sends body as JSON to path and decodes a successful response into out.
//
// Mutating requests are preceded by a token refresh and carry the signed
// token header. A 419 response triggers one refresh and one resend; a
// second 419 returns ErrTokenExpired. A 401 tears the session down and
// returns ErrUnauthenticated. A 422 returns a *domain.ValidationError.
// Any other failure status returns a *domain.StatusError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}

	if IsMutating(method) {
		if err := c.tokens.EnsureFreshToken(ctx); err != nil {
			return err
		}
	}

	res, err := c.exchange(ctx, method, path, payload, 1)
	if err != nil {
		return err
	}

	if res.status == StatusTokenExpired {
		c.metrics.IncCSRFRetry()
		c.logger.Warn("csrf token expired, retrying once", "method", method, "path", path)

		if err := c.tokens.EnsureFreshToken(ctx); err != nil {
			return err
		}
		res, err = c.exchange(ctx, method, path, payload, 2)
		if err != nil {
			return err
		}
		if res.status == StatusTokenExpired {
			return domain.ErrTokenExpired.WithDetails(method + " " + path)
		}
	}

	return c.handle(ctx, method, path, res, out)
}

type response struct {
	status int
	body   []byte
}

func (c *Client) exchange(ctx context.Context, method, path string, payload []byte, attempt int) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.ErrNetwork.WithCause(err)
	}

	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if payload != nil || IsMutating(method) {
		req.Header.Set("Content-Type", "application/json")
	}
	if IsMutating(method) {
		for k, v := range c.tokens.SignedHeaders() {
			req.Header[k] = v
		}
	}

	log := c.logger.WithContext(logger.WithRequestID(ctx, requestID))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		log.Debug("request failed", "method", method, "path", path, "attempt", attempt, "error", err)
		return nil, domain.ErrNetwork.WithDetails(method + " " + path).WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, domain.ErrNetwork.WithDetails("read response").WithCause(err)
	}

	log.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"attempt", attempt,
		"elapsed", time.Since(start))

	return &response{status: resp.StatusCode, body: data}, nil
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("path %q", path)).WithCause(err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

func (c *Client) handle(ctx context.Context, method, path string, res *response, out any) error {
	switch {
	case res.status >= 200 && res.status < 300:
		if out == nil || res.status == http.StatusNoContent || len(bytes.TrimSpace(res.body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(res.body, out); err != nil {
			return domain.ErrTransport.WithDetails(fmt.Sprintf("decode %s %s", method, path)).WithCause(err)
		}
		return nil

	case res.status == StatusUnauthenticated:
		unauth := domain.ErrUnauthenticated.WithDetails(method + " " + path)
		if err := c.teardown(ctx, path); err != nil {
			return unauth.WithCause(err)
		}
		return unauth

	case res.status == StatusUnprocessable:
		return parseValidation(res.body)

	default:
		return &domain.StatusError{
			Method:  method,
			Path:    path,
			Status:  res.status,
			Message: errorMessage(res.body),
			Body:    res.body,
		}
	}
}

// teardown purges every credential and, unless the failing call was the
// login request itself, moves the session to anonymous. The returned error
// names whatever could not be removed from storage.
func (c *Client) teardown(ctx context.Context, path string) error {
	c.teardownMu.Lock()
	defer c.teardownMu.Unlock()

	c.metrics.IncTeardown()
	err := c.jar.Purge(ctx)
	if err != nil {
		c.logger.Warn("purge persisted cookies", "error", err)
	}

	if c.isLoginPath(path) {
		c.logger.Debug("login rejected, credentials purged")
		return err
	}

	c.logger.Warn("session invalidated by server", "path", path)

	c.mu.RLock()
	inv := c.invalidator
	c.mu.RUnlock()
	if inv != nil {
		err = multierr.Append(err, inv.Invalidate(ctx))
	}
	return err
}

func (c *Client) isLoginPath(path string) bool {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	return strings.TrimRight(path, "/") == strings.TrimRight(c.loginPath, "/")
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("encode request body").WithCause(err)
	}
	return data, nil
}

// errorBody is the service's error envelope.
type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func parseValidation(body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return &domain.ValidationError{Message: strings.TrimSpace(string(body))}
	}
	return &domain.ValidationError{Message: eb.Message, Fields: eb.Errors}
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		return eb.Message
	}
	return ""
}
