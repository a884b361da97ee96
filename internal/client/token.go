package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/yndnr/garagebook-go/internal/core/domain"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
	"github.com/yndnr/garagebook-go/internal/telemetry/metric"
)

// TokenBroker fetches the anti-forgery cookie and signs mutating requests
// with it. The token is never cached outside the cookie jar.
type TokenBroker struct {
	http       *http.Client
	endpoint   string
	jar        *CredentialJar
	cookieName string
	headerName string
	userAgent  string
	logger     logger.Logger
	metrics    *metric.Registry
}

// EnsureFreshToken asks the issuance endpoint for a new token cookie. The
// response body is ignored; the cookie lands in the shared jar.
func (b *TokenBroker) EnsureFreshToken(ctx context.Context) (err error) {
	defer func() { b.metrics.ObserveTokenRefresh(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint, nil)
	if err != nil {
		return domain.ErrTokenRefresh.WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return domain.ErrTokenRefresh.WithCause(domain.ErrNetwork.WithCause(err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ErrTokenRefresh.WithDetails(fmt.Sprintf("status %d", resp.StatusCode))
	}

	b.logger.Debug("csrf cookie refreshed")
	return nil
}

// Token returns the decoded token cookie value.
func (b *TokenBroker) Token() (string, bool) {
	raw, ok := b.jar.Value(b.cookieName)
	if !ok || raw == "" {
		return "", false
	}
	// The server percent-encodes the cookie value; the header wants it
	// decoded. A literal '+' is part of the token, not a space.
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw, true
	}
	return decoded, true
}

// SignedHeaders returns the token header, or an empty header when no token
// cookie is present. The server then rejects the unsigned request.
func (b *TokenBroker) SignedHeaders() http.Header {
	h := make(http.Header)
	if token, ok := b.Token(); ok {
		h.Set(b.headerName, token)
	}
	return h
}
