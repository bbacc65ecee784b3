// Package pipeline issues requests against the storefront API: it resolves
// the base URL, attaches bearer credentials, correlates shopping flows with
// the session header, and recovers from an expired access token with exactly
// one refresh and one retry.
package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"trolley/internal/identity"
	"trolley/internal/platform/metrics"
	"trolley/internal/provider"
	"trolley/internal/session"
	dErrors "trolley/pkg/domain-errors"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// SessionHeader carries the shopping session id on allow-listed paths.
const SessionHeader = "X-Shopping-Session-Id"

// apiPrefix gates the one-time base URL warning to paths that actually
// target the API.
const apiPrefix = "/api"

// Doer abstracts the HTTP transport so tests can substitute one.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Pipeline is the single entry point through which the rest of the
// application talks to the storefront API.
type Pipeline struct {
	baseURL  string
	hostname string
	http     Doer
	tokens   provider.TokenProvider
	sessions *session.Manager
	identity *identity.Store
	metrics  *metrics.Metrics
	log      *slog.Logger
	tracer   trace.Tracer

	// warnOnce scopes the misconfiguration warning to this instance:
	// constructed once at process start, reset only by building a fresh
	// pipeline in tests.
	warnOnce sync.Once
	// refresh deduplicates credential refreshes so N requests hitting 401
	// together trigger one provider call.
	refresh singleflight.Group

	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// Option configures a Pipeline instance.
type Option func(*Pipeline)

// WithHTTPClient replaces the transport. Defaults to http.DefaultClient.
func WithHTTPClient(doer Doer) Option {
	return func(p *Pipeline) { p.http = doer }
}

// WithBreaker wraps the transport in a circuit breaker so a flapping backend
// fails fast instead of tying up callers. Off unless configured.
func WithBreaker() Option {
	return func(p *Pipeline) {
		p.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name: "storefront-api",
		})
	}
}

func New(baseURL, hostname string, tokens provider.TokenProvider, sessions *session.Manager, ids *identity.Store, mx *metrics.Metrics, log *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		baseURL:  baseURL,
		hostname: hostname,
		http:     http.DefaultClient,
		tokens:   tokens,
		sessions: sessions,
		identity: ids,
		metrics:  mx,
		log:      log,
		tracer:   otel.Tracer("trolley/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DoPublic issues a request with no credential attached, for endpoints that
// must work before sign-in.
func (p *Pipeline) DoPublic(ctx context.Context, path string, opts Options) (*http.Response, error) {
	ctx, span := p.tracer.Start(ctx, "storefront.request", trace.WithAttributes(
		attribute.String("http.path", path),
		attribute.Bool("authenticated", false),
	))
	defer span.End()

	req, err := p.build(ctx, path, opts, "", "")
	if err != nil {
		return nil, err
	}
	return p.send(ctx, span, path, req)
}

// Do issues an authenticated request. On a 401 it refreshes the credential
// exactly once and retries exactly once; the retry's response is returned
// as-is even when it is another 401, so a server that always rejects can
// never trap the client in a refresh loop.
func (p *Pipeline) Do(ctx context.Context, path string, opts Options) (*http.Response, error) {
	if p.tokens == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "no token provider configured")
	}

	ctx, span := p.tracer.Start(ctx, "storefront.request", trace.WithAttributes(
		attribute.String("http.path", path),
		attribute.Bool("authenticated", true),
	))
	defer span.End()

	sess, err := p.tokens.Current(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolving auth session")
	}
	if sess == nil {
		p.metrics.AuthFailures.Inc()
		return nil, dErrors.New(dErrors.CodeNoActiveSession, "no active session, sign in required")
	}

	// The shopping session id is resolved once per request, before the
	// first send, and reused verbatim on the retry: a 401 ends the access
	// token's life, not the shopping episode's.
	var shoppingSession string
	if session.RequiresCorrelation(path) {
		storeID := p.identity.SelectedStore(ctx, sess.UserID)
		shoppingSession = p.sessions.GetOrCreate(ctx, sess.UserID, storeID)
	}

	req, err := p.build(ctx, path, opts, sess.AccessToken, shoppingSession)
	if err != nil {
		return nil, err
	}
	resp, err := p.send(ctx, span, path, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	refreshed, err := p.refreshOnce(ctx)
	if err != nil || refreshed == nil {
		p.metrics.AuthFailures.Inc()
		if signOutErr := p.tokens.SignOut(ctx); signOutErr != nil {
			p.log.WarnContext(ctx, "sign-out after failed refresh", "error", signOutErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeSessionExpired, "session expired, re-authentication required")
	}

	retry, err := p.build(ctx, path, opts, refreshed.AccessToken, shoppingSession)
	if err != nil {
		return nil, err
	}
	return p.send(ctx, span, path, retry)
}

// refreshOnce collapses concurrent refresh attempts into a single provider
// call; every waiter observes the same outcome.
func (p *Pipeline) refreshOnce(ctx context.Context) (*provider.Session, error) {
	result, err, _ := p.refresh.Do("refresh", func() (any, error) {
		p.metrics.CredentialRefreshes.Inc()
		return p.tokens.Refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	sess, _ := result.(*provider.Session)
	return sess, nil
}

func (p *Pipeline) build(ctx context.Context, path string, opts Options, token, shoppingSession string) (*http.Request, error) {
	body, contentType, err := opts.payload()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, opts.method(), p.resolveURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "building request")
	}

	for name, values := range opts.Header {
		req.Header[name] = append([]string(nil), values...)
	}
	if contentType != "" {
		// A multipart payload owns its boundary: whatever content type the
		// caller supplied is dropped in its favor, on first send and retry
		// alike.
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if shoppingSession != "" {
		req.Header.Set(SessionHeader, shoppingSession)
	}
	return req, nil
}

func (p *Pipeline) send(ctx context.Context, span trace.Span, path string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	var resp *http.Response
	var err error
	if p.breaker != nil {
		resp, err = p.breaker.Execute(func() (*http.Response, error) {
			return p.http.Do(req)
		})
	} else {
		resp, err = p.http.Do(req)
	}
	elapsed := time.Since(start).Seconds()

	if err != nil {
		p.metrics.ObserveRequest("transport_error", path, elapsed)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, dErrors.Wrap(err, dErrors.CodeTransport, "request failed")
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	p.metrics.ObserveRequest(strconv.Itoa(resp.StatusCode), path, elapsed)
	p.log.DebugContext(ctx, "storefront request",
		"path", path,
		"status", resp.StatusCode,
	)
	return resp, nil
}

// resolveURL passes absolute URLs through untouched and prefixes relative
// paths with the configured base URL, surfacing a likely deployment
// misconfiguration exactly once per pipeline lifetime.
func (p *Pipeline) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if p.baseURL == "" && !localHostname(p.hostname) && strings.HasPrefix(path, apiPrefix) {
		p.warnOnce.Do(func() {
			p.metrics.ConfigWarnings.Inc()
			p.log.Warn("empty API base URL outside local environment, requests will target the current host",
				"hostname", p.hostname,
				"path", path,
			)
		})
	}
	return p.baseURL + path
}

func localHostname(hostname string) bool {
	switch hostname {
	case "localhost", "127.0.0.1", "0.0.0.0":
		return true
	}
	return strings.HasSuffix(hostname, ".local")
}
