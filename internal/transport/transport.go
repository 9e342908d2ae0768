package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"tgbatch/internal/config"
	"tgbatch/internal/dnscache"
)

// Status codes accepted as non-error replies
const (
	DefaultStatusCode     = http.StatusOK
	NotModifiedStatusCode = http.StatusNotModified
)

// Config for creating a new Transport
type Config struct {
	Endpoint          string // method calls go to Endpoint + "/" + operation
	FileEndpoint      string // downloads go to FileEndpoint + "/" + path
	Token             string // kept out of logs and error text
	RequestTimeout    time.Duration
	KeepAliveIdle     time.Duration
	KeepAliveInterval time.Duration
	IdleConnTimeout   time.Duration
	MaxConnsPerHost   int
	MaxIdleConns      int
	DNSCacheTTL       time.Duration
	DNSCacheSize      int
}

// ConfigFrom converts the file configuration into a transport Config
func ConfigFrom(cfg *config.Config) Config {
	t := cfg.Transport
	return Config{
		Endpoint:          cfg.Endpoint(),
		Token:             cfg.Token,
		FileEndpoint:      cfg.FileEndpoint(),
		RequestTimeout:    t.GetRequestTimeoutDuration(),
		KeepAliveIdle:     t.GetKeepAliveIdleDuration(),
		KeepAliveInterval: t.GetKeepAliveIntervalDuration(),
		IdleConnTimeout:   t.GetIdleConnTimeoutDuration(),
		MaxConnsPerHost:   t.MaxConnsPerHost,
		MaxIdleConns:      t.MaxIdleConns,
		DNSCacheTTL:       t.GetDNSCacheTTLDuration(),
		DNSCacheSize:      t.DNSCacheSize,
	}
}

// Reply is a fully read HTTP response
type Reply struct {
	StatusCode int
	Body       []byte
}

// Transport sends API calls over one pool of reusable connections
type Transport struct {
	endpoint     string
	fileEndpoint string
	// URL paths of the endpoints, stripped from request paths to get operation names
	endpointPath     string
	fileEndpointPath string
	token            string

	httpClient *http.Client
	resolver   *dnscache.Resolver
	stats      Stats
	closed     atomic.Bool
	logger     zerolog.Logger
}

// New creates a Transport. It must be closed with Close when no longer needed.
func New(cfg Config, logger zerolog.Logger) (*Transport, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	endpointPath, err := urlPath(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %s", redact(err.Error(), cfg.Token))
	}
	fileEndpointPath, err := urlPath(cfg.FileEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid file endpoint: %s", redact(err.Error(), cfg.Token))
	}
	if cfg.DNSCacheSize <= 0 {
		cfg.DNSCacheSize = config.DefaultDNSCacheSize
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = config.DefaultMaxIdleConns
	}

	dialer := &net.Dialer{
		Timeout: 30 * time.Second,
		KeepAliveConfig: net.KeepAliveConfig{
			Enable:   true,
			Idle:     cfg.KeepAliveIdle,
			Interval: cfg.KeepAliveInterval,
		},
	}

	resolver, err := dnscache.New(cfg.DNSCacheSize, cfg.DNSCacheTTL, dialer)
	if err != nil {
		return nil, fmt.Errorf("failed to create DNS cache: %w", err)
	}

	maxIdlePerHost := cfg.MaxConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = cfg.MaxIdleConns
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         resolver.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: maxIdlePerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}

	return &Transport{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		fileEndpoint: strings.TrimRight(cfg.FileEndpoint, "/"),

		endpointPath:     endpointPath,
		fileEndpointPath: fileEndpointPath,
		token:            cfg.Token,

		httpClient: httpClient,
		resolver:   resolver,
		logger:     logger.With().Str("component", "transport").Logger(),
	}, nil
}

// Endpoint returns the base endpoint for method calls
func (t *Transport) Endpoint() string {
	return t.endpoint
}

// Prepare builds the POST request for an operation without sending it
func (t *Transport) Prepare(ctx context.Context, operation string, params Params) (*http.Request, error) {
	body, contentType, err := Encode(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/"+operation, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %s", redact(err.Error(), t.token))
	}
	req.Header.Set("Content-Type", contentType)

	return req, nil
}

// Do sends a prepared request on the shared pool and reads the whole body.
// The response body is always closed before Do returns.
func (t *Transport) Do(req *http.Request) (*Reply, error) {
	op := t.operation(req)
	if t.closed.Load() {
		return nil, t.transportError(req.Method+" "+op, ErrClosed)
	}

	t.stats.begin()
	failed := true
	defer func() { t.stats.end(failed) }()

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, t.transportError("", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.transportError("read response", err)
	}
	failed = false

	t.logger.Debug().
		Str("operation", op).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request completed")

	return &Reply{StatusCode: resp.StatusCode, Body: body}, nil
}

// Request calls an operation and returns the envelope's result.
// An HTTP status other than 200 or 304 becomes a *ProtocolError.
func (t *Transport) Request(ctx context.Context, operation string, params Params) (json.RawMessage, error) {
	req, err := t.Prepare(ctx, operation, params)
	if err != nil {
		return nil, err
	}

	reply, err := t.Do(req)
	if err != nil {
		return nil, err
	}

	if !isAccepted(reply.StatusCode) {
		return nil, protocolError(reply)
	}

	if reply.StatusCode == NotModifiedStatusCode && len(bytes.TrimSpace(reply.Body)) == 0 {
		return nil, nil
	}

	env, err := ParseEnvelope(reply.Body)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if err := env.Err(reply.StatusCode); err != nil {
		return nil, err
	}

	return env.Result, nil
}

// Download fetches a previously uploaded file by its file path
func (t *Transport) Download(ctx context.Context, path string) ([]byte, error) {
	if t.fileEndpoint == "" {
		return nil, ErrNoFileEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.fileEndpoint+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %s", redact(err.Error(), t.token))
	}

	reply, err := t.Do(req)
	if err != nil {
		return nil, err
	}

	if !isAccepted(reply.StatusCode) {
		perr := protocolError(reply)
		perr.Parameters = nil
		return nil, perr
	}

	return reply.Body, nil
}

// InFlight returns the number of requests currently holding a connection
func (t *Transport) InFlight() int64 {
	return t.stats.InFlight()
}

// Stats returns a snapshot of the request counters
func (t *Transport) Stats() StatsSnapshot {
	return t.stats.Snapshot()
}

// Close releases pooled connections; later calls fail with ErrClosed
func (t *Transport) Close() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	t.httpClient.CloseIdleConnections()
	t.resolver.Purge()

	s := t.stats.Snapshot()
	t.logger.Debug().
		Uint64("requests", s.Requests).
		Uint64("failures", s.Failures).
		Msg("transport closed")
}

// operation returns the part of the request path after the endpoint: the
// method name for calls, the file path for downloads
func (t *Transport) operation(req *http.Request) string {
	path := req.URL.Path
	for _, prefix := range []string{t.endpointPath, t.fileEndpointPath} {
		if prefix != "" && strings.HasPrefix(path, prefix+"/") {
			return strings.TrimPrefix(path, prefix+"/")
		}
	}
	return redact(path, t.token)
}

func (t *Transport) transportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err, secret: t.token}
}

// urlPath returns the path of raw without a trailing slash
func urlPath(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(u.Path, "/"), nil
}

func isAccepted(code int) bool {
	return code == DefaultStatusCode || code == NotModifiedStatusCode
}

// protocolError builds a *ProtocolError, taking description and parameters
// from the body when it decodes as an envelope
func protocolError(reply *Reply) *ProtocolError {
	perr := &ProtocolError{
		StatusCode:  reply.StatusCode,
		Description: http.StatusText(reply.StatusCode),
	}

	if env, err := ParseEnvelope(reply.Body); err == nil {
		if env.Description != "" {
			perr.Description = env.Description
		}
		perr.Parameters = env.Parameters
	}

	return perr
}
