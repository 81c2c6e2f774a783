package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"toolgate/pkg/config"
	"toolgate/pkg/proxy/types"
)

// maxErrorBodyBytes caps how much of an upstream error body is read for the
// error detail forwarded to the caller.
const maxErrorBodyBytes = 8 * 1024

// Client dispatches requests to the upstream chat-completion endpoint.
// It holds the base URL, bearer credential, and two pooled HTTP clients:
// one with an overall timeout for buffered calls, one without for streamed
// relays, whose lifetime is bounded per chunk instead. All fields are
// read-only after New returns.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	httpc   *http.Client
	streamc *http.Client
}

// New creates an upstream client from the configuration.
func New(cfg config.UpstreamConfig) *Client {
	transport := &http.Transport{
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		httpc: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		// No overall timeout here: a live stream may legally outlast the
		// buffered ceiling. Staleness is enforced per chunk by stallGuard.
		streamc: &http.Client{
			Transport: transport,
		},
	}
}

// Timeout returns the configured per-request ceiling.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// ChatCompletion performs a buffered call and decodes the full reply.
// Transport failures and non-2xx statuses yield a TransportError; a 2xx body
// without a non-empty choices array yields a ShapeError with the raw body
// attached for server-side logging.
func (c *Client) ChatCompletion(ctx context.Context, req *ChatRequest) (*types.ChatCompletionResponse, error) {
	resp, err := c.post(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Message: "failed to read upstream response", Cause: err}
	}

	var completion types.ChatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, &ShapeError{
			Message: fmt.Sprintf("body is not valid JSON: %v", err),
			RawBody: string(body),
		}
	}

	if len(completion.Choices) == 0 {
		return nil, &ShapeError{
			Message: "missing or empty choices array",
			RawBody: string(body),
		}
	}

	return &completion, nil
}

// Stream opens a streamed call and returns the relay body. The caller relays
// bytes verbatim and must close the reader; cancelling ctx aborts the
// upstream connection, which covers client disconnects. The configured
// timeout applies per chunk, not to the whole stream: a body that delivers
// no bytes for one full timeout window is cut off as stalled and the read
// fails with a StreamError.
func (c *Client) Stream(ctx context.Context, req *ChatRequest) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.postWith(ctx, c.streamc, "/chat/completions", req)
	if err != nil {
		cancel()
		return nil, err
	}
	return newStallGuard(resp.Body, cancel, c.timeout), nil
}

// stallGuard bounds the gap between streamed reads. A watchdog re-arms on
// every successful read and cancels the request when a full window passes
// without data, so a stalled upstream surfaces as a StreamError while a
// slow-but-flowing stream runs as long as it needs to.
type stallGuard struct {
	rc       io.ReadCloser
	cancel   context.CancelFunc
	window   time.Duration
	watchdog *time.Timer
	stalled  atomic.Bool
}

func newStallGuard(rc io.ReadCloser, cancel context.CancelFunc, window time.Duration) *stallGuard {
	g := &stallGuard{rc: rc, cancel: cancel, window: window}
	g.watchdog = time.AfterFunc(window, func() {
		g.stalled.Store(true)
		cancel()
	})
	return g
}

// Read implements io.Reader.
func (g *stallGuard) Read(p []byte) (int, error) {
	n, err := g.rc.Read(p)
	if n > 0 {
		g.watchdog.Reset(g.window)
	}
	if err != nil && g.stalled.Load() {
		return n, &StreamError{
			Message: fmt.Sprintf("no data from upstream for %s", g.window),
			Cause:   err,
		}
	}
	return n, err
}

// Close implements io.Closer.
func (g *stallGuard) Close() error {
	g.watchdog.Stop()
	g.cancel()
	return g.rc.Close()
}

// HealthCheck probes upstream reachability with a lightweight GET against
// the model-listing endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return &TransportError{Message: "upstream unreachable", Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			StatusCode: resp.StatusCode,
			Message:    "health check returned non-2xx status",
		}
	}

	return nil
}

// post sends a buffered JSON POST through the timeout-bounded client.
func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.postWith(ctx, c.httpc, path, body)
}

// postWith sends a JSON POST through hc and returns the response on 2xx.
// Non-2xx responses are drained into a TransportError. Nothing is retried:
// a failed dispatch surfaces directly so the caller can decide.
func (c *Client) postWith(ctx context.Context, hc *http.Client, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	slog.DebugContext(ctx, "dispatching upstream request",
		"path", path,
		"bytes", len(payload),
	)

	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TransportError{
				Message: fmt.Sprintf("request cancelled or timed out after %s", c.timeout),
				Cause:   ctx.Err(),
			}
		}
		return nil, &TransportError{Message: "request failed", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(detail)),
		}
	}

	return resp, nil
}
