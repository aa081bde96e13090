// Package cluster talks to Solana JSON-RPC endpoints with per-endpoint
// rate limiting, backoff retries and ordered fallback.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// ErrRPCResponse indicates a malformed JSON-RPC response.
var ErrRPCResponse = &lenderr.LendError{
	Code:     "RPC_INVALID_RESPONSE",
	Message:  "invalid RPC response",
	ExitCode: lenderr.ExitGeneral,
}

// maxResponseBytes bounds a single response body.
const maxResponseBytes = 16 << 20

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Node-side errors worth another attempt: node behind, or the server
// itself overloaded.
const (
	codeNodeUnhealthy = -32005
	codeServerError   = -32603
)

// Logger is the logging surface of the client.
type Logger interface {
	Debug(format string, args ...any)
}

// Observer is told about every HTTP round trip.
type Observer interface {
	ObserveRPC(method, outcome string, elapsed time.Duration)
}

// Config configures a Client.
type Config struct {
	// Endpoints are tried in order; later ones are fallbacks.
	Endpoints []string
	RateLimit float64
	RateBurst int
	Timeout   time.Duration
	Retry     RetryConfig

	HTTPClient *http.Client
	Logger     Logger
	Observer   Observer
}

// Client is a Solana JSON-RPC client.
type Client struct {
	endpoints []string
	http      *http.Client
	limiter   *RateLimiter
	retry     RetryConfig
	log       Logger
	observer  Observer
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// New returns a client over cfg.Endpoints.
func New(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, lenderr.WithSuggestion(lenderr.ErrNoEndpoints,
			"set one with 'shadowlend config set cluster.endpoints <url>' or SHADOWLEND_RPC")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Client{
		endpoints: append([]string(nil), cfg.Endpoints...),
		http:      httpClient,
		limiter:   NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		retry:     cfg.Retry,
		log:       cfg.Logger,
		observer:  cfg.Observer,
	}, nil
}

// Endpoints returns the configured endpoints in fallback order.
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// Call invokes method and returns the "result" member. Endpoints are
// tried in order; an endpoint is abandoned once its retries are spent.
// Errors reported by the node itself are returned without fallback.
func (c *Client) Call(ctx context.Context, method string, params ...any) (gjson.Result, error) {
	if params == nil {
		params = []any{}
	}

	var lastErr error
	for i, endpoint := range c.endpoints {
		result, err := retry(ctx, c.retry, func(ctx context.Context) (gjson.Result, error) {
			return c.roundTrip(ctx, endpoint, method, params)
		})
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return gjson.Result{}, ctxErr
		}
		if !IsRetryable(err) {
			return gjson.Result{}, err
		}
		lastErr = err
		if i < len(c.endpoints)-1 {
			c.log.Debug("cluster: %s failed on %s, falling back: %v", method, endpoint, err)
		}
	}
	return gjson.Result{}, fmt.Errorf("%w: %s: %w", lenderr.ErrNetworkError, method, lastErr)
}

func (c *Client) roundTrip(ctx context.Context, endpoint, method string, params []any) (result gjson.Result, err error) {
	start := time.Now()
	defer func() { c.observe(method, err, time.Since(start)) }()

	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return gjson.Result{}, err
	}

	id := uuid.NewString()
	body, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %w", lenderr.ErrInvalidInput, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return gjson.Result{}, ctx.Err()
		}
		return gjson.Result{}, retryable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, retryable(fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return gjson.Result{}, &retryAfterError{
			err:   fmt.Errorf("%w: %s", ErrRateLimited, endpoint),
			after: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return gjson.Result{}, retryable(fmt.Errorf("HTTP %d from %s", resp.StatusCode, endpoint))
	case resp.StatusCode != http.StatusOK:
		return gjson.Result{}, fmt.Errorf("%w: HTTP %d from %s", ErrRPCResponse, resp.StatusCode, endpoint)
	}

	return parseResponse(raw, id)
}

func parseResponse(raw []byte, id string) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: body is not JSON", ErrRPCResponse)
	}
	doc := gjson.ParseBytes(raw)
	if got := doc.Get("id").String(); got != id {
		return gjson.Result{}, fmt.Errorf("%w: id %q does not match request %q", ErrRPCResponse, got, id)
	}

	if e := doc.Get("error"); e.Exists() {
		rpcErr := &RPCError{Code: e.Get("code").Int(), Message: e.Get("message").String()}
		if rpcErr.Code == codeNodeUnhealthy || rpcErr.Code == codeServerError {
			return gjson.Result{}, retryable(rpcErr)
		}
		return gjson.Result{}, rpcErr
	}

	result := doc.Get("result")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: missing result", ErrRPCResponse)
	}
	return result, nil
}

func (c *Client) observe(method string, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	var rpcErr *RPCError
	switch {
	case err == nil:
	case errors.Is(err, ErrRateLimited):
		outcome = "rate_limited"
	case errors.As(err, &rpcErr):
		outcome = "rpc_error"
	default:
		outcome = "error"
	}
	c.observer.ObserveRPC(method, outcome, elapsed)
}
