// Package odoo talks to an Odoo ERP over its JSON-RPC endpoint and implements
// the resolver backend on top of the product and pricelist models.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kosarica/rule-resolver/internal/resilience"
)

// Config holds JSON-RPC client settings.
type Config struct {
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Breaker           resilience.Config
}

// DefaultConfig returns the default client configuration for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		Timeout:           10 * time.Second,
		RequestsPerSecond: 20,
		Burst:             40,
		Breaker:           resilience.DefaultConfig(),
	}
}

// RPCError is an error reported by the server in a JSON-RPC response.
type RPCError struct {
	Code    int
	Message string
	Name    string // server exception class, e.g. odoo.exceptions.AccessDenied
	Detail  string
}

func (e *RPCError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("odoo rpc error %d (%s): %s", e.Code, e.Name, e.Detail)
	}
	return fmt.Sprintf("odoo rpc error %d (%s): %s", e.Code, e.Name, e.Message)
}

// IsAuthError reports whether the server rejected the session or credentials.
func (e *RPCError) IsAuthError() bool {
	return strings.Contains(e.Name, "AccessDenied") ||
		strings.Contains(e.Name, "SessionExpired") ||
		e.Code == 100
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"data"`
	} `json:"error"`
}

// Client is a throttled JSON-RPC client. Each call is a single attempt.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.Breaker
	logger     *zerolog.Logger
	nextID     atomic.Int64
}

// NewClient creates a JSON-RPC client for the Odoo server at cfg.URL.
func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "odoo_client").Logger()

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.URL, "/") + "/jsonrpc",
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    resilience.New("odoo", cfg.Breaker, &l),
		logger:     &l,
	}
}

// Call invokes service.method with args and decodes the result into out.
func (c *Client) Call(ctx context.Context, service, method string, args []any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var result json.RawMessage
	err := c.breaker.Do(func() error {
		var err error
		result, err = c.roundTrip(ctx, service, method, args)
		return err
	}, countsAsOutage)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s.%s result: %w", service, method, err)
	}
	return nil
}

// BreakerState reports the state of the breaker guarding this client.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *Client) roundTrip(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      id,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Kosarica-RuleResolver/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("service", service).
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("JSON-RPC call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Name:    rpcResp.Error.Data.Name,
			Detail:  rpcResp.Error.Data.Message,
		}
	}
	return rpcResp.Result, nil
}

// HTTPStatusError is returned when the server answers with a non-2xx status.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
}

// countsAsOutage decides which failures trip the breaker: transport errors and
// 5xx responses do, errors the server reported in a well-formed reply do not.
func countsAsOutage(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}
