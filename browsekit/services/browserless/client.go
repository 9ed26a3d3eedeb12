// Package browserless talks to the hosted-browser execution service.
//
// Every call is a single HTTPS request bounded by its own timeout. Nothing is
// retried here; failures come back as *apperrors.ExecutionError.
package browserless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"browsekit/browsekit/services/program"
	"browsekit/browsekit/utils/apperrors"
	"browsekit/browsekit/utils/logging"
	"browsekit/browsekit/utils/metrics"
)

const (
	DefaultBaseURL           = "https://chrome.browserless.io"
	DefaultFunctionTimeout   = 60 * time.Second
	DefaultCapabilityTimeout = 30 * time.Second

	// TokenEnv is the environment key the token is read from.
	TokenEnv = "BROWSERLESS_API_KEY"

	maxUpstreamBody = 2048
)

// Config locates and authenticates the execution service.
type Config struct {
	BaseURL           string
	Token             string
	FunctionTimeout   time.Duration
	CapabilityTimeout time.Duration
}

// Client is safe for concurrent use; it keeps no per-call state.
type Client struct {
	rest              *resty.Client
	token             string
	functionTimeout   time.Duration
	capabilityTimeout time.Duration
	logger            *zap.Logger
	metrics           *metrics.Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.rest = resty.NewWithClient(hc)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient fails fast when no token is configured.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, apperrors.MissingCredential(TokenEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.FunctionTimeout <= 0 {
		cfg.FunctionTimeout = DefaultFunctionTimeout
	}
	if cfg.CapabilityTimeout <= 0 {
		cfg.CapabilityTimeout = DefaultCapabilityTimeout
	}

	c := &Client{
		rest:              resty.NewWithClient(&http.Client{Transport: newTransport()}),
		token:             cfg.Token,
		functionTimeout:   cfg.FunctionTimeout,
		capabilityTimeout: cfg.CapabilityTimeout,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rest.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetRetryCount(0).
		SetHeader("Cache-Control", "no-cache").
		SetHeader("User-Agent", "browsekit/1.0")
	return c, nil
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

type functionBody struct {
	Code    string          `json:"code"`
	Context functionContext `json:"context"`
}

type functionContext struct {
	Program program.Program `json:"program"`
}

// Submit runs prog through the function endpoint and returns the program's
// return value. timeout <= 0 uses the function default (60s).
func (c *Client) Submit(ctx context.Context, prog program.Program, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = c.functionTimeout
	}
	op := "function:" + string(prog.Kind)
	body := functionBody{Code: program.Shim, Context: functionContext{Program: prog}}

	raw, err := c.post(ctx, op, "/function", body, timeout, "application/json")
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, &apperrors.ExecutionError{
			Op:           op,
			Err:          errors.New("response is not valid JSON"),
			UpstreamBody: clip(raw),
		}
	}
	return json.RawMessage(raw), nil
}

// Capability calls a built-in endpoint such as /screenshot and returns the
// raw response body. timeout <= 0 uses the capability default (30s).
func (c *Client) Capability(ctx context.Context, call program.Capability, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = c.capabilityTimeout
	}
	op := "capability:" + call.Name
	raw, err := c.post(ctx, op, "/"+call.Name, call.Params, timeout, "*/*")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &apperrors.ExecutionError{Op: op, Err: errors.New("empty response body")}
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, op, path string, body any, timeout time.Duration, accept string) (out []byte, err error) {
	defer logging.LogDuration(ctx, op)()
	start := time.Now()
	defer func() {
		c.metrics.ObserveRemote(op, time.Since(start), err)
		if err != nil {
			c.logger.Warn("remote call failed", zap.String("op", op), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.rest.R().
		SetContext(callCtx).
		SetQueryParam("token", c.token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", accept).
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, &apperrors.ExecutionError{Op: op, Err: c.transportCause(callCtx, err, timeout)}
	}
	if !resp.IsSuccess() {
		return nil, &apperrors.ExecutionError{
			Op:           op,
			StatusCode:   resp.StatusCode(),
			UpstreamBody: clip(resp.Body()),
			Err:          fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}
	return resp.Body(), nil
}

// transportCause classifies err and strips the token from any URL in it.
func (c *Client) transportCause(callCtx context.Context, err error, timeout time.Duration) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		redacted := *uerr
		redacted.URL = redactURL(uerr.URL)
		err = &redacted
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
	}
	if ctxErr := callCtx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<redacted>"
	}
	u.RawQuery = ""
	return u.String()
}

func clip(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxUpstreamBody {
		return s[:maxUpstreamBody] + "..."
	}
	return s
}
