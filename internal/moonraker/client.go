package moonraker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

// Executor issues one request to the printer host with the retry policy applied.
type Executor interface {
	Execute(ctx context.Context, method, path string) Result
}

// Ensure Client implements Executor at compile time.
var _ Executor = (*Client)(nil)

// WarningSink receives user-facing messages extracted from 400 responses.
type WarningSink func(message string)

const (
	defaultPort        = "7125"
	defaultUserAgent   = "roost/0.1"
	defaultGetTimeout  = 10 * time.Second
	defaultPostTimeout = 60 * time.Second
	defaultAttempts    = 3
	defaultRetryDelay  = 500 * time.Millisecond
	maxBodyBytes       = 4 << 20
)

// Options tune a Client. Zero values use defaults.
type Options struct {
	GetTimeout  time.Duration
	PostTimeout time.Duration
	Attempts    uint
	RetryDelay  time.Duration
	Warnings    WarningSink
	Logger      *zap.Logger
	HTTPClient  *http.Client
}

// Client talks to the Moonraker HTTP API.
type Client struct {
	baseURL     string
	http        *http.Client
	userAgent   string
	getTimeout  time.Duration
	postTimeout time.Duration
	attempts    uint
	retryDelay  time.Duration
	warn        WarningSink
	logger      *zap.Logger

	unconnected atomic.Bool
}

// NewClient builds a Client for host and port. The unconnected indicator
// starts raised until the first response arrives.
func NewClient(host, port string, opts Options) (*Client, error) {
	base, err := parseBaseURL(host, port)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:     strings.TrimSuffix(base.String(), "/"),
		http:        opts.HTTPClient,
		userAgent:   defaultUserAgent,
		getTimeout:  opts.GetTimeout,
		postTimeout: opts.PostTimeout,
		attempts:    opts.Attempts,
		retryDelay:  opts.RetryDelay,
		warn:        opts.Warnings,
		logger:      opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}
	if c.getTimeout <= 0 {
		c.getTimeout = defaultGetTimeout
	}
	if c.postTimeout <= 0 {
		c.postTimeout = defaultPostTimeout
	}
	if c.attempts == 0 {
		c.attempts = defaultAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	if c.warn == nil {
		c.warn = func(string) {}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("moonraker")
	c.unconnected.Store(true)
	return c, nil
}

// BaseURL returns the scheme://host:port prefix requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Unconnected reports whether the last GET failed without any response.
func (c *Client) Unconnected() bool {
	return c.unconnected.Load()
}

// CloseIdleConnections drops pooled keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// Execute sends method to path, retrying transport failures, 5xx and 408 with
// a progressive delay. It never returns a Retryable outcome: exhausted retries
// are reported as Abandoned.
func (c *Client) Execute(ctx context.Context, method, path string) Result {
	target := c.baseURL + strings.ReplaceAll(path, " ", "%20")
	timeout := c.timeoutFor(method)

	var res Result
	attempts := 0
	_ = retry.Do(
		func() error {
			attempts++
			res = c.attempt(ctx, method, target, timeout)
			if res.Outcome == OutcomeRetryable {
				return errRetryable
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.DelayType(c.backoff),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errRetryable) }),
		retry.OnRetry(func(n uint, _ error) {
			// retry-go also calls this after the last attempt.
			if n+1 >= c.attempts {
				return
			}
			c.logger.Debug("retrying request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Uint("attempt", n+1),
				zap.Int("status", res.StatusCode),
				zap.Error(res.Err))
		}),
	)
	res.Attempts = attempts

	if res.Outcome == OutcomeRetryable {
		res.Outcome = OutcomeAbandoned
		if res.Err == nil {
			res.Err = fmt.Errorf("status %d", res.StatusCode)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Err = ctxErr
		}
	}
	if res.Outcome == OutcomeAbandoned {
		c.logger.Warn("request abandoned",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempts", res.Attempts),
			zap.Int("status", res.StatusCode),
			zap.Error(res.Err))
	}
	return res
}

var errRetryable = errors.New("retryable")

// backoff waits attempt × base before each retry. retry-go passes the
// zero-based index of the attempt that just failed.
func (c *Client) backoff(n uint, _ error, _ *retry.Config) time.Duration {
	return retryDelay(n+1, c.retryDelay)
}

func retryDelay(attempt uint, base time.Duration) time.Duration {
	return time.Duration(attempt) * base
}

func (c *Client) timeoutFor(method string) time.Duration {
	if method == http.MethodPost {
		return c.postTimeout
	}
	return c.getTimeout
}

func (c *Client) attempt(parent context.Context, method, target string, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return Result{Outcome: OutcomeAbandoned, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		// A slow POST (homing, leveling) timing out is not evidence the link
		// dropped, so only GETs raise the indicator.
		if method == http.MethodGet && parent.Err() == nil {
			c.unconnected.Store(true)
		}
		return Result{Outcome: OutcomeRetryable, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{Outcome: OutcomeRetryable, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	res := Result{
		Outcome:    classifyStatus(resp.StatusCode),
		Body:       string(body),
		StatusCode: resp.StatusCode,
	}
	switch res.Outcome {
	case OutcomeSuccess:
		c.unconnected.Store(false)
	case OutcomeApplicationError:
		c.unconnected.Store(false)
		if msg := errorMessage(body); msg != "" {
			res.Message = msg
			c.warn(msg)
		}
	}
	return res
}

// envelopeHead is how Moonraker wraps Klipper errors inside error.message.
const envelopeHead = "{'error': 'WebRequestError', 'message': "

func errorMessage(body []byte) string {
	var env struct {
		Error *struct {
			Message *string `json:"message"`
		} `json:"error"`
	}
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return ""
	}
	if env.Error == nil || env.Error.Message == nil {
		return ""
	}
	return cleanErrorMessage(*env.Error.Message)
}

func cleanErrorMessage(msg string) string {
	if rest, ok := strings.CutPrefix(msg, envelopeHead); ok {
		rest = strings.TrimSuffix(rest, "}")
		if n := len(rest); n >= 2 && (rest[0] == '\'' || rest[0] == '"') && rest[n-1] == rest[0] {
			rest = rest[1 : n-1]
		}
		msg = rest
	}
	msg = strings.ReplaceAll(msg, `\n`, "\n")
	return strings.TrimSpace(msg)
}

func parseBaseURL(host, port string) (*url.URL, error) {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return nil, fmt.Errorf("moonraker host is empty")
	}
	port = strings.TrimSpace(port)
	if port == "" {
		port = defaultPort
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + net.JoinHostPort(trimmed, port)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse moonraker host %q: %w", host, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse moonraker host %q: missing host", host)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
