package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSteamUnavailable is returned when every attempt failed without a usable
// response. Remote 4xx and 500 responses are NOT this error; they are
// returned verbatim as definitive application-level answers.
var ErrSteamUnavailable = errors.New("steam did not respond")

// Response is a received HTTP response from the Steamworks Web API.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CallRecord captures one outbound call verbatim for auditing. One record is
// produced per call, regardless of how many attempts it took. When no
// response was ever received the record carries a synthetic 503 with the
// transport error as its body.
type CallRecord struct {
	Method       string
	URL          string
	Body         string
	StatusCode   int
	ResponseBody string
	Elapsed      time.Duration
}

// Client issues signed requests against the Steamworks Web API. It has no
// knowledge of leaderboard or stat semantics.
type Client interface {
	// Get performs a GET request with the params encoded as a query string.
	Get(ctx context.Context, path string, params url.Values) (*Response, CallRecord, error)
	// Post performs a POST request with a form-encoded body.
	Post(ctx context.Context, path string, form url.Values) (*Response, CallRecord, error)
}

type webClient struct {
	cfg    Config
	apiKey string
	http   *http.Client
}

// NewClient creates a Steamworks client signing every request with the given
// publisher key.
func NewClient(cfg Config, apiKey string) Client {
	attemptTimeout := time.Duration(cfg.AttemptTimeoutMS) * time.Millisecond
	if attemptTimeout <= 0 {
		attemptTimeout = time.Second
	}

	// Strict transport timeouts; the per-attempt context is the hard bound.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   attemptTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   attemptTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: attemptTimeout,
	}

	return &webClient{
		cfg:    cfg,
		apiKey: apiKey,
		http:   &http.Client{Transport: transport},
	}
}

func (c *webClient) Get(ctx context.Context, path string, params url.Values) (*Response, CallRecord, error) {
	fullURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	return c.call(ctx, http.MethodGet, fullURL, "")
}

func (c *webClient) Post(ctx context.Context, path string, form url.Values) (*Response, CallRecord, error) {
	return c.call(ctx, http.MethodPost, c.cfg.BaseURL+path, form.Encode())
}

// call runs the retry loop. A transport failure or a status strictly greater
// than 500 is retryable; anything else that was actually received (2xx, 4xx
// and exactly 500) is definitive and returned after a single attempt.
func (c *webClient) call(ctx context.Context, method, fullURL, body string) (*Response, CallRecord, error) {
	record := CallRecord{Method: method, URL: fullURL, Body: body}

	retryDelay := time.Duration(c.cfg.RetryDelayMS) * time.Millisecond
	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				record.StatusCode = http.StatusServiceUnavailable
				record.ResponseBody = ctx.Err().Error()
				record.Elapsed = time.Since(start)
				return nil, record, fmt.Errorf("%w: %v", ErrSteamUnavailable, ctx.Err())
			case <-time.After(retryDelay):
			}
		}

		resp, err := c.attempt(ctx, method, fullURL, body)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode > 500 {
			lastErr = fmt.Errorf("steam responded %d", resp.StatusCode)
			continue
		}

		record.StatusCode = resp.StatusCode
		record.ResponseBody = string(resp.Body)
		record.Elapsed = time.Since(start)
		return resp, record, nil
	}

	record.StatusCode = http.StatusServiceUnavailable
	record.ResponseBody = lastErr.Error()
	record.Elapsed = time.Since(start)
	return nil, record, fmt.Errorf("%w: %v", ErrSteamUnavailable, lastErr)
}

// attempt performs a single HTTP request bounded by the attempt timeout.
// On timeout the in-flight request is cancelled via its context.
func (c *webClient) attempt(ctx context.Context, method, fullURL, body string) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.AttemptTimeoutMS)*time.Millisecond)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("x-webapi-key", c.apiKey)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
