package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/simpleab/pkg/logger"
	"github.com/dmitrymomot/simpleab/pkg/requestid"
	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

const (
	tracerName       = "github.com/dmitrymomot/simpleab/pkg/transport"
	userAgent        = "simpleab-go/1.0"
	defaultTimeout   = 10 * time.Second
	maxErrorBodySize = 64 * 1024
)

// Client implements simpleab.Transport over HTTP+JSON.
// Zero value is not usable; use New.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int

	http         *http.Client
	backoff      BackoffStrategy
	limiter      *rate.Limiter
	headers      map[string]string
	logger       *slog.Logger
	tracer       trace.Tracer
	newRequestID func() string
	onAttempt    AttemptHook
}

var _ simpleab.Transport = (*Client)(nil)

// New creates a Client from cfg. The configuration is validated up front.
func New(cfg simpleab.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		backoff:      DefaultBackoff(),
		headers:      make(map[string]string),
		logger:       logger.Discard(),
		tracer:       otel.Tracer(tracerName),
		newRequestID: uuid.NewString,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if cfg.RateLimit > 0 {
		burst := int(math.Max(1, math.Ceil(cfg.RateLimit)))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("simpleab.transport"))
	return c, nil
}

// FetchExperiments requests definitions for ids in one call.
func (c *Client) FetchExperiments(ctx context.Context, ids ...string) ([]simpleab.ExperimentDefinition, error) {
	var resp FetchResponse
	if err := c.call(ctx, PathExperiments, FetchRequest{ExperimentIDs: ids}, &resp); err != nil {
		return nil, err
	}
	defs, err := resp.Definitions()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", simpleab.ErrTransport, ErrDecode, err)
	}
	return defs, nil
}

// FlushMetrics posts a metric batch. A {"success": false} answer is a
// rejection, not an error.
func (c *Client) FlushMetrics(ctx context.Context, batch simpleab.MetricBatch) (bool, error) {
	var resp FlushResponse
	if err := c.call(ctx, PathMetrics, batch, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// LookupSegment asks the service for the geo and device segment of a request.
func (c *Client) LookupSegment(ctx context.Context, req simpleab.SegmentRequest) (simpleab.Segment, error) {
	var seg simpleab.Segment
	if err := c.call(ctx, PathSegment, req, &seg); err != nil {
		return simpleab.Segment{}, err
	}
	return seg, nil
}

// call posts in to path with retries and decodes the 2xx body into out.
func (c *Client) call(ctx context.Context, path string, in, out any) (err error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal request: %w", simpleab.ErrTransport, err)
	}

	requestID := requestid.FromContext(ctx)
	if requestID == "" {
		requestID = c.newRequestID()
		ctx = requestid.WithContext(ctx, requestID)
	}
	ctx, span := c.tracer.Start(ctx, "simpleab "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.path", path),
			attribute.String("simpleab.request_id", requestID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", simpleab.ErrTransport, ctx.Err())
			case <-time.After(c.backoff.NextInterval(attempt)):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%w: rate limiter: %w", simpleab.ErrTransport, err)
			}
		}

		result, body, err := c.attempt(ctx, path, requestID, payload)
		result.Attempt = attempt + 1
		if c.onAttempt != nil {
			c.onAttempt(result)
		}
		span.SetAttributes(attribute.Int("simpleab.attempts", result.Attempt))

		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("%w: %w: %w", simpleab.ErrTransport, ErrDecode, err)
			}
			return nil
		}

		c.logger.DebugContext(ctx, "request attempt failed",
			slog.String("path", path),
			logger.RequestID(requestID),
			logger.Attempt(result.Attempt),
			logger.Error(err),
		)

		lastErr = err
		if isPermanent(result.StatusCode) {
			return fmt.Errorf("%w: %w: %w", simpleab.ErrTransport, ErrPermanentFailure, err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", simpleab.ErrTransport, lastErr)
		}
	}

	return fmt.Errorf("%w: %w after %d attempts: %w", simpleab.ErrTransport, ErrRetriesExhausted, c.maxRetries+1, lastErr)
}

// attempt performs a single POST and returns the response body on 2xx.
func (c *Client) attempt(ctx context.Context, path, requestID string, payload []byte) (AttemptResult, []byte, error) {
	start := time.Now()
	result := AttemptResult{Path: path, RequestID: requestID}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		result.Err = err
		return result, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set(requestid.Header, requestID)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return result, nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return result, nil, fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		msg := fmt.Sprintf("service returned status %d", resp.StatusCode)
		if len(body) > 0 {
			bodyStr := strings.ReplaceAll(string(body), "\n", " ")
			if len(bodyStr) > 200 {
				bodyStr = bodyStr[:200] + "..."
			}
			msg += ": " + bodyStr
		}
		result.Err = errors.New(msg)
		if isPermanent(resp.StatusCode) {
			return result, nil, result.Err
		}
		return result, nil, fmt.Errorf("%w: %w", ErrTemporaryFailure, result.Err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = err
		return result, nil, fmt.Errorf("%w: failed to read response: %w", ErrTemporaryFailure, err)
	}
	return result, body, nil
}

func (c *Client) endpoint(path string) string {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return c.baseURL + path
	}
	return u
}

// isPermanent reports 4xx codes that retrying will not fix.
func isPermanent(statusCode int) bool {
	if statusCode < 400 || statusCode >= 500 {
		return false
	}
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}
