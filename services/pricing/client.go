package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"event-storefront/models"
)

const (
	RequestTimeout = 30 * time.Second
	PayPath        = "/pay/"
	OrderInfoPath  = "/order_info/%s"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 4 << 20
)

// ErrUnexpectedStatus is wrapped by every non-2xx response error.
var ErrUnexpectedStatus = errors.New("unexpected status from pricing service")

// StatusError carries the status and a truncated body of a failed call.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// NewTransport returns the tuned transport shared by all session clients.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// Client talks to the remote pricing service on behalf of one session. The
// service keeps checkout state in its own cookie session, so every Client
// owns a cookie jar.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewClient(baseURL string, transport http.RoundTripper, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}
	if transport == nil {
		transport = NewTransport()
	}
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			Jar:       jar,
		},
		logger: logger,
		tracer: otel.Tracer("event-storefront/pricing"),
	}, nil
}

func (c *Client) GetEvent(ctx context.Context, path string) (*models.EventInfo, error) {
	var info models.EventInfo
	if err := c.do(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Price posts a submission payload to a price or checkout endpoint.
func (c *Client) Price(ctx context.Context, path string, payload map[string]string) (*models.PricingResponse, error) {
	var resp models.PricingResponse
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) PriorRegistrations(ctx context.Context, path string, payload map[string]string) (*models.PriorRegistrations, error) {
	var resp models.PriorRegistrations
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pay finalizes a payment with the widget token.
func (c *Client) Pay(ctx context.Context, req models.PayRequest) (*models.PaymentResult, error) {
	var result models.PaymentResult
	if err := c.do(ctx, http.MethodPost, PayPath, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AdminEventInfo(ctx context.Context, path string) (*models.AdminEventInfo, error) {
	var info models.AdminEventInfo
	if err := c.do(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) OrderInfo(ctx context.Context, token string) (*models.UserOrderInfo, error) {
	var info models.UserOrderInfo
	path := fmt.Sprintf(OrderInfoPath, url.PathEscape(token))
	if err := c.do(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	startTime := time.Now()

	ctx, span := c.tracer.Start(ctx, "pricing "+method+" "+path, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	err := c.roundTrip(ctx, method, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("pricing service call failed",
			zap.String("method", method), zap.String("path", path),
			zap.Duration("elapsed", time.Since(startTime)), zap.Error(err))
		return err
	}

	c.logger.Debug("pricing service call",
		zap.String("method", method), zap.String("path", path),
		zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(respBody)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: snippet}
	}

	cleanBody := bytes.TrimPrefix(respBody, []byte("\ufeff"))
	if err := json.Unmarshal(cleanBody, out); err != nil {
		return fmt.Errorf("error decoding response from %s: %w", path, err)
	}
	return nil
}
