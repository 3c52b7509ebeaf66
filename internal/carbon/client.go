package carbon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/gridmix/internal/observability"
	"github.com/jgoulah/gridmix/internal/retry"
	"github.com/jgoulah/gridmix/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Carbon Intensity API
const DefaultBaseURL = "https://api.carbonintensity.org.uk"

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02T15:04Z"
)

// ErrMalformedResponse is returned when the response body does not have the expected shape
var ErrMalformedResponse = errors.New("malformed generation response")

// StatusError is returned when the API answers with a non-success status
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// Temporary reports whether retrying the request may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// generationResponse matches the /generation endpoint body
type generationResponse struct {
	Data *[]generationData `json:"data"`
}

type generationData struct {
	From          string             `json:"from"`
	To            string             `json:"to"`
	GenerationMix []models.FuelShare `json:"generationmix"`
}

// Client fetches generation mix data from the Carbon Intensity API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryer    *retry.Retryer
	logger     logrus.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout; zero means no timeout. The rest of
// the HTTP client, including one set by WithHTTPClient, is kept.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithRateLimit limits requests to rps per second; zero disables limiting
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetry retries temporary failures according to cfg
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		cfg.Name = "generation"
		c.retryer = retry.New(cfg, c.logger, isRetryable)
	}
}

// NewClient creates a new API client. A request is attempted once unless WithRetry is given.
func NewClient(baseURL string, logger logrus.FieldLogger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retryer == nil {
		c.retryer = retry.New(retry.Config{MaxAttempts: 1, Name: "generation"}, logger, isRetryable)
	}

	return c
}

// RangeURL returns the request URL covering start 00:00Z through end 23:59Z
func (c *Client) RangeURL(start, end time.Time) string {
	return fmt.Sprintf("%s/generation/%sT00:00Z/%sT23:59Z", c.baseURL, start.Format(dateLayout), end.Format(dateLayout))
}

// FetchRange returns every interval between the start of start and the end of end (both calendar dates)
func (c *Client) FetchRange(ctx context.Context, start, end time.Time) ([]models.Interval, error) {
	reqURL := c.RangeURL(start, end)

	var intervals []models.Interval
	err := c.retryer.Do(ctx, func(ctx context.Context) error {
		var err error
		intervals, err = c.get(ctx, reqURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.IntervalsFetched.Add(float64(len(intervals)))
	return intervals, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]models.Interval, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.WithField("url", reqURL).Debug("Requesting generation mix")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	observability.RequestDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		observability.RequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	observability.RequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: reqURL, Body: string(body)}
	}

	return decodeGeneration(resp.Body)
}

// decodeGeneration decodes a /generation response body into intervals
func decodeGeneration(r io.Reader) ([]models.Interval, error) {
	var body generationResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}

	intervals := make([]models.Interval, 0, len(*body.Data))
	for i, d := range *body.Data {
		from, err := parseTime(d.From)
		if err != nil {
			return nil, fmt.Errorf("%w: data[%d].from: %v", ErrMalformedResponse, i, err)
		}
		to, err := parseTime(d.To)
		if err != nil {
			return nil, fmt.Errorf("%w: data[%d].to: %v", ErrMalformedResponse, i, err)
		}
		intervals = append(intervals, models.Interval{
			From:          from,
			To:            to,
			GenerationMix: d.GenerationMix,
		})
	}

	return intervals, nil
}

// parseTime accepts the API's minute-precision timestamps as well as full RFC 3339
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}
