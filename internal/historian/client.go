// Package historian reads tank tags from the plant historian REST API and joins them
// into the wide table the event pipeline consumes.
package historian

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"tankevents/internal/config"
	"tankevents/internal/errors"
	"tankevents/internal/infrastructure"
)

// Retrieval modes
const (
	ModeRaw          = "raw"
	ModeInterpolated = "interpolated"
	ModeSampled      = "sampled"
)

// Sample quality codes
const (
	QualityBad  = 0
	QualityGood = 3
)

// timeFormat is the timestamp layout of request paths and parameters
const timeFormat = "2006-01-02T15:04:05.000Z"

// Point is one retrieved value. Value is NaN when the historian marked the sample bad.
type Point struct {
	Time  time.Time
	Value float64
}

// Window is the inclusive extraction interval
type Window struct {
	Start time.Time
	End   time.Time
}

// YesterdayWindow returns 00:00:00 to 23:59:59 of the day before now, in now's location
func YesterdayWindow(now time.Time) Window {
	y, m, d := now.AddDate(0, 0, -1).Date()
	return Window{
		Start: time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		End:   time.Date(y, m, d, 23, 59, 59, 0, now.Location()),
	}
}

// DayWindow returns 00:00:00 to 23:59:59 of the given day
func DayWindow(day time.Time) Window {
	return YesterdayWindow(day.AddDate(0, 0, 1))
}

// Client is an authenticated historian REST client
type Client struct {
	httpClient *http.Client
	baseURL    string
	mode       string
	interval   time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *infrastructure.PipelineMetrics
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithClientLogger sets the client logger
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClientMetrics sets the instruments requests are recorded on
func WithClientMetrics(m *infrastructure.PipelineMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient obtains an access token with the resource owner password grant, sending the client
// credentials as basic auth, and returns a client whose requests carry and refresh that token.
func NewClient(ctx context.Context, cfg config.HistorianConfig, opts ...ClientOption) (*Client, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, errors.NewConfigError("historian is not configured", err)
	}

	base := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        cfg.MaxConcurrency * 2,
			MaxIdleConnsPerHost: cfg.MaxConcurrency,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, //nolint:gosec
		},
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenEndpoint(),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
	token, err := oauthCfg.PasswordCredentialsToken(tokenCtx, cfg.Username, cfg.Password)
	if err != nil {
		return nil, errors.NewAuthError("unable to obtain historian access token", err)
	}

	httpClient := oauthCfg.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base), token)
	httpClient.Timeout = cfg.Timeout

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL(), "/"),
		mode:       cfg.Mode,
		interval:   cfg.SampleInterval,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = infrastructure.GetLogger()
	}
	c.logger = infrastructure.WithComponent(c.logger, "historian")

	c.logger.InfoContext(ctx, "Historian access token acquired",
		slog.String("base_url", c.baseURL),
		slog.String("mode", c.mode),
		slog.Time("expiry", token.Expiry))

	return c, nil
}

// Mode returns the retrieval mode requests are made with
func (c *Client) Mode() string {
	return c.mode
}

// requestURL builds the data point URL of one tag for the client's mode
func (c *Client) requestURL(tag string, w Window) string {
	tag = strings.ReplaceAll(tag, "#", "*")
	start := w.Start.UTC().Format(timeFormat)
	end := w.End.UTC().Format(timeFormat)
	intervalMs := strconv.FormatInt(c.interval.Milliseconds(), 10)

	switch c.mode {
	case ModeSampled:
		q := url.Values{}
		q.Set("tagNames", tag)
		q.Set("start", start)
		q.Set("end", end)
		q.Set("samplingMode", "7")
		q.Set("calculationMode", "1")
		q.Set("direction", "0")
		q.Set("count", "0")
		q.Set("intervalMs", intervalMs)
		return c.baseURL + "/datapoints/sampled?" + q.Encode()
	case ModeInterpolated:
		return fmt.Sprintf("%s/datapoints/interpolated/%s/%s/%s/0/%s",
			c.baseURL, url.PathEscape(tag), start, end, intervalMs)
	default:
		return fmt.Sprintf("%s/datapoints/raw/%s/%s/%s/0/0",
			c.baseURL, url.PathEscape(tag), start, end)
	}
}

// dataResponse is the data point payload
type dataResponse struct {
	ErrorCode    int    `json:"ErrorCode"`
	ErrorMessage string `json:"ErrorMessage"`
	Data         []struct {
		TagName   string         `json:"TagName"`
		ErrorCode int            `json:"ErrorCode"`
		Samples   []sampleRecord `json:"Samples"`
	} `json:"Data"`
}

type sampleRecord struct {
	TimeStamp string          `json:"TimeStamp"`
	Value     json.RawMessage `json:"Value"`
	Quality   int             `json:"Quality"`
}

// Fetch retrieves one tag over the window. In sampled mode bad-quality samples are kept as NaN;
// in the other modes only good-quality samples are kept. Timestamps are truncated to the second
// and a repeated second keeps its first sample.
func (c *Client) Fetch(ctx context.Context, tag string, w Window) ([]Point, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(tag, w), nil)
	if err != nil {
		return nil, errors.NewNetworkError("failed to create historian request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordHistorianRequest(ctx, c.mode, 0, time.Since(start), 0)
		return nil, errors.NewNetworkError(fmt.Sprintf("historian request for %s failed", tag), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError("failed to read historian response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.metrics.RecordHistorianRequest(ctx, c.mode, resp.StatusCode, time.Since(start), 0)
		return nil, errors.NewAuthError(fmt.Sprintf("historian rejected token (status %d)", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		c.metrics.RecordHistorianRequest(ctx, c.mode, resp.StatusCode, time.Since(start), 0)
		return nil, errors.NewNetworkError(fmt.Sprintf("historian returned status %d for %s", resp.StatusCode, tag), nil).
			WithContext("body", truncate(string(body), 256))
	}

	var payload dataResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewParsingError("failed to decode historian response", err)
	}
	if payload.ErrorCode != 0 {
		return nil, errors.NewNetworkError(fmt.Sprintf("historian error %d: %s", payload.ErrorCode, payload.ErrorMessage), nil)
	}

	var points []Point
	if len(payload.Data) > 0 {
		points, err = c.filter(payload.Data[0].Samples)
		if err != nil {
			return nil, err
		}
	}

	c.metrics.RecordHistorianRequest(ctx, c.mode, resp.StatusCode, time.Since(start), len(points))
	c.logger.DebugContext(ctx, "Tag retrieved",
		slog.String("tag", tag),
		slog.Int("samples", len(points)),
		slog.Duration("duration", time.Since(start)))

	return points, nil
}

func (c *Client) filter(samples []sampleRecord) ([]Point, error) {
	points := make([]Point, 0, len(samples))
	var last time.Time
	for _, s := range samples {
		if c.mode != ModeSampled && s.Quality != QualityGood {
			continue
		}
		ts, err := parseTimestamp(s.TimeStamp)
		if err != nil {
			return nil, errors.NewParsingError("bad sample timestamp", err)
		}
		if len(points) > 0 && ts.Equal(last) {
			continue
		}
		value := parseSampleValue(s.Value)
		if c.mode == ModeSampled && s.Quality == QualityBad {
			value = math.NaN()
		}
		points = append(points, Point{Time: ts, Value: value})
		last = ts
	}
	return points, nil
}

func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		ts, err = time.Parse("2006-01-02T15:04:05", s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return ts.Truncate(time.Second), nil
}

// parseSampleValue accepts numbers, numeric strings and booleans; anything else is NaN
func parseSampleValue(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return math.NaN()
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true", "on":
			return 1
		case "false", "off":
			return 0
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return v
		}
		return math.NaN()
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		if flag {
			return 1
		}
		return 0
	}
	return math.NaN()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
