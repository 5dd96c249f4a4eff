package sportsdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	BaseURL = "https://www.thesportsdb.com/api/v1/json"

	// PublicAPIKey is TheSportsDB's shared test key
	PublicAPIKey = "3"

	DefaultMaxAttempts      = 8
	DefaultRateLimitBackoff = 10 * time.Second
	DefaultTimeout          = 20 * time.Second

	UserAgent = "Mozilla/5.0 (compatible; HuddleBot/1.0)"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Observer receives per-request outcomes. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveResponse(endpoint string, statusCode int)
	ObserveRateLimitWait(endpoint string, wait time.Duration)
}

// ClientConfig configures a Client. Zero values fall back to package defaults.
type ClientConfig struct {
	BaseURL          string
	APIKey           string
	HTTPClient       *http.Client
	Timeout          time.Duration
	MaxAttempts      int
	RateLimitBackoff time.Duration
	Observer         Observer
	Logger           *log.Logger
}

// Client fetches schedules from TheSportsDB with bounded retries
type Client struct {
	httpClient       *http.Client
	baseURL          string
	apiKey           string
	maxAttempts      int
	rateLimitBackoff time.Duration
	observer         Observer
	logger           *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a TheSportsDB client
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = BaseURL
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = PublicAPIKey
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	backoff := cfg.RateLimitBackoff
	if backoff <= 0 {
		backoff = DefaultRateLimitBackoff
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[sportsdb] ", log.LstdFlags)
	}

	return &Client{
		httpClient:       httpClient,
		baseURL:          baseURL,
		apiKey:           apiKey,
		maxAttempts:      maxAttempts,
		rateLimitBackoff: backoff,
		observer:         cfg.Observer,
		logger:           logger,
		sleep:            sleepContext,
	}
}

// EventsByDay returns every event TheSportsDB lists for the given UTC calendar day
func (c *Client) EventsByDay(ctx context.Context, day time.Time) ([]RawEvent, error) {
	q := url.Values{}
	q.Set("d", day.UTC().Format("2006-01-02"))

	var env eventsEnvelope
	if err := c.getJSON(ctx, c.endpoint("eventsday.php", q), &env); err != nil {
		return nil, err
	}
	return nonNil(env.Events), nil
}

// EventsBySeason returns the events of one league in one season (e.g. "2024-2025")
func (c *Client) EventsBySeason(ctx context.Context, leagueID int64, season string) ([]RawEvent, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(leagueID, 10))
	q.Set("s", season)

	var env eventsEnvelope
	if err := c.getJSON(ctx, c.endpoint("eventsseason.php", q), &env); err != nil {
		return nil, err
	}
	return nonNil(env.Events), nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	return fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.apiKey, path, q.Encode())
}

// getJSON performs a GET with up to maxAttempts attempts.
// A 429 waits rateLimitBackoff before the next attempt; any other failure retries immediately.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.fetch(ctx, rawURL, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return &FetchError{URL: rawURL, Attempts: attempt, Err: ctxErr}
		}

		if errors.Is(err, ErrRateLimited) {
			if attempt == c.maxAttempts {
				break
			}
			c.logger.Printf("Rate limit reached. Waiting %v before retrying (attempt %d/%d)", c.rateLimitBackoff, attempt, c.maxAttempts)
			if c.observer != nil {
				c.observer.ObserveRateLimitWait(endpointName(rawURL), c.rateLimitBackoff)
			}
			if err := c.sleep(ctx, c.rateLimitBackoff); err != nil {
				return &FetchError{URL: rawURL, Attempts: attempt, Err: err}
			}
			continue
		}

		c.logger.Printf("Attempt %d/%d for %s failed: %v", attempt, c.maxAttempts, endpointName(rawURL), err)
	}

	return &FetchError{URL: rawURL, Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) fetch(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if c.observer != nil {
		c.observer.ObserveResponse(endpointName(rawURL), resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// endpointName extracts the php script name for logs and metric labels
func endpointName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Path[strings.LastIndex(u.Path, "/")+1:]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nonNil(events []RawEvent) []RawEvent {
	if events == nil {
		return []RawEvent{}
	}
	return events
}
