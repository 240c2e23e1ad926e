package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HermesClient implements Oracle against a Pyth Hermes HTTP endpoint.
type HermesClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

var _ Oracle = (*HermesClient)(nil)

// ClientOption configures HermesClient.
type ClientOption func(*HermesClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HermesClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HermesClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HermesClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HermesClient) {
		c.client = client
	}
}

// NewHermesClient creates a client for the Hermes API rooted at endpoint.
func NewHermesClient(endpoint string, opts ...ClientOption) *HermesClient {
	c := &HermesClient{
		endpoint:    strings.TrimRight(endpoint, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// hermesResponse is the body of /v2/updates/price/latest.
type hermesResponse struct {
	Parsed []hermesPriceFeed `json:"parsed"`
}

type hermesPriceFeed struct {
	ID    string      `json:"id"`
	Price hermesPrice `json:"price"`
}

// hermesPrice carries price and conf as decimal strings.
type hermesPrice struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

func (p hermesPrice) toQuote() (*Quote, error) {
	price, err := strconv.ParseInt(p.Price, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", p.Price, err)
	}
	conf, err := strconv.ParseUint(p.Conf, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse conf %q: %w", p.Conf, err)
	}
	return &Quote{Price: price, Conf: conf, Expo: p.Expo, PublishTime: p.PublishTime}, nil
}

// LatestQuote fetches the most recent price for feedID (hex, with or without 0x).
func (c *HermesClient) LatestQuote(ctx context.Context, feedID string) (*Quote, error) {
	q := url.Values{}
	q.Add("ids[]", feedID)
	q.Set("parsed", "true")
	reqURL := c.endpoint + "/v2/updates/price/latest?" + q.Encode()

	var body hermesResponse
	if err := c.get(ctx, reqURL, &body); err != nil {
		return nil, err
	}

	want := normalizeFeedID(feedID)
	for _, feed := range body.Parsed {
		if normalizeFeedID(feed.ID) == want {
			return feed.Price.toQuote()
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFeedNotFound, feedID)
}

// get performs a GET with retries and exponential backoff.
func (c *HermesClient) get(ctx context.Context, reqURL string, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// Unknown feed ids are not retried
			return fmt.Errorf("%w: %s", ErrFeedNotFound, string(respBody))
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode != http.StatusOK:
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func normalizeFeedID(id string) string {
	return strings.ToLower(strings.TrimPrefix(id, "0x"))
}
