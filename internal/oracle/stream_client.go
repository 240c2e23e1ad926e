package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig configures StreamClient behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Logger receives connection errors. Defaults to stdout with an [oracle] prefix.
	Logger *log.Logger
}

// DefaultStreamConfig returns default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// StreamClient implements Oracle by subscribing to Pyth price updates over a
// websocket and serving the latest update per feed from memory.
type StreamClient struct {
	endpoint string
	config   StreamConfig
	logger   *log.Logger
	feeds    []string

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	quotes   map[string]*Quote
	quotesMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

var _ Oracle = (*StreamClient)(nil)

// NewStreamClient connects to endpoint and subscribes to feedIDs.
func NewStreamClient(ctx context.Context, endpoint string, feedIDs []string, config *StreamConfig) (*StreamClient, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[oracle] ", log.LstdFlags)
	}

	feeds := make([]string, len(feedIDs))
	for i, id := range feedIDs {
		feeds[i] = normalizeFeedID(id)
	}

	c := &StreamClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		feeds:    feeds,
		quotes:   make(map[string]*Quote),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	if err := c.subscribe(); err != nil {
		c.closeConn()
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// LatestQuote returns the most recent update received for feedID.
func (c *StreamClient) LatestQuote(_ context.Context, feedID string) (*Quote, error) {
	c.quotesMu.RLock()
	q, ok := c.quotes[normalizeFeedID(feedID)]
	c.quotesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFeedNotFound, feedID)
	}
	cp := *q
	return &cp, nil
}

// Close closes the websocket connection and stops background loops.
func (c *StreamClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *StreamClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

func (c *StreamClient) closeConn() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}

// subscribe sends the subscription for all configured feeds.
// Confirmation arrives asynchronously as a "response" message.
func (c *StreamClient) subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	req := streamRequest{Type: "subscribe", IDs: c.feeds}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads messages and updates the quote cache.
func (c *StreamClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				c.logger.Printf("read failed, reconnecting in %s: %v", reconnectDelay, err)
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect re-dials and resubscribes.
func (c *StreamClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Will retry on next read error
		return
	}
	if err := c.subscribe(); err != nil {
		c.logger.Printf("resubscribe failed: %v", err)
	}
}

func (c *StreamClient) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "price_update":
		if msg.PriceFeed == nil {
			return
		}
		q, err := msg.PriceFeed.Price.toQuote()
		if err != nil {
			c.logger.Printf("bad price update for %s: %v", msg.PriceFeed.ID, err)
			return
		}
		c.store(normalizeFeedID(msg.PriceFeed.ID), q)
	case "response":
		if msg.Status == "error" {
			c.logger.Printf("subscription error: %s", msg.Error)
		}
	}
}

// store keeps q unless a newer quote for the feed is already cached.
func (c *StreamClient) store(feedID string, q *Quote) {
	c.quotesMu.Lock()
	defer c.quotesMu.Unlock()
	if prev, ok := c.quotes[feedID]; ok && prev.PublishTime > q.PublishTime {
		return
	}
	c.quotes[feedID] = q
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *StreamClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// Errors surface in readLoop
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

type streamRequest struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

type streamMessage struct {
	Type      string           `json:"type"`
	Status    string           `json:"status,omitempty"`
	Error     string           `json:"error,omitempty"`
	PriceFeed *hermesPriceFeed `json:"price_feed,omitempty"`
}
