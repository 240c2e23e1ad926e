package stub

import (
	"context"
	"fmt"
	"sync"

	"diamond-token/internal/oracle"
)

// Oracle implements oracle.Oracle from a fixed table of quotes.
// Safe for concurrent use; quotes may be replaced while serving.
type Oracle struct {
	mu     sync.RWMutex
	quotes map[string]oracle.Quote
	err    error
}

var _ oracle.Oracle = (*Oracle)(nil)

// NewOracle creates an empty stub oracle.
func NewOracle() *Oracle {
	return &Oracle{quotes: make(map[string]oracle.Quote)}
}

// SetQuote sets the quote served for feedID.
func (o *Oracle) SetQuote(feedID string, q oracle.Quote) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes[feedID] = q
}

// SetError makes every lookup fail with err. Pass nil to clear.
func (o *Oracle) SetError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// LatestQuote returns the configured quote for feedID.
func (o *Oracle) LatestQuote(_ context.Context, feedID string) (*oracle.Quote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.err != nil {
		return nil, o.err
	}
	q, ok := o.quotes[feedID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", oracle.ErrFeedNotFound, feedID)
	}
	return &q, nil
}
