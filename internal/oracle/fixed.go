package oracle

import (
	"context"
	"time"
)

// Fixed serves one constant price, stamped with the current time.
// Used for local runs without network access.
type Fixed struct {
	price int64
	conf  uint64
	expo  int32
	now   func() time.Time
}

var _ Oracle = (*Fixed)(nil)

// NewFixed creates a Fixed oracle.
func NewFixed(price int64, conf uint64, expo int32) *Fixed {
	return &Fixed{price: price, conf: conf, expo: expo, now: time.Now}
}

// LatestQuote returns the fixed price for any feed.
func (o *Fixed) LatestQuote(_ context.Context, _ string) (*Quote, error) {
	return &Quote{
		Price:       o.price,
		Conf:        o.conf,
		Expo:        o.expo,
		PublishTime: o.now().Unix(),
	}, nil
}
