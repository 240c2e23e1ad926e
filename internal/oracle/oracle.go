// Package oracle provides time-stamped price quotes for the volatile
// payment asset. Quotes follow the Pyth layout: the real price is
// Price * 10^Expo, with Conf as the confidence interval in the same units.
package oracle

import (
	"context"
	"errors"
)

//go:generate mockgen -source=oracle.go -destination=mocks/mocks.go -package=mocks Oracle

// ErrFeedNotFound is returned when the oracle has no quote for a feed.
var ErrFeedNotFound = errors.New("price feed not found")

// Quote is one published price.
type Quote struct {
	Price       int64
	Conf        uint64
	Expo        int32
	PublishTime int64 // unix seconds
}

// Oracle returns the latest quote for a feed.
type Oracle interface {
	LatestQuote(ctx context.Context, feedID string) (*Quote, error)
}
