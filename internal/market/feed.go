package market

import (
	"context"
	"errors"
)

// ErrFeedUnavailable is returned when the upstream price source cannot
// be reached. The engine surfaces it instead of inventing prices.
var ErrFeedUnavailable = errors.New("price feed unavailable")

// PriceFeed supplies the current price for each asset in the catalog.
type PriceFeed interface {
	// Fetch returns the current price point per asset id.
	Fetch(ctx context.Context, assets []Asset) (map[string]PricePoint, error)
}
