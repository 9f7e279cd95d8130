package common

import "time"

// Proxy cache TTLs, in two tiers:
//
// Tier 1, quotes: listings and single-asset records move with the market and
// are held for one minute.
//
// Tier 2, slow data: price history, search results and global totals change
// slowly relative to a browsing session and are held for five minutes.
const (
	FreshnessListings = 60 * time.Second
	FreshnessAsset    = 60 * time.Second
	FreshnessHistory  = 5 * time.Minute
	FreshnessSearch   = 5 * time.Minute
	FreshnessGlobal   = 5 * time.Minute
)
