package models

// Asset is a single cryptocurrency and its market metrics, in the flat shape
// served by the listings and asset routes. Values are quoted in USD.
type Asset struct {
	ID                       string   `json:"id"`
	Name                     string   `json:"name"`
	Symbol                   string   `json:"symbol"`
	Image                    string   `json:"image"`
	CurrentPrice             float64  `json:"current_price"`
	MarketCap                float64  `json:"market_cap"`
	MarketCapRank            int      `json:"market_cap_rank"`
	PriceChangePercentage24h float64  `json:"price_change_percentage_24h"`
	TotalVolume              float64  `json:"total_volume"`
	CirculatingSupply        float64  `json:"circulating_supply"`
	TotalSupply              *float64 `json:"total_supply"`
	MaxSupply                *float64 `json:"max_supply"` // nil = unbounded
}

// Unbounded reports whether the asset has no maximum supply.
func (a *Asset) Unbounded() bool {
	return a.MaxSupply == nil
}

// SearchResult is the lightweight record returned by the search route.
type SearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Thumb         string `json:"thumb"`
	MarketCapRank *int   `json:"market_cap_rank,omitempty"`
}

// SearchResponse is the body of the search route.
type SearchResponse struct {
	Coins []SearchResult `json:"coins"`
}
