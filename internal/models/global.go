package models

// GlobalStats holds aggregate market totals.
type GlobalStats struct {
	ActiveCryptocurrencies          int64              `json:"active_cryptocurrencies"`
	Markets                         int64              `json:"markets"`
	TotalMarketCap                  map[string]float64 `json:"total_market_cap"`
	TotalVolume                     map[string]float64 `json:"total_volume"`
	MarketCapPercentage             map[string]float64 `json:"market_cap_percentage"`
	MarketCapChangePercentage24hUSD float64            `json:"market_cap_change_percentage_24h_usd"`
	UpdatedAt                       int64              `json:"updated_at"`
}

// BitcoinDominance returns bitcoin's share of total market cap in percent.
func (g *GlobalStats) BitcoinDominance() float64 {
	return g.MarketCapPercentage["btc"]
}
