package models

// AssetDetail is the provider's rich coin record, served unchanged by the
// full-detail route. Monetary fields are keyed by quote currency.
type AssetDetail struct {
	ID            string            `json:"id"`
	Symbol        string            `json:"symbol"`
	Name          string            `json:"name"`
	Image         DetailImage       `json:"image"`
	MarketCapRank int               `json:"market_cap_rank"`
	MarketData    DetailMarketData  `json:"market_data"`
	Description   map[string]string `json:"description"`
	Links         DetailLinks       `json:"links"`
}

// DetailImage holds icon URLs in three sizes.
type DetailImage struct {
	Thumb string `json:"thumb"`
	Small string `json:"small"`
	Large string `json:"large"`
}

// DetailMarketData holds the market section of AssetDetail.
type DetailMarketData struct {
	CurrentPrice             map[string]float64 `json:"current_price"`
	MarketCap                map[string]float64 `json:"market_cap"`
	MarketCapRank            int                `json:"market_cap_rank"`
	PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
	TotalVolume              map[string]float64 `json:"total_volume"`
	High24h                  map[string]float64 `json:"high_24h"`
	Low24h                   map[string]float64 `json:"low_24h"`
	ATH                      map[string]float64 `json:"ath"`
	ATL                      map[string]float64 `json:"atl"`
	CirculatingSupply        float64            `json:"circulating_supply"`
	TotalSupply              *float64           `json:"total_supply"`
	MaxSupply                *float64           `json:"max_supply"`
}

// DetailLinks holds external links for an asset.
type DetailLinks struct {
	Homepage       []string `json:"homepage"`
	BlockchainSite []string `json:"blockchain_site"`
}

// QuoteCurrency is the currency every flattened value is taken from.
const QuoteCurrency = "usd"

// Asset flattens the rich record into the Asset shape.
func (d *AssetDetail) Asset() Asset {
	rank := d.MarketCapRank
	if rank == 0 {
		rank = d.MarketData.MarketCapRank
	}
	return Asset{
		ID:                       d.ID,
		Name:                     d.Name,
		Symbol:                   d.Symbol,
		Image:                    d.Image.Large,
		CurrentPrice:             d.MarketData.CurrentPrice[QuoteCurrency],
		MarketCap:                d.MarketData.MarketCap[QuoteCurrency],
		MarketCapRank:            rank,
		PriceChangePercentage24h: d.MarketData.PriceChangePercentage24h,
		TotalVolume:              d.MarketData.TotalVolume[QuoteCurrency],
		CirculatingSupply:        d.MarketData.CirculatingSupply,
		TotalSupply:              d.MarketData.TotalSupply,
		MaxSupply:                d.MarketData.MaxSupply,
	}
}

// EnglishDescription returns the English description, if any.
func (d *AssetDetail) EnglishDescription() string {
	return d.Description["en"]
}
