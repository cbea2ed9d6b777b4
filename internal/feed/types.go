package feed

import "encoding/json"

// Launch is one XPMarket token launch. The upstream id increases
// monotonically and is the dedup ordering key; records are immutable once
// observed.
type Launch struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Ticker      string      `json:"ticker"`
	Price       json.Number `json:"price"`
	Liquidity   json.Number `json:"liquidity"`
	Holders     int64       `json:"holders"`
	Twitter     string      `json:"twitter"`
	Address     string      `json:"address"`
	PriceChange *float64    `json:"priceChange"`
	CreatedAt   string      `json:"created_at"`
	Logo        string      `json:"logo"`
}

// Token is one FirstLedger token listing. FirstLedger exposes far less
// detail than XPMarket; it feeds the /check aggregate view only.
type Token struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Twitter string `json:"twitter"`
}

// AMMPool is one decoded amm_info pool entry.
type AMMPool struct {
	TokenA     string
	TokenB     string
	LiquidityA string
	LiquidityB string
	TradingFee string
}
