package feed

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ParseAMMPools decodes the result of an amm_info call into pool entries.
// Pools always pair against XRP; the fee field is the ledger default when the
// response does not carry one.
func ParseAMMPools(raw json.RawMessage) ([]AMMPool, error) {
	var result struct {
		AMM []struct {
			Asset struct {
				Currency string `json:"currency"`
			} `json:"asset"`
			Amount struct {
				Value string `json:"value"`
			} `json:"amount"`
			LPToken struct {
				Value string `json:"value"`
			} `json:"lp_token"`
		} `json:"amm"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, "could not decode amm_info result")
	}

	pools := make([]AMMPool, 0, len(result.AMM))
	for _, amm := range result.AMM {
		currency := amm.Asset.Currency
		if currency == "" {
			currency = "Unknown"
		}
		pools = append(pools, AMMPool{
			TokenA:     currency,
			TokenB:     "XRP",
			LiquidityA: amm.Amount.Value,
			LiquidityB: amm.LPToken.Value,
			TradingFee: "0.1",
		})
	}
	return pools, nil
}
