package domain

// FeeConfig holds market fee rates as fractions in [0,1).
type FeeConfig struct {
	BuyOrderFeeRate  float64 `json:"buyOrderFeeRate"`
	SellOrderFeeRate float64 `json:"sellOrderFeeRate"`
	TaxRate          float64 `json:"taxRate"`
}

// Profit is the fee-adjusted result of buying at one price and selling at another.
type Profit struct {
	NetProfit     float64
	ProfitPercent float64
}

// ComputeProfit applies the buy-side order fee to the cost basis and the
// sell-side order fee plus tax to the proceeds. A non-positive price on
// either side yields a zero Profit.
func ComputeProfit(buyPrice, sellPrice float64, fees FeeConfig) Profit {
	if buyPrice <= 0 || sellPrice <= 0 {
		return Profit{}
	}

	costBasis := buyPrice * (1 + fees.BuyOrderFeeRate)
	netSell := sellPrice * (1 - fees.SellOrderFeeRate - fees.TaxRate)
	netProfit := netSell - costBasis

	return Profit{
		NetProfit:     netProfit,
		ProfitPercent: 100 * netProfit / costBasis,
	}
}
