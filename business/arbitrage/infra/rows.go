package infra

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/albion-market-router/business/arbitrage/app"
	"github.com/fd1az/albion-market-router/business/arbitrage/domain"
	"github.com/fd1az/albion-market-router/pkg/ui/components"
)

// ToRows converts scan listings into display rows. Prices are whole silver,
// profit percent keeps two decimals.
func ToRows(listings []app.Listing) []components.OpportunityRow {
	rows := make([]components.OpportunityRow, 0, len(listings))
	for _, l := range listings {
		age := l.DataAgeMinutes
		if age >= domain.UnknownDataAge {
			age = -1
		}
		rows = append(rows, components.OpportunityRow{
			ItemID:     l.ItemID,
			Name:       l.ItemName,
			From:       string(l.From),
			To:         string(l.To),
			Flip:       l.IsFlip(),
			BuyPrice:   decimal.NewFromFloat(l.BuyPrice).Round(0),
			SellPrice:  decimal.NewFromFloat(l.SellPrice).Round(0),
			NetProfit:  decimal.NewFromFloat(l.NetProfit).Round(0),
			ProfitPct:  decimal.NewFromFloat(l.ProfitPercent).Round(2),
			AgeMinutes: age,
		})
	}
	return rows
}
