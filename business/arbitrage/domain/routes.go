package domain

import (
	"time"

	marketDomain "github.com/fd1az/albion-market-router/business/market/domain"
)

// GenerateRoutes scores every (source, target) pair of one item's quotes,
// including source == target, and keeps the strictly profitable ones in
// input iteration order.
func GenerateRoutes(quotes []marketDomain.PriceQuote, fees FeeConfig, now time.Time) []Opportunity {
	var routes []Opportunity

	for _, source := range quotes {
		for _, target := range quotes {
			buy := source.LowestSellOrder
			sell := target.HighestBuyOrder

			p := ComputeProfit(buy, sell, fees)
			if p.NetProfit <= 0 {
				continue
			}

			routeType := RouteTransport
			if source.Location == target.Location {
				routeType = RouteFlip
			}

			routes = append(routes, Opportunity{
				ItemID:         source.ItemID,
				From:           source.Location,
				To:             target.Location,
				BuyPrice:       buy,
				SellPrice:      sell,
				NetProfit:      p.NetProfit,
				ProfitPercent:  p.ProfitPercent,
				RouteType:      routeType,
				DataAgeMinutes: DataAgeMinutes(now, source.LowestSellOrderAt, target.HighestBuyOrderAt),
				FeesApplied:    fees,
			})
		}
	}

	return routes
}

// ItemRoutes holds the generated routes of one item.
type ItemRoutes struct {
	ItemID string
	Routes []Opportunity
}

// GroupByItem splits quotes per item, preserving first-seen item order, and
// generates routes for each group. Items without any profitable route are
// still listed with an empty slice.
func GroupByItem(quotes []marketDomain.PriceQuote, fees FeeConfig, now time.Time) []ItemRoutes {
	order := make([]string, 0)
	byItem := make(map[string][]marketDomain.PriceQuote)

	for _, q := range quotes {
		if _, ok := byItem[q.ItemID]; !ok {
			order = append(order, q.ItemID)
		}
		byItem[q.ItemID] = append(byItem[q.ItemID], q)
	}

	groups := make([]ItemRoutes, 0, len(order))
	for _, id := range order {
		groups = append(groups, ItemRoutes{
			ItemID: id,
			Routes: GenerateRoutes(byItem[id], fees, now),
		})
	}
	return groups
}
