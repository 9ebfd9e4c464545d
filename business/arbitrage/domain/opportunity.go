// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"math"
	"time"

	marketDomain "github.com/fd1az/albion-market-router/business/market/domain"
)

// RouteType distinguishes same-city flips from cross-city transports.
type RouteType string

const (
	RouteFlip      RouteType = "flip"
	RouteTransport RouteType = "transport"
)

// UnknownDataAge is reported when neither quote timestamp is known, so any
// freshness filter rejects the route.
const UnknownDataAge = 999999

// Opportunity is a scored route: buy at From's lowest sell order, sell to
// To's highest buy order.
type Opportunity struct {
	ItemID         string                `json:"itemId"`
	From           marketDomain.Location `json:"fromCity"`
	To             marketDomain.Location `json:"toCity"`
	BuyPrice       float64               `json:"buyPrice"`
	SellPrice      float64               `json:"sellPrice"`
	NetProfit      float64               `json:"netProfit"`
	ProfitPercent  float64               `json:"profitPercent"`
	RouteType      RouteType             `json:"routeType"`
	DataAgeMinutes int                   `json:"dataAgeMinutes"`
	FeesApplied    FeeConfig             `json:"feesApplied"`
}

// IsFlip reports whether the route starts and ends in the same city.
func (o Opportunity) IsFlip() bool {
	return o.RouteType == RouteFlip
}

// DataAgeMinutes returns whole minutes between now and the older of the
// known timestamps, never negative. Zero timestamps are treated as unknown.
func DataAgeMinutes(now time.Time, timestamps ...time.Time) int {
	var oldest time.Time
	for _, ts := range timestamps {
		if ts.IsZero() {
			continue
		}
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
	}
	if oldest.IsZero() {
		return UnknownDataAge
	}

	minutes := math.Round(now.Sub(oldest).Minutes())
	if minutes < 0 {
		return 0
	}
	return int(minutes)
}
