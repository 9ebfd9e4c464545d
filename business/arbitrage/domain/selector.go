package domain

import "slices"

// topPerItem is the group size of ModeTop3.
const topPerItem = 3

// Select reduces the routes of a batch of items according to mode. Sorting
// is stable, so equal net profits keep their generation order.
func Select(groups []ItemRoutes, mode Mode) []Opportunity {
	switch mode {
	case ModeFlips:
		return sortedByNetProfit(filterRoutes(groups, RouteFlip))
	case ModeTransport:
		return sortedByNetProfit(filterRoutes(groups, RouteTransport))
	case ModeTop3:
		return topTransportsPerItem(groups, topPerItem)
	default:
		return bestTransportPerItem(groups)
	}
}

func filterRoutes(groups []ItemRoutes, routeType RouteType) []Opportunity {
	var out []Opportunity
	for _, g := range groups {
		for _, r := range g.Routes {
			if r.RouteType == routeType {
				out = append(out, r)
			}
		}
	}
	return out
}

func sortedByNetProfit(routes []Opportunity) []Opportunity {
	slices.SortStableFunc(routes, func(a, b Opportunity) int {
		switch {
		case a.NetProfit > b.NetProfit:
			return -1
		case a.NetProfit < b.NetProfit:
			return 1
		default:
			return 0
		}
	})
	return routes
}

// topTransportsPerItem walks transports in descending net profit and keeps
// the first n of each item. Item groups are emitted in the order their best
// route appears.
func topTransportsPerItem(groups []ItemRoutes, n int) []Opportunity {
	sorted := sortedByNetProfit(filterRoutes(groups, RouteTransport))

	var order []string
	kept := make(map[string][]Opportunity)
	for _, r := range sorted {
		bucket, seen := kept[r.ItemID]
		if !seen {
			order = append(order, r.ItemID)
		}
		if len(bucket) < n {
			kept[r.ItemID] = append(bucket, r)
		}
	}

	out := make([]Opportunity, 0, len(sorted))
	for _, id := range order {
		out = append(out, kept[id]...)
	}
	return out
}

// bestTransportPerItem keeps the single highest transport route per item.
// The first route seen wins ties.
func bestTransportPerItem(groups []ItemRoutes) []Opportunity {
	var order []string
	best := make(map[string]Opportunity)

	for _, r := range filterRoutes(groups, RouteTransport) {
		current, seen := best[r.ItemID]
		if !seen {
			order = append(order, r.ItemID)
			best[r.ItemID] = r
			continue
		}
		if r.NetProfit > current.NetProfit {
			best[r.ItemID] = r
		}
	}

	out := make([]Opportunity, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return sortedByNetProfit(out)
}
