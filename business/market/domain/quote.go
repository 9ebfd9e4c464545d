package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedPayload marks an upstream body that is not a JSON array of
// price rows.
var ErrMalformedPayload = errors.New("malformed price payload")

// PriceQuote is the best bid and best ask for one item at one location and
// quality tier. Quotes leaving Normalize always carry positive prices and
// non-zero timestamps.
type PriceQuote struct {
	ItemID            string    `json:"itemId"`
	Location          Location  `json:"location"`
	Quality           int       `json:"quality"`
	HighestBuyOrder   float64   `json:"highestBuyOrder"`
	LowestSellOrder   float64   `json:"lowestSellOrder"`
	HighestBuyOrderAt time.Time `json:"highestBuyOrderTimestamp"`
	LowestSellOrderAt time.Time `json:"lowestSellOrderTimestamp"`
}

// Latest returns the newer of the two observation timestamps.
func (q PriceQuote) Latest() time.Time {
	if q.HighestBuyOrderAt.After(q.LowestSellOrderAt) {
		return q.HighestBuyOrderAt
	}
	return q.LowestSellOrderAt
}

// RawPriceRow is one row of the Albion Data Project prices endpoint.
type RawPriceRow struct {
	ItemID           string  `json:"item_id"`
	City             string  `json:"city"`
	Quality          int     `json:"quality"`
	SellPriceMin     float64 `json:"sell_price_min"`
	SellPriceMinDate string  `json:"sell_price_min_date"`
	BuyPriceMax      float64 `json:"buy_price_max"`
	BuyPriceMaxDate  string  `json:"buy_price_max_date"`
}

// DecodeRows parses an upstream body. Anything other than a JSON array of
// objects is ErrMalformedPayload; individual rows are filtered later.
func DecodeRows(body []byte) ([]RawPriceRow, error) {
	var rows []RawPriceRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if rows == nil {
		// "null" decodes without error but is not an array.
		return nil, fmt.Errorf("%w: body is not an array", ErrMalformedPayload)
	}
	return rows, nil
}

// Normalize converts raw rows into quotes, dropping rows for unsupported
// locations or without liquidity on either side. Missing timestamps fall
// back to now.
func Normalize(rows []RawPriceRow, now time.Time) []PriceQuote {
	quotes := make([]PriceQuote, 0, len(rows))
	for _, row := range rows {
		loc, ok := ParseLocation(row.City)
		if !ok {
			continue
		}
		if row.BuyPriceMax <= 0 || row.SellPriceMin <= 0 {
			continue
		}

		quotes = append(quotes, PriceQuote{
			ItemID:            row.ItemID,
			Location:          loc,
			Quality:           row.Quality,
			HighestBuyOrder:   row.BuyPriceMax,
			LowestSellOrder:   row.SellPriceMin,
			HighestBuyOrderAt: timestampOr(row.BuyPriceMaxDate, now),
			LowestSellOrderAt: timestampOr(row.SellPriceMinDate, now),
		})
	}
	return quotes
}

// upstreamLayouts are tried in order. The prices endpoint reports zone-less
// UTC timestamps.
var upstreamLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses an upstream timestamp. The zero year placeholder the
// upstream uses for "never observed" is reported as not ok.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range upstreamLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() <= 1 {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

func timestampOr(s string, fallback time.Time) time.Time {
	if t, ok := ParseTimestamp(s); ok {
		return t
	}
	return fallback
}
