package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in     string
		want   Location
		wantOK bool
	}{
		{"Martlock", Martlock, true},
		{"  Fort Sterling ", FortSterling, true},
		{"Black Market", "", false},
		{"Brecilien", "", false},
		{"martlock", "", false},
		{"3005", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLocation(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLocation(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseLocations_DedupesAndRejects(t *testing.T) {
	got, err := ParseLocations([]string{"Lymhurst", "Thetford", "Lymhurst"})
	if err != nil {
		t.Fatalf("ParseLocations() error = %v", err)
	}
	if len(got) != 2 || got[0] != Lymhurst || got[1] != Thetford {
		t.Errorf("got %v", got)
	}

	if _, err := ParseLocations([]string{"Caerleon", "Black Market"}); err == nil {
		t.Error("expected error for unsupported location")
	}
}

func TestDecodeRows(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantRows  int
		malformed bool
	}{
		{name: "array", body: `[{"item_id":"T4_BAG","city":"Martlock","quality":1,"sell_price_min":1000,"buy_price_max":900}]`, wantRows: 1},
		{name: "empty array", body: `[]`, wantRows: 0},
		{name: "object", body: `{"error":"rate limited"}`, malformed: true},
		{name: "null", body: `null`, malformed: true},
		{name: "html", body: `<html>502</html>`, malformed: true},
		{name: "array of scalars", body: `[1,2,3]`, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := DecodeRows([]byte(tt.body))
			if tt.malformed {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Fatalf("err = %v, want ErrMalformedPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeRows() error = %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("len(rows) = %d, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := []RawPriceRow{
		{ItemID: "T4_BAG", City: "Martlock", Quality: 1, SellPriceMin: 1000, SellPriceMinDate: "2024-05-01T11:30:00", BuyPriceMax: 900, BuyPriceMaxDate: "2024-05-01T11:00:00"},
		{ItemID: "T4_BAG", City: "Black Market", Quality: 1, SellPriceMin: 1000, BuyPriceMax: 2000},
		{ItemID: "T4_BAG", City: "Lymhurst", Quality: 1, SellPriceMin: 0, BuyPriceMax: 900},
		{ItemID: "T4_BAG", City: "Thetford", Quality: 1, SellPriceMin: 1200, BuyPriceMax: -1},
		{ItemID: "T4_BAG", City: "Fort Sterling", Quality: 1, SellPriceMin: 1100, SellPriceMinDate: "0001-01-01T00:00:00", BuyPriceMax: 950},
	}

	quotes := Normalize(rows, now)
	if len(quotes) != 2 {
		t.Fatalf("len(quotes) = %d, want 2: %+v", len(quotes), quotes)
	}

	q := quotes[0]
	if q.Location != Martlock || q.LowestSellOrder != 1000 || q.HighestBuyOrder != 900 {
		t.Errorf("unexpected quote %+v", q)
	}
	if want := time.Date(2024, 5, 1, 11, 30, 0, 0, time.UTC); !q.LowestSellOrderAt.Equal(want) {
		t.Errorf("ask timestamp = %v, want %v", q.LowestSellOrderAt, want)
	}

	fs := quotes[1]
	if fs.Location != FortSterling {
		t.Fatalf("second quote location = %q", fs.Location)
	}
	if !fs.LowestSellOrderAt.Equal(now) || !fs.HighestBuyOrderAt.Equal(now) {
		t.Errorf("missing timestamps should fall back to now, got %v / %v", fs.LowestSellOrderAt, fs.HighestBuyOrderAt)
	}
	if !fs.Latest().Equal(now) {
		t.Errorf("Latest() = %v", fs.Latest())
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
	}{
		{"2024-05-01T11:30:00", true},
		{"2024-05-01T11:30:00.123", true},
		{"2024-05-01T11:30:00Z", true},
		{"2024-05-01T13:30:00+02:00", true},
		{"0001-01-01T00:00:00", false},
		{"yesterday", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseTimestamp(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got.Location() != time.UTC {
				t.Errorf("timestamp not normalized to UTC: %v", got)
			}
		})
	}
}
