package domain

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"testing"

	"github.com/fd1az/albion-market-router/internal/apperror"
)

func TestDefault_LoadsEmbeddedAsset(t *testing.T) {
	c := Default()

	if got := c.KnownItemCount(); got != 10 {
		t.Errorf("KnownItemCount() = %d, want 10", got)
	}
	ids := c.KnownItemIDs()
	if ids[0] != "T4_BAG" || ids[len(ids)-1] != "T4_ORE" {
		t.Errorf("KnownItemIDs() not in asset order: %v", ids)
	}
	if got := len(c.AutoScanItems(0)); got != 32 {
		t.Errorf("len(AutoScanItems(0)) = %d, want 32", got)
	}
	if got := c.ScanSource(); got != "curated-liquidity-universe+item-meta-ready" {
		t.Errorf("ScanSource() = %q", got)
	}
}

func TestLookup(t *testing.T) {
	c := Default()

	tests := []struct {
		id           string
		wantName     string
		wantCategory string
	}{
		{"T4_BAG", "Novice's Bag", "Accessories"},
		{"T4_ORE", "Tier 4 Ore", "Resource"},
		{"T6_MAIN_SWORD@2", "Main Sword", CategoryUnknown},
		{"T8_2H_ARCANESTAFF", "2h Arcanestaff", CategoryUnknown},
		{"QUESTITEM_TOKEN_AVALON", "Questitem Token Avalon", CategoryUnknown},
		{"", "Unknown Item", CategoryUnknown},
		{"@1", "Unknown Item", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := c.Lookup(tt.id)
			if got.Name != tt.wantName || got.Category != tt.wantCategory {
				t.Errorf("Lookup(%q) = %q/%q, want %q/%q", tt.id, got.Name, got.Category, tt.wantName, tt.wantCategory)
			}
			if got.ID != tt.id {
				t.Errorf("Lookup(%q).ID = %q", tt.id, got.ID)
			}
		})
	}
}

func TestAutoScanItems_Cap(t *testing.T) {
	c := Default()

	got := c.AutoScanItems(5)
	want := []string{"T4_FIBER", "T4_HIDE", "T4_ORE", "T4_WOOD", "T4_ROCK"}
	if !slices.Equal(got, want) {
		t.Errorf("AutoScanItems(5) = %v, want %v", got, want)
	}
	if got := len(c.AutoScanItems(100)); got != 32 {
		t.Errorf("len(AutoScanItems(100)) = %d, want 32", got)
	}

	got[0] = "MUTATED"
	if c.AutoScanItems(1)[0] != "T4_FIBER" {
		t.Error("AutoScanItems returned shared storage")
	}
}

func TestCoverage(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		ids  []string
		want float64
	}{
		{"empty", nil, 0},
		{"all known", []string{"T4_BAG", "T4_CAPE"}, 100},
		{"one of three", []string{"T4_BAG", "T5_BAG", "T6_BAG"}, 33.33},
		{"none", []string{"T8_BAG"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Coverage(tt.ids); got != tt.want {
				t.Errorf("Coverage(%v) = %v, want %v", tt.ids, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	data := []byte(`{
		"items": [
			{"id": "A", "name": "Alpha", "category": "Misc"},
			{"id": "A", "name": "Duplicate", "category": "Misc"},
			{"id": "B", "name": "", "category": "Misc"}
		],
		"autoScan": ["A", "A", " ", "C"]
	}`)

	c, err := Load(data)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.KnownItemCount() != 1 || c.Lookup("A").Name != "Alpha" {
		t.Errorf("items = %v", c.KnownItemIDs())
	}
	if got := c.AutoScanItems(0); !slices.Equal(got, []string{"A", "C"}) {
		t.Errorf("AutoScanItems(0) = %v", got)
	}

	empty, err := Load([]byte(`{"autoScan": ["A"]}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if empty.ScanSource() != "curated-liquidity-universe" {
		t.Errorf("ScanSource() = %q without metadata", empty.ScanSource())
	}

	_, err = Load([]byte(`not json`))
	if apperror.GetCode(err) != apperror.CodeCatalogLoadFailed {
		t.Errorf("Load(invalid) code = %s", apperror.GetCode(err))
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.StatusCode != http.StatusInternalServerError || appErr.Context != "catalog data" {
		t.Errorf("Load(invalid) = %+v, want 500 with context", appErr)
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("Load(invalid) does not wrap the decode error: %v", err)
	}
}
