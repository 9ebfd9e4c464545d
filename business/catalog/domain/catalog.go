// Package domain provides item display metadata and the curated auto-scan
// universe, loaded once from an embedded data asset.
package domain

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/albion-market-router/internal/apperror"
)

//go:embed data/items.json
var defaultData []byte

const (
	sourceCurated     = "curated-liquidity-universe"
	sourceCuratedMeta = "curated-liquidity-universe+item-meta-ready"
)

type dataFile struct {
	Items    []Item   `json:"items"`
	AutoScan []string `json:"autoScan"`
}

// Catalog is an immutable item index. It is safe for concurrent use.
type Catalog struct {
	byID     map[string]Item
	ids      []string // asset order
	autoScan []string
}

// Load parses a catalog data file. Items without an id, name or category
// are skipped; duplicate ids keep the first entry.
func Load(data []byte) (*Catalog, error) {
	var raw dataFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperror.Internal(apperror.CodeCatalogLoadFailed, "catalog data", err)
	}

	c := &Catalog{byID: make(map[string]Item, len(raw.Items))}
	for _, it := range raw.Items {
		if it.ID == "" || it.Name == "" || it.Category == "" {
			continue
		}
		if _, dup := c.byID[it.ID]; dup {
			continue
		}
		c.byID[it.ID] = it
		c.ids = append(c.ids, it.ID)
	}

	seen := make(map[string]bool, len(raw.AutoScan))
	for _, id := range raw.AutoScan {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		c.autoScan = append(c.autoScan, id)
	}

	return c, nil
}

// Default returns the catalog built from the embedded asset.
func Default() *Catalog {
	c, err := Load(defaultData)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded data is invalid: %v", err))
	}
	return c
}

// Lookup returns metadata for id, or a humanized fallback with category
// Unknown. It never fails.
func (c *Catalog) Lookup(id string) Item {
	if it, ok := c.byID[id]; ok {
		return it
	}
	return fallbackItem(id)
}

// Has reports whether id has catalog metadata.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// KnownItemIDs returns the ids with metadata, in asset order.
func (c *Catalog) KnownItemIDs() []string {
	return slices.Clone(c.ids)
}

// KnownItemCount returns the number of items with metadata.
func (c *Catalog) KnownItemCount() int {
	return len(c.ids)
}

// AutoScanItems returns the curated liquidity universe, capped at limit.
// A non-positive limit returns the whole universe.
func (c *Catalog) AutoScanItems(limit int) []string {
	if limit <= 0 || limit > len(c.autoScan) {
		limit = len(c.autoScan)
	}
	return slices.Clone(c.autoScan[:limit])
}

// ScanSource labels where the auto-scan universe came from.
func (c *Catalog) ScanSource() string {
	if len(c.ids) > 0 {
		return sourceCuratedMeta
	}
	return sourceCurated
}

// Coverage returns the percentage of ids with catalog metadata, rounded to
// two decimals. An empty list has zero coverage.
func (c *Catalog) Coverage(ids []string) float64 {
	if len(ids) == 0 {
		return 0
	}
	known := 0
	for _, id := range ids {
		if c.Has(id) {
			known++
		}
	}
	pct := decimal.NewFromInt(int64(known)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(len(ids))))
	return pct.Round(2).InexactFloat64()
}
