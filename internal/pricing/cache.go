package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"s2j/internal"
	"s2j/internal/util"
)

const (
	catalogCol    = 0
	brandCol      = 1
	multiplierCol = 2
	marginCol     = 3
)

// Cache answers catalog lookups from an in-memory copy of the pricing sheet,
// refreshing from the store when the copy is older than maxAge. Unknown
// catalogs degrade to a sentinel entry instead of failing. Not safe for
// concurrent use; a redundant refresh is wasteful but never incorrect.
type Cache struct {
	store       Store
	maxAge      time.Duration
	items       map[string]internal.CatalogItem
	rows        map[string]int
	lastUpdated time.Time
}

func NewCache(store Store, maxAge time.Duration) *Cache {
	return &Cache{
		store:  store,
		maxAge: maxAge,
		items:  map[string]internal.CatalogItem{},
		rows:   map[string]int{},
	}
}

// Get returns the pricing entry for a catalog id. A catalog absent from the
// sheet yields a sentinel carrying the id as its own brand and nil factors.
func (c *Cache) Get(catalogID string) internal.CatalogItem {
	c.ensureFresh()
	if item, ok := c.items[catalogID]; ok {
		return item
	}
	fmt.Printf("WARN: no pricing entry for catalog %q, answering with null factors\n", catalogID)
	return internal.CatalogItem{CatalogID: catalogID, Brand: util.StringPtr(catalogID)}
}

// GetBrand implements pipeline.BrandLookup. A known catalog with an empty
// brand cell returns "", letting the caller keep the raw catalog value.
func (c *Cache) GetBrand(catalogID string) string {
	item := c.Get(catalogID)
	if item.Brand == nil {
		return ""
	}
	return *item.Brand
}

// Set writes pricing factors through to the store, updating the catalog's
// existing row or appending a new one, and unconditionally invalidates the
// cache. Store failures surface as false, never as a raised error.
func (c *Cache) Set(catalogID string, multiplier, margin float64) bool {
	fmt.Printf("INFO: setting pricing for %q to multiplier=%v margin=%v\n", catalogID, multiplier, margin)
	if err := c.refresh(); err != nil {
		fmt.Printf("WARN: pricing refresh before write failed: %v\n", err)
		c.Invalidate()
		return false
	}

	var err error
	if row, ok := c.rows[catalogID]; ok {
		err = c.store.UpdatePricing(row, multiplier, margin)
	} else {
		err = c.store.AppendRow([]string{
			catalogID,
			"",
			strconv.FormatFloat(multiplier, 'f', -1, 64),
			strconv.FormatFloat(margin, 'f', -1, 64),
		})
	}

	c.Invalidate()
	if err != nil {
		fmt.Printf("WARN: failed to write pricing for %q: %v\n", catalogID, err)
		return false
	}
	return true
}

// Invalidate forces the next read to reload from the store.
func (c *Cache) Invalidate() {
	c.lastUpdated = time.Time{}
}

func (c *Cache) ensureFresh() {
	if time.Since(c.lastUpdated) <= c.maxAge {
		return
	}
	if err := c.refresh(); err != nil {
		// Serve whatever we have; the store remains the source of truth.
		fmt.Printf("WARN: pricing cache refresh failed: %v\n", err)
	}
}

func (c *Cache) refresh() error {
	values, err := c.store.AllValues()
	if err != nil {
		return err
	}

	items := map[string]internal.CatalogItem{}
	rows := map[string]int{}
	for i := 1; i < len(values); i++ {
		row := values[i]
		if len(row) <= catalogCol {
			continue
		}
		catalogID := strings.TrimSpace(row[catalogCol])
		if catalogID == "" {
			continue
		}

		item := internal.CatalogItem{CatalogID: catalogID}
		if len(row) > brandCol {
			if brand := strings.TrimSpace(row[brandCol]); brand != "" {
				item.Brand = util.StringPtr(brand)
			}
		}
		item.Multiplier = parseCell(row, multiplierCol)
		item.Margin = parseCell(row, marginCol)

		items[catalogID] = item
		rows[catalogID] = i + 1
	}

	c.items = items
	c.rows = rows
	c.lastUpdated = time.Now()
	fmt.Printf("INFO: pricing cache refreshed with %d catalogs\n", len(items))
	return nil
}

func parseCell(row []string, col int) *float64 {
	if len(row) <= col {
		return nil
	}
	s := strings.TrimSpace(row[col])
	if s == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
