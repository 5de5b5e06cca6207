package pricing

import (
	"errors"
	"testing"
	"time"
)

type updateCall struct {
	row                int
	multiplier, margin float64
}

type fakeStore struct {
	values   [][]string
	err      error
	updates  []updateCall
	appended [][]string
}

func (f *fakeStore) AllValues() ([][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.values, nil
}

func (f *fakeStore) UpdatePricing(row int, multiplier, margin float64) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, updateCall{row: row, multiplier: multiplier, margin: margin})
	return nil
}

func (f *fakeStore) AppendRow(values []string) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, values)
	return nil
}

func sheet() [][]string {
	return [][]string{
		{"CatalogID", "Brand", "Multiplier", "Margin"},
		{"CAT1", "Acme Cabinets", "1.5", "0.3"},
		{"CAT2", "", "", "bad"},
	}
}

func TestCacheGetHit(t *testing.T) {
	cache := NewCache(&fakeStore{values: sheet()}, time.Hour)

	item := cache.Get("CAT1")
	if item.Brand == nil || *item.Brand != "Acme Cabinets" {
		t.Fatalf("brand = %v", item.Brand)
	}
	if item.Multiplier == nil || *item.Multiplier != 1.5 {
		t.Fatalf("multiplier = %v", item.Multiplier)
	}
	if item.Margin == nil || *item.Margin != 0.3 {
		t.Fatalf("margin = %v", item.Margin)
	}
}

func TestCacheSentinelOnMiss(t *testing.T) {
	cache := NewCache(&fakeStore{values: sheet()}, time.Hour)

	item := cache.Get("NOPE")
	if item.CatalogID != "NOPE" {
		t.Fatalf("catalog = %q", item.CatalogID)
	}
	if item.Brand == nil || *item.Brand != "NOPE" {
		t.Fatalf("sentinel brand = %v", item.Brand)
	}
	if item.Multiplier != nil || item.Margin != nil {
		t.Fatalf("sentinel should carry null factors: %+v", item)
	}
}

func TestCacheServesStaleCopyUntilInvalidated(t *testing.T) {
	store := &fakeStore{values: sheet()}
	cache := NewCache(store, time.Hour)

	cache.Get("CAT1")
	store.values = append(store.values, []string{"CAT3", "Nova", "2", "0.1"})

	if item := cache.Get("CAT3"); item.Multiplier != nil {
		t.Fatalf("fresh cache should not see new rows: %+v", item)
	}

	cache.Invalidate()
	if item := cache.Get("CAT3"); item.Multiplier == nil || *item.Multiplier != 2 {
		t.Fatalf("invalidated cache missed new row: %+v", item)
	}
}

func TestCacheGetBrand(t *testing.T) {
	cache := NewCache(&fakeStore{values: sheet()}, time.Hour)

	if got := cache.GetBrand("CAT1"); got != "Acme Cabinets" {
		t.Fatalf("got %q", got)
	}
	if got := cache.GetBrand("CAT2"); got != "" {
		t.Fatalf("empty brand cell should return empty, got %q", got)
	}
}

func TestCacheSetUpdatesExistingRow(t *testing.T) {
	store := &fakeStore{values: sheet()}
	cache := NewCache(store, time.Hour)

	if !cache.Set("CAT1", 1.75, 0.25) {
		t.Fatal("set failed")
	}
	if len(store.updates) != 1 {
		t.Fatalf("updates = %+v", store.updates)
	}
	got := store.updates[0]
	if got.row != 2 || got.multiplier != 1.75 || got.margin != 0.25 {
		t.Fatalf("update = %+v", got)
	}
	if len(store.appended) != 0 {
		t.Fatalf("unexpected append: %+v", store.appended)
	}
}

func TestCacheSetAppendsNewRow(t *testing.T) {
	store := &fakeStore{values: sheet()}
	cache := NewCache(store, time.Hour)

	if !cache.Set("CAT9", 2, 0.5) {
		t.Fatal("set failed")
	}
	if len(store.appended) != 1 {
		t.Fatalf("appended = %+v", store.appended)
	}
	row := store.appended[0]
	if row[0] != "CAT9" || row[2] != "2" || row[3] != "0.5" {
		t.Fatalf("row = %v", row)
	}
}

func TestCacheSetStoreFailure(t *testing.T) {
	cache := NewCache(&fakeStore{err: errors.New("boom")}, time.Hour)
	if cache.Set("CAT1", 1, 1) {
		t.Fatal("store failure should report false")
	}
}
