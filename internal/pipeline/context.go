package pipeline

import (
	"regexp"
	"strings"
)

const catalogKey = "Catalog"

// Some exports carry cabinet dimension markers like "W=30 H=34.5 D=24" as
// Text lines. They look like attributes but are per-item noise and must not
// enter the context.
var dimensionMarker = regexp.MustCompile(`W=.*H=.*D=`)

// BrandLookup resolves a catalog id to a display brand. Implementations
// degrade to returning the catalog id itself when no brand is known.
type BrandLookup interface {
	GetBrand(catalogID string) string
}

// contextTracker accumulates the key=value attributes announced by Text
// markers, in document order. The catalog slot is special: it stores the
// brand resolved for the raw catalog value, and the raw values are kept
// separately for order-level aggregation.
type contextTracker struct {
	brands       BrandLookup
	values       map[string]string
	catalogs     []string
	seenCatalogs map[string]struct{}
}

func newContextTracker(brands BrandLookup) *contextTracker {
	return &contextTracker{
		brands:       brands,
		values:       map[string]string{},
		seenCatalogs: map[string]struct{}{},
	}
}

// processMarker folds one marker label into the context. Labels without an
// "=" and dimension markers are ignored; a repeated key overwrites its prior
// value.
func (t *contextTracker) processMarker(label string) {
	if !strings.Contains(label, "=") {
		return
	}
	if dimensionMarker.MatchString(label) {
		return
	}

	key, value, _ := strings.Cut(label, "=")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if key != catalogKey {
		t.values[key] = value
		return
	}

	if _, ok := t.seenCatalogs[value]; !ok {
		t.seenCatalogs[value] = struct{}{}
		t.catalogs = append(t.catalogs, value)
	}

	stored := value
	if t.brands != nil {
		if brand := t.brands.GetBrand(value); brand != "" {
			stored = brand
		}
	}
	t.values[catalogKey] = stored
}

// snapshot returns an independent copy of the current context so later
// markers never retroactively change earlier line items.
func (t *contextTracker) snapshot() map[string]string {
	out := make(map[string]string, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

func (t *contextTracker) catalogsSeen() []string {
	out := make([]string, len(t.catalogs))
	copy(out, t.catalogs)
	return out
}
