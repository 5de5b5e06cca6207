package pipeline

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"s2j/internal"
	"s2j/internal/util"
)

// Attributes whose value is promoted into the line item's display name.
var titleWorthyKeys = map[string]struct{}{
	"Door Selection": {},
	"Cabinet Style":  {},
}

const priceLevelKey = "pricelevel"

// Synthesize renders the Jobber-facing name and description for a parsed
// line. It is a pure function of (catalog, description, attributes): the same
// input always yields byte-identical output, including the S2J hash suffix
// that identifies the logical product across runs.
func Synthesize(item internal.OrderLine) internal.QuoteLine {
	nameParts := []string{item.Catalog, util.StripBraces(item.Description)}

	keys := make([]string, 0, len(item.Attributes))
	for key := range item.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	descLines := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.ToLower(strings.TrimSpace(key)) == priceLevelKey {
			continue
		}
		value := item.Attributes[key]
		descLines = append(descLines, key+": "+value)
		if _, ok := titleWorthyKeys[key]; ok {
			nameParts = append(nameParts, value)
		}
	}

	baseName := joinNonEmpty(nameParts, " | ")
	description := strings.Join(descLines, "\n")

	line := internal.QuoteLine{
		Name:                      fmt.Sprintf("%s | S2J(%s)", baseName, shortHash(baseName+description)),
		Description:               description,
		Quantity:                  item.Quantity,
		UnitPrice:                 item.Cost,
		Taxable:                   false,
		SaveToProductsAndServices: true,
	}
	if item.Cost > 0 {
		line.UnitCost = util.FloatPtr(item.Cost)
	}
	return line
}

// SynthesizeOrder maps every product line of an order, multiplying quantities
// by the requested number of order copies.
func SynthesizeOrder(order internal.Order, copies int) []internal.QuoteLine {
	if copies < 1 {
		copies = 1
	}
	out := make([]internal.QuoteLine, 0, len(order.Lines))
	for _, item := range order.Lines {
		line := Synthesize(item)
		line.Quantity *= float64(copies)
		out = append(out, line)
	}
	return out
}

func shortHash(signature string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(signature))
	return fmt.Sprintf("%08x", h.Sum32())[:6]
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
