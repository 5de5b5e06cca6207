package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"s2j/internal"
	"s2j/internal/saberis"
)

const exportDateLayout = "2006.01.02"

const unknownCatalog = "Unknown Catalog"

var canadianProvinces = map[string]struct{}{
	"AB": {}, "BC": {}, "MB": {}, "NB": {}, "NL": {}, "NS": {}, "NT": {},
	"NU": {}, "ON": {}, "PE": {}, "QC": {}, "SK": {}, "YT": {},
}

// ParseOrder runs a single forward pass over the export's line records,
// feeding Text markers into the context tracker and binding a context
// snapshot to every Product record. Aggregates are accumulated from each
// item's own finalized catalog, never the live context.
func ParseOrder(doc saberis.Document, brands BrandLookup) internal.Order {
	order := internal.Order{
		Username:     fallback(doc.Username, "unknown"),
		CustomerName: fallback(doc.CustomerName, "Unnamed Client"),
		CreatedAt:    parseExportDate(doc.Date),
		CatalogCosts: map[string]float64{},
	}

	order.Shipping = internal.ShippingAddress{
		Street1:    doc.Shipping.Address,
		City:       doc.Shipping.City,
		Province:   doc.Shipping.Province,
		PostalCode: doc.Shipping.PostalCode,
		Country:    countryForProvince(doc.Shipping.Province),
	}

	tracker := newContextTracker(brands)

	for _, raw := range doc.Lines {
		switch strings.ToLower(raw.Kind) {
		case "text":
			tracker.processMarker(raw.Description)
		case "product":
			line := parseLine(raw, tracker.snapshot())
			order.Lines = append(order.Lines, line)
			order.TotalVolume += line.Volume
			order.CatalogCosts[line.Catalog] += line.Cost * line.Quantity
		default:
			// Unrecognized kinds are skipped, not errors.
		}
	}

	order.Catalogs = tracker.catalogsSeen()
	return order
}

func parseLine(raw saberis.Line, attrs map[string]string) internal.OrderLine {
	catalog := attrs[catalogKey]
	delete(attrs, catalogKey)
	if catalog == "" {
		catalog = unknownCatalog
	}

	lineID := coerceInt(raw.LineID, -1)
	if lineID == -1 {
		fmt.Printf("WARN: product line %q carries no LineID\n", raw.Description)
	}

	return internal.OrderLine{
		Type:        "Product",
		LineID:      lineID,
		Description: raw.Description,
		Quantity:    coerceFloat(raw.Quantity, 1.0),
		ListPrice:   coerceFloat(raw.List, 0.0),
		Cost:        coerceFloat(raw.Cost, 0.0),
		Catalog:     catalog,
		Attributes:  attrs,

		ProductCode:            raw.ProductCode,
		SKU:                    raw.SKU,
		UOM:                    raw.UOM,
		ManufacturerPartNumber: raw.ManufacturerPartNumber,
		ManufacturerSKU:        raw.ManufacturerSKU,
		Volume:                 coerceInt(raw.Volume, 0),
		Weight:                 raw.Weight,
	}
}

func parseExportDate(value string) time.Time {
	parsed, err := time.Parse(exportDateLayout, value)
	if err != nil {
		fmt.Printf("WARN: unparseable export date %q, substituting epoch\n", value)
		return time.Unix(0, 0).UTC()
	}
	return parsed
}

func countryForProvince(province string) string {
	code := strings.ToUpper(strings.TrimSpace(province))
	if _, ok := canadianProvinces[code]; ok {
		return "CA"
	}
	return "US"
}

// coerceFloat converts the loosely-typed numeric values Saberis emits.
// Missing, empty and unparseable values all collapse to the default.
func coerceFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

func coerceInt(v any, def int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
