package saberis

import (
	"encoding/json"
	"strings"
)

// Line is one raw record of an export document. Quantity, pricing and volume
// values arrive as either JSON numbers or strings depending on the Saberis
// version, so they stay untyped here; the pipeline coerces them with
// documented defaults.
type Line struct {
	Kind        string
	LineID      any
	Description string
	Quantity    any
	List        any
	Selling     any
	Cost        any
	Volume      any

	ProductCode            *string
	SKU                    *string
	UOM                    *string
	ManufacturerPartNumber *string
	ManufacturerSKU        *string
	Weight                 *string
}

// Shipping is the raw shipping sub-object of an export header.
type Shipping struct {
	Address    string
	City       string
	Province   string
	PostalCode string
}

// Document is a decoded Saberis export. Missing header sub-objects decode to
// zero values, never an error.
type Document struct {
	Username     string
	Date         string
	CustomerName string
	Shipping     Shipping
	Lines        []Line
}

// DecodeDocument parses a raw export payload. Only malformed JSON is an
// error; structural gaps (absent header, empty groups) yield an empty
// document, matching the never-block-ingestion policy.
func DecodeDocument(blob []byte) (Document, error) {
	var root map[string]any
	if err := json.Unmarshal(blob, &root); err != nil {
		return Document{}, err
	}
	return decodeDocument(root), nil
}

func decodeDocument(root map[string]any) Document {
	wrapper := asMap(root["SaberisOrderDocument"])
	order := asMap(wrapper["Order"])

	doc := Document{
		Username:     asString(order["Username"]),
		Date:         asString(order["Date"]),
		CustomerName: asString(asMap(order["Customer"])["Name"]),
	}

	shipping := asMap(order["Shipping"])
	doc.Shipping = Shipping{
		Address:    asString(shipping["Address"]),
		City:       asString(shipping["City"]),
		Province:   asString(shipping["StateOrProvince"]),
		PostalCode: asString(shipping["ZipOrPostal"]),
	}

	doc.Lines = decodeGroups(order["Group"])
	return doc
}

// decodeGroups accepts both document shapes Saberis has emitted over time: a
// single group object with an "Item" list, and a list of group objects each
// carrying a "Line" or "Item" list.
func decodeGroups(v any) []Line {
	var out []Line
	switch group := v.(type) {
	case map[string]any:
		out = append(out, decodeLineList(group["Item"])...)
		out = append(out, decodeLineList(group["Line"])...)
	case []any:
		for _, entry := range group {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, decodeLineList(m["Item"])...)
			out = append(out, decodeLineList(m["Line"])...)
		}
	}
	return out
}

func decodeLineList(v any) []Line {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Line, 0, len(arr))
	for _, entry := range arr {
		m, ok := entry.(map[string]any)
		if !ok || len(m) == 0 {
			continue
		}
		out = append(out, decodeLine(m))
	}
	return out
}

func decodeLine(m map[string]any) Line {
	kind := asString(m["Type"])
	if kind == "" {
		kind = asString(m["type"])
	}

	return Line{
		Kind:        kind,
		LineID:      m["LineID"],
		Description: asString(m["Description"]),
		Quantity:    m["Quantity"],
		List:        m["List"],
		Selling:     m["Selling"],
		Cost:        m["Cost"],
		Volume:      m["Volume"],

		ProductCode:            asStringPtr(m["ProductCode"]),
		SKU:                    asStringPtr(m["SKU"]),
		UOM:                    asStringPtr(m["UOM"]),
		ManufacturerPartNumber: asStringPtr(m["ManufacturerPartNumber"]),
		ManufacturerSKU:        asStringPtr(m["ManufacturerSKU"]),
		Weight:                 asStringPtr(m["Weight"]),
	}
}

func asMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
