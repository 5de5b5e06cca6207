package internal

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"
)

// ShippingAddress is the delivery address carried on a Saberis order header.
type ShippingAddress struct {
	Street1    string `json:"street1"`
	Street2    string `json:"street2"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderLine is a product line enriched with the attribute context that was in
// effect when it appeared in the export. Attributes never contain the catalog
// key; that value is popped into Catalog during parsing.
type OrderLine struct {
	Type        string            `json:"type"`
	LineID      int               `json:"lineId"`
	Description string            `json:"description"`
	Quantity    float64           `json:"quantity"`
	ListPrice   float64           `json:"listPrice"`
	Cost        float64           `json:"cost"`
	Catalog     string            `json:"catalog"`
	Attributes  map[string]string `json:"attributes"`

	ProductCode            *string `json:"productCode,omitempty"`
	SKU                    *string `json:"sku,omitempty"`
	UOM                    *string `json:"uom,omitempty"`
	ManufacturerPartNumber *string `json:"manufacturerPartNumber,omitempty"`
	ManufacturerSKU        *string `json:"manufacturerSku,omitempty"`
	Volume                 int     `json:"volume"`
	Weight                 *string `json:"weight,omitempty"`
}

// Order is a fully parsed Saberis export. TotalVolume, CatalogCosts and
// Catalogs are derived from Lines during assembly.
type Order struct {
	Username     string
	CreatedAt    time.Time
	CustomerName string
	Shipping     ShippingAddress
	Lines        []OrderLine
	TotalVolume  int
	// CatalogCosts is keyed by each line's finalized catalog, which is the
	// brand name when a brand lookup resolved it. Catalogs holds the raw
	// marker codes as seen, so the two use different key spaces.
	CatalogCosts map[string]float64
	Catalogs     []string
}

// FirstCatalogCode returns the first raw catalog value seen in document
// order, or "NA" when the export carried no catalog marker.
func (o Order) FirstCatalogCode() string {
	if len(o.Catalogs) == 0 {
		return "NA"
	}
	return o.Catalogs[0]
}

// UniqueKey is the idempotency key for an export. Line items are serialized
// with sorted map keys so attribute insertion order never affects the hash.
func (o Order) UniqueKey() string {
	payload, _ := json.Marshal(o.Lines)
	h := fnv.New32a()
	_, _ = h.Write(payload)
	digest := fmt.Sprintf("%08x", h.Sum32())[:4]
	return fmt.Sprintf("%s_%s_%s_%s", o.Username, o.CreatedAt.Format("20060102"), o.FirstCatalogCode(), digest)
}

// QuoteLine is a synthesized Jobber line item ready for reconciliation.
type QuoteLine struct {
	Name                      string   `json:"name"`
	Description               string   `json:"description"`
	Quantity                  float64  `json:"quantity"`
	UnitPrice                 float64  `json:"unitPrice"`
	UnitCost                  *float64 `json:"unitCost,omitempty"`
	Taxable                   bool     `json:"taxable"`
	SaveToProductsAndServices bool     `json:"saveToProductsAndServices"`
	ProductOrServiceID        *string  `json:"productOrServiceId,omitempty"`
}

// RemoteLineItem is a line item as it currently exists on a Jobber quote or job.
type RemoteLineItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// LineItemUpdate targets one remote line item with a new quantity.
type LineItemUpdate struct {
	LineItemID string  `json:"lineItemId"`
	Quantity   float64 `json:"quantity"`
}

// Plan is the output of reconciliation: lines missing remotely and remote
// lines whose quantity must change. The two sets are disjoint.
type Plan struct {
	ToAdd    []QuoteLine
	ToUpdate []LineItemUpdate
}

// MasterItem is an entry in Jobber's reusable products-and-services catalog.
type MasterItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LinkResolution reports whether a synthesized name resolved to an existing
// master catalog entry by its S2J hash.
type LinkResolution struct {
	ProductOrServiceID *string
	CreateNew          bool
}

// CatalogItem is one row of the pricing sheet. Brand and the pricing factors
// are nil when the corresponding cells are empty or unparseable.
type CatalogItem struct {
	CatalogID  string   `json:"catalogId"`
	Brand      *string  `json:"brand"`
	Multiplier *float64 `json:"multiplier"`
	Margin     *float64 `json:"margin"`
}

// ExportRecord is one row of the local ingestion manifest. Payload holds the
// gzip-compressed raw export document.
type ExportRecord struct {
	SaberisID       string
	GUID            string
	IngestedAt      string
	CustomerName    string
	Username        string
	ExportDate      string
	ShippingSummary string
	SentToJobber    bool
	Payload         []byte
}

// PreviewRow is one line of a reconciliation preview workbook.
type PreviewRow struct {
	Name             string
	Quantity         float64
	UnitPrice        float64
	UnitCost         *float64
	Action           string
	RemoteLineItemID *string
	LinkedProductID  *string
}
