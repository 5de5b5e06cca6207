package pricing

// Store is the row-oriented backing sheet for catalog pricing. Rows are
// columns catalog id / brand / multiplier / margin, first row is a header.
// Row numbers are 1-based sheet rows.
type Store interface {
	AllValues() ([][]string, error)
	UpdatePricing(row int, multiplier, margin float64) error
	AppendRow(values []string) error
}
