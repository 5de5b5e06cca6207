package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"s2j/internal"
)

// BuildPreviewRows renders what a send would do without touching the remote
// system: one row per aggregated desired line with its planned action.
func BuildPreviewRows(desired []internal.QuoteLine, existing []internal.RemoteLineItem, master MasterIndex) []internal.PreviewRow {
	byName := make(map[string]internal.RemoteLineItem, len(existing))
	for _, item := range existing {
		byName[item.Name] = item
	}

	aggregated := AggregateByName(desired)
	rows := make([]internal.PreviewRow, 0, len(aggregated))
	for _, want := range aggregated {
		row := internal.PreviewRow{
			Name:      want.Name,
			Quantity:  want.Quantity,
			UnitPrice: want.UnitPrice,
			UnitCost:  want.UnitCost,
			Action:    "add",
		}
		if current, ok := byName[want.Name]; ok {
			row.RemoteLineItemID = &current.ID
			if current.Quantity == want.Quantity {
				row.Action = "unchanged"
			} else {
				row.Action = "update"
			}
		}
		if link := master.Resolve(want.Name); link.ProductOrServiceID != nil {
			row.LinkedProductID = link.ProductOrServiceID
		}
		rows = append(rows, row)
	}
	return rows
}

func ExportPreviewXLSX(rows []internal.PreviewRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"name", "quantity", "unit_price", "unit_cost",
		"action", "remote_line_item_id", "linked_product_id",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.Name)
		set(2, row.Quantity)
		set(3, row.UnitPrice)
		set(4, derefFloat(row.UnitCost))
		set(5, row.Action)
		set(6, derefString(row.RemoteLineItemID))
		set(7, derefString(row.LinkedProductID))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
