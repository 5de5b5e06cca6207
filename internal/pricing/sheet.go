package pricing

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"s2j/internal/config"
)

// SheetStore backs the pricing cache with one Google Sheets worksheet.
type SheetStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetStore(ctx context.Context, cfg config.Config) (*SheetStore, error) {
	if err := cfg.Require("PRICING_SPREADSHEET_ID", cfg.PricingSpreadsheetID); err != nil {
		return nil, err
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.SheetsCredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetStore{
		svc:           svc,
		spreadsheetID: cfg.PricingSpreadsheetID,
		sheetName:     cfg.PricingSheetName,
	}, nil
}

func (s *SheetStore) AllValues() ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName).Do()
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		out = append(out, cells)
	}
	return out, nil
}

func (s *SheetStore) UpdatePricing(row int, multiplier, margin float64) error {
	rangeRef := fmt.Sprintf("%s!C%d:D%d", s.sheetName, row, row)
	body := &sheets.ValueRange{Values: [][]any{{multiplier, margin}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rangeRef, body).
		ValueInputOption("RAW").Do()
	return err
}

func (s *SheetStore) AppendRow(values []string) error {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	body := &sheets.ValueRange{Values: [][]any{row}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName, body).
		ValueInputOption("USER_ENTERED").Do()
	return err
}
