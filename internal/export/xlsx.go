// Package export renders inventory data as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/inventar/internal/model"
)

// ContentType is the MIME type of an XLSX workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const itemsSheet = "Items"

var itemsHeader = []any{
	"id",
	"name",
	"description",
	"category",
	"quantity",
	"unit",
	"images",
	"created_at",
}

// WriteItems writes one row per item, with resolved category and unit names,
// as an XLSX workbook to w.
func WriteItems(w io.Writer, items []model.Item) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), itemsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(itemsSheet, "A1", &itemsHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, it := range items {
		var category, unit string
		if it.Category != nil {
			category = it.Category.Name
		}
		if it.Unit != nil {
			unit = it.Unit.Symbol
		}

		qty, _ := it.Quantity.Decimal().Float64()
		row := []any{
			it.ID.String(),
			it.Name,
			it.Description,
			category,
			qty,
			unit,
			len(it.Images),
			it.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("locating row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(itemsSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	// Quantities are decimal(10,2); show them that way.
	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("creating quantity style: %w", err)
	}
	if len(items) > 0 {
		last := fmt.Sprintf("E%d", len(items)+1)
		if err := f.SetCellStyle(itemsSheet, "E2", last, style); err != nil {
			return fmt.Errorf("styling quantities: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
