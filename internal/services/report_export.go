package services

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet      = "Summary"
	entriesSheet      = "Entries"
	denominationSheet = "Denominations"
)

// WriteWorkbook renders a report as an xlsx workbook with one sheet each for
// the summary, the entries and the denomination count.
func WriteWorkbook(w io.Writer, report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	for _, name := range []string{entriesSheet, denominationSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	note := ""
	if report.Sheet.Note != nil {
		note = *report.Sheet.Note
	}
	summary := [][]any{
		{"Date", report.Sheet.Date},
		{"Note", note},
		{"Total Sale", report.Summary.TotalSale},
		{"Net Amount", report.Summary.NetAmount},
		{"Total Cash", report.Summary.TotalCash},
		{"Entries", report.Summary.EntryCount},
		{"Denominations", report.Summary.DenominationCount},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05")},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}

	entries := [][]any{{"Section", "Row", "Cell", "Raw Value", "Calculated Value"}}
	for _, e := range report.Entries {
		entries = append(entries, []any{e.Section, e.RowIdx + 1, e.CellKey, e.RawValue, e.CalculatedValue})
	}
	if err := writeRows(f, entriesSheet, entries); err != nil {
		return err
	}

	denominations := [][]any{{"Denomination", "Pieces", "Amount"}}
	for _, d := range report.Denominations {
		amount, _ := d.CalculatedAmount.Float64()
		denominations = append(denominations, []any{d.DenominationLabel, d.Pieces, amount})
	}
	if err := writeRows(f, denominationSheet, denominations); err != nil {
		return err
	}

	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
