package runlog

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	errorsSheet  = "Errors"
)

// WriteReport saves a spreadsheet summary of a run next to its record and
// returns the file path.
//
// SHEETS:
//   - Summary: one label/value row per record attribute
//   - Errors:  one row per failed record (absent when nothing failed)
func (s *FileStore) WriteReport(rec *Record) (string, error) {
	path := s.path(rec.ID, ".xlsx")
	if err := WriteReport(path, rec); err != nil {
		return "", err
	}
	return path, nil
}

// WriteReport saves a spreadsheet summary of rec at path.
func WriteReport(path string, rec *Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create report style: %w", err)
	}

	rows := [][]any{
		{"Run ID", rec.ID},
		{"Profile", rec.Profile},
		{"Layout", rec.Layout},
		{"Company", rec.Company},
		{"Company tax ID", rec.CompanyTaxID},
		{"Date from", rec.DateFrom},
		{"Date to", rec.DateTo},
		{"Partner regime", rec.PartnerRegime},
		{"Records", rec.Attempted},
		{"Lines written", rec.Lines},
		{"Failed records", rec.Failed},
		{"Total withholding", rec.TotalWithholding},
		{"Total transaction", rec.TotalTransaction},
		{"File", rec.FileName},
		{"State", string(rec.State)},
		{"Created", rec.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Duration", rec.Duration.String()},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A"+strconv.Itoa(len(rows)), bold); err != nil {
		return fmt.Errorf("failed to style summary sheet: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 45); err != nil {
		return err
	}

	if len(rec.ErrorLog) > 0 {
		if _, err := f.NewSheet(errorsSheet); err != nil {
			return fmt.Errorf("failed to create errors sheet: %w", err)
		}
		if err := f.SetSheetRow(errorsSheet, "A1", &[]any{"#", "Error"}); err != nil {
			return err
		}
		if err := f.SetCellStyle(errorsSheet, "A1", "B1", bold); err != nil {
			return err
		}
		for i, msg := range rec.ErrorLog {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := f.SetSheetRow(errorsSheet, cell, &[]any{i + 1, msg}); err != nil {
				return fmt.Errorf("failed to write error row %d: %w", i+1, err)
			}
		}
		if err := f.SetColWidth(errorsSheet, "B", "B", 120); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}
