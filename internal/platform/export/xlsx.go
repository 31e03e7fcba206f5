// Package export renders tabular dashboard data as spreadsheets.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of the workbooks produced here.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet is one worksheet: a bold header row followed by data rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// WriteXLSX writes sheets, in order, as a single workbook to w. The first
// sheet is active when the file is opened.
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errors.New("export: no sheets")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("export: sheet %q: %w", s.Name, err)
		}
		if err := writeSheet(f, s, header); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s Sheet, headerStyle int) error {
	header := make([]interface{}, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
		return fmt.Errorf("export: %s header: %w", s.Name, err)
	}
	if len(s.Header) > 0 {
		if err := f.SetRowStyle(s.Name, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("export: %s header style: %w", s.Name, err)
		}
		last, err := excelize.ColumnNumberToName(len(s.Header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.Name, "A", last, 18); err != nil {
			return fmt.Errorf("export: %s column width: %w", s.Name, err)
		}
	}

	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
			return fmt.Errorf("export: %s row %d: %w", s.Name, i+1, err)
		}
	}
	return nil
}
