package admin

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"turquaz/internal/models"
)

var exportColumns = []string{"Time", "Meal", "Name", "Phone", "Guests", "Note"}

// ExportDay writes one day's reservations as an XLSX workbook: a single
// sheet named after the date, a bold header row, one row per reservation
// and a trailing totals row.
func ExportDay(w io.Writer, date string, rows []models.Reservation) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	sheet := date
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	file.SetSheetName("Sheet1", sheet)

	if err := writeRow(file, sheet, 1, headerValues()); err != nil {
		return err
	}
	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = file.SetCellStyle(sheet, start, end, style)
	}

	for i, row := range rows {
		values := []interface{}{row.Time, string(row.Meal), row.Name, row.Phone, row.Guests, row.Note}
		if err := writeRow(file, sheet, i+2, values); err != nil {
			return err
		}
	}

	summary := Summarize(rows)
	totals := []interface{}{"", "", "Total", "", summary.Guests, fmt.Sprintf("%d reservations", summary.Reservations)}
	if err := writeRow(file, sheet, len(rows)+2, totals); err != nil {
		return err
	}

	return file.Write(w)
}

func headerValues() []interface{} {
	values := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		values[i] = col
	}
	return values
}

func writeRow(file *excelize.File, sheet string, row int, values []interface{}) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}
