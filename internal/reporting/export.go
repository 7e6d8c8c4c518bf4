package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/convoy/internal/model"
)

// Sheet names of the exported workbook.
const (
	ScheduleSheet = "Delivery Schedule"
	SummarySheet  = "Summary"
)

var csvHeader = []string{
	"truck_id", "store_id", "product_id", "quantity", "distance_km",
	"arrival_time", "departure_time", "route_distance_km", "total_cost",
}

var sheetHeader = []string{
	"Truck ID", "Store ID", "Product ID", "Quantity", "Distance (km)",
	"Arrival Time", "Departure Time", "Route Distance (km)", "Total Cost",
}

// rows flattens routes into one record per delivered line.
func rows(routes []model.Route) [][]string {
	var out [][]string
	for _, r := range routes {
		for _, s := range r.Stops {
			for _, it := range s.Items {
				out = append(out, []string{
					r.CarrierID,
					s.StoreID,
					it.ProductID,
					strconv.Itoa(it.Qty),
					km(s.LegDistance),
					s.Arrival.String(),
					s.DepartureFromStore.String(),
					km(r.TotalDistance),
					km(r.TotalCost),
				})
			}
		}
	}
	return out
}

func km(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteCSV writes the schedule followed by a commented summary footer.
func WriteCSV(w io.Writer, routes []model.Route) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows(routes)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}

	s := Summarize(routes)
	_, err := fmt.Fprintf(w, "\n# SUMMARY\n# Total Distance: %s km\n# Total Cost: %s\n# Total Deliveries: %d\n",
		s.TotalDistance.StringFixed(2), s.TotalCost.StringFixed(2), s.Deliveries)
	return err
}

// ExportXLSX writes the schedule workbook: a styled schedule sheet with one
// row per delivered line and a summary sheet.
func ExportXLSX(w io.Writer, routes []model.Route) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ScheduleSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	headStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#BDD7EE"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return fmt.Errorf("cell style: %w", err)
	}

	if err := setRow(f, ScheduleSheet, 1, sheetHeader); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(sheetHeader), 1)
	if err := f.SetCellStyle(ScheduleSheet, "A1", last, headStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	data := rows(routes)
	for i, rec := range data {
		row := i + 2
		vals := make([]any, len(rec))
		for j, v := range rec {
			vals[j] = v
		}
		// Quantity stays numeric so the sheet can sum it.
		if q, err := strconv.Atoi(rec[3]); err == nil {
			vals[3] = q
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(ScheduleSheet, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}
	if len(data) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(sheetHeader), len(data)+1)
		if err := f.SetCellStyle(ScheduleSheet, "A2", end, cellStyle); err != nil {
			return fmt.Errorf("style rows: %w", err)
		}
	}
	if err := f.SetColWidth(ScheduleSheet, "A", "I", 18); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	s := Summarize(routes)
	summary := [][]any{
		{"TOTAL SUMMARY"},
		{"Routes", s.Routes},
		{"Total Distance (km)", s.TotalDistance.StringFixed(2)},
		{"Total Cost", s.TotalCost.StringFixed(2)},
		{"Total Deliveries", s.Deliveries},
	}
	for i, vals := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &vals); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "A1", headStyle); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 24); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, vals []string) error {
	cells := make([]any, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
