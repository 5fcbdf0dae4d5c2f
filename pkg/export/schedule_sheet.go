// Package export renders an educator's schedule into downloadable documents.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ScheduleEntry is one printable line of a schedule sheet.
type ScheduleEntry struct {
	Date      time.Time
	StartTime string
	EndTime   string
	FamilyID  string
	Location  string
	Status    string
}

// ScheduleSheet is an educator's agenda over a date range.
type ScheduleSheet struct {
	EducatorID string
	From       time.Time
	To         time.Time
	Entries    []ScheduleEntry
}

const dateLayout = "Mon 02 Jan 2006"

// RenderCSV produces the sheet as CSV with one row per entry.
func (s ScheduleSheet) RenderCSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write([]string{"date", "start", "end", "family", "location", "status"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, entry := range s.Entries {
		record := []string{
			entry.Date.Format("2006-01-02"),
			entry.StartTime,
			entry.EndTime,
			entry.FamilyID,
			entry.Location,
			entry.Status,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF produces the sheet as an A4 agenda grouped by date.
func (s ScheduleSheet) RenderPDF() ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 16, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, fmt.Sprintf("Schedule for educator %s", s.EducatorID), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s to %s",
		s.From.Format(dateLayout), s.To.Format(dateLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(s.Entries) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 8, "No appointments in this range.", "", 1, "L", false, 0, "")
	}

	widths := []float64{28, 28, 50, 40, 40}
	headers := []string{"Start", "End", "Family", "Location", "Status"}

	var currentDay string
	for _, entry := range s.Entries {
		day := entry.Date.Format(dateLayout)
		if day != currentDay {
			currentDay = day
			pdf.Ln(2)
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, day, "B", 1, "L", false, 0, "")
			pdf.SetFont("Arial", "B", 9)
			for i, header := range headers {
				pdf.CellFormat(widths[i], 7, header, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFont("Arial", "", 9)
		cells := []string{entry.StartTime, entry.EndTime, entry.FamilyID, entry.Location, entry.Status}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render schedule pdf: %w", err)
	}
	return buf.Bytes(), nil
}
