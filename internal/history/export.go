package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	dateLayout = "Jan 2, 2006, 03:04 PM"
	na         = "N/A"
	sheetName  = "Assessment History"
)

var Header = []string{
	"Date", "Risk Level", "Confidence", "Memory Score",
	"Cognitive Score", "Attention Score", "Age", "Gender",
}

// FileName is the suggested download name for an export made at now.
func FileName(format string, now time.Time) string {
	return fmt.Sprintf("dementia_assessment_history_%s.%s", now.Format("2006-01-02"), format)
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Rows renders records as table rows (without the header). Dates are shown
// in loc.
func Rows(records []Record, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.Local
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		res := r.Result
		rows = append(rows, []string{
			r.Time().In(loc).Format(dateLayout),
			orNA(res.RiskLevel),
			percent(res.Confidence),
			oneDecimal(res.MemoryScore),
			oneDecimal(res.CognitiveScore),
			oneDecimal(res.AttentionScore),
			orNA(r.Data["age"]),
			orNA(r.Data["gender"]),
		})
	}
	return rows
}

// WriteCSV writes the header and one row per record. Fields containing
// commas (the date) are quoted.
func WriteCSV(w io.Writer, records []Record, loc *time.Location) error {
	if len(records) == 0 {
		return ErrEmpty
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := cw.WriteAll(Rows(records, loc)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the same table as a single-sheet workbook.
func WriteXLSX(w io.Writer, records []Record, loc *time.Location) error {
	if len(records) == 0 {
		return ErrEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "H", 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, row := range Rows(records, loc) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Write dispatches on format.
func Write(w io.Writer, format string, records []Record, loc *time.Location) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, records, loc)
	case FormatXLSX:
		return WriteXLSX(w, records, loc)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func orNA(s string) string {
	if s == "" {
		return na
	}
	return s
}

func percent(v *float64) string {
	if v == nil {
		return na
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

func oneDecimal(v *float64) string {
	if v == nil {
		return na
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}
