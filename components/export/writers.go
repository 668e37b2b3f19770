package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/phpdave11/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/goliatone/go-maintenance-dashboard/components/listview"
)

// Write dispatches to the writer for format.
func Write(w io.Writer, format string, t Table) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatPDF:
		return WritePDF(w, t)
	default:
		return fmt.Errorf("export: unsupported format %q", format)
	}
}

// WriteCSV writes a header row of labels followed by the display rows.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header()); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for i := range t.Rows {
		if err := writer.Write(t.Cells(i)); err != nil {
			return fmt.Errorf("export: write row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

const maxColumnWidth = 60

// WriteXLSX writes one sheet with a bold header and widths fitted to content.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Title)
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("export: drop default sheet: %w", err)
		}
		index, _ = f.GetSheetIndex(sheet)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	widths := make([]int, len(t.Columns))
	for i, label := range t.Header() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, label); err != nil {
			return err
		}
		widths[i] = utf8.RuneCountInString(label)
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for r := range t.Rows {
		cells := t.Cells(r)
		for c, col := range t.Columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			var value any = cells[c]
			if col.Format == listview.FormatMoney {
				if v, ok := t.Rows[r].Float(col.Key); ok {
					value = v
				}
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
			if n := utf8.RuneCountInString(cells[c]); n > widths[c] {
				widths[c] = n
			}
		}
	}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheet, col, col, float64(width+2)); err != nil {
			return err
		}
	}
	f.SetActiveSheet(index)
	_, err = f.WriteTo(w)
	return err
}

// sheetName trims a title to the 31 runes Excel allows.
func sheetName(title string) string {
	if title == "" {
		return "Sheet1"
	}
	runes := []rune(title)
	if len(runes) > 31 {
		runes = runes[:31]
	}
	return string(runes)
}

const (
	pdfMargin    = 10.0
	pdfRowHeight = 7.0
)

// WritePDF writes an A4 landscape table with a title and generated-at line.
func WritePDF(w io.Writer, t Table) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(t.Title, true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()
	widths := pdfColumnWidths(t, pageW-2*pdfMargin)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(31, 78, 121)
		pdf.SetTextColor(255, 255, 255)
		for i, label := range t.Header() {
			pdf.CellFormat(widths[i], pdfRowHeight, tr(fitText(pdf, label, widths[i])), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(t.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	line := "Generado el " + t.GeneratedAt.Format("02/01/2006 15:04")
	if t.Truncated {
		line += fmt.Sprintf(" (primeros %d registros)", len(t.Rows))
	}
	pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	for r := range t.Rows {
		if pdf.GetY()+pdfRowHeight > pageH-pdfMargin {
			pdf.AddPage()
			header()
		}
		fill := r%2 == 1
		pdf.SetFillColor(240, 244, 248)
		for c, text := range t.Cells(r) {
			pdf.CellFormat(widths[c], pdfRowHeight, tr(fitText(pdf, text, widths[c])), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(t.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, pdfRowHeight, "Sin registros", "", 1, "L", false, 0, "")
	}
	return pdf.Output(w)
}

// pdfColumnWidths shares the printable width in proportion to the longest
// text of each column, with a floor so short columns stay readable.
func pdfColumnWidths(t Table, total float64) []float64 {
	if len(t.Columns) == 0 {
		return nil
	}
	weights := make([]float64, len(t.Columns))
	for i, label := range t.Header() {
		weights[i] = float64(utf8.RuneCountInString(label))
	}
	for r := range t.Rows {
		for c, text := range t.Cells(r) {
			if n := float64(utf8.RuneCountInString(text)); n > weights[c] {
				weights[c] = n
			}
		}
	}
	var sum float64
	for i := range weights {
		if weights[i] < 6 {
			weights[i] = 6
		}
		if weights[i] > 40 {
			weights[i] = 40
		}
		sum += weights[i]
	}
	out := make([]float64, len(weights))
	for i, weight := range weights {
		out[i] = total * weight / sum
	}
	return out
}

func fitText(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
