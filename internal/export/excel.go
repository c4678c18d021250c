package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

// SheetName is the single worksheet in an export workbook.
const SheetName = "Analysis Results"

// ExcelContentType is the MIME type of .xlsx files.
const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExcelHeaders is the fixed column schema.
var ExcelHeaders = []string{
	"URL",
	"Global Rank",
	"Reach",
	"Unique Visitors",
	"Page Views",
	"Share Rate",
	"Sentiment",
	"Sentiment Score",
	"Data Source",
	"Analyzed At",
	"Error",
}

var excelColumnWidths = []float64{50, 14, 14, 18, 16, 12, 12, 14, 16, 22, 30}

// ExcelFilename is the attachment name for a workbook generated at now.
func ExcelFilename(now time.Time) string {
	return Filename("link-traffic-data", "xlsx", now)
}

// ExcelRow maps one result onto the column schema.
func ExcelRow(r analysis.Result, loc *time.Location) []any {
	return []any{
		r.URL,
		RankDisplay(r),
		r.Reach,
		r.UniqueVisitors,
		r.PageViews,
		r.ShareRate,
		string(r.Sentiment.Label),
		r.Sentiment.Score,
		SourceDisplay(r.DataSource),
		FormatTimestamp(r.AnalyzedAt, loc),
		r.Error,
	}
}

// WriteExcel writes a workbook with a header row and one row per result.
func WriteExcel(w io.Writer, results []analysis.Result, loc *time.Location) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(ExcelHeaders))
	for i, h := range ExcelHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		row := ExcelRow(r, loc)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := styleSheet(f); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func styleSheet(f *excelize.File) error {
	for i, width := range excelColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("set width of %s: %w", col, err)
		}
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E7E6E6"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.ColumnNumberToName(len(ExcelHeaders))
	if err != nil {
		return fmt.Errorf("last column: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last+"1", style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return nil
}
