package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	// Decoders for screenshot validation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

// PDFContentType is the MIME type of PDF reports.
const PDFContentType = "application/pdf"

// ReportTitle heads every PDF report.
const ReportTitle = "Link Traffic Analysis Report"

// Page geometry in millimetres on A4 portrait.
const (
	marginLeft      = 14.0
	contentWidth    = 182.0
	blockBreakY     = 240.0
	imageBreakY     = 200.0
	topAfterBreak   = 20.0
	firstBlockY     = 40.0
	imageWidth      = 120.0
	imageHeight     = 67.5
	maxTitleRunes   = 70
	metricColWidth  = 50.0
	tableRowHeight  = 7.0
	blockSpacing    = 15.0
	smallLineHeight = 6.0
)

// ImageLoader fetches screenshot bytes for a result's screenshot reference.
type ImageLoader interface {
	LoadImage(ctx context.Context, ref string) ([]byte, error)
}

// PDFOption customizes a PDFWriter.
type PDFOption func(*PDFWriter)

// WithLocation sets the zone used for timestamps.
func WithLocation(loc *time.Location) PDFOption {
	return func(p *PDFWriter) { p.loc = loc }
}

// WithCompression toggles stream compression. Reports are compressed by default.
func WithCompression(on bool) PDFOption {
	return func(p *PDFWriter) { p.compress = on }
}

// PDFWriter renders results as a paginated report.
type PDFWriter struct {
	images   ImageLoader
	loc      *time.Location
	compress bool
	logger   *zap.Logger
}

// NewPDFWriter builds a PDFWriter. images may be nil to skip screenshots.
func NewPDFWriter(images ImageLoader, logger *zap.Logger, opts ...PDFOption) *PDFWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PDFWriter{images: images, loc: time.UTC, compress: true, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PDFFilename is the attachment name for a report generated at now.
func PDFFilename(now time.Time) string {
	return Filename("link-traffic-report", "pdf", now)
}

// MetricRows is the two-column table shown for a successful result.
func MetricRows(r analysis.Result) [][2]string {
	return [][2]string{
		{"Global Rank", RankDisplay(r)},
		{"Reach", r.Reach},
		{"Unique Visitors", r.UniqueVisitors},
		{"Page Views", r.PageViews},
		{"Share Rate", r.ShareRate},
		{"Sentiment", SentimentDisplay(r.Sentiment)},
	}
}

// TitleDisplay shortens long URLs for block headings.
func TitleDisplay(rawURL string) string {
	runes := []rune(rawURL)
	if len(runes) <= maxTitleRunes {
		return rawURL
	}
	return string(runes[:maxTitleRunes-3]) + "..."
}

type report struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// Write renders one block per result and writes the document to w.
func (p *PDFWriter) Write(ctx context.Context, w io.Writer, results []analysis.Result, generated time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(p.compress)
	pdf.SetMargins(marginLeft, topAfterBreak, marginLeft)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetTitle(ReportTitle, false)
	rep := &report{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(42, 42, 42)
	pdf.CellFormat(0, 10, ReportTitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 6, "Generated: "+FormatTimestamp(generated, p.loc), "", 1, "C", false, 0, "")
	pdf.SetY(firstBlockY)

	for i, r := range results {
		if pdf.GetY() > blockBreakY {
			pdf.AddPage()
			pdf.SetY(topAfterBreak)
		}
		p.writeBlock(ctx, rep, i, r)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func (p *PDFWriter) writeBlock(ctx context.Context, rep *report, index int, r analysis.Result) {
	pdf := rep.pdf
	pdf.SetX(marginLeft)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(42, 42, 42)
	pdf.CellFormat(contentWidth, smallLineHeight, rep.tr(TitleDisplay(r.URL)), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(contentWidth, smallLineHeight, "Data Source: "+SourceDisplay(r.DataSource), "", 1, "L", false, 0, "")

	if r.Failed() {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(220, 38, 38)
		pdf.MultiCell(contentWidth, 5, rep.tr("Error: "+r.Error), "", "L", false)
	} else {
		p.writeTable(rep, r)
		if r.ScreenshotURL != "" {
			p.writeScreenshot(ctx, rep, index, r.ScreenshotURL)
		}
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(contentWidth, 5, "Analyzed: "+FormatTimestamp(r.AnalyzedAt, p.loc), "", 1, "L", false, 0, "")
	pdf.Ln(blockSpacing - 5)
}

func (p *PDFWriter) writeTable(rep *report, r analysis.Result) {
	pdf := rep.pdf
	valueWidth := contentWidth - metricColWidth

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(42, 42, 42)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(metricColWidth, tableRowHeight, "Metric", "", 0, "L", true, 0, "")
	pdf.CellFormat(valueWidth, tableRowHeight, "Value", "", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(42, 42, 42)
	for i, row := range MetricRows(r) {
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.CellFormat(metricColWidth, tableRowHeight, row[0], "", 0, "L", true, 0, "")
		pdf.CellFormat(valueWidth, tableRowHeight, rep.tr(row[1]), "", 1, "L", true, 0, "")
	}
	pdf.Ln(5)
}

// writeScreenshot embeds the image when it can be fetched and decoded; any
// failure leaves the block without a preview.
func (p *PDFWriter) writeScreenshot(ctx context.Context, rep *report, index int, ref string) {
	if p.images == nil {
		return
	}
	data, err := p.images.LoadImage(ctx, ref)
	if err != nil {
		p.logger.Debug("screenshot not embedded", zap.String("ref", ref), zap.Error(err))
		return
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		p.logger.Debug("screenshot not decodable", zap.String("ref", ref), zap.Error(err))
		return
	}
	imageType := map[string]string{"png": "PNG", "jpeg": "JPG", "gif": "GIF"}[format]
	if imageType == "" {
		return
	}

	pdf := rep.pdf
	name := fmt.Sprintf("screenshot-%d", index)
	opts := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := pdf.Error(); err != nil {
		p.logger.Debug("screenshot rejected by renderer", zap.String("ref", ref), zap.Error(err))
		pdf.ClearError()
		return
	}

	if pdf.GetY() > imageBreakY {
		pdf.AddPage()
		pdf.SetY(topAfterBreak)
	}
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(contentWidth, 3, "Preview:", "", 1, "L", false, 0, "")
	y := pdf.GetY()
	pdf.ImageOptions(name, marginLeft, y, imageWidth, imageHeight, false, opts, 0, "")
	pdf.SetY(y + imageHeight + 5)
}
