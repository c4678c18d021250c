package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

var analyzedAt = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func sampleResults() []analysis.Result {
	return []analysis.Result{
		{
			URL:            "https://example.com",
			Reach:          "20.0B",
			UniqueVisitors: "5.0B/month",
			PageViews:      "15.0B/month",
			ShareRate:      "11.5%",
			Sentiment:      analysis.Sentiment{Score: 2.48, Label: analysis.LabelPositive, Comparative: 0.83},
			AnalyzedAt:     analyzedAt,
			Rank:           intPtr(1234),
			Bucket:         "Top 2000",
			DataSource:     analysis.DataSourceExact,
			ScreenshotURL:  "/screenshot/abc",
		},
		{
			URL:            "https://tiny.example.org",
			Reach:          "~2.0M",
			UniqueVisitors: "~512K/month",
			PageViews:      "~1.5M/month",
			ShareRate:      "1.5%",
			Sentiment:      analysis.NeutralSentiment(),
			AnalyzedAt:     analyzedAt,
			Bucket:         "Top 50000",
			DataSource:     analysis.DataSourceEstimated,
		},
		analysis.FailedResult("https://broken.example", errors.New("boom"), analyzedAt),
	}
}

func TestWriteExcel(t *testing.T) {
	t.Parallel()

	results := sampleResults()
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, results, time.UTC))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, len(results)+1)
	require.Equal(t, ExcelHeaders, rows[0])

	require.Equal(t, []string{
		"https://example.com", "#1,234", "20.0B", "5.0B/month", "15.0B/month", "11.5%",
		"Positive", "2.48", "Cloudflare Radar", "5/1/2024, 12:30:00 PM",
	}, rows[1])
	require.Equal(t, "Top 50000", rows[2][1])
	require.Equal(t, "Estimated", rows[2][8])

	failed := rows[3]
	require.Equal(t, "N/A", failed[1])
	require.Equal(t, "N/A", failed[2])
	require.Equal(t, "Neutral", failed[6])
	require.Equal(t, "0", failed[7])
	require.Equal(t, "boom", failed[10])

	width, err := f.GetColWidth(SheetName, "A")
	require.NoError(t, err)
	require.Equal(t, 50.0, width)
	width, err = f.GetColWidth(SheetName, "K")
	require.NoError(t, err)
	require.Equal(t, 30.0, width)

	panes, err := f.GetPanes(SheetName)
	require.NoError(t, err)
	require.True(t, panes.Freeze)
	require.Equal(t, 1, panes.YSplit)
}

func TestWriteExcel_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestExcelRow_RankRuleMatchesPDF(t *testing.T) {
	t.Parallel()

	for _, r := range sampleResults() {
		require.Equal(t, MetricRows(r)[0][1], ExcelRow(r, nil)[1])
	}
}
