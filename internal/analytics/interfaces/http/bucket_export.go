package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	analytics "scada-cloud/internal/analytics/domain"
)

// BuildBucketsXLSX renders a bucket listing as a spreadsheet.
func BuildBucketsXLSX(granularity analytics.Granularity, filter analytics.BucketFilter, items []analytics.Bucket) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	bucketsSheet := "buckets"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(bucketsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Aggregated Buckets")
	_ = f.SetCellValue(summarySheet, "A3", "Granularity")
	_ = f.SetCellValue(summarySheet, "B3", string(granularity))
	_ = f.SetCellValue(summarySheet, "A4", "Device")
	_ = f.SetCellValue(summarySheet, "B4", filter.DeviceID)
	_ = f.SetCellValue(summarySheet, "A5", "Data Point")
	_ = f.SetCellValue(summarySheet, "B5", filter.DataPointID)
	if !filter.Start.IsZero() {
		_ = f.SetCellValue(summarySheet, "A6", "From")
		_ = f.SetCellValue(summarySheet, "B6", filter.Start.Format(time.RFC3339))
	}
	if !filter.End.IsZero() {
		_ = f.SetCellValue(summarySheet, "A7", "To")
		_ = f.SetCellValue(summarySheet, "B7", filter.End.Format(time.RFC3339))
	}
	_ = f.SetCellValue(summarySheet, "A8", "Buckets")
	_ = f.SetCellValue(summarySheet, "B8", len(items))

	headers := []string{"Bucket Start", "Device", "Data Point", "Min", "Max", "Avg", "Sum", "Count"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bucketsSheet, cell, header)
	}
	for i, bucket := range items {
		row := i + 2
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("A%d", row), bucket.BucketStart.Format(time.RFC3339))
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("B%d", row), bucket.DeviceID)
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("C%d", row), bucket.DataPointID)
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("D%d", row), bucket.Min)
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("E%d", row), bucket.Max)
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("F%d", row), bucket.Avg)
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("G%d", row), bucket.Sum)
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("H%d", row), bucket.Count)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildBucketsPDF renders a bucket listing as a table PDF.
func BuildBucketsPDF(granularity analytics.Granularity, filter analytics.BucketFilter, items []analytics.Bucket) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Aggregated Buckets")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Granularity: %s", granularity))
	pdf.Ln(5)
	if filter.DeviceID != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Device: %s", filter.DeviceID))
		pdf.Ln(5)
	}
	if filter.DataPointID != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Data Point: %s", filter.DataPointID))
		pdf.Ln(5)
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Range: %s to %s", filter.Start.Format(time.RFC3339), filter.End.Format(time.RFC3339)))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(42, 6, "Bucket Start", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Data Point", "1", 0, "C", false, 0, "")
	pdf.CellFormat(32, 6, "Min", "1", 0, "C", false, 0, "")
	pdf.CellFormat(32, 6, "Max", "1", 0, "C", false, 0, "")
	pdf.CellFormat(32, 6, "Avg", "1", 0, "C", false, 0, "")
	pdf.CellFormat(32, 6, "Sum", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Count", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, bucket := range items {
		pdf.CellFormat(42, 6, bucket.BucketStart.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, bucket.DataPointID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(32, 6, fmt.Sprintf("%.3f", bucket.Min), "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 6, fmt.Sprintf("%.3f", bucket.Max), "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 6, fmt.Sprintf("%.3f", bucket.Avg), "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 6, fmt.Sprintf("%.3f", bucket.Sum), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, fmt.Sprintf("%d", bucket.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
