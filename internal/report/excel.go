package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"planproof/internal/domain"
)

const (
	summarySheet  = "Summary"
	findingsSheet = "Findings"
	fieldsSheet   = "Fields"
)

var findingHeaders = []string{
	"Document", "Type", "Rule", "Severity", "Status", "Message", "Missing Fields",
}

var fieldHeaders = []string{
	"Document", "Field", "Value", "Confidence", "Resolved By", "Tier", "Page", "Snippet",
}

// WriteWorkbook renders a run's results as a three-sheet Excel workbook:
// a run summary, one row per finding, and one row per resolved field.
func WriteWorkbook(w io.Writer, run *domain.Run, results []domain.DocumentResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName("Sheet1", summarySheet)
	if err := writeSummary(f, run, results); err != nil {
		return err
	}
	if err := writeFindings(f, results); err != nil {
		return err
	}
	if err := writeFields(f, results); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, run *domain.Run, results []domain.DocumentResult) error {
	pass, review, fail := 0, 0, 0
	for i := range results {
		for _, fd := range results[i].Findings {
			switch fd.Status {
			case domain.FindingStatusPass:
				pass++
			case domain.FindingStatusNeedsReview:
				review++
			case domain.FindingStatusFail:
				fail++
			}
		}
	}

	rows := [][]interface{}{
		{"Run", run.ID.String()},
		{"Application Reference", run.ApplicationRef},
		{"State", string(run.State)},
		{"Documents", run.TotalDocuments},
		{"Processed", run.Processed},
		{"Errors", run.Errors},
		{"LLM Calls", run.LLMCalls},
		{"Findings Passed", pass},
		{"Findings Needing Review", review},
		{"Findings Failed", fail},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(summarySheet, "A", "B", 30)
}

func writeFindings(f *excelize.File, results []domain.DocumentResult) error {
	if _, err := f.NewSheet(findingsSheet); err != nil {
		return fmt.Errorf("creating findings sheet: %w", err)
	}
	if err := setHeaderRow(f, findingsSheet, findingHeaders); err != nil {
		return err
	}

	rowNum := 2
	for i := range results {
		doc := results[i].Document
		for _, fd := range results[i].Findings {
			row := []interface{}{
				doc.FileName, string(doc.DocumentType), fd.RuleID,
				string(fd.Severity), string(fd.Status), fd.Message,
				strings.Join(fd.MissingFields, "; "),
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetSheetRow(findingsSheet, cell, &row); err != nil {
				return fmt.Errorf("writing finding row %d: %w", rowNum, err)
			}
			rowNum++
		}
	}
	return f.SetColWidth(findingsSheet, "F", "G", 50)
}

func writeFields(f *excelize.File, results []domain.DocumentResult) error {
	if _, err := f.NewSheet(fieldsSheet); err != nil {
		return fmt.Errorf("creating fields sheet: %w", err)
	}
	if err := setHeaderRow(f, fieldsSheet, fieldHeaders); err != nil {
		return err
	}

	rowNum := 2
	for i := range results {
		doc := results[i].Document
		for _, fld := range results[i].Fields {
			row := []interface{}{
				doc.FileName, fld.FieldName, fld.Value, fld.Confidence,
				string(fld.ResolvedBy), string(fld.Tier),
				fld.Evidence.Page, fld.Evidence.Snippet,
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetSheetRow(fieldsSheet, cell, &row); err != nil {
				return fmt.Errorf("writing field row %d: %w", rowNum, err)
			}
			rowNum++
		}
	}
	return f.SetColWidth(fieldsSheet, "C", "C", 40)
}

func setHeaderRow(f *excelize.File, sheet string, headers []string) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	return nil
}
