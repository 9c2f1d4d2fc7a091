package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"planproof/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Document Name",
	"Document Type",
	"Processing Status",
	"Rule ID",
	"Rule Severity",
	"Finding Status",
	"Message",
	"Missing Fields",
	"Created At",
}

// Writer wraps csv.Writer for exporting run findings as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteResults converts each document's findings to CSV rows and writes them.
// A document with no findings (failed before validation) still gets one row
// so the export accounts for every file in the run.
func (w *Writer) WriteResults(results []domain.DocumentResult) error {
	for i := range results {
		for _, row := range resultToRows(&results[i]) {
			if err := w.csv.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func resultToRows(result *domain.DocumentResult) [][]string {
	doc := result.Document

	if len(result.Findings) == 0 {
		row := make([]string, len(columns))
		row[0] = doc.FileName
		row[1] = string(doc.DocumentType)
		row[2] = string(doc.Status)
		row[6] = doc.ProcessingError
		row[8] = doc.CreatedAt.Format(time.RFC3339)
		return [][]string{row}
	}

	rows := make([][]string, 0, len(result.Findings))
	for _, f := range result.Findings {
		row := make([]string, len(columns))
		row[0] = doc.FileName
		row[1] = string(doc.DocumentType)
		row[2] = string(doc.Status)
		row[3] = f.RuleID
		row[4] = string(f.Severity)
		row[5] = string(f.Status)
		row[6] = f.Message
		row[7] = strings.Join(f.MissingFields, "; ")
		row[8] = f.CreatedAt.Format(time.RFC3339)
		rows = append(rows, row)
	}
	return rows
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a run reference for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_ref}_{YYYY-MM-DD}.{ext}
func BuildFilename(ref, ext string) string {
	sanitized := SanitizeFilename(ref)
	if sanitized == "" {
		sanitized = "run"
	}
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.%s", sanitized, date, ext)
}
