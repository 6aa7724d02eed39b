package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/diploma-portal/internal/models"
)

var bulkColumns = []string{"student_name", "student_email", "degree_name"}

// bulkRow is one parsed data row. Row is 1-based and counts data rows only.
// ParseError is set when the line could not be read as CSV.
type bulkRow struct {
	Row        int
	Request    models.IssueRequest
	ParseError string
}

// parseBulkCSV reads a header row followed by data rows. Columns are matched by
// name, ignoring case and order; unknown columns are ignored; blank lines are skipped.
// Only header problems fail the whole file; a malformed data line becomes a row
// carrying ParseError and reading resumes at the next line.
func parseBulkCSV(content []byte) ([]bulkRow, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("file is empty: header row required")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	missing := make([]string, 0)
	for _, col := range bulkColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s): %s", strings.Join(missing, ", "))
	}

	field := func(record []string, col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]bulkRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
			}
			rows = append(rows, bulkRow{Row: len(rows) + 1, ParseError: "malformed CSV line: " + parseErr.Error()})
			continue
		}
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, bulkRow{
			Row: len(rows) + 1,
			Request: models.IssueRequest{
				StudentName:  field(record, "student_name"),
				StudentEmail: field(record, "student_email"),
				DegreeName:   field(record, "degree_name"),
			},
		})
	}
	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
