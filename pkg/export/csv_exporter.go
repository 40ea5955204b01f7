package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
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

// SanitizeCell prefixes values a spreadsheet would evaluate as a formula with a single quote.
func SanitizeCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}

// ParseError reports a malformed line while reading a CSV dataset.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadCSV parses CSV input into a Dataset keyed by the lower-cased header row.
// Rows with the wrong number of fields are skipped and reported in the returned slice.
func ReadCSV(r io.Reader) (Dataset, []ParseError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerRow, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, nil, fmt.Errorf("csv is empty")
		}
		return Dataset{}, nil, fmt.Errorf("read csv header: %w", err)
	}

	headers := make([]string, len(headerRow))
	for i, h := range headerRow {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	data := Dataset{Headers: headers}
	var rowErrs []ParseError
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			rowErrs = append(rowErrs, ParseError{Line: line, Err: err})
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != len(headers) {
			rowErrs = append(rowErrs, ParseError{Line: line, Err: fmt.Errorf("expected %d fields, got %d", len(headers), len(record))})
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			row[h] = strings.TrimSpace(record[i])
		}
		row[LineKey] = strconv.Itoa(line)
		data.Rows = append(data.Rows, row)
	}
	return data, rowErrs, nil
}

// LineKey is the synthetic column ReadCSV uses to carry each row's source line number.
const LineKey = "__line"
