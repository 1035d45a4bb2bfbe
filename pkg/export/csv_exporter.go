package export

import (
	"bytes"
	"fmt"
	"strings"
)

// ByteOrderMark is prepended to CSV output so spreadsheet tools detect UTF-8.
const ByteOrderMark = "\uFEFF"

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Quoted lists headers whose values are always wrapped in double quotes.
	Quoted []string
}

// CSVExporter renders Dataset records into comma-delimited bytes.
type CSVExporter struct {
	bom bool
}

// NewCSVExporter builds a CSV exporter. With bom set the output starts with a UTF-8 byte-order mark.
func NewCSVExporter(bom bool) *CSVExporter {
	return &CSVExporter{bom: bom}
}

// Render produces CSV encoded bytes for the dataset, one line per row after the header line.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	forced := make(map[string]bool, len(data.Quoted))
	for _, h := range data.Quoted {
		forced[h] = true
	}

	buf := &bytes.Buffer{}
	if e.bom {
		buf.WriteString(ByteOrderMark)
	}
	writeLine(buf, data.Headers, func(i int) bool { return false })
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		writeLine(buf, record, func(i int) bool { return forced[data.Headers[i]] })
	}
	return buf.Bytes(), nil
}

func writeLine(buf *bytes.Buffer, fields []string, quote func(int) bool) {
	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if quote(i) || strings.ContainsAny(field, ",\"\r\n") {
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			buf.WriteByte('"')
			continue
		}
		buf.WriteString(field)
	}
	buf.WriteByte('\n')
}
