// Package tabular turns spreadsheet exports (CSV/TSV text, Sheets JSON,
// xlsx workbooks) into flat, string-keyed row records.
package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	appLog "catersite/internal/log"
)

// Field is one named cell of a row.
type Field struct {
	Name  string
	Value string
}

// Record is one data row, fields in header order.
type Record []Field

// Get returns the value of the last field named name, or "".
func (r Record) Get(name string) string {
	v := ""
	for _, f := range r {
		if f.Name == name {
			v = f.Value
		}
	}
	return v
}

// Parse parses raw text. A content type containing application/json selects
// the JSON reader; everything else is treated as delimited text. Failures
// are logged and yield an empty result.
func Parse(text, contentType string) []Record {
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		return ParseJSON(text)
	}
	return ParseDelimited(text)
}

// DetectDelimiter picks tab, semicolon or comma, in that priority, from the
// header line.
func DetectDelimiter(firstLine string) rune {
	switch {
	case strings.Contains(firstLine, "\t"):
		return '\t'
	case strings.Contains(firstLine, ";"):
		return ';'
	default:
		return ','
	}
}

// ParseDelimited parses CSV/TSV text line by line. The first line is the
// header row; blank lines are skipped. A cell never spans lines.
func ParseDelimited(text string) []Record {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	delim := DetectDelimiter(lines[0])
	appLog.Debug("tabular delimiter detected", "delimiter", fmt.Sprintf("%q", delim))

	header := SplitLine(lines[0], delim)
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, SplitLine(line, delim))
	}
	return Zip(headers, rows)
}

// SplitLine splits one line on delim. A cell wrapped in double quotes is
// unquoted ("" becomes "); a quote that is not closed right before a
// delimiter or the end of the line is kept as literal text.
func SplitLine(line string, delim rune) []string {
	d := string(delim)
	var cells []string
	for {
		if strings.HasPrefix(line, `"`) {
			if cell, n, ok := quotedCell(line, d); ok {
				cells = append(cells, cell)
				line = line[n:]
				if line == "" {
					return cells
				}
				line = line[len(d):]
				continue
			}
		}
		i := strings.Index(line, d)
		if i < 0 {
			return append(cells, line)
		}
		cells = append(cells, line[:i])
		line = line[i+len(d):]
	}
}

// quotedCell reads the quoted cell s starts with and reports how many bytes
// it consumed.
func quotedCell(s, d string) (string, int, bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '"' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		if rest := s[i+1:]; rest == "" || strings.HasPrefix(rest, d) {
			return b.String(), i + 1, true
		}
		return "", 0, false
	}
	return "", 0, false
}

// Zip pairs each row positionally with headers. Missing trailing cells
// become "", cells beyond the header count are dropped.
func Zip(headers []string, rows [][]string) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(headers))
		for i, h := range headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			rec[i] = Field{Name: h, Value: v}
		}
		out = append(out, rec)
	}
	return out
}

// ParseJSON accepts a top-level array of row objects or a Sheets values
// matrix ({"values": [[header...], [row...], ...]}).
func ParseJSON(text string) []Record {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	records, err := parseJSON([]byte(trimmed))
	if err != nil {
		appLog.Warn("tabular json parse failed", "error", err.Error())
		return nil
	}
	return records
}

func parseJSON(data []byte) ([]Record, error) {
	if data[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(raws))
		for _, raw := range raws {
			rec, err := decodeObject(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	}

	var matrix struct {
		Values [][]any `json:"values"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&matrix); err != nil {
		return nil, err
	}
	if len(matrix.Values) == 0 {
		return nil, nil
	}

	headers := make([]string, len(matrix.Values[0]))
	for i, h := range matrix.Values[0] {
		headers[i] = strings.TrimSpace(Stringify(h))
	}
	rows := make([][]string, 0, len(matrix.Values)-1)
	for _, row := range matrix.Values[1:] {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = Stringify(c)
		}
		rows = append(rows, cells)
	}
	return Zip(headers, rows), nil
}

// decodeObject reads a JSON object keeping its key order.
func decodeObject(raw json.RawMessage) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		// Non-object array entries carry no fields.
		return Record{}, nil
	}

	var rec Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		rec = append(rec, Field{Name: key, Value: Stringify(val)})
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return rec, nil
}

// Stringify converts a decoded JSON scalar to its display string. Null,
// objects and arrays become "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprint(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// LooksLikeHTML reports whether body is an HTML document, which is what a
// spreadsheet export returns when it redirects to a login page.
func LooksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	s := strings.ToLower(strings.TrimSpace(string(head)))
	return strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html") || strings.Contains(s, "<html")
}
