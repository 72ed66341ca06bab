// Package dataset turns uploaded or pasted CSV/JSON into row records.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrEmpty           = errors.New("dataset is empty")
	ErrInvalidJSON     = errors.New("invalid JSON format. Expected an array of objects or an object with a data array")
	ErrUnsupportedFile = errors.New("unsupported file type. Please upload a CSV or JSON file")
)

// Record is one row. CSV cells are strings; JSON values keep their decoded type.
type Record map[string]any

type Dataset struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// Column returns the values of one column in row order; absent cells are nil.
func (d *Dataset) Column(name string) []any {
	values := make([]any, len(d.Records))
	for i, r := range d.Records {
		values[i] = r[name]
	}
	return values
}

// ParseCSV reads a header row followed by data rows. Ragged rows are
// tolerated: missing cells become empty strings, extra cells are dropped.
func ParseCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing CSV header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	ds := &Dataset{Columns: columns}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing CSV file: %w", err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rec := make(Record, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// ParseJSON accepts an array of objects, an object carrying a "data" array,
// or a single object.
func ParseJSON(b []byte) (*Dataset, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}

	var rows []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	case '{':
		var wrapper struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err == nil && wrapper.Data != nil {
			rows = wrapper.Data
		} else {
			rows = []json.RawMessage{trimmed}
		}
	default:
		return nil, ErrInvalidJSON
	}

	ds := &Dataset{}
	seen := make(map[string]bool)
	for _, raw := range rows {
		keys, err := objectKeys(raw)
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				ds.Columns = append(ds.Columns, k)
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// objectKeys lists the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrInvalidJSON
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}
	return keys, nil
}

// Parse sniffs pasted text: JSON when it opens with '[' or '{', CSV otherwise.
func Parse(text string) (*Dataset, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmpty
	}
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return ParseJSON([]byte(trimmed))
	}
	return ParseCSV(strings.NewReader(trimmed))
}

// ParseFile dispatches on the file extension.
func ParseFile(name string, data []byte) (*Dataset, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv":
		return ParseCSV(bytes.NewReader(data))
	case "json":
		return ParseJSON(data)
	default:
		return nil, ErrUnsupportedFile
	}
}
