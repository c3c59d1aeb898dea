package nbastats

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// envelope is the common shape of stats endpoints: named tables of headers plus positional rows
type envelope struct {
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

// table gives column access by header name
type table struct {
	columns map[string]int
	rows    [][]any
}

// decodeTable returns the named result set, or the first one when name is empty
func decodeTable(body []byte, name string) (*table, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding result sets: %w", err)
	}
	for _, rs := range env.ResultSets {
		if name != "" && rs.Name != name {
			continue
		}
		columns := make(map[string]int, len(rs.Headers))
		for i, h := range rs.Headers {
			columns[h] = i
		}
		return &table{columns: columns, rows: rs.RowSet}, nil
	}
	return nil, fmt.Errorf("result set %q not found", name)
}

func (t *table) require(cols ...string) error {
	for _, c := range cols {
		if _, ok := t.columns[c]; !ok {
			return fmt.Errorf("result set missing column %s", c)
		}
	}
	return nil
}

func (t *table) cell(row []any, col string) any {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

func (t *table) str(row []any, col string) string {
	switch v := t.cell(row, col).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (t *table) num(row []any, col string) float64 {
	switch v := t.cell(row, col).(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
