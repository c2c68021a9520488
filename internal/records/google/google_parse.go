package google

import (
	"fmt"
	"strings"

	"dentaldash/internal/core"
)

// parseRows converts a values matrix (as returned by the Sheets API) into
// field maps keyed by the header row. Blank cells become nil; rows with
// no value at all are skipped.
func parseRows(values [][]interface{}) ([]core.RawRecord, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	if indexOf(headers, "id") == -1 {
		return nil, fmt.Errorf("unexpected header: missing id; got headers=%v", headers)
	}

	out := make([]core.RawRecord, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := values[i]
		rec := make(core.RawRecord, len(headers))
		empty := true
		for j, h := range headers {
			if h == "" {
				continue
			}
			v := cell(row, j)
			if v != nil {
				empty = false
			}
			rec[strings.ToLower(h)] = v
		}
		if empty {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// cell returns the value at idx, nil for short rows and blank strings.
func cell(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return nil
	}
	if s, ok := row[idx].(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	return row[idx]
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}
