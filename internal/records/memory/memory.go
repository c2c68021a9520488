package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"dentaldash/internal/core"
	"dentaldash/internal/records"
)

var (
	_ records.Fetcher  = (*Store)(nil)
	_ records.Replacer = (*Store)(nil)
)

// Store is an in-memory table store. It backs development setups and
// tests; FetchErr makes every fetch fail.
type Store struct {
	mu       sync.Mutex
	tables   map[string][]core.RawRecord
	fetches  int
	FetchErr error
}

func New() *Store {
	return &Store{tables: make(map[string][]core.RawRecord)}
}

// NewFromFile seeds table with the JSON array of objects stored at path.
// A missing file leaves the table empty.
func NewFromFile(path, table string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	s.tables[table] = rows
	return s, nil
}

// decodeRows keeps numbers as json.Number so identifiers and amounts
// survive without float rounding.
func decodeRows(data []byte) ([]core.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []core.RawRecord
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchAll returns copies of the rows of table.
func (s *Store) FetchAll(_ context.Context, table string) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	src := s.tables[table]
	out := make([]core.RawRecord, len(src))
	for i, row := range src {
		out[i] = copyRow(row)
	}
	return out, nil
}

// Replace swaps the rows of table.
func (s *Store) Replace(_ context.Context, table string, rows []core.RawRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]core.RawRecord, len(rows))
	for i, row := range rows {
		cp[i] = copyRow(row)
	}
	s.tables[table] = cp
	return len(cp), nil
}

// Fetches reports how many times FetchAll was called.
func (s *Store) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func copyRow(row core.RawRecord) core.RawRecord {
	out := make(core.RawRecord, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
