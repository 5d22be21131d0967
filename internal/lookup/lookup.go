// Package lookup encapsulates the enumerated code tables CWR fields are
// validated against (Territory, Language, Writer Role, and so on).
// Tables are loaded lazily on first request and cached for the lifetime
// of the Manager; once loaded, a table is treated as an immutable set.
package lookup

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Row is one entry of a lookup table: a code plus its attributes. The
// Definition column is always present; Extra preserves any additional
// columns the CSV dump carried, per spec.md §6 ("tolerates extra columns").
type Row struct {
	Code       string
	Definition string
	Extra      map[string]string
}

// Table is a code -> Row map for one named lookup category.
type Table map[string]Row

// Source loads the raw rows for a named table on first request. Callers
// typically supply a function backed by an embedded or on-disk CSV file.
type Source func(table string) ([]Row, error)

// NotFoundError is returned when a requested table has no known source.
// It is a host/configuration error per spec.md §7, not a content
// diagnostic: the caller decides whether that's fatal or merely a
// validation rule to skip.
type NotFoundError struct {
	Table string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("lookup table %q not found", e.Table)
}

// Manager loads, caches, and queries lookup tables. A Manager is safe for
// concurrent use: tables are loaded at most once, guarded by a mutex, and
// never mutated after load.
type Manager struct {
	mu     sync.RWMutex
	tables map[string]Table
	source Source
	logger *slog.Logger
}

// NewManager creates a Manager that loads tables on demand via source.
// A nil logger falls back to slog.Default(), matching the teacher's
// convention of treating *slog.Logger as always non-nil in practice but
// never panicking if it happens to be unset.
func NewManager(source Source, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tables: make(map[string]Table),
		source: source,
		logger: logger,
	}
}

// GetTable returns the named table, loading it from Source on first use.
func (m *Manager) GetTable(name string) (Table, error) {
	m.mu.RLock()
	if t, ok := m.tables[name]; ok {
		m.mu.RUnlock()
		return t, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-check: another goroutine may have loaded it while we waited.
	if t, ok := m.tables[name]; ok {
		return t, nil
	}

	rows, err := m.source(name)
	if err != nil {
		m.logger.Warn("lookup table unavailable", "table", name, "error", err)
		return nil, err
	}

	t := make(Table, len(rows))
	for _, r := range rows {
		t[r.Code] = r
	}
	m.tables[name] = t
	m.logger.Debug("loaded lookup table", "table", name, "entries", len(t))
	return t, nil
}

// Lookup returns the Definition (or an Extra column named valueField) for
// key in the named table.
func (m *Manager) Lookup(tableName, keyValue, valueField string) (string, error) {
	t, err := m.GetTable(tableName)
	if err != nil {
		return "", err
	}
	row, ok := t[keyValue]
	if !ok {
		return "", fmt.Errorf("key %q not found in table %q", keyValue, tableName)
	}
	if valueField == "" || valueField == "DEFINITION" {
		return row.Definition, nil
	}
	v, ok := row.Extra[valueField]
	if !ok {
		return "", fmt.Errorf("field %q not found on row %q of table %q", valueField, keyValue, tableName)
	}
	return v, nil
}

// IsValid reports whether keyValue is a member of the named table. If the
// table cannot be loaded at all, IsValid returns false and the caller is
// expected to have already surfaced the load failure via GetTable/a
// Warning diagnostic (spec.md §4.2: "the rule is skipped with a logged
// gap, never silently").
func (m *Manager) IsValid(tableName, keyValue string) bool {
	t, err := m.GetTable(tableName)
	if err != nil {
		return false
	}
	_, ok := t[keyValue]
	return ok
}

// ExtractAllLookupTables bootstraps every lookup table from a single
// multi-table CSV dump (spec.md §4.2, §6). Rows are grouped by the
// "Category" column; CODE and DEFINITION columns are required, any
// others are preserved as Extra attributes. Unknown categories are not
// failures — publishers occasionally ship extended tables — so they are
// collected into the returned map just the same; it is the caller's
// responsibility to decide whether an unrecognized category warrants a
// diagnostic.
func ExtractAllLookupTables(r io.Reader) (map[string][]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[h] = i
	}
	for _, required := range []string{"Category", "CODE", "DEFINITION"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("lookup CSV missing required column %q", required)
		}
	}

	result := make(map[string][]Row)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read lookup CSV row: %w", err)
		}

		category := record[colIndex["Category"]]
		row := Row{
			Code:       record[colIndex["CODE"]],
			Definition: record[colIndex["DEFINITION"]],
			Extra:      make(map[string]string),
		}
		for name, idx := range colIndex {
			if name == "Category" || name == "CODE" || name == "DEFINITION" {
				continue
			}
			if idx < len(record) {
				row.Extra[name] = record[idx]
			}
		}
		result[category] = append(result[category], row)
	}
	return result, nil
}

// SourceFromBulkCSV adapts a single bulk-dump reader (spec.md §6) into a
// Source: every call loads the same reader's contents and serves the
// category matching the requested table name. Intended for callers that
// have exactly one CSV dump covering every category; callers with one
// file per table should write their own Source instead.
func SourceFromBulkCSV(r io.Reader) Source {
	var once sync.Once
	var cached map[string][]Row
	var loadErr error

	return func(table string) ([]Row, error) {
		once.Do(func() {
			cached, loadErr = ExtractAllLookupTables(r)
		})
		if loadErr != nil {
			return nil, loadErr
		}
		rows, ok := cached[table]
		if !ok {
			return nil, &NotFoundError{Table: table}
		}
		return rows, nil
	}
}
