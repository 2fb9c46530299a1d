package erptest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Get-Company/GC-Bridge-4/internal/erp"
)

type cursorMode int

const (
	modeBrowse cursorMode = iota
	modeEdit
	modeInsert
)

// recordset is a fake cursor over one table. View state (active range,
// filter, position) is cursor-local; row data lives in the shared store.
type recordset struct {
	store *Store
	table *table

	view []int // indices into table.rows, in index order
	pos  int

	rangeField string
	rangeFrom  erp.Key
	rangeTo    erp.Key
	filter     map[string]string

	mode    cursorMode
	pending map[string]any
}

// primaryIndex picks the widest declared index for row ordering; ordering
// only has to be stable, the exact choice does not matter for the fake.
func (rs *recordset) primaryIndex() []string {
	best := []string{}
	for _, components := range rs.table.schema.Indexes {
		if len(components) > len(best) {
			best = components
		}
	}
	return best
}

// resetView rebuilds the visible row set from range and filter state.
func (rs *recordset) resetView() {
	rs.store.mu.Lock()
	defer rs.store.mu.Unlock()
	rs.view = rs.view[:0]
	components := rs.indexComponents(rs.rangeField)
	for i, row := range rs.table.rows {
		if rs.rangeField != "" && !rs.inRange(row, components) {
			continue
		}
		if !rs.matchesFilter(row) {
			continue
		}
		rs.view = append(rs.view, i)
	}
	sortRows(rs.view, rs.table, rs.primaryIndex())
	rs.pos = 0
}

func (rs *recordset) indexComponents(indexField string) []string {
	if indexField == "" {
		return nil
	}
	if components, ok := rs.table.schema.Indexes[indexField]; ok {
		return components
	}
	return []string{indexField}
}

func (rs *recordset) inRange(row map[string]any, components []string) bool {
	for i, c := range components {
		if i >= len(rs.rangeFrom) || i >= len(rs.rangeTo) {
			break
		}
		if compare(row[c], rs.rangeFrom[i]) < 0 || compare(row[c], rs.rangeTo[i]) > 0 {
			return false
		}
	}
	return true
}

func (rs *recordset) matchesFilter(row map[string]any) bool {
	for field, want := range rs.filter {
		if fmt.Sprint(row[field]) != want {
			return false
		}
	}
	return true
}

func (rs *recordset) current() (map[string]any, error) {
	if rs.pos < 0 || rs.pos >= len(rs.view) {
		return nil, fmt.Errorf("erptest: cursor unpositioned on %s", rs.table.name)
	}
	rs.store.mu.Lock()
	defer rs.store.mu.Unlock()
	return rs.table.rows[rs.view[rs.pos]], nil
}

// FindKey searches the whole table, ignoring any active range, like the
// real protocol's keyed lookup does.
func (rs *recordset) FindKey(indexField string, key erp.Key) (bool, error) {
	components := rs.indexComponents(indexField)
	if len(components) == 0 {
		return false, fmt.Errorf("erptest: unknown index %q on %s", indexField, rs.table.name)
	}
	rs.rangeField, rs.rangeFrom, rs.rangeTo = "", nil, nil
	rs.resetView()
	for viewPos, rowIdx := range rs.view {
		row := rs.table.rows[rowIdx]
		match := true
		for i := range key {
			if i >= len(components) || compare(row[components[i]], key[i]) != 0 {
				match = false
				break
			}
		}
		if match {
			rs.pos = viewPos
			return true, nil
		}
	}
	rs.pos = len(rs.view)
	return false, nil
}

func (rs *recordset) SetRange(field string, from, to erp.Key) error {
	rs.rangeField, rs.rangeFrom, rs.rangeTo = field, from, to
	return nil
}

func (rs *recordset) ApplyRange() error {
	rs.resetView()
	return nil
}

func (rs *recordset) RecordCount() (int, error) { return len(rs.view), nil }

func (rs *recordset) First() error { rs.pos = 0; return nil }

func (rs *recordset) Last() error {
	rs.pos = len(rs.view) - 1
	if rs.pos < 0 {
		rs.pos = 0
	}
	return nil
}

func (rs *recordset) Next() error { rs.pos++; return nil }

func (rs *recordset) EOF() (bool, error) { return rs.pos >= len(rs.view), nil }

var filterPartRe = regexp.MustCompile(`^\[(\w+)\] = '?(.*?)'?$`)

func (rs *recordset) SetFilter(expression string) error {
	filter := make(map[string]string)
	for _, part := range strings.Split(expression, " AND ") {
		m := filterPartRe.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return fmt.Errorf("erptest: unsupported filter expression %q", part)
		}
		filter[m[1]] = m[2]
	}
	rs.filter = filter
	rs.resetView()
	return nil
}

func (rs *recordset) ClearFilter() error {
	rs.filter = nil
	rs.resetView()
	return nil
}

func (rs *recordset) Edit() error {
	row, err := rs.current()
	if err != nil {
		return err
	}
	pending := make(map[string]any, len(row))
	for k, v := range row {
		pending[k] = v
	}
	rs.mode = modeEdit
	rs.pending = pending
	return nil
}

func (rs *recordset) Append() error {
	rs.mode = modeInsert
	rs.pending = make(map[string]any)
	return nil
}

func (rs *recordset) Post() error {
	switch rs.mode {
	case modeEdit:
		row, err := rs.current()
		if err != nil {
			return err
		}
		rs.store.mu.Lock()
		for k, v := range rs.pending {
			row[k] = v
		}
		rs.store.mu.Unlock()
	case modeInsert:
		rs.store.mu.Lock()
		auto := rs.table.schema.AutoID
		if auto != "" {
			if _, ok := rs.pending[auto]; !ok {
				rs.pending[auto] = rs.store.nextAutoID[rs.table.name]
				rs.store.nextAutoID[rs.table.name]++
			}
		}
		rs.table.rows = append(rs.table.rows, rs.pending)
		inserted := len(rs.table.rows) - 1
		rs.store.mu.Unlock()
		rs.resetView()
		for viewPos, rowIdx := range rs.view {
			if rowIdx == inserted {
				rs.pos = viewPos
				break
			}
		}
	default:
		return fmt.Errorf("erptest: post without edit or append on %s", rs.table.name)
	}
	rs.mode = modeBrowse
	rs.pending = nil
	return nil
}

func (rs *recordset) Cancel() error {
	rs.mode = modeBrowse
	rs.pending = nil
	return nil
}

func (rs *recordset) CheckDelete() (bool, error) { return true, nil }

func (rs *recordset) Delete() error {
	if rs.pos < 0 || rs.pos >= len(rs.view) {
		return fmt.Errorf("erptest: delete with unpositioned cursor on %s", rs.table.name)
	}
	rowIdx := rs.view[rs.pos]
	rs.store.mu.Lock()
	rs.table.rows = append(rs.table.rows[:rowIdx], rs.table.rows[rowIdx+1:]...)
	rs.store.mu.Unlock()
	rs.resetView()
	return nil
}

// SetupNumber issues the next free business number for tables that declare
// a number field.
func (rs *recordset) SetupNumber() (string, error) {
	field := rs.table.schema.NumberField
	if field == "" {
		return "", fmt.Errorf("erptest: %s does not issue numbers", rs.table.name)
	}
	rs.store.mu.Lock()
	defer rs.store.mu.Unlock()
	highest := 10000
	for _, row := range rs.table.rows {
		if n, ok := asInt(row[field]); ok && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1), nil
}

func (rs *recordset) Field(name string) (erp.Field, error) {
	kind, ok := rs.table.schema.Fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", erp.ErrFieldUnknown, rs.table.name, name)
	}
	return &field{rs: rs, name: name, kind: kind}, nil
}

// field reads from the pending buffer while an edit or insert is open,
// otherwise from the current row. Writes require an open edit or insert.
type field struct {
	rs   *recordset
	name string
	kind erp.FieldKind
}

func (f *field) Kind() erp.FieldKind { return f.kind }

func (f *field) value() (any, error) {
	if f.rs.mode != modeBrowse {
		return f.rs.pending[f.name], nil
	}
	row, err := f.rs.current()
	if err != nil {
		return nil, err
	}
	return row[f.name], nil
}

func (f *field) AsString() (string, error) {
	v, err := f.value()
	if err != nil || v == nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func (f *field) AsInt() (int, error) {
	v, err := f.value()
	if err != nil || v == nil {
		return 0, err
	}
	n, ok := asInt(v)
	if !ok {
		return 0, fmt.Errorf("erptest: field %s is not an integer", f.name)
	}
	return n, nil
}

func (f *field) AsFloat() (float64, error) {
	v, err := f.value()
	if err != nil || v == nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("erptest: field %s is not a float", f.name)
	}
}

func (f *field) AsTime() (time.Time, error) {
	v, err := f.value()
	if err != nil || v == nil {
		return time.Time{}, err
	}
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("erptest: field %s is not a time", f.name)
}

func (f *field) set(v any) error {
	if f.rs.mode == modeBrowse {
		return fmt.Errorf("erptest: write to %s.%s without edit or append", f.rs.table.name, f.name)
	}
	f.rs.pending[f.name] = v
	return nil
}

func (f *field) SetString(value string) error {
	switch f.kind {
	case erp.FieldDate, erp.FieldDateTime:
		// Dates travel as dd.mm.yyyy text with an optional time part.
		for _, layout := range []string{"02.01.2006 15:04:05.000000", "02.01.2006"} {
			if t, err := time.Parse(layout, value); err == nil {
				return f.set(t)
			}
		}
		return fmt.Errorf("erptest: unparseable date %q for %s", value, f.name)
	default:
		return f.set(value)
	}
}

func (f *field) SetInt(value int) error { return f.set(value) }

func (f *field) SetFloat(value float64) error { return f.set(value) }
