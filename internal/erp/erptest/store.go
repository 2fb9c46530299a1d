// Package erptest provides an in-memory implementation of the legacy
// record-protocol ports, so reconciliation logic can be tested without a
// real session.
package erptest

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Get-Company/GC-Bridge-4/internal/erp"
)

// Schema declares the fields and indexes of one fake recordset.
type Schema struct {
	// Fields maps field name to its declared storage kind.
	Fields map[string]erp.FieldKind
	// Indexes maps index name to the ordered component fields.
	Indexes map[string][]string
	// AutoID, when set, names an integer field assigned on insert.
	AutoID string
	// NumberField, when set, names the field SetupNumber issues values for.
	NumberField string
}

// Store is a fake legacy store shared by all sessions opened against it.
type Store struct {
	mu     sync.Mutex
	tables map[string]*table

	documents   map[string]*Document
	docCounter  int
	nextAutoID  map[string]int
	closedCount int
}

type table struct {
	name   string
	schema Schema
	rows   []map[string]any
}

// NewStore creates an empty store with the recordset schemas the bridge
// talks to.
func NewStore() *Store {
	s := &Store{
		tables:     make(map[string]*table),
		documents:  make(map[string]*Document),
		nextAutoID: make(map[string]int),
	}
	s.DefineTable(erp.DatasetAdressen, Schema{
		Fields: map[string]erp.FieldKind{
			"Nr": erp.FieldString, "AdrNr": erp.FieldString, "AdrId": erp.FieldInteger,
			"Na1": erp.FieldString, "EMail1": erp.FieldString, "Status": erp.FieldString,
			"UStIdNr": erp.FieldString, "UStKat": erp.FieldInteger,
			"LiAnsNr": erp.FieldInteger, "ReAnsNr": erp.FieldInteger,
		},
		Indexes:     map[string][]string{"Nr": {"AdrNr"}},
		AutoID:      "AdrId",
		NumberField: "AdrNr",
	})
	s.DefineTable(erp.DatasetAnschriften, Schema{
		Fields: map[string]erp.FieldKind{
			"ID": erp.FieldInteger, "AdrNr": erp.FieldString, "AnsNr": erp.FieldInteger,
			"Na1": erp.FieldString, "Na2": erp.FieldString, "Na3": erp.FieldString,
			"Str": erp.FieldString, "PLZ": erp.FieldString, "Ort": erp.FieldString,
			"Land": erp.FieldInteger, "EMail1": erp.FieldString, "Tel": erp.FieldString,
			"Abt": erp.FieldString, "StdLiKz": erp.FieldBoolean, "StdReKz": erp.FieldBoolean,
		},
		Indexes: map[string][]string{
			erp.IndexAnschrift: {"AdrNr", "AnsNr"},
			"ID":               {"ID"},
		},
		AutoID: "ID",
	})
	s.DefineTable(erp.DatasetAnsprechpartner, Schema{
		Fields: map[string]erp.FieldKind{
			"ID": erp.FieldInteger, "AdrNr": erp.FieldString, "AnsNr": erp.FieldInteger,
			"AspNr": erp.FieldInteger, "Anr": erp.FieldString, "VNa": erp.FieldString,
			"NNa": erp.FieldString, "Ansp": erp.FieldString, "AnspAufbau": erp.FieldInteger,
			"EMail1": erp.FieldString, "Tel1": erp.FieldString, "Abt": erp.FieldString,
			"StdKz": erp.FieldBoolean,
		},
		Indexes: map[string][]string{
			"Nr": {"AdrNr", "AnsNr", "AspNr"},
			"ID": {"ID"},
		},
		AutoID: "ID",
	})
	s.DefineTable(erp.DatasetArtikel, Schema{
		Fields: map[string]erp.FieldKind{
			"Nr": erp.FieldString, "ArtNr": erp.FieldString, "KuBez5": erp.FieldString,
			"Einh": erp.FieldString, "Fkt": erp.FieldInteger, "WShopKz": erp.FieldBoolean,
			"MinAbn": erp.FieldInteger, "VerpEinh": erp.FieldInteger, "SortNr": erp.FieldInteger,
			"Bez": erp.FieldBlob, "KuBez": erp.FieldString,
			"Vk0": erp.FieldFloat, "RabMge": erp.FieldInteger, "RabPr": erp.FieldFloat,
			"SPr": erp.FieldFloat, "SPrVon": erp.FieldDateTime, "SPrBis": erp.FieldDateTime,
		},
		Indexes: map[string][]string{
			"Nr":    {"ArtNr"},
			"ArtNr": {"ArtNr"},
		},
	})
	s.DefineTable(erp.DatasetVorgang, Schema{
		Fields: map[string]erp.FieldKind{
			"BelegNr": erp.FieldString, "AdrNr": erp.FieldString, "AuftrNr": erp.FieldString,
			"Bez": erp.FieldString, "ZahlArt": erp.FieldInteger, "VsdArt": erp.FieldInteger,
		},
		Indexes: map[string][]string{"BelegNr": {"BelegNr"}},
	})
	s.DefineTable(erp.DatasetLager, Schema{
		Fields: map[string]erp.FieldKind{
			"ArtNr": erp.FieldString, "LagNr": erp.FieldInteger,
			"Mge": erp.FieldFloat, "Pos": erp.FieldString,
		},
		Indexes: map[string][]string{erp.IndexLager: {"ArtNr", "LagNr"}},
	})
	return s
}

// DefineTable registers or replaces a recordset schema.
func (s *Store) DefineTable(name string, schema Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = &table{name: name, schema: schema}
	if s.nextAutoID[name] == 0 {
		s.nextAutoID[name] = 1
	}
}

// Insert seeds a row, assigning the auto-id field when absent.
func (s *Store) Insert(tableName string, row map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		panic(fmt.Sprintf("erptest: no table %q", tableName))
	}
	copied := make(map[string]any, len(row))
	for k, v := range row {
		copied[k] = v
	}
	if t.schema.AutoID != "" {
		if _, ok := copied[t.schema.AutoID]; !ok {
			copied[t.schema.AutoID] = s.nextAutoID[tableName]
			s.nextAutoID[tableName]++
		} else if id, ok := asInt(copied[t.schema.AutoID]); ok && id >= s.nextAutoID[tableName] {
			s.nextAutoID[tableName] = id + 1
		}
	}
	t.rows = append(t.rows, copied)
}

// Rows returns copies of all rows of a table, for assertions.
func (s *Store) Rows(tableName string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[tableName]
	if t == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(t.rows))
	for _, row := range t.rows {
		copied := make(map[string]any, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out = append(out, copied)
	}
	return out
}

// FindRows returns copies of rows matching all given field values.
func (s *Store) FindRows(tableName string, match map[string]any) []map[string]any {
	var out []map[string]any
	for _, row := range s.Rows(tableName) {
		ok := true
		for k, v := range match {
			if compare(row[k], v) != 0 {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}

// Document returns a posted document by id, for assertions.
func (s *Store) Document(documentID string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents[documentID]
}

// OpenSession opens a fake session against the store.
func (s *Store) OpenSession() (erp.Session, error) {
	return &session{store: s}, nil
}

// Open implements erp.SessionFactory.
func (s *Store) Open() (erp.Session, error) {
	return s.OpenSession()
}

type session struct {
	store  *Store
	closed bool
}

func (se *session) OpenRecordset(name string) (erp.Recordset, error) {
	if se.closed {
		return nil, erp.ErrSessionClosed
	}
	se.store.mu.Lock()
	t, ok := se.store.tables[name]
	se.store.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", erp.ErrRecordsetUnavailable, name)
	}
	rs := &recordset{store: se.store, table: t}
	rs.resetView()
	return rs, nil
}

func (se *session) SpecialObject(code int) (any, error) {
	if code != 1 {
		return nil, fmt.Errorf("%w: code %d", erp.ErrNoDocumentObject, code)
	}
	return &documentHandle{store: se.store}, nil
}

func (se *session) Close() error {
	se.closed = true
	se.store.mu.Lock()
	se.store.closedCount++
	se.store.mu.Unlock()
	return nil
}

// compare orders two scalar values; ints numerically, everything else as
// formatted text. Mixed int/string pairs fall back to text comparison.
func compare(a, b any) int {
	ai, aok := asInt(a)
	bi, bok := asInt(b)
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case time.Time, nil:
		return 0, false
	default:
		return 0, false
	}
}

func sortRows(rows []int, t *table, components []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := t.rows[rows[i]], t.rows[rows[j]]
		for _, c := range components {
			if cmp := compare(a[c], b[c]); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
}
