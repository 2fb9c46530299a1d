package erpgate

import (
	"strconv"
	"time"

	"github.com/Get-Company/GC-Bridge-4/internal/erp"
)

// recordset proxies one server-side cursor. Field values cross the wire as
// strings together with their declared storage kind.
type recordset struct {
	session *session
	handle  string
	name    string
}

func (rs *recordset) call(op string, args ...any) (*callResult, error) {
	return rs.session.call("/v1/recordsets/"+rs.handle, op, args...)
}

func (rs *recordset) FindKey(indexField string, key erp.Key) (bool, error) {
	result, err := rs.call("findKey", indexField, []any(key))
	if err != nil {
		return false, err
	}
	return result.Found, nil
}

func (rs *recordset) SetRange(field string, from, to erp.Key) error {
	_, err := rs.call("setRange", field, []any(from), []any(to))
	return err
}

func (rs *recordset) ApplyRange() error {
	_, err := rs.call("applyRange")
	return err
}

func (rs *recordset) RecordCount() (int, error) {
	result, err := rs.call("recordCount")
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (rs *recordset) First() error {
	_, err := rs.call("first")
	return err
}

func (rs *recordset) Last() error {
	_, err := rs.call("last")
	return err
}

func (rs *recordset) Next() error {
	_, err := rs.call("next")
	return err
}

func (rs *recordset) EOF() (bool, error) {
	result, err := rs.call("eof")
	if err != nil {
		return false, err
	}
	return result.EOF, nil
}

func (rs *recordset) SetFilter(expression string) error {
	_, err := rs.call("setFilter", expression)
	return err
}

func (rs *recordset) ClearFilter() error {
	_, err := rs.call("clearFilter")
	return err
}

func (rs *recordset) Edit() error {
	_, err := rs.call("edit")
	return err
}

func (rs *recordset) Append() error {
	_, err := rs.call("append")
	return err
}

func (rs *recordset) Post() error {
	_, err := rs.call("post")
	return err
}

func (rs *recordset) Cancel() error {
	_, err := rs.call("cancel")
	return err
}

func (rs *recordset) CheckDelete() (bool, error) {
	result, err := rs.call("checkDelete")
	if err != nil {
		return false, err
	}
	return result.OK, nil
}

func (rs *recordset) Delete() error {
	_, err := rs.call("delete")
	return err
}

func (rs *recordset) SetupNumber() (string, error) {
	result, err := rs.call("setupNumber")
	if err != nil {
		return "", err
	}
	return result.Value, nil
}

// Field resolves the field's storage kind up front; value access is a round
// trip per call, mirroring the protocol.
func (rs *recordset) Field(name string) (erp.Field, error) {
	result, err := rs.call("fieldKind", name)
	if err != nil {
		return nil, err
	}
	return &field{rs: rs, name: name, kind: erp.FieldKind(result.Kind)}, nil
}

type field struct {
	rs   *recordset
	name string
	kind erp.FieldKind
}

func (f *field) Kind() erp.FieldKind { return f.kind }

func (f *field) AsString() (string, error) {
	result, err := f.rs.call("fieldGet", f.name)
	if err != nil {
		return "", err
	}
	return result.Value, nil
}

func (f *field) AsInt() (int, error) {
	raw, err := f.AsString()
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (f *field) AsFloat() (float64, error) {
	raw, err := f.AsString()
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func (f *field) AsTime() (time.Time, error) {
	raw, err := f.AsString()
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}

func (f *field) SetString(value string) error {
	_, err := f.rs.call("fieldSet", f.name, value)
	return err
}

func (f *field) SetInt(value int) error {
	_, err := f.rs.call("fieldSet", f.name, value)
	return err
}

func (f *field) SetFloat(value float64) error {
	_, err := f.rs.call("fieldSet", f.name, value)
	return err
}
