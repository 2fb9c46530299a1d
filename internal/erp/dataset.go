package erp

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// legacyDateLayout is the wire format the legacy store accepts for date
// fields; datetime fields additionally carry the time-of-day part.
const (
	legacyDateLayout     = "02.01.2006"
	legacyDateTimeLayout = "02.01.2006 15:04:05.000000"
)

// Dataset wraps one named legacy recordset with a declared primary index
// field. It is the only place that talks the raw cursor protocol; the
// reconcilers above it never touch a Recordset directly.
//
// Reads that fail at the transport level return the zero value and are
// logged, because the legacy store's "field absent" and "read failed" cases
// are indistinguishable to callers that tolerate missing data. Writes
// return errors, and Commit rolls back automatically on failure so the
// cursor never stays in a half-written state.
type Dataset struct {
	name       string
	indexField string
	rs         Recordset
	session    Session
	logger     *zap.Logger
}

// NewDataset opens a cursor over the named recordset.
func NewDataset(session Session, name, indexField string, logger *zap.Logger) (*Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("erp: dataset name is required")
	}
	if indexField == "" {
		return nil, fmt.Errorf("erp: index field is required for dataset %q", name)
	}
	rs, err := session.OpenRecordset(name)
	if err != nil {
		return nil, fmt.Errorf("erp: open recordset %q: %w", name, err)
	}
	return &Dataset{
		name:       name,
		indexField: indexField,
		rs:         rs,
		session:    session,
		logger:     logger.With(zap.String("dataset", name)),
	}, nil
}

// Name returns the recordset name.
func (d *Dataset) Name() string { return d.name }

// IndexField returns the declared primary index field.
func (d *Dataset) IndexField() string { return d.indexField }

// Locate positions the cursor on the first record whose index value equals
// key. Not-found is an expected outcome and reported as false, never as an
// error; transport failures are logged and also reported as false.
func (d *Dataset) Locate(key Key, indexField ...string) bool {
	field := d.indexField
	if len(indexField) > 0 && indexField[0] != "" {
		field = indexField[0]
	}
	found, err := d.rs.FindKey(field, key)
	if err != nil {
		d.logger.Error("find key failed",
			zap.String("index", field), zap.Any("key", key), zap.Error(err))
		return false
	}
	d.logger.Debug("find key",
		zap.String("index", field), zap.Any("key", key), zap.Bool("found", found))
	return found
}

// BeginRange applies an inclusive range filter over field (default: the
// declared index) and positions at the first matching record. Returns false
// with the cursor unpositioned when the range is empty.
func (d *Dataset) BeginRange(from, to Key, field ...string) bool {
	rangeField := d.indexField
	if len(field) > 0 && field[0] != "" {
		rangeField = field[0]
	}
	if err := d.rs.SetRange(rangeField, from, to); err != nil {
		d.logger.Error("set range failed", zap.String("field", rangeField), zap.Error(err))
		return false
	}
	if err := d.rs.ApplyRange(); err != nil {
		d.logger.Error("apply range failed", zap.String("field", rangeField), zap.Error(err))
		return false
	}
	if d.Count() == 0 {
		d.logger.Debug("range is empty", zap.Any("from", from), zap.Any("to", to))
		return false
	}
	if err := d.rs.First(); err != nil {
		d.logger.Error("position first failed", zap.Error(err))
		return false
	}
	return true
}

// RangeAtEnd reports whether the cursor moved past the last record of the
// active range.
func (d *Dataset) RangeAtEnd() bool {
	eof, err := d.rs.EOF()
	if err != nil {
		d.logger.Error("eof check failed", zap.Error(err))
		return true
	}
	return eof
}

// Advance moves the cursor to the next record of the active range.
func (d *Dataset) Advance() {
	if err := d.rs.Next(); err != nil {
		d.logger.Error("advance failed", zap.Error(err))
	}
}

// PositionLast moves the cursor to the last record of the active range.
func (d *Dataset) PositionLast() {
	if err := d.rs.Last(); err != nil {
		d.logger.Error("position last failed", zap.Error(err))
	}
}

// Count returns the number of records in the active range.
func (d *Dataset) Count() int {
	n, err := d.rs.RecordCount()
	if err != nil {
		d.logger.Error("record count failed", zap.Error(err))
		return 0
	}
	return n
}

// ApplyEqualityFilter applies a server-side equality filter independent of
// the active range, for lookups on fields that carry no index. Fields are
// rendered in a stable order so the expression is deterministic.
func (d *Dataset) ApplyEqualityFilter(filters map[string]any) bool {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		switch v := filters[name].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("[%s] = '%s'", name, v))
		default:
			parts = append(parts, fmt.Sprintf("[%s] = %v", name, v))
		}
	}
	expression := strings.Join(parts, " AND ")
	if err := d.rs.SetFilter(expression); err != nil {
		d.logger.Error("apply filter failed", zap.String("filter", expression), zap.Error(err))
		return false
	}
	d.logger.Debug("filter applied", zap.String("filter", expression))
	return true
}

// ClearFilter removes an active equality filter.
func (d *Dataset) ClearFilter() bool {
	if err := d.rs.ClearFilter(); err != nil {
		d.logger.Error("clear filter failed", zap.Error(err))
		return false
	}
	return true
}

// First repositions the cursor at the first record of the active range or
// filter result.
func (d *Dataset) First() {
	if err := d.rs.First(); err != nil {
		d.logger.Error("position first failed", zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Mutation lifecycle
// ---------------------------------------------------------------------------

// BeginInsert starts an append on the recordset.
func (d *Dataset) BeginInsert() error {
	if err := d.rs.Append(); err != nil {
		return fmt.Errorf("erp: append on %q: %w", d.name, err)
	}
	return nil
}

// BeginEdit puts the current record into edit mode.
func (d *Dataset) BeginEdit() error {
	if err := d.rs.Edit(); err != nil {
		return fmt.Errorf("erp: edit on %q: %w", d.name, err)
	}
	return nil
}

// Commit posts the pending insert or edit. On failure the pending change is
// discarded before the error propagates, so the cursor never remains in an
// inconsistent half-written state.
func (d *Dataset) Commit() error {
	if err := d.rs.Post(); err != nil {
		d.logger.Error("post failed, discarding", zap.Error(err))
		d.Discard()
		return fmt.Errorf("erp: post on %q: %w", d.name, err)
	}
	return nil
}

// Discard cancels the pending insert or edit.
func (d *Dataset) Discard() {
	if err := d.rs.Cancel(); err != nil {
		d.logger.Error("cancel failed", zap.Error(err))
	}
}

// NextNumber asks the store for the next free business number. On failure
// the pending insert is discarded and "" is returned; callers treat an
// empty number as a validation error.
func (d *Dataset) NextNumber() string {
	nr, err := d.rs.SetupNumber()
	if err != nil {
		d.logger.Error("number issuing failed", zap.Error(err))
		d.Discard()
		return ""
	}
	return nr
}

// DeleteRecord deletes the current record after asking the store whether
// deletion is allowed. A refusal is logged and skipped, not an error.
func (d *Dataset) DeleteRecord() error {
	ok, err := d.rs.CheckDelete()
	if err != nil {
		return fmt.Errorf("erp: check delete on %q: %w", d.name, err)
	}
	if !ok {
		d.logger.Warn("delete refused by store")
		return nil
	}
	if err := d.rs.Delete(); err != nil {
		return fmt.Errorf("erp: delete on %q: %w", d.name, err)
	}
	d.logger.Debug("record deleted")
	return nil
}

// ---------------------------------------------------------------------------
// Typed field access
// ---------------------------------------------------------------------------

// GetString reads a field as text. Failures and unknown storage kinds yield
// "" and a log entry.
func (d *Dataset) GetString(name string) string {
	field, err := d.rs.Field(name)
	if err != nil {
		d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
		return ""
	}
	switch field.Kind() {
	case FieldString, FieldWideString, FieldDouble, FieldBlob, FieldInfo:
		v, err := field.AsString()
		if err != nil {
			d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
			return ""
		}
		return v
	case FieldInteger, FieldBoolean, FieldByte, FieldAutoInc:
		v, err := field.AsInt()
		if err != nil {
			d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
			return ""
		}
		return fmt.Sprintf("%d", v)
	case FieldFloat:
		v, err := field.AsFloat()
		if err != nil {
			d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
			return ""
		}
		return decimal.NewFromFloat(v).String()
	case FieldDate, FieldDateTime:
		v, err := field.AsTime()
		if err != nil || v.IsZero() {
			return ""
		}
		return v.Format(legacyDateTimeLayout)
	default:
		d.logger.Warn("unknown field kind", zap.String("field", name), zap.String("kind", string(field.Kind())))
		return ""
	}
}

// GetInt reads an integer-kind field. Booleans deserialize as integers on
// read; see FieldKind.
func (d *Dataset) GetInt(name string) int {
	field, err := d.rs.Field(name)
	if err != nil {
		d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
		return 0
	}
	switch field.Kind() {
	case FieldInteger, FieldBoolean, FieldByte, FieldAutoInc:
		v, err := field.AsInt()
		if err != nil {
			d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
			return 0
		}
		return v
	default:
		d.logger.Warn("field kind is not integer", zap.String("field", name), zap.String("kind", string(field.Kind())))
		return 0
	}
}

// GetDecimal reads a float-kind field into a decimal.
func (d *Dataset) GetDecimal(name string) decimal.Decimal {
	field, err := d.rs.Field(name)
	if err != nil {
		d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
		return decimal.Zero
	}
	switch field.Kind() {
	case FieldFloat, FieldDouble:
		v, err := field.AsFloat()
		if err != nil {
			d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case FieldInteger, FieldByte, FieldAutoInc:
		v, err := field.AsInt()
		if err != nil {
			return decimal.Zero
		}
		return decimal.NewFromInt(int64(v))
	default:
		d.logger.Warn("field kind is not numeric", zap.String("field", name), zap.String("kind", string(field.Kind())))
		return decimal.Zero
	}
}

// GetTime reads a date or datetime field. The zero time means absent.
func (d *Dataset) GetTime(name string) time.Time {
	field, err := d.rs.Field(name)
	if err != nil {
		d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
		return time.Time{}
	}
	switch field.Kind() {
	case FieldDate, FieldDateTime:
		v, err := field.AsTime()
		if err != nil {
			d.logger.Error("read field failed", zap.String("field", name), zap.Error(err))
			return time.Time{}
		}
		return v
	default:
		d.logger.Warn("field kind is not a date", zap.String("field", name), zap.String("kind", string(field.Kind())))
		return time.Time{}
	}
}

// SetField writes a value to a field, converting to the field's declared
// storage kind: booleans serialize as 0/1, dates as dd.mm.yyyy text with an
// optional time part. Nil values are skipped. Unknown storage kinds are
// logged and reported as false rather than raised.
func (d *Dataset) SetField(name string, value any) bool {
	if value == nil {
		d.logger.Debug("nil value skipped", zap.String("field", name))
		return true
	}
	field, err := d.rs.Field(name)
	if err != nil {
		d.logger.Error("write field failed", zap.String("field", name), zap.Error(err))
		return false
	}

	switch field.Kind() {
	case FieldString, FieldWideString, FieldDouble, FieldBlob, FieldInfo, FieldDate, FieldDateTime:
		err = field.SetString(stringify(value))
	case FieldInteger, FieldBoolean, FieldByte:
		n, ok := intify(value)
		if !ok {
			d.logger.Error("value is not an integer", zap.String("field", name), zap.Any("value", value))
			return false
		}
		err = field.SetInt(n)
	case FieldFloat:
		f, ok := floatify(value)
		if !ok {
			d.logger.Error("value is not a float", zap.String("field", name), zap.Any("value", value))
			return false
		}
		err = field.SetFloat(f)
	default:
		d.logger.Warn("unknown field kind for writing",
			zap.String("field", name), zap.String("kind", string(field.Kind())))
		return false
	}

	if err != nil {
		d.logger.Error("write field failed",
			zap.String("field", name), zap.Any("value", value), zap.Error(err))
		return false
	}
	d.logger.Debug("field written", zap.String("field", name), zap.Any("value", value))
	return true
}

// SpecialOperation resolves a legacy special object by its symbolic name.
func (d *Dataset) SpecialOperation(name string) (any, error) {
	code, ok := specialObjectCodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDocumentObject, name)
	}
	return d.session.SpecialObject(code)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(legacyDateLayout)
		}
		return v.Format(legacyDateTimeLayout)
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intify(value any) (int, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func floatify(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, true
	default:
		return 0, false
	}
}
