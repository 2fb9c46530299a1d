package erp

import (
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrSessionClosed indicates the record-protocol session is no longer usable
	ErrSessionClosed = errors.New("erp: session closed")
	// ErrRecordsetUnavailable indicates a named recordset could not be opened
	ErrRecordsetUnavailable = errors.New("erp: recordset unavailable")
	// ErrFieldUnknown indicates a field is not part of the recordset
	ErrFieldUnknown = errors.New("erp: unknown field")
	// ErrNoDocumentObject indicates a special object name could not be resolved
	ErrNoDocumentObject = errors.New("erp: document object unavailable")
	// ErrDeleteRefused indicates the ERP vetoed a record deletion
	ErrDeleteRefused = errors.New("erp: delete refused")
)

// FieldKind is the storage kind the legacy store declares per field.
// The Dataset adapter maps it onto Go representations; see Dataset.SetField
// and the typed getters.
type FieldKind string

const (
	FieldString     FieldKind = "String"
	FieldWideString FieldKind = "WideString"
	FieldInteger    FieldKind = "Integer"
	FieldBoolean    FieldKind = "Boolean"
	FieldByte       FieldKind = "Byte"
	FieldAutoInc    FieldKind = "AutoInc"
	FieldFloat      FieldKind = "Float"
	FieldDouble     FieldKind = "Double"
	FieldDate       FieldKind = "Date"
	FieldDateTime   FieldKind = "DateTime"
	FieldBlob       FieldKind = "Blob"
	FieldInfo       FieldKind = "Info"
)

// Key is a composite index key; single-field keys are one-element tuples.
type Key []any

// K builds a Key from its parts.
func K(parts ...any) Key {
	return Key(parts)
}

// Session is one stateful connection to the legacy record store. It is
// single-cursor-at-a-time and must never be shared across concurrently
// running reconciliation runs.
type Session interface {
	// OpenRecordset opens a cursor over a named recordset.
	OpenRecordset(name string) (Recordset, error)

	// SpecialObject resolves a legacy-defined special object by numeric
	// code. Callers assert the returned handle to the operation interface
	// they need (e.g. DocumentObject).
	SpecialObject(code int) (any, error)

	// Close releases the session.
	Close() error
}

// SessionFactory hands out sessions; one reconciliation run borrows exactly
// one session for its whole duration.
type SessionFactory interface {
	Open() (Session, error)
}

// Recordset is the raw cursor protocol underneath the Dataset adapter.
// Every call may fail with a transport-level error.
type Recordset interface {
	FindKey(indexField string, key Key) (bool, error)

	SetRange(field string, from, to Key) error
	ApplyRange() error

	RecordCount() (int, error)
	First() error
	Last() error
	Next() error
	EOF() (bool, error)

	SetFilter(expression string) error
	ClearFilter() error

	Edit() error
	Append() error
	Post() error
	Cancel() error
	CheckDelete() (bool, error)
	Delete() error

	// SetupNumber asks the store for the next free business number of this
	// recordset (customer-number issuing on the address master).
	SetupNumber() (string, error)

	Field(name string) (Field, error)
}

// Field is typed access to one column of the current record.
type Field interface {
	Kind() FieldKind

	AsString() (string, error)
	AsInt() (int, error)
	AsFloat() (float64, error)
	AsTime() (time.Time, error)

	SetString(value string) error
	SetInt(value int) error
	SetFloat(value float64) error
}

// DocumentObject is the "soVorgang" style special object: a document header
// that owns a nested line-position collection.
type DocumentObject interface {
	// Edit reopens an existing document by its document id.
	Edit(documentID string) error
	// Append creates a new document of the given type under a party.
	Append(documentType int, partyKey string) error
	// Post commits the document including its positions.
	Post() error

	GetField(name string) string
	SetField(name string, value any) error

	Positions() PositionCollection
}

// PositionCollection is the line-position collection of a DocumentObject.
type PositionCollection interface {
	// Add appends a position of the given quantity, unit and article key
	// and leaves the cursor on it.
	Add(quantity int, unit, articleKey string) error
	Count() (int, error)
	// DeleteFirst removes the first position; callers loop until Count is 0.
	DeleteFirst() error

	// SetText writes the descriptive text of the current position.
	SetText(text string) error
	// SetPriceNet / SetPriceGross write the current position's total price
	// through the legacy price edit object.
	SetPriceNet(amount float64) error
	SetPriceGross(amount float64) error
}
