package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions.
// These ensure all JSONB types implement both sql.Scanner and driver.Valuer,
// catching any method signature drift at compile time rather than at runtime.
// Scan is on pointer receivers; Value is on value receivers.
var (
	_ sql.Scanner   = (*StringList)(nil)
	_ driver.Valuer = StringList(nil)
	_ sql.Scanner   = (*ActivePlan)(nil)
	_ driver.Valuer = ActivePlan{}
	_ sql.Scanner   = (*QueuedPlan)(nil)
	_ driver.Valuer = QueuedPlan{}
)

// scanJSONB is a generic helper that scans a JSONB database value into a Go
// pointer. It handles nil values, []byte, and string representations from
// different database drivers.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// valueJSONB is a generic helper that converts a Go value to a
// JSONB-compatible driver.Value.
func valueJSONB(v interface{}) (driver.Value, error) {
	return json.Marshal(v)
}

// ---------------------------------------------------------------------------
// StringList
// ---------------------------------------------------------------------------

// StringList is an ordered list of media links stored as a JSONB array.
// Order is insertion order: index 0 is the oldest entry.
type StringList []string

// Tail returns the last n entries (the most recently added), preserving
// order. If the list has n entries or fewer it is returned unchanged.
func (l StringList) Tail(n int) StringList {
	if n < 0 {
		n = 0
	}
	if len(l) <= n {
		return l
	}
	return l[len(l)-n:]
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return scanJSONB(l, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
// A nil list is stored as an empty JSON array, not SQL NULL, so that reads
// never have to distinguish the two.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return valueJSONB([]string(l))
}

// ---------------------------------------------------------------------------
// ActivePlan
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (p *ActivePlan) Scan(value interface{}) error {
	return scanJSONB(p, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (p ActivePlan) Value() (driver.Value, error) {
	return valueJSONB(p)
}

// ---------------------------------------------------------------------------
// QueuedPlan
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (p *QueuedPlan) Scan(value interface{}) error {
	return scanJSONB(p, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (p QueuedPlan) Value() (driver.Value, error) {
	return valueJSONB(p)
}
