package directory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Field is an optional scalar from the directory file. Source files mix quoted
// numbers, bare numbers, sentinel strings and nulls for the same key, so a Field
// remembers whether it was present and whether it was a JSON number.
type Field struct {
	raw     string
	number  bool
	present bool
}

// StringField returns a present Field holding s.
func StringField(s string) Field {
	return Field{raw: s, present: true}
}

// NumberField returns a present Field holding the number v.
func NumberField(v float64) Field {
	return Field{raw: strconv.FormatFloat(v, 'f', -1, 64), number: true, present: true}
}

// String returns the raw text of the field, or "" when absent.
func (f Field) String() string {
	return f.raw
}

// Present reports whether the key existed with a non-null value.
func (f Field) Present() bool {
	return f.present
}

// IsNumber reports whether the value was a bare JSON number.
func (f Field) IsNumber() bool {
	return f.number
}

// Truthy follows the loose truthiness the directory page relies on: absent,
// empty and numeric zero values are false, everything else is true.
func (f Field) Truthy() bool {
	if !f.present || f.raw == "" {
		return false
	}
	if f.number {
		v, err := strconv.ParseFloat(f.raw, 64)
		return err == nil && v != 0
	}
	return true
}

// Or returns the field text when truthy, otherwise fallback.
func (f Field) Or(fallback string) string {
	if f.Truthy() {
		return f.raw
	}
	return fallback
}

func (f *Field) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = Field{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = Field{raw: s, present: true}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*f = Field{raw: strconv.FormatBool(b), present: true}
	case '{', '[':
		return fmt.Errorf("unsupported JSON value %q for scalar field", truncate(string(trimmed), 32))
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		v, err := n.Float64()
		if err != nil {
			return err
		}
		*f = NumberField(v)
	}
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.present {
		return []byte("null"), nil
	}
	if f.number {
		return []byte(f.raw), nil
	}
	return json.Marshal(f.raw)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
