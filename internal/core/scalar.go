package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which variant a Scalar holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Scalar is a single cell value: null, string, number or boolean.
//
// Numbers keep their JSON text so a value a client sends is written back
// byte for byte; 7 stays 7 and 7.50 stays 7.50.
// The zero value is Null.
type Scalar struct {
	kind Kind
	text string // string value, or number text
	b    bool
}

// Null returns the null scalar.
func Null() Scalar { return Scalar{} }

// String returns a string scalar.
func String(s string) Scalar { return Scalar{kind: KindString, text: s} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{kind: KindBool, b: b} }

// Int returns a number scalar holding an integer.
func Int(i int64) Scalar {
	return Scalar{kind: KindNumber, text: strconv.FormatInt(i, 10)}
}

// Float returns a number scalar. NaN and infinities become Null since JSON
// has no representation for them.
func Float(f float64) Scalar {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Scalar{kind: KindNumber, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Number returns a number scalar from its literal text. Text that does not
// parse as a finite number yields Null.
func Number(text string) Scalar {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Scalar{kind: KindNumber, text: text}
}

// Kind reports the variant held by s.
func (s Scalar) Kind() Kind { return s.kind }

// IsNull reports whether s is the null scalar.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// Str returns the string value and whether s is a string.
func (s Scalar) Str() (string, bool) {
	return s.text, s.kind == KindString
}

// Float64 returns the numeric value and whether s is a number.
func (s Scalar) Float64() (float64, bool) {
	if s.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(s.text, 64)
	return f, err == nil
}

// BoolValue returns the boolean value and whether s is a boolean.
func (s Scalar) BoolValue() (bool, bool) {
	return s.b, s.kind == KindBool
}

// Truthy applies loose truthiness: null, false, 0 and "" are false,
// anything else is true. Acceptance flags are read this way so documents
// written with 1/0 or "yes" still apply.
func (s Scalar) Truthy() bool {
	switch s.kind {
	case KindString:
		return s.text != ""
	case KindNumber:
		f, ok := s.Float64()
		return ok && f != 0
	case KindBool:
		return s.b
	default:
		return false
	}
}

// Text renders s for plain-text output such as CSV cells: null is empty,
// booleans are True/False.
func (s Scalar) Text() string {
	switch s.kind {
	case KindString, KindNumber:
		return s.text
	case KindBool:
		if s.b {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// Equal reports whether two scalars hold the same variant and value.
func (s Scalar) Equal(o Scalar) bool {
	return s.kind == o.kind && s.text == o.text && s.b == o.b
}

// GoString keeps test diffs readable.
func (s Scalar) GoString() string {
	switch s.kind {
	case KindString:
		return strconv.Quote(s.text)
	case KindNumber:
		return s.text
	case KindBool:
		return strconv.FormatBool(s.b)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindString:
		return marshalText(s.text)
	case KindNumber:
		return []byte(s.text), nil
	case KindBool:
		return []byte(strconv.FormatBool(s.b)), nil
	default:
		return []byte("null"), nil
	}
}

// marshalText quotes a string without HTML escaping, so that cell text
// like "<CEO>" is stored as typed.
func marshalText(text string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(text); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON implements json.Unmarshaler. Objects and arrays are
// rejected since a cell only ever holds a scalar.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("scalar: empty input")
	}

	switch data[0] {
	case 'n':
		*s = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("scalar: %w", err)
		}
		*s = Bool(b)
		return nil
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("scalar: %w", err)
		}
		*s = String(str)
		return nil
	case '{', '[':
		return fmt.Errorf("scalar: cell value must be a string, number, boolean or null, got %s", data)
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("scalar: %w", err)
		}
		*s = Scalar{kind: KindNumber, text: num.String()}
		return nil
	}
}
