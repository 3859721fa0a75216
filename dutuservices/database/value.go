package database

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBinary
)

func (kind Kind) String() string {
	switch kind {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	}

	return "null"
}

// Value is a parameter value whose kind is fixed when it is created.
type Value struct {
	kind    Kind
	integer int64
	float   float64
	text    string
	binary  []byte
}

func Null() Value { return Value{kind: KindNull} }
func Integer(i int64) Value { return Value{kind: KindInteger, integer: i} }
func Float(f float64) Value { return Value{kind: KindFloat, float: f} }
func Text(s string) Value { return Value{kind: KindText, text: s} }
func Binary(b []byte) Value { return Value{kind: KindBinary, binary: b} }
func (value Value) Kind() Kind { return value.kind }
func (value Value) IsNull() bool { return value.kind == KindNull }

const timeLayout = "2006-01-02 15:04:05"

// ValueOf infers the kind of v once, from its static type.
func ValueOf(v any) (Value, error) {
	switch typed := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return typed, nil
	case int:
		return Integer(int64(typed)), nil
	case int8:
		return Integer(int64(typed)), nil
	case int16:
		return Integer(int64(typed)), nil
	case int32:
		return Integer(int64(typed)), nil
	case int64:
		return Integer(typed), nil
	case uint:
		return unsigned(v, uint64(typed))
	case uint8:
		return Integer(int64(typed)), nil
	case uint16:
		return Integer(int64(typed)), nil
	case uint32:
		return Integer(int64(typed)), nil
	case uint64:
		return unsigned(v, typed)
	case bool:
		if typed {
			return Integer(1), nil
		}
		return Integer(0), nil
	case float32:
		return Float(float64(typed)), nil
	case float64:
		return Float(typed), nil
	case string:
		return Text(typed), nil
	case []byte:
		if typed == nil {
			return Null(), nil
		}
		return Binary(typed), nil
	case time.Time:
		return Text(typed.Format(timeLayout)), nil
	case driver.Valuer:
		inner, err := typed.Value()
		if err != nil {
			return Value{}, err
		}
		if _, loops := inner.(driver.Valuer); loops {
			return Value{}, fmt.Errorf("%T: valuer returned another valuer", v)
		}
		return ValueOf(inner)
	}

	return Value{}, fmt.Errorf("unsupported parameter type %T", v)
}

func unsigned(v any, u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%T %d is out of the integer range", v, u)
	}

	return Integer(int64(u)), nil
}

// Tag is the one character type declaration used by the buffered adapter.
func (value Value) Tag() byte {
	switch value.kind {
	case KindInteger:
		return 'i'
	case KindFloat:
		return 'd'
	case KindBinary:
		return 'b'
	}

	return 's'
}

// Any returns the value as a database/sql driver value.
func (value Value) Any() any {
	switch value.kind {
	case KindInteger:
		return value.integer
	case KindFloat:
		return value.float
	case KindText:
		return value.text
	case KindBinary:
		return value.binary
	}

	return nil
}

// Literal renders the value as standard SQL text. Text is quoted with
// embedded quotes doubled. Drivers adjust it where their dialect differs.
func (value Value) Literal() string {
	switch value.kind {
	case KindInteger:
		return strconv.FormatInt(value.integer, 10)
	case KindFloat:
		return strconv.FormatFloat(value.float, 'g', -1, 64)
	case KindText:
		return "'" + strings.ReplaceAll(value.text, "'", "''") + "'"
	case KindBinary:
		return "X'" + hex.EncodeToString(value.binary) + "'"
	}

	return "NULL"
}

func (value Value) String() string {
	return value.Literal()
}

func (value Value) equal(other Value) bool {
	if value.kind != other.kind {
		return false
	}

	switch value.kind {
	case KindInteger:
		return value.integer == other.integer
	case KindFloat:
		return value.float == other.float
	case KindText:
		return value.text == other.text
	case KindBinary:
		return string(value.binary) == string(other.binary)
	}

	return true
}

type valueJSON struct {
	Kind    Kind    `json:"k"`
	Integer int64   `json:"i,omitempty"`
	Float   float64 `json:"f,omitempty"`
	Text    string  `json:"t,omitempty"`
	Binary  []byte  `json:"b,omitempty"`
}

func (value Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{
		Kind:    value.kind,
		Integer: value.integer,
		Float:   value.float,
		Text:    value.text,
		Binary:  value.binary,
	})
}

func (value *Value) UnmarshalJSON(data []byte) error {
	decoded := valueJSON{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	if decoded.Kind > KindBinary {
		return fmt.Errorf("unknown value kind %d", decoded.Kind)
	}

	*value = Value{
		kind:    decoded.Kind,
		integer: decoded.Integer,
		float:   decoded.Float,
		text:    decoded.Text,
		binary:  decoded.Binary,
	}
	if value.kind == KindBinary && value.binary == nil {
		value.binary = []byte{}
	}

	return nil
}

// signatureOf returns the type tags of driver arguments, in order.
func signatureOf(args []any) string {
	signature := strings.Builder{}
	for _, arg := range args {
		value, err := ValueOf(arg)
		if err != nil {
			signature.WriteByte('s')
			continue
		}

		signature.WriteByte(value.Tag())
	}

	return signature.String()
}
