package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind identifies which member of the Value union is set
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindDate
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a field value from either system: string, number, date, bool or null.
// The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  decimal.Decimal
	date time.Time
	flag bool
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }

func Int(i int64) Value { return Number(decimal.NewFromInt(i)) }

func Float(f float64) Value { return Number(decimal.NewFromFloat(f)) }

func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// FromInterface converts a loosely typed value (SQL scan result, decoded JSON) into a Value
func FromInterface(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case []byte:
		return String(string(t))
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Number(decimal.NewFromInt(int64(t)))
	case uint32:
		return Int(int64(t))
	case uint64:
		return Number(decimal.RequireFromString(strconv.FormatUint(t, 10)))
	case float32:
		return Number(decimal.NewFromFloat32(t))
	case float64:
		return Float(t)
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return Number(d)
		}
		return String(t.String())
	case decimal.Decimal:
		return Number(t)
	case time.Time:
		return Date(t)
	case *time.Time:
		if t == nil {
			return Null()
		}
		return Date(*t)
	default:
		return String(fmt.Sprint(t))
	}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v Value) AsNumber() (decimal.Decimal, bool) { return v.num, v.kind == KindNumber }

func (v Value) AsDate() (time.Time, bool) { return v.date, v.kind == KindDate }

func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == KindBool }

// Canonical returns the normalised string form used for cross-system equality.
// Numbers drop trailing zeros, dates at midnight UTC render as yyyy-MM-dd and
// other instants as RFC3339, strings are trimmed. Null renders as "".
func (v Value) Canonical() string {
	switch v.kind {
	case KindString:
		return strings.TrimSpace(v.str)
	case KindNumber:
		return v.num.String()
	case KindDate:
		u := v.date.UTC()
		if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
			return u.Format("2006-01-02")
		}
		return u.Format(time.RFC3339)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

// Equal reports whether two values represent the same field content.
// Null equals only null. Numbers and numeric strings compare as decimals;
// everything else compares by Canonical form.
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}
	if a, ok := v.numeric(); ok {
		if b, ok := o.numeric(); ok {
			return a.Equal(b)
		}
	}
	return v.Canonical() == o.Canonical()
}

// numeric returns the value as a decimal when it is a number or a numeric string
func (v Value) numeric() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.str))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// Interface returns the natural Go representation of the value
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindDate:
		return v.date
	case KindBool:
		return v.flag
	default:
		return nil
	}
}

func (v Value) String() string {
	if v.IsNull() {
		return "<null>"
	}
	return v.Canonical()
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindDate:
		return json.Marshal(v.Canonical())
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Dates arrive as strings and stay strings;
// Canonical keeps them comparable with real date values.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch raw.(type) {
	case map[string]interface{}, []interface{}:
		return fmt.Errorf("value must be a JSON scalar, got %s", string(data))
	}
	*v = FromInterface(raw)
	return nil
}
