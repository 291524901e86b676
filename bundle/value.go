// Package bundle holds the uniform in-memory form of the structured data
// found on a page. Raw syntax trees are converted once into typed nodes so
// extraction code never has to guess whether a value is a list or a map.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

// Value is an immutable JSON-shaped value. Numbers keep their literal text.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	b    bool
	list []Value
	obj  *object
}

type object struct {
	keys []string
	vals map[string]Value
}

func (o *object) set(key string, v Value) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Null is the null value.
var Null = Value{}

// String wraps s.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a numeric literal such as "19.99".
func Number(literal string) Value { return Value{kind: KindNumber, str: literal} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List wraps items.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Field is a key/value pair used to build objects with a fixed order.
type Field struct {
	Key   string
	Value Value
}

// Object builds an object keeping the order of fields.
func Object(fields ...Field) Value {
	o := &object{vals: make(map[string]Value, len(fields))}
	for _, f := range fields {
		o.set(f.Key, f.Value)
	}
	return Value{kind: KindObject, obj: o}
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsObject reports whether v is an object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsList reports whether v is a list.
func (v Value) IsList() bool { return v.kind == KindList }

// String returns the scalar text of v, or "" for null, lists and objects.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Text returns the trimmed scalar text of the first element of v.
func (v Value) Text() string {
	return strings.TrimSpace(v.First().String())
}

// Get returns the value stored under key, or null.
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Null
	}
	return v.obj.vals[key]
}

// Has reports whether v is an object containing key.
func (v Value) Has(key string) bool {
	if v.kind != KindObject {
		return false
	}
	_, ok := v.obj.vals[key]
	return ok
}

// Keys returns object keys in document order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return append([]string(nil), v.obj.keys...)
}

// Len returns the number of list elements or object keys.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindObject:
		return len(v.obj.keys)
	default:
		return 0
	}
}

// List returns list elements. Null yields nil and any other value yields a
// one-element slice, so callers can treat bare values and lists alike.
func (v Value) List() []Value {
	switch v.kind {
	case KindNull:
		return nil
	case KindList:
		return v.list
	default:
		return []Value{v}
	}
}

// First returns the first list element, or v itself when it is not a list.
func (v Value) First() Value {
	if v.kind != KindList {
		return v
	}
	if len(v.list) == 0 {
		return Null
	}
	return v.list[0]
}

// Strings returns the non-empty trimmed scalar texts of the list elements.
func (v Value) Strings() []string {
	var out []string
	for _, item := range v.List() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Raw renders v as compact JSON for diagnostics.
func (v Value) Raw() string {
	if v.kind == KindString || v.kind == KindNumber {
		return v.str
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// MarshalJSON encodes v keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindNumber:
		buf.WriteString(v.str)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindString:
		data, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, key := range v.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(data)
			buf.WriteByte(':')
			if err := v.obj.vals[key].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON decodes data preserving key order and numeric literals.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Decode parses a single JSON document.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Null, fmt.Errorf("bundle: decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Null, fmt.Errorf("bundle: decode: trailing data after value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := &object{vals: make(map[string]Value)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				o.set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Null, err
			}
			return Value{kind: KindObject, obj: o}, nil
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Null, err
			}
			return Value{kind: KindList, list: items}, nil
		}
		return Null, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null, nil
	}
	return Null, fmt.Errorf("unexpected token %v", tok)
}

// FromAny converts decoded Go values (maps, slices, scalars) into a Value.
// Map keys are sorted because Go maps carry no order.
func FromAny(in any) Value {
	switch t := in.(type) {
	case nil:
		return Null
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case json.Number:
		return Number(t.String())
	case float64:
		return Number(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return Number(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int:
		return Number(strconv.Itoa(t))
	case int64:
		return Number(strconv.FormatInt(t, 10))
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, FromAny(item))
		}
		return List(items...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: FromAny(t[k])})
		}
		return Object(fields...)
	}

	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items = append(items, FromAny(rv.Index(i).Interface()))
		}
		return List(items...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: FromAny(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())})
		}
		return Object(fields...)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return Number(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Pointer:
		if rv.IsNil() {
			return Null
		}
		return FromAny(rv.Elem().Interface())
	}
	return String(fmt.Sprint(in))
}
