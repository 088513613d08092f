package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind is the top-level JSON type of a caller payload.
type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "other"
}

// Value is an untyped caller payload tagged with its kind. Objects keep their
// key order, which matters for sort specifications.
type Value struct {
	kind Kind
	obj  bson.D
	str  string
}

// Absent is the zero Value: no payload was supplied.
func Absent() Value { return Value{} }

// Object wraps an ordered document.
func Object(d bson.D) Value {
	if d == nil {
		d = bson.D{}
	}
	return Value{kind: KindObject, obj: d}
}

// String wraps a serialized (or plain) string payload.
func String(s string) Value { return Value{kind: KindString, str: s} }

// ValueOf tags an already-decoded value. Unordered maps are sorted by key.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{kind: KindNull}
	case Value:
		return t
	case bson.D:
		return Object(t)
	case bson.M:
		return Object(sortedD(t))
	case map[string]any:
		return Object(sortedD(t))
	case string:
		return String(t)
	case bool:
		return Value{kind: KindBool}
	case int, int32, int64, float32, float64, primitive.Decimal128:
		return Value{kind: KindNumber}
	case bson.A, []any:
		return Value{kind: KindArray}
	}
	return Value{kind: KindOther}
}

// ParseValue decodes a raw JSON payload. Objects are decoded as relaxed
// MongoDB Extended JSON so callers may use {"$oid": ...} and {"$date": ...}.
// An empty payload yields Absent.
func ParseValue(raw []byte) (Value, error) {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return Absent(), nil
	}
	switch b[0] {
	case '{':
		var d bson.D
		if err := bson.UnmarshalExtJSON(b, false, &d); err != nil {
			return Value{}, err
		}
		return Object(d), nil
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	}
	if !json.Valid(b) {
		return Value{}, errors.New("invalid JSON")
	}
	switch b[0] {
	case '[':
		return Value{kind: KindArray}, nil
	case 't', 'f':
		return Value{kind: KindBool}, nil
	case 'n':
		return Value{kind: KindNull}, nil
	}
	return Value{kind: KindNumber}, nil
}

func (v Value) Kind() Kind { return v.kind }

// Doc returns the object body when v is an object.
func (v Value) Doc() (bson.D, bool) { return v.obj, v.kind == KindObject }

// Str returns the string body when v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Lookup returns the named member of an object value, or Absent.
func (v Value) Lookup(key string) Value {
	if v.kind != KindObject {
		return Absent()
	}
	for _, e := range v.obj {
		if e.Key == key {
			return ValueOf(e.Value)
		}
	}
	return Absent()
}

// Raw returns the untagged member of an object value.
func (v Value) Raw(key string) (any, bool) {
	for _, e := range v.obj {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func sortedD(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d
}
