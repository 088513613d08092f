package collection

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNormalizeFilter_Lenient(t *testing.T) {
	obj := bson.D{{Key: "status", Value: "open"}}

	require.Equal(t, bson.D{}, NormalizeFilter(Absent()))
	require.Equal(t, obj, NormalizeFilter(Object(obj)))
	require.Equal(t, bson.D{{Key: "n", Value: int32(3)}}, NormalizeFilter(String(`{"n": 3}`)))

	// malformed or non-object input falls back to the empty predicate
	for _, s := range []string{`not json`, `[1,2]`, `42`, `"str"`, `null`, ``} {
		require.Equal(t, bson.D{}, NormalizeFilter(String(s)), "input %q", s)
	}
	require.Equal(t, bson.D{}, NormalizeFilter(ValueOf(true)))
	require.Equal(t, bson.D{}, NormalizeFilter(ValueOf(bson.A{1, 2})))
}

func TestRequireFilter_Strict(t *testing.T) {
	got, err := RequireFilter(Absent())
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = RequireFilter(ValueOf(nil))
	require.NoError(t, err)
	require.Empty(t, got)

	obj := bson.D{{Key: "a", Value: 1}}
	got, err = RequireFilter(Object(obj))
	require.NoError(t, err)
	require.Equal(t, obj, got)

	for _, v := range []Value{String("not an object"), String(`{"a":1}`), ValueOf(bson.A{1, 2}), ValueOf(7)} {
		_, err := RequireFilter(v)
		require.Error(t, err)
		require.Equal(t, InvalidFilter, KindOf(err), "kind for %s", v.Kind())
	}
}

func TestOptionalObject(t *testing.T) {
	got, err := OptionalObject(Absent(), "sort")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = OptionalObject(String("name"), "sort")
	require.Equal(t, InvalidFilter, KindOf(err))
	require.Contains(t, err.Error(), "sort must be an object")
}

func TestRequireDocument(t *testing.T) {
	got, err := RequireDocument(Absent())
	require.NoError(t, err)
	require.Equal(t, bson.D{}, got)

	_, err = RequireDocument(ValueOf(bson.A{}))
	require.Equal(t, InvalidPayload, KindOf(err))
	_, err = RequireDocument(String("x"))
	require.Equal(t, InvalidPayload, KindOf(err))
}

func TestParseValue(t *testing.T) {
	cases := map[string]Kind{
		``:                KindAbsent,
		`   `:             KindAbsent,
		`null`:            KindNull,
		`true`:            KindBool,
		`12.5`:            KindNumber,
		`"hello"`:         KindString,
		`[1, {"a": 2}]`:   KindArray,
		`{"a": {"b": 1}}`: KindObject,
	}
	for in, want := range cases {
		v, err := ParseValue([]byte(in))
		require.NoError(t, err, "input %q", in)
		require.Equal(t, want, v.Kind(), "input %q", in)
	}

	_, err := ParseValue([]byte(`{"a":`))
	require.Error(t, err)
	_, err = ParseValue([]byte(`[1,`))
	require.Error(t, err)
}

func TestParseValue_ExtendedJSONAndOrder(t *testing.T) {
	v, err := ParseValue([]byte(`{"z": 1, "_id": {"$oid": "64b7f0c2a1b2c3d4e5f60718"}, "a": -1}`))
	require.NoError(t, err)
	d, ok := v.Doc()
	require.True(t, ok)
	require.Equal(t, []string{"z", "_id", "a"}, []string{d[0].Key, d[1].Key, d[2].Key})

	id, ok := d[1].Value.(interface{ Hex() string })
	require.True(t, ok, "expected ObjectID, got %T", d[1].Value)
	require.Equal(t, "64b7f0c2a1b2c3d4e5f60718", id.Hex())

	require.Equal(t, KindNumber, v.Lookup("a").Kind())
	require.Equal(t, KindAbsent, v.Lookup("missing").Kind())
}
