package repository

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The memory store understands the subset of the MongoDB query language that
// callers of this service use in practice: implicit equality, dotted paths,
// $eq $ne $gt $gte $lt $lte $in $nin $exists, and $and $or $nor.

func matches(doc bson.M, filter bson.D) (bool, error) {
	for _, e := range filter {
		ok, err := matchClause(doc, e.Key, e.Value)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchClause(doc bson.M, key string, cond any) (bool, error) {
	switch key {
	case "$and", "$or", "$nor":
		subs, err := subFilters(key, cond)
		if err != nil {
			return false, err
		}
		return matchLogical(doc, key, subs)
	}
	if strings.HasPrefix(key, "$") {
		return false, fmt.Errorf("%w: unsupported top-level operator %s", ErrBadQuery, key)
	}
	val, found := lookup(doc, key)
	if ops, ok := operatorDoc(cond); ok {
		for _, op := range ops {
			ok, err := matchOperator(val, found, op.Key, op.Value)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return matchEq(val, found, cond), nil
}

func matchLogical(doc bson.M, op string, subs []bson.D) (bool, error) {
	for _, sub := range subs {
		ok, err := matches(doc, sub)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !ok:
			return false, nil
		case op == "$or" && ok:
			return true, nil
		case op == "$nor" && ok:
			return false, nil
		}
	}
	return op != "$or", nil
}

func matchOperator(val any, found bool, op string, arg any) (bool, error) {
	switch op {
	case "$eq":
		return matchEq(val, found, arg), nil
	case "$ne":
		return !matchEq(val, found, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !found {
			return false, nil
		}
		c, ok := compareValues(val, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case "$gt":
			return c > 0, nil
		case "$gte":
			return c >= 0, nil
		case "$lt":
			return c < 0, nil
		}
		return c <= 0, nil
	case "$in", "$nin":
		list, ok := asArray(arg)
		if !ok {
			return false, fmt.Errorf("%w: %s needs an array", ErrBadQuery, op)
		}
		hit := false
		for _, candidate := range list {
			if matchEq(val, found, candidate) {
				hit = true
				break
			}
		}
		return hit == (op == "$in"), nil
	case "$exists":
		return found == truthy(arg), nil
	}
	return false, fmt.Errorf("%w: unsupported query operator %s", ErrBadQuery, op)
}

// matchEq follows MongoDB equality: null matches a missing field, and an array
// field matches when any element is equal.
func matchEq(val any, found bool, want any) bool {
	if !found {
		return want == nil
	}
	if equalValues(val, want) {
		return true
	}
	if arr, ok := asArray(val); ok {
		for _, el := range arr {
			if equalValues(el, want) {
				return true
			}
		}
	}
	return false
}

func subFilters(op string, v any) ([]bson.D, error) {
	list, ok := asArray(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s needs an array", ErrBadQuery, op)
	}
	out := make([]bson.D, 0, len(list))
	for _, item := range list {
		d, ok := asD(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s entries must be documents", ErrBadQuery, op)
		}
		out = append(out, d)
	}
	return out, nil
}

func operatorDoc(v any) (bson.D, bool) {
	d, ok := asD(v)
	if !ok || len(d) == 0 || !strings.HasPrefix(d[0].Key, "$") {
		return nil, false
	}
	return d, true
}

func lookup(doc bson.M, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		d, ok := asD(cur)
		if !ok {
			return nil, false
		}
		found := false
		for _, e := range d {
			if e.Key == part {
				cur, found = e.Value, true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc bson.M, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(bson.M)
		if !ok {
			next = bson.M{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func asD(v any) (bson.D, bool) {
	switch t := v.(type) {
	case bson.D:
		return t, true
	case bson.M:
		return sortedPairs(t), true
	case map[string]any:
		return sortedPairs(t), true
	}
	return nil, false
}

func sortedPairs(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := make(bson.D, 0, len(m))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d
}

func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case bson.A:
		return t, true
	case []any:
		return t, true
	}
	return nil, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func instant(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

// canonical maps a value to a form where reflect.DeepEqual means BSON equality.
func canonical(v any) any {
	if f, ok := number(v); ok {
		return f
	}
	if t, ok := instant(v); ok {
		return t.UnixNano()
	}
	if d, ok := asD(v); ok {
		m := make(map[string]any, len(d))
		for _, e := range d {
			m[e.Key] = canonical(e.Value)
		}
		return m
	}
	if arr, ok := asArray(v); ok {
		out := make([]any, len(arr))
		for i, el := range arr {
			out[i] = canonical(el)
		}
		return out
	}
	return v
}

func equalValues(a, b any) bool {
	return reflect.DeepEqual(canonical(a), canonical(b))
}

// typeRank approximates the BSON comparison order between types.
func typeRank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := number(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case primitive.ObjectID:
		return 5
	case bool:
		return 6
	}
	if _, ok := instant(v); ok {
		return 7
	}
	if _, ok := asD(v); ok {
		return 3
	}
	if _, ok := asArray(v); ok {
		return 4
	}
	return 8
}

// compareValues orders two values of the same type class. ok is false when the
// classes differ, mirroring MongoDB's type bracketing for range operators.
func compareValues(a, b any) (int, bool) {
	if typeRank(a) != typeRank(b) {
		return 0, false
	}
	return compareSameRank(a, b), true
}

func compareSameRank(a, b any) int {
	if fa, ok := number(a); ok {
		fb, _ := number(b)
		return cmpOrdered(fa, fb)
	}
	if ta, ok := instant(a); ok {
		tb, _ := instant(b)
		return ta.Compare(tb)
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case primitive.ObjectID:
		bv := b.(primitive.ObjectID)
		return strings.Compare(av.Hex(), bv.Hex())
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	}
	return 0
}

// sortOrder compares two documents under a sort specification; missing
// fields sort as null.
func sortOrder(a, b bson.M, spec bson.D) int {
	for _, e := range spec {
		va, _ := lookup(a, e.Key)
		vb, _ := lookup(b, e.Key)
		c := cmpOrdered(typeRank(va), typeRank(vb))
		if c == 0 {
			c = compareSameRank(va, vb)
		}
		if dir, ok := number(e.Value); ok && dir < 0 {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func cmpOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// project applies an inclusion or exclusion projection to top-level and
// dotted fields. _id is kept unless explicitly excluded.
func project(doc bson.M, spec bson.D) bson.M {
	if len(spec) == 0 {
		return doc
	}
	include := false
	keepID := true
	for _, e := range spec {
		if e.Key == "_id" {
			keepID = truthy(e.Value)
			continue
		}
		if truthy(e.Value) {
			include = true
		}
	}
	if !include {
		out := bson.M{}
		for k, v := range doc {
			out[k] = v
		}
		for _, e := range spec {
			if !truthy(e.Value) {
				deletePath(out, e.Key)
			}
		}
		return out
	}
	out := bson.M{}
	for _, e := range spec {
		if e.Key == "_id" || !truthy(e.Value) {
			continue
		}
		if v, ok := lookup(doc, e.Key); ok {
			setPath(out, e.Key, v)
		}
	}
	if id, ok := doc["_id"]; ok && keepID {
		out["_id"] = id
	}
	return out
}

func deletePath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(bson.M)
		if !ok {
			return
		}
		cp := bson.M{}
		for k, v := range next {
			cp[k] = v
		}
		cur[part] = cp
		cur = cp
	}
	delete(cur, parts[len(parts)-1])
}
