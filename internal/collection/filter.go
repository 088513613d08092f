package collection

import "go.mongodb.org/mongo-driver/bson"

// NormalizeFilter is the lenient filter path used by browse-style reads. An
// absent filter, an undecodable string, or anything that is not an object all
// become the empty predicate instead of an error.
func NormalizeFilter(v Value) bson.D {
	switch v.kind {
	case KindObject:
		return v.obj
	case KindString:
		parsed, err := ParseValue([]byte(v.str))
		if err == nil && parsed.kind == KindObject {
			return parsed.obj
		}
	}
	return bson.D{}
}

// RequireFilter is the strict filter path used by query and delete. Absent
// and null mean "match everything"; any other non-object is InvalidFilter.
func RequireFilter(v Value) (bson.D, error) {
	switch v.kind {
	case KindAbsent, KindNull:
		return bson.D{}, nil
	case KindObject:
		return v.obj, nil
	}
	return nil, Errorf(InvalidFilter, "filter must be an object")
}

// OptionalObject validates a pass-through option such as projection or sort.
func OptionalObject(v Value, name string) (bson.D, error) {
	switch v.kind {
	case KindAbsent, KindNull:
		return nil, nil
	case KindObject:
		return v.obj, nil
	}
	return nil, Errorf(InvalidFilter, "%s must be an object", name)
}

// RequireDocument validates a write payload. An absent body is an empty
// document.
func RequireDocument(v Value) (bson.D, error) {
	switch v.kind {
	case KindAbsent:
		return bson.D{}, nil
	case KindObject:
		return v.obj, nil
	}
	return nil, Errorf(InvalidPayload, "body must be an object")
}
