package collection

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Stamper produces lifecycle metadata. Times are truncated to milliseconds,
// the resolution of BSON dates.
type Stamper struct {
	now func() time.Time
}

func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

func (s *Stamper) Creation(p *Principal) bson.D {
	return s.stamp(FieldCreatedAt, FieldCreatedBy, p)
}

func (s *Stamper) Update(p *Principal) bson.D {
	return s.stamp(FieldUpdatedAt, FieldUpdatedBy, p)
}

func (s *Stamper) Deletion(p *Principal) bson.D {
	return s.stamp(FieldDeletedAt, FieldDeletedBy, p)
}

func (s *Stamper) stamp(at, by string, p *Principal) bson.D {
	return bson.D{
		{Key: at, Value: s.now().UTC().Truncate(time.Millisecond)},
		{Key: by, Value: p.Name()},
	}
}

// Overlay returns fields followed by meta; on a key collision meta wins.
func Overlay(fields, meta bson.D) bson.D {
	taken := make(map[string]struct{}, len(meta))
	for _, e := range meta {
		taken[e.Key] = struct{}{}
	}
	out := make(bson.D, 0, len(fields)+len(meta))
	for _, e := range fields {
		if _, ok := taken[e.Key]; !ok {
			out = append(out, e)
		}
	}
	return append(out, meta...)
}

// WritableFields validates a caller write payload and drops reserved fields.
// Operator keys ($set, $inc, ...) are rejected rather than forwarded.
func WritableFields(v Value) (bson.D, error) {
	fields, err := RequireDocument(v)
	if err != nil {
		return nil, err
	}
	out := make(bson.D, 0, len(fields))
	for _, e := range fields {
		if strings.HasPrefix(e.Key, "$") {
			return nil, Errorf(InvalidPayload, "field %q: operators are not allowed", e.Key)
		}
		if IsReserved(e.Key) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ValidateName checks a collection name before it reaches the store.
func ValidateName(name string) error {
	switch {
	case name == "":
		return Errorf(InvalidName, "collection name is required")
	case strings.ContainsAny(name, "$\x00"):
		return Errorf(InvalidName, "collection name %q contains an illegal character", name)
	case strings.HasPrefix(name, "system."):
		return Errorf(InvalidName, "collection name %q is reserved", name)
	}
	return nil
}
