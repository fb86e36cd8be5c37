package document

import (
	"encoding/json"
	"fmt"
)

// Strip returns a copy of obj with the named top-level fields removed.
// Used to drop identifiers and server-managed timestamps before comparing a
// baseline payload against a live one.
func Strip(obj Object, fields map[string]struct{}) Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		if _, drop := fields[k]; drop {
			continue
		}
		out[k] = v
	}
	return out
}

// NaturalKey extracts the value of the given field as a string. Numbers are
// returned as their literal text. Returns "" when the field is absent or not
// a scalar.
func NaturalKey(obj Object, field string) string {
	switch v := obj[field].(type) {
	case String:
		return string(v)
	case Num:
		return string(v)
	default:
		return ""
	}
}

// ScalarString renders a scalar value for identifiers: strings verbatim,
// numbers as their literal. Returns "" for non-scalars.
func ScalarString(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Num:
		return string(val)
	default:
		return ""
	}
}

// RewriteRefs walks the value and rewrites embedded resource references
// through resolve. A reference is any nested object carrying an "id" field
// whose scalar value resolve recognizes; the id is replaced with the mapped
// identifier, preserving the scalar kind where possible.
//
// Ids that resolve does not recognize are collected into unresolved so the
// caller can requeue the payload for a later pass. The input is not mutated.
func RewriteRefs(v Value, resolve func(sourceID string) (string, bool)) (Value, []string) {
	var unresolved []string
	out := rewriteRefs(Clone(v), resolve, &unresolved, true)
	return out, unresolved
}

func rewriteRefs(v Value, resolve func(string) (string, bool), unresolved *[]string, top bool) Value {
	switch val := v.(type) {
	case Array:
		for i, elem := range val {
			val[i] = rewriteRefs(elem, resolve, unresolved, false)
		}
		return val
	case Object:
		// Top-level ids are the resource's own identity, not a reference.
		if !top {
			if id, ok := val["id"]; ok {
				if src := ScalarString(id); src != "" {
					if target, found := resolve(src); found {
						val["id"] = coerceID(id, target)
					} else {
						*unresolved = append(*unresolved, src)
					}
				}
			}
		}
		for k, elem := range val {
			if k == "id" {
				continue
			}
			val[k] = rewriteRefs(elem, resolve, unresolved, false)
		}
		return val
	default:
		return v
	}
}

// coerceID converts a mapped identifier back to the kind of the original:
// numeric references stay numbers so the payload shape survives the rewrite.
func coerceID(original Value, target string) Value {
	if _, isNum := original.(Num); isNum && json.Valid([]byte(target)) {
		var n json.Number
		if err := json.Unmarshal([]byte(target), &n); err == nil {
			return Num(n)
		}
	}
	return String(target)
}

// FieldChange records one top-level field that differs between two payloads.
type FieldChange struct {
	Field string `json:"field"`
	Old   Value  `json:"old,omitempty"`
	New   Value  `json:"new,omitempty"`
}

// FieldChanges compares two payloads field by field, skipping ignored
// fields, and returns the differing fields in canonical key order.
func FieldChanges(oldObj, newObj Object, ignored map[string]struct{}) []FieldChange {
	merged := make(Object, len(oldObj)+len(newObj))
	for k := range oldObj {
		merged[k] = Null{}
	}
	for k := range newObj {
		merged[k] = Null{}
	}

	var changes []FieldChange
	for _, k := range merged.SortedKeys() {
		if _, skip := ignored[k]; skip {
			continue
		}
		oldVal, inOld := oldObj[k]
		newVal, inNew := newObj[k]
		if inOld && inNew && Equal(oldVal, newVal) {
			continue
		}
		changes = append(changes, FieldChange{Field: k, Old: oldVal, New: newVal})
	}
	return changes
}

// String implements fmt.Stringer for diagnostics.
func (c FieldChange) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Field, renderScalar(c.Old), renderScalar(c.New))
}

func renderScalar(v Value) string {
	if v == nil {
		return "(absent)"
	}
	b, err := MarshalCanonical(v)
	if err != nil {
		return "(unrenderable)"
	}
	return string(b)
}
