package model

import (
	"encoding/json"
	"fmt"

	"github.com/pilacorp/go-vc-signing/credential/common/cborcodec"
	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
)

// OneOrMany holds a field that is either a single value or a list of values.
// The shape it was built or decoded with is kept, so a one-element list
// stays a list on re-encoding.
type OneOrMany[T any] struct {
	single   T
	many     []T
	multiple bool
	set      bool
}

// Single wraps one value.
func Single[T any](v T) OneOrMany[T] {
	return OneOrMany[T]{single: v, set: true}
}

// Multiple wraps a list of values.
func Multiple[T any](vs ...T) OneOrMany[T] {
	return OneOrMany[T]{many: append([]T{}, vs...), multiple: true, set: true}
}

// IsZero reports whether neither shape has been set.
func (o OneOrMany[T]) IsZero() bool { return !o.set }

// IsMultiple reports whether the value holds the list shape.
func (o OneOrMany[T]) IsMultiple() bool { return o.multiple }

// Len returns the number of held values.
func (o OneOrMany[T]) Len() int {
	switch {
	case !o.set:
		return 0
	case o.multiple:
		return len(o.many)
	default:
		return 1
	}
}

// Values returns the held values as a fresh slice.
func (o OneOrMany[T]) Values() []T {
	switch {
	case !o.set:
		return nil
	case o.multiple:
		return append([]T{}, o.many...)
	default:
		return []T{o.single}
	}
}

// First returns the single value, or the first list element.
func (o OneOrMany[T]) First() (T, bool) {
	var zero T
	switch {
	case !o.set:
		return zero, false
	case o.multiple:
		if len(o.many) == 0 {
			return zero, false
		}
		return o.many[0], true
	default:
		return o.single, true
	}
}

// Map applies fn to every held value and keeps the shape.
func Map[T, U any](o OneOrMany[T], fn func(T) (U, error)) (OneOrMany[U], error) {
	if !o.set {
		return OneOrMany[U]{}, nil
	}
	if !o.multiple {
		u, err := fn(o.single)
		if err != nil {
			return OneOrMany[U]{}, err
		}
		return Single(u), nil
	}
	out := make([]U, 0, len(o.many))
	for _, v := range o.many {
		u, err := fn(v)
		if err != nil {
			return OneOrMany[U]{}, err
		}
		out = append(out, u)
	}
	return Multiple(out...), nil
}

func (o OneOrMany[T]) MarshalJSON() ([]byte, error) {
	switch {
	case !o.set:
		return []byte("null"), nil
	case o.multiple:
		return json.Marshal(o.many)
	default:
		return json.Marshal(o.single)
	}
}

// UnmarshalJSON tries the single shape first, then the list shape.
func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	if jsonmap.IsNull(data) {
		return fmt.Errorf("value must not be null")
	}

	var single T
	singleErr := json.Unmarshal(data, &single)
	if singleErr == nil {
		*o = Single(single)
		return nil
	}

	var many []T
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("value matches neither single nor list shape: %v; %w", singleErr, err)
	}
	*o = OneOrMany[T]{many: many, multiple: true, set: true}
	return nil
}

func (o OneOrMany[T]) MarshalCBOR() ([]byte, error) {
	switch {
	case !o.set:
		return cborcodec.Marshal(nil)
	case o.multiple:
		return cborcodec.Marshal(o.many)
	default:
		return cborcodec.Marshal(o.single)
	}
}

// UnmarshalCBOR tries the single shape first, then the list shape.
func (o *OneOrMany[T]) UnmarshalCBOR(data []byte) error {
	if isCBORNull(data) {
		return fmt.Errorf("value must not be null")
	}

	var single T
	singleErr := cborcodec.Unmarshal(data, &single)
	if singleErr == nil {
		*o = Single(single)
		return nil
	}

	var many []T
	if err := cborcodec.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("value matches neither single nor list shape: %v; %w", singleErr, err)
	}
	if many == nil {
		many = []T{}
	}
	*o = OneOrMany[T]{many: many, multiple: true, set: true}
	return nil
}

// isCBORNull reports whether data is the CBOR null or undefined simple value.
func isCBORNull(data []byte) bool {
	return len(data) == 1 && (data[0] == 0xf6 || data[0] == 0xf7)
}
