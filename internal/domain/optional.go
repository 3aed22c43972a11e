package domain

import "encoding/json"

// Optional marks a field of a partial update. Set is true when the field was
// supplied, even if its value is the zero value or JSON null.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON records presence. JSON null clears pointer-typed values.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes the held value.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

// ApplyTo overwrites *dst when o is set.
func (o Optional[T]) ApplyTo(dst *T) {
	if o.Set {
		*dst = o.Value
	}
}
