package model

// Patch is an optional update value. The zero Patch is absent.
type Patch[T any] struct {
	Value   T
	Present bool
}

// Set returns a present Patch holding v.
func Set[T any](v T) Patch[T] {
	return Patch[T]{Value: v, Present: true}
}

// Or returns the patched value when present, current otherwise.
func (p Patch[T]) Or(current T) T {
	if p.Present {
		return p.Value
	}
	return current
}
