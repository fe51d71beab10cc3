// Package degrade models best-effort collaborator results: a usable value is
// always present, and when it came from a fallback the failure that forced it
// is kept alongside so callers and tests can tell the two apart.
package degrade

// Value wraps a result that may have been substituted by a safe default.
type Value[T any] struct {
	V     T
	Cause error
}

// Ok wraps a value produced by the real collaborator.
func Ok[T any](v T) Value[T] {
	return Value[T]{V: v}
}

// Fallback wraps a default value substituted because of cause.
func Fallback[T any](v T, cause error) Value[T] {
	return Value[T]{V: v, Cause: cause}
}

// Degraded reports whether the value is a fallback rather than a real result.
func (v Value[T]) Degraded() bool {
	return v.Cause != nil
}
