package model

import "fmt"

// UnresolvedTypeError is returned when a field's declared type cannot be
// mapped to any type descriptor variant, including a nested model reference
// that never resolves against the batch registry.
type UnresolvedTypeError struct {
	Model string
	Field string
	Decl  string
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf(`cannot resolve type "%s" of field %s.%s`, e.Decl, e.Model, e.Field)
}

// UnsupportedKeyTypeError is returned for a map declaration whose key type
// is not a scalar kind.
type UnsupportedKeyTypeError struct {
	Model string
	Field string
	Key   string
}

func (e *UnsupportedKeyTypeError) Error() string {
	return fmt.Sprintf(`unsupported map key type "%s" of field %s.%s: map keys must be scalar`, e.Key, e.Model, e.Field)
}
