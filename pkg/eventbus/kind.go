package eventbus

import "reflect"

// Kind identifies a category of events. Two kinds are equal when they were
// derived from the same Go type.
type Kind struct {
	t reflect.Type
}

// KindOf returns the Kind for event type E.
func KindOf[E any]() Kind {
	return Kind{t: reflect.TypeFor[E]()}
}

// String returns the Go type name of the kind, e.g. "main.CountEvent".
func (k Kind) String() string {
	if k.t == nil {
		return "<nil>"
	}
	return k.t.String()
}

// IsZero reports whether k was not obtained from KindOf.
func (k Kind) IsZero() bool {
	return k.t == nil
}
