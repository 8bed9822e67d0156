package runtime

import (
	"fmt"

	"github.com/risor-io/risor/object"
)

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// optionalString returns the value of a string argument, or "" for nil and
// non-string arguments.
func optionalString(obj object.Object) string {
	if s, ok := obj.(*object.String); ok {
		return s.Value()
	}
	return ""
}
