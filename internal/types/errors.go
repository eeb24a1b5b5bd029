package types

import "fmt"

// UnificationError reports a structural unification failure between
// two types. Callers typically wrap this with a source span via
// internal/diag before surfacing it to the user.
type UnificationError struct {
	Type1 Type
	Type2 Type
}

func (e *UnificationError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s", e.Type1, e.Type2)
}
