package types

import "sync/atomic"

// Context owns every per-compilation fresh-id counter: type variable
// ids, closure ids, temp register ids, debug metadata ids. SPEC_FULL.md
// §6 calls out the teacher's package-level `typeVarCounter` global and
// asks for it to be threaded explicitly instead; Context is that
// thread. One Context exists per translation unit.
type Context struct {
	typeVarID  uint64
	closureID  uint64
	tempRegID  uint64
	debugMetaID uint64
}

// NewContext returns a zeroed, ready-to-use Context.
func NewContext() *Context {
	return &Context{}
}

// FreshTypeVar allocates a new, globally-within-this-Context-unique
// inference unknown (SPEC_FULL.md §4.1's `fresh_type_var`).
func (c *Context) FreshTypeVar() *TypeVar {
	id := atomic.AddUint64(&c.typeVarID, 1)
	return &TypeVar{ID: id}
}

// FreshTypeVarConstrained is FreshTypeVar with an attached behavior
// constraint, used when a call site's generic parameter has a
// where-clause.
func (c *Context) FreshTypeVarConstrained(behavior string) *TypeVar {
	tv := c.FreshTypeVar()
	tv.Constraint = &Constraint{Behavior: behavior}
	return tv
}

// FreshClosureID allocates a unique closure identity, used by codegen
// to name the closure's environment struct and trampoline function.
func (c *Context) FreshClosureID() uint64 {
	return atomic.AddUint64(&c.closureID, 1)
}

// FreshTempReg allocates a unique MIR SSA value id.
func (c *Context) FreshTempReg() uint64 {
	return atomic.AddUint64(&c.tempRegID, 1)
}

// FreshDebugMetaID allocates a unique debug-info metadata node id.
func (c *Context) FreshDebugMetaID() uint64 {
	return atomic.AddUint64(&c.debugMetaID, 1)
}
