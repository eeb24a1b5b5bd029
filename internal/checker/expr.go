package checker

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/types"
)

// checkExpr type-checks e and returns its (possibly still-unresolved)
// type; callers resolve through the Unifier once the enclosing function
// finishes checking.
func (c *Checker) checkExpr(e ast.Expr) types.Type {
	switch ex := e.(type) {
	case *ast.Literal:
		return c.checkLiteral(ex)
	case *ast.InterpString:
		for _, part := range ex.Parts {
			if part.Expr != nil {
				c.checkExpr(part.Expr)
			}
		}
		return types.TStr
	case *ast.Ident:
		return c.checkIdent(ex)
	case *ast.BinaryExpr:
		return c.checkBinary(ex)
	case *ast.UnaryExpr:
		return c.checkUnary(ex)
	case *ast.CallExpr:
		return c.checkCall(ex)
	case *ast.MethodCallExpr:
		return c.checkMethodCall(ex)
	case *ast.FieldExpr:
		return c.checkField(ex)
	case *ast.IndexExpr:
		return c.checkIndex(ex)
	case *ast.PathExpr:
		return c.checkPath(ex)
	case *ast.RangeExpr:
		lo := c.checkExpr(ex.Lo)
		hi := c.checkExpr(ex.Hi)
		if err := c.env.Unify(lo, hi); err != nil {
			c.acc.Addf(diag.TC001, ex.Position(), "range bounds have different types: %s vs %s", c.env.Resolve(lo), c.env.Resolve(hi))
		}
		return &types.Named{Name: "Range", TypeArgs: []types.Type{c.env.Resolve(lo)}}
	case *ast.CastExpr:
		c.checkExpr(ex.Value)
		return ResolveTypeExpr(c.env, ex.Target)
	case *ast.TupleExpr:
		elems := make([]types.Type, len(ex.Elements))
		for i, el := range ex.Elements {
			elems[i] = c.env.Resolve(c.checkExpr(el))
		}
		return &types.Tuple{Elements: elems}
	case *ast.ArrayExpr:
		if len(ex.Elements) == 0 {
			return &types.Array{Element: c.env.FreshTypeVar(), Size: 0}
		}
		first := c.checkExpr(ex.Elements[0])
		for _, el := range ex.Elements[1:] {
			t := c.checkExpr(el)
			if err := c.env.Unify(first, t); err != nil {
				c.acc.Addf(diag.TC001, el.Position(), "array elements must share one type")
			}
		}
		return &types.Array{Element: c.env.Resolve(first), Size: len(ex.Elements)}
	case *ast.StructExpr:
		return c.checkStructLit(ex)
	case *ast.ClosureExpr:
		return c.checkClosure(ex)
	case *ast.BlockExpr:
		return c.checkBlock(ex)
	case *ast.IfExpr:
		return c.checkIf(ex)
	case *ast.IfLetExpr:
		return c.checkIfLet(ex)
	case *ast.WhenExpr:
		return c.checkWhen(ex)
	case *ast.LoopExpr:
		c.checkExpr(ex.Body)
		return types.TNever
	case *ast.WhileExpr:
		cond := c.checkExpr(ex.Cond)
		if err := c.env.Unify(cond, types.TBool); err != nil {
			c.acc.Addf(diag.TC001, ex.Cond.Position(), "while condition must be Bool")
		}
		c.checkExpr(ex.Body)
		return types.TUnit
	case *ast.ForExpr:
		return c.checkFor(ex)
	case *ast.ReturnExpr:
		return c.checkReturn(ex)
	case *ast.BreakExpr:
		if ex.Value != nil {
			c.checkExpr(ex.Value)
		}
		return types.TNever
	case *ast.ContinueExpr:
		return types.TNever
	default:
		c.acc.Addf(diag.BUG001, e.Position(), "checker: unhandled expression kind %T", e)
		return c.env.FreshTypeVar()
	}
}

func (c *Checker) checkLiteral(l *ast.Literal) types.Type {
	switch l.Kind {
	case ast.LitInt:
		return c.env.Context().FreshTypeVarConstrained("Integer")
	case ast.LitFloat:
		return types.TF64
	case ast.LitString:
		return types.TStr
	case ast.LitChar:
		return types.TChar
	case ast.LitBool:
		return types.TBool
	case ast.LitUnit:
		return types.TUnit
	default:
		return c.env.FreshTypeVar()
	}
}

func (c *Checker) checkIdent(id *ast.Ident) types.Type {
	if sym := c.env.Lookup(id.Name); sym != nil {
		if t, ok := sym.Type.(types.Type); ok {
			return t
		}
	}
	if sig, err := c.env.LookupFuncOverload(id.Name, nil, id.Position()); err == nil {
		return sig.Scheme().Type
	}
	c.acc.Add(unknownIdentDiag(id.Name, c.env.AllScopeNames(), id.Position()))
	return c.env.FreshTypeVar()
}

var comparisonOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}
var logicalOps = map[string]bool{"&&": true, "||": true}

func (c *Checker) checkBinary(b *ast.BinaryExpr) types.Type {
	lt := c.checkExpr(b.Left)
	rt := c.checkExpr(b.Right)

	if logicalOps[b.Op] {
		if err := c.env.Unify(lt, types.TBool); err != nil {
			c.acc.Addf(diag.TC001, b.Left.Position(), "operand of %s must be Bool", b.Op)
		}
		if err := c.env.Unify(rt, types.TBool); err != nil {
			c.acc.Addf(diag.TC001, b.Right.Position(), "operand of %s must be Bool", b.Op)
		}
		return types.TBool
	}

	if err := c.env.Unify(lt, rt); err != nil {
		c.acc.Addf(diag.TC001, b.Position(), "mismatched operand types for %s: %s vs %s", b.Op, c.env.Resolve(lt), c.env.Resolve(rt))
	}

	if comparisonOps[b.Op] {
		return types.TBool
	}
	return c.env.Resolve(lt)
}

func (c *Checker) checkUnary(u *ast.UnaryExpr) types.Type {
	operand := c.checkExpr(u.Operand)
	switch u.Op {
	case "ref":
		return &types.Ref{Inner: c.env.Resolve(operand)}
	case "mut ref":
		return &types.Ref{IsMut: true, Inner: c.env.Resolve(operand)}
	case "*":
		if ref, ok := c.env.Resolve(operand).(*types.Ref); ok {
			return ref.Inner
		}
		if ptr, ok := c.env.Resolve(operand).(*types.Ptr); ok {
			return ptr.Inner
		}
		c.acc.Addf(diag.TC001, u.Position(), "cannot dereference non-reference type %s", c.env.Resolve(operand))
		return c.env.FreshTypeVar()
	case "!":
		if err := c.env.Unify(operand, types.TBool); err != nil {
			c.acc.Addf(diag.TC001, u.Position(), "operand of ! must be Bool")
		}
		return types.TBool
	case "-":
		return c.env.Resolve(operand)
	default:
		return c.env.Resolve(operand)
	}
}

func (c *Checker) checkField(f *ast.FieldExpr) types.Type {
	recv := c.env.Resolve(c.checkExpr(f.Receiver))
	named, ok := recv.(*types.Named)
	if !ok {
		if ref, isRef := recv.(*types.Ref); isRef {
			if n, isNamed := ref.Inner.(*types.Named); isNamed {
				named, ok = n, true
			}
		}
	}
	if !ok {
		c.acc.Addf(diag.TC001, f.Position(), "type %s has no field %q", recv, f.Field)
		return c.env.FreshTypeVar()
	}
	sd := c.env.LookupStruct(named.Name)
	if sd == nil {
		c.acc.Addf(diag.ENV004, f.Position(), "unknown struct %q", named.Name)
		return c.env.FreshTypeVar()
	}
	sigma := bindTypeParams(sd.TypeParams, named.TypeArgs)
	for _, field := range sd.Fields {
		if field.Name == f.Field {
			return field.Type.Substitute(sigma)
		}
	}
	c.acc.Addf(diag.TC001, f.Position(), "struct %q has no field %q", named.Name, f.Field)
	return c.env.FreshTypeVar()
}

func bindTypeParams(params []string, args []types.Type) map[string]types.Type {
	sigma := map[string]types.Type{}
	for i, p := range params {
		if i < len(args) {
			sigma[p] = args[i]
		}
	}
	return sigma
}

func (c *Checker) checkIndex(x *ast.IndexExpr) types.Type {
	recv := c.env.Resolve(c.checkExpr(x.Receiver))
	c.checkExpr(x.Index)
	switch r := recv.(type) {
	case *types.Slice:
		return r.Element
	case *types.Array:
		return r.Element
	default:
		c.acc.Addf(diag.TC001, x.Position(), "type %s cannot be indexed", recv)
		return c.env.FreshTypeVar()
	}
}

func (c *Checker) checkPath(p *ast.PathExpr) types.Type {
	name := ""
	for i, seg := range p.Segments {
		if i > 0 {
			name += "."
		}
		name += seg
	}
	if sig, err := c.env.LookupFuncOverload(name, nil, p.Position()); err == nil {
		return sig.Scheme().Type
	}
	return c.env.FreshTypeVar()
}

func (c *Checker) checkStructLit(s *ast.StructExpr) types.Type {
	sd := c.env.LookupStruct(s.TypeName)
	if sd == nil {
		c.acc.Addf(diag.ENV004, s.Position(), "unknown struct %q", s.TypeName)
		for _, field := range s.Fields {
			c.checkExpr(field.Value)
		}
		return c.env.FreshTypeVar()
	}
	typeArgs := make([]types.Type, len(sd.TypeParams))
	for i := range sd.TypeParams {
		typeArgs[i] = c.env.FreshTypeVar()
	}
	sigma := bindTypeParams(sd.TypeParams, typeArgs)
	for _, lit := range s.Fields {
		vt := c.checkExpr(lit.Value)
		var declared types.Type
		for _, field := range sd.Fields {
			if field.Name == lit.Name {
				declared = field.Type.Substitute(sigma)
				break
			}
		}
		if declared == nil {
			c.acc.Addf(diag.TC001, s.Position(), "struct %q has no field %q", s.TypeName, lit.Name)
			continue
		}
		if err := c.env.Unify(vt, declared); err != nil {
			c.acc.Addf(diag.TC001, s.Position(), "field %q: expected %s, got %s", lit.Name, c.env.Resolve(declared), c.env.Resolve(vt))
		}
	}
	resolvedArgs := make([]types.Type, len(typeArgs))
	for i, a := range typeArgs {
		resolvedArgs[i] = c.env.Resolve(a)
	}
	return &types.Named{Name: s.TypeName, TypeArgs: resolvedArgs}
}

func (c *Checker) checkClosure(cl *ast.ClosureExpr) types.Type {
	c.env.PushScope()
	defer c.env.PopScope()

	params := make([]types.Type, len(cl.Params))
	for i, p := range cl.Params {
		t := ResolveTypeExpr(c.env, p.Type)
		params[i] = t
		c.env.Define(p.Name, t, false, cl.Position())
	}
	bodyType := c.env.Resolve(c.checkExpr(cl.Body))
	if cl.Return != nil {
		declared := ResolveTypeExpr(c.env, cl.Return)
		if err := c.env.Unify(bodyType, declared); err != nil {
			c.acc.Addf(diag.TC001, cl.Position(), "closure body type does not match declared return type")
		}
		bodyType = c.env.Resolve(declared)
	}
	// Captures are populated by the borrow checker's free-variable walk
	// (internal/borrow), not here: the checker only fixes parameter and
	// return shape.
	return &types.Closure{Params: params, Return: bodyType}
}
