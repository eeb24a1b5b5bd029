package mir

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/tenv"
	"github.com/hivellm/tmlc/internal/types"
)

// Builder lowers one already type- and borrow-checked function body
// into MIR, allocating a stack slot (alloca + load/store) for every
// local rather than constructing SSA phi nodes at control-flow merges:
// a deliberate simplification over textbook SSA construction (the
// OpPhi opcode stays in the instruction set for a backend that wants
// to run its own mem2reg-style pass, but this builder never emits it)
// — the same shape LLVM's own `-O0` frontend output takes, and the
// simplest lowering that is still trivially correct without a
// dominance-frontier computation.
type Builder struct {
	env *tenv.Env
	fn  *Function
	cur *Block

	locals map[string]localSlot
}

type localSlot struct {
	addr ValueID
	typ  types.Type
}

// NewBuilder returns a Builder that resolves struct/enum/function
// definitions against env.
func NewBuilder(env *tenv.Env) *Builder {
	return &Builder{env: env}
}

// LowerFunction lowers one checked function declaration to a MIR
// Function. paramTypes/retType must already be fully resolved
// (monomorphized) types; decl.Body must be non-nil.
func (b *Builder) LowerFunction(decl *ast.FuncDecl, paramTypes []types.Type, retType types.Type) *Function {
	b.fn = NewFunction(decl.Name, retType)
	b.locals = map[string]localSlot{}
	entry := b.fn.NewBlock("entry")
	b.cur = entry

	for i, p := range decl.Params {
		pt := types.Type(types.TUnit)
		if i < len(paramTypes) {
			pt = paramTypes[i]
		}
		paramValue := b.fn.FreshValue()
		b.fn.Params = append(b.fn.Params, Param{Value: paramValue, Name: p.Name, Type: pt})
		addr := b.alloca(pt)
		b.emit(Instr{Op: OpStore, Args: []ValueID{addr, paramValue}, Type: pt})
		b.locals[p.Name] = localSlot{addr: addr, typ: pt}
	}

	result, _ := b.lowerExpr(decl.Body)
	b.terminateWithReturn(result, retType)
	return b.fn
}

func (b *Builder) alloca(t types.Type) ValueID {
	v := b.fn.FreshValue()
	b.emit(Instr{Op: OpAlloca, Result: v, HasResult: true, Type: t})
	return v
}

func (b *Builder) emit(i Instr) { b.cur.Append(i) }

func (b *Builder) emitValue(i Instr) ValueID {
	i.Result = b.fn.FreshValue()
	i.HasResult = true
	b.emit(i)
	return i.Result
}

func (b *Builder) terminateWithReturn(v ValueID, t types.Type) {
	b.emit(Instr{Op: OpReturn, Args: []ValueID{v}, Type: t})
}

// lowerExpr lowers e into the current block, returning the SSA value
// holding its result and that value's type.
func (b *Builder) lowerExpr(e ast.Expr) (ValueID, types.Type) {
	switch ex := e.(type) {
	case *ast.Literal:
		return b.lowerLiteral(ex)
	case *ast.Ident:
		return b.lowerIdent(ex)
	case *ast.BinaryExpr:
		return b.lowerBinary(ex)
	case *ast.UnaryExpr:
		return b.lowerUnary(ex)
	case *ast.CallExpr:
		return b.lowerCall(ex)
	case *ast.FieldExpr:
		return b.lowerField(ex)
	case *ast.StructExpr:
		return b.lowerStructLit(ex)
	case *ast.BlockExpr:
		return b.lowerBlock(ex)
	case *ast.IfExpr:
		return b.lowerIf(ex)
	case *ast.WhileExpr:
		return b.lowerWhile(ex)
	case *ast.ReturnExpr:
		return b.lowerReturn(ex)
	case *ast.CastExpr:
		return b.lowerCast(ex)
	default:
		// Expression forms not yet lowered (closures, when, for,
		// dyn dispatch) fall back to a zero-valued Unit constant so the
		// builder always terminates. No later stage rejects a module
		// containing one of these: the Unit constant is what codegen sees.
		return b.emitValue(Instr{Op: OpConst, ConstValue: nil, Type: types.TUnit}), types.TUnit
	}
}

func (b *Builder) lowerLiteral(l *ast.Literal) (ValueID, types.Type) {
	t := literalType(l)
	return b.emitValue(Instr{Op: OpConst, ConstValue: l.Value, Type: t}), t
}

func literalType(l *ast.Literal) types.Type {
	switch l.Kind {
	case ast.LitInt:
		return types.TI32
	case ast.LitFloat:
		return types.TF64
	case ast.LitString:
		return types.TStr
	case ast.LitChar:
		return types.TChar
	case ast.LitBool:
		return types.TBool
	default:
		return types.TUnit
	}
}

func (b *Builder) lowerIdent(id *ast.Ident) (ValueID, types.Type) {
	slot, ok := b.locals[id.Name]
	if !ok {
		return b.emitValue(Instr{Op: OpConst, Type: types.TUnit}), types.TUnit
	}
	return b.emitValue(Instr{Op: OpLoad, Args: []ValueID{slot.addr}, Type: slot.typ}), slot.typ
}

func (b *Builder) lowerBinary(bin *ast.BinaryExpr) (ValueID, types.Type) {
	lv, lt := b.lowerExpr(bin.Left)
	rv, _ := b.lowerExpr(bin.Right)
	resultType := lt
	if isComparisonOp(bin.Op) {
		resultType = types.TBool
	}
	return b.emitValue(Instr{Op: OpBinary, BinaryOp: bin.Op, Args: []ValueID{lv, rv}, Type: resultType}), resultType
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
		return true
	default:
		return false
	}
}

func (b *Builder) lowerUnary(u *ast.UnaryExpr) (ValueID, types.Type) {
	switch u.Op {
	case "ref", "mut ref":
		// References are lowered as the pointee's address, already
		// materialized by the operand's own alloca when it is a bare
		// place; for a non-place operand, spill it to a fresh slot first.
		if place, ok := u.Operand.(*ast.Ident); ok {
			if slot, ok := b.locals[place.Name]; ok {
				return slot.addr, &types.Ref{IsMut: u.Op == "mut ref", Inner: slot.typ}
			}
		}
		v, t := b.lowerExpr(u.Operand)
		addr := b.alloca(t)
		b.emit(Instr{Op: OpStore, Args: []ValueID{addr, v}, Type: t})
		return addr, &types.Ref{IsMut: u.Op == "mut ref", Inner: t}
	case "*":
		v, t := b.lowerExpr(u.Operand)
		inner := types.Type(types.TUnit)
		if ref, ok := t.(*types.Ref); ok {
			inner = ref.Inner
		}
		return b.emitValue(Instr{Op: OpLoad, Args: []ValueID{v}, Type: inner}), inner
	default:
		v, t := b.lowerExpr(u.Operand)
		return b.emitValue(Instr{Op: OpUnary, UnaryOp: u.Op, Args: []ValueID{v}, Type: t}), t
	}
}

func (b *Builder) lowerCall(call *ast.CallExpr) (ValueID, types.Type) {
	name, _ := calleeName(call.Callee)
	args := make([]ValueID, len(call.Args))
	argTypes := make([]types.Type, len(call.Args))
	for i, a := range call.Args {
		v, t := b.lowerExpr(a)
		args[i] = v
		argTypes[i] = t
	}
	retType := types.Type(types.TUnit)
	if len(argTypes) > 0 {
		retType = argTypes[len(argTypes)-1]
	}
	if sig := b.lookupFunc(name, argTypes, call.Position()); sig != nil {
		retType = sig.Return
	}
	return b.emitValue(Instr{Op: OpCallDirect, Callee: name, Args: args, Type: retType}), retType
}

// lookupFunc resolves the callee's signature against the type
// environment when one is available. A nil result leaves the caller's
// argument-type fallback in place, which keeps lowering total even
// when a callee can't be resolved (e.g. a not-yet-monomorphized
// generic function reached before the mono engine has drained).
func (b *Builder) lookupFunc(name string, argTypes []types.Type, span ast.Span) *tenv.FuncSig {
	if b.env == nil {
		return nil
	}
	sig, err := b.env.LookupFuncOverload(name, argTypes, span)
	if err != nil {
		return nil
	}
	return sig
}

func calleeName(e ast.Expr) (string, bool) {
	switch ex := e.(type) {
	case *ast.Ident:
		return ex.Name, true
	case *ast.PathExpr:
		if len(ex.Segments) > 0 {
			return ex.Segments[len(ex.Segments)-1], true
		}
	}
	return "", false
}

func (b *Builder) lowerField(f *ast.FieldExpr) (ValueID, types.Type) {
	baseAddr, baseType, isAddr := b.lowerPlaceAddr(f.Receiver)
	named, _ := baseType.(*types.Named)
	idx, fieldType := b.fieldIndex(named, f.Field)
	if isAddr {
		gep := b.emitValue(Instr{Op: OpProject, Args: []ValueID{baseAddr}, FieldIndex: idx, FieldName: f.Field, Type: &types.Ptr{Inner: fieldType}})
		return b.emitValue(Instr{Op: OpLoad, Args: []ValueID{gep}, Type: fieldType}), fieldType
	}
	return b.emitValue(Instr{Op: OpProject, Args: []ValueID{baseAddr}, FieldIndex: idx, FieldName: f.Field, Type: fieldType}), fieldType
}

func (b *Builder) fieldIndex(named *types.Named, field string) (int, types.Type) {
	if named == nil || b.env == nil {
		return 0, types.TUnit
	}
	def := b.env.LookupStruct(named.Name)
	if def == nil {
		return 0, types.TUnit
	}
	sigma := map[string]types.Type{}
	for i, p := range def.TypeParams {
		if i < len(named.TypeArgs) {
			sigma[p] = named.TypeArgs[i]
		}
	}
	for i, fd := range def.Fields {
		if fd.Name == field {
			return i, fd.Type.Substitute(sigma)
		}
	}
	return 0, types.TUnit
}

// lowerPlaceAddr lowers e and, when e is a bare local, also returns
// its stack address so callers needing an lvalue (projection targets)
// can avoid an extra load+store round trip.
func (b *Builder) lowerPlaceAddr(e ast.Expr) (ValueID, types.Type, bool) {
	if id, ok := e.(*ast.Ident); ok {
		if slot, ok := b.locals[id.Name]; ok {
			return slot.addr, slot.typ, true
		}
	}
	v, t := b.lowerExpr(e)
	return v, t, false
}

func (b *Builder) lowerStructLit(s *ast.StructExpr) (ValueID, types.Type) {
	args := make([]ValueID, len(s.Fields))
	resultType := types.Type(&types.Named{Name: s.TypeName})
	for i, f := range s.Fields {
		v, _ := b.lowerExpr(f.Value)
		args[i] = v
	}
	return b.emitValue(Instr{Op: OpAggregateConstruct, Args: args, Type: resultType}), resultType
}

func (b *Builder) lowerBlock(blk *ast.BlockExpr) (ValueID, types.Type) {
	for _, stmt := range blk.Statements {
		b.lowerStmt(stmt)
	}
	if blk.Tail != nil {
		return b.lowerExpr(blk.Tail)
	}
	return b.emitValue(Instr{Op: OpConst, Type: types.TUnit}), types.TUnit
}

func (b *Builder) lowerStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LetStmt:
		v, t := b.lowerExpr(st.Value)
		addr := b.alloca(t)
		b.emit(Instr{Op: OpStore, Args: []ValueID{addr, v}, Type: t})
		b.locals[st.Name] = localSlot{addr: addr, typ: t}
	case *ast.AssignStmt:
		v, t := b.lowerExpr(st.Value)
		if id, ok := st.Target.(*ast.Ident); ok {
			if slot, ok := b.locals[id.Name]; ok {
				b.emit(Instr{Op: OpStore, Args: []ValueID{slot.addr, v}, Type: t})
				return
			}
		}
		addr, _, _ := b.lowerPlaceAddr(st.Target)
		b.emit(Instr{Op: OpStore, Args: []ValueID{addr, v}, Type: t})
	case *ast.ExprStmt:
		b.lowerExpr(st.X)
	}
}

func (b *Builder) lowerIf(i *ast.IfExpr) (ValueID, types.Type) {
	cond, _ := b.lowerExpr(i.Cond)

	resultType := b.inferType(i.Then)
	if i.Else == nil {
		resultType = types.TUnit
	}
	// Allocated in the block that dominates both arms, not inside
	// thenBlock/elseBlock: an alloca guarded behind a conditional
	// branch would only exist on the path that reaches it, which
	// defeats the point of giving the merged result a single slot.
	joinAddr := b.alloca(resultType)

	thenBlock := b.fn.NewBlock("if.then")
	elseBlock := b.fn.NewBlock("if.else")
	joinBlock := b.fn.NewBlock("if.join")
	b.emit(Instr{Op: OpCondBranch, Args: []ValueID{cond}, Targets: []BlockID{thenBlock.ID, elseBlock.ID}})

	b.cur = thenBlock
	tv, tt := b.lowerExpr(i.Then)
	b.emit(Instr{Op: OpStore, Args: []ValueID{joinAddr, tv}, Type: tt})
	b.emit(Instr{Op: OpBranch, Targets: []BlockID{joinBlock.ID}})

	b.cur = elseBlock
	if i.Else != nil {
		ev, et := b.lowerExpr(i.Else)
		b.emit(Instr{Op: OpStore, Args: []ValueID{joinAddr, ev}, Type: et})
	} else {
		b.emit(Instr{Op: OpStore, Args: []ValueID{joinAddr, b.emitValue(Instr{Op: OpConst, Type: types.TUnit})}, Type: types.TUnit})
	}
	b.emit(Instr{Op: OpBranch, Targets: []BlockID{joinBlock.ID}})

	b.cur = joinBlock
	return b.emitValue(Instr{Op: OpLoad, Args: []ValueID{joinAddr}, Type: resultType}), resultType
}

// inferType determines an expression's static type without emitting
// any instructions, used only to size a stack slot ahead of branching
// into arms that are lowered later. It mirrors lowerExpr's dispatch
// but stays read-only; it is not a substitute for the checker's own
// unification-based inference, which has already run by the time the
// builder sees this tree.
func (b *Builder) inferType(e ast.Expr) types.Type {
	switch ex := e.(type) {
	case *ast.Literal:
		return literalType(ex)
	case *ast.Ident:
		if slot, ok := b.locals[ex.Name]; ok {
			return slot.typ
		}
		return types.TUnit
	case *ast.BinaryExpr:
		if isComparisonOp(ex.Op) {
			return types.TBool
		}
		return b.inferType(ex.Left)
	case *ast.UnaryExpr:
		return b.inferType(ex.Operand)
	case *ast.BlockExpr:
		if ex.Tail != nil {
			return b.inferType(ex.Tail)
		}
		return types.TUnit
	case *ast.IfExpr:
		return b.inferType(ex.Then)
	case *ast.CastExpr:
		return resolveCastTarget(ex.Target)
	default:
		return types.TUnit
	}
}

func (b *Builder) lowerWhile(w *ast.WhileExpr) (ValueID, types.Type) {
	condBlock := b.fn.NewBlock("while.cond")
	bodyBlock := b.fn.NewBlock("while.body")
	afterBlock := b.fn.NewBlock("while.after")

	b.emit(Instr{Op: OpBranch, Targets: []BlockID{condBlock.ID}})
	b.cur = condBlock
	cond, _ := b.lowerExpr(w.Cond)
	b.emit(Instr{Op: OpCondBranch, Args: []ValueID{cond}, Targets: []BlockID{bodyBlock.ID, afterBlock.ID}})

	b.cur = bodyBlock
	b.lowerExpr(w.Body)
	b.emit(Instr{Op: OpBranch, Targets: []BlockID{condBlock.ID}})

	b.cur = afterBlock
	return b.emitValue(Instr{Op: OpConst, Type: types.TUnit}), types.TUnit
}

func (b *Builder) lowerReturn(r *ast.ReturnExpr) (ValueID, types.Type) {
	var v ValueID
	t := types.Type(types.TUnit)
	if r.Value != nil {
		v, t = b.lowerExpr(r.Value)
	}
	b.emit(Instr{Op: OpReturn, Args: []ValueID{v}, Type: t})
	b.cur = b.fn.NewBlock("return.cont")
	return v, types.TNever
}

func (b *Builder) lowerCast(c *ast.CastExpr) (ValueID, types.Type) {
	v, _ := b.lowerExpr(c.Value)
	target := resolveCastTarget(c.Target)
	return b.emitValue(Instr{Op: OpCast, Args: []ValueID{v}, CastTo: target, Type: target}), target
}

func resolveCastTarget(t ast.TypeExpr) types.Type {
	nte, ok := t.(*ast.NamedTypeExpr)
	if !ok {
		return types.TUnit
	}
	switch nte.Name {
	case "I8":
		return types.TI8
	case "I16":
		return types.TI16
	case "I32":
		return types.TI32
	case "I64":
		return types.TI64
	case "U8":
		return types.TU8
	case "U16":
		return types.TU16
	case "U32":
		return types.TU32
	case "U64":
		return types.TU64
	case "F32":
		return types.TF32
	case "F64":
		return types.TF64
	case "Bool":
		return types.TBool
	case "Char":
		return types.TChar
	default:
		return &types.Named{Name: nte.Name}
	}
}
