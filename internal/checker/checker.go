package checker

import (
	"github.com/hivellm/tmlc/internal/ast"
	"github.com/hivellm/tmlc/internal/diag"
	"github.com/hivellm/tmlc/internal/tenv"
	"github.com/hivellm/tmlc/internal/types"
)

// Checker walks a parsed File and produces a TypedProgram, accumulating
// every diagnostic rather than stopping at the first error
// (SPEC_FULL.md §8's accumulate-then-report policy).
type Checker struct {
	env *tenv.Env
	acc *diag.Accumulator

	returnStack []types.Type

	// implFuncs collects impl-method bodies checked during
	// registerDecls, while each impl block's Self alias is still bound;
	// CheckFile merges these into the returned TypedProgram.
	implFuncs []*TypedFunc
}

// New returns a Checker bound to env, which must already have its
// built-ins registered (tenv.New does this).
func New(env *tenv.Env) *Checker {
	return &Checker{env: env, acc: diag.NewAccumulator()}
}

// CheckFile type-checks every declaration in f in two passes: first
// registering every top-level name (so forward references and mutual
// recursion resolve), then checking each function body.
func (c *Checker) CheckFile(f *ast.File) (*TypedProgram, *diag.Accumulator) {
	c.registerDecls(f)

	prog := &TypedProgram{File: f}
	for _, d := range f.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}
		prog.Funcs = append(prog.Funcs, c.checkFuncDecl(fd))
	}
	prog.Funcs = append(prog.Funcs, c.implFuncs...)
	return prog, c.acc
}

func (c *Checker) registerDecls(f *ast.File) {
	for _, d := range f.Decls {
		switch decl := d.(type) {
		case *ast.StructDecl:
			c.registerStruct(decl)
		case *ast.EnumDecl:
			c.registerEnum(decl)
		case *ast.BehaviorDecl:
			c.registerBehavior(decl)
		case *ast.ImplDecl:
			c.registerImpl(decl)
		case *ast.ConstDecl:
			c.registerConst(decl)
		case *ast.FuncDecl:
			c.registerFuncSig(decl)
		}
	}
}

func (c *Checker) registerStruct(decl *ast.StructDecl) {
	fields := make([]tenv.FieldDef, len(decl.Fields))
	for i, f := range decl.Fields {
		fields[i] = tenv.FieldDef{Name: f.Name, Type: ResolveTypeExpr(c.env, f.Type)}
	}
	if err := c.env.DefineStruct(&tenv.StructDef{
		Name: decl.Name, TypeParams: decl.TypeParams, ConstParams: decl.ConstParams,
		Fields: fields, Span: decl.Position(),
	}); err != nil {
		c.acc.Add(toDiagnostic(err))
	}
}

func (c *Checker) registerEnum(decl *ast.EnumDecl) {
	variants := make([]tenv.VariantDef, len(decl.Variants))
	for i, v := range decl.Variants {
		payload := make([]types.Type, len(v.Payload))
		for j, p := range v.Payload {
			payload[j] = ResolveTypeExpr(c.env, p)
		}
		variants[i] = tenv.VariantDef{Name: v.Name, Payload: payload}
	}
	if err := c.env.DefineEnum(&tenv.EnumDef{
		Name: decl.Name, TypeParams: decl.TypeParams, ConstParams: decl.ConstParams,
		Variants: variants, Span: decl.Position(),
	}); err != nil {
		c.acc.Add(toDiagnostic(err))
	}
}

func (c *Checker) registerBehavior(decl *ast.BehaviorDecl) {
	methods := make([]tenv.MethodSig, len(decl.Methods))
	for i, m := range decl.Methods {
		params := make([]types.Type, len(m.Params))
		for j, p := range m.Params {
			params[j] = ResolveTypeExpr(c.env, p.Type)
		}
		methods[i] = tenv.MethodSig{
			Name: m.Name, TypeParams: m.TypeParams, Params: params,
			Return: ResolveTypeExpr(c.env, m.Return), DefaultBody: m.Body,
		}
	}
	assoc := make([]tenv.AssociatedTypeDecl, len(decl.AssociatedTypes))
	for i, a := range decl.AssociatedTypes {
		var def types.Type
		if a.Default != nil {
			def = ResolveTypeExpr(c.env, a.Default)
		}
		assoc[i] = tenv.AssociatedTypeDecl{Name: a.Name, Bounds: a.Bounds, Default: def}
	}
	if err := c.env.DefineBehavior(&tenv.BehaviorDef{
		Name: decl.Name, TypeParams: decl.TypeParams, AssociatedTypes: assoc,
		Methods: methods, SuperBehaviors: decl.SuperBehaviors, Span: decl.Position(),
	}); err != nil {
		c.acc.Add(toDiagnostic(err))
	}
}

func (c *Checker) registerImpl(decl *ast.ImplDecl) {
	target := ResolveTypeExpr(c.env, decl.TargetType)
	if decl.BehaviorName != "" {
		c.checkObjectSafety(decl, target)
		c.env.RegisterImpl(target, decl.BehaviorName)
	}

	restore := c.env.BindSelfAlias(target)
	defer restore()

	targetName := typeHeadName(target)
	for _, m := range decl.Methods {
		qualified := *m
		qualified.Name = targetName + "." + m.Name
		c.registerFuncSig(&qualified)
		if qualified.Body != nil {
			c.implFuncs = append(c.implFuncs, c.checkFuncDecl(&qualified))
		}
	}
}

// typeHeadName returns the name used to qualify a method's registry
// entry: the struct/enum name for a Named receiver, or the type's
// string form for anything else (so `impl ... for I64` still gets a
// stable, lookup-compatible key).
func typeHeadName(t types.Type) string {
	if named, ok := t.(*types.Named); ok {
		return named.Name
	}
	return t.String()
}

// checkObjectSafety rejects `impl` methods whose shape would make a
// `dyn Behavior` value unconstructible: a method returning Self cannot
// be called through a vtable fat pointer (SPEC_FULL.md §4.2 TC006).
// Only the declared return type is inspected; parameters and a
// method's own type parameters are not checked.
func (c *Checker) checkObjectSafety(decl *ast.ImplDecl, target types.Type) {
	if decl.BehaviorName == "" {
		return
	}
	for _, m := range decl.Methods {
		if m.Return != nil {
			if nte, ok := m.Return.(*ast.NamedTypeExpr); ok && nte.Name == "Self" {
				c.acc.Addf(diag.TC006, decl.Position(),
					"method %q returns Self, which is not object-safe for dyn %s", m.Name, decl.BehaviorName)
			}
		}
	}
}

func (c *Checker) registerConst(decl *ast.ConstDecl) {
	typ := ResolveTypeExpr(c.env, decl.Type)
	c.env.Define(decl.Name, typ, false, decl.Position())
}

func (c *Checker) registerFuncSig(decl *ast.FuncDecl) {
	params := make([]types.Type, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = ResolveTypeExpr(c.env, p.Type)
	}
	where := make([]tenv.Qualifier, len(decl.Where))
	for i, w := range decl.Where {
		where[i] = tenv.Qualifier{Param: w.Param, Behaviors: w.Behaviors}
	}
	sig := &tenv.FuncSig{
		Name: decl.Name, Params: params, Return: ResolveTypeExpr(c.env, decl.Return),
		TypeParams: decl.TypeParams, ConstParams: decl.ConstParams, Where: where,
		IsAsync: decl.IsAsync, IsLowlevel: decl.IsLowlevel, Span: decl.Position(),
		FFI: tenv.FFIMetadata{ExternABI: decl.ExternABI, ExternName: decl.ExternName, LinkLibs: decl.LinkLibs},
	}
	if err := c.env.DefineFunc(sig); err != nil {
		c.acc.Add(toDiagnostic(err))
	}
}

func toDiagnostic(err error) diag.Diagnostic {
	if d, ok := err.(diag.Diagnostic); ok {
		return d
	}
	return diag.New(diag.BUG001, ast.Span{}, err.Error())
}
