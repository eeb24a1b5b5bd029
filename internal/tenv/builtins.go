package tenv

import "github.com/hivellm/tmlc/internal/types"

// registerBuiltins populates env's function registry with the
// standard-library surface every program can call without an explicit
// import, grouped into the nine families SPEC_FULL.md §4.1 names: io,
// mem, atomics, sync, time, math, collections, string, async. Each
// entry is grounded only in its shape (name, arity, generic skeleton);
// bodies are native and lowered directly by the codegen backend.
func registerBuiltins(env *Env) {
	registerIOBuiltins(env)
	registerMemBuiltins(env)
	registerAtomicsBuiltins(env)
	registerSyncBuiltins(env)
	registerTimeBuiltins(env)
	registerMathBuiltins(env)
	registerCollectionsBuiltins(env)
	registerStringBuiltins(env)
	registerAsyncBuiltins(env)
}

func builtin(env *Env, sig *FuncSig) {
	env.funcs[sig.Name] = append(env.funcs[sig.Name], sig)
}

func simple(name string, params []types.Type, ret types.Type) *FuncSig {
	return &FuncSig{Name: name, Params: params, Return: ret, Stability: "stable"}
}

func generic1(name string, tparam string, build func(t types.Type) (params []types.Type, ret types.Type)) *FuncSig {
	params, ret := build(&types.Generic{Name: tparam})
	return &FuncSig{Name: name, TypeParams: []string{tparam}, Params: params, Return: ret, Stability: "stable"}
}

func registerIOBuiltins(env *Env) {
	str := types.TStr
	unit := types.TUnit
	builtin(env, simple("io.print", []types.Type{str}, unit))
	builtin(env, simple("io.println", []types.Type{str}, unit))
	builtin(env, simple("io.eprintln", []types.Type{str}, unit))
	builtin(env, generic1("io.debug", "T", func(t types.Type) ([]types.Type, types.Type) {
		return []types.Type{t}, unit
	}))
	builtin(env, simple("io.read_line", nil, str))
}

func registerMemBuiltins(env *Env) {
	builtin(env, generic1("mem.size_of", "T", func(t types.Type) ([]types.Type, types.Type) {
		return nil, types.TI64
	}))
	builtin(env, generic1("mem.align_of", "T", func(t types.Type) ([]types.Type, types.Type) {
		return nil, types.TI64
	}))
	builtin(env, generic1("mem.swap", "T", func(t types.Type) ([]types.Type, types.Type) {
		ref := &types.Ref{IsMut: true, Inner: t}
		return []types.Type{ref, ref}, types.TUnit
	}))
	builtin(env, generic1("mem.take", "T", func(t types.Type) ([]types.Type, types.Type) {
		return []types.Type{&types.Ref{IsMut: true, Inner: t}}, t
	}))
}

func registerAtomicsBuiltins(env *Env) {
	for _, kind := range []types.PrimKind{types.I32, types.I64, types.U32, types.U64, types.Bool} {
		prim := &types.Primitive{Kind: kind}
		named := &types.Named{Name: "Atomic", TypeArgs: []types.Type{prim}}
		builtin(env, simple("atomic.load", []types.Type{&types.Ref{Inner: named}}, prim))
		builtin(env, simple("atomic.store", []types.Type{&types.Ref{IsMut: true, Inner: named}, prim}, types.TUnit))
		builtin(env, simple("atomic.fetch_add", []types.Type{&types.Ref{IsMut: true, Inner: named}, prim}, prim))
		builtin(env, simple("atomic.compare_exchange", []types.Type{&types.Ref{IsMut: true, Inner: named}, prim, prim}, types.TBool))
	}
}

func registerSyncBuiltins(env *Env) {
	builtin(env, generic1("sync.mutex_new", "T", func(t types.Type) ([]types.Type, types.Type) {
		return []types.Type{t}, &types.Named{Name: "Mutex", TypeArgs: []types.Type{t}}
	}))
	builtin(env, generic1("sync.mutex_lock", "T", func(t types.Type) ([]types.Type, types.Type) {
		m := &types.Named{Name: "Mutex", TypeArgs: []types.Type{t}}
		return []types.Type{&types.Ref{Inner: m}}, &types.Ref{IsMut: true, Inner: t}
	}))
	builtin(env, simple("sync.channel_new", nil, &types.Named{Name: "Channel"}))
}

func registerTimeBuiltins(env *Env) {
	builtin(env, simple("time.now_nanos", nil, types.TI64))
	builtin(env, simple("time.sleep_millis", []types.Type{types.TI64}, types.TUnit))
}

func registerMathBuiltins(env *Env) {
	for _, name := range []string{"sqrt", "sin", "cos", "tan", "abs", "floor", "ceil", "round"} {
		builtin(env, simple("math."+name, []types.Type{types.TF64}, types.TF64))
	}
	builtin(env, simple("math.pow", []types.Type{types.TF64, types.TF64}, types.TF64))
	builtin(env, simple("math.min_i64", []types.Type{types.TI64, types.TI64}, types.TI64))
	builtin(env, simple("math.max_i64", []types.Type{types.TI64, types.TI64}, types.TI64))
}

func registerCollectionsBuiltins(env *Env) {
	builtin(env, generic1("vec.new", "T", func(t types.Type) ([]types.Type, types.Type) {
		return nil, &types.Slice{Element: t}
	}))
	builtin(env, generic1("vec.push", "T", func(t types.Type) ([]types.Type, types.Type) {
		return []types.Type{&types.Ref{IsMut: true, Inner: &types.Slice{Element: t}}, t}, types.TUnit
	}))
	builtin(env, generic1("vec.len", "T", func(t types.Type) ([]types.Type, types.Type) {
		return []types.Type{&types.Ref{Inner: &types.Slice{Element: t}}}, types.TI64
	}))
	builtin(env, generic1("vec.get", "T", func(t types.Type) ([]types.Type, types.Type) {
		return []types.Type{&types.Ref{Inner: &types.Slice{Element: t}}, types.TI64}, t
	}))
	builtin(env, &FuncSig{
		Name:       "map.new",
		TypeParams: []string{"K", "V"},
		Return:     &types.Named{Name: "Map", TypeArgs: []types.Type{&types.Generic{Name: "K"}, &types.Generic{Name: "V"}}},
		Stability:  "stable",
	})
}

func registerStringBuiltins(env *Env) {
	str := types.TStr
	builtin(env, simple("string.len", []types.Type{str}, types.TI64))
	builtin(env, simple("string.concat", []types.Type{str, str}, str))
	builtin(env, simple("string.slice", []types.Type{str, types.TI64, types.TI64}, str))
	builtin(env, simple("string.to_upper", []types.Type{str}, str))
	builtin(env, simple("string.to_lower", []types.Type{str}, str))
	builtin(env, simple("string.split", []types.Type{str, str}, &types.Slice{Element: str}))
}

func registerAsyncBuiltins(env *Env) {
	builtin(env, generic1("async.spawn", "T", func(t types.Type) ([]types.Type, types.Type) {
		fn := &types.Func{Params: nil, Return: t, IsAsync: true}
		return []types.Type{fn}, &types.Named{Name: "Task", TypeArgs: []types.Type{t}}
	}))
	builtin(env, generic1("async.await", "T", func(t types.Type) ([]types.Type, types.Type) {
		return []types.Type{&types.Named{Name: "Task", TypeArgs: []types.Type{t}}}, t
	}))
	builtin(env, generic1("async.yield_now", "T", func(t types.Type) ([]types.Type, types.Type) {
		return nil, types.TUnit
	}))
}
