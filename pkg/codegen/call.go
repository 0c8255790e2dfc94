package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"bolide_go/pkg/analysis"
	"bolide_go/pkg/ast"
)

func (g *Generator) genCall(e ast.Call) cgValue {
	switch callee := e.Callee.(type) {
	case ast.Ident:
		if v, ok := g.genBuiltinCall(callee.Name, e.Args); ok {
			return v
		}
		if g.registry != nil && g.registry.Class(callee.Name) != nil {
			return g.genConstructorCall(g.registry.Class(callee.Name), e.Args)
		}
		if ef, ok := g.externFns[callee.Name]; ok {
			return g.genExternCall(ef, e.Args)
		}
		if fn, ok := g.funcs[callee.Name]; ok {
			var info *analysis.FuncInfo
			if g.registry != nil {
				info = g.registry.Lookup(callee.Name)
			}
			return g.genUserCall(fn, info, nil, e.Args)
		}
		g.fail(errors.Errorf("codegen: call to unknown function %s", callee.Name))
		return cgValue{v: zeroI64, kind: kInt}

	case ast.Member:
		base := g.genExpr(callee.Base)
		layout := g.classOf(base.tag)
		if layout == nil {
			g.fail(errors.Errorf("codegen: method call on unknown class: %s", callee))
			return cgValue{v: zeroI64, kind: kInt}
		}
		mangled := layout.Name + "." + callee.Name
		fn, ok := g.funcs[mangled]
		if !ok {
			g.fail(errors.Errorf("codegen: unknown method %s", mangled))
			return cgValue{v: zeroI64, kind: kInt}
		}
		var info *analysis.FuncInfo
		if layout.Methods != nil {
			info = layout.Methods[callee.Name]
		}
		return g.genUserCall(fn, info, &base, e.Args)

	default:
		g.fail(errors.Errorf("codegen: unsupported callee %T", e.Callee))
		return cgValue{v: zeroI64, kind: kInt}
	}
}

// genBuiltinCall handles the compiler-known builtins. Reports false when
// the name is not a builtin.
func (g *Generator) genBuiltinCall(name string, args []ast.Expr) (cgValue, bool) {
	switch name {
	case "print":
		if len(args) != 1 {
			g.fail(errors.New("codegen: print takes one argument"))
			return cgValue{v: zeroI64, kind: kInt}, true
		}
		v := g.genExpr(args[0])
		g.call(printSymbol(v), v.v)
		if v.owned && v.kind == kHeap {
			g.call("bolide_slot_release", v.v)
		}
		return cgValue{v: zeroI64, kind: kInt}, true

	case "println":
		g.call("bolide_println")
		return cgValue{v: zeroI64, kind: kInt}, true

	case "channel":
		if len(args) == 0 {
			return cgValue{v: g.call("bolide_channel_create"), kind: kRaw, tag: ast.ChannelType{Elem: ast.TypeInt}}, true
		}
		cap := g.genExpr(args[0])
		return cgValue{v: g.call("bolide_channel_create_buffered", cap.v), kind: kRaw, tag: ast.ChannelType{Elem: ast.TypeInt}}, true

	case "close":
		if len(args) == 1 {
			ch := g.genExpr(args[0])
			g.call("bolide_channel_close", ch.v)
		}
		return cgValue{v: zeroI64, kind: kInt}, true

	case "len":
		if len(args) != 1 {
			g.fail(errors.New("codegen: len takes one argument"))
			return cgValue{v: zeroI64, kind: kInt}, true
		}
		v := g.genExpr(args[0])
		sym := "bolide_list_len"
		switch v.tag.(type) {
		case ast.TupleType:
			sym = "bolide_tuple_len"
		case ast.ScalarType:
			if scalarTagIs(v.tag, ast.KindStr) {
				sym = "bolide_string_len"
			}
		}
		out := g.call(sym, v.v)
		if v.owned && v.kind == kHeap {
			g.call("bolide_slot_release", v.v)
		}
		return cgValue{v: out, kind: kInt, tag: ast.TypeInt}, true

	case "append":
		if len(args) != 2 {
			g.fail(errors.New("codegen: append takes a list and a value"))
			return cgValue{v: zeroI64, kind: kInt}, true
		}
		list := g.genExpr(args[0])
		v := g.genExpr(args[1])
		g.call("bolide_list_append", list.v, v.v)
		if v.owned && v.kind == kHeap {
			g.call("bolide_slot_release", v.v)
		}
		return cgValue{v: zeroI64, kind: kInt}, true
	}
	return cgValue{}, false
}

func printSymbol(v cgValue) string {
	switch {
	case v.kind == kFloat:
		return "bolide_print_float"
	case v.kind == kBool:
		return "bolide_print_bool"
	case scalarTagIs(v.tag, ast.KindBigInt):
		return "bolide_print_bigint"
	case scalarTagIs(v.tag, ast.KindDecimal):
		return "bolide_print_decimal"
	case scalarTagIs(v.tag, ast.KindStr):
		return "bolide_print_string"
	case scalarTagIs(v.tag, ast.KindDynamic):
		return "bolide_print_dynamic"
	default:
		if _, ok := v.tag.(ast.TupleType); ok {
			return "bolide_print_tuple"
		}
		return "bolide_print_int"
	}
}

// genConstructorCall allocates a class instance and initialises its
// fields from the arguments in declaration order.
func (g *Generator) genConstructorCall(layout *analysis.ClassLayout, args []ast.Expr) cgValue {
	obj := g.call("bolide_object_alloc",
		constant.NewInt(types.I64, layout.SlotCount()),
		constant.NewInt(types.I64, int64(layout.RefMask)))
	for i, arg := range args {
		if i >= len(layout.Fields) {
			g.fail(errors.Errorf("codegen: too many constructor arguments for %s", layout.Name))
			break
		}
		field := layout.Fields[i]
		v := g.genExpr(arg)
		idx := constant.NewInt(types.I64, field.Index)
		if field.IsRef {
			g.call("bolide_object_field_set_ref", obj, idx, v.v)
			if v.owned && v.kind == kHeap {
				g.call("bolide_slot_release", v.v)
			}
		} else {
			g.call("bolide_object_field_set", obj, idx, v.v)
		}
	}
	return cgValue{v: obj, kind: kHeap, tag: ast.CustomType{Name: layout.Name}, owned: true}
}

// genUserCall lowers a call to a defined function or method, performing
// the refcount choreography each parameter mode dictates.
func (g *Generator) genUserCall(fn *ir.Func, info *analysis.FuncInfo, self *cgValue, args []ast.Expr) cgValue {
	var irArgs []value.Value
	if self != nil {
		irArgs = append(irArgs, self.v)
	}

	var releaseAfter []value.Value
	for i, arg := range args {
		mode := ast.ModeBorrow
		if info != nil && i < len(info.Params) {
			mode = info.Params[i].Mode
		}

		switch mode {
		case ast.ModeRef:
			id, ok := arg.(ast.Ident)
			if !ok {
				g.fail(errors.Errorf("codegen: ref argument must be a variable, got %s", arg))
				return cgValue{v: zeroI64, kind: kInt}
			}
			v := g.lookupVar(id.Name)
			if v == nil {
				g.fail(errors.Errorf("codegen: unknown variable %s", id.Name))
				return cgValue{v: zeroI64, kind: kInt}
			}
			irArgs = append(irArgs, v.ptr)

		case ast.ModeOwned:
			av := g.genExpr(arg)
			irArgs = append(irArgs, av.v)
			if id, ok := arg.(ast.Ident); ok {
				// The caller's slot is nulled: ownership moved into the
				// callee, and the later scope release sees a null slot.
				if v := g.lookupVar(id.Name); v != nil {
					g.block.NewStore(zeroI64, v.ptr)
				}
			} else if !av.owned && av.kind == kHeap {
				g.call("bolide_slot_retain", av.v)
			}

		default: // Borrow
			av := g.genExpr(arg)
			irArgs = append(irArgs, av.v)
			if av.owned && av.kind == kHeap {
				releaseAfter = append(releaseAfter, av.v)
			}
		}
	}

	out := g.block.NewCall(fn, irArgs...)
	for _, v := range releaseAfter {
		g.call("bolide_slot_release", v)
	}

	if info == nil || info.ReturnType == nil {
		return cgValue{v: zeroI64, kind: kInt}
	}
	kind := kindOfType(info.ReturnType)
	// A returned heap pointer transfers ownership to the caller, except
	// for lifetime-dependent (borrowed) returns.
	owned := kind == kHeap && !info.BorrowedReturn
	return cgValue{v: out, kind: kind, tag: info.ReturnType, owned: owned}
}

// ctypeIR maps a C type to its IR representation.
func ctypeIR(t ast.CType) types.Type {
	switch tt := t.(type) {
	case ast.CScalar:
		switch tt.Kind {
		case ast.CVoid:
			return voidTy
		case ast.CChar, ast.CUChar, ast.CBool, ast.CI8, ast.CU8:
			return types.I8
		case ast.CShort, ast.CUShort, ast.CI16, ast.CU16:
			return types.I16
		case ast.CInt, ast.CUInt, ast.CI32, ast.CU32:
			return types.I32
		case ast.CFloat:
			return types.Float
		case ast.CDouble:
			return f64
		default:
			return i64
		}
	case ast.CPtr, ast.CArray, ast.CFuncPtr:
		return i8ptr
	case ast.CStruct:
		return i8ptr
	default:
		return i64
	}
}

// genExternCall resolves the foreign symbol and calls through a typed
// function-pointer trampoline.
func (g *Generator) genExternCall(ef externFn, args []ast.Expr) cgValue {
	libPtr, _ := g.strConst(ef.lib)
	symPtr, _ := g.strConst(ef.decl.Name)
	addr := g.call("bolide_ffi_get_symbol", libPtr, symPtr)

	paramTypes := make([]types.Type, len(ef.decl.Params))
	for i, p := range ef.decl.Params {
		paramTypes[i] = ctypeIR(p.Type)
	}
	ret := types.Type(voidTy)
	if ef.decl.ReturnType != nil {
		ret = ctypeIR(ef.decl.ReturnType)
	}
	fnType := types.NewFunc(ret, paramTypes...)
	fnType.Variadic = ef.decl.Variadic
	fptr := g.block.NewIntToPtr(addr, types.NewPointer(fnType))

	irArgs := make([]value.Value, 0, len(args))
	for i, arg := range args {
		av := g.genExpr(arg)
		var want types.Type = i64
		if i < len(paramTypes) {
			want = paramTypes[i]
		}
		irArgs = append(irArgs, g.coerce(av, want))
	}

	out := g.block.NewCall(fptr, irArgs...)
	if types.Equal(ret, voidTy) {
		return cgValue{v: zeroI64, kind: kInt}
	}
	result := value.Value(out)
	switch {
	case types.Equal(ret, f64):
		return cgValue{v: result, kind: kFloat, tag: ast.TypeFloat}
	case types.Equal(ret, i64):
		return cgValue{v: result, kind: kInt, tag: ast.TypeInt}
	case types.IsPointer(ret):
		return cgValue{v: g.block.NewPtrToInt(result, i64), kind: kRaw, tag: ast.TypePtr}
	default:
		return cgValue{v: g.block.NewSExt(result, i64), kind: kInt, tag: ast.TypeInt}
	}
}

// coerce adapts a lowered word to the exact IR type a foreign call wants.
func (g *Generator) coerce(v cgValue, want types.Type) value.Value {
	switch {
	case types.Equal(want, i64):
		return v.v
	case types.Equal(want, f64):
		return g.toFloat(v)
	case types.Equal(want, types.Float):
		return g.block.NewFPTrunc(g.toFloat(v), types.Float)
	case types.IsPointer(want):
		return g.block.NewIntToPtr(v.v, want)
	case types.IsInt(want):
		return g.block.NewTrunc(v.v, want)
	default:
		return v.v
	}
}

// genSpawn packs the arguments into an environment block, emits a
// per-site wrapper that unpacks them and calls the target, and enqueues
// the wrapper on the current pool.
func (g *Generator) genSpawn(e ast.Spawn) cgValue {
	fn, ok := g.funcs[e.Func]
	if !ok {
		g.fail(errors.Errorf("codegen: spawn of unknown function %s", e.Func))
		return cgValue{v: zeroI64, kind: kRaw}
	}
	var info *analysis.FuncInfo
	if g.registry != nil {
		info = g.registry.Lookup(e.Func)
	}
	if info != nil {
		for _, p := range info.Params {
			if p.Mode == ast.ModeRef {
				g.fail(errors.Errorf("codegen: spawn cannot pass ref parameter %s of %s", p.Name, e.Func))
				return cgValue{v: zeroI64, kind: kRaw}
			}
		}
	}

	size := int64(len(e.Args)) * 8
	env := g.call("bolide_alloc", constant.NewInt(types.I64, size))
	for i, arg := range e.Args {
		av := g.genExpr(arg)
		// The task owns its copy of every heap argument for the duration
		// of the run; the wrapper releases nothing (owned transfer) and
		// borrowed values are retained here on the task's behalf.
		if av.kind == kHeap && !av.owned {
			g.call("bolide_slot_retain", av.v)
		}
		g.call("bolide_block_store_i64", env, constant.NewInt(types.I64, int64(i)*8), av.v)
	}

	wrapper := g.emitSpawnWrapper(fn, len(e.Args), size)
	fut := g.call("bolide_spawn", g.block.NewPtrToInt(wrapper, i64), env)
	if g.inAwaitScope {
		g.scopeFutures = append(g.scopeFutures, fut)
	}
	return cgValue{v: fut, kind: kRaw, tag: ast.TypeFuture}
}

// emitSpawnWrapper builds func(env) -> result: unpack arguments, call
// the target, free the environment block.
func (g *Generator) emitSpawnWrapper(target *ir.Func, nArgs int, size int64) *ir.Func {
	savedFn, savedBlock := g.fn, g.block

	wrapper := g.mod.NewFunc(g.uniq(target.Name()+".spawn"), i64, ir.NewParam("env", i64))
	g.fn = wrapper
	g.block = wrapper.NewBlock("entry")

	env := wrapper.Params[0]
	args := make([]value.Value, nArgs)
	for i := 0; i < nArgs; i++ {
		args[i] = g.call("bolide_block_load_i64", env, constant.NewInt(types.I64, int64(i)*8))
	}
	result := g.block.NewCall(target, args...)
	g.call("bolide_free", env, constant.NewInt(types.I64, size))
	if types.Equal(target.Sig.RetType, voidTy) {
		g.block.NewRet(zeroI64)
	} else {
		g.block.NewRet(result)
	}

	g.fn, g.block = savedFn, savedBlock
	return wrapper
}
