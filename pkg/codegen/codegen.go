// Package codegen lowers Bolide programs to LLVM IR. Every surface value
// is a 64-bit machine word: raw bits for int/float/bool, a runtime handle
// for heap objects. All heap manipulation goes through calls to the
// stable runtime ABI, so the emitted module's only external references
// are the symbol names the compiler facade resolves at link time.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"bolide_go/pkg/analysis"
	"bolide_go/pkg/ast"
)

var (
	i64     = types.I64
	i64ptr  = types.NewPointer(types.I64)
	i8ptr   = types.NewPointer(types.I8)
	f64     = types.Double
	voidTy  = types.Void
	zeroI64 = constant.NewInt(types.I64, 0)
)

// externSigs gives the C-level signature of every ABI symbol the
// generator may reference. Handles and scalars travel as i64.
var externSigs = map[string]struct {
	ret    types.Type
	params []types.Type
}{
	"bolide_alloc":           {i64, []types.Type{i64}},
	"bolide_free":            {voidTy, []types.Type{i64, i64}},
	"bolide_slot_retain":     {voidTy, []types.Type{i64}},
	"bolide_slot_release":    {voidTy, []types.Type{i64}},
	"bolide_block_store_i64": {voidTy, []types.Type{i64, i64, i64}},
	"bolide_block_load_i64":  {i64, []types.Type{i64, i64}},

	"bolide_bigint_from_i64": {i64, []types.Type{i64}},
	"bolide_bigint_from_str": {i64, []types.Type{i8ptr, i64}},
	"bolide_bigint_add":      {i64, []types.Type{i64, i64}},
	"bolide_bigint_sub":      {i64, []types.Type{i64, i64}},
	"bolide_bigint_mul":      {i64, []types.Type{i64, i64}},
	"bolide_bigint_div":      {i64, []types.Type{i64, i64}},
	"bolide_bigint_rem":      {i64, []types.Type{i64, i64}},
	"bolide_bigint_neg":      {i64, []types.Type{i64}},
	"bolide_bigint_eq":       {i64, []types.Type{i64, i64}},
	"bolide_bigint_ne":       {i64, []types.Type{i64, i64}},
	"bolide_bigint_lt":       {i64, []types.Type{i64, i64}},
	"bolide_bigint_le":       {i64, []types.Type{i64, i64}},
	"bolide_bigint_gt":       {i64, []types.Type{i64, i64}},
	"bolide_bigint_ge":       {i64, []types.Type{i64, i64}},

	"bolide_decimal_from_str": {i64, []types.Type{i8ptr, i64}},
	"bolide_decimal_add":      {i64, []types.Type{i64, i64}},
	"bolide_decimal_sub":      {i64, []types.Type{i64, i64}},
	"bolide_decimal_mul":      {i64, []types.Type{i64, i64}},
	"bolide_decimal_div":      {i64, []types.Type{i64, i64}},
	"bolide_decimal_rem":      {i64, []types.Type{i64, i64}},
	"bolide_decimal_neg":      {i64, []types.Type{i64}},
	"bolide_decimal_eq":       {i64, []types.Type{i64, i64}},
	"bolide_decimal_ne":       {i64, []types.Type{i64, i64}},
	"bolide_decimal_lt":       {i64, []types.Type{i64, i64}},
	"bolide_decimal_le":       {i64, []types.Type{i64, i64}},
	"bolide_decimal_gt":       {i64, []types.Type{i64, i64}},
	"bolide_decimal_ge":       {i64, []types.Type{i64, i64}},

	"bolide_string_new":    {i64, []types.Type{i8ptr, i64}},
	"bolide_string_concat": {i64, []types.Type{i64, i64}},
	"bolide_string_eq":     {i64, []types.Type{i64, i64}},
	"bolide_string_len":    {i64, []types.Type{i64}},

	"bolide_list_new":      {i64, []types.Type{i64}},
	"bolide_list_new_refs": {i64, []types.Type{i64}},
	"bolide_list_get":      {i64, []types.Type{i64, i64}},
	"bolide_list_set":      {voidTy, []types.Type{i64, i64, i64}},
	"bolide_list_append":   {voidTy, []types.Type{i64, i64}},
	"bolide_list_len":      {i64, []types.Type{i64}},

	"bolide_tuple_new": {i64, []types.Type{i64}},
	"bolide_tuple_get": {i64, []types.Type{i64, i64}},
	"bolide_tuple_set": {voidTy, []types.Type{i64, i64, i64}},
	"bolide_tuple_len": {i64, []types.Type{i64}},

	"bolide_object_alloc":         {i64, []types.Type{i64, i64}},
	"bolide_object_field_get":     {i64, []types.Type{i64, i64}},
	"bolide_object_field_set":     {voidTy, []types.Type{i64, i64, i64}},
	"bolide_object_field_set_ref": {voidTy, []types.Type{i64, i64, i64}},

	"bolide_print_int":     {voidTy, []types.Type{i64}},
	"bolide_print_float":   {voidTy, []types.Type{f64}},
	"bolide_print_bool":    {voidTy, []types.Type{i64}},
	"bolide_print_bigint":  {voidTy, []types.Type{i64}},
	"bolide_print_decimal": {voidTy, []types.Type{i64}},
	"bolide_print_string":  {voidTy, []types.Type{i64}},
	"bolide_print_dynamic": {voidTy, []types.Type{i64}},
	"bolide_print_tuple":   {voidTy, []types.Type{i64}},
	"bolide_println":       {voidTy, nil},

	"bolide_pool_create":  {voidTy, []types.Type{i64}},
	"bolide_pool_destroy": {voidTy, nil},
	"bolide_spawn":        {i64, []types.Type{i64, i64}},

	"bolide_future_await":     {i64, []types.Type{i64}},
	"bolide_future_completed": {i64, []types.Type{i64}},

	"bolide_channel_create":          {i64, nil},
	"bolide_channel_create_buffered": {i64, []types.Type{i64}},
	"bolide_channel_send":            {i64, []types.Type{i64, i64}},
	"bolide_channel_recv":            {i64, []types.Type{i64}},
	"bolide_channel_try_recv":        {i64, []types.Type{i64, i64ptr}},
	"bolide_channel_close":           {voidTy, []types.Type{i64}},
	"bolide_channel_is_closed":       {i64, []types.Type{i64}},
	"bolide_channel_free":            {voidTy, []types.Type{i64}},
	"bolide_channel_select":          {i64, []types.Type{i64ptr, i64, i64, i64ptr}},

	"bolide_ffi_load_library": {i64, []types.Type{i8ptr}},
	"bolide_ffi_get_symbol":   {i64, []types.Type{i8ptr, i8ptr}},
	"bolide_ffi_cleanup":      {voidTy, nil},
}

// valueKind is the generator's view of what a 64-bit word means.
type valueKind int

const (
	kInt valueKind = iota
	kFloat
	kBool
	kHeap // handle subject to refcounting
	kRaw  // handle exempt from refcounting (channels, futures)
)

// cgValue is a lowered expression: the machine value plus its kind.
// Float values stay double-typed until stored.
type cgValue struct {
	v    value.Value
	kind valueKind
	tag  ast.Type // best-effort surface type, may be nil
	// owned marks a freshly constructed heap value whose single strong
	// reference belongs to the expression; variable reads are borrows.
	owned bool
}

type varInfo struct {
	ptr   value.Value
	kind  valueKind
	tag   ast.Type
	moved bool // ownership transferred out; skip the exit release
}

type scope struct {
	vars  map[string]*varInfo
	order []string
}

// Generator lowers one Program into an LLVM module.
type Generator struct {
	mod      *ir.Module
	registry *analysis.Registry

	externs map[string]*ir.Func
	funcs   map[string]*ir.Func
	// externFns are foreign functions declared by extern blocks, called
	// through get_symbol trampolines.
	externFns map[string]externFn

	fn     *ir.Func
	block  *ir.Block
	scopes []*scope
	// borrowedReturn suppresses the ownership transfer at return sites
	// of functions with lifetime dependencies.
	borrowedReturn bool
	// scopeFutures collects futures spawned inside the innermost await
	// scope so scope exit can await them.
	scopeFutures []value.Value
	inAwaitScope bool

	nameSeq int
	err     error
}

// New creates a Generator over the analysis results.
func New(reg *analysis.Registry) *Generator {
	return &Generator{
		mod:       ir.NewModule(),
		registry:  reg,
		externs:   make(map[string]*ir.Func),
		funcs:     make(map[string]*ir.Func),
		externFns: make(map[string]externFn),
	}
}

// Module returns the module built so far.
func (g *Generator) Module() *ir.Module { return g.mod }

// ExternNames returns the ABI symbols the generated module references.
func (g *Generator) ExternNames() []string {
	names := make([]string, 0, len(g.externs))
	for name := range g.externs {
		names = append(names, name)
	}
	return names
}

// extern returns (declaring on first use) the ir.Func for an ABI symbol.
func (g *Generator) extern(name string) *ir.Func {
	if f, ok := g.externs[name]; ok {
		return f
	}
	sig, ok := externSigs[name]
	if !ok {
		g.fail(errors.Errorf("codegen: unknown runtime symbol %s", name))
		sig.ret = voidTy
	}
	params := make([]*ir.Param, len(sig.params))
	for i, t := range sig.params {
		params[i] = ir.NewParam(fmt.Sprintf("a%d", i), t)
	}
	f := g.mod.NewFunc(name, sig.ret, params...)
	g.externs[name] = f
	return f
}

func (g *Generator) call(name string, args ...value.Value) value.Value {
	return g.block.NewCall(g.extern(name), args...)
}

func (g *Generator) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

func (g *Generator) uniq(prefix string) string {
	g.nameSeq++
	return fmt.Sprintf("%s.%d", prefix, g.nameSeq)
}

// strConst materialises a string literal as a NUL-terminated global and
// returns its i8* pointer and byte length.
func (g *Generator) strConst(s string) (value.Value, value.Value) {
	data := constant.NewCharArrayFromString(s + "\x00")
	gv := g.mod.NewGlobalDef(g.uniq("str"), data)
	gv.Immutable = true
	ptr := g.block.NewGetElementPtr(data.Typ, gv, zeroI64, zeroI64)
	return ptr, constant.NewInt(types.I64, int64(len(s)))
}

func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, &scope{vars: make(map[string]*varInfo)})
}

// popScope releases the scope's live heap locals and discards it. When
// emit is false (the current block already terminated) only the
// bookkeeping is dropped.
func (g *Generator) popScope(emit bool) {
	sc := g.scopes[len(g.scopes)-1]
	g.scopes = g.scopes[:len(g.scopes)-1]
	if !emit {
		return
	}
	for i := len(sc.order) - 1; i >= 0; i-- {
		v := sc.vars[sc.order[i]]
		if v.kind == kHeap && !v.moved {
			g.call("bolide_slot_release", g.block.NewLoad(i64, v.ptr))
		}
	}
}

func (g *Generator) declareVar(name string, kind valueKind, tag ast.Type) *varInfo {
	ty := types.Type(i64)
	if kind == kFloat {
		ty = f64
	}
	ptr := g.block.NewAlloca(ty)
	v := &varInfo{ptr: ptr, kind: kind, tag: tag}
	sc := g.scopes[len(g.scopes)-1]
	sc.vars[name] = v
	sc.order = append(sc.order, name)
	return v
}

func (g *Generator) lookupVar(name string) *varInfo {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if v, ok := g.scopes[i].vars[name]; ok {
			return v
		}
	}
	return nil
}

// releaseAllScopes emits releases for every live heap local, innermost
// first. Used at return sites, which exit every open scope at once.
func (g *Generator) releaseAllScopes() {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		sc := g.scopes[i]
		for j := len(sc.order) - 1; j >= 0; j-- {
			v := sc.vars[sc.order[j]]
			if v.kind == kHeap && !v.moved {
				g.call("bolide_slot_release", g.block.NewLoad(i64, v.ptr))
			}
		}
	}
}

// Generate lowers a whole program: function and method definitions, then
// the remaining top-level statements into main.
func (g *Generator) Generate(prog *ast.Program) (*ir.Module, error) {
	var top []ast.Statement
	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case ast.FuncDef:
			g.declareFunc(s)
		case ast.ClassDef:
			for _, m := range s.Methods {
				g.declareMethod(s.Name, m)
			}
		default:
			top = append(top, stmt)
		}
	}
	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case ast.FuncDef:
			g.genFunc(s, g.funcs[s.Name])
		case ast.ClassDef:
			for _, m := range s.Methods {
				g.genMethod(s, m)
			}
		}
	}

	mainFn := g.mod.NewFunc("main", i64)
	g.fn = mainFn
	g.block = mainFn.NewBlock("entry")
	g.pushScope()
	g.genStatements(top)
	live := g.block.Term == nil
	g.popScope(live)
	if live {
		g.block.NewRet(zeroI64)
	}

	if g.err != nil {
		return nil, g.err
	}
	return g.mod, nil
}

func paramIRTypes(params []ast.Param) []*ir.Param {
	out := make([]*ir.Param, len(params))
	for i, p := range params {
		ty := types.Type(i64)
		if p.Mode == ast.ModeRef {
			ty = i64ptr
		} else if isFloatType(p.Type) {
			ty = f64
		}
		out[i] = ir.NewParam(p.Name, ty)
	}
	return out
}

func retIRType(t ast.Type) types.Type {
	switch {
	case t == nil:
		return voidTy
	case isFloatType(t):
		return f64
	default:
		return i64
	}
}

func (g *Generator) declareFunc(def ast.FuncDef) {
	g.funcs[def.Name] = g.mod.NewFunc(def.Name, retIRType(def.ReturnType), paramIRTypes(def.Params)...)
}

func (g *Generator) declareMethod(class string, def ast.FuncDef) {
	mangled := class + "." + def.Name
	withSelf := append([]ast.Param{{Name: "self", Type: ast.CustomType{Name: class}}}, def.Params...)
	g.funcs[mangled] = g.mod.NewFunc(mangled, retIRType(def.ReturnType), paramIRTypes(withSelf)...)
}

func (g *Generator) genFunc(def ast.FuncDef, fn *ir.Func) {
	g.fn = fn
	g.block = fn.NewBlock("entry")
	g.borrowedReturn = len(def.LifetimeDeps) > 0
	g.pushScope()

	for i, p := range def.Params {
		kind := kindOfType(p.Type)
		if p.Mode == ast.ModeRef {
			// The parameter is the slot address itself; bind it directly
			// and leave the caller responsible for the slot's reference.
			sc := g.scopes[len(g.scopes)-1]
			sc.vars[p.Name] = &varInfo{ptr: fn.Params[i], kind: kind, tag: p.Type, moved: true}
			sc.order = append(sc.order, p.Name)
			continue
		}
		v := g.declareVar(p.Name, kind, p.Type)
		g.block.NewStore(fn.Params[i], v.ptr)
		if p.Mode == ast.ModeBorrow {
			// Borrowed: the callee must not release.
			v.moved = true
		}
		// Owned parameters keep moved=false: the callee holds exactly
		// one reference and releases it at exit unless it returns it.
	}

	g.genStatements(def.Body)
	live := g.block.Term == nil
	g.popScope(live)
	if live {
		switch {
		case types.Equal(fn.Sig.RetType, voidTy):
			g.block.NewRet(nil)
		case types.Equal(fn.Sig.RetType, f64):
			g.block.NewRet(constant.NewFloat(types.Double, 0))
		default:
			g.block.NewRet(zeroI64)
		}
	}
	g.borrowedReturn = false
}

func (g *Generator) genMethod(class ast.ClassDef, def ast.FuncDef) {
	mangled := class.Name + "." + def.Name
	withSelf := def
	withSelf.Name = mangled
	withSelf.Params = append([]ast.Param{{Name: "self", Type: ast.CustomType{Name: class.Name}}}, def.Params...)
	g.genFunc(withSelf, g.funcs[mangled])
}

func isFloatType(t ast.Type) bool {
	st, ok := t.(ast.ScalarType)
	return ok && st.Kind == ast.KindFloat
}

func kindOfType(t ast.Type) valueKind {
	if t == nil {
		return kInt
	}
	switch tt := t.(type) {
	case ast.ScalarType:
		switch tt.Kind {
		case ast.KindFloat:
			return kFloat
		case ast.KindBool:
			return kBool
		case ast.KindInt:
			return kInt
		}
		if ast.IsHeapType(t) {
			return kHeap
		}
		return kRaw
	case ast.ChannelType, ast.WeakType, ast.UnownedType:
		return kRaw
	default:
		if ast.IsHeapType(t) {
			return kHeap
		}
		return kRaw
	}
}
