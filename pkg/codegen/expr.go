package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"bolide_go/pkg/analysis"
	"bolide_go/pkg/ast"
)

// externFn is a foreign function declared by an extern block.
type externFn struct {
	lib  string
	decl ast.ExternFunc
}

func (g *Generator) genExpr(expr ast.Expr) cgValue {
	switch e := expr.(type) {
	case ast.IntLit:
		return cgValue{v: constant.NewInt(types.I64, e.Value), kind: kInt, tag: ast.TypeInt}
	case ast.FloatLit:
		return cgValue{v: constant.NewFloat(types.Double, e.Value), kind: kFloat, tag: ast.TypeFloat}
	case ast.BoolLit:
		var bits int64
		if e.Value {
			bits = 1
		}
		return cgValue{v: constant.NewInt(types.I64, bits), kind: kBool, tag: ast.TypeBool}
	case ast.StrLit:
		ptr, n := g.strConst(e.Value)
		return cgValue{v: g.call("bolide_string_new", ptr, n), kind: kHeap, tag: ast.TypeStr, owned: true}
	case ast.BigIntLit:
		ptr, n := g.strConst(e.Raw)
		return cgValue{v: g.call("bolide_bigint_from_str", ptr, n), kind: kHeap, tag: ast.TypeBigInt, owned: true}
	case ast.DecimalLit:
		ptr, n := g.strConst(e.Raw)
		return cgValue{v: g.call("bolide_decimal_from_str", ptr, n), kind: kHeap, tag: ast.TypeDecimal, owned: true}
	case ast.NoneLit:
		return cgValue{v: zeroI64, kind: kRaw}
	case ast.Ident:
		return g.genIdent(e)
	case ast.BinOp:
		return g.genBinOp(e)
	case ast.UnaryOp:
		return g.genUnaryOp(e)
	case ast.Call:
		return g.genCall(e)
	case ast.Index:
		return g.genIndex(e)
	case ast.Member:
		return g.genMember(e)
	case ast.ListLit:
		return g.genListLit(e)
	case ast.TupleLit:
		return g.genTupleLit(e)
	case ast.Spawn:
		return g.genSpawn(e)
	case ast.Recv:
		return g.genRecv(e)
	case ast.Await:
		f := g.genExpr(e.Operand)
		return cgValue{v: g.call("bolide_future_await", f.v), kind: kInt}
	case ast.AwaitAll:
		return g.genAwaitAll(e)
	default:
		g.fail(errors.Errorf("codegen: unsupported expression %T", expr))
		return cgValue{v: zeroI64, kind: kInt}
	}
}

func (g *Generator) genIdent(e ast.Ident) cgValue {
	v := g.lookupVar(e.Name)
	if v == nil {
		g.fail(errors.Errorf("codegen: unknown variable %s", e.Name))
		return cgValue{v: zeroI64, kind: kInt}
	}
	ty := types.Type(i64)
	if v.kind == kFloat {
		ty = f64
	}
	return cgValue{v: g.block.NewLoad(ty, v.ptr), kind: v.kind, tag: v.tag}
}

// toFloat coerces a lowered value to double.
func (g *Generator) toFloat(v cgValue) value.Value {
	if v.kind == kFloat {
		return v.v
	}
	return g.block.NewSIToFP(v.v, f64)
}

var bigIntOps = map[ast.BinOpKind]string{
	ast.OpAdd: "bolide_bigint_add", ast.OpSub: "bolide_bigint_sub",
	ast.OpMul: "bolide_bigint_mul", ast.OpDiv: "bolide_bigint_div",
	ast.OpMod: "bolide_bigint_rem",
	ast.OpEq:  "bolide_bigint_eq", ast.OpNe: "bolide_bigint_ne",
	ast.OpLt: "bolide_bigint_lt", ast.OpLe: "bolide_bigint_le",
	ast.OpGt: "bolide_bigint_gt", ast.OpGe: "bolide_bigint_ge",
}

var decimalOps = map[ast.BinOpKind]string{
	ast.OpAdd: "bolide_decimal_add", ast.OpSub: "bolide_decimal_sub",
	ast.OpMul: "bolide_decimal_mul", ast.OpDiv: "bolide_decimal_div",
	ast.OpMod: "bolide_decimal_rem",
	ast.OpEq:  "bolide_decimal_eq", ast.OpNe: "bolide_decimal_ne",
	ast.OpLt: "bolide_decimal_lt", ast.OpLe: "bolide_decimal_le",
	ast.OpGt: "bolide_decimal_gt", ast.OpGe: "bolide_decimal_ge",
}

func isCompare(op ast.BinOpKind) bool {
	switch op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return true
	}
	return false
}

func scalarTagIs(t ast.Type, kind ast.ScalarKind) bool {
	st, ok := t.(ast.ScalarType)
	return ok && st.Kind == kind
}

func (g *Generator) genBinOp(e ast.BinOp) cgValue {
	left := g.genExpr(e.Left)
	right := g.genExpr(e.Right)

	release := func(v cgValue) {
		if v.owned && v.kind == kHeap {
			g.call("bolide_slot_release", v.v)
		}
	}

	// Heap arithmetic dispatches to the runtime by operand type.
	if scalarTagIs(left.tag, ast.KindBigInt) || scalarTagIs(right.tag, ast.KindBigInt) {
		name, ok := bigIntOps[e.Op]
		if !ok {
			g.fail(errors.Errorf("codegen: operator %s unsupported on bigint", e.Op))
			return cgValue{v: zeroI64, kind: kInt}
		}
		out := g.call(name, left.v, right.v)
		release(left)
		release(right)
		if isCompare(e.Op) {
			return cgValue{v: out, kind: kBool, tag: ast.TypeBool}
		}
		return cgValue{v: out, kind: kHeap, tag: ast.TypeBigInt, owned: true}
	}
	if scalarTagIs(left.tag, ast.KindDecimal) || scalarTagIs(right.tag, ast.KindDecimal) {
		name, ok := decimalOps[e.Op]
		if !ok {
			g.fail(errors.Errorf("codegen: operator %s unsupported on decimal", e.Op))
			return cgValue{v: zeroI64, kind: kInt}
		}
		out := g.call(name, left.v, right.v)
		release(left)
		release(right)
		if isCompare(e.Op) {
			return cgValue{v: out, kind: kBool, tag: ast.TypeBool}
		}
		return cgValue{v: out, kind: kHeap, tag: ast.TypeDecimal, owned: true}
	}
	if scalarTagIs(left.tag, ast.KindStr) && e.Op == ast.OpAdd {
		out := g.call("bolide_string_concat", left.v, right.v)
		release(left)
		release(right)
		return cgValue{v: out, kind: kHeap, tag: ast.TypeStr, owned: true}
	}
	if scalarTagIs(left.tag, ast.KindStr) && (e.Op == ast.OpEq || e.Op == ast.OpNe) {
		eq := g.call("bolide_string_eq", left.v, right.v)
		release(left)
		release(right)
		out := eq
		if e.Op == ast.OpNe {
			out = g.block.NewXor(eq, constant.NewInt(types.I64, 1))
		}
		return cgValue{v: out, kind: kBool, tag: ast.TypeBool}
	}

	if left.kind == kFloat || right.kind == kFloat {
		lf, rf := g.toFloat(left), g.toFloat(right)
		switch e.Op {
		case ast.OpAdd:
			return cgValue{v: g.block.NewFAdd(lf, rf), kind: kFloat, tag: ast.TypeFloat}
		case ast.OpSub:
			return cgValue{v: g.block.NewFSub(lf, rf), kind: kFloat, tag: ast.TypeFloat}
		case ast.OpMul:
			return cgValue{v: g.block.NewFMul(lf, rf), kind: kFloat, tag: ast.TypeFloat}
		case ast.OpDiv:
			return cgValue{v: g.block.NewFDiv(lf, rf), kind: kFloat, tag: ast.TypeFloat}
		default:
			var pred enum.FPred
			switch e.Op {
			case ast.OpEq:
				pred = enum.FPredOEQ
			case ast.OpNe:
				pred = enum.FPredONE
			case ast.OpLt:
				pred = enum.FPredOLT
			case ast.OpLe:
				pred = enum.FPredOLE
			case ast.OpGt:
				pred = enum.FPredOGT
			case ast.OpGe:
				pred = enum.FPredOGE
			default:
				g.fail(errors.Errorf("codegen: operator %s unsupported on float", e.Op))
				return cgValue{v: zeroI64, kind: kInt}
			}
			cmp := g.block.NewFCmp(pred, lf, rf)
			return cgValue{v: g.block.NewZExt(cmp, i64), kind: kBool, tag: ast.TypeBool}
		}
	}

	switch e.Op {
	case ast.OpAdd:
		return cgValue{v: g.block.NewAdd(left.v, right.v), kind: kInt, tag: ast.TypeInt}
	case ast.OpSub:
		return cgValue{v: g.block.NewSub(left.v, right.v), kind: kInt, tag: ast.TypeInt}
	case ast.OpMul:
		return cgValue{v: g.block.NewMul(left.v, right.v), kind: kInt, tag: ast.TypeInt}
	case ast.OpDiv:
		return cgValue{v: g.block.NewSDiv(left.v, right.v), kind: kInt, tag: ast.TypeInt}
	case ast.OpMod:
		return cgValue{v: g.block.NewSRem(left.v, right.v), kind: kInt, tag: ast.TypeInt}
	case ast.OpAnd, ast.OpOr:
		lb := g.block.NewICmp(enum.IPredNE, left.v, zeroI64)
		rb := g.block.NewICmp(enum.IPredNE, right.v, zeroI64)
		var both value.Value
		if e.Op == ast.OpAnd {
			both = g.block.NewAnd(lb, rb)
		} else {
			both = g.block.NewOr(lb, rb)
		}
		return cgValue{v: g.block.NewZExt(both, i64), kind: kBool, tag: ast.TypeBool}
	default:
		var pred enum.IPred
		switch e.Op {
		case ast.OpEq:
			pred = enum.IPredEQ
		case ast.OpNe:
			pred = enum.IPredNE
		case ast.OpLt:
			pred = enum.IPredSLT
		case ast.OpLe:
			pred = enum.IPredSLE
		case ast.OpGt:
			pred = enum.IPredSGT
		case ast.OpGe:
			pred = enum.IPredSGE
		default:
			g.fail(errors.Errorf("codegen: unsupported operator %s", e.Op))
			return cgValue{v: zeroI64, kind: kInt}
		}
		cmp := g.block.NewICmp(pred, left.v, right.v)
		return cgValue{v: g.block.NewZExt(cmp, i64), kind: kBool, tag: ast.TypeBool}
	}
}

func (g *Generator) genUnaryOp(e ast.UnaryOp) cgValue {
	operand := g.genExpr(e.Operand)
	switch e.Op {
	case ast.OpNeg:
		if scalarTagIs(operand.tag, ast.KindBigInt) {
			out := g.call("bolide_bigint_neg", operand.v)
			if operand.owned {
				g.call("bolide_slot_release", operand.v)
			}
			return cgValue{v: out, kind: kHeap, tag: ast.TypeBigInt, owned: true}
		}
		if scalarTagIs(operand.tag, ast.KindDecimal) {
			out := g.call("bolide_decimal_neg", operand.v)
			if operand.owned {
				g.call("bolide_slot_release", operand.v)
			}
			return cgValue{v: out, kind: kHeap, tag: ast.TypeDecimal, owned: true}
		}
		if operand.kind == kFloat {
			return cgValue{v: g.block.NewFNeg(operand.v), kind: kFloat, tag: ast.TypeFloat}
		}
		return cgValue{v: g.block.NewSub(zeroI64, operand.v), kind: kInt, tag: ast.TypeInt}
	case ast.OpNot:
		cmp := g.block.NewICmp(enum.IPredEQ, operand.v, zeroI64)
		return cgValue{v: g.block.NewZExt(cmp, i64), kind: kBool, tag: ast.TypeBool}
	default:
		g.fail(errors.Errorf("codegen: unsupported unary operator %s", e.Op))
		return cgValue{v: zeroI64, kind: kInt}
	}
}

func (g *Generator) genIndex(e ast.Index) cgValue {
	base := g.genExpr(e.Base)
	idx := g.genExpr(e.Index)

	name := "bolide_list_get"
	var elem ast.Type
	switch tt := base.tag.(type) {
	case ast.TupleType:
		name = "bolide_tuple_get"
	case ast.ListType:
		elem = tt.Elem
	}
	out := g.call(name, base.v, idx.v)
	if base.owned && base.kind == kHeap {
		g.call("bolide_slot_release", base.v)
	}
	return cgValue{v: out, kind: kindOfType(elem), tag: elem}
}

func (g *Generator) genMember(e ast.Member) cgValue {
	base := g.genExpr(e.Base)
	layout := g.classOf(base.tag)
	if layout == nil {
		g.fail(errors.Errorf("codegen: member access on unknown class: %s", e))
		return cgValue{v: zeroI64, kind: kInt}
	}
	field := layout.Field(e.Name)
	if field == nil {
		g.fail(errors.Errorf("codegen: unknown field %s on class %s", e.Name, layout.Name))
		return cgValue{v: zeroI64, kind: kInt}
	}
	out := g.call("bolide_object_field_get", base.v, constant.NewInt(types.I64, field.Index))
	return cgValue{v: out, kind: kindOfType(field.Type), tag: field.Type}
}

func (g *Generator) classOf(t ast.Type) *analysis.ClassLayout {
	ct, ok := t.(ast.CustomType)
	if !ok || g.registry == nil {
		return nil
	}
	return g.registry.Class(ct.Name)
}

func (g *Generator) genListLit(e ast.ListLit) cgValue {
	refs := false
	var elemTag ast.Type
	if len(e.Elems) > 0 {
		first := g.peekKind(e.Elems[0])
		refs = first == kHeap
	}
	ctor := "bolide_list_new"
	if refs {
		ctor = "bolide_list_new_refs"
	}
	list := g.call(ctor, constant.NewInt(types.I64, int64(len(e.Elems))))
	for _, el := range e.Elems {
		v := g.genExpr(el)
		if elemTag == nil {
			elemTag = v.tag
		}
		g.call("bolide_list_append", list, v.v)
		if v.owned && v.kind == kHeap {
			// append retained; drop the temporary's reference
			g.call("bolide_slot_release", v.v)
		}
	}
	tag := ast.Type(ast.ListType{Elem: elemTag})
	if elemTag == nil {
		tag = ast.ListType{Elem: ast.TypeInt}
	}
	return cgValue{v: list, kind: kHeap, tag: tag, owned: true}
}

// peekKind guesses the kind of an expression without emitting code; only
// literal shapes need distinguishing for list construction.
func (g *Generator) peekKind(e ast.Expr) valueKind {
	switch ee := e.(type) {
	case ast.IntLit, ast.BoolLit:
		return kInt
	case ast.FloatLit:
		return kFloat
	case ast.StrLit, ast.BigIntLit, ast.DecimalLit, ast.ListLit, ast.TupleLit:
		return kHeap
	case ast.Ident:
		if v := g.lookupVar(ee.Name); v != nil {
			return v.kind
		}
	}
	return kInt
}

func (g *Generator) genTupleLit(e ast.TupleLit) cgValue {
	tup := g.call("bolide_tuple_new", constant.NewInt(types.I64, int64(len(e.Elems))))
	var elemTags []ast.Type
	for i, el := range e.Elems {
		v := g.genExpr(el)
		elemTags = append(elemTags, v.tag)
		// Tuples are written once during construction; an owned element's
		// reference moves into the tuple slot.
		g.call("bolide_tuple_set", tup, constant.NewInt(types.I64, int64(i)), v.v)
	}
	return cgValue{v: tup, kind: kHeap, tag: ast.TupleType{Elems: elemTags}, owned: true}
}

func (g *Generator) genRecv(e ast.Recv) cgValue {
	ch := g.lookupVar(e.Channel)
	if ch == nil {
		g.fail(errors.Errorf("codegen: recv from unknown channel %s", e.Channel))
		return cgValue{v: zeroI64, kind: kInt}
	}
	out := g.call("bolide_channel_recv", g.block.NewLoad(i64, ch.ptr))
	var elemTag ast.Type
	if ct, ok := ch.tag.(ast.ChannelType); ok {
		elemTag = ct.Elem
	}
	return cgValue{v: out, kind: kindOfType(elemTag), tag: elemTag}
}

func (g *Generator) genAwaitAll(e ast.AwaitAll) cgValue {
	// Await in order, then pack the results into a tuple so result order
	// matches operand order.
	results := make([]value.Value, len(e.Operands))
	for i, op := range e.Operands {
		f := g.genExpr(op)
		results[i] = g.call("bolide_future_await", f.v)
	}
	tup := g.call("bolide_tuple_new", constant.NewInt(types.I64, int64(len(results))))
	for i, r := range results {
		g.call("bolide_tuple_set", tup, constant.NewInt(types.I64, int64(i)), r)
	}
	return cgValue{v: tup, kind: kHeap, tag: ast.TupleType{}, owned: true}
}
