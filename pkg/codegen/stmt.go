package codegen

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"bolide_go/pkg/ast"
)

func (g *Generator) genStatements(stmts []ast.Statement) {
	for _, stmt := range stmts {
		if g.block.Term != nil {
			return // unreachable code after return
		}
		g.genStatement(stmt)
	}
}

func (g *Generator) genStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case ast.VarDecl:
		g.genVarDecl(s)
	case ast.Assign:
		g.genAssign(s)
	case ast.If:
		g.genIf(s)
	case ast.While:
		g.genWhile(s)
	case ast.For:
		g.genFor(s)
	case ast.Pool:
		g.genPool(s)
	case ast.Select:
		g.genSelect(s)
	case ast.AwaitScope:
		g.genAwaitScope(s)
	case ast.AsyncSelect:
		g.genAsyncSelect(s)
	case ast.Send:
		g.genSend(s)
	case ast.Return:
		g.genReturn(s)
	case ast.ExprStmt:
		v := g.genExpr(s.Expr)
		if v.owned && v.kind == kHeap {
			g.call("bolide_slot_release", v.v)
		}
	case ast.Import:
		// Module resolution is the driver's concern; nothing to emit.
	case ast.ExternBlock:
		g.genExternBlock(s)
	case ast.FuncDef, ast.ClassDef:
		// Lowered up front by Generate.
	default:
		g.fail(errors.Errorf("codegen: unsupported statement %T", stmt))
	}
}

func (g *Generator) genVarDecl(s ast.VarDecl) {
	var init cgValue
	if s.Value != nil {
		init = g.genExpr(s.Value)
	}

	kind := kindOfType(s.Type)
	if s.Type == nil && s.Value != nil {
		kind = init.kind
	}
	tag := s.Type
	if tag == nil {
		tag = init.tag
	}

	v := g.declareVar(s.Name, kind, tag)
	if s.Value == nil {
		if kind == kFloat {
			g.block.NewStore(constant.NewFloat(types.Double, 0), v.ptr)
		} else {
			g.block.NewStore(zeroI64, v.ptr)
		}
		return
	}
	if kind == kHeap && !init.owned {
		g.call("bolide_slot_retain", init.v)
	}
	g.block.NewStore(init.v, v.ptr)
}

func (g *Generator) genAssign(s ast.Assign) {
	val := g.genExpr(s.Value)

	switch target := s.Target.(type) {
	case ast.Ident:
		v := g.lookupVar(target.Name)
		if v == nil {
			g.fail(errors.Errorf("codegen: assignment to unknown variable %s", target.Name))
			return
		}
		if v.kind == kHeap {
			if !val.owned {
				g.call("bolide_slot_retain", val.v)
			}
			g.call("bolide_slot_release", g.block.NewLoad(i64, v.ptr))
		}
		g.block.NewStore(val.v, v.ptr)

	case ast.Member:
		base := g.genExpr(target.Base)
		layout := g.classOf(base.tag)
		if layout == nil {
			g.fail(errors.Errorf("codegen: member assignment on unknown class: %s", target))
			return
		}
		field := layout.Field(target.Name)
		if field == nil {
			g.fail(errors.Errorf("codegen: unknown field %s on class %s", target.Name, layout.Name))
			return
		}
		idx := constant.NewInt(types.I64, field.Index)
		if field.IsRef {
			// The runtime retains the new value; a fresh temporary's own
			// reference must then be dropped.
			g.call("bolide_object_field_set_ref", base.v, idx, val.v)
			if val.owned && val.kind == kHeap {
				g.call("bolide_slot_release", val.v)
			}
		} else {
			g.call("bolide_object_field_set", base.v, idx, val.v)
		}

	case ast.Index:
		base := g.genExpr(target.Base)
		idx := g.genExpr(target.Index)
		g.call("bolide_list_set", base.v, idx.v, val.v)
		if val.owned && val.kind == kHeap {
			// list_set retained; drop the temporary's reference.
			g.call("bolide_slot_release", val.v)
		}

	default:
		g.fail(errors.Errorf("codegen: unsupported assignment target %T", s.Target))
	}
}

// truth converts a lowered value to an i1.
func (g *Generator) truth(v cgValue) value.Value {
	if v.kind == kFloat {
		return g.block.NewFCmp(enum.FPredONE, v.v, constant.NewFloat(types.Double, 0))
	}
	return g.block.NewICmp(enum.IPredNE, v.v, zeroI64)
}

func (g *Generator) genIf(s ast.If) {
	exit := g.fn.NewBlock(g.uniq("if.end"))

	// The chain is the if arm followed by each elif arm.
	arms := append([]ast.ElifBranch{{Cond: s.Cond, Body: s.Then}}, s.Elif...)
	for _, arm := range arms {
		cond := g.truth(g.genExpr(arm.Cond))
		thenB := g.fn.NewBlock(g.uniq("if.then"))
		elseB := g.fn.NewBlock(g.uniq("if.else"))
		g.block.NewCondBr(cond, thenB, elseB)

		g.block = thenB
		g.pushScope()
		g.genStatements(arm.Body)
		live := g.block.Term == nil
		g.popScope(live)
		if live {
			g.block.NewBr(exit)
		}
		g.block = elseB
	}

	if s.Else != nil {
		g.pushScope()
		g.genStatements(s.Else)
		live := g.block.Term == nil
		g.popScope(live)
		if live {
			g.block.NewBr(exit)
		}
	} else {
		g.block.NewBr(exit)
	}
	g.block = exit
}

func (g *Generator) genWhile(s ast.While) {
	condB := g.fn.NewBlock(g.uniq("while.cond"))
	bodyB := g.fn.NewBlock(g.uniq("while.body"))
	exitB := g.fn.NewBlock(g.uniq("while.end"))

	g.block.NewBr(condB)
	g.block = condB
	cond := g.truth(g.genExpr(s.Cond))
	g.block.NewCondBr(cond, bodyB, exitB)

	g.block = bodyB
	g.pushScope()
	g.genStatements(s.Body)
	live := g.block.Term == nil
	g.popScope(live)
	if live {
		g.block.NewBr(condB)
	}
	g.block = exitB
}

// genFor lowers iteration over a list: an index loop against list_len
// and list_get.
func (g *Generator) genFor(s ast.For) {
	iter := g.genExpr(s.Iter)
	length := g.call("bolide_list_len", iter.v)
	idxPtr := g.block.NewAlloca(i64)
	g.block.NewStore(zeroI64, idxPtr)

	condB := g.fn.NewBlock(g.uniq("for.cond"))
	bodyB := g.fn.NewBlock(g.uniq("for.body"))
	exitB := g.fn.NewBlock(g.uniq("for.end"))

	g.block.NewBr(condB)
	g.block = condB
	idx := g.block.NewLoad(i64, idxPtr)
	g.block.NewCondBr(g.block.NewICmp(enum.IPredSLT, idx, length), bodyB, exitB)

	g.block = bodyB
	g.pushScope()
	elemKind := kInt
	var elemTag ast.Type
	if lt, ok := iter.tag.(ast.ListType); ok {
		elemKind = kindOfType(lt.Elem)
		elemTag = lt.Elem
	}
	v := g.declareVar(s.Var, elemKind, elemTag)
	elem := g.call("bolide_list_get", iter.v, g.block.NewLoad(i64, idxPtr))
	if elemKind == kHeap {
		// The loop variable owns a reference for the iteration; it is
		// released by the scope pop.
		g.call("bolide_slot_retain", elem)
	}
	g.block.NewStore(elem, v.ptr)
	g.genStatements(s.Body)
	live := g.block.Term == nil
	g.popScope(live)
	if live {
		next := g.block.NewAdd(g.block.NewLoad(i64, idxPtr), constant.NewInt(types.I64, 1))
		g.block.NewStore(next, idxPtr)
		g.block.NewBr(condB)
	}
	g.block = exitB

	if iter.owned && iter.kind == kHeap {
		g.call("bolide_slot_release", iter.v)
	}
}

func (g *Generator) genPool(s ast.Pool) {
	size := g.genExpr(s.Size)
	g.call("bolide_pool_create", size.v)
	g.pushScope()
	g.genStatements(s.Body)
	live := g.block.Term == nil
	g.popScope(live)
	if live {
		g.call("bolide_pool_destroy")
	}
}

func (g *Generator) genSend(s ast.Send) {
	ch := g.lookupVar(s.Channel)
	if ch == nil {
		g.fail(errors.Errorf("codegen: send on unknown channel %s", s.Channel))
		return
	}
	val := g.genExpr(s.Value)
	// The channel carries the sender's reference with the value; no
	// release is issued here for owned temporaries.
	g.call("bolide_channel_send", g.block.NewLoad(i64, ch.ptr), val.v)
}

func (g *Generator) genReturn(s ast.Return) {
	if s.Value == nil {
		g.releaseAllScopes()
		if types.Equal(g.fn.Sig.RetType, voidTy) {
			g.block.NewRet(nil)
		} else {
			g.block.NewRet(zeroI64)
		}
		return
	}

	val := g.genExpr(s.Value)

	// Ownership transfer at the return site: a returned heap local moves
	// to the caller, so its exit release is skipped rather than paired
	// with a retain. Functions with lifetime dependencies return borrows
	// and transfer nothing.
	if val.kind == kHeap && !g.borrowedReturn {
		if id, ok := s.Value.(ast.Ident); ok {
			if v := g.lookupVar(id.Name); v != nil && !v.moved {
				v.moved = true
			}
		} else if !val.owned {
			g.call("bolide_slot_retain", val.v)
		}
	}

	g.releaseAllScopes()
	if types.Equal(g.fn.Sig.RetType, voidTy) {
		g.block.NewRet(nil)
	} else {
		g.block.NewRet(val.v)
	}
}

func (g *Generator) genSelect(s ast.Select) {
	var recvs []ast.RecvBranch
	var timeout *ast.TimeoutBranch
	var dflt *ast.DefaultBranch
	for _, br := range s.Branches {
		switch b := br.(type) {
		case ast.RecvBranch:
			recvs = append(recvs, b)
		case ast.TimeoutBranch:
			b := b
			timeout = &b
		case ast.DefaultBranch:
			b := b
			dflt = &b
		}
	}

	n := int64(len(recvs))
	arrType := types.NewArray(uint64(n), types.I64)
	arr := g.block.NewAlloca(arrType)
	for i, br := range recvs {
		ch := g.lookupVar(br.Channel)
		if ch == nil {
			g.fail(errors.Errorf("codegen: select on unknown channel %s", br.Channel))
			return
		}
		slot := g.block.NewGetElementPtr(arrType, arr, zeroI64, constant.NewInt(types.I64, int64(i)))
		g.block.NewStore(g.block.NewLoad(i64, ch.ptr), slot)
	}
	base := g.block.NewGetElementPtr(arrType, arr, zeroI64, zeroI64)

	var timeoutVal value.Value = constant.NewInt(types.I64, -1)
	if dflt != nil {
		timeoutVal = constant.NewInt(types.I64, -2)
	} else if timeout != nil {
		timeoutVal = g.genExpr(timeout.Duration).v
	}

	out := g.block.NewAlloca(i64)
	g.block.NewStore(zeroI64, out)
	idx := g.call("bolide_channel_select", base, constant.NewInt(types.I64, n), timeoutVal, out)

	exit := g.fn.NewBlock(g.uniq("select.end"))
	for i, br := range recvs {
		match := g.block.NewICmp(enum.IPredEQ, idx, constant.NewInt(types.I64, int64(i)))
		bodyB := g.fn.NewBlock(g.uniq("select.recv"))
		nextB := g.fn.NewBlock(g.uniq("select.next"))
		g.block.NewCondBr(match, bodyB, nextB)

		g.block = bodyB
		g.pushScope()
		v := g.declareVar(br.Var, kInt, nil)
		g.block.NewStore(g.block.NewLoad(i64, out), v.ptr)
		g.genStatements(br.Body)
		live := g.block.Term == nil
		g.popScope(live)
		if live {
			g.block.NewBr(exit)
		}
		g.block = nextB
	}

	// Remaining outcomes: -2 runs the default body, -1 the timeout body.
	if dflt != nil {
		match := g.block.NewICmp(enum.IPredEQ, idx, constant.NewInt(types.I64, -2))
		bodyB := g.fn.NewBlock(g.uniq("select.default"))
		nextB := g.fn.NewBlock(g.uniq("select.next"))
		g.block.NewCondBr(match, bodyB, nextB)
		g.block = bodyB
		g.pushScope()
		g.genStatements(dflt.Body)
		live := g.block.Term == nil
		g.popScope(live)
		if live {
			g.block.NewBr(exit)
		}
		g.block = nextB
	}
	if timeout != nil {
		match := g.block.NewICmp(enum.IPredEQ, idx, constant.NewInt(types.I64, -1))
		bodyB := g.fn.NewBlock(g.uniq("select.timeout"))
		nextB := g.fn.NewBlock(g.uniq("select.next"))
		g.block.NewCondBr(match, bodyB, nextB)
		g.block = bodyB
		g.pushScope()
		g.genStatements(timeout.Body)
		live := g.block.Term == nil
		g.popScope(live)
		if live {
			g.block.NewBr(exit)
		}
		g.block = nextB
	}
	g.block.NewBr(exit)
	g.block = exit
}

func (g *Generator) genAwaitScope(s ast.AwaitScope) {
	prevFutures, prevIn := g.scopeFutures, g.inAwaitScope
	g.scopeFutures, g.inAwaitScope = nil, true

	g.pushScope()
	g.genStatements(s.Body)
	live := g.block.Term == nil
	if live {
		// Scope exit blocks until every child future completes.
		for _, f := range g.scopeFutures {
			g.call("bolide_future_await", f)
		}
	}
	g.popScope(live)

	g.scopeFutures, g.inAwaitScope = prevFutures, prevIn
}

// genAsyncSelect lowers to a poll loop over the branch futures: the
// first completed future (lowest index on ties) wins, its value is bound
// and its body runs.
func (g *Generator) genAsyncSelect(s ast.AsyncSelect) {
	futures := make([]value.Value, len(s.Branches))
	for i, br := range s.Branches {
		futures[i] = g.genExpr(br.Expr).v
	}

	loopB := g.fn.NewBlock(g.uniq("aselect.loop"))
	exitB := g.fn.NewBlock(g.uniq("aselect.end"))
	g.block.NewBr(loopB)
	g.block = loopB

	for i, br := range s.Branches {
		done := g.call("bolide_future_completed", futures[i])
		match := g.block.NewICmp(enum.IPredNE, done, zeroI64)
		bodyB := g.fn.NewBlock(g.uniq("aselect.body"))
		nextB := g.fn.NewBlock(g.uniq("aselect.next"))
		g.block.NewCondBr(match, bodyB, nextB)

		g.block = bodyB
		g.pushScope()
		result := g.call("bolide_future_await", futures[i])
		if br.Var != "" {
			v := g.declareVar(br.Var, kInt, nil)
			g.block.NewStore(result, v.ptr)
		}
		g.genStatements(br.Body)
		live := g.block.Term == nil
		g.popScope(live)
		if live {
			g.block.NewBr(exitB)
		}
		g.block = nextB
	}
	g.block.NewBr(loopB)
	g.block = exitB
}

// genExternBlock loads the library and records each declared function so
// later calls materialise a get_symbol trampoline.
func (g *Generator) genExternBlock(s ast.ExternBlock) {
	path, _ := g.strConst(s.LibPath)
	g.call("bolide_ffi_load_library", path)
	for _, decl := range s.Declarations {
		if fn, ok := decl.(ast.ExternFunc); ok {
			g.externFns[fn.Name] = externFn{lib: s.LibPath, decl: fn}
		}
	}
}
