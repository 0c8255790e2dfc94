// Package analysis runs the static checks the compiler facade needs
// before lowering: parameter-mode discipline at call sites, lifetime
// dependency validation, and user-class field layout.
package analysis

import (
	"fmt"

	"github.com/pkg/errors"

	"bolide_go/pkg/ast"
)

// FuncInfo is the call contract of one function.
type FuncInfo struct {
	Name         string
	Async        bool
	Params       []ast.Param
	ReturnType   ast.Type
	LifetimeDeps []string
	// BorrowedReturn is set when lifetime deps are present: the return
	// value borrows from the listed parameters, so return sites skip the
	// usual ownership transfer.
	BorrowedReturn bool
}

// FieldSlot is one laid-out field of a class: an 8-byte slot at a fixed
// index, inherited fields first.
type FieldSlot struct {
	Name   string
	Type   ast.Type
	Index  int64
	Offset int64
	IsRef  bool
}

// ClassLayout is the flat field block of a user class.
type ClassLayout struct {
	Name    string
	Parent  string
	Fields  []FieldSlot
	RefMask uint64
	Methods map[string]*FuncInfo
	laidOut bool
}

// SlotCount returns the number of field slots.
func (c *ClassLayout) SlotCount() int64 { return int64(len(c.Fields)) }

// Field finds a field by name, nil when absent.
func (c *ClassLayout) Field(name string) *FieldSlot {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i]
		}
	}
	return nil
}

// Registry holds the analysis results for one program.
type Registry struct {
	Funcs   map[string]*FuncInfo
	Classes map[string]*ClassLayout
}

// Lookup finds a function contract by name, nil when absent.
func (r *Registry) Lookup(name string) *FuncInfo { return r.Funcs[name] }

// Class finds a class layout by name, nil when absent.
func (r *Registry) Class(name string) *ClassLayout { return r.Classes[name] }

// Analyze collects function contracts and class layouts and checks the
// program against them. The first violation aborts the analysis.
func Analyze(prog *ast.Program) (*Registry, error) {
	r := &Registry{
		Funcs:   make(map[string]*FuncInfo),
		Classes: make(map[string]*ClassLayout),
	}

	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case ast.FuncDef:
			info, err := funcInfo(s)
			if err != nil {
				return nil, err
			}
			r.Funcs[s.Name] = info
		case ast.ClassDef:
			if _, dup := r.Classes[s.Name]; dup {
				return nil, errors.Errorf("class %s defined twice", s.Name)
			}
			r.Classes[s.Name] = &ClassLayout{Name: s.Name, Parent: s.Parent}
		}
	}

	// Lay out classes parent-first now that every name is known.
	defs := make(map[string]ast.ClassDef)
	for _, stmt := range prog.Statements {
		if s, ok := stmt.(ast.ClassDef); ok {
			defs[s.Name] = s
		}
	}
	visiting := make(map[string]bool)
	for _, stmt := range prog.Statements {
		s, ok := stmt.(ast.ClassDef)
		if !ok {
			continue
		}
		if err := r.layoutClass(s, defs, visiting); err != nil {
			return nil, err
		}
	}
	for _, stmt := range prog.Statements {
		s, ok := stmt.(ast.ClassDef)
		if !ok {
			continue
		}
		layout := r.Classes[s.Name]
		layout.Methods = make(map[string]*FuncInfo, len(s.Methods))
		for _, m := range s.Methods {
			info, err := funcInfo(m)
			if err != nil {
				return nil, errors.Wrapf(err, "class %s", s.Name)
			}
			layout.Methods[m.Name] = info
		}
	}

	if err := r.checkStatements(prog.Statements); err != nil {
		return nil, err
	}
	return r, nil
}

func funcInfo(def ast.FuncDef) (*FuncInfo, error) {
	info := &FuncInfo{
		Name:           def.Name,
		Async:          def.Async,
		Params:         def.Params,
		ReturnType:     def.ReturnType,
		LifetimeDeps:   def.LifetimeDeps,
		BorrowedReturn: len(def.LifetimeDeps) > 0,
	}
	for _, dep := range def.LifetimeDeps {
		if paramByName(def.Params, dep) == nil {
			return nil, errors.Errorf("func %s: lifetime dependency %q is not a parameter", def.Name, dep)
		}
	}
	return info, nil
}

func paramByName(params []ast.Param, name string) *ast.Param {
	for i := range params {
		if params[i].Name == name {
			return &params[i]
		}
	}
	return nil
}

func (r *Registry) layoutClass(def ast.ClassDef, defs map[string]ast.ClassDef, visiting map[string]bool) error {
	layout := r.Classes[def.Name]
	if layout.laidOut {
		return nil
	}
	if visiting[def.Name] {
		return errors.Errorf("class %s: inheritance cycle", def.Name)
	}
	visiting[def.Name] = true
	defer delete(visiting, def.Name)

	var fields []FieldSlot
	if def.Parent != "" {
		parentDef, ok := defs[def.Parent]
		if !ok {
			return errors.Errorf("class %s: unknown parent %s", def.Name, def.Parent)
		}
		// Parents lay out first regardless of source order.
		if err := r.layoutClass(parentDef, defs, visiting); err != nil {
			return err
		}
		fields = append(fields, r.Classes[def.Parent].Fields...)
	}

	for _, f := range def.Fields {
		for _, existing := range fields {
			if existing.Name == f.Name {
				return errors.Errorf("class %s: duplicate field %s", def.Name, f.Name)
			}
		}
		idx := int64(len(fields))
		fields = append(fields, FieldSlot{
			Name:   f.Name,
			Type:   f.Type,
			Index:  idx,
			Offset: idx * 8,
			IsRef:  ast.IsHeapType(f.Type),
		})
	}

	layout.Fields = fields
	layout.laidOut = true
	for _, f := range fields {
		if f.IsRef && f.Index < 64 {
			layout.RefMask |= 1 << uint(f.Index)
		}
	}
	return nil
}

func (r *Registry) checkStatements(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := r.checkStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) checkStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case ast.VarDecl:
		if s.Value != nil {
			return r.checkExpr(s.Value)
		}
	case ast.Assign:
		return r.checkExpr(s.Value)
	case ast.FuncDef:
		return r.checkStatements(s.Body)
	case ast.ClassDef:
		for _, m := range s.Methods {
			if err := r.checkStatements(m.Body); err != nil {
				return err
			}
		}
	case ast.If:
		if err := r.checkExpr(s.Cond); err != nil {
			return err
		}
		if err := r.checkStatements(s.Then); err != nil {
			return err
		}
		for _, br := range s.Elif {
			if err := r.checkExpr(br.Cond); err != nil {
				return err
			}
			if err := r.checkStatements(br.Body); err != nil {
				return err
			}
		}
		return r.checkStatements(s.Else)
	case ast.While:
		if err := r.checkExpr(s.Cond); err != nil {
			return err
		}
		return r.checkStatements(s.Body)
	case ast.For:
		if err := r.checkExpr(s.Iter); err != nil {
			return err
		}
		return r.checkStatements(s.Body)
	case ast.Pool:
		return r.checkStatements(s.Body)
	case ast.AwaitScope:
		return r.checkStatements(s.Body)
	case ast.Select:
		for _, br := range s.Branches {
			switch b := br.(type) {
			case ast.RecvBranch:
				if err := r.checkStatements(b.Body); err != nil {
					return err
				}
			case ast.TimeoutBranch:
				if err := r.checkStatements(b.Body); err != nil {
					return err
				}
			case ast.DefaultBranch:
				if err := r.checkStatements(b.Body); err != nil {
					return err
				}
			}
		}
	case ast.AsyncSelect:
		for _, br := range s.Branches {
			if err := r.checkExpr(br.Expr); err != nil {
				return err
			}
			if err := r.checkStatements(br.Body); err != nil {
				return err
			}
		}
	case ast.Send:
		return r.checkExpr(s.Value)
	case ast.Return:
		if s.Value != nil {
			return r.checkExpr(s.Value)
		}
	case ast.ExprStmt:
		return r.checkExpr(s.Expr)
	}
	return nil
}

// checkExpr walks expressions, enforcing the call-site rules the modes
// demand: a Ref parameter needs an addressable argument, and arity must
// match for known callees.
func (r *Registry) checkExpr(expr ast.Expr) error {
	switch e := expr.(type) {
	case ast.Call:
		if callee, ok := e.Callee.(ast.Ident); ok {
			if info := r.Funcs[callee.Name]; info != nil {
				if err := r.checkCall(info, e.Args); err != nil {
					return err
				}
			}
		}
		for _, a := range e.Args {
			if err := r.checkExpr(a); err != nil {
				return err
			}
		}
	case ast.BinOp:
		if err := r.checkExpr(e.Left); err != nil {
			return err
		}
		return r.checkExpr(e.Right)
	case ast.UnaryOp:
		return r.checkExpr(e.Operand)
	case ast.Index:
		if err := r.checkExpr(e.Base); err != nil {
			return err
		}
		return r.checkExpr(e.Index)
	case ast.Member:
		return r.checkExpr(e.Base)
	case ast.ListLit:
		for _, el := range e.Elems {
			if err := r.checkExpr(el); err != nil {
				return err
			}
		}
	case ast.TupleLit:
		for _, el := range e.Elems {
			if err := r.checkExpr(el); err != nil {
				return err
			}
		}
	case ast.Spawn:
		for _, a := range e.Args {
			if err := r.checkExpr(a); err != nil {
				return err
			}
		}
	case ast.Await:
		return r.checkExpr(e.Operand)
	case ast.AwaitAll:
		for _, op := range e.Operands {
			if err := r.checkExpr(op); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) checkCall(info *FuncInfo, args []ast.Expr) error {
	if len(args) != len(info.Params) {
		return errors.Errorf("call to %s: %d args, want %d", info.Name, len(args), len(info.Params))
	}
	for i, p := range info.Params {
		if p.Mode != ast.ModeRef {
			continue
		}
		if _, ok := args[i].(ast.Ident); !ok {
			return errors.Errorf(
				"call to %s: ref parameter %s needs an addressable argument, got %s",
				info.Name, p.Name, args[i])
		}
	}
	return nil
}

// ModeDescription explains the refcount choreography for a parameter
// mode, used in diagnostics.
func ModeDescription(m ast.ParamMode) string {
	switch m {
	case ast.ModeBorrow:
		return "borrow: raw pointer, no count traffic on either side"
	case ast.ModeOwned:
		return "owned: callee takes the strong reference, caller slot is nulled"
	case ast.ModeRef:
		return "ref: callee receives the slot address and may reassign it"
	default:
		return fmt.Sprintf("unknown mode %d", int(m))
	}
}
