// Package ast defines the surface abstract syntax of Bolide programs.
//
// A Program is an ordered sequence of Statements. The node set here is the
// contract between the front-end that produces it and the code generator
// that consumes it; neither side carries extra state through these types.
package ast

import (
	"fmt"
	"strings"
)

// Program is the top-level parse result.
type Program struct {
	Statements []Statement
}

// Statement is implemented by every statement node.
type Statement interface {
	stmtNode()
	String() string
}

// ParamMode selects the calling convention for one parameter.
type ParamMode int

const (
	// ModeBorrow passes a raw pointer with no refcount traffic.
	ModeBorrow ParamMode = iota
	// ModeOwned transfers the strong reference; the caller slot is nulled.
	ModeOwned
	// ModeRef passes the address of the caller slot so the callee may
	// reassign it.
	ModeRef
)

func (m ParamMode) String() string {
	switch m {
	case ModeBorrow:
		return "borrow"
	case ModeOwned:
		return "owned"
	case ModeRef:
		return "ref"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Param is a single function parameter.
type Param struct {
	Name string
	Type Type
	Mode ParamMode
}

func (p Param) String() string {
	if p.Mode == ModeBorrow {
		return fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	return fmt.Sprintf("%s %s: %s", p.Mode, p.Name, p.Type)
}

// VarDecl declares a variable with an optional type and initializer.
type VarDecl struct {
	Name  string
	Type  Type // nil when inferred
	Value Expr // nil when declared without initializer
}

// Assign assigns to an identifier, member, or index target.
type Assign struct {
	Target Expr
	Value  Expr
}

// FuncDef defines a function. LifetimeDeps, when non-nil, names the
// parameters whose lifetimes bound the return value; such returns bypass
// refcounting. Analysis checks that each name is a parameter; it does not
// check the returned expressions against them.
type FuncDef struct {
	Name         string
	Async        bool
	Params       []Param
	ReturnType   Type // nil for no declared return
	LifetimeDeps []string
	Body         []Statement
}

// ClassField is one field of a class definition.
type ClassField struct {
	Name    string
	Type    Type
	Default Expr // nil when no default
}

// ClassDef defines a user class, optionally inheriting from Parent.
type ClassDef struct {
	Name    string
	Parent  string // "" for no parent
	Fields  []ClassField
	Methods []FuncDef
}

// If is a conditional with an elif chain and optional else body.
type If struct {
	Cond Expr
	Then []Statement
	Elif []ElifBranch
	Else []Statement // nil when absent
}

// ElifBranch is one elif arm.
type ElifBranch struct {
	Cond Expr
	Body []Statement
}

// While loops until Cond is false.
type While struct {
	Cond Expr
	Body []Statement
}

// For iterates Var over Iter.
type For struct {
	Var  string
	Iter Expr
	Body []Statement
}

// Pool reserves Size worker threads for the scope of Body.
type Pool struct {
	Size Expr
	Body []Statement
}

// Select waits on several channel branches.
type Select struct {
	Branches []SelectBranch
}

// SelectBranch is one arm of a select statement.
type SelectBranch interface {
	selectBranch()
	String() string
}

// RecvBranch binds a received value: `v <- ch => { ... }`.
type RecvBranch struct {
	Var     string
	Channel string
	Body    []Statement
}

// TimeoutBranch fires when no channel is ready within Duration ms.
type TimeoutBranch struct {
	Duration Expr
	Body     []Statement
}

// DefaultBranch fires immediately when no channel is ready.
type DefaultBranch struct {
	Body []Statement
}

func (RecvBranch) selectBranch()    {}
func (TimeoutBranch) selectBranch() {}
func (DefaultBranch) selectBranch() {}

func (b RecvBranch) String() string    { return fmt.Sprintf("%s <- %s => {...}", b.Var, b.Channel) }
func (b TimeoutBranch) String() string { return fmt.Sprintf("timeout(%s) => {...}", b.Duration) }
func (DefaultBranch) String() string   { return "default => {...}" }

// AwaitScope is a structured-concurrency region: leaving the scope blocks
// until every coroutine spawned inside it has completed.
type AwaitScope struct {
	Body []Statement
}

// AsyncSelect resumes on the first of its futures to complete.
type AsyncSelect struct {
	Branches []AsyncSelectBranch
}

// AsyncSelectBranch is one arm of an async select.
type AsyncSelectBranch struct {
	Var  string // "" when the arm binds no name
	Expr Expr
	Body []Statement
}

// Send sends Value on the named channel: `ch <- v;`.
type Send struct {
	Channel string
	Value   Expr
}

// Return returns from the enclosing function. Value is nil for bare return.
type Return struct {
	Value Expr
}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	Expr Expr
}

// Import brings a module into scope, by dotted path or file path.
type Import struct {
	Path     []string
	FilePath string // "" when imported by module path
	Alias    string // "" when unaliased
}

func (VarDecl) stmtNode()     {}
func (Assign) stmtNode()      {}
func (FuncDef) stmtNode()     {}
func (ClassDef) stmtNode()    {}
func (If) stmtNode()          {}
func (While) stmtNode()       {}
func (For) stmtNode()         {}
func (Pool) stmtNode()        {}
func (Select) stmtNode()      {}
func (AwaitScope) stmtNode()  {}
func (AsyncSelect) stmtNode() {}
func (Send) stmtNode()        {}
func (Return) stmtNode()      {}
func (ExprStmt) stmtNode()    {}
func (Import) stmtNode()      {}
func (ExternBlock) stmtNode() {}

func (s VarDecl) String() string {
	var sb strings.Builder
	sb.WriteString("var ")
	sb.WriteString(s.Name)
	if s.Type != nil {
		sb.WriteString(": ")
		sb.WriteString(s.Type.String())
	}
	if s.Value != nil {
		sb.WriteString(" = ")
		sb.WriteString(s.Value.String())
	}
	return sb.String()
}

func (s Assign) String() string { return fmt.Sprintf("%s = %s", s.Target, s.Value) }

func (s FuncDef) String() string {
	var sb strings.Builder
	if s.Async {
		sb.WriteString("async ")
	}
	sb.WriteString("func ")
	sb.WriteString(s.Name)
	sb.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	if s.ReturnType != nil {
		sb.WriteString(" -> ")
		sb.WriteString(s.ReturnType.String())
	}
	if len(s.LifetimeDeps) > 0 {
		sb.WriteString(" from ")
		sb.WriteString(strings.Join(s.LifetimeDeps, ", "))
	}
	return sb.String()
}

func (s ClassDef) String() string {
	if s.Parent != "" {
		return fmt.Sprintf("class %s(%s)", s.Name, s.Parent)
	}
	return "class " + s.Name
}

func (s If) String() string       { return fmt.Sprintf("if %s {...}", s.Cond) }
func (s While) String() string    { return fmt.Sprintf("while %s {...}", s.Cond) }
func (s For) String() string      { return fmt.Sprintf("for %s in %s {...}", s.Var, s.Iter) }
func (s Pool) String() string     { return fmt.Sprintf("pool(%s) {...}", s.Size) }
func (s Select) String() string   { return fmt.Sprintf("select {%d branches}", len(s.Branches)) }
func (AwaitScope) String() string { return "await scope {...}" }

func (s AsyncSelect) String() string {
	return fmt.Sprintf("async select {%d branches}", len(s.Branches))
}

func (s Send) String() string { return fmt.Sprintf("%s <- %s", s.Channel, s.Value) }

func (s Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

func (s ExprStmt) String() string { return s.Expr.String() }

func (s Import) String() string {
	var sb strings.Builder
	sb.WriteString("import ")
	if s.FilePath != "" {
		fmt.Fprintf(&sb, "%q", s.FilePath)
	} else {
		sb.WriteString(strings.Join(s.Path, "."))
	}
	if s.Alias != "" {
		sb.WriteString(" as ")
		sb.WriteString(s.Alias)
	}
	return sb.String()
}
