package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bolide_go/pkg/ast"
)

func TestFuncContracts(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.FuncDef{
			Name: "head",
			Params: []ast.Param{
				{Name: "xs", Type: ast.ListType{Elem: ast.TypeStr}},
			},
			ReturnType:   ast.TypeStr,
			LifetimeDeps: []string{"xs"},
		},
		ast.FuncDef{Name: "work", Async: true},
	}}

	reg, err := Analyze(prog)
	require.NoError(t, err)

	head := reg.Lookup("head")
	require.NotNil(t, head)
	assert.True(t, head.BorrowedReturn, "lifetime deps imply a borrowed return")

	work := reg.Lookup("work")
	require.NotNil(t, work)
	assert.True(t, work.Async)
	assert.False(t, work.BorrowedReturn)

	assert.Nil(t, reg.Lookup("missing"))
}

func TestLifetimeDepMustBeParameter(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.FuncDef{
			Name:         "bad",
			Params:       []ast.Param{{Name: "a", Type: ast.TypeStr}},
			ReturnType:   ast.TypeStr,
			LifetimeDeps: []string{"nope"},
		},
	}}
	_, err := Analyze(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lifetime dependency")
}

func TestClassLayout(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.ClassDef{
			Name: "Point",
			Fields: []ast.ClassField{
				{Name: "x", Type: ast.TypeInt},
				{Name: "y", Type: ast.TypeInt},
				{Name: "label", Type: ast.TypeStr},
			},
		},
	}}

	reg, err := Analyze(prog)
	require.NoError(t, err)

	layout := reg.Class("Point")
	require.NotNil(t, layout)
	assert.Equal(t, int64(3), layout.SlotCount())

	label := layout.Field("label")
	require.NotNil(t, label)
	assert.Equal(t, int64(2), label.Index)
	assert.Equal(t, int64(16), label.Offset)
	assert.True(t, label.IsRef)
	assert.False(t, layout.Field("x").IsRef)
	assert.Equal(t, uint64(1<<2), layout.RefMask)
}

func TestClassInheritanceLaysParentFieldsFirst(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.ClassDef{
			Name:   "Base",
			Fields: []ast.ClassField{{Name: "id", Type: ast.TypeInt}},
		},
		ast.ClassDef{
			Name:   "Derived",
			Parent: "Base",
			Fields: []ast.ClassField{{Name: "name", Type: ast.TypeStr}},
		},
	}}

	reg, err := Analyze(prog)
	require.NoError(t, err)

	d := reg.Class("Derived")
	require.NotNil(t, d)
	assert.Equal(t, int64(2), d.SlotCount())
	assert.Equal(t, int64(0), d.Field("id").Index)
	assert.Equal(t, int64(1), d.Field("name").Index)
}

func TestClassParentDefinedLater(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.ClassDef{
			Name:   "Derived",
			Parent: "Base",
			Fields: []ast.ClassField{{Name: "extra", Type: ast.TypeInt}},
		},
		ast.ClassDef{
			Name:   "Base",
			Fields: []ast.ClassField{{Name: "id", Type: ast.TypeInt}},
		},
	}}
	reg, err := Analyze(prog)
	require.NoError(t, err)
	d := reg.Class("Derived")
	assert.Equal(t, int64(0), d.Field("id").Index, "parent fields come first regardless of source order")
	assert.Equal(t, int64(1), d.Field("extra").Index)
}

func TestClassInheritanceCycle(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.ClassDef{Name: "A", Parent: "B"},
		ast.ClassDef{Name: "B", Parent: "A"},
	}}
	_, err := Analyze(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestClassDuplicateField(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.ClassDef{
			Name: "Bad",
			Fields: []ast.ClassField{
				{Name: "x", Type: ast.TypeInt},
				{Name: "x", Type: ast.TypeInt},
			},
		},
	}}
	_, err := Analyze(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate field")
}

func TestUnknownParent(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.ClassDef{Name: "Orphan", Parent: "Ghost"},
	}}
	_, err := Analyze(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parent")
}

func TestRefParamNeedsAddressableArgument(t *testing.T) {
	funcDef := ast.FuncDef{
		Name:   "update",
		Params: []ast.Param{{Name: "slot", Type: ast.TypeStr, Mode: ast.ModeRef}},
	}

	good := &ast.Program{Statements: []ast.Statement{
		funcDef,
		ast.VarDecl{Name: "s", Type: ast.TypeStr},
		ast.ExprStmt{Expr: ast.Call{
			Callee: ast.Ident{Name: "update"},
			Args:   []ast.Expr{ast.Ident{Name: "s"}},
		}},
	}}
	_, err := Analyze(good)
	assert.NoError(t, err)

	bad := &ast.Program{Statements: []ast.Statement{
		funcDef,
		ast.ExprStmt{Expr: ast.Call{
			Callee: ast.Ident{Name: "update"},
			Args:   []ast.Expr{ast.StrLit{Value: "temp"}},
		}},
	}}
	_, err = Analyze(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addressable")
}

func TestCallArityChecked(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.FuncDef{
			Name:   "two",
			Params: []ast.Param{{Name: "a", Type: ast.TypeInt}, {Name: "b", Type: ast.TypeInt}},
		},
		ast.ExprStmt{Expr: ast.Call{
			Callee: ast.Ident{Name: "two"},
			Args:   []ast.Expr{ast.IntLit{Value: 1}},
		}},
	}}
	_, err := Analyze(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 args, want 2")
}

func TestMethodContracts(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.ClassDef{
			Name:   "Counter",
			Fields: []ast.ClassField{{Name: "n", Type: ast.TypeInt}},
			Methods: []ast.FuncDef{
				{Name: "bump", Params: []ast.Param{{Name: "by", Type: ast.TypeInt}}},
			},
		},
	}}
	reg, err := Analyze(prog)
	require.NoError(t, err)

	c := reg.Class("Counter")
	require.NotNil(t, c)
	require.Contains(t, c.Methods, "bump")
	assert.Len(t, c.Methods["bump"].Params, 1)
}
