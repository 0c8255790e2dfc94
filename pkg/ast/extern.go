package ast

import (
	"fmt"
	"strings"
)

// ExternBlock declares foreign functions, structs, and type aliases
// resolved from one dynamic library.
type ExternBlock struct {
	LibPath      string
	Declarations []ExternDecl
}

func (b ExternBlock) String() string {
	return fmt.Sprintf("extern %q {%d decls}", b.LibPath, len(b.Declarations))
}

// ExternDecl is one item inside an extern block.
type ExternDecl interface {
	externDecl()
	String() string
}

// ExternFunc declares a C function.
type ExternFunc struct {
	Name       string
	Params     []CParam
	ReturnType CType // nil for void
	Variadic   bool
}

// CParam is one parameter of an extern function.
type CParam struct {
	Name string
	Type CType
}

// ExternStruct declares a C struct layout.
type ExternStruct struct {
	Name   string
	Fields []CField
}

// CField is one field of an extern struct.
type CField struct {
	Name string
	Type CType
}

// TypeAlias names a C type.
type TypeAlias struct {
	Name string
	Type CType
}

func (ExternFunc) externDecl()   {}
func (ExternStruct) externDecl() {}
func (TypeAlias) externDecl()    {}

func (f ExternFunc) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	if f.Variadic {
		parts = append(parts, "...")
	}
	sig := fmt.Sprintf("func %s(%s)", f.Name, strings.Join(parts, ", "))
	if f.ReturnType != nil {
		sig += " -> " + f.ReturnType.String()
	}
	return sig
}

func (s ExternStruct) String() string {
	return fmt.Sprintf("struct %s {%d fields}", s.Name, len(s.Fields))
}
func (a TypeAlias) String() string { return fmt.Sprintf("type %s = %s", a.Name, a.Type) }

// CType is the closed algebra of C types usable across the FFI boundary.
type CType interface {
	cType()
	String() string
}

// CScalarKind enumerates C scalar types.
type CScalarKind int

const (
	CVoid CScalarKind = iota
	CChar
	CUChar
	CShort
	CUShort
	CInt
	CUInt
	CLong
	CULong
	CLongLong
	CULongLong
	CFloat
	CDouble
	CBool
	CI8
	CU8
	CI16
	CU16
	CI32
	CU32
	CI64
	CU64
	CSizeT
	CPtrDiffT
)

var cScalarNames = [...]string{
	"void", "char", "uchar", "short", "ushort", "int", "uint",
	"long", "ulong", "longlong", "ulonglong", "float", "double", "bool",
	"i8", "u8", "i16", "u16", "i32", "u32", "i64", "u64",
	"size_t", "ptrdiff_t",
}

// CScalar is a C scalar type.
type CScalar struct{ Kind CScalarKind }

// CPtr is a pointer to Elem.
type CPtr struct{ Elem CType }

// CArray is a fixed-size array.
type CArray struct {
	Elem CType
	Len  int
}

// CFuncPtr is a function-pointer type, used for callbacks.
type CFuncPtr struct {
	Params []CType
	Ret    CType
}

// CStruct references a declared extern struct by name.
type CStruct struct{ Name string }

func (CScalar) cType()  {}
func (CPtr) cType()     {}
func (CArray) cType()   {}
func (CFuncPtr) cType() {}
func (CStruct) cType()  {}

func (t CScalar) String() string {
	if int(t.Kind) < len(cScalarNames) {
		return cScalarNames[t.Kind]
	}
	return fmt.Sprintf("cscalar(%d)", int(t.Kind))
}

func (t CPtr) String() string   { return "*" + t.Elem.String() }
func (t CArray) String() string { return fmt.Sprintf("[%d]%s", t.Len, t.Elem) }

func (t CFuncPtr) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), t.Ret)
}

func (t CStruct) String() string { return "struct " + t.Name }
