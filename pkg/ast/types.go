package ast

import (
	"fmt"
	"strings"
)

// Type is implemented by every surface type.
type Type interface {
	typeNode()
	String() string
}

// ScalarKind enumerates the builtin scalar and opaque types.
type ScalarKind int

const (
	KindInt ScalarKind = iota
	KindFloat
	KindBool
	KindStr
	KindBigInt
	KindDecimal
	KindDynamic
	KindPtr
	KindFuture
	KindFunc // unsigned function type; use FuncSigType for a full signature
)

var scalarNames = [...]string{
	"int", "float", "bool", "str", "bigint", "decimal", "dynamic", "ptr", "future", "func",
}

// ScalarType is one of the builtin non-parametric types.
type ScalarType struct{ Kind ScalarKind }

// ChannelType is channel<Elem>.
type ChannelType struct{ Elem Type }

// FuncSigType is func(Params) -> Ret.
type FuncSigType struct {
	Params []Type
	Ret    Type // nil for no return
}

// ListType is list<Elem>.
type ListType struct{ Elem Type }

// TupleType is (Elems...).
type TupleType struct{ Elems []Type }

// CustomType names a user class.
type CustomType struct{ Name string }

// WeakType is weak T: assignments adjust the weak count only.
type WeakType struct{ Elem Type }

// UnownedType is unowned T: no count traffic and no validity check on access.
type UnownedType struct{ Elem Type }

func (ScalarType) typeNode()  {}
func (ChannelType) typeNode() {}
func (FuncSigType) typeNode() {}
func (ListType) typeNode()    {}
func (TupleType) typeNode()   {}
func (CustomType) typeNode()  {}
func (WeakType) typeNode()    {}
func (UnownedType) typeNode() {}

func (t ScalarType) String() string {
	if int(t.Kind) < len(scalarNames) {
		return scalarNames[t.Kind]
	}
	return fmt.Sprintf("scalar(%d)", int(t.Kind))
}

func (t ChannelType) String() string { return fmt.Sprintf("channel<%s>", t.Elem) }

func (t FuncSigType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	sig := "func(" + strings.Join(parts, ", ") + ")"
	if t.Ret != nil {
		sig += " -> " + t.Ret.String()
	}
	return sig
}

func (t ListType) String() string { return fmt.Sprintf("list<%s>", t.Elem) }

func (t TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t CustomType) String() string  { return t.Name }
func (t WeakType) String() string    { return "weak " + t.Elem.String() }
func (t UnownedType) String() string { return "unowned " + t.Elem.String() }

// Convenience singletons for the scalar types.
var (
	TypeInt     = ScalarType{Kind: KindInt}
	TypeFloat   = ScalarType{Kind: KindFloat}
	TypeBool    = ScalarType{Kind: KindBool}
	TypeStr     = ScalarType{Kind: KindStr}
	TypeBigInt  = ScalarType{Kind: KindBigInt}
	TypeDecimal = ScalarType{Kind: KindDecimal}
	TypeDynamic = ScalarType{Kind: KindDynamic}
	TypePtr     = ScalarType{Kind: KindPtr}
	TypeFuture  = ScalarType{Kind: KindFuture}
	TypeFunc    = ScalarType{Kind: KindFunc}
)

// IsHeapType reports whether values of t live on the runtime heap and
// therefore participate in refcounting.
func IsHeapType(t Type) bool {
	switch tt := t.(type) {
	case ScalarType:
		switch tt.Kind {
		case KindStr, KindBigInt, KindDecimal, KindDynamic:
			return true
		}
		return false
	case ListType, TupleType, CustomType:
		return true
	case WeakType, UnownedType:
		// Non-owning views: the referent is heap-allocated but the slot
		// itself carries no strong reference.
		return false
	default:
		return false
	}
}
