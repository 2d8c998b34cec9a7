package vir

// TypeKind enumerates the minimal type tags the core distinguishes.
type TypeKind int

const (
	// TypeUnknown is the zero tag; places decoded without a declared type
	// carry it.
	TypeUnknown TypeKind = iota
	TypeInt
	TypeBool
	// TypeRef is a reference to an aggregate described by a predicate.
	TypeRef
)

// Type is a minimal type tag. The core consults it in exactly one spot:
// the assignment rule treats reference-typed right-hand sides as aliasing
// moves.
type Type struct {
	Kind TypeKind
	// Predicate names the aggregate a TypeRef points to.
	Predicate string
}

// IntType returns the int type tag.
func IntType() Type { return Type{Kind: TypeInt} }

// BoolType returns the bool type tag.
func BoolType() Type { return Type{Kind: TypeBool} }

// RefType returns a reference type tag for the named predicate.
func RefType(predicate string) Type {
	return Type{Kind: TypeRef, Predicate: predicate}
}

// IsRef reports whether the type is a reference type.
func (t Type) IsRef() bool { return t.Kind == TypeRef }

func (t Type) String() string {
	switch t.Kind {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeRef:
		return "ref " + t.Predicate
	default:
		return "?"
	}
}

// Var is a declared variable.
type Var struct {
	Name string
	Typ  Type
}

func (v Var) String() string { return v.Name }

// Field is a declared field of an aggregate.
type Field struct {
	Name string
	Typ  Type
}

func (f Field) String() string { return f.Name }
