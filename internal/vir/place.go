package vir

import "strings"

// ComponentKind distinguishes the two ways a place can be extended.
type ComponentKind int

const (
	// FieldComponent is a field access, printed as ".name".
	FieldComponent ComponentKind = iota
	// VariantComponent is an enum variant tag, printed as "::name".
	VariantComponent
)

// Component is one step of an access path.
type Component struct {
	Kind ComponentKind
	Name string
}

func (c Component) String() string {
	if c.Kind == VariantComponent {
		return "::" + c.Name
	}
	return "." + c.Name
}

// Place is an access path to a storage location: a root variable extended
// by zero or more field or variant components. Places are immutable; every
// operation returns a fresh value.
type Place struct {
	base       string
	components []Component
	typ        Type
}

// NewPlace creates a place rooted at the given variable.
func NewPlace(base string) Place {
	return Place{base: base}
}

// NewTypedPlace creates a place rooted at the given variable with a type tag.
func NewTypedPlace(base string, typ Type) Place {
	return Place{base: base, typ: typ}
}

// PlaceOfVar creates a base place for a declared variable.
func PlaceOfVar(v Var) Place {
	return Place{base: v.Name, typ: v.Typ}
}

// Base returns the root variable name.
func (p Place) Base() string { return p.base }

// IsBase reports whether the place is a bare variable with no components.
func (p Place) IsBase() bool { return len(p.components) == 0 }

// Depth returns the number of components.
func (p Place) Depth() int { return len(p.components) }

// Components returns the ordered component list. The returned slice must
// not be mutated.
func (p Place) Components() []Component { return p.components }

// Explode splits the place into its root variable and component list.
func (p Place) Explode() (string, []Component) { return p.base, p.components }

// Type returns the type tag of the place, if one was attached.
func (p Place) Type() Type { return p.typ }

// WithType returns the same path carrying the given type tag.
func (p Place) WithType(t Type) Place {
	return Place{base: p.base, components: p.components, typ: t}
}

// Field extends the place with a field access. The extension carries no
// type tag.
func (p Place) Field(name string) Place {
	return p.extend(Component{Kind: FieldComponent, Name: name}, Type{})
}

// TypedField extends the place with a field access carrying a type tag.
func (p Place) TypedField(name string, t Type) Place {
	return p.extend(Component{Kind: FieldComponent, Name: name}, t)
}

// Variant extends the place with an enum variant tag.
func (p Place) Variant(name string) Place {
	return p.extend(Component{Kind: VariantComponent, Name: name}, Type{})
}

func (p Place) extend(c Component, t Type) Place {
	comps := make([]Component, len(p.components)+1)
	copy(comps, p.components)
	comps[len(p.components)] = c
	return Place{base: p.base, components: comps, typ: t}
}

// HasPrefix reports whether q is a prefix of p, allowing p == q.
func (p Place) HasPrefix(q Place) bool {
	if p.base != q.base || len(q.components) > len(p.components) {
		return false
	}
	for i, c := range q.components {
		if p.components[i] != c {
			return false
		}
	}
	return true
}

// HasProperPrefix reports whether q is a strict prefix of p.
func (p Place) HasProperPrefix(q Place) bool {
	return len(q.components) < len(p.components) && p.HasPrefix(q)
}

// AllProperPrefixes returns every strict prefix of the place, shortest
// first, starting with the bare root variable.
func (p Place) AllProperPrefixes() []Place {
	prefixes := make([]Place, 0, len(p.components))
	for i := 0; i < len(p.components); i++ {
		prefixes = append(prefixes, Place{base: p.base, components: p.components[:i]})
	}
	return prefixes
}

// ReplacePrefix returns a copy of the place with the prefix old rewritten
// to new. The place must actually have old as a prefix.
func (p Place) ReplacePrefix(old, new Place) Place {
	if !p.HasPrefix(old) {
		return p
	}
	comps := make([]Component, 0, len(new.components)+len(p.components)-len(old.components))
	comps = append(comps, new.components...)
	comps = append(comps, p.components[len(old.components):]...)
	return Place{base: new.base, components: comps, typ: p.typ}
}

// Equal reports structural equality of the access paths. Type tags do not
// participate in place identity.
func (p Place) Equal(q Place) bool {
	return p.HasPrefix(q) && q.HasPrefix(p)
}

// Key returns the canonical string form used as a set/map key.
func (p Place) Key() string { return p.String() }

func (p Place) String() string {
	var b strings.Builder
	b.WriteString(p.base)
	for _, c := range p.components {
		b.WriteString(c.String())
	}
	return b.String()
}

// Less defines a deterministic total order over places: root name first,
// then component-by-component (kind before name), then path length. It is
// the one ordering used for sorting and tie-breaking throughout.
func (p Place) Less(q Place) bool {
	if p.base != q.base {
		return p.base < q.base
	}
	n := len(p.components)
	if len(q.components) < n {
		n = len(q.components)
	}
	for i := 0; i < n; i++ {
		pc, qc := p.components[i], q.components[i]
		if pc.Kind != qc.Kind {
			return pc.Kind < qc.Kind
		}
		if pc.Name != qc.Name {
			return pc.Name < qc.Name
		}
	}
	return len(p.components) < len(q.components)
}
