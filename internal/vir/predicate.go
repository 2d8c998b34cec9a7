package vir

// FactKind distinguishes the two kinds of permission facts.
type FactKind int

const (
	// AccFact is an individual field access permission.
	AccFact FactKind = iota
	// PredFact is a folded aggregate permission.
	PredFact
)

// Fact is a single permission fact: either a field access on a place or a
// folded predicate at a place.
type Fact struct {
	Kind  FactKind
	Place Place
}

// Acc creates a field access fact.
func Acc(p Place) Fact {
	return Fact{Kind: AccFact, Place: p}
}

// Pred creates a folded predicate fact.
func Pred(p Place) Fact {
	return Fact{Kind: PredFact, Place: p}
}

// Map returns the fact with its place rewritten through fn.
func (f Fact) Map(fn func(Place) Place) Fact {
	return Fact{Kind: f.Kind, Place: fn(f.Place)}
}

func (f Fact) String() string {
	if f.Kind == PredFact {
		return "pred(" + f.Place.String() + ")"
	}
	return "acc(" + f.Place.String() + ")"
}

// Predicate is a named, possibly discriminant-guarded bundle of
// permissions over a self place. Definitions are supplied by the encoding
// stage and are read-only to this core.
type Predicate interface {
	isPredicate()
	Name() string
	Self() Place
	// ContainedFacts lists the permission facts produced by unfolding the
	// predicate, relative to its self place.
	ContainedFacts() []Fact
}

// StructPredicate describes a struct-like aggregate: an ordered list of
// contained facts relative to the self place.
type StructPredicate struct {
	PredName  string
	SelfPlace Place
	Body      []Fact
}

func (*StructPredicate) isPredicate() {}

func (p *StructPredicate) Name() string { return p.PredName }
func (p *StructPredicate) Self() Place  { return p.SelfPlace }

func (p *StructPredicate) ContainedFacts() []Fact {
	facts := make([]Fact, len(p.Body))
	copy(facts, p.Body)
	return facts
}

// EnumVariant is one discriminant-guarded alternative of an enum-like
// predicate.
type EnumVariant struct {
	// Guard holds exactly when the discriminant selects this variant.
	Guard Expr
	Name  string
	// Predicate describes the variant's contents over the variant place.
	Predicate *StructPredicate
}

// EnumPredicate describes an enum-like aggregate: a discriminant place,
// bounds on its value, and guarded variants.
type EnumPredicate struct {
	PredName     string
	SelfPlace    Place
	Discriminant Place
	// Bounds constrains the discriminant value.
	Bounds   Expr
	Variants []EnumVariant
}

func (*EnumPredicate) isPredicate() {}

func (p *EnumPredicate) Name() string { return p.PredName }
func (p *EnumPredicate) Self() Place  { return p.SelfPlace }

// ContainedFacts yields the access fact on the discriminant plus one
// folded fact per variant place. The variant tag component scopes the
// guarded permissions, so folding and unfolding stay exact inverses.
func (p *EnumPredicate) ContainedFacts() []Fact {
	facts := make([]Fact, 0, len(p.Variants)+1)
	facts = append(facts, Acc(p.Discriminant))
	for _, v := range p.Variants {
		facts = append(facts, Pred(p.SelfPlace.Variant(v.Name)))
	}
	return facts
}

// DefaultDiscriminantField is the field name the encoding stage gives to
// enum discriminants unless a unit declares another one.
const DefaultDiscriminantField = "discriminant"

// Catalog maps predicate names to their definitions for one verification
// unit.
type Catalog struct {
	preds             map[string]Predicate
	discriminantField string
}

// NewCatalog creates an empty catalog with the default discriminant field
// name.
func NewCatalog() *Catalog {
	return &Catalog{
		preds:             make(map[string]Predicate),
		discriminantField: DefaultDiscriminantField,
	}
}

// Add registers a predicate definition.
func (c *Catalog) Add(p Predicate) {
	c.preds[p.Name()] = p
}

// Lookup returns the definition for a predicate name.
func (c *Catalog) Lookup(name string) (Predicate, bool) {
	p, ok := c.preds[name]
	return p, ok
}

// Len returns the number of registered predicates.
func (c *Catalog) Len() int { return len(c.preds) }

// SetDiscriminantField overrides the discriminant field name for this
// unit.
func (c *Catalog) SetDiscriminantField(name string) {
	if name != "" {
		c.discriminantField = name
	}
}

// IsDiscriminantField reports whether a field name is the discriminant
// selector of an enum-like aggregate.
func (c *Catalog) IsDiscriminantField(name string) bool {
	return name == c.discriminantField
}
