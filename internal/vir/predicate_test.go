package vir

import (
	"testing"
)

func TestStructPredicateContainedFacts(t *testing.T) {
	self := NewPlace("self")
	pred := &StructPredicate{
		PredName:  "Pair",
		SelfPlace: self,
		Body: []Fact{
			Acc(self.Field("first")),
			Acc(self.Field("second")),
		},
	}

	facts := pred.ContainedFacts()
	if len(facts) != 2 {
		t.Fatalf("Expected 2 facts, got %d", len(facts))
	}
	if facts[0].Kind != AccFact || facts[0].Place.String() != "self.first" {
		t.Errorf("Unexpected first fact: %s", facts[0])
	}

	// The returned slice is a copy.
	facts[0] = Pred(self)
	if pred.Body[0].Kind != AccFact {
		t.Errorf("ContainedFacts must not expose the definition body")
	}
}

func TestEnumPredicateContainedFacts(t *testing.T) {
	self := NewPlace("self")
	pred := &EnumPredicate{
		PredName:     "Option",
		SelfPlace:    self,
		Discriminant: self.Field("discriminant"),
		Variants: []EnumVariant{
			{Name: "None"},
			{Name: "Some"},
		},
	}

	facts := pred.ContainedFacts()
	if len(facts) != 3 {
		t.Fatalf("Expected 3 facts, got %d", len(facts))
	}
	if facts[0].String() != "acc(self.discriminant)" {
		t.Errorf("Expected the discriminant access first, got %s", facts[0])
	}
	if facts[1].String() != "pred(self::None)" || facts[2].String() != "pred(self::Some)" {
		t.Errorf("Expected one folded fact per variant, got %s and %s", facts[1], facts[2])
	}
}

func TestCatalogDiscriminantField(t *testing.T) {
	c := NewCatalog()
	if !c.IsDiscriminantField("discriminant") {
		t.Errorf("Expected the default discriminant field name to match")
	}
	c.SetDiscriminantField("tag")
	if c.IsDiscriminantField("discriminant") {
		t.Errorf("Expected the default name to stop matching after override")
	}
	if !c.IsDiscriminantField("tag") {
		t.Errorf("Expected the override to match")
	}

	// Empty override keeps the previous name.
	c.SetDiscriminantField("")
	if !c.IsDiscriminantField("tag") {
		t.Errorf("Expected an empty override to be ignored")
	}
}

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog()
	self := NewPlace("self")
	c.Add(&StructPredicate{PredName: "Node", SelfPlace: self})

	if _, ok := c.Lookup("Node"); !ok {
		t.Errorf("Expected Node to be registered")
	}
	if _, ok := c.Lookup("Missing"); ok {
		t.Errorf("Expected Missing to be absent")
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 predicate, got %d", c.Len())
	}
}

func TestCollectFacts(t *testing.T) {
	x := NewPlace("x")
	expr := And(
		AccField(x.Field("value"), WritePerm),
		Implies(BoolLit(true), AccPredicate("Node", x.Field("next"), WritePerm)),
	)

	facts := CollectFacts(expr)
	if len(facts) != 2 {
		t.Fatalf("Expected 2 facts, got %d", len(facts))
	}
	if facts[0].String() != "acc(x.value)" {
		t.Errorf("Unexpected first fact: %s", facts[0])
	}
	if facts[1].String() != "pred(x.next)" {
		t.Errorf("Unexpected second fact: %s", facts[1])
	}
}
