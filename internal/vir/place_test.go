package vir

import (
	"testing"
)

func TestPlaceString(t *testing.T) {
	p := NewPlace("x").Field("f").Variant("Some").Field("g")
	if got := p.String(); got != "x.f::Some.g" {
		t.Errorf("Expected x.f::Some.g, got %s", got)
	}
}

func TestPlacePrefix(t *testing.T) {
	x := NewPlace("x")
	xf := x.Field("f")
	xfg := xf.Field("g")
	xh := x.Field("h")

	if !xfg.HasPrefix(xf) {
		t.Errorf("Expected x.f to be a prefix of x.f.g")
	}
	if !xfg.HasPrefix(xfg) {
		t.Errorf("Expected a place to be a prefix of itself")
	}
	if xfg.HasProperPrefix(xfg) {
		t.Errorf("Expected a place not to be a proper prefix of itself")
	}
	if !xfg.HasProperPrefix(x) {
		t.Errorf("Expected x to be a proper prefix of x.f.g")
	}
	if xfg.HasPrefix(xh) {
		t.Errorf("Expected x.h not to be a prefix of x.f.g")
	}
	if xf.HasPrefix(NewPlace("y")) {
		t.Errorf("Expected places with different roots not to be prefixes")
	}
}

func TestPlaceAllProperPrefixes(t *testing.T) {
	p := NewPlace("x").Field("f").Field("g")
	prefixes := p.AllProperPrefixes()
	if len(prefixes) != 2 {
		t.Fatalf("Expected 2 proper prefixes, got %d", len(prefixes))
	}
	if prefixes[0].String() != "x" || prefixes[1].String() != "x.f" {
		t.Errorf("Expected [x, x.f], got %v", prefixes)
	}
}

func TestPlaceReplacePrefix(t *testing.T) {
	src := NewPlace("x").Field("f")
	dst := NewPlace("y")
	p := NewPlace("x").Field("f").Field("g")

	got := p.ReplacePrefix(src, dst)
	if got.String() != "y.g" {
		t.Errorf("Expected y.g, got %s", got)
	}

	// A place without the prefix is returned unchanged.
	other := NewPlace("z").Field("g")
	if got := other.ReplacePrefix(src, dst); !got.Equal(other) {
		t.Errorf("Expected z.g to stay unchanged, got %s", got)
	}
}

func TestPlaceEqualIgnoresType(t *testing.T) {
	a := NewPlace("x").TypedField("f", RefType("Node"))
	b := NewPlace("x").Field("f")
	if !a.Equal(b) {
		t.Errorf("Expected type tags not to affect place identity")
	}
	if a.Key() != b.Key() {
		t.Errorf("Expected identical keys, got %s and %s", a.Key(), b.Key())
	}
}

func TestPlaceLess(t *testing.T) {
	tests := []struct {
		a, b Place
		less bool
	}{
		{NewPlace("a"), NewPlace("b"), true},
		{NewPlace("x"), NewPlace("x").Field("f"), true},
		{NewPlace("x").Field("f"), NewPlace("x").Field("g"), true},
		{NewPlace("x").Field("f"), NewPlace("x"), false},
		{NewPlace("x").Field("f"), NewPlace("x").Field("f"), false},
		{NewPlace("x").Field("f"), NewPlace("x").Variant("Some"), true},
	}
	for _, tt := range tests {
		if got := tt.a.Less(tt.b); got != tt.less {
			t.Errorf("%s.Less(%s) = %v, expected %v", tt.a, tt.b, got, tt.less)
		}
	}
}

func TestPlaceImmutability(t *testing.T) {
	base := NewPlace("x").Field("f")
	a := base.Field("g")
	b := base.Field("h")
	if a.String() != "x.f.g" || b.String() != "x.f.h" {
		t.Errorf("Extending a shared place must not alias, got %s and %s", a, b)
	}
}
