package folding

import (
	"testing"

	"github.com/verilang/permfold/internal/vir"
)

func isDefaultDiscriminant(name string) bool {
	return name == vir.DefaultDiscriminantField
}

func reqs(places ...vir.Place) RequirementSet {
	s := RequirementSet{}
	for _, p := range places {
		s.Insert(p)
	}
	return s
}

func TestCheckConflictsDisjointRoots(t *testing.T) {
	a := reqs(vir.NewPlace("x").Field("f"))
	b := reqs(vir.NewPlace("y").Field("g"))
	if got := checkConflicts(a, b, isDefaultDiscriminant); len(got) != 0 {
		t.Errorf("Expected no conflict between disjoint roots, got %v", got.Places())
	}
}

func TestCheckConflictsDepthMismatch(t *testing.T) {
	x := vir.NewPlace("x")
	// One side needs x.f itself, the other needs x.f.g: the same storage
	// at two different unfold depths.
	a := reqs(x.Field("f"))
	b := reqs(x.Field("f").Field("g"))

	got := checkConflicts(a, b, isDefaultDiscriminant)
	if len(got) != 1 || !got.Contains(x) {
		t.Errorf("Expected a conflict on base x, got %v", got.Places())
	}

	// Symmetric in the argument order.
	got = checkConflicts(b, a, isDefaultDiscriminant)
	if len(got) != 1 || !got.Contains(x) {
		t.Errorf("Expected the symmetric conflict on base x, got %v", got.Places())
	}
}

func TestCheckConflictsPrefixAlsoRequired(t *testing.T) {
	x := vir.NewPlace("x")
	// The longer side also requires the shorter place, so both sides agree
	// on the unfold depth of x.f.
	a := reqs(x.Field("f"))
	b := reqs(x.Field("f"), x.Field("f").Field("g"))

	if got := checkConflicts(a, b, isDefaultDiscriminant); len(got) != 0 {
		t.Errorf("Expected no conflict when the prefix is shared, got %v", got.Places())
	}
}

func TestCheckConflictsVariantDivergence(t *testing.T) {
	x := vir.NewPlace("x")
	a := reqs(x.Variant("Some").Field("value"))
	b := reqs(x.Variant("None").Field("marker"))

	got := checkConflicts(a, b, isDefaultDiscriminant)
	if len(got) != 1 || !got.Contains(x) {
		t.Errorf("Expected a conflict on diverging variants, got %v", got.Places())
	}
}

func TestCheckConflictsVariantDivergenceAtEnd(t *testing.T) {
	x := vir.NewPlace("x")
	// Divergence on the final component of both paths is tolerated.
	a := reqs(x.Variant("Some"))
	b := reqs(x.Variant("None"))

	if got := checkConflicts(a, b, isDefaultDiscriminant); len(got) != 0 {
		t.Errorf("Expected no conflict on final-component divergence, got %v", got.Places())
	}
}

func TestCheckConflictsDiscriminantDivergence(t *testing.T) {
	x := vir.NewPlace("x")
	a := reqs(x.Variant("Some").Field("value"))
	b := reqs(x.Field("discriminant").Field("anything"))

	got := checkConflicts(a, b, isDefaultDiscriminant)
	if len(got) != 1 || !got.Contains(x) {
		t.Errorf("Expected a conflict between variant and discriminant, got %v", got.Places())
	}

	// A non-discriminant field diverging from a variant at the end of both
	// paths is fine.
	c := reqs(x.Variant("Some"))
	d := reqs(x.Field("len"))
	if got := checkConflicts(c, d, isDefaultDiscriminant); len(got) != 0 {
		t.Errorf("Expected no conflict for a plain field, got %v", got.Places())
	}
}

func TestSplitUnfoldings(t *testing.T) {
	x := vir.NewPlace("x")
	y := vir.NewPlace("y")
	unfoldings := UnfoldingMap{}
	unfoldings.Insert(Unfolding{Arg: x.Field("f"), Predicate: "P"})
	unfoldings.Insert(Unfolding{Arg: y, Predicate: "Q"})

	restore, keep := splitUnfoldings(unfoldings, reqs(x))
	if len(restore) != 1 {
		t.Fatalf("Expected 1 restored unfolding, got %d", len(restore))
	}
	if restore[x.Field("f").Key()].Predicate != "P" {
		t.Errorf("Expected P on x.f to be restored")
	}
	if len(keep) != 1 {
		t.Fatalf("Expected 1 kept unfolding, got %d", len(keep))
	}
	if keep[y.Key()].Predicate != "Q" {
		t.Errorf("Expected Q on y to stay pending")
	}
}

func TestCommonUnfoldings2(t *testing.T) {
	x := vir.NewPlace("x")
	y := vir.NewPlace("y")
	z := vir.NewPlace("z")

	first := UnfoldingMap{}
	first.Insert(Unfolding{Arg: x, Predicate: "P"})
	first.Insert(Unfolding{Arg: y, Predicate: "Q"})
	second := UnfoldingMap{}
	second.Insert(Unfolding{Arg: x, Predicate: "P"})
	second.Insert(Unfolding{Arg: z, Predicate: "R"})

	common, firstOwn, secondOwn := commonUnfoldings2(first, second)
	if len(common) != 1 || common[x.Key()].Predicate != "P" {
		t.Errorf("Expected P on x to be common")
	}
	if len(firstOwn) != 1 || firstOwn[y.Key()].Predicate != "Q" {
		t.Errorf("Expected Q on y to stay with the first side")
	}
	if len(secondOwn) != 1 || secondOwn[z.Key()].Predicate != "R" {
		t.Errorf("Expected R on z to stay with the second side")
	}
}

func TestCommonUnfoldings3(t *testing.T) {
	x := vir.NewPlace("x")

	first := UnfoldingMap{}
	first.Insert(Unfolding{Arg: x, Predicate: "P"})
	second := UnfoldingMap{}
	second.Insert(Unfolding{Arg: x, Predicate: "P"})
	// The third branch never touches x: it agrees implicitly.
	third := UnfoldingMap{}

	common, firstOwn, secondOwn, thirdOwn := commonUnfoldings3(
		first, reqs(x.Field("f")),
		second, reqs(x.Field("f")),
		third, reqs(vir.NewPlace("y")),
	)
	if len(common) != 1 || common[x.Key()].Predicate != "P" {
		t.Errorf("Expected P on x to be common to all branches")
	}
	if len(firstOwn) != 0 || len(secondOwn) != 0 || len(thirdOwn) != 0 {
		t.Errorf("Expected no branch-local unfoldings, got %d/%d/%d",
			len(firstOwn), len(secondOwn), len(thirdOwn))
	}
}

func TestCommonUnfoldings3Disagreement(t *testing.T) {
	x := vir.NewPlace("x")

	first := UnfoldingMap{}
	first.Insert(Unfolding{Arg: x, Predicate: "P"})
	second := UnfoldingMap{}
	// The third branch requires a place under x without holding the
	// unfolding, so it disagrees.
	third := UnfoldingMap{}

	common, firstOwn, _, _ := commonUnfoldings3(
		first, reqs(x.Field("f")),
		second, reqs(vir.NewPlace("y")),
		third, reqs(x.Field("g")),
	)
	if len(common) != 0 {
		t.Errorf("Expected no common unfoldings, got %d", len(common))
	}
	if len(firstOwn) != 1 || firstOwn[x.Key()].Predicate != "P" {
		t.Errorf("Expected P on x to stay with the first branch")
	}
}

func TestCommonUnfoldings3EmptyFirstBranch(t *testing.T) {
	x := vir.NewPlace("x")

	// The guard holds no unfoldings; agreement between the branches must
	// still be detected.
	first := UnfoldingMap{}
	second := UnfoldingMap{}
	second.Insert(Unfolding{Arg: x, Predicate: "P"})
	third := UnfoldingMap{}
	third.Insert(Unfolding{Arg: x, Predicate: "P"})

	common, firstOwn, secondOwn, thirdOwn := commonUnfoldings3(
		first, reqs(vir.NewPlace("g")),
		second, reqs(x.Field("f")),
		third, reqs(x.Field("f")),
	)
	if len(common) != 1 || common[x.Key()].Predicate != "P" {
		t.Errorf("Expected P on x to be common despite the empty first branch")
	}
	if len(firstOwn) != 0 || len(secondOwn) != 0 || len(thirdOwn) != 0 {
		t.Errorf("Expected no branch-local unfoldings, got %d/%d/%d",
			len(firstOwn), len(secondOwn), len(thirdOwn))
	}
}

func TestUpdateRequirements(t *testing.T) {
	x := vir.NewPlace("x")
	requirements := reqs(x.Field("f").Field("g"), x.Field("f").Field("h"), vir.NewPlace("y"))

	updateRequirements(requirements, []vir.Place{x.Field("f")})

	if requirements.Contains(x.Field("f").Field("g")) || requirements.Contains(x.Field("f").Field("h")) {
		t.Errorf("Expected requirements under the restored place to be dropped")
	}
	if !requirements.Contains(x.Field("f")) {
		t.Errorf("Expected the restored place itself to be required")
	}
	if !requirements.Contains(vir.NewPlace("y")) {
		t.Errorf("Expected unrelated requirements to survive")
	}
}

func TestRestoreUnfoldingsOrder(t *testing.T) {
	x := vir.NewPlace("x")
	unfoldings := UnfoldingMap{}
	unfoldings.Insert(Unfolding{Arg: x, Predicate: "Outer", Perm: vir.WritePerm})
	unfoldings.Insert(Unfolding{Arg: x.Field("f"), Predicate: "Inner", Perm: vir.WritePerm})

	result := restoreUnfoldings(unfoldings, vir.PlaceOf(x.Field("f").Field("g")))

	outer, ok := result.(vir.UnfoldingExpr)
	if !ok {
		t.Fatalf("Expected an unfolding at the root, got %T", result)
	}
	if outer.Predicate != "Outer" {
		t.Errorf("Expected the prefix place to be unfolded outermost, got %s", outer.Predicate)
	}
	inner, ok := outer.Body.(vir.UnfoldingExpr)
	if !ok {
		t.Fatalf("Expected a nested unfolding, got %T", outer.Body)
	}
	if inner.Predicate != "Inner" {
		t.Errorf("Expected the deeper place unfolded innermost, got %s", inner.Predicate)
	}
}

func TestRestoreUnfoldingsEmpty(t *testing.T) {
	body := vir.PlaceOf(vir.NewPlace("x"))
	if got := restoreUnfoldings(UnfoldingMap{}, body); got.String() != body.String() {
		t.Errorf("Expected the expression unchanged, got %s", got)
	}
}
