package folding

import (
	"sort"

	"github.com/verilang/permfold/internal/vir"
)

// Unfolding is one pending unfold marker: the predicate's self argument
// together with what is needed to re-create the wrapper.
type Unfolding struct {
	Arg       vir.Place
	Predicate string
	Perm      vir.PermAmount
	Variant   string
}

// UnfoldingMap maps a place (by canonical key) to the unfolding pending on
// it. It is built and fully drained within one optimizer invocation.
type UnfoldingMap map[string]Unfolding

// Insert records a pending unfolding, replacing any previous one on the
// same place.
func (m UnfoldingMap) Insert(u Unfolding) {
	m[u.Arg.Key()] = u
}

// Extend moves every entry of other into m.
func (m UnfoldingMap) Extend(other UnfoldingMap) {
	for k, u := range other {
		m[k] = u
	}
}

// Places returns the keyed places of the map.
func (m UnfoldingMap) Places() []vir.Place {
	places := make([]vir.Place, 0, len(m))
	for _, u := range m {
		places = append(places, u.Arg)
	}
	return places
}

// RequirementSet is a set of places the surrounding expression needs to
// reference at a concrete unfold depth.
type RequirementSet map[string]vir.Place

// Insert adds a required place.
func (s RequirementSet) Insert(p vir.Place) {
	s[p.Key()] = p
}

// Contains reports whether the exact place is required.
func (s RequirementSet) Contains(p vir.Place) bool {
	_, ok := s[p.Key()]
	return ok
}

// Extend adds every place of other.
func (s RequirementSet) Extend(other RequirementSet) {
	for k, p := range other {
		s[k] = p
	}
}

// Places returns the required places in the deterministic place order.
func (s RequirementSet) Places() []vir.Place {
	places := make([]vir.Place, 0, len(s))
	for _, p := range s {
		places = append(places, p)
	}
	sort.Slice(places, func(i, j int) bool { return places[i].Less(places[j]) })
	return places
}

// checkConflicts detects requirement pairs that cannot be satisfied by one
// shared unfolding and returns the base places of the conflicting paths.
// An empty result means the two sets can be merged as-is.
//
// A pair conflicts when:
//  1. one place is a strict prefix of the other and the shorter place is
//     not itself required by the longer place's side (the same storage is
//     needed unfolded to two different depths), or
//  2. both share a root, neither is a prefix of the other, and the paths
//     diverge on a variant tag (or on a variant tag against the
//     discriminant selector field) anywhere but the final component.
//     Divergence at the final component is tolerated: the synthesizer can
//     still unfold the variant under an implication on the discriminant.
func checkConflicts(reqs1, reqs2 RequirementSet, isDiscriminant func(string) bool) RequirementSet {
	conflicts := RequirementSet{}
	for _, place1 := range reqs1 {
		for _, place2 := range reqs2 {
			base1, comps1 := place1.Explode()
			base2, comps2 := place2.Explode()
			switch {
			case place1.HasProperPrefix(place2) && !reqs1.Contains(place2):
				conflicts.Insert(vir.NewPlace(base2))
			case place2.HasProperPrefix(place1) && !reqs2.Contains(place1):
				conflicts.Insert(vir.NewPlace(base1))
			case base1 == base2 && !place1.HasPrefix(place2) && !place2.HasPrefix(place1):
				n := len(comps1)
				if len(comps2) < n {
					n = len(comps2)
				}
				for i := 0; i < n; i++ {
					part1, part2 := comps1[i], comps2[i]
					if part1 == part2 {
						continue
					}
					atEnd := i == len(comps1)-1 && i == len(comps2)-1
					if variantDivergence(part1, part2, isDiscriminant) && !atEnd {
						conflicts.Insert(vir.NewPlace(base1))
					}
					break
				}
			}
		}
	}
	return conflicts
}

func variantDivergence(a, b vir.Component, isDiscriminant func(string) bool) bool {
	if a.Kind == vir.VariantComponent && b.Kind == vir.VariantComponent {
		return true
	}
	// A variant tag against the discriminant selector field means the
	// permission is accessed conditionally on the discriminant.
	if a.Kind == vir.VariantComponent && b.Kind == vir.FieldComponent {
		return isDiscriminant(b.Name)
	}
	if a.Kind == vir.FieldComponent && b.Kind == vir.VariantComponent {
		return isDiscriminant(a.Name)
	}
	return false
}

// splitUnfoldings partitions the pending map into unfoldings that must be
// restored now (their place extends a conflicting base) and those that may
// stay pending.
func splitUnfoldings(unfoldings UnfoldingMap, conflicts RequirementSet) (restore, keep UnfoldingMap) {
	restore = UnfoldingMap{}
	keep = UnfoldingMap{}
	for k, u := range unfoldings {
		conflicting := false
		for _, c := range conflicts {
			if u.Arg.HasPrefix(c) {
				conflicting = true
				break
			}
		}
		if conflicting {
			restore[k] = u
		} else {
			keep[k] = u
		}
	}
	return restore, keep
}

// commonUnfoldings2 factors out unfoldings present verbatim in both maps.
// The inputs are consumed.
func commonUnfoldings2(first, second UnfoldingMap) (common, firstOwn, secondOwn UnfoldingMap) {
	common = UnfoldingMap{}
	firstOwn = UnfoldingMap{}
	for k, u := range first {
		if _, ok := second[k]; ok {
			delete(second, k)
			common[k] = u
		} else {
			firstOwn[k] = u
		}
	}
	return common, firstOwn, second
}

// commonUnfoldings3 factors out unfoldings that all three branches agree
// on. A branch agrees when it holds the same pending unfolding or has no
// requirement that descends into the unfolded place (it neither needs nor
// forbids it). The inputs are consumed.
func commonUnfoldings3(
	first UnfoldingMap, firstReqs RequirementSet,
	second UnfoldingMap, secondReqs RequirementSet,
	third UnfoldingMap, thirdReqs RequirementSet,
) (common, firstOwn, secondOwn, thirdOwn UnfoldingMap) {
	common = UnfoldingMap{}
	firstOwn = UnfoldingMap{}
	// Iterate over a non-empty map so an empty first branch cannot hide
	// agreements between the other two.
	swapped := len(first) == 0
	if swapped {
		first, second = second, first
		firstReqs, secondReqs = secondReqs, firstReqs
	}
	for k, u := range first {
		if branchAgrees(second, secondReqs, u) && branchAgrees(third, thirdReqs, u) {
			delete(second, k)
			delete(third, k)
			common[k] = u
		} else {
			firstOwn[k] = u
		}
	}
	if swapped {
		return common, second, firstOwn, third
	}
	return common, firstOwn, second, third
}

func branchAgrees(unfoldings UnfoldingMap, reqs RequirementSet, u Unfolding) bool {
	if _, ok := unfoldings[u.Arg.Key()]; ok {
		return true
	}
	for _, p := range reqs {
		if p.HasPrefix(u.Arg) {
			return false
		}
	}
	return true
}

// updateRequirements records freshly restored places into the requirement
// set. Restored places are processed in descending depth order so the most
// specific requirements are asserted last: any requirement extending a
// restored place is dropped and the restored place itself inserted.
func updateRequirements(requirements RequirementSet, restored []vir.Place) {
	sort.Slice(restored, func(i, j int) bool {
		di, dj := restored[i].Depth(), restored[j].Depth()
		if di != dj {
			return di > dj
		}
		return restored[i].Less(restored[j])
	})
	for _, place := range restored {
		for k, p := range requirements {
			if p.HasPrefix(place) {
				delete(requirements, k)
			}
		}
		requirements.Insert(place)
	}
}

// restoreUnfoldings re-wraps the pending unfoldings around an expression
// in canonical order: ascending base name, deeper places before their
// prefixes (so the narrowest unfold sits closest to the leaf), place order
// as the final tie-break. The innermost expression keeps its source
// position.
func restoreUnfoldings(unfoldings UnfoldingMap, expr vir.Expr) vir.Expr {
	entries := make([]Unfolding, 0, len(unfoldings))
	for _, u := range unfoldings {
		entries = append(entries, u)
	}
	sort.Slice(entries, func(i, j int) bool {
		ki, kj := entries[i].Arg, entries[j].Arg
		if ki.Equal(kj) {
			return false
		}
		if ki.Base() != kj.Base() {
			return ki.Base() < kj.Base()
		}
		if kj.HasPrefix(ki) {
			return false
		}
		if ki.HasPrefix(kj) {
			return true
		}
		return ki.Less(kj)
	})
	for _, u := range entries {
		expr = vir.UnfoldingExpr{
			Predicate: u.Predicate,
			Arg:       u.Arg,
			Body:      expr,
			Perm:      u.Perm,
			Variant:   u.Variant,
			Position:  expr.Pos(),
		}
	}
	return expr
}
