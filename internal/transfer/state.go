package transfer

import (
	"sort"
	"strings"

	"github.com/verilang/permfold/internal/vir"
)

// State is the symbolic permission state at one program point: the set of
// individually held field access permissions (acc) and the set of folded
// aggregate permissions (pred). A place present in pred denotes that the
// entire aggregate is folded; its internals are then not separately
// present in either set.
//
// One State instance flows along one control-flow path and is owned
// exclusively by that walk.
type State struct {
	acc  map[string]vir.Place
	pred map[string]vir.Place
}

// NewState creates an empty permission state.
func NewState() *State {
	return &State{
		acc:  make(map[string]vir.Place),
		pred: make(map[string]vir.Place),
	}
}

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	c := NewState()
	for k, p := range s.acc {
		c.acc[k] = p
	}
	for k, p := range s.pred {
		c.pred[k] = p
	}
	return c
}

// ContainsAcc reports whether the access fact on p is held.
func (s *State) ContainsAcc(p vir.Place) bool {
	_, ok := s.acc[p.Key()]
	return ok
}

// ContainsPred reports whether the folded predicate fact on p is held.
func (s *State) ContainsPred(p vir.Place) bool {
	_, ok := s.pred[p.Key()]
	return ok
}

// Contains reports whether the fact is held.
func (s *State) Contains(f vir.Fact) bool {
	if f.Kind == vir.PredFact {
		return s.ContainsPred(f.Place)
	}
	return s.ContainsAcc(f.Place)
}

// InsertAcc adds an access fact.
func (s *State) InsertAcc(p vir.Place) {
	s.acc[p.Key()] = p
}

// InsertPred adds a folded predicate fact.
func (s *State) InsertPred(p vir.Place) {
	s.pred[p.Key()] = p
}

// Insert adds a fact to the matching set.
func (s *State) Insert(f vir.Fact) {
	if f.Kind == vir.PredFact {
		s.InsertPred(f.Place)
	} else {
		s.InsertAcc(f.Place)
	}
}

// InsertAll adds every fact.
func (s *State) InsertAll(facts []vir.Fact) {
	for _, f := range facts {
		s.Insert(f)
	}
}

// RemoveAcc removes an access fact if present.
func (s *State) RemoveAcc(p vir.Place) {
	delete(s.acc, p.Key())
}

// RemovePred removes a folded predicate fact if present.
func (s *State) RemovePred(p vir.Place) {
	delete(s.pred, p.Key())
}

// Remove removes a fact from the matching set.
func (s *State) Remove(f vir.Fact) {
	if f.Kind == vir.PredFact {
		s.RemovePred(f.Place)
	} else {
		s.RemoveAcc(f.Place)
	}
}

// RemoveAll removes every fact.
func (s *State) RemoveAll(facts []vir.Fact) {
	for _, f := range facts {
		s.Remove(f)
	}
}

// RemoveAccMatching removes every access fact whose place satisfies match.
func (s *State) RemoveAccMatching(match func(vir.Place) bool) {
	for k, p := range s.acc {
		if match(p) {
			delete(s.acc, k)
		}
	}
}

// RemovePredMatching removes every folded fact whose place satisfies
// match.
func (s *State) RemovePredMatching(match func(vir.Place) bool) {
	for k, p := range s.pred {
		if match(p) {
			delete(s.pred, k)
		}
	}
}

// Acc returns the held access places in deterministic order.
func (s *State) Acc() []vir.Place {
	return sortedPlaces(s.acc)
}

// Pred returns the held folded places in deterministic order.
func (s *State) Pred() []vir.Place {
	return sortedPlaces(s.pred)
}

func sortedPlaces(m map[string]vir.Place) []vir.Place {
	places := make([]vir.Place, 0, len(m))
	for _, p := range m {
		places = append(places, p)
	}
	sort.Slice(places, func(i, j int) bool { return places[i].Less(places[j]) })
	return places
}

// DisplayAcc renders the acc set for tracing.
func (s *State) DisplayAcc() string {
	return displayPlaces(s.Acc())
}

// DisplayPred renders the pred set for tracing.
func (s *State) DisplayPred() string {
	return displayPlaces(s.Pred())
}

func displayPlaces(places []vir.Place) string {
	parts := make([]string, len(places))
	for i, p := range places {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
