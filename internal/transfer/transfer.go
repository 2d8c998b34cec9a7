package transfer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/verilang/permfold/internal/vir"
)

// Transfer applies the per-statement permission semantics to a state. It
// is deterministic given (statement, prior state, predicate catalog) and
// total over the internally-produced statement grammar; malformed input is
// a contract violation and aborts the pass.
type Transfer struct {
	catalog *vir.Catalog
	log     *zap.Logger
}

// Option configures a Transfer.
type Option func(*Transfer)

// WithLogger injects the trace logger. Logging never influences the
// resulting state.
func WithLogger(log *zap.Logger) Option {
	return func(t *Transfer) {
		if log != nil {
			t.log = log
		}
	}
}

// New creates a Transfer over the given predicate catalog.
func New(catalog *vir.Catalog, opts ...Option) *Transfer {
	t := &Transfer{catalog: catalog, log: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply mutates state to reflect the effect of executing stmt.
func (t *Transfer) Apply(stmt vir.Stmt, state *State) {
	t.log.Debug("applying statement",
		zap.Stringer("stmt", stmt),
		zap.String("acc", state.DisplayAcc()),
		zap.String("pred", state.DisplayPred()),
	)
	switch s := stmt.(type) {
	case vir.CommentStmt, vir.LabelStmt, vir.AssertStmt, vir.ObtainStmt:
		// No effect on permissions.

	case vir.NewStmt:
		t.applyNew(s, state)

	case vir.InhaleStmt:
		state.InsertAll(vir.CollectFacts(s.Expr))

	case vir.ExhaleStmt:
		state.RemoveAll(vir.CollectFacts(s.Expr))

	case vir.MethodCallStmt:
		t.applyMethodCall(s, state)

	case vir.AssignStmt:
		t.applyAssign(s, state)

	case vir.FoldStmt:
		t.applyFold(s, state)

	case vir.UnfoldStmt:
		t.applyUnfold(s, state)

	default:
		violatef("unknown statement form %T", stmt)
	}
}

// ApplyAll applies a statement sequence in order.
func (t *Transfer) ApplyAll(stmts []vir.Stmt, state *State) {
	for _, s := range stmts {
		t.Apply(s, state)
	}
}

// Method runs a fresh state through every block of a method in order and
// returns the final state.
func (t *Transfer) Method(m *vir.Method) *State {
	state := NewState()
	for _, block := range m.Blocks {
		t.ApplyAll(block.Stmts, state)
	}
	return state
}

// applyNew drops every stale fact rooted at the variable and grants one
// access fact per listed field.
func (t *Transfer) applyNew(s vir.NewStmt, state *State) {
	state.RemovePredMatching(func(p vir.Place) bool {
		return p.Base() == s.Var.Name
	})
	state.RemoveAccMatching(func(p vir.Place) bool {
		return !p.IsBase() && p.Base() == s.Var.Name
	})
	base := vir.PlaceOfVar(s.Var)
	for _, f := range s.Fields {
		state.InsertAcc(base.TypedField(f.Name, f.Typ))
	}
}

// applyMethodCall havocs the call targets. Method preconditions and
// postconditions are trivial at this layer.
func (t *Transfer) applyMethodCall(s vir.MethodCallStmt, state *State) {
	targets := make(map[string]bool, len(s.Targets))
	for _, v := range s.Targets {
		targets[v.Name] = true
	}
	state.RemovePredMatching(func(p vir.Place) bool {
		return targets[p.Base()]
	})
	state.RemoveAccMatching(func(p vir.Place) bool {
		return !p.IsBase() && targets[p.Base()]
	})
}

// applyAssign drops the facts that lose their name under the assignment
// and, for a reference-typed source, moves the source's permissions over
// to the destination.
func (t *Transfer) applyAssign(s vir.AssignStmt, state *State) {
	original := state.Clone()

	state.RemovePredMatching(func(p vir.Place) bool {
		return p.HasPrefix(s.Lhs)
	})
	state.RemoveAccMatching(func(p vir.Place) bool {
		return p.HasProperPrefix(s.Lhs)
	})

	rhs, ok := s.Rhs.(vir.PlaceExpr)
	if !ok || !rhs.Place.Type().IsRef() {
		return
	}
	source := rhs.Place
	for _, prefix := range source.AllProperPrefixes() {
		if state.ContainsPred(prefix) {
			violatef("assign %s: prefix %s of the source is still folded", s, prefix)
		}
	}

	// Permission moves out of the source.
	state.RemovePredMatching(func(p vir.Place) bool {
		return p.HasPrefix(source)
	})
	state.RemoveAccMatching(func(p vir.Place) bool {
		return p.HasProperPrefix(source)
	})

	// The destination aliases what the source pointed to: rename every
	// fact of the pre-assignment state from the source prefix to the
	// destination.
	for _, p := range original.Acc() {
		if p.HasPrefix(source) {
			state.InsertAcc(p.ReplacePrefix(source, s.Lhs))
		}
	}
	for _, p := range original.Pred() {
		if p.HasPrefix(source) {
			state.InsertPred(p.ReplacePrefix(source, s.Lhs))
		}
	}
}

// applyFold exchanges the contained facts of a predicate instance for a
// single folded fact. Every contained fact must be held and the place
// must not already be folded. No access fact on the folded place itself
// is required, despite the usual statement of the fold precondition:
// bare locals carry none, so they could never be folded right after new.
func (t *Transfer) applyFold(s vir.FoldStmt, state *State) {
	place := s.Arg
	if state.ContainsPred(place) {
		violatef("fold %s: place already holds a folded predicate", s)
	}
	facts := t.containedFacts(s.Predicate, place)
	for _, f := range facts {
		if !state.Contains(f) {
			violatef("fold %s: missing %s", s, f)
		}
	}
	state.RemoveAll(facts)
	state.InsertPred(place)
}

func (t *Transfer) applyUnfold(s vir.UnfoldStmt, state *State) {
	place := s.Arg
	if !state.ContainsPred(place) {
		violatef("unfold %s: place holds no folded predicate", s)
	}
	facts := t.containedFacts(s.Predicate, place)
	state.RemovePred(place)
	state.InsertAll(facts)
}

// containedFacts computes the sub-permission facts of a predicate with
// its self parameter substituted by place.
func (t *Transfer) containedFacts(predicate string, place vir.Place) []vir.Fact {
	def, ok := t.catalog.Lookup(predicate)
	if !ok {
		violatef("predicate %s is not in the catalog", predicate)
	}
	self := def.Self()
	contained := def.ContainedFacts()
	facts := make([]vir.Fact, len(contained))
	for i, f := range contained {
		facts[i] = f.Map(func(p vir.Place) vir.Place {
			return p.ReplacePrefix(self, place)
		})
	}
	return facts
}

// violatef aborts the pass. A contract violation signals a bug in an
// upstream stage; continuing would produce an unsound permission state.
func violatef(format string, args ...any) {
	panic(fmt.Sprintf("transfer: "+format, args...))
}
