package transfer

import (
	"testing"

	"github.com/verilang/permfold/internal/vir"
)

// nodeCatalog defines Node(self) with an integer value and a folded next
// pointer.
func nodeCatalog() *vir.Catalog {
	c := vir.NewCatalog()
	self := vir.NewPlace("self")
	c.Add(&vir.StructPredicate{
		PredName:  "Node",
		SelfPlace: self,
		Body: []vir.Fact{
			vir.Acc(self.Field("value")),
			vir.Pred(self.Field("next")),
		},
	})
	return c
}

func optionCatalog() *vir.Catalog {
	c := vir.NewCatalog()
	self := vir.NewPlace("self")
	c.Add(&vir.EnumPredicate{
		PredName:     "Option",
		SelfPlace:    self,
		Discriminant: self.Field("discriminant"),
		Variants: []vir.EnumVariant{
			{Name: "None"},
			{Name: "Some"},
		},
	})
	return c
}

func TestApplyNew(t *testing.T) {
	tr := New(nodeCatalog())
	state := NewState()
	x := vir.NewPlace("x")

	// Stale facts from a previous life of the variable.
	state.InsertPred(x)
	state.InsertAcc(x.Field("old"))
	state.InsertAcc(x)

	tr.Apply(vir.NewStmt{
		Var: vir.Var{Name: "x", Typ: vir.RefType("Node")},
		Fields: []vir.Field{
			{Name: "value", Typ: vir.IntType()},
			{Name: "next", Typ: vir.RefType("Node")},
		},
	}, state)

	if state.ContainsPred(x) || state.ContainsAcc(x.Field("old")) {
		t.Errorf("Expected stale facts dropped, acc=%s pred=%s", state.DisplayAcc(), state.DisplayPred())
	}
	if !state.ContainsAcc(x) {
		t.Errorf("Expected the base access fact to survive")
	}
	if !state.ContainsAcc(x.Field("value")) || !state.ContainsAcc(x.Field("next")) {
		t.Errorf("Expected one access fact per field, got %s", state.DisplayAcc())
	}
}

func TestApplyInhaleExhale(t *testing.T) {
	tr := New(nodeCatalog())
	state := NewState()
	x := vir.NewPlace("x")

	tr.Apply(vir.InhaleStmt{Expr: vir.And(
		vir.AccField(x.Field("value"), vir.WritePerm),
		vir.AccPredicate("Node", x.Field("next"), vir.WritePerm),
	)}, state)

	if !state.ContainsAcc(x.Field("value")) || !state.ContainsPred(x.Field("next")) {
		t.Fatalf("Expected the inhaled facts held, acc=%s pred=%s", state.DisplayAcc(), state.DisplayPred())
	}

	tr.Apply(vir.ExhaleStmt{Expr: vir.AccField(x.Field("value"), vir.WritePerm)}, state)
	if state.ContainsAcc(x.Field("value")) {
		t.Errorf("Expected the exhaled fact dropped")
	}
	if !state.ContainsPred(x.Field("next")) {
		t.Errorf("Expected unrelated facts to survive the exhale")
	}
}

func TestApplyMethodCallHavocsTargets(t *testing.T) {
	tr := New(nodeCatalog())
	state := NewState()
	x := vir.NewPlace("x")
	y := vir.NewPlace("y")
	state.InsertAcc(x)
	state.InsertAcc(x.Field("value"))
	state.InsertPred(x)
	state.InsertPred(y)

	tr.Apply(vir.MethodCallStmt{
		Method:  "mutate",
		Args:    []vir.Expr{vir.PlaceOf(x)},
		Targets: []vir.Var{{Name: "x", Typ: vir.RefType("Node")}},
	}, state)

	if state.ContainsPred(x) || state.ContainsAcc(x.Field("value")) {
		t.Errorf("Expected target facts havoced, acc=%s pred=%s", state.DisplayAcc(), state.DisplayPred())
	}
	if !state.ContainsAcc(x) {
		t.Errorf("Expected the target's base access fact to survive")
	}
	if !state.ContainsPred(y) {
		t.Errorf("Expected non-target facts to survive")
	}
}

func TestApplyFoldUnfoldRoundTrip(t *testing.T) {
	tr := New(nodeCatalog())
	state := NewState()
	x := vir.NewPlace("x")
	state.InsertAcc(x)
	state.InsertAcc(x.Field("value"))
	state.InsertPred(x.Field("next"))

	before := state.Clone()

	tr.Apply(vir.FoldStmt{Predicate: "Node", Arg: x}, state)
	if !state.ContainsPred(x) {
		t.Fatalf("Expected pred(x) after fold, got %s", state.DisplayPred())
	}
	if state.ContainsAcc(x.Field("value")) || state.ContainsPred(x.Field("next")) {
		t.Errorf("Expected the contained facts consumed by the fold")
	}

	tr.Apply(vir.UnfoldStmt{Predicate: "Node", Arg: x}, state)
	if state.DisplayAcc() != before.DisplayAcc() || state.DisplayPred() != before.DisplayPred() {
		t.Errorf("Expected fold/unfold to round-trip, acc=%s pred=%s", state.DisplayAcc(), state.DisplayPred())
	}
}

func TestApplyFoldEnum(t *testing.T) {
	tr := New(optionCatalog())
	state := NewState()
	x := vir.NewPlace("x")
	state.InsertAcc(x)
	state.InsertAcc(x.Field("discriminant"))
	state.InsertPred(x.Variant("None"))
	state.InsertPred(x.Variant("Some"))

	tr.Apply(vir.FoldStmt{Predicate: "Option", Arg: x}, state)
	if !state.ContainsPred(x) {
		t.Fatalf("Expected pred(x) after fold, got %s", state.DisplayPred())
	}
	if state.ContainsAcc(x.Field("discriminant")) || state.ContainsPred(x.Variant("Some")) {
		t.Errorf("Expected the variant facts consumed by the fold")
	}

	tr.Apply(vir.UnfoldStmt{Predicate: "Option", Arg: x}, state)
	if !state.ContainsAcc(x.Field("discriminant")) ||
		!state.ContainsPred(x.Variant("None")) ||
		!state.ContainsPred(x.Variant("Some")) {
		t.Errorf("Expected the variant facts back after unfold, acc=%s pred=%s",
			state.DisplayAcc(), state.DisplayPred())
	}
}

func TestApplyFoldViolations(t *testing.T) {
	tr := New(nodeCatalog())
	x := vir.NewPlace("x")

	expectViolation(t, "fold without the contained facts", func() {
		tr.Apply(vir.FoldStmt{Predicate: "Node", Arg: x}, NewState())
	})

	expectViolation(t, "fold of an already folded place", func() {
		state := NewState()
		state.InsertAcc(x)
		state.InsertPred(x)
		tr.Apply(vir.FoldStmt{Predicate: "Node", Arg: x}, state)
	})

	expectViolation(t, "unfold without the folded fact", func() {
		tr.Apply(vir.UnfoldStmt{Predicate: "Node", Arg: x}, NewState())
	})

	expectViolation(t, "unknown predicate", func() {
		state := NewState()
		state.InsertPred(x)
		tr.Apply(vir.UnfoldStmt{Predicate: "Missing", Arg: x}, state)
	})
}

func TestApplyAssignNonRef(t *testing.T) {
	tr := New(nodeCatalog())
	state := NewState()
	x := vir.NewPlace("x")
	state.InsertAcc(x.Field("value"))
	state.InsertPred(x.Field("value"))
	state.InsertAcc(x.Field("other"))

	tr.Apply(vir.AssignStmt{
		Lhs: x.Field("value"),
		Rhs: vir.IntLit(7),
	}, state)

	if state.ContainsPred(x.Field("value")) {
		t.Errorf("Expected the folded fact at the destination dropped")
	}
	if !state.ContainsAcc(x.Field("value")) {
		t.Errorf("Expected the access fact at the destination itself to survive")
	}
	if !state.ContainsAcc(x.Field("other")) {
		t.Errorf("Expected unrelated facts to survive")
	}
}

func TestApplyAssignRefMovesPermissions(t *testing.T) {
	tr := New(nodeCatalog())
	state := NewState()
	x := vir.NewPlace("x")
	y := vir.NewPlace("y")
	source := y.Field("next")
	state.InsertAcc(source)
	state.InsertAcc(source.Field("value"))
	state.InsertPred(source.Field("next"))

	tr.Apply(vir.AssignStmt{
		Lhs: x,
		Rhs: vir.PlaceExpr{Place: source.WithType(vir.RefType("Node"))},
	}, state)

	if state.ContainsAcc(source.Field("value")) || state.ContainsPred(source.Field("next")) {
		t.Errorf("Expected the source's inner facts moved out, acc=%s pred=%s",
			state.DisplayAcc(), state.DisplayPred())
	}
	if !state.ContainsAcc(x.Field("value")) || !state.ContainsPred(x.Field("next")) {
		t.Errorf("Expected the facts renamed to the destination, acc=%s pred=%s",
			state.DisplayAcc(), state.DisplayPred())
	}
	if !state.ContainsAcc(x) {
		t.Errorf("Expected the source's own access fact renamed to the destination")
	}
}

func TestApplyAssignRefFoldedPrefixViolation(t *testing.T) {
	tr := New(nodeCatalog())
	state := NewState()
	y := vir.NewPlace("y")
	state.InsertPred(y)

	expectViolation(t, "assign from under a folded prefix", func() {
		tr.Apply(vir.AssignStmt{
			Lhs: vir.NewPlace("x"),
			Rhs: vir.PlaceExpr{Place: y.Field("next").WithType(vir.RefType("Node"))},
		}, state)
	})
}

func TestApplyNoOpStatements(t *testing.T) {
	tr := New(nodeCatalog())
	state := NewState()
	x := vir.NewPlace("x")
	state.InsertAcc(x.Field("value"))

	stmts := []vir.Stmt{
		vir.CommentStmt{Text: "note"},
		vir.LabelStmt{Name: "l0"},
		vir.AssertStmt{Expr: vir.BoolLit(true)},
		vir.ObtainStmt{Expr: vir.AccField(x.Field("value"), vir.WritePerm)},
	}
	tr.ApplyAll(stmts, state)

	if state.DisplayAcc() != "{x.value}" || state.DisplayPred() != "{}" {
		t.Errorf("Expected the state unchanged, acc=%s pred=%s", state.DisplayAcc(), state.DisplayPred())
	}
}

func TestMethodRunsBlocksInOrder(t *testing.T) {
	tr := New(nodeCatalog())
	x := vir.NewPlace("x")
	m := &vir.Method{
		Name: "build",
		Blocks: []vir.BasicBlock{
			{Label: "entry", Stmts: []vir.Stmt{
				vir.NewStmt{
					Var: vir.Var{Name: "x", Typ: vir.RefType("Node")},
					Fields: []vir.Field{
						{Name: "value", Typ: vir.IntType()},
						{Name: "next", Typ: vir.RefType("Node")},
					},
				},
				vir.InhaleStmt{Expr: vir.AccPredicate("Node", x.Field("next"), vir.WritePerm)},
			}},
			{Label: "exit", Stmts: []vir.Stmt{
				vir.FoldStmt{Predicate: "Node", Arg: x},
			}},
		},
	}

	state := tr.Method(m)
	if !state.ContainsPred(x) {
		t.Errorf("Expected pred(x) at method exit, got %s", state.DisplayPred())
	}
	if state.ContainsAcc(x.Field("value")) {
		t.Errorf("Expected the folded contents consumed, got %s", state.DisplayAcc())
	}
}

func expectViolation(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("Expected a contract violation for %s", name)
		}
	}()
	f()
}
