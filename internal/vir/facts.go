package vir

// CollectFacts returns the permission facts asserted by the
// permission-yielding sub-terms of an expression: one access fact per
// field access permission and one folded fact per predicate access
// predicate. Definitions are not expanded.
func CollectFacts(e Expr) []Fact {
	var out []Fact
	collectFacts(e, &out)
	return out
}

func collectFacts(e Expr, out *[]Fact) {
	switch e := e.(type) {
	case FieldAccessPermExpr:
		*out = append(*out, Acc(e.Place))
	case PredicateAccessExpr:
		*out = append(*out, Pred(e.Arg))
	case UnaryExpr:
		collectFacts(e.Operand, out)
	case BinaryExpr:
		collectFacts(e.Left, out)
		collectFacts(e.Right, out)
	case CondExpr:
		collectFacts(e.Guard, out)
		collectFacts(e.Then, out)
		collectFacts(e.Else, out)
	case UnfoldingExpr:
		collectFacts(e.Body, out)
	case ForallExpr:
		collectFacts(e.Body, out)
	case LetExpr:
		collectFacts(e.Def, out)
		collectFacts(e.Body, out)
	}
}
