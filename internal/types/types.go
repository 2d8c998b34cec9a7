package types

// Report is the outcome of processing one verification unit: the final
// permission state per method and the unfolding counts per optimized
// function body.
type Report struct {
	Filename  string
	Unit      string
	Methods   []MethodReport
	Functions []FunctionReport
}

// MethodReport holds the permission state at the end of a method.
type MethodReport struct {
	Method string
	Acc    []string
	Pred   []string
}

// FunctionReport describes the effect of unfolding hoisting on one
// function body.
type FunctionReport struct {
	Function         string
	UnfoldingsBefore int
	UnfoldingsAfter  int
	Body             string
}

// Hoisted reports how many unfolding wrappers the optimizer removed.
func (r FunctionReport) Hoisted() int {
	return r.UnfoldingsBefore - r.UnfoldingsAfter
}
