package vir

// BasicBlock is a straight-line run of statements.
type BasicBlock struct {
	Label string
	Stmts []Stmt
}

// Method is an impure procedure body: basic blocks executed in order
// along one control-flow path.
type Method struct {
	Name   string
	Blocks []BasicBlock
}

// Function is a pure function with an expression body.
type Function struct {
	Name   string
	Params []Var
	Body   Expr
}

// Program is one verification unit: a predicate catalog plus the
// functions and methods to process.
type Program struct {
	Name       string
	Predicates *Catalog
	Functions  []*Function
	Methods    []*Method
}
