package vir

import "strings"

// Stmt represents a statement of the verification IR.
type Stmt interface {
	isStmt()
	String() string
}

// CommentStmt carries a comment and has no effect on permissions.
type CommentStmt struct {
	Text string
}

func (CommentStmt) isStmt() {}
func (s CommentStmt) String() string {
	return "// " + s.Text
}

// LabelStmt marks a heap version that old expressions can refer to.
type LabelStmt struct {
	Name string
}

func (LabelStmt) isStmt() {}
func (s LabelStmt) String() string {
	return "label " + s.Name
}

// AssertStmt checks an assertion. It does not change the permission state.
type AssertStmt struct {
	Expr     Expr
	Position Position
}

func (AssertStmt) isStmt() {}
func (s AssertStmt) String() string {
	return "assert " + s.Expr.String()
}

// ObtainStmt instructs the downstream synthesizer to make a permission
// available. It does not change the permission state.
type ObtainStmt struct {
	Expr Expr
}

func (ObtainStmt) isStmt() {}
func (s ObtainStmt) String() string {
	return "obtain " + s.Expr.String()
}

// NewStmt allocates a fresh object with the listed fields.
type NewStmt struct {
	Var    Var
	Fields []Field
}

func (NewStmt) isStmt() {}
func (s NewStmt) String() string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return s.Var.Name + " = new(" + strings.Join(names, ", ") + ")"
}

// InhaleStmt adds the permissions asserted by its expression.
type InhaleStmt struct {
	Expr Expr
}

func (InhaleStmt) isStmt() {}
func (s InhaleStmt) String() string {
	return "inhale " + s.Expr.String()
}

// ExhaleStmt removes the permissions asserted by its expression.
type ExhaleStmt struct {
	Expr     Expr
	Position Position
}

func (ExhaleStmt) isStmt() {}
func (s ExhaleStmt) String() string {
	return "exhale " + s.Expr.String()
}

// MethodCallStmt calls an opaque method, havocking its targets.
type MethodCallStmt struct {
	Method  string
	Args    []Expr
	Targets []Var
}

func (MethodCallStmt) isStmt() {}
func (s MethodCallStmt) String() string {
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.String()
	}
	targets := make([]string, len(s.Targets))
	for i, t := range s.Targets {
		targets[i] = t.Name
	}
	out := ""
	if len(targets) > 0 {
		out = strings.Join(targets, ", ") + " = "
	}
	return out + "call " + s.Method + "(" + strings.Join(args, ", ") + ")"
}

// AssignStmt assigns the value of Rhs to the place Lhs.
type AssignStmt struct {
	Lhs Place
	Rhs Expr
}

func (AssignStmt) isStmt() {}
func (s AssignStmt) String() string {
	return s.Lhs.String() + " = " + s.Rhs.String()
}

// FoldStmt folds the named predicate at a place.
type FoldStmt struct {
	Predicate string
	Arg       Place
}

func (FoldStmt) isStmt() {}
func (s FoldStmt) String() string {
	return "fold " + s.Predicate + "(" + s.Arg.String() + ")"
}

// UnfoldStmt unfolds the named predicate at a place.
type UnfoldStmt struct {
	Predicate string
	Arg       Place
}

func (UnfoldStmt) isStmt() {}
func (s UnfoldStmt) String() string {
	return "unfold " + s.Predicate + "(" + s.Arg.String() + ")"
}
