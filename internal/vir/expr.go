package vir

import "strings"

// Expr represents an expression of the verification IR. The tree is owned:
// children are held by value (behind the interface) and never shared
// between siblings.
type Expr interface {
	isExpr()
	Pos() Position
	String() string
}

// LiteralExpr is a literal value.
type LiteralExpr struct {
	Val      Value
	Position Position
}

func (LiteralExpr) isExpr()         {}
func (e LiteralExpr) Pos() Position { return e.Position }
func (e LiteralExpr) String() string {
	return e.Val.String()
}

// PlaceExpr is a place-valued leaf.
type PlaceExpr struct {
	Place    Place
	Position Position
}

func (PlaceExpr) isExpr()         {}
func (e PlaceExpr) Pos() Position { return e.Position }
func (e PlaceExpr) String() string {
	return e.Place.String()
}

// OldExpr is a place evaluated in an earlier, labelled heap version.
// Places under old are never unfolded further.
type OldExpr struct {
	Label    string
	Place    Place
	Position Position
}

func (OldExpr) isExpr()         {}
func (e OldExpr) Pos() Position { return e.Position }
func (e OldExpr) String() string {
	return "old[" + e.Label + "](" + e.Place.String() + ")"
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNeg {
		return "-"
	}
	return "!"
}

// UnaryExpr is a unary operation.
type UnaryExpr struct {
	Op       UnaryOp
	Operand  Expr
	Position Position
}

func (UnaryExpr) isExpr()         {}
func (e UnaryExpr) Pos() Position { return e.Position }
func (e UnaryExpr) String() string {
	return "(" + e.Op.String() + e.Operand.String() + ")"
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
	OpImplies
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpImplies:
		return "==>"
	default:
		return "?"
	}
}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	Op       BinaryOp
	Left     Expr
	Right    Expr
	Position Position
}

func (BinaryExpr) isExpr()         {}
func (e BinaryExpr) Pos() Position { return e.Position }
func (e BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

// CondExpr is a conditional expression: guard ? then : else.
type CondExpr struct {
	Guard    Expr
	Then     Expr
	Else     Expr
	Position Position
}

func (CondExpr) isExpr()         {}
func (e CondExpr) Pos() Position { return e.Position }
func (e CondExpr) String() string {
	return "(" + e.Guard.String() + " ? " + e.Then.String() + " : " + e.Else.String() + ")"
}

// UnfoldingExpr is the expression-scoped equivalent of an unfold: the
// predicate at Arg is unfolded for the span of Body only.
type UnfoldingExpr struct {
	Predicate string
	Arg       Place
	Body      Expr
	Perm      PermAmount
	// Variant names the enum variant being unfolded, empty for struct-like
	// predicates.
	Variant  string
	Position Position
}

func (UnfoldingExpr) isExpr()         {}
func (e UnfoldingExpr) Pos() Position { return e.Position }
func (e UnfoldingExpr) String() string {
	name := e.Predicate
	if e.Variant != "" {
		name += "<" + e.Variant + ">"
	}
	return "(unfolding acc(" + name + "(" + e.Arg.String() + "), " + e.Perm.String() + ") in " + e.Body.String() + ")"
}

// FuncAppExpr is an application of a pure function.
type FuncAppExpr struct {
	Func     string
	Args     []Expr
	Position Position
}

func (FuncAppExpr) isExpr()         {}
func (e FuncAppExpr) Pos() Position { return e.Position }
func (e FuncAppExpr) String() string {
	var b strings.Builder
	b.WriteString(e.Func)
	b.WriteString("(")
	for i, arg := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.String())
	}
	b.WriteString(")")
	return b.String()
}

// ForallExpr is a universal quantifier.
type ForallExpr struct {
	Vars     []string
	Body     Expr
	Position Position
}

func (ForallExpr) isExpr()         {}
func (e ForallExpr) Pos() Position { return e.Position }
func (e ForallExpr) String() string {
	return "(forall " + strings.Join(e.Vars, ", ") + " :: " + e.Body.String() + ")"
}

// MagicWandExpr is a separation-logic magic wand. It never reaches the
// unfolding optimizer.
type MagicWandExpr struct {
	Left     Expr
	Right    Expr
	Position Position
}

func (MagicWandExpr) isExpr()         {}
func (e MagicWandExpr) Pos() Position { return e.Position }
func (e MagicWandExpr) String() string {
	return "(" + e.Left.String() + " --* " + e.Right.String() + ")"
}

// LetExpr is a let binding. It never reaches the unfolding optimizer.
type LetExpr struct {
	Var      string
	Def      Expr
	Body     Expr
	Position Position
}

func (LetExpr) isExpr()         {}
func (e LetExpr) Pos() Position { return e.Position }
func (e LetExpr) String() string {
	return "(let " + e.Var + " == (" + e.Def.String() + ") in " + e.Body.String() + ")"
}

// PredicateAccessExpr asserts a folded predicate permission on a place.
type PredicateAccessExpr struct {
	Predicate string
	Arg       Place
	Perm      PermAmount
	Position  Position
}

func (PredicateAccessExpr) isExpr()         {}
func (e PredicateAccessExpr) Pos() Position { return e.Position }
func (e PredicateAccessExpr) String() string {
	return "acc(" + e.Predicate + "(" + e.Arg.String() + "), " + e.Perm.String() + ")"
}

// FieldAccessPermExpr asserts a field access permission on a place.
type FieldAccessPermExpr struct {
	Place    Place
	Perm     PermAmount
	Position Position
}

func (FieldAccessPermExpr) isExpr()         {}
func (e FieldAccessPermExpr) Pos() Position { return e.Position }
func (e FieldAccessPermExpr) String() string {
	return "acc(" + e.Place.String() + ", " + e.Perm.String() + ")"
}

// Helper functions to construct IR nodes.

// IntLit creates an integer literal expression.
func IntLit(v int64) Expr {
	return LiteralExpr{Val: IntValue{Val: v}}
}

// BoolLit creates a boolean literal expression.
func BoolLit(v bool) Expr {
	return LiteralExpr{Val: BoolValue{Val: v}}
}

// PlaceOf creates a place-valued leaf.
func PlaceOf(p Place) Expr {
	return PlaceExpr{Place: p}
}

// Old creates an old-labelled place expression.
func Old(label string, p Place) Expr {
	return OldExpr{Label: label, Place: p}
}

// Binary creates a binary expression.
func Binary(op BinaryOp, left, right Expr) Expr {
	return BinaryExpr{Op: op, Left: left, Right: right}
}

// And creates a conjunction.
func And(left, right Expr) Expr {
	return BinaryExpr{Op: OpAnd, Left: left, Right: right}
}

// Or creates a disjunction.
func Or(left, right Expr) Expr {
	return BinaryExpr{Op: OpOr, Left: left, Right: right}
}

// Implies creates an implication.
func Implies(left, right Expr) Expr {
	return BinaryExpr{Op: OpImplies, Left: left, Right: right}
}

// Eq creates an equality comparison.
func Eq(left, right Expr) Expr {
	return BinaryExpr{Op: OpEq, Left: left, Right: right}
}

// Not creates a logical negation.
func Not(e Expr) Expr {
	return UnaryExpr{Op: OpNot, Operand: e}
}

// Cond creates a conditional expression.
func Cond(guard, then, els Expr) Expr {
	return CondExpr{Guard: guard, Then: then, Else: els}
}

// Unfolding wraps body in an unfolding of the named predicate at arg.
func Unfolding(predicate string, arg Place, body Expr, perm PermAmount) Expr {
	return UnfoldingExpr{Predicate: predicate, Arg: arg, Body: body, Perm: perm, Position: body.Pos()}
}

// UnfoldingVariant wraps body in an unfolding of a specific enum variant.
func UnfoldingVariant(predicate, variant string, arg Place, body Expr, perm PermAmount) Expr {
	return UnfoldingExpr{Predicate: predicate, Arg: arg, Body: body, Perm: perm, Variant: variant, Position: body.Pos()}
}

// FuncApp creates a pure function application.
func FuncApp(name string, args ...Expr) Expr {
	return FuncAppExpr{Func: name, Args: args}
}

// Forall creates a universal quantifier.
func Forall(vars []string, body Expr) Expr {
	return ForallExpr{Vars: vars, Body: body}
}

// AccPredicate creates a predicate access assertion.
func AccPredicate(predicate string, arg Place, perm PermAmount) Expr {
	return PredicateAccessExpr{Predicate: predicate, Arg: arg, Perm: perm}
}

// AccField creates a field access permission assertion.
func AccField(p Place, perm PermAmount) Expr {
	return FieldAccessPermExpr{Place: p, Perm: perm}
}

// Unfoldings returns every unfolding wrapper in the expression, outermost
// first.
func Unfoldings(e Expr) []UnfoldingExpr {
	var out []UnfoldingExpr
	collectUnfoldings(e, &out)
	return out
}

func collectUnfoldings(e Expr, out *[]UnfoldingExpr) {
	switch e := e.(type) {
	case UnfoldingExpr:
		*out = append(*out, e)
		collectUnfoldings(e.Body, out)
	case UnaryExpr:
		collectUnfoldings(e.Operand, out)
	case BinaryExpr:
		collectUnfoldings(e.Left, out)
		collectUnfoldings(e.Right, out)
	case CondExpr:
		collectUnfoldings(e.Guard, out)
		collectUnfoldings(e.Then, out)
		collectUnfoldings(e.Else, out)
	case FuncAppExpr:
		for _, arg := range e.Args {
			collectUnfoldings(arg, out)
		}
	case ForallExpr:
		collectUnfoldings(e.Body, out)
	case MagicWandExpr:
		collectUnfoldings(e.Left, out)
		collectUnfoldings(e.Right, out)
	case LetExpr:
		collectUnfoldings(e.Def, out)
		collectUnfoldings(e.Body, out)
	}
}
