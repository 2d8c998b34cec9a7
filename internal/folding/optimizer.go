package folding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/verilang/permfold/internal/vir"
)

// Optimizer pulls unfolding expressions as far toward the root of an
// expression tree as legal, merging unfold requirements across binary
// operators and conditionals. Hoisting stops where a conflicting folding
// requirement comes from a function application, or where a branch is
// guarded by an enum discriminant.
type Optimizer struct {
	isDiscriminant func(string) bool
	log            *zap.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger injects the trace logger. Logging is a side channel only; it
// never influences the rewrite.
func WithLogger(log *zap.Logger) Option {
	return func(o *Optimizer) {
		if log != nil {
			o.log = log
		}
	}
}

// WithDiscriminantField injects the catalog's notion of which field names
// select an enum discriminant.
func WithDiscriminantField(isDiscriminant func(string) bool) Option {
	return func(o *Optimizer) {
		if isDiscriminant != nil {
			o.isDiscriminant = isDiscriminant
		}
	}
}

// New creates an Optimizer. By default the discriminant selector is the
// conventional field name and tracing is disabled.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		isDiscriminant: func(name string) bool { return name == vir.DefaultDiscriminantField },
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Expr rewrites an expression, stripping every unfolding wrapper and
// re-inserting the minimal necessary set as high in the tree as possible.
// The result is semantically equivalent to the input under every
// permission state in which the input was well-formed.
func (o *Optimizer) Expr(expr vir.Expr) vir.Expr {
	o.log.Debug("optimizer enter", zap.Stringer("expr", expr))
	p := newPass(o)
	rewritten := p.rewrite(expr)
	result := restoreUnfoldings(p.takeUnfoldings(), rewritten)
	o.log.Debug("optimizer exit", zap.Stringer("expr", result))
	return result
}

// Function optimizes a pure function body in place.
func (o *Optimizer) Function(f *vir.Function) {
	if f.Body == nil {
		return
	}
	o.log.Debug("optimizing function", zap.String("function", f.Name))
	f.Body = o.Expr(f.Body)
}

// Stmt rewrites the statements the pass applies to: pure inhale
// expressions are optimized, everything else passes through unchanged.
// Inhales that assert permission facts carry nothing to hoist and must
// not enter the rewrite.
func (o *Optimizer) Stmt(s vir.Stmt) vir.Stmt {
	inhale, ok := s.(vir.InhaleStmt)
	if !ok || assertsPermissions(inhale.Expr) {
		return s
	}
	return vir.InhaleStmt{Expr: o.Expr(inhale.Expr)}
}

// assertsPermissions reports whether an expression contains a
// permission-yielding form: a predicate access predicate, a field
// access permission or a magic wand.
func assertsPermissions(e vir.Expr) bool {
	switch e := e.(type) {
	case vir.PredicateAccessExpr, vir.FieldAccessPermExpr, vir.MagicWandExpr:
		return true
	case vir.UnaryExpr:
		return assertsPermissions(e.Operand)
	case vir.BinaryExpr:
		return assertsPermissions(e.Left) || assertsPermissions(e.Right)
	case vir.CondExpr:
		return assertsPermissions(e.Guard) || assertsPermissions(e.Then) || assertsPermissions(e.Else)
	case vir.UnfoldingExpr:
		return assertsPermissions(e.Body)
	case vir.ForallExpr:
		return assertsPermissions(e.Body)
	case vir.LetExpr:
		return assertsPermissions(e.Def) || assertsPermissions(e.Body)
	default:
		return false
	}
}

// Method optimizes every inhale expression of a method. Each block's
// statement slice is rebuilt by mapping the statements through the
// rewrite.
func (o *Optimizer) Method(m *vir.Method) {
	for bi := range m.Blocks {
		stmts := make([]vir.Stmt, len(m.Blocks[bi].Stmts))
		for si, s := range m.Blocks[bi].Stmts {
			stmts[si] = o.Stmt(s)
		}
		m.Blocks[bi].Stmts = stmts
	}
}

// Program optimizes every function body and every method of a unit.
func (o *Optimizer) Program(p *vir.Program) {
	for _, f := range p.Functions {
		o.Function(f)
	}
	for _, m := range p.Methods {
		o.Method(m)
	}
}

// pass holds the state of one post-order walk. Sibling subtrees never
// share mutable state; the merge step is the only place where branches
// interact.
type pass struct {
	opt *Optimizer
	// unfoldings are the unfold markers pending materialization higher in
	// the tree, keyed by the predicate's self argument.
	unfoldings UnfoldingMap
	// requirements are the places the expression walked so far needs at a
	// concrete unfold depth.
	requirements RequirementSet
}

func newPass(o *Optimizer) *pass {
	return &pass{
		opt:          o,
		unfoldings:   UnfoldingMap{},
		requirements: RequirementSet{},
	}
}

func (p *pass) takeUnfoldings() UnfoldingMap {
	m := p.unfoldings
	p.unfoldings = UnfoldingMap{}
	return m
}

func (p *pass) takeRequirements() RequirementSet {
	s := p.requirements
	p.requirements = RequirementSet{}
	return s
}

func (p *pass) rewrite(expr vir.Expr) vir.Expr {
	switch e := expr.(type) {
	case vir.OldExpr:
		// Places under old are requirements but are never unfolded
		// further by this pass.
		p.requirements.Insert(e.Place)
		return e
	case vir.PlaceExpr:
		p.requirements.Insert(e.Place)
		return e
	case vir.LiteralExpr:
		return e
	case vir.UnfoldingExpr:
		body := p.rewrite(e.Body)
		p.unfoldings.Insert(Unfolding{
			Arg:       e.Arg,
			Predicate: e.Predicate,
			Perm:      e.Perm,
			Variant:   e.Variant,
		})
		return body
	case vir.UnaryExpr:
		return vir.UnaryExpr{Op: e.Op, Operand: p.rewrite(e.Operand), Position: e.Position}
	case vir.BinaryExpr:
		return p.rewriteBinary(e)
	case vir.CondExpr:
		return p.rewriteCond(e)
	case vir.FuncAppExpr:
		args := make([]vir.Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = p.rewrite(arg)
		}
		return vir.FuncAppExpr{Func: e.Func, Args: args, Position: e.Position}
	case vir.ForallExpr:
		return vir.ForallExpr{Vars: e.Vars, Body: p.rewrite(e.Body), Position: e.Position}
	default:
		// Magic wands, let bindings and bare access predicates must have
		// been removed before this pass runs.
		panic(fmt.Sprintf("folding: expression form %T must not reach the unfolding optimizer: %s", expr, expr))
	}
}

// rewriteBinary optimizes both operands independently, then merges their
// pending unfoldings and requirements.
func (p *pass) rewriteBinary(e vir.BinaryExpr) vir.Expr {
	left := p.rewrite(e.Left)
	leftUnfoldings := p.takeUnfoldings()
	leftReqs := p.takeRequirements()

	right := p.rewrite(e.Right)
	rightUnfoldings := p.takeUnfoldings()
	rightReqs := p.takeRequirements()

	reqs, unfoldings, newLeft, newRight := p.merge(
		left, leftUnfoldings, leftReqs,
		right, rightUnfoldings, rightReqs,
	)
	p.requirements = reqs
	p.unfoldings = unfoldings
	return vir.BinaryExpr{Op: e.Op, Left: newLeft, Right: newRight, Position: e.Position}
}

// merge combines the results of two sibling subtrees. Without conflicts
// everything stays pending; with conflicts, unfoldings shared by both
// sides stay pending while each side's own conflicting unfoldings are
// materialized around that side's rewritten expression.
func (p *pass) merge(
	first vir.Expr, firstUnfoldings UnfoldingMap, firstReqs RequirementSet,
	second vir.Expr, secondUnfoldings UnfoldingMap, secondReqs RequirementSet,
) (RequirementSet, UnfoldingMap, vir.Expr, vir.Expr) {
	conflicts := checkConflicts(firstReqs, secondReqs, p.opt.isDiscriminant)
	if len(conflicts) == 0 {
		firstReqs.Extend(secondReqs)
		firstUnfoldings.Extend(secondUnfoldings)
		return firstReqs, firstUnfoldings, first, second
	}
	p.opt.log.Debug("merge conflict", zap.Int("bases", len(conflicts)))

	common, firstOwn, secondOwn := commonUnfoldings2(firstUnfoldings, secondUnfoldings)
	firstRestore, firstKeep := splitUnfoldings(firstOwn, conflicts)
	secondRestore, secondKeep := splitUnfoldings(secondOwn, conflicts)

	reqs := firstReqs
	reqs.Extend(secondReqs)
	updateRequirements(reqs, firstRestore.Places())
	updateRequirements(reqs, secondRestore.Places())

	firstRestored := restoreUnfoldings(firstRestore, first)
	secondRestored := restoreUnfoldings(secondRestore, second)

	unfoldings := common
	unfoldings.Extend(firstKeep)
	unfoldings.Extend(secondKeep)
	return reqs, unfoldings, firstRestored, secondRestored
}

// rewriteCond optimizes the guard and both branches independently,
// computes pairwise conflicts among the three requirement sets, and either
// unions everything or falls back to per-branch splitting.
func (p *pass) rewriteCond(e vir.CondExpr) vir.Expr {
	guard := p.rewrite(e.Guard)
	guardUnfoldings := p.takeUnfoldings()
	guardReqs := p.takeRequirements()

	then := p.rewrite(e.Then)
	thenUnfoldings := p.takeUnfoldings()
	thenReqs := p.takeRequirements()

	els := p.rewrite(e.Else)
	elseUnfoldings := p.takeUnfoldings()
	elseReqs := p.takeRequirements()

	conflicts := checkConflicts(guardReqs, thenReqs, p.opt.isDiscriminant)
	conflicts.Extend(checkConflicts(guardReqs, elseReqs, p.opt.isDiscriminant))
	conflicts.Extend(checkConflicts(thenReqs, elseReqs, p.opt.isDiscriminant))

	if len(conflicts) == 0 {
		p.requirements = guardReqs
		p.requirements.Extend(thenReqs)
		p.requirements.Extend(elseReqs)

		p.unfoldings = guardUnfoldings
		p.unfoldings.Extend(thenUnfoldings)
		p.unfoldings.Extend(elseUnfoldings)

		return vir.CondExpr{Guard: guard, Then: then, Else: els, Position: e.Position}
	}
	p.opt.log.Debug("conditional conflict", zap.Int("bases", len(conflicts)))

	common, guardOwn, thenOwn, elseOwn := commonUnfoldings3(
		guardUnfoldings, guardReqs,
		thenUnfoldings, thenReqs,
		elseUnfoldings, elseReqs,
	)

	guardRestore, guardKeep := splitUnfoldings(guardOwn, conflicts)
	thenRestore, thenKeep := splitUnfoldings(thenOwn, conflicts)
	elseRestore, elseKeep := splitUnfoldings(elseOwn, conflicts)

	p.requirements = guardReqs
	p.requirements.Extend(thenReqs)
	p.requirements.Extend(elseReqs)
	updateRequirements(p.requirements, guardRestore.Places())
	updateRequirements(p.requirements, thenRestore.Places())
	updateRequirements(p.requirements, elseRestore.Places())

	guardRestored := restoreUnfoldings(guardRestore, guard)
	thenRestored := restoreUnfoldings(thenRestore, then)
	elseRestored := restoreUnfoldings(elseRestore, els)

	p.unfoldings = common
	p.unfoldings.Extend(guardKeep)
	p.unfoldings.Extend(thenKeep)
	p.unfoldings.Extend(elseKeep)

	return vir.CondExpr{Guard: guardRestored, Then: thenRestored, Else: elseRestored, Position: e.Position}
}
