// Package encoding decodes verification units (.vir.yaml files) into the
// IR. Decoding walks yaml nodes directly so source line and column flow
// into IR positions. Malformed unit files are recoverable errors; they
// come from outside the core's trusted grammar.
package encoding

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verilang/permfold/internal/vir"
)

// DecodeProgram decodes one verification unit.
func DecodeProgram(src []byte) (*vir.Program, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("error parsing unit: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty unit")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nodeErr(root, "unit must be a mapping")
	}

	program := &vir.Program{Predicates: vir.NewCatalog()}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		var err error
		switch key.Value {
		case "name":
			program.Name = value.Value
		case "discriminant-field":
			program.Predicates.SetDiscriminantField(value.Value)
		case "predicates":
			err = decodePredicates(value, program.Predicates)
		case "functions":
			err = decodeFunctions(value, program)
		case "methods":
			err = decodeMethods(value, program)
		default:
			err = nodeErr(key, "unknown unit section %q", key.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return program, nil
}

func decodePredicates(node *yaml.Node, catalog *vir.Catalog) error {
	if node.Kind != yaml.SequenceNode {
		return nodeErr(node, "predicates must be a sequence")
	}
	for _, item := range node.Content {
		pred, err := decodePredicate(item)
		if err != nil {
			return err
		}
		catalog.Add(pred)
	}
	return nil
}

func decodePredicate(node *yaml.Node) (vir.Predicate, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nodeErr(node, "predicate must be a mapping")
	}
	name := stringField(node, "name")
	if name == "" {
		return nil, nodeErr(node, "predicate needs a name")
	}
	selfPlace, err := parsePlace(stringField(node, "self"))
	if err != nil {
		return nil, nodeErr(node, "predicate %s: %v", name, err)
	}

	if variants := findKey(node, "variants"); variants != nil {
		return decodeEnumPredicate(node, name, selfPlace, variants)
	}

	body, err := decodeFactList(findKey(node, "body"))
	if err != nil {
		return nil, fmt.Errorf("predicate %s: %w", name, err)
	}
	return &vir.StructPredicate{PredName: name, SelfPlace: selfPlace, Body: body}, nil
}

func decodeEnumPredicate(node *yaml.Node, name string, selfPlace vir.Place, variants *yaml.Node) (vir.Predicate, error) {
	discriminant, err := parsePlace(stringField(node, "discriminant"))
	if err != nil {
		return nil, nodeErr(node, "predicate %s: %v", name, err)
	}
	pred := &vir.EnumPredicate{
		PredName:     name,
		SelfPlace:    selfPlace,
		Discriminant: discriminant,
	}
	if bounds := findKey(node, "bounds"); bounds != nil {
		if pred.Bounds, err = decodeExpr(bounds); err != nil {
			return nil, fmt.Errorf("predicate %s bounds: %w", name, err)
		}
	}
	if variants.Kind != yaml.SequenceNode {
		return nil, nodeErr(variants, "predicate %s: variants must be a sequence", name)
	}
	for _, item := range variants.Content {
		variantName := stringField(item, "name")
		if variantName == "" {
			return nil, nodeErr(item, "predicate %s: variant needs a name", name)
		}
		var guard vir.Expr
		if g := findKey(item, "guard"); g != nil {
			if guard, err = decodeExpr(g); err != nil {
				return nil, fmt.Errorf("predicate %s variant %s guard: %w", name, variantName, err)
			}
		}
		body, err := decodeFactList(findKey(item, "body"))
		if err != nil {
			return nil, fmt.Errorf("predicate %s variant %s: %w", name, variantName, err)
		}
		pred.Variants = append(pred.Variants, vir.EnumVariant{
			Guard: guard,
			Name:  variantName,
			Predicate: &vir.StructPredicate{
				PredName:  name + "::" + variantName,
				SelfPlace: selfPlace.Variant(variantName),
				Body:      body,
			},
		})
	}
	return pred, nil
}

func decodeFactList(node *yaml.Node) ([]vir.Fact, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, nodeErr(node, "body must be a sequence")
	}
	facts := make([]vir.Fact, 0, len(node.Content))
	for _, item := range node.Content {
		key, value, err := singlePair(item)
		if err != nil {
			return nil, err
		}
		place, err := parsePlace(value.Value)
		if err != nil {
			return nil, nodeErr(value, "%v", err)
		}
		switch key.Value {
		case "acc":
			facts = append(facts, vir.Acc(place))
		case "pred":
			facts = append(facts, vir.Pred(place))
		default:
			return nil, nodeErr(key, "fact must be acc or pred, got %q", key.Value)
		}
	}
	return facts, nil
}

func decodeFunctions(node *yaml.Node, program *vir.Program) error {
	if node.Kind != yaml.SequenceNode {
		return nodeErr(node, "functions must be a sequence")
	}
	for _, item := range node.Content {
		fn := &vir.Function{Name: stringField(item, "name")}
		if fn.Name == "" {
			return nodeErr(item, "function needs a name")
		}
		if params := findKey(item, "params"); params != nil {
			vars, err := decodeVars(params)
			if err != nil {
				return fmt.Errorf("function %s: %w", fn.Name, err)
			}
			fn.Params = vars
		}
		body := findKey(item, "body")
		if body == nil {
			return nodeErr(item, "function %s needs a body", fn.Name)
		}
		expr, err := decodeExpr(body)
		if err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
		fn.Body = expr
		program.Functions = append(program.Functions, fn)
	}
	return nil
}

func decodeMethods(node *yaml.Node, program *vir.Program) error {
	if node.Kind != yaml.SequenceNode {
		return nodeErr(node, "methods must be a sequence")
	}
	for _, item := range node.Content {
		m := &vir.Method{Name: stringField(item, "name")}
		if m.Name == "" {
			return nodeErr(item, "method needs a name")
		}
		blocks := findKey(item, "blocks")
		if blocks == nil || blocks.Kind != yaml.SequenceNode {
			return nodeErr(item, "method %s needs a blocks sequence", m.Name)
		}
		for _, blockNode := range blocks.Content {
			block := vir.BasicBlock{Label: stringField(blockNode, "label")}
			stmts := findKey(blockNode, "stmts")
			if stmts != nil {
				if stmts.Kind != yaml.SequenceNode {
					return nodeErr(stmts, "method %s: stmts must be a sequence", m.Name)
				}
				for _, stmtNode := range stmts.Content {
					s, err := decodeStmt(stmtNode)
					if err != nil {
						return fmt.Errorf("method %s: %w", m.Name, err)
					}
					block.Stmts = append(block.Stmts, s)
				}
			}
			m.Blocks = append(m.Blocks, block)
		}
		program.Methods = append(program.Methods, m)
	}
	return nil
}

func decodeStmt(node *yaml.Node) (vir.Stmt, error) {
	key, value, err := singlePair(node)
	if err != nil {
		return nil, err
	}
	switch key.Value {
	case "comment":
		return vir.CommentStmt{Text: value.Value}, nil
	case "label":
		return vir.LabelStmt{Name: value.Value}, nil
	case "assert":
		expr, err := decodeExpr(value)
		if err != nil {
			return nil, err
		}
		return vir.AssertStmt{Expr: expr, Position: pos(node)}, nil
	case "obtain":
		expr, err := decodeExpr(value)
		if err != nil {
			return nil, err
		}
		return vir.ObtainStmt{Expr: expr}, nil
	case "new":
		return decodeNew(value)
	case "inhale":
		expr, err := decodeExpr(value)
		if err != nil {
			return nil, err
		}
		return vir.InhaleStmt{Expr: expr}, nil
	case "exhale":
		expr, err := decodeExpr(value)
		if err != nil {
			return nil, err
		}
		return vir.ExhaleStmt{Expr: expr, Position: pos(node)}, nil
	case "call":
		return decodeCallStmt(value)
	case "assign":
		lhs, err := parsePlace(stringField(value, "lhs"))
		if err != nil {
			return nil, nodeErr(value, "assign lhs: %v", err)
		}
		rhsNode := findKey(value, "rhs")
		if rhsNode == nil {
			return nil, nodeErr(value, "assign needs a rhs")
		}
		rhs, err := decodeExpr(rhsNode)
		if err != nil {
			return nil, err
		}
		return vir.AssignStmt{Lhs: lhs, Rhs: rhs}, nil
	case "fold":
		predicate, place, err := decodeFoldTarget(value)
		if err != nil {
			return nil, err
		}
		return vir.FoldStmt{Predicate: predicate, Arg: place}, nil
	case "unfold":
		predicate, place, err := decodeFoldTarget(value)
		if err != nil {
			return nil, err
		}
		return vir.UnfoldStmt{Predicate: predicate, Arg: place}, nil
	default:
		return nil, nodeErr(key, "unknown statement %q", key.Value)
	}
}

func decodeNew(node *yaml.Node) (vir.Stmt, error) {
	name := stringField(node, "var")
	if name == "" {
		return nil, nodeErr(node, "new needs a var")
	}
	typ, err := parseTypeField(node)
	if err != nil {
		return nil, err
	}
	stmt := vir.NewStmt{Var: vir.Var{Name: name, Typ: typ}}
	fields := findKey(node, "fields")
	if fields != nil {
		if fields.Kind != yaml.SequenceNode {
			return nil, nodeErr(fields, "new fields must be a sequence")
		}
		for _, f := range fields.Content {
			field, err := decodeField(f)
			if err != nil {
				return nil, err
			}
			stmt.Fields = append(stmt.Fields, field)
		}
	}
	return stmt, nil
}

func decodeField(node *yaml.Node) (vir.Field, error) {
	if node.Kind == yaml.ScalarNode {
		return vir.Field{Name: node.Value}, nil
	}
	name := stringField(node, "name")
	if name == "" {
		return vir.Field{}, nodeErr(node, "field needs a name")
	}
	typ, err := parseTypeField(node)
	if err != nil {
		return vir.Field{}, err
	}
	return vir.Field{Name: name, Typ: typ}, nil
}

func decodeCallStmt(node *yaml.Node) (vir.Stmt, error) {
	stmt := vir.MethodCallStmt{Method: stringField(node, "method")}
	if stmt.Method == "" {
		return nil, nodeErr(node, "call needs a method")
	}
	if args := findKey(node, "args"); args != nil {
		exprs, err := decodeExprList(args)
		if err != nil {
			return nil, err
		}
		stmt.Args = exprs
	}
	if targets := findKey(node, "targets"); targets != nil {
		vars, err := decodeVars(targets)
		if err != nil {
			return nil, err
		}
		stmt.Targets = vars
	}
	return stmt, nil
}

func decodeFoldTarget(node *yaml.Node) (string, vir.Place, error) {
	predicate := stringField(node, "predicate")
	if predicate == "" {
		return "", vir.Place{}, nodeErr(node, "fold/unfold needs a predicate")
	}
	place, err := parsePlace(stringField(node, "place"))
	if err != nil {
		return "", vir.Place{}, nodeErr(node, "fold/unfold place: %v", err)
	}
	return predicate, place, nil
}

func decodeExpr(node *yaml.Node) (vir.Expr, error) {
	key, value, err := singlePair(node)
	if err != nil {
		return nil, err
	}
	position := pos(node)
	switch key.Value {
	case "int":
		v, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return nil, nodeErr(value, "bad int literal %q", value.Value)
		}
		return vir.LiteralExpr{Val: vir.IntValue{Val: v}, Position: position}, nil
	case "bool":
		v, err := strconv.ParseBool(value.Value)
		if err != nil {
			return nil, nodeErr(value, "bad bool literal %q", value.Value)
		}
		return vir.LiteralExpr{Val: vir.BoolValue{Val: v}, Position: position}, nil
	case "place":
		place, err := decodePlaceNode(value)
		if err != nil {
			return nil, err
		}
		return vir.PlaceExpr{Place: place, Position: position}, nil
	case "old":
		place, err := parsePlace(stringField(value, "place"))
		if err != nil {
			return nil, nodeErr(value, "old place: %v", err)
		}
		return vir.OldExpr{Label: stringField(value, "label"), Place: place, Position: position}, nil
	case "unary":
		op, err := parseUnaryOp(stringField(value, "op"))
		if err != nil {
			return nil, nodeErr(value, "%v", err)
		}
		operand, err := decodeKeyedExpr(value, "operand")
		if err != nil {
			return nil, err
		}
		return vir.UnaryExpr{Op: op, Operand: operand, Position: position}, nil
	case "binop":
		op, err := parseBinaryOp(stringField(value, "op"))
		if err != nil {
			return nil, nodeErr(value, "%v", err)
		}
		left, err := decodeKeyedExpr(value, "left")
		if err != nil {
			return nil, err
		}
		right, err := decodeKeyedExpr(value, "right")
		if err != nil {
			return nil, err
		}
		return vir.BinaryExpr{Op: op, Left: left, Right: right, Position: position}, nil
	case "cond":
		guard, err := decodeKeyedExpr(value, "guard")
		if err != nil {
			return nil, err
		}
		then, err := decodeKeyedExpr(value, "then")
		if err != nil {
			return nil, err
		}
		els, err := decodeKeyedExpr(value, "else")
		if err != nil {
			return nil, err
		}
		return vir.CondExpr{Guard: guard, Then: then, Else: els, Position: position}, nil
	case "unfolding":
		arg, err := parsePlace(stringField(value, "arg"))
		if err != nil {
			return nil, nodeErr(value, "unfolding arg: %v", err)
		}
		perm, err := parsePerm(stringField(value, "perm"))
		if err != nil {
			return nil, nodeErr(value, "%v", err)
		}
		body, err := decodeKeyedExpr(value, "in")
		if err != nil {
			return nil, err
		}
		return vir.UnfoldingExpr{
			Predicate: stringField(value, "predicate"),
			Arg:       arg,
			Body:      body,
			Perm:      perm,
			Variant:   stringField(value, "variant"),
			Position:  position,
		}, nil
	case "call":
		name := stringField(value, "func")
		if name == "" {
			return nil, nodeErr(value, "call needs a func")
		}
		var args []vir.Expr
		if argsNode := findKey(value, "args"); argsNode != nil {
			if args, err = decodeExprList(argsNode); err != nil {
				return nil, err
			}
		}
		return vir.FuncAppExpr{Func: name, Args: args, Position: position}, nil
	case "forall":
		var vars []string
		if varsNode := findKey(value, "vars"); varsNode != nil {
			for _, v := range varsNode.Content {
				vars = append(vars, v.Value)
			}
		}
		body, err := decodeKeyedExpr(value, "body")
		if err != nil {
			return nil, err
		}
		return vir.ForallExpr{Vars: vars, Body: body, Position: position}, nil
	case "acc-pred":
		arg, err := parsePlace(stringField(value, "arg"))
		if err != nil {
			return nil, nodeErr(value, "acc-pred arg: %v", err)
		}
		perm, err := parsePerm(stringField(value, "perm"))
		if err != nil {
			return nil, nodeErr(value, "%v", err)
		}
		return vir.PredicateAccessExpr{
			Predicate: stringField(value, "predicate"),
			Arg:       arg,
			Perm:      perm,
			Position:  position,
		}, nil
	case "acc-field":
		place, err := parsePlace(stringField(value, "place"))
		if err != nil {
			return nil, nodeErr(value, "acc-field place: %v", err)
		}
		perm, err := parsePerm(stringField(value, "perm"))
		if err != nil {
			return nil, nodeErr(value, "%v", err)
		}
		return vir.FieldAccessPermExpr{Place: place, Perm: perm, Position: position}, nil
	case "wand":
		left, err := decodeKeyedExpr(value, "left")
		if err != nil {
			return nil, err
		}
		right, err := decodeKeyedExpr(value, "right")
		if err != nil {
			return nil, err
		}
		return vir.MagicWandExpr{Left: left, Right: right, Position: position}, nil
	case "let":
		def, err := decodeKeyedExpr(value, "def")
		if err != nil {
			return nil, err
		}
		body, err := decodeKeyedExpr(value, "body")
		if err != nil {
			return nil, err
		}
		return vir.LetExpr{Var: stringField(value, "var"), Def: def, Body: body, Position: position}, nil
	default:
		return nil, nodeErr(key, "unknown expression %q", key.Value)
	}
}

func decodeExprList(node *yaml.Node) ([]vir.Expr, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, nodeErr(node, "expected a sequence of expressions")
	}
	exprs := make([]vir.Expr, 0, len(node.Content))
	for _, item := range node.Content {
		e, err := decodeExpr(item)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func decodeKeyedExpr(node *yaml.Node, key string) (vir.Expr, error) {
	child := findKey(node, key)
	if child == nil {
		return nil, nodeErr(node, "missing %q", key)
	}
	return decodeExpr(child)
}

// decodePlaceNode accepts either a bare path scalar or a mapping with
// path and type.
func decodePlaceNode(node *yaml.Node) (vir.Place, error) {
	if node.Kind == yaml.ScalarNode {
		place, err := parsePlace(node.Value)
		if err != nil {
			return vir.Place{}, nodeErr(node, "%v", err)
		}
		return place, nil
	}
	place, err := parsePlace(stringField(node, "path"))
	if err != nil {
		return vir.Place{}, nodeErr(node, "%v", err)
	}
	typ, err := parseTypeField(node)
	if err != nil {
		return vir.Place{}, err
	}
	return place.WithType(typ), nil
}

func decodeVars(node *yaml.Node) ([]vir.Var, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, nodeErr(node, "expected a sequence of variables")
	}
	vars := make([]vir.Var, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind == yaml.ScalarNode {
			vars = append(vars, vir.Var{Name: item.Value})
			continue
		}
		name := stringField(item, "name")
		if name == "" {
			return nil, nodeErr(item, "variable needs a name")
		}
		typ, err := parseTypeField(item)
		if err != nil {
			return nil, err
		}
		vars = append(vars, vir.Var{Name: name, Typ: typ})
	}
	return vars, nil
}

// parsePlace parses an access path of the form "x.f::Variant.g".
func parsePlace(path string) (vir.Place, error) {
	if path == "" {
		return vir.Place{}, fmt.Errorf("empty place")
	}
	rest := path
	cut := strings.IndexAny(rest, ".:")
	if cut == 0 {
		return vir.Place{}, fmt.Errorf("place %q has no root variable", path)
	}
	var place vir.Place
	if cut < 0 {
		return vir.NewPlace(rest), nil
	}
	place = vir.NewPlace(rest[:cut])
	rest = rest[cut:]
	for rest != "" {
		variant := false
		switch {
		case strings.HasPrefix(rest, "::"):
			variant = true
			rest = rest[2:]
		case strings.HasPrefix(rest, "."):
			rest = rest[1:]
		default:
			return vir.Place{}, fmt.Errorf("bad component separator in place %q", path)
		}
		end := strings.IndexAny(rest, ".:")
		name := rest
		if end >= 0 {
			name = rest[:end]
			rest = rest[end:]
		} else {
			rest = ""
		}
		if name == "" {
			return vir.Place{}, fmt.Errorf("empty component in place %q", path)
		}
		if variant {
			place = place.Variant(name)
		} else {
			place = place.Field(name)
		}
	}
	return place, nil
}

func parseTypeField(node *yaml.Node) (vir.Type, error) {
	raw := stringField(node, "type")
	if raw == "" {
		return vir.Type{}, nil
	}
	return parseType(raw, node)
}

func parseType(raw string, node *yaml.Node) (vir.Type, error) {
	switch {
	case raw == "int":
		return vir.IntType(), nil
	case raw == "bool":
		return vir.BoolType(), nil
	case strings.HasPrefix(raw, "ref "):
		return vir.RefType(strings.TrimSpace(strings.TrimPrefix(raw, "ref "))), nil
	default:
		return vir.Type{}, nodeErr(node, "unknown type %q", raw)
	}
}

func parsePerm(raw string) (vir.PermAmount, error) {
	switch raw {
	case "write", "":
		return vir.WritePerm, nil
	case "read":
		return vir.ReadPerm, nil
	case "none":
		return vir.NoPerm, nil
	default:
		return vir.NoPerm, fmt.Errorf("unknown permission amount %q", raw)
	}
}

func parseUnaryOp(raw string) (vir.UnaryOp, error) {
	switch raw {
	case "!":
		return vir.OpNot, nil
	case "-":
		return vir.OpNeg, nil
	default:
		return vir.OpNot, fmt.Errorf("unknown unary operator %q", raw)
	}
}

func parseBinaryOp(raw string) (vir.BinaryOp, error) {
	ops := map[string]vir.BinaryOp{
		"+": vir.OpAdd, "-": vir.OpSub, "*": vir.OpMul, "/": vir.OpDiv,
		"%": vir.OpMod, "==": vir.OpEq, "!=": vir.OpNeq, "<": vir.OpLt,
		"<=": vir.OpLte, ">": vir.OpGt, ">=": vir.OpGte, "&&": vir.OpAnd,
		"||": vir.OpOr, "==>": vir.OpImplies,
	}
	op, ok := ops[raw]
	if !ok {
		return 0, fmt.Errorf("unknown binary operator %q", raw)
	}
	return op, nil
}

func findKey(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func stringField(node *yaml.Node, key string) string {
	if v := findKey(node, key); v != nil {
		return v.Value
	}
	return ""
}

// singlePair returns the only key/value pair of a mapping; statements,
// expressions and facts are all encoded as single-key mappings.
func singlePair(node *yaml.Node) (*yaml.Node, *yaml.Node, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, nil, nodeErr(node, "expected a single-key mapping")
	}
	return node.Content[0], node.Content[1], nil
}

func pos(node *yaml.Node) vir.Position {
	return vir.Position{Line: node.Line, Column: node.Column}
}

func nodeErr(node *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", node.Line, fmt.Sprintf(format, args...))
}
