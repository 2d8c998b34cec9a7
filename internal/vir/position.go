package vir

import "strconv"

// Position is a source location carried through rewrites. Rewrites that
// wrap an expression keep the position of the innermost expression.
type Position struct {
	Line   int
	Column int
}

// IsZero reports whether the position is unset.
func (p Position) IsZero() bool { return p.Line == 0 && p.Column == 0 }

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}
