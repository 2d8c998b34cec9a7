package vir

// PermAmount is an opaque permission amount. Only equality is meaningful.
type PermAmount int

const (
	// NoPerm is the absence of permission.
	NoPerm PermAmount = iota
	// ReadPerm is a fractional, read-only permission.
	ReadPerm
	// WritePerm is the full permission.
	WritePerm
)

func (a PermAmount) String() string {
	switch a {
	case ReadPerm:
		return "read"
	case WritePerm:
		return "write"
	default:
		return "none"
	}
}
