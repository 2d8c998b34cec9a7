package vir

import "strconv"

// Value represents a literal value carried by the IR.
type Value interface {
	isValue()
	Equal(other Value) bool
	String() string
}

// IntValue is an integer literal value.
type IntValue struct {
	Val int64
}

func (IntValue) isValue() {}

func (v IntValue) Equal(other Value) bool {
	o, ok := other.(IntValue)
	return ok && v.Val == o.Val
}

func (v IntValue) String() string {
	return strconv.FormatInt(v.Val, 10)
}

// BoolValue is a boolean literal value.
type BoolValue struct {
	Val bool
}

func (BoolValue) isValue() {}

func (v BoolValue) Equal(other Value) bool {
	o, ok := other.(BoolValue)
	return ok && v.Val == o.Val
}

func (v BoolValue) String() string {
	return strconv.FormatBool(v.Val)
}
