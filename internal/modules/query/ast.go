// Package query parses RSQL filter expressions and translates them into
// predicates over trades. The expression grammar is the usual RSQL one:
// semicolon for AND, comma for OR, parentheses for grouping, and FIQL
// comparison operators (==, !=, =gt=, =in=, =like=, ...).
package query

// Node is one node of the parsed boolean expression tree.
type Node interface {
	node()
}

// AndNode combines its children with logical AND.
type AndNode struct {
	Children []Node
}

// OrNode combines its children with logical OR.
type OrNode struct {
	Children []Node
}

// ComparisonNode is a single field comparison. Arguments holds one value
// for scalar operators and the full list for =in=/=out=.
type ComparisonNode struct {
	Selector  string
	Operator  string
	Arguments []string
}

func (*AndNode) node()        {}
func (*OrNode) node()         {}
func (*ComparisonNode) node() {}
