package search

// Node is one clause of the structured query handed to the search index.
// Queries are built as an explicit tree by pure functions and serialized to
// the backend wire format only at the index-client boundary, so the compiler
// stays testable without a live index.
type Node interface {
	isNode()
}

// FieldEq constrains a field to exactly one value.
type FieldEq struct {
	Field string
	Value interface{}
}

// FieldIn constrains a field to a set of accepted values.
type FieldIn struct {
	Field  string
	Values []interface{}
}

// FieldRange constrains an orderable field between two bounds, inclusive.
// Empty bounds are open.
type FieldRange struct {
	Field string
	Min   string
	Max   string
}

// Fulltext matches free text across a set of index fields, OR-combined.
type Fulltext struct {
	Text   string
	Fields []string
}

// All is the conjunction of its child clauses.
type All struct {
	Nodes []Node
}

// Any is the disjunction of its child clauses.
type Any struct {
	Nodes []Node
}

func (FieldEq) isNode()    {}
func (FieldIn) isNode()    {}
func (FieldRange) isNode() {}
func (Fulltext) isNode()   {}
func (All) isNode()        {}
func (Any) isNode()        {}

// SortField is one entry of a resolved sort chain.
type SortField struct {
	Field string
	Desc  bool
}

// Query is the compiled search request: top-level clauses are ANDed, sort
// fields apply in declared order, pagination is 1-indexed. A Query is built
// fresh from session state on every execution and never mutated in place.
type Query struct {
	Clauses []Node
	Sort    []SortField
	Page    int
	PerPage int
}

func termsIn(field string, terms []TermName) FieldIn {
	values := make([]interface{}, len(terms))
	for i, t := range terms {
		values[i] = string(t)
	}
	return FieldIn{Field: field, Values: values}
}

func yearsIn(field string, years []int) FieldIn {
	values := make([]interface{}, len(years))
	for i, y := range years {
		values[i] = y
	}
	return FieldIn{Field: field, Values: values}
}
