package index

import (
	"fmt"

	"github.com/curricle/catalog-api/internal/search"
)

// Request is the wire form of a compiled query as the index backend
// accepts it.
type Request struct {
	Filters []Clause     `json:"filters"`
	Sort    []SortClause `json:"sort,omitempty"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Facets  []string     `json:"facets,omitempty"`
}

// Clause is one serialized query node.
type Clause struct {
	Type    string        `json:"type"`
	Field   string        `json:"field,omitempty"`
	Value   interface{}   `json:"value,omitempty"`
	Values  []interface{} `json:"values,omitempty"`
	Min     string        `json:"min,omitempty"`
	Max     string        `json:"max,omitempty"`
	Text    string        `json:"text,omitempty"`
	Fields  []string      `json:"fields,omitempty"`
	Clauses []Clause      `json:"clauses,omitempty"`
}

// SortClause is one serialized sort directive.
type SortClause struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Hit is one matched document reference.
type Hit struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// Result is the index backend's response: one page of hits plus facet
// aggregations over the same filtered query.
type Result struct {
	Hits       []Hit                    `json:"hits"`
	TotalCount int                      `json:"total_count"`
	Facets     map[string][]FacetBucket `json:"facets,omitempty"`
}

// FacetBucket is one aggregated facet value.
type FacetBucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Marshal converts a compiled query into its wire request, asking for
// aggregations on every facet dimension.
func Marshal(q *search.Query) (*Request, error) {
	req := &Request{
		Page:    q.Page,
		PerPage: q.PerPage,
		Facets:  search.FacetDimensions,
	}

	for _, node := range q.Clauses {
		clause, err := marshalNode(node)
		if err != nil {
			return nil, err
		}
		req.Filters = append(req.Filters, clause)
	}

	for _, sf := range q.Sort {
		direction := "asc"
		if sf.Desc {
			direction = "desc"
		}
		req.Sort = append(req.Sort, SortClause{Field: sf.Field, Direction: direction})
	}

	return req, nil
}

func marshalNode(node search.Node) (Clause, error) {
	switch n := node.(type) {
	case search.FieldEq:
		return Clause{Type: "eq", Field: n.Field, Value: n.Value}, nil
	case search.FieldIn:
		return Clause{Type: "in", Field: n.Field, Values: n.Values}, nil
	case search.FieldRange:
		return Clause{Type: "range", Field: n.Field, Min: n.Min, Max: n.Max}, nil
	case search.Fulltext:
		return Clause{Type: "fulltext", Text: n.Text, Fields: n.Fields}, nil
	case search.All:
		children, err := marshalNodes(n.Nodes)
		if err != nil {
			return Clause{}, err
		}
		return Clause{Type: "all", Clauses: children}, nil
	case search.Any:
		children, err := marshalNodes(n.Nodes)
		if err != nil {
			return Clause{}, err
		}
		return Clause{Type: "any", Clauses: children}, nil
	default:
		return Clause{}, fmt.Errorf("unknown query node %T", node)
	}
}

func marshalNodes(nodes []search.Node) ([]Clause, error) {
	out := make([]Clause, 0, len(nodes))
	for _, node := range nodes {
		clause, err := marshalNode(node)
		if err != nil {
			return nil, err
		}
		out = append(out, clause)
	}
	return out, nil
}
