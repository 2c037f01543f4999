package crud

import (
	"fmt"
	"slices"
)

// Query is used to dynamically build the queries a Store runs. Where is an
// SQL boolean expression with '?' placeholders for Args. A zero Limit means no
// limit.
type Query struct {
	Where  string
	Args   []any
	Limit  int
	Offset int
}

// NewQuery creates a new query.
func NewQuery(where string, args ...any) *Query {
	return &Query{Where: where, Args: args}
}

// And returns a copy of q with the where condition joined using an AND
// condition. A nil q is treated as an empty query.
func (q *Query) And(where string, args ...any) *Query {
	return q.join("AND", where, args)
}

// Or returns a copy of q with the where condition joined using an OR
// condition. A nil q is treated as an empty query.
func (q *Query) Or(where string, args ...any) *Query {
	return q.join("OR", where, args)
}

func (q *Query) join(op, where string, args []any) *Query {
	nq := q.clone()
	switch {
	case where == "":
	case nq.Where == "":
		nq.Where = where
		nq.Args = slices.Clone(args)
	default:
		nq.Where = fmt.Sprintf("(%s) %s (%s)", nq.Where, op, where)
		nq.Args = slices.Concat(nq.Args, args)
	}
	return nq
}

// Page returns a copy of q limited to limit results starting at offset.
func (q *Query) Page(limit, offset int) *Query {
	nq := q.clone()
	nq.Limit, nq.Offset = limit, offset
	return nq
}

// Unpaged returns a copy of q without the limit and offset, e.g. for counting.
func (q *Query) Unpaged() *Query {
	return q.Page(0, 0)
}

func (q *Query) clone() *Query {
	if q == nil {
		return &Query{}
	}
	return &Query{Where: q.Where, Args: slices.Clone(q.Args), Limit: q.Limit, Offset: q.Offset}
}
