package gateway

import (
	"fmt"
	"net/url"
	"strconv"
)

// Query is a declarative filter/order/limit for one table-scoped request.
// It encodes to the gateway's query-string dialect: col=eq.value,
// order=col.asc|desc, limit=n.
type Query struct {
	filters [][2]string
	order   string
	limit   int
	single  bool
}

func NewQuery() *Query {
	return &Query{}
}

func (q *Query) Eq(column string, value interface{}) *Query {
	q.filters = append(q.filters, [2]string{column, fmt.Sprintf("eq.%v", value)})
	return q
}

func (q *Query) OrderBy(column string, descending bool) *Query {
	direction := "asc"
	if descending {
		direction = "desc"
	}
	q.order = column + "." + direction
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) HasFilters() bool {
	return q != nil && len(q.filters) > 0
}

func (q *Query) Encode() string {
	values := url.Values{}
	if q == nil {
		return ""
	}
	for _, f := range q.filters {
		values.Add(f[0], f[1])
	}
	if q.order != "" {
		values.Set("order", q.order)
	}
	if q.limit > 0 {
		values.Set("limit", strconv.Itoa(q.limit))
	}
	if q.single {
		values.Set("single", "true")
	}
	return values.Encode()
}
