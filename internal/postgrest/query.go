package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query accumulates builder state for a single request.
type Query struct {
	client  *Client
	table   string
	method  string
	params  url.Values
	body    any
	prefers []string
	single  bool
}

func (q *Query) values() url.Values {
	if q.params == nil {
		q.params = url.Values{}
	}
	return q.params
}

// Select sets the returned column list. Resource embedding syntax is passed
// through untouched (e.g. "*, tags(name)").
func (q *Query) Select(columns string) *Query {
	q.values().Set("select", columns)
	return q
}

// Insert posts one row or a slice of rows and asks for the representation
// back so generated columns (id, created_at) are available.
func (q *Query) Insert(row any) *Query {
	q.method = http.MethodPost
	q.body = row
	q.prefers = append(q.prefers, "return=representation")
	return q
}

// Upsert is Insert with duplicate-key merging.
func (q *Query) Upsert(row any, onConflict string) *Query {
	q.Insert(row)
	q.prefers = append(q.prefers, "resolution=merge-duplicates")
	if onConflict != "" {
		q.values().Set("on_conflict", onConflict)
	}
	return q
}

// Update patches rows matching the accumulated filters.
func (q *Query) Update(changes any) *Query {
	q.method = http.MethodPatch
	q.body = changes
	q.prefers = append(q.prefers, "return=representation")
	return q
}

// Delete removes rows matching the accumulated filters.
func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	return q
}

// Eq filters on exact equality.
func (q *Query) Eq(column string, value any) *Query {
	q.values().Add(column, "eq."+format(value))
	return q
}

// Neq filters on inequality.
func (q *Query) Neq(column string, value any) *Query {
	q.values().Add(column, "neq."+format(value))
	return q
}

// Ilike filters on a case-insensitive pattern; use * as the wildcard.
func (q *Query) Ilike(column, pattern string) *Query {
	q.values().Add(column, "ilike."+pattern)
	return q
}

// Is filters on IS NULL / IS NOT NULL style conditions ("null", "true", ...).
func (q *Query) Is(column, value string) *Query {
	q.values().Add(column, "is."+value)
	return q
}

// Not negates an operator, e.g. Not("body_embedding", "is", "null").
func (q *Query) Not(column, operator, value string) *Query {
	q.values().Add(column, "not."+operator+"."+value)
	return q
}

// Or applies a disjunction of conditions in PostgREST syntax,
// e.g. "title.ilike.*x*,body.ilike.*x*".
func (q *Query) Or(conditions string) *Query {
	q.values().Add("or", "("+conditions+")")
	return q
}

// In filters a column against a set of values.
func (q *Query) In(column string, vals []string) *Query {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	q.values().Add(column, "in.("+strings.Join(quoted, ",")+")")
	return q
}

// Contains filters an array column for rows containing every given element.
func (q *Query) Contains(column string, vals []string) *Query {
	q.values().Add(column, "cs.{"+strings.Join(vals, ",")+"}")
	return q
}

// TextSearch applies full-text search on a column using websearch semantics.
func (q *Query) TextSearch(column, query string) *Query {
	q.values().Add(column, "wfts."+query)
	return q
}

// Order sorts results by a column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := ".desc"
	if ascending {
		dir = ".asc"
	}
	q.values().Add("order", column+dir)
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.values().Set("limit", strconv.Itoa(n))
	return q
}

// Single asks for exactly one row; zero or multiple rows become an error.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// Execute runs the request and unmarshals the response into dest when dest is
// non-nil. dest should be a pointer to a slice for multi-row responses, or to
// a struct when Single was requested.
func (q *Query) Execute(ctx context.Context, dest any) error {
	u := q.client.baseURL + "/rest/v1/" + q.table
	if enc := q.values().Encode(); enc != "" {
		u += "?" + enc
	}

	var payload []byte
	if q.body != nil {
		b, err := json.Marshal(q.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
	}

	prefer := strings.Join(q.prefers, ",")
	respBody, err := q.client.do(ctx, q.method, u, payload, prefer)
	if err != nil {
		return err
	}

	if dest == nil || len(respBody) == 0 {
		return nil
	}

	if q.single {
		// Representation responses are arrays even for one row.
		var rows []json.RawMessage
		if err := json.Unmarshal(respBody, &rows); err == nil {
			if len(rows) == 0 {
				return ErrNoRows
			}
			return json.Unmarshal(rows[0], dest)
		}
		return json.Unmarshal(respBody, dest)
	}

	return json.Unmarshal(respBody, dest)
}

// ErrNoRows is returned by Single queries that match nothing.
var ErrNoRows = &APIError{Status: http.StatusNotFound, Message: "no rows returned"}

func format(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
