package request

import (
	"net/textproto"

	"github.com/xavierroma/go-rakis/app/types"
)

// Request is a read-only view over one inbound HTTP request. It must not be
// retained after the handler it was passed to returns.
type Request struct {
	method   types.Method
	path     string
	rawQuery string
	headers  map[string]string
	body     []byte

	query    Query
	segments []string
}

// New builds a Request. Header names are canonicalised so lookups through
// Header are case-insensitive.
func New(method types.Method, path, rawQuery string, headers map[string]string, body []byte) *Request {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	return &Request{
		method:   method,
		path:     path,
		rawQuery: rawQuery,
		headers:  h,
		body:     body,
	}
}

func (r *Request) Method() types.Method { return r.method }

// Path is the request target without the query string.
func (r *Request) Path() string { return r.path }

func (r *Request) RawQuery() string { return r.rawQuery }

func (r *Request) Body() []byte { return r.body }

func (r *Request) Header(name string) string {
	return r.headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// Headers returns a copy of the request headers.
func (r *Request) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// Query parses the raw query string on first use.
func (r *Request) Query() Query {
	if r.query == nil {
		r.query = ParseQuery(r.rawQuery)
	}
	out := make(Query, len(r.query))
	for k, v := range r.query {
		out[k] = v
	}
	return out
}

// PathSplit returns the segments of Path, see SplitPath.
func (r *Request) PathSplit() []string {
	if r.segments == nil {
		r.segments = SplitPath(r.path)
	}
	out := make([]string, len(r.segments))
	copy(out, r.segments)
	return out
}
