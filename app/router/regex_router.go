package router

import (
	"errors"

	"github.com/xavierroma/go-rakis/app/types"
)

var errNilHandler = errors.New("nil handler")

// regexRouter keeps entries in registration order, which is also the matching
// priority. Overlapping or duplicate patterns are kept as registered.
type regexRouter struct {
	entries []entry
}

func newRegexRouter() *regexRouter {
	return &regexRouter{}
}

func (r *regexRouter) Register(method types.Method, pattern string, handler Handler) error {
	if isNil(handler) {
		return errNilHandler
	}
	e, err := newEntry(method, pattern, handler)
	if err != nil {
		return err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *regexRouter) Match(method types.Method, path string) (Handler, bool) {
	for _, e := range r.entries {
		if e.match(method, path) {
			return e.handler, true
		}
	}
	return nil, false
}

func (r *regexRouter) Len() int {
	return len(r.entries)
}

func isNil(h Handler) bool {
	switch f := h.(type) {
	case nil:
		return true
	case HandlerFunc:
		return f == nil
	}
	return false
}
