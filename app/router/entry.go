package router

import (
	"fmt"
	"regexp"

	"github.com/xavierroma/go-rakis/app/types"
)

type entry struct {
	method  types.Method
	pattern *regexp.Regexp
	handler Handler
}

func newEntry(method types.Method, pattern string, handler Handler) (entry, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return entry{}, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}
	return entry{method: method, pattern: re, handler: handler}, nil
}

// match reports whether the entry serves method and path. The method must be
// equal byte for byte; the pattern only has to occur somewhere in path, so
// exact routes need explicit ^ and $ anchors.
func (e entry) match(method types.Method, path string) bool {
	return e.method == method && e.pattern.MatchString(path)
}
