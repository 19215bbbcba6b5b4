package request

import "strings"

// SplitPath splits path on '/'. A leading slash produces an empty first
// segment and the empty path produces a single empty segment. Segments are
// returned as-is: no "." or ".." handling and no percent-decoding.
func SplitPath(path string) []string {
	return strings.Split(path, "/")
}
