package batch

import (
	"fmt"
	"path"
	"strings"
)

// A filter selects the (collection, object) pairs that get rendered using
// shell glob patterns. Empty patterns match everything.
type Filter struct {
	Collection string
	Object     string
}

// Parse a filter expression. The expression is either an object pattern
// or a collection/object pattern pair separated by a slash.
func ParseFilter(expr string) (Filter, error) {
	var f Filter
	if idx := strings.Index(expr, "/"); idx != -1 {
		f.Collection, f.Object = expr[:idx], expr[idx+1:]
	} else {
		f.Object = expr
	}

	for _, pattern := range []string{f.Collection, f.Object} {
		if _, err := path.Match(pattern, ""); err != nil {
			return Filter{}, fmt.Errorf("batch: invalid filter %q: %w", expr, err)
		}
	}
	return f, nil
}

// Check whether the filter selects an object of the given collection.
func (f Filter) Match(collection, object string) bool {
	return matchPattern(f.Collection, collection) && matchPattern(f.Object, object)
}

func matchPattern(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}

func (f Filter) String() string {
	if f.Collection == "" && f.Object == "" {
		return "*"
	}
	return fmt.Sprintf("%s/%s", orWildcard(f.Collection), orWildcard(f.Object))
}

func orWildcard(pattern string) string {
	if pattern == "" {
		return "*"
	}
	return pattern
}
