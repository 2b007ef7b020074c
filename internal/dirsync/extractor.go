package dirsync

import (
	"errors"
	"regexp"
	"slices"
)

// ErrNoMatch signals that an extractor's trigger fired but the body did not
// have a shape it recognizes. It is a normal outcome, not a failure:
// evaluation simply moves on to the next extractor.
var ErrNoMatch = errors.New("dirsync: body shape not recognized")

// An Extractor mines entities out of one class of upstream response. The
// trigger (method set + path pattern) decides whether it runs; Extract is a
// pure function of the response body. Extractors are evaluated in
// registration order and the first one that recognizes the body wins.
type Extractor struct {
	// Name is how registry entries enable this extractor for a family.
	Name string
	// Methods lists HTTP methods the trigger accepts. Empty means any.
	Methods []string
	// PathPattern matches against the remaining upstream path.
	PathPattern *regexp.Regexp
	// Extract mines entities from the body, or returns ErrNoMatch.
	Extract func(body []byte) ([]SyncedEntity, error)
}

// Triggers reports whether the extractor should run for this call.
func (e *Extractor) Triggers(method, path string) bool {
	if len(e.Methods) > 0 && !slices.Contains(e.Methods, method) {
		return false
	}
	return e.PathPattern.MatchString(path)
}
