package registry

import (
	"strings"

	dErrors "helios/pkg/domain-errors"
)

// Match is the routing result for an inbound gateway path.
type Match struct {
	Family        Family
	RemainingPath string
}

// Route resolves an inbound path (everything after /gateway/, without a
// leading slash requirement) against the registered families using
// longest-prefix match. An unknown prefix fails with CodeUnsupportedUpstream
// so the caller can tell a gateway refusal from an upstream 404.
func (r *Registry) Route(path string) (Match, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return Match{}, dErrors.New(dErrors.CodeUnsupportedUpstream, "missing upstream family in path")
	}

	for _, f := range r.families {
		if trimmed == f.PathPrefix {
			return Match{Family: f, RemainingPath: "/"}, nil
		}
		if strings.HasPrefix(trimmed, f.PathPrefix+"/") {
			return Match{
				Family:        f,
				RemainingPath: "/" + strings.TrimPrefix(trimmed, f.PathPrefix+"/"),
			}, nil
		}
	}
	return Match{}, dErrors.Newf(dErrors.CodeUnsupportedUpstream, "no upstream family registered for %q", firstSegment(trimmed))
}

func firstSegment(path string) string {
	if idx := strings.Index(path, "/"); idx != -1 {
		return path[:idx]
	}
	return path
}
