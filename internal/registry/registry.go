package registry

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	dErrors "helios/pkg/domain-errors"
)

// Family is one registered group of upstream API paths sharing a base URL
// and a required credential scope. Adding a family (or reaching a new path
// inside an existing one) is a data change, not new dispatch code.
type Family struct {
	ID            string   `yaml:"id"`
	PathPrefix    string   `yaml:"path_prefix"`
	BaseURL       string   `yaml:"base_url"`
	RequiredScope string   `yaml:"required_scope"`
	Extractors    []string `yaml:"extractors"`
}

// Registry is the static table of proxyable upstream families.
type Registry struct {
	families []Family
}

// New validates and indexes the given families.
func New(families []Family) (*Registry, error) {
	seen := make(map[string]bool, len(families))
	for i := range families {
		f := &families[i]
		f.PathPrefix = strings.Trim(f.PathPrefix, "/")
		if f.ID == "" || f.PathPrefix == "" {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "family requires id and path_prefix")
		}
		if !strings.HasPrefix(f.BaseURL, "http://") && !strings.HasPrefix(f.BaseURL, "https://") {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "family %s: base_url must be absolute", f.ID)
		}
		if f.RequiredScope == "" {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "family %s: required_scope cannot be empty", f.ID)
		}
		if seen[f.PathPrefix] {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "duplicate path_prefix %q", f.PathPrefix)
		}
		seen[f.PathPrefix] = true
		f.BaseURL = strings.TrimRight(f.BaseURL, "/")
	}

	// Longest prefix first so nested prefixes win over their parents.
	ordered := make([]Family, len(families))
	copy(ordered, families)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].PathPrefix) > len(ordered[j].PathPrefix)
	})
	return &Registry{families: ordered}, nil
}

// Families returns the registered families ordered by id, for the discovery
// endpoint and for wiring checks.
func (r *Registry) Families() []Family {
	out := make([]Family, len(r.families))
	copy(out, r.families)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnknownExtractors reports extractor names referenced by families that are
// not in the known set, keyed by family id. A nonempty result usually means a
// typo in a registry file that would silently leave sync off for that family.
func (r *Registry) UnknownExtractors(known []string) map[string][]string {
	var out map[string][]string
	for _, f := range r.families {
		for _, name := range f.Extractors {
			if slices.Contains(known, name) {
				continue
			}
			if out == nil {
				out = make(map[string][]string)
			}
			out[f.ID] = append(out[f.ID], name)
		}
	}
	return out
}

type fileFormat struct {
	Families []Family `yaml:"families"`
}

// LoadFile reads a YAML registry file.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	var parsed fileFormat
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}
	if len(parsed.Families) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "registry file declares no families")
	}
	return New(parsed.Families)
}

// Default returns the built-in registry covering the Google Workspace admin
// surface the portal proxies today.
func Default() *Registry {
	r, err := New([]Family{
		{
			ID:            "directory",
			PathPrefix:    "directory",
			BaseURL:       "https://admin.googleapis.com/admin/directory/v1",
			RequiredScope: "https://www.googleapis.com/auth/admin.directory.user",
			Extractors:    []string{"directory-users", "directory-groups", "directory-members"},
		},
		{
			ID:            "reports",
			PathPrefix:    "reports",
			BaseURL:       "https://admin.googleapis.com/admin/reports/v1",
			RequiredScope: "https://www.googleapis.com/auth/admin.reports.audit.readonly",
		},
		{
			ID:            "licensing",
			PathPrefix:    "licensing",
			BaseURL:       "https://licensing.googleapis.com/apps/licensing/v1",
			RequiredScope: "https://www.googleapis.com/auth/apps.licensing",
		},
	})
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return r
}
