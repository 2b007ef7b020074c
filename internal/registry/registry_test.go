package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "helios/pkg/domain-errors"
)

func TestRoute_LongestPrefixWins(t *testing.T) {
	r, err := New([]Family{
		{ID: "directory", PathPrefix: "directory", BaseURL: "https://one.example", RequiredScope: "scope-a"},
		{ID: "directory-admin", PathPrefix: "directory/admin", BaseURL: "https://two.example", RequiredScope: "scope-b"},
	})
	require.NoError(t, err)

	m, err := r.Route("/directory/admin/settings")
	require.NoError(t, err)
	assert.Equal(t, "directory-admin", m.Family.ID)
	assert.Equal(t, "/settings", m.RemainingPath)

	m, err = r.Route("/directory/users")
	require.NoError(t, err)
	assert.Equal(t, "directory", m.Family.ID)
	assert.Equal(t, "/users", m.RemainingPath)
}

func TestRoute_UnknownFamily(t *testing.T) {
	r := Default()

	_, err := r.Route("/not-a-real-api/x")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnsupportedUpstream))

	_, err = r.Route("/")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnsupportedUpstream))
}

func TestRoute_BarePrefix(t *testing.T) {
	r := Default()
	m, err := r.Route("directory")
	require.NoError(t, err)
	assert.Equal(t, "directory", m.Family.ID)
	assert.Equal(t, "/", m.RemainingPath)
}

func TestRoute_AnyPathWithinFamilyRoutes(t *testing.T) {
	// Paths never seen before still route: reaching a new endpoint of a
	// registered family needs no code change.
	r := Default()
	m, err := r.Route("/directory/users/jane@example.com/aliases")
	require.NoError(t, err)
	assert.Equal(t, "directory", m.Family.ID)
	assert.Equal(t, "/users/jane@example.com/aliases", m.RemainingPath)
}

func TestNew_Validation(t *testing.T) {
	cases := []struct {
		name     string
		families []Family
	}{
		{"missing id", []Family{{PathPrefix: "x", BaseURL: "https://x", RequiredScope: "s"}}},
		{"relative base url", []Family{{ID: "x", PathPrefix: "x", BaseURL: "x.example", RequiredScope: "s"}}},
		{"missing scope", []Family{{ID: "x", PathPrefix: "x", BaseURL: "https://x"}}},
		{"duplicate prefix", []Family{
			{ID: "a", PathPrefix: "x", BaseURL: "https://a", RequiredScope: "s"},
			{ID: "b", PathPrefix: "x", BaseURL: "https://b", RequiredScope: "s"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.families)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	content := `
families:
  - id: directory
    path_prefix: directory
    base_url: https://admin.googleapis.com/admin/directory/v1
    required_scope: https://www.googleapis.com/auth/admin.directory.user
    extractors: [directory-users]
  - id: chat
    path_prefix: chat
    base_url: https://chat.googleapis.com/v1
    required_scope: https://www.googleapis.com/auth/chat.spaces
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, r.Families(), 2)

	m, err := r.Route("/chat/spaces")
	require.NoError(t, err)
	assert.Equal(t, "chat", m.Family.ID)
	assert.Equal(t, "https://chat.googleapis.com/v1", m.Family.BaseURL)
}

func TestLoadFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("families: []"), 0o600))
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestUnknownExtractors(t *testing.T) {
	r, err := New([]Family{
		{ID: "directory", PathPrefix: "directory", BaseURL: "https://a.example", RequiredScope: "s",
			Extractors: []string{"directory-users", "directory-usrs"}},
		{ID: "reports", PathPrefix: "reports", BaseURL: "https://b.example", RequiredScope: "s"},
	})
	require.NoError(t, err)

	known := []string{"directory-users", "directory-groups"}
	unknown := r.UnknownExtractors(known)
	require.Len(t, unknown, 1)
	assert.Equal(t, []string{"directory-usrs"}, unknown["directory"])

	assert.Nil(t, Default().UnknownExtractors([]string{
		"directory-users", "directory-groups", "directory-members",
	}))
}

func TestDefaultRegistryIsValid(t *testing.T) {
	r := Default()
	require.NotEmpty(t, r.Families())
	for _, f := range r.Families() {
		assert.NotEmpty(t, f.RequiredScope, "family %s", f.ID)
	}
}
