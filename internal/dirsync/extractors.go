package dirsync

import (
	"net/http"
	"regexp"

	"github.com/tidwall/gjson"

	dErrors "helios/pkg/domain-errors"
)

// Extractor names referenced by registry entries.
const (
	ExtractorDirectoryUsers   = "directory-users"
	ExtractorDirectoryGroups  = "directory-groups"
	ExtractorDirectoryMembers = "directory-members"
)

var writeAndReadMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
}

// DirectoryExtractors returns the built-in extractors for the Workspace
// admin directory surface, in evaluation order. Bodies are inspected with
// gjson path lookups rather than a closed schema, so unknown or partial
// shapes fall through harmlessly.
func DirectoryExtractors() []Extractor {
	return []Extractor{
		{
			Name:        ExtractorDirectoryMembers,
			Methods:     writeAndReadMethods,
			PathPattern: regexp.MustCompile(`^/groups/[^/]+/members(/[^/]+)?/?$`),
			Extract:     extractMembers,
		},
		{
			Name:        ExtractorDirectoryGroups,
			Methods:     writeAndReadMethods,
			PathPattern: regexp.MustCompile(`^/groups(/[^/]+)?/?$`),
			Extract:     extractGroups,
		},
		{
			Name:        ExtractorDirectoryUsers,
			Methods:     writeAndReadMethods,
			PathPattern: regexp.MustCompile(`^/users(/[^/]+)?/?$`),
			Extract:     extractUsers,
		},
	}
}

func extractUsers(body []byte) ([]SyncedEntity, error) {
	root, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	if list := root.Get("users"); list.IsArray() {
		var entities []SyncedEntity
		list.ForEach(func(_, item gjson.Result) bool {
			if e, ok := userEntity(item); ok {
				entities = append(entities, e)
			}
			return true
		})
		return entities, nil
	}

	if e, ok := userEntity(root); ok {
		return []SyncedEntity{e}, nil
	}
	return nil, ErrNoMatch
}

func userEntity(item gjson.Result) (SyncedEntity, bool) {
	email := item.Get("primaryEmail").String()
	externalID := item.Get("id").String()
	if externalID == "" {
		externalID = email
	}
	if externalID == "" || email == "" {
		return SyncedEntity{}, false
	}

	attrs := map[string]string{"primary_email": email}
	putIfSet(attrs, "full_name", item.Get("name.fullName"))
	putIfSet(attrs, "org_unit", item.Get("orgUnitPath"))
	if susp := item.Get("suspended"); susp.Exists() {
		attrs["suspended"] = boolString(susp.Bool())
	}
	return SyncedEntity{Type: EntityUser, ExternalID: externalID, Attributes: attrs}, true
}

func extractGroups(body []byte) ([]SyncedEntity, error) {
	root, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	if list := root.Get("groups"); list.IsArray() {
		var entities []SyncedEntity
		list.ForEach(func(_, item gjson.Result) bool {
			if e, ok := groupEntity(item); ok {
				entities = append(entities, e)
			}
			return true
		})
		return entities, nil
	}

	if e, ok := groupEntity(root); ok {
		return []SyncedEntity{e}, nil
	}
	return nil, ErrNoMatch
}

func groupEntity(item gjson.Result) (SyncedEntity, bool) {
	// Users also carry id + email shaped fields; require the group kind or
	// the absence of a primaryEmail to avoid mislabeling.
	if item.Get("primaryEmail").Exists() {
		return SyncedEntity{}, false
	}
	email := item.Get("email").String()
	externalID := item.Get("id").String()
	if externalID == "" {
		externalID = email
	}
	if externalID == "" || email == "" {
		return SyncedEntity{}, false
	}

	attrs := map[string]string{"email": email}
	putIfSet(attrs, "name", item.Get("name"))
	putIfSet(attrs, "description", item.Get("description"))
	return SyncedEntity{Type: EntityGroup, ExternalID: externalID, Attributes: attrs}, true
}

func extractMembers(body []byte) ([]SyncedEntity, error) {
	root, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	if list := root.Get("members"); list.IsArray() {
		var entities []SyncedEntity
		list.ForEach(func(_, item gjson.Result) bool {
			if e, ok := memberEntity(item); ok {
				entities = append(entities, e)
			}
			return true
		})
		return entities, nil
	}

	if e, ok := memberEntity(root); ok {
		return []SyncedEntity{e}, nil
	}
	return nil, ErrNoMatch
}

func memberEntity(item gjson.Result) (SyncedEntity, bool) {
	externalID := item.Get("id").String()
	if externalID == "" {
		externalID = item.Get("email").String()
	}
	if externalID == "" {
		return SyncedEntity{}, false
	}
	if !item.Get("role").Exists() && !item.Get("type").Exists() {
		return SyncedEntity{}, false
	}

	attrs := map[string]string{}
	putIfSet(attrs, "email", item.Get("email"))
	putIfSet(attrs, "role", item.Get("role"))
	putIfSet(attrs, "type", item.Get("type"))
	return SyncedEntity{Type: EntityMembership, ExternalID: externalID, Attributes: attrs}, true
}

func parseBody(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, dErrors.New(dErrors.CodeValidation, "response body is not valid JSON")
	}
	return gjson.ParseBytes(body), nil
}

func putIfSet(attrs map[string]string, key string, v gjson.Result) {
	if v.Exists() && v.String() != "" {
		attrs[key] = v.String()
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
