package reconcile

import (
	"strings"

	"github.com/dmitrijs2005/userhub/internal/common"
)

// Identity is the normalized external profile the reconciler works with.
type Identity struct {
	Email    string
	Name     string
	Picture  string
	GoogleID string
}

// ExtractIdentity normalizes a raw provider profile. Two shapes are accepted:
// the people-API style with nested lists (emails: [{value}], photos: [{value}],
// name: {givenName, familyName}, id) and the flat ID-token claim style
// (email, picture, name, sub). An identity without an email is rejected
// before any storage access happens.
func ExtractIdentity(profile map[string]any) (*Identity, error) {
	id := &Identity{
		Email:    firstListValue(profile, "emails"),
		Picture:  firstListValue(profile, "photos"),
		GoogleID: stringClaim(profile, "id"),
	}

	if id.Email == "" {
		id.Email = stringClaim(profile, "email")
	}
	if id.Picture == "" {
		id.Picture = stringClaim(profile, "picture")
	}
	if id.GoogleID == "" {
		id.GoogleID = stringClaim(profile, "sub")
	}

	switch name := profile["name"].(type) {
	case map[string]any:
		given, _ := name["givenName"].(string)
		family, _ := name["familyName"].(string)
		id.Name = strings.TrimSpace(given + " " + family)
	case string:
		id.Name = name
	}

	if id.Email == "" {
		return nil, common.Validationf("missing email")
	}
	return id, nil
}

// firstListValue reads profile[key][0]["value"] if the key holds a
// people-API style list.
func firstListValue(profile map[string]any, key string) string {
	list, ok := profile[key].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	entry, ok := list[0].(map[string]any)
	if !ok {
		return ""
	}
	value, _ := entry["value"].(string)
	return value
}

func stringClaim(profile map[string]any, key string) string {
	value, _ := profile[key].(string)
	return value
}

// emailLocalPart derives a default username from an email address.
func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
