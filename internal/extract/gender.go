package extract

import (
	"net/url"
	"strings"

	"catalog-ingest/internal/catalog"
)

var genderKeywords = map[string]catalog.Gender{
	"women":  catalog.GenderWoman,
	"womens": catalog.GenderWoman,
	"woman":  catalog.GenderWoman,
	"men":    catalog.GenderMan,
	"mens":   catalog.GenderMan,
	"man":    catalog.GenderMan,
}

// InferGender maps URL path segments and breadcrumb tokens onto the gender
// enum. Tokens are matched whole, so "women" never collides with "men".
// Unresolved input defaults to OTHER.
func InferGender(productURL string, breadcrumbs []string) catalog.Gender {
	if u, err := url.Parse(productURL); err == nil {
		for _, segment := range strings.Split(u.Path, "/") {
			for _, token := range strings.Split(segment, "-") {
				if g, ok := genderKeywords[strings.ToLower(token)]; ok {
					return g
				}
			}
		}
	}
	for _, crumb := range breadcrumbs {
		for _, token := range strings.Fields(strings.ToLower(crumb)) {
			token = strings.TrimSuffix(token, "'s")
			if g, ok := genderKeywords[token]; ok {
				return g
			}
		}
	}
	return catalog.GenderOther
}
