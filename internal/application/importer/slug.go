package importer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopsync/backend/internal/domain/catalog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks after canonical decomposition, turning
// "Stühle" into "Stuhle".
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// slugify reduces a name to a URL slug: diacritics stripped, lowercased,
// non-alphanumeric runs collapsed into single hyphens.
func slugify(name string) string {
	folded, _, err := transform.String(deaccent, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// reserveSlug stores an active slug for the entity, suffixing with a counter
// until it is globally unique. An empty candidate falls back to the name.
func reserveSlug(ctx context.Context, repo catalog.LocalizationRepository, entityName string, entityID, languageID int, candidate, name string) (string, error) {
	slug := slugify(candidate)
	if slug == "" {
		slug = slugify(name)
	}
	if slug == "" {
		return "", nil
	}

	current, err := repo.ActiveSlug(ctx, entityName, entityID, languageID)
	if err != nil {
		return "", err
	}
	if current == slug {
		return slug, nil
	}

	unique := slug
	for i := 2; ; i++ {
		exists, err := repo.SlugExists(ctx, unique)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		unique = fmt.Sprintf("%s-%d", slug, i)
	}

	err = repo.UpsertSlug(ctx, &catalog.UrlRecord{
		EntityID:   entityID,
		EntityName: entityName,
		Slug:       unique,
		LanguageID: languageID,
	})
	if err != nil {
		return "", err
	}
	return unique, nil
}
