package recipestore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// Slugify lower-cases s and restricts it to [a-z0-9-]. Any other run of
// characters becomes a single dash and edge dashes are trimmed.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	slug = dashRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// FallbackSlug returns a unique token for titles that slugify to nothing.
func FallbackSlug() string {
	return "recipe-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// UniqueSlug returns base, or base-1, base-2, ... for the first candidate no
// other recipe uses. excludeID lets a recipe keep its own slug on update.
func UniqueSlug(ctx context.Context, store Store, base string, excludeID uint) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		taken, err := store.ExistsBySlug(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
