package notes

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"github.com/S4nzh4r/ya-note/internal/errs"
)

const (
	// MaxSlugLength bounds stored slugs, derived ones are truncated to it.
	MaxSlugLength = 100

	// DuplicateSlugWarning is appended to the offending slug in the form error.
	DuplicateSlugWarning = " - such a slug already exists, please choose a unique value!"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// DuplicateSlugError reports a slug already used by another note.
type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return e.Slug + DuplicateSlugWarning
}

// Slugify transliterates title to ASCII, lowercases it and joins the words
// with hyphens. The result is at most MaxSlugLength bytes.
func Slugify(title string) string {
	s := slug.Make(title)
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-_")
	}
	return s
}

func duplicateSlug(s string) error {
	dup := &DuplicateSlugError{Slug: s}
	return errs.OnField(errs.AlreadyExists, "slug", dup.Error(), dup)
}

// ResolveSlug returns the slug a note with this title should be stored
// under. A non-empty provided slug is validated, an empty one is derived from
// the title. Either way it must not be used by any note other than excludeID.
func (s *Service) ResolveSlug(ctx context.Context, title, provided string, excludeID int64) (string, error) {
	resolved := strings.TrimSpace(provided)
	if resolved == "" {
		resolved = Slugify(title)
		if resolved == "" {
			return "", errs.OnField(errs.InvalidArgument, "slug",
				"could not derive a slug from the title, please enter one", nil)
		}
	} else {
		if utf8.RuneCountInString(resolved) > MaxSlugLength {
			return "", errs.OnField(errs.InvalidArgument, "slug",
				"slug must be at most 100 characters", nil)
		}
		if !slugPattern.MatchString(resolved) {
			return "", errs.OnField(errs.InvalidArgument, "slug",
				"slug may contain only latin letters, digits, hyphens and underscores", nil)
		}
	}

	taken, err := s.store.SlugExists(ctx, resolved, excludeID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", duplicateSlug(resolved)
	}
	return resolved, nil
}
