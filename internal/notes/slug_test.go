package notes

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/S4nzh4r/ya-note/internal/models"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Title":           "title",
		"Hello, World!":   "hello-world",
		"  many   spaces": "many-spaces",
		"Заголовок":       "zagolovok",
		"Crème Brûlée":    "creme-brulee",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestSlugifyTruncates(t *testing.T) {
	got := Slugify(strings.Repeat("word ", 40))
	assert.LessOrEqual(t, len(got), MaxSlugLength)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.True(t, strings.HasPrefix(got, "word-word"))
}

var urlSafe = regexp.MustCompile(`^[a-z0-9_]+(-[a-z0-9_]+)*$`)

func testSlugifyIsURLSafeAndStable(t *rapid.T) {
	title := rapid.String().Draw(t, "title")
	got := Slugify(title)
	if got != Slugify(title) {
		t.Fatalf("Slugify(%q) is not deterministic", title)
	}
	if len(got) > MaxSlugLength {
		t.Fatalf("Slugify(%q) = %q longer than %d", title, got, MaxSlugLength)
	}
	if got != "" && !urlSafe.MatchString(got) {
		t.Fatalf("Slugify(%q) = %q is not URL safe", title, got)
	}
	if got != "" && Slugify(got) != got {
		t.Fatalf("Slugify is not idempotent on %q", got)
	}
}

func TestSlugifyIsURLSafeAndStable(t *testing.T) {
	rapid.Check(t, testSlugifyIsURLSafeAndStable)
}

func TestAccessPolicy(t *testing.T) {
	author := &models.User{ID: 1, Username: "author"}
	reader := &models.User{ID: 2, Username: "reader"}
	note := &models.Note{ID: 10, AuthorID: author.ID}

	assert.True(t, CanModify(author, note))
	assert.True(t, CanView(author, note))
	assert.False(t, CanModify(reader, note))
	assert.False(t, CanView(reader, note))
	assert.False(t, CanModify(nil, note))
	assert.False(t, CanView(author, nil))
}
