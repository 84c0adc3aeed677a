package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogCoversEveryCategory(t *testing.T) {
	catalog := Default()
	require.Len(t, Categories, 10)

	seen := map[string]bool{}
	for _, cat := range Categories {
		items := catalog.InCategory(cat)
		assert.NotEmpty(t, items, "category %s", cat)
		assert.NotEmpty(t, messages[cat], "message for %s", cat)
		for _, it := range items {
			assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
			seen[it.ID] = true
		}
	}
	assert.Equal(t, catalog.Len(), len(seen))
	assert.Equal(t, "f1", catalog.First().ID)
}

func TestMessageFallsBackToGeneral(t *testing.T) {
	assert.Equal(t, messages[GeneralMotivation], Message(Category("unknown")))
	assert.Equal(t, messages[Friday], Message(Friday))
}

func TestRenderHTMLQuotesAndSanitizes(t *testing.T) {
	item := Item{ID: "x", Text: "first line<script>alert(1)</script>", Source: "source"}

	out, err := RenderHTML("hello", item)
	require.NoError(t, err)

	assert.Contains(t, out, "<blockquote>")
	assert.Contains(t, out, "<em>source</em>")
	assert.Contains(t, out, "hello")
	assert.False(t, strings.Contains(out, "<script>"), "script tags must be stripped: %s", out)
}

func TestDhikrTargets(t *testing.T) {
	require.Len(t, DhikrList, 6)
	for _, d := range DhikrList {
		assert.Positive(t, d.Target)
	}
}
