package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsGoat/internal/types"
)

func article(source, url, body string) *types.Article {
	a := types.NewArticle(source, url)
	a.Title = "Titulo " + url
	a.Body = body
	a.ContentHash = types.ContentHash(body)
	return a
}

func TestDedupeDistinctURLs(t *testing.T) {
	d := New(0)

	var in []*types.Article
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://www.sanjuan8.com/nota-%d", i)
		in = append(in, article("sanjuan8", url, "cuerpo "+url))
	}
	// Each distinct URL appears twice, the copies come from another source.
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://www.sanjuan8.com/nota-%d", i)
		in = append(in, article("otro", url, "otro cuerpo "+url))
	}

	out, removed := d.Dedupe(in)
	require.Len(t, out, 5)
	assert.Equal(t, 5, removed)
	for i, a := range out {
		assert.Equal(t, "sanjuan8", a.SourceID, "first-seen record must win")
		assert.Equal(t, fmt.Sprintf("https://www.sanjuan8.com/nota-%d", i), a.URL)
	}
}

func TestDedupeContentHash(t *testing.T) {
	d := New(0)

	in := []*types.Article{
		article("a", "https://a.com/1", "Mismo   cuerpo de la noticia"),
		article("b", "https://b.com/otra-url", "mismo cuerpo de la NOTICIA"),
		article("c", "https://c.com/3", "cuerpo distinto"),
	}

	out, removed := d.Dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "a", out[0].SourceID)
	assert.Equal(t, "c", out[1].SourceID)
}

func TestDedupeKeepsOrderAcrossCalls(t *testing.T) {
	d := New(0)

	first, _ := d.Dedupe([]*types.Article{article("a", "https://a.com/1", "uno")})
	require.Len(t, first, 1)

	second, removed := d.Dedupe([]*types.Article{
		article("b", "https://a.com/1", "uno bis"),
		article("b", "https://a.com/2", "dos"),
	})
	require.Len(t, second, 1)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "https://a.com/2", second[0].URL)
}

func TestEmptyHashIgnored(t *testing.T) {
	d := New(0)

	a := types.NewArticle("a", "https://a.com/1")
	b := types.NewArticle("a", "https://a.com/2")

	assert.False(t, d.Seen(a))
	assert.False(t, d.Seen(b), "articles without a hash only collide on URL")
	assert.True(t, d.Seen(a))
}
