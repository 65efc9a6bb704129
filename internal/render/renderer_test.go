package render

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/readme-readyou/readme-readyou/internal/readme"
	"github.com/readme-readyou/readme-readyou/internal/readme/repository"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, recs ...readme.Record) *repository.MemoryRepo {
	t.Helper()
	repo := repository.NewMemoryRepo()
	for i := range recs {
		require.NoError(t, repo.Upsert(context.Background(), &recs[i]))
	}
	return repo
}

// wellFormed fails the test unless doc parses as XML.
func wellFormed(t *testing.T, doc []byte) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(string(doc)))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err, "svg must be well-formed XML")
	}
}

func TestMarkdownToHTML_ReplacesHorizontalRules(t *testing.T) {
	out, err := MarkdownToHTML("# Hi\n\nabove\n\n---\n\nbelow\n\n***\n")
	require.NoError(t, err)
	require.NotContains(t, out, "<hr")
	require.Equal(t, 2, strings.Count(out, `<line x1="0" y1="0" x2="100%" y2="0" stroke="#ffffff" />`))
}

func TestMarkdownToHTML_GFM(t *testing.T) {
	src := "| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n\n- [x] done\n- [ ] todo\n"
	out, err := MarkdownToHTML(src)
	require.NoError(t, err)
	require.Contains(t, out, "<table>")
	require.Contains(t, out, "<del>gone</del>")
	require.Contains(t, out, `type="checkbox"`)
}

func TestMarkdownToHTML_EscapesAmpersandsOnce(t *testing.T) {
	out, err := MarkdownToHTML("Tom & Jerry <3 [link](https://example.com/?a=1&b=2)")
	require.NoError(t, err)
	require.Contains(t, out, "Tom &amp; Jerry")
	require.NotContains(t, out, "&amp;amp;")
	require.Contains(t, out, "a=1&amp;b=2")
}

func TestMarkdownToHTML_StripsScripts(t *testing.T) {
	out, err := MarkdownToHTML("hello <script>alert(1)</script>\n\n<img src=x onerror=alert(1)>")
	require.NoError(t, err)
	require.NotContains(t, out, "<script")
	require.NotContains(t, out, "onerror")
}

func TestCard_Shape(t *testing.T) {
	svg, err := Card("# Hi & welcome\n\n---\n\n> quoted\n\n```go\nfmt.Println(\"a<b\")\n```\n")
	require.NoError(t, err)
	s := string(svg)
	require.True(t, strings.HasPrefix(s, `<svg xmlns="http://www.w3.org/2000/svg" width="1200" height="900"`))
	require.Contains(t, s, `<linearGradient id="bg-gradient"`)
	require.Contains(t, s, "<foreignObject")
	require.Contains(t, s, "max-height: 840px")
	require.NotContains(t, s, "<hr")
	wellFormed(t, svg)
}

func TestCard_DropsControlCharacters(t *testing.T) {
	svg, err := Card("bad \x00 byte and \x1b esc\tkept")
	require.NoError(t, err)
	wellFormed(t, svg)
	require.NotContains(t, string(svg), "\x1b")
	require.Contains(t, string(svg), "esc\tkept")
}

func TestRender_UsesDefaultMode(t *testing.T) {
	repo := seed(t,
		readme.Record{Identifier: "octocat", Mode: readme.ModeStandard, Content: "standard body"},
		readme.Record{Identifier: "octocat", Mode: readme.ModeCreative, Content: "creative body"},
	)
	require.NoError(t, repo.SetDefaultMode(context.Background(), "octocat", readme.ModeCreative))

	svg, err := NewRenderer(repo, nil).Render(context.Background(), "OctoCat")
	require.NoError(t, err)
	require.Contains(t, string(svg), "creative body")
	require.NotContains(t, string(svg), "standard body")
}

func TestRender_FallsBackToStandard(t *testing.T) {
	repo := seed(t,
		readme.Record{Identifier: "octocat", Mode: readme.ModeStandard, Content: "standard body"},
		readme.Record{Identifier: "octocat", Mode: readme.ModeMinimal, Content: "minimal body"},
	)
	r := NewRenderer(repo, nil)

	svg, err := r.Render(context.Background(), "octocat")
	require.NoError(t, err)
	require.Contains(t, string(svg), "standard body")

	// default pointing at a missing mode also falls back
	require.NoError(t, repo.SetDefaultMode(context.Background(), "octocat", readme.ModeDetailed))
	svg, err = r.Render(context.Background(), "octocat")
	require.NoError(t, err)
	require.Contains(t, string(svg), "standard body")
}

func TestRender_NotFound(t *testing.T) {
	repo := seed(t, readme.Record{Identifier: "octocat", Mode: readme.ModeMinimal, Content: "minimal only"})
	r := NewRenderer(repo, nil)

	_, err := r.Render(context.Background(), "octocat")
	require.ErrorIs(t, err, readme.ErrNotFound)

	_, err = r.Render(context.Background(), "nobody")
	require.ErrorIs(t, err, readme.ErrNotFound)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, svg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = svg
	return nil
}

func TestRender_SnapshotCache(t *testing.T) {
	repo := seed(t, readme.Record{Identifier: "octocat", Mode: readme.ModeStandard, Content: "v1"})
	cache := &memCache{data: map[string][]byte{}}
	r := NewRenderer(repo, cache)

	first, err := r.Render(context.Background(), "octocat")
	require.NoError(t, err)
	require.Len(t, cache.data, 1)

	second, err := r.Render(context.Background(), "octocat")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, cache.data, 1)

	// an edit produces a new key
	require.NoError(t, repo.Upsert(context.Background(), &readme.Record{Identifier: "octocat", Mode: readme.ModeStandard, Content: "v2"}))
	third, err := r.Render(context.Background(), "octocat")
	require.NoError(t, err)
	require.Contains(t, string(third), "v2")
	require.Len(t, cache.data, 2)
	for k := range cache.data {
		require.True(t, strings.HasPrefix(k, "cards/octocat/"))
	}
}
