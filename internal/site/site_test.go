package site

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

func newRenderer(t *testing.T, dir string) *Renderer {
	t.Helper()
	r, err := NewRenderer(dir, &model.SiteData{Title: "spacetraveling."}, "pt-BR")
	assert.NilError(t, err)
	return r
}

func TestRenderer_Post(t *testing.T) {
	r := newRenderer(t, "")
	var buf bytes.Buffer
	err := r.Post(&buf, &model.PostPage{
		Title:              "Hooks <b>now</b>",
		BannerURL:          "https://img/banner.png",
		Author:             "Ana",
		PublicationDate:    "15 mar 2021",
		ReadingTimeMinutes: 4,
		Content: []model.RenderedBlock{
			{Key: "block-0", Heading: "Intro", HTML: "<p>hello <strong>world</strong></p>"},
		},
	})
	assert.NilError(t, err)

	out := buf.String()
	assert.Assert(t, is.Contains(out, `<html lang="pt-BR">`))
	assert.Assert(t, is.Contains(out, "<title>Hooks &lt;b&gt;now&lt;/b&gt; | spacetraveling.</title>"))
	assert.Assert(t, is.Contains(out, "<p>hello <strong>world</strong></p>"))
	assert.Assert(t, is.Contains(out, `<section id="block-0">`))
	assert.Assert(t, is.Contains(out, "4 min"))
	assert.Assert(t, is.Contains(out, "15 mar 2021"))
	assert.Assert(t, is.Contains(out, `<a href="/"><img src="/images/logo.svg" alt="logo"></a>`))
}

func TestRenderer_Home(t *testing.T) {
	r := newRenderer(t, "")
	var buf bytes.Buffer
	err := r.Home(&buf, &model.ListingPage{
		Posts:    []model.PostSummary{{UID: "como-utilizar-hooks", Title: "Como utilizar Hooks", Author: "Ana"}},
		Page:     1,
		NextPage: 2,
	})
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(buf.String(), `href="/post/como-utilizar-hooks"`))
	assert.Assert(t, is.Contains(buf.String(), `href="/page/2/"`))
}

func TestRenderer_NotFound(t *testing.T) {
	r := newRenderer(t, "")
	var buf bytes.Buffer
	assert.NilError(t, r.NotFound(&buf))
	assert.Assert(t, is.Contains(buf.String(), "Post não encontrado"))
}

func TestRenderer_CustomLayoutsOverrideDefaults(t *testing.T) {
	dir := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(dir, BaseLayout),
		[]byte(`<body>{{block "content" .}}{{end}}</body>`), 0o644))
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "wide.html"),
		[]byte(`{{define "content"}}WIDE {{.Page.Title}}{{end}}`), 0o644))

	r := newRenderer(t, dir)

	var buf bytes.Buffer
	assert.NilError(t, r.Page(&buf, &model.ContentItem{Title: "About", Layout: "wide.html"}))
	assert.Equal(t, buf.String(), "<body>WIDE About</body>")

	buf.Reset()
	assert.NilError(t, r.Page(&buf, &model.ContentItem{Title: "About", Layout: "missing.html", ContentHTML: "<p>x</p>"}))
	assert.Assert(t, is.Contains(buf.String(), "<h1>About</h1>"))
	assert.Assert(t, strings.HasPrefix(buf.String(), "<body>"))
}

func TestRenderer_PageIgnoresViewModelLayouts(t *testing.T) {
	r := newRenderer(t, "")

	for _, layout := range []string{PostLayout, HomeLayout, NotFoundLayout, BaseLayout} {
		var buf bytes.Buffer
		item := &model.ContentItem{Title: "About", Layout: layout, ContentHTML: "<p>quem somos</p>"}
		assert.NilError(t, r.Page(&buf, item), "layout %s", layout)
		assert.Assert(t, is.Contains(buf.String(), "<h1>About</h1>"), "layout %s", layout)
		assert.Assert(t, is.Contains(buf.String(), "<p>quem somos</p>"), "layout %s", layout)
	}
}

func TestRenderer_ReloadKeepsOldLayoutsOnError(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, BaseLayout)
	assert.NilError(t, os.WriteFile(base, []byte(`v1{{block "content" .}}{{end}}`), 0o644))
	r := newRenderer(t, dir)

	assert.NilError(t, os.WriteFile(base, []byte(`{{if}`), 0o644))
	assert.Assert(t, r.Reload() != nil)

	var buf bytes.Buffer
	assert.NilError(t, r.NotFound(&buf))
	assert.Assert(t, strings.HasPrefix(buf.String(), "v1"))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, OutputPath("public", "/"), filepath.Join("public", "index.html"))
	assert.Equal(t, OutputPath("public", "/post/slug/"), filepath.Join("public", "post", "slug", "index.html"))
	assert.Equal(t, OutputPath("public", "../../etc"), filepath.Join("public", "etc", "index.html"))
}

func TestWriteFileAndCopyDir(t *testing.T) {
	src := t.TempDir()
	assert.NilError(t, os.MkdirAll(filepath.Join(src, "images"), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(src, "images", "logo.svg"), []byte("<svg/>"), 0o644))

	dst := t.TempDir()
	assert.NilError(t, CopyDir(src, dst))
	data, err := os.ReadFile(filepath.Join(dst, "images", "logo.svg"))
	assert.NilError(t, err)
	assert.Equal(t, string(data), "<svg/>")

	target := OutputPath(dst, "/post/a/")
	assert.NilError(t, WriteFile(target, func(w io.Writer) error {
		_, err := io.WriteString(w, "page")
		return err
	}))
	data, err = os.ReadFile(target)
	assert.NilError(t, err)
	assert.Equal(t, string(data), "page")
}
