package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/Bitlatte/spacetraveling/internal/cache"
	"github.com/Bitlatte/spacetraveling/internal/model"
	"github.com/Bitlatte/spacetraveling/internal/page"
	"github.com/Bitlatte/spacetraveling/internal/site"
)

type fakeClient struct {
	mu    sync.Mutex
	posts map[string]model.Post
	err   error
	gets  map[string]int
}

func (f *fakeClient) GetByUID(_ context.Context, docType, uid string) (model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets[uid]++
	if f.err != nil {
		return model.Post{}, f.err
	}
	p, ok := f.posts[uid]
	if !ok {
		return model.Post{}, fmt.Errorf("%s %q: %w", docType, uid, model.ErrDocumentNotFound)
	}
	return p, nil
}

func (f *fakeClient) ListUIDs(context.Context, string, int) ([]string, error) {
	return []string{"hooks"}, nil
}

func (f *fakeClient) Query(_ context.Context, _ string, _, pageNum int) (model.PostList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.PostList{}, f.err
	}
	if pageNum > 1 {
		return model.PostList{Page: pageNum}, nil
	}
	return model.PostList{Page: 1, Posts: []model.Post{f.posts["hooks"]}}, nil
}

func (f *fakeClient) getCount(uid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets[uid]
}

func (f *fakeClient) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	client *fakeClient
	clock  *clock
	srv    *Server
	http   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	published := time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{
		gets: map[string]int{},
		posts: map[string]model.Post{
			"hooks": {
				UID:                  "hooks",
				FirstPublicationDate: &published,
				Title:                "Como utilizar Hooks",
				Author:               "Ana",
				Content: []model.ContentBlock{
					{Heading: "Intro", Body: []model.Span{{Text: "hello world"}}},
					{Heading: "Intro", Body: []model.Span{{Text: `<script>alert("x")</script>`}}},
				},
			},
		},
	}
	renderer, err := site.NewRenderer("", &model.SiteData{Title: "spacetraveling."}, "pt-BR")
	assert.NilError(t, err)

	clk := &clock{now: published}
	quiet := log.New(io.Discard, "", 0)
	static := t.TempDir()
	assert.NilError(t, os.MkdirAll(filepath.Join(static, "images"), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(static, "images", "logo.svg"), []byte("<svg/>"), 0o644))

	srv := New(Config{
		Pages:     page.New(client),
		Renderer:  renderer,
		Cache:     cache.NewRevalidator(cache.NewMemoryStore(), page.DefaultRevalidate, cache.WithClock(clk.Now)),
		StaticDir: static,
		Window:    page.DefaultRevalidate,
		LogInfo:   quiet,
		LogError:  quiet,
	})
	srv.SetPages([]*model.ContentItem{{Title: "Sobre", Permalink: "/about/", ContentHTML: "<p>quem somos</p>"}})

	hs := httptest.NewServer(srv.Router())
	t.Cleanup(hs.Close)
	return &fixture{client: client, clock: clk, srv: srv, http: hs}
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := f.http.Client().Get(f.http.URL + path)
	assert.NilError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	return resp.StatusCode, string(body)
}

func TestPost_RendersPage(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/post/hooks")
	assert.Equal(t, status, http.StatusOK)
	assert.Assert(t, is.Contains(body, "<title>Como utilizar Hooks | spacetraveling.</title>"))
	assert.Assert(t, is.Contains(body, "15 mar 2021"))
	assert.Assert(t, is.Contains(body, "1 min"))
	assert.Assert(t, is.Contains(body, "<p>hello world</p>"))
	assert.Assert(t, is.Contains(body, "&lt;script&gt;"))
	assert.Assert(t, !strings.Contains(body, "<script>"))
}

func TestPost_UnknownSlugIsNotFound(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/post/missing")
	assert.Equal(t, status, http.StatusNotFound)
	assert.Assert(t, is.Contains(body, "Post não encontrado"))
}

func TestPost_RevalidatesAfterWindow(t *testing.T) {
	f := newFixture(t)

	f.get(t, "/post/hooks")
	f.get(t, "/post/hooks")
	assert.Equal(t, f.client.getCount("hooks"), 1)

	f.clock.Advance(page.DefaultRevalidate)
	f.get(t, "/post/hooks")
	assert.Equal(t, f.client.getCount("hooks"), 2)
}

func TestPost_ServesStaleWhenRegenerationFails(t *testing.T) {
	f := newFixture(t)

	status, _ := f.get(t, "/post/hooks")
	assert.Equal(t, status, http.StatusOK)

	f.clock.Advance(time.Hour)
	f.client.setErr(&model.FetchError{Op: "get posts/hooks", Err: errors.New("connection refused")})
	status, body := f.get(t, "/post/hooks")
	assert.Equal(t, status, http.StatusOK)
	assert.Assert(t, is.Contains(body, "Como utilizar Hooks"))

	status, _ = f.get(t, "/post/other")
	assert.Equal(t, status, http.StatusInternalServerError)
}

func TestHome_ListsPosts(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/")
	assert.Equal(t, status, http.StatusOK)
	assert.Assert(t, is.Contains(body, `href="/post/hooks"`))

	status, _ = f.get(t, "/?page=2")
	assert.Equal(t, status, http.StatusNotFound)

	status, _ = f.get(t, "/?page=zero")
	assert.Equal(t, status, http.StatusNotFound)

	status, body = f.get(t, "/page/1/")
	assert.Equal(t, status, http.StatusOK)
	assert.Assert(t, is.Contains(body, `href="/post/hooks"`))

	status, _ = f.get(t, "/page/2/")
	assert.Equal(t, status, http.StatusNotFound)

	status, _ = f.get(t, "/page/0/")
	assert.Equal(t, status, http.StatusNotFound)
}

func TestFallback_LocalPagesAndStatic(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/about/")
	assert.Equal(t, status, http.StatusOK)
	assert.Assert(t, is.Contains(body, "<p>quem somos</p>"))

	status, body = f.get(t, "/images/logo.svg")
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, body, "<svg/>")

	status, _ = f.get(t, "/images/")
	assert.Equal(t, status, http.StatusNotFound)

	status, _ = f.get(t, "/nothing-here")
	assert.Equal(t, status, http.StatusNotFound)
}
