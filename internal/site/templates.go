// Package site renders view models through the HTML layouts and writes the
// generated site to disk.
package site

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

const (
	BaseLayout     = "base.html"
	HomeLayout     = "home.html"
	PostLayout     = "post.html"
	PageLayout     = "page.html"
	NotFoundLayout = "404.html"
)

// viewLayouts render a post, a listing or the not-found page and cannot
// hold a local page.
var viewLayouts = map[string]bool{
	BaseLayout:     true,
	HomeLayout:     true,
	PostLayout:     true,
	NotFoundLayout: true,
}

//go:embed layouts
var embedded embed.FS

// DefaultLayouts returns the layouts shipped with the binary.
func DefaultLayouts() fs.FS {
	sub, err := fs.Sub(embedded, "layouts")
	if err != nil {
		panic(err)
	}
	return sub
}

// Data is what every layout receives.
type Data struct {
	Site    *model.SiteData
	Lang    string
	Post    *model.PostPage
	Listing *model.ListingPage
	Page    *model.ContentItem
}

// Templates is a parsed set of layouts: one template per page layout, each
// combined with base.html and the partials.
type Templates struct {
	pages map[string]*template.Template
}

// ParseLayouts parses layouts from fsys. Page layouts missing from fsys are
// taken from the defaults. fsys must contain base.html.
func ParseLayouts(fsys fs.FS) (*Templates, error) {
	partials, err := fs.Glob(fsys, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to find partials: %w", err)
	}
	base, err := template.ParseFS(fsys, append([]string{BaseLayout}, partials...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base.html and partials: %w", err)
	}

	names, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to find layouts: %w", err)
	}
	sources := map[string]fs.FS{}
	for _, name := range []string{HomeLayout, PostLayout, PageLayout, NotFoundLayout} {
		sources[name] = DefaultLayouts()
	}
	for _, name := range names {
		if name != BaseLayout {
			sources[name] = fsys
		}
	}

	t := &Templates{pages: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone base layout: %w", err)
		}
		data, err := fs.ReadFile(src, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read layout %s: %w", name, err)
		}
		if _, err := clone.New(name).Parse(string(data)); err != nil {
			return nil, fmt.Errorf("failed to parse layout %s: %w", name, err)
		}
		t.pages[name] = clone
	}
	return t, nil
}

// LoadLayouts parses layouts from dir, or the defaults when dir has no
// base.html.
func LoadLayouts(dir string) (*Templates, error) {
	if dir != "" {
		if _, err := os.Stat(path.Join(dir, BaseLayout)); err == nil {
			return ParseLayouts(os.DirFS(dir))
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return ParseLayouts(DefaultLayouts())
}

// Has reports whether a page layout called name exists.
func (t *Templates) Has(name string) bool {
	_, ok := t.pages[name]
	return ok
}

// Execute renders data with the page layout name.
func (t *Templates) Execute(w io.Writer, name string, data Data) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("layout %s not found", name)
	}
	if err := tmpl.ExecuteTemplate(w, BaseLayout, data); err != nil {
		return fmt.Errorf("failed to execute layout %s: %w", name, err)
	}
	return nil
}

// Renderer renders pages for one site. Layouts can be reloaded while
// the renderer is in use.
type Renderer struct {
	mu        sync.RWMutex
	templates *Templates
	dir       string
	site      *model.SiteData
	lang      string
}

// NewRenderer loads layouts from dir (see LoadLayouts).
func NewRenderer(dir string, site *model.SiteData, lang string) (*Renderer, error) {
	r := &Renderer{dir: dir, site: site, lang: lang}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload parses the layouts again. On error the previous layouts stay active.
func (r *Renderer) Reload() error {
	t, err := LoadLayouts(r.dir)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.templates = t
	r.mu.Unlock()
	return nil
}

// SetPages replaces the site's local pages.
func (r *Renderer) SetPages(items []*model.ContentItem) {
	r.mu.Lock()
	r.site.Pages = items
	r.mu.Unlock()
}

func (r *Renderer) execute(w io.Writer, name string, data Data) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data.Site = r.site
	data.Lang = r.lang
	return r.templates.Execute(w, name, data)
}

// Home renders the listing page.
func (r *Renderer) Home(w io.Writer, listing *model.ListingPage) error {
	return r.execute(w, HomeLayout, Data{Listing: listing})
}

// Post renders a post page.
func (r *Renderer) Post(w io.Writer, p *model.PostPage) error {
	return r.execute(w, PostLayout, Data{Post: p})
}

// Page renders a local page with its frontmatter layout, if it exists and is
// not one of the view-model layouts.
func (r *Renderer) Page(w io.Writer, item *model.ContentItem) error {
	layout := PageLayout
	r.mu.RLock()
	if item.Layout != "" && !viewLayouts[item.Layout] && r.templates.Has(item.Layout) {
		layout = item.Layout
	}
	r.mu.RUnlock()
	return r.execute(w, layout, Data{Page: item})
}

// NotFound renders the not-found page.
func (r *Renderer) NotFound(w io.Writer) error {
	return r.execute(w, NotFoundLayout, Data{})
}
