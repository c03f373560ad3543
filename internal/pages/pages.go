// Package pages loads local markdown pages (about, colophon...) that live
// next to the site instead of in the content repository.
package pages

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

var dateFormats = []string{"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// Loader converts markdown files into content items.
type Loader struct {
	md    goldmark.Markdown
	title cases.Caser
}

// NewLoader creates a Loader. Raw HTML inside markdown is not rendered.
func NewLoader() *Loader {
	return &Loader{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
			),
		),
		title: cases.Title(language.English),
	}
}

// Load reads every .md file under dir. A missing dir yields no pages.
// Pages are ordered newest first; undated pages come last.
func (l *Loader) Load(dir string) ([]*model.ContentItem, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var items []*model.ContentItem
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error accessing path '%s': %w", path, walkErr)
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file '%s': %w", path, err)
		}
		item, err := l.Convert(filepath.ToSlash(rel), src)
		if err != nil {
			return err
		}
		item.SourcePath = path
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date.IsZero() {
			return false
		}
		if items[j].Date.IsZero() {
			return true
		}
		return items[i].Date.After(items[j].Date)
	})
	return items, nil
}

// Convert renders one markdown source. rel is its slash-separated path
// relative to the content directory.
func (l *Loader) Convert(rel string, src []byte) (*model.ContentItem, error) {
	fm := map[string]interface{}{}
	body, err := frontmatter.Parse(bytes.NewReader(src), &fm)
	if err != nil {
		// No usable frontmatter: the whole file is markdown.
		body = src
		fm = map[string]interface{}{}
	}

	var buf bytes.Buffer
	if err := l.md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown '%s': %w", rel, err)
	}

	slug := strings.TrimSuffix(rel, filepath.Ext(rel))
	item := &model.ContentItem{
		Slug:        slug,
		Permalink:   "/" + slug + "/",
		ContentHTML: template.HTML(buf.String()),
		Frontmatter: fm,
	}

	if t, ok := fm["title"].(string); ok && t != "" {
		item.Title = t
	} else {
		base := filepath.Base(slug)
		item.Title = l.title.String(strings.ReplaceAll(strings.ReplaceAll(base, "-", " "), "_", " "))
	}
	if s, ok := fm["summary"].(string); ok {
		item.Summary = s
	}
	if s, ok := fm["layout"].(string); ok {
		item.Layout = s
	}
	switch v := fm["date"].(type) {
	case time.Time:
		item.Date = v
	case string:
		for _, f := range dateFormats {
			if d, err := time.Parse(f, v); err == nil {
				item.Date = d
				break
			}
		}
	}
	return item, nil
}
