// Package page assembles post and listing view models from the document store.
package page

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/Bitlatte/spacetraveling/internal/datefmt"
	"github.com/Bitlatte/spacetraveling/internal/model"
	"github.com/Bitlatte/spacetraveling/internal/readtime"
	"github.com/Bitlatte/spacetraveling/internal/richtext"
)

// DefaultRevalidate is how long a generated page stays fresh.
const DefaultRevalidate = 30 * time.Minute

// DocumentClient fetches post documents from a content store.
type DocumentClient interface {
	// GetByUID returns the document with the given uid, or an error
	// matching model.ErrDocumentNotFound.
	GetByUID(ctx context.Context, docType, uid string) (model.Post, error)

	// ListUIDs returns up to pageSize uids, in listing order.
	ListUIDs(ctx context.Context, docType string, pageSize int) ([]string, error)

	// Query returns one page of documents, in listing order.
	Query(ctx context.Context, docType string, pageSize, page int) (model.PostList, error)
}

// State is the outcome of a page generation.
type State int

const (
	Loading State = iota
	Ready
	NotFound
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case NotFound:
		return "not found"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is a finished generation. Page is set only when State is Ready.
// Warnings carries block-level content problems; the page is still usable.
type Result struct {
	State    State
	Page     *model.PostPage
	Warnings error
}

// Controller generates view models. It holds no per-post state and is safe
// for concurrent use.
type Controller struct {
	client       DocumentClient
	docType      string
	dates        datefmt.Formatter
	listingSize  int
	prerenderMax int
}

// Option configures a Controller.
type Option func(*Controller)

// WithDocumentType sets the document type of posts. Default "posts".
func WithDocumentType(t string) Option {
	return func(c *Controller) { c.docType = t }
}

// WithLocale sets the locale used for publication dates. Default "pt-BR".
func WithLocale(locale string) Option {
	return func(c *Controller) { c.dates = datefmt.New(locale) }
}

// WithListingSize sets how many posts a listing page holds. Default 20.
func WithListingSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.listingSize = n
		}
	}
}

// WithPrerenderSize sets how many posts are generated ahead of time. Default 2.
func WithPrerenderSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.prerenderMax = n
		}
	}
}

// New creates a Controller backed by client.
func New(client DocumentClient, opts ...Option) *Controller {
	c := &Controller{
		client:       client,
		docType:      "posts",
		dates:        datefmt.New("pt-BR"),
		listingSize:  20,
		prerenderMax: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate fetches the post for slug and assembles its view model.
// A missing post yields State NotFound and a nil error; any other
// failure is returned as an error.
func (c *Controller) Generate(ctx context.Context, slug string) (Result, error) {
	post, err := c.client.GetByUID(ctx, c.docType, slug)
	if errors.Is(err, model.ErrDocumentNotFound) {
		return Result{State: NotFound}, nil
	}
	if err != nil {
		return Result{State: Loading}, fmt.Errorf("generating post %q: %w", slug, err)
	}

	pg := c.Assemble(post)
	return Result{State: Ready, Page: &pg, Warnings: errors.Join(post.Malformed...)}, nil
}

// Assemble builds the view model of post. Reading time is computed here,
// before anything is rendered.
func (c *Controller) Assemble(post model.Post) model.PostPage {
	blocks := make([]model.RenderedBlock, 0, len(post.Content))
	for i, b := range post.Content {
		blocks = append(blocks, model.RenderedBlock{
			Key:     fmt.Sprintf("block-%d", i),
			Heading: b.Heading,
			// Render escapes every text node; the result is safe markup.
			HTML: template.HTML(richtext.Render(b.Body)),
			Text: richtext.PlainText(b.Body),
		})
	}
	return model.PostPage{
		UID:                post.UID,
		Title:              post.Title,
		BannerURL:          post.BannerURL,
		Author:             post.Author,
		PublicationDate:    c.dates.Format(post.FirstPublicationDate),
		ReadingTimeMinutes: readtime.Estimate(post.Content),
		Content:            blocks,
	}
}

// Listing assembles listing page number n (1-based).
func (c *Controller) Listing(ctx context.Context, n int) (model.ListingPage, error) {
	if n < 1 {
		n = 1
	}
	list, err := c.client.Query(ctx, c.docType, c.listingSize, n)
	if err != nil {
		return model.ListingPage{}, fmt.Errorf("listing page %d: %w", n, err)
	}
	out := model.ListingPage{Page: n, NextPage: list.NextPage, Posts: make([]model.PostSummary, 0, len(list.Posts))}
	for _, p := range list.Posts {
		out.Posts = append(out.Posts, model.PostSummary{
			UID:             p.UID,
			Title:           p.Title,
			Subtitle:        p.Subtitle,
			Author:          p.Author,
			PublicationDate: c.dates.Format(p.FirstPublicationDate),
		})
	}
	return out, nil
}

// Paths returns the slugs to generate ahead of time.
func (c *Controller) Paths(ctx context.Context) ([]string, error) {
	uids, err := c.client.ListUIDs(ctx, c.docType, c.prerenderMax)
	if err != nil {
		return nil, fmt.Errorf("listing paths: %w", err)
	}
	return uids, nil
}
