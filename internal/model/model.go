package model

import (
	"html/template"
	"time"
)

// Post is a published article as returned by the document store.
type Post struct {
	UID                  string
	FirstPublicationDate *time.Time
	Title                string
	Subtitle             string
	BannerURL            string
	Author               string
	Content              []ContentBlock

	// Malformed lists content blocks that failed to decode. Those blocks are
	// present in Content but empty.
	Malformed []error
}

// ContentBlock is one section of a post: a heading followed by rich text.
type ContentBlock struct {
	Heading string
	Body    []Span
}

// Span is one rich-text block (a paragraph, a heading, a list item...).
// Only Text is required; Type defaults to a paragraph.
type Span struct {
	Type  string
	Text  string
	Marks []Mark
}

// Mark annotates a range of a Span's text. Start and End are UTF-16 offsets.
type Mark struct {
	Start int
	End   int
	Type  string
	URL   string
}

// PostSummary is the listing projection of a Post.
type PostSummary struct {
	UID             string
	Title           string
	Subtitle        string
	Author          string
	PublicationDate string
}

// PostList is one page of a listing query.
type PostList struct {
	Posts    []Post
	Page     int
	NextPage int // 0 when there is no next page
}

// RenderedBlock is a ContentBlock after rich-text rendering.
type RenderedBlock struct {
	Key     string
	Heading string
	HTML    template.HTML
	Text    string
}

// PostPage is the view model for a single post.
type PostPage struct {
	UID                string
	Title              string
	BannerURL          string
	Author             string
	PublicationDate    string
	ReadingTimeMinutes int
	Content            []RenderedBlock
}

// ListingPage is the view model for the post listing.
type ListingPage struct {
	Posts    []PostSummary
	Page     int
	NextPage int
}

// ContentItem is a local markdown page (about, colophon...).
type ContentItem struct {
	Title       string
	Date        time.Time
	Slug        string
	SourcePath  string
	Permalink   string
	ContentHTML template.HTML
	Frontmatter map[string]interface{}
	Summary     string
	Layout      string
}

// SiteData holds site-wide data shared by every layout.
type SiteData struct {
	Title   string
	BaseURL string
	Params  map[string]interface{}
	Pages   []*ContentItem
}
