// Package document decodes content-store documents into posts.
//
// The store's JSON shape is validated here instead of being trusted: a
// document without uid, data or title is rejected, and a content block
// missing its heading or body decodes as an empty block.
package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

// Raw is a document as the content store returns it.
type Raw struct {
	ID                   string          `json:"id"`
	UID                  *string         `json:"uid"`
	Type                 string          `json:"type"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

type rawData struct {
	Title    *string `json:"title"`
	Subtitle string  `json:"subtitle"`
	Author   string  `json:"author"`
	Banner   struct {
		URL string `json:"url"`
	} `json:"banner"`
	Content []json.RawMessage `json:"content"`
}

type rawBlock struct {
	Heading *string    `json:"heading"`
	Body    *[]rawSpan `json:"body"`
}

type rawSpan struct {
	Type  string    `json:"type"`
	Text  string    `json:"text"`
	Spans []rawMark `json:"spans"`
}

type rawMark struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
	Data  struct {
		URL string `json:"url"`
	} `json:"data"`
}

var dateLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

// Decode validates raw and converts it into a Post. Block-level problems are
// reported in Post.Malformed; document-level problems fail with
// model.ErrMalformedContent.
func Decode(raw Raw) (model.Post, error) {
	if raw.UID == nil || *raw.UID == "" {
		return model.Post{}, fmt.Errorf("document %q: missing uid: %w", raw.ID, model.ErrMalformedContent)
	}
	uid := *raw.UID

	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return model.Post{}, fmt.Errorf("post %q: missing data: %w", uid, model.ErrMalformedContent)
	}
	var data rawData
	if err := json.Unmarshal(raw.Data, &data); err != nil {
		return model.Post{}, fmt.Errorf("post %q: decoding data: %v: %w", uid, err, model.ErrMalformedContent)
	}
	if data.Title == nil {
		return model.Post{}, fmt.Errorf("post %q: missing title: %w", uid, model.ErrMalformedContent)
	}

	published, err := parseDate(raw.FirstPublicationDate)
	if err != nil {
		return model.Post{}, fmt.Errorf("post %q: %v: %w", uid, err, model.ErrMalformedContent)
	}

	post := model.Post{
		UID:                  uid,
		FirstPublicationDate: published,
		Title:                *data.Title,
		Subtitle:             data.Subtitle,
		BannerURL:            data.Banner.URL,
		Author:               data.Author,
		Content:              make([]model.ContentBlock, 0, len(data.Content)),
	}
	for i, rb := range data.Content {
		block, field := decodeBlock(rb)
		if field != "" {
			post.Malformed = append(post.Malformed, &model.MalformedContentError{UID: uid, Block: i, Field: field})
		}
		post.Content = append(post.Content, block)
	}
	return post, nil
}

// decodeBlock returns the block, or an empty block and the name of the
// offending field.
func decodeBlock(data json.RawMessage) (model.ContentBlock, string) {
	var rb rawBlock
	if err := json.Unmarshal(data, &rb); err != nil {
		return model.ContentBlock{}, "block"
	}
	if rb.Heading == nil {
		return model.ContentBlock{}, "heading"
	}
	if rb.Body == nil {
		return model.ContentBlock{}, "body"
	}

	block := model.ContentBlock{Heading: *rb.Heading, Body: make([]model.Span, 0, len(*rb.Body))}
	for _, s := range *rb.Body {
		span := model.Span{Type: s.Type, Text: s.Text}
		for _, m := range s.Spans {
			span.Marks = append(span.Marks, model.Mark{Start: m.Start, End: m.End, Type: m.Type, URL: m.Data.URL})
		}
		block.Body = append(block.Body, span)
	}
	return block, ""
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparsable first_publication_date %q", *s)
}
