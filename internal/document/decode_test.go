package document

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

const sampleDocument = `{
  "id": "YEv2qhIAACcAFfA2",
  "uid": "como-utilizar-hooks",
  "type": "posts",
  "first_publication_date": "2021-03-15T19:25:28+0000",
  "data": {
    "title": "Como utilizar Hooks",
    "subtitle": "Pensando em sincronização em vez de ciclos de vida",
    "author": "Joseph Oliveira",
    "banner": {"url": "https://images.prismic.io/banner.png"},
    "content": [
      {
        "heading": "Proin et varius",
        "body": [
          {"type": "paragraph", "text": "Nullam dolor sapien", "spans": [
            {"start": 0, "end": 6, "type": "strong"},
            {"start": 7, "end": 12, "type": "hyperlink", "data": {"url": "https://example.com"}}
          ]}
        ]
      },
      {"body": [{"type": "paragraph", "text": "orphan"}]},
      {"heading": "Cras laoreet"}
    ]
  }
}`

func decodeSample(t *testing.T, doc string) (model.Post, error) {
	t.Helper()
	var raw Raw
	assert.NilError(t, json.Unmarshal([]byte(doc), &raw))
	return Decode(raw)
}

func TestDecode_MapsFields(t *testing.T) {
	post, err := decodeSample(t, sampleDocument)
	assert.NilError(t, err)

	assert.Equal(t, post.UID, "como-utilizar-hooks")
	assert.Equal(t, post.Title, "Como utilizar Hooks")
	assert.Equal(t, post.Author, "Joseph Oliveira")
	assert.Equal(t, post.BannerURL, "https://images.prismic.io/banner.png")
	assert.Assert(t, post.FirstPublicationDate != nil)
	assert.Assert(t, post.FirstPublicationDate.Equal(time.Date(2021, time.March, 15, 19, 25, 28, 0, time.UTC)))

	assert.Equal(t, len(post.Content), 3)
	first := post.Content[0]
	assert.Equal(t, first.Heading, "Proin et varius")
	assert.DeepEqual(t, first.Body, []model.Span{{
		Type: "paragraph",
		Text: "Nullam dolor sapien",
		Marks: []model.Mark{
			{Start: 0, End: 6, Type: "strong"},
			{Start: 7, End: 12, Type: "hyperlink", URL: "https://example.com"},
		},
	}})
}

func TestDecode_MalformedBlocksAreEmpty(t *testing.T) {
	post, err := decodeSample(t, sampleDocument)
	assert.NilError(t, err)

	assert.DeepEqual(t, post.Content[1], model.ContentBlock{})
	assert.DeepEqual(t, post.Content[2], model.ContentBlock{})
	assert.Equal(t, len(post.Malformed), 2)

	var mce *model.MalformedContentError
	assert.Assert(t, errors.As(post.Malformed[0], &mce))
	assert.Equal(t, mce.Block, 1)
	assert.Equal(t, mce.Field, "heading")
	assert.Assert(t, errors.Is(post.Malformed[1], model.ErrMalformedContent))
}

func TestDecode_RejectsMissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"uid":   `{"id": "x", "data": {"title": "t"}}`,
		"data":  `{"id": "x", "uid": "slug"}`,
		"title": `{"id": "x", "uid": "slug", "data": {"author": "a"}}`,
		"date":  `{"id": "x", "uid": "slug", "first_publication_date": "yesterday", "data": {"title": "t"}}`,
		"shape": `{"id": "x", "uid": "slug", "data": {"title": 42}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeSample(t, doc)
			assert.ErrorIs(t, err, model.ErrMalformedContent)
		})
	}
}

func TestDecode_NullPublicationDate(t *testing.T) {
	post, err := decodeSample(t, `{"uid": "draft", "first_publication_date": null, "data": {"title": "t", "content": []}}`)
	assert.NilError(t, err)
	assert.Assert(t, post.FirstPublicationDate == nil)
	assert.Equal(t, len(post.Content), 0)
}
