package cmd

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/Bitlatte/spacetraveling/internal/document"
	"github.com/Bitlatte/spacetraveling/internal/prismic"
)

// memorySink validates documents the way the Postgres mirror does.
type memorySink struct {
	uids []string
	err  error
}

func (m *memorySink) Upsert(_ context.Context, raw document.Raw) error {
	if m.err != nil {
		return m.err
	}
	post, err := document.Decode(raw)
	if err != nil {
		return err
	}
	m.uids = append(m.uids, post.UID)
	return nil
}

func TestMirror_PagesThroughRepository(t *testing.T) {
	repo := &fakeRepo{
		listed:    []string{"a", "broken", "b", "c", "d"},
		malformed: map[string]bool{"broken": true},
	}
	client := prismic.NewClient(repo.start(t), "")
	sink := &memorySink{}

	copied, skipped, err := mirrorDocuments(context.Background(), client, sink, "posts", 2)
	assert.NilError(t, err)
	assert.Equal(t, copied, 4)
	assert.Equal(t, skipped, 1)
	assert.DeepEqual(t, sink.uids, []string{"a", "b", "c", "d"})
	assert.Equal(t, repo.searches.Load(), int32(3))
}

func TestMirror_StopsOnStoreFailure(t *testing.T) {
	repo := &fakeRepo{listed: []string{"a", "b", "c"}}
	client := prismic.NewClient(repo.start(t), "")
	down := errors.New("connection refused")

	copied, _, err := mirrorDocuments(context.Background(), client, &memorySink{err: down}, "posts", 2)
	assert.ErrorIs(t, err, down)
	assert.Equal(t, copied, 0)
	assert.Equal(t, repo.searches.Load(), int32(1))
}
