package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

// BuildFunc generates the body of a page.
type BuildFunc func(ctx context.Context) ([]byte, error)

// Revalidator serves cached pages while they are younger than the window and
// regenerates them on the first request after that. Stale content may be
// served within the window; the window bounds staleness only.
type Revalidator struct {
	store    Store
	window   time.Duration
	group    singleflight.Group
	now      func() time.Time
	logError *log.Logger
}

// RevalidatorOption configures a Revalidator.
type RevalidatorOption func(*Revalidator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RevalidatorOption {
	return func(r *Revalidator) { r.now = now }
}

// WithErrorLog sets the logger for regeneration failures that were absorbed.
func WithErrorLog(l *log.Logger) RevalidatorOption {
	return func(r *Revalidator) { r.logError = l }
}

// NewRevalidator creates a Revalidator over store.
func NewRevalidator(store Store, window time.Duration, opts ...RevalidatorOption) *Revalidator {
	r := &Revalidator{
		store:    store,
		window:   window,
		now:      time.Now,
		logError: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the page for key, generating it with build when it is missing
// or stale. Concurrent calls for one key share a single build.
//
// When build reports model.ErrDocumentNotFound the entry is dropped and the
// error returned. Any other build error falls back to the stale entry if
// there is one.
func (r *Revalidator) Get(ctx context.Context, key string, build BuildFunc) ([]byte, error) {
	cached, ok, err := r.store.Get(ctx, key)
	if err != nil {
		r.logError.Printf("cache get %s: %v", key, err)
		ok = false
	}
	if ok && r.now().Sub(cached.BuiltAt) < r.window {
		return cached.Body, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		body, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.store.Put(ctx, key, Entry{Body: body, BuiltAt: r.now()}); err != nil {
			r.logError.Printf("cache put %s: %v", key, err)
		}
		return body, nil
	})
	if err == nil {
		return v.([]byte), nil
	}

	if errors.Is(err, model.ErrDocumentNotFound) {
		if derr := r.store.Delete(ctx, key); derr != nil {
			r.logError.Printf("cache delete %s: %v", key, derr)
		}
		return nil, err
	}
	if ok {
		r.logError.Printf("regenerating %s failed, serving stale page: %v", key, err)
		return cached.Body, nil
	}
	return nil, err
}

// Purge drops every cached page.
func (r *Revalidator) Purge(ctx context.Context) error {
	return r.store.Purge(ctx)
}
