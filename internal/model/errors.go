package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound indicates no document matches the requested uid.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrMalformedContent indicates a document is missing required fields.
	ErrMalformedContent = errors.New("malformed content")
)

// FetchError is a transport or service failure talking to the document store.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedContentError describes a single content block that failed to decode.
// It matches ErrMalformedContent with errors.Is.
type MalformedContentError struct {
	UID   string
	Block int
	Field string
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("post %q: content block %d: missing %s", e.UID, e.Block, e.Field)
}

func (e *MalformedContentError) Is(target error) bool {
	return target == ErrMalformedContent
}
