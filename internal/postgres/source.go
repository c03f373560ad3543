// Package postgres serves documents from a Postgres mirror of the content
// repository. Rows keep the repository's JSON payload untouched, so they go
// through the same validation as documents fetched over HTTP.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bitlatte/spacetraveling/internal/document"
	"github.com/Bitlatte/spacetraveling/internal/model"
)

// Schema creates the mirror table.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id                     TEXT PRIMARY KEY,
	uid                    TEXT NOT NULL,
	type                   TEXT NOT NULL,
	first_publication_date TIMESTAMPTZ,
	data                   JSONB NOT NULL,
	UNIQUE (type, uid)
)`

// Source reads posts from the documents table.
type Source struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn.
func Connect(ctx context.Context, dsn string) (*Source, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &Source{pool: pool}, nil
}

// Close releases the pool.
func (s *Source) Close() { s.pool.Close() }

// Migrate creates the documents table if needed.
func (s *Source) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Upsert stores a raw document, replacing any previous version.
func (s *Source) Upsert(ctx context.Context, raw document.Raw) error {
	post, err := document.Decode(raw)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (id, uid, type, first_publication_date, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET uid = EXCLUDED.uid, type = EXCLUDED.type,
		    first_publication_date = EXCLUDED.first_publication_date, data = EXCLUDED.data`,
		raw.ID, post.UID, raw.Type, post.FirstPublicationDate, []byte(raw.Data))
	if err != nil {
		return fmt.Errorf("upsert document %q: %w", raw.ID, err)
	}
	return nil
}

// GetByUID returns the document of docType whose uid is uid.
func (s *Source) GetByUID(ctx context.Context, docType, uid string) (model.Post, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, uid, first_publication_date, data
		FROM documents WHERE type = $1 AND uid = $2`, docType, uid)

	raw, err := scanRaw(row, docType)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Post{}, fmt.Errorf("%s %q: %w", docType, uid, model.ErrDocumentNotFound)
	}
	if err != nil {
		return model.Post{}, &model.FetchError{Op: "get " + docType + "/" + uid, Err: err}
	}
	return document.Decode(raw)
}

// Query returns one page (1-based) of documents of docType, newest first.
func (s *Source) Query(ctx context.Context, docType string, pageSize, page int) (model.PostList, error) {
	if page < 1 {
		page = 1
	}
	limit := pageSize
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, uid, first_publication_date, data
		FROM documents WHERE type = $1
		ORDER BY first_publication_date DESC NULLS LAST, uid
		LIMIT $2 OFFSET $3`, docType, limit+1, (page-1)*limit)
	if err != nil {
		return model.PostList{}, &model.FetchError{Op: "query " + docType, Err: err}
	}
	defer rows.Close()

	list := model.PostList{Page: page}
	n := 0
	for rows.Next() {
		n++
		if n > limit {
			list.NextPage = page + 1
			break
		}
		raw, err := scanRaw(rows, docType)
		if err != nil {
			return model.PostList{}, &model.FetchError{Op: "query " + docType, Err: err}
		}
		post, err := document.Decode(raw)
		if err != nil {
			continue
		}
		list.Posts = append(list.Posts, post)
	}
	if err := rows.Err(); err != nil {
		return model.PostList{}, &model.FetchError{Op: "query " + docType, Err: err}
	}
	return list, nil
}

// ListUIDs returns the uids of the first pageSize documents of docType.
func (s *Source) ListUIDs(ctx context.Context, docType string, pageSize int) ([]string, error) {
	list, err := s.Query(ctx, docType, pageSize, 1)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(list.Posts))
	for _, p := range list.Posts {
		uids = append(uids, p.UID)
	}
	return uids, nil
}

func scanRaw(row pgx.Row, docType string) (document.Raw, error) {
	var (
		raw       document.Raw
		uid       string
		published *time.Time
		data      []byte
	)
	if err := row.Scan(&raw.ID, &uid, &published, &data); err != nil {
		return document.Raw{}, err
	}
	raw.UID = &uid
	raw.Type = docType
	raw.Data = data
	if published != nil {
		s := published.UTC().Format(time.RFC3339)
		raw.FirstPublicationDate = &s
	}
	return raw, nil
}
