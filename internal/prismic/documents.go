package prismic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Bitlatte/spacetraveling/internal/document"
	"github.com/Bitlatte/spacetraveling/internal/model"
)

type searchResponse struct {
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	NextPage   *string        `json:"next_page"`
	Results    []document.Raw `json:"results"`
}

// search runs one predicate query against the master ref.
func (c *Client) search(ctx context.Context, predicate string, pageSize, page int, orderings string) (searchResponse, error) {
	ref, err := c.masterRef(ctx)
	if err != nil {
		return searchResponse{}, err
	}

	q := url.Values{}
	q.Set("ref", ref)
	q.Set("q", "["+predicate+"]")
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if orderings != "" {
		q.Set("orderings", orderings)
	}

	data, err := c.get(ctx, "/documents/search", q)
	if err != nil {
		return searchResponse{}, err
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return searchResponse{}, fmt.Errorf("parsing search response: %w", err)
	}
	return resp, nil
}

// GetByUID returns the document of docType whose uid is uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid string) (model.Post, error) {
	predicate := fmt.Sprintf(`[at(my.%s.uid,%q)]`, docType, uid)
	resp, err := c.search(ctx, predicate, 1, 1, "")
	if err != nil {
		return model.Post{}, &model.FetchError{Op: "get " + docType + "/" + uid, Err: err}
	}
	if len(resp.Results) == 0 {
		return model.Post{}, fmt.Errorf("%s %q: %w", docType, uid, model.ErrDocumentNotFound)
	}
	return document.Decode(resp.Results[0])
}

// Query returns one page of documents of docType, newest first.
// Documents that fail validation are skipped.
func (c *Client) Query(ctx context.Context, docType string, pageSize, page int) (model.PostList, error) {
	raws, next, err := c.Documents(ctx, docType, pageSize, page)
	if err != nil {
		return model.PostList{}, err
	}

	list := model.PostList{Page: page, NextPage: next}
	if list.Page < 1 {
		list.Page = 1
	}
	for _, raw := range raws {
		post, err := document.Decode(raw)
		if err != nil {
			continue
		}
		list.Posts = append(list.Posts, post)
	}
	return list, nil
}

// Documents returns one page of undecoded documents of docType, newest
// first, and the number of the next page (0 on the last page).
func (c *Client) Documents(ctx context.Context, docType string, pageSize, page int) ([]document.Raw, int, error) {
	predicate := fmt.Sprintf(`[at(document.type,%q)]`, docType)
	resp, err := c.search(ctx, predicate, pageSize, page, "[document.first_publication_date desc]")
	if err != nil {
		return nil, 0, &model.FetchError{Op: "query " + docType, Err: err}
	}
	next := 0
	if resp.NextPage != nil && *resp.NextPage != "" {
		next = resp.Page + 1
	}
	return resp.Results, next, nil
}

// ListUIDs returns the uids of the first pageSize documents of docType.
func (c *Client) ListUIDs(ctx context.Context, docType string, pageSize int) ([]string, error) {
	list, err := c.Query(ctx, docType, pageSize, 1)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(list.Posts))
	for _, p := range list.Posts {
		uids = append(uids, p.UID)
	}
	return uids, nil
}
