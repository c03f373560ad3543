package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeRepo serves a Prismic-style API with one post per uid in listed,
// newest first.
type fakeRepo struct {
	listed    []string
	gone      map[string]bool // listed but no longer fetchable by uid
	malformed map[string]bool // data without a title
	searches  atomic.Int32
}

func (f *fakeRepo) doc(uid string) string {
	data := fmt.Sprintf(`{"title": "Post %s", "author": "Ana", "banner": {"url": "https://images.example/%s.png"},
		"content": [
			{"heading": "Intro", "body": [{"type": "paragraph", "text": "hello <script>alert(1)</script>", "spans": []}]},
			{"heading": "Intro", "body": [{"type": "paragraph", "text": "again", "spans": []}]}
		]}`, uid, uid)
	if f.malformed[uid] {
		data = `{"author": "Ana"}`
	}
	return fmt.Sprintf(`{"id": "id-%s", "uid": %q, "type": "posts",
		"first_publication_date": "2021-03-15T19:25:28+0000", "data": %s}`, uid, uid, data)
}

func (f *fakeRepo) start(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"refs":[{"id":"master","ref":"M1","isMasterRef":true}]}`)
	})
	mux.HandleFunc("/api/v2/documents/search", func(w http.ResponseWriter, r *http.Request) {
		f.searches.Add(1)
		q := r.URL.Query()
		pageSize, page := 20, 1
		if v, err := strconv.Atoi(q.Get("pageSize")); err == nil {
			pageSize = v
		}
		if v, err := strconv.Atoi(q.Get("page")); err == nil {
			page = v
		}

		var results []string
		next := "null"
		switch pred := q.Get("q"); {
		case pred == `[[at(document.type,"posts")]]`:
			start := min((page-1)*pageSize, len(f.listed))
			end := min(start+pageSize, len(f.listed))
			for _, uid := range f.listed[start:end] {
				results = append(results, f.doc(uid))
			}
			if end < len(f.listed) {
				next = `"https://next"`
			}
		case strings.HasPrefix(pred, `[[at(my.posts.uid,`):
			for _, uid := range f.listed {
				if !f.gone[uid] && pred == fmt.Sprintf(`[[at(my.posts.uid,%q)]]`, uid) {
					results = append(results, f.doc(uid))
				}
			}
		default:
			t.Errorf("unexpected predicate %q", pred)
		}
		fmt.Fprintf(w, `{"page":%d,"next_page":%s,"results":[%s]}`, page, next, strings.Join(results, ","))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v2"
}
