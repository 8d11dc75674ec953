package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playlistapp/playlist-server/internal/store"
)

var errInvalidLimit = errors.New("invalid limit")

// acceptsJSON reports whether the Accept header explicitly lists
// application/json. Wildcards and a missing header do not count.
func acceptsJSON(r *http.Request) bool {
	for _, value := range r.Header.Values("Accept") {
		for part := range strings.SplitSeq(value, ",") {
			mediaType, _, _ := strings.Cut(part, ";")
			if strings.EqualFold(strings.TrimSpace(mediaType), "application/json") {
				return true
			}
		}
	}
	return false
}

// pathID parses a decimal id path parameter. Anything else names no resource.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for partial updates: an empty body is an
// update with every field absent and leaves v untouched.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := decodeJSON(w, r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// parsePageRequest reads ?limit= and ?cursor=.
func parsePageRequest(r *http.Request) (store.PageRequest, error) {
	q := r.URL.Query()
	page := store.PageRequest{Cursor: q.Get("cursor")}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return page, errInvalidLimit
		}
		page.Limit = limit
	}

	page.Normalize()
	return page, nil
}

// setNextLink advertises the following page in a Link header.
func (s *Server) setNextLink(w http.ResponseWriter, r *http.Request, page store.PageRequest, nextCursor string) {
	if nextCursor == "" {
		return
	}

	q := url.Values{}
	q.Set("cursor", nextCursor)
	q.Set("limit", strconv.Itoa(page.Limit))

	next := s.baseURL + r.URL.Path + "?" + q.Encode()
	w.Header().Set("Link", "<"+next+`>; rel="next"`)
}
