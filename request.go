package viberbot

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request is the inbound webhook request as the pipeline sees it.
type Request struct {
	// Body is the verbatim request body; the signature is computed over it.
	Body   []byte
	Header http.Header
	Query  url.Values
}

// NewRequest reads r's body (at most maxBytes when positive) into a Request.
// A body over the limit fails with an *http.MaxBytesError.
func NewRequest(r *http.Request, maxBytes int64) (Request, error) {
	var body io.Reader = r.Body
	if r.Body == nil {
		body = http.NoBody
	}
	if maxBytes > 0 {
		body = io.LimitReader(body, maxBytes+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return Request{}, fmt.Errorf("read body: %w", err)
	}
	if maxBytes > 0 && int64(len(raw)) > maxBytes {
		return Request{}, fmt.Errorf("read body: %w", &http.MaxBytesError{Limit: maxBytes})
	}
	req := Request{Body: raw, Header: r.Header}
	if r.URL != nil {
		req.Query = r.URL.Query()
	}
	return req, nil
}

// signature returns the signature token and the source it came from. A
// non-empty query override wins over the header; a header that is present but
// empty still counts as present.
func (r Request) signature() (sig, source string, ok bool) {
	if s := r.Query.Get(SignatureQueryParam); s != "" {
		return s, "query:" + SignatureQueryParam, true
	}
	if vals := r.Header.Values(SignatureHeader); len(vals) > 0 {
		return vals[0], SignatureHeader, true
	}
	return "", "", false
}
