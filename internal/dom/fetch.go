package dom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is an outgoing fetch.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response is a completed fetch.
type Response struct {
	Status int
	Header map[string]string
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// StatusError is returned for a response outside 2xx.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// Fetcher performs HTTP exchanges for a window.
type Fetcher interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f FetcherFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPFetcher performs requests with net/http.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher over client, or a client with a 30s
// timeout when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{Client: client}
}

// Do performs the request. Non-2xx statuses are returned as responses, not
// errors.
func (f *HTTPFetcher) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	header := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		header[k] = resp.Header.Get(k)
	}
	return &Response{Status: resp.StatusCode, Header: header, Body: data}, nil
}

// Fetch starts req on its own goroutine and delivers the outcome to done
// as a task on the loop. A non-2xx response is delivered together with a
// *StatusError. If the window closes first, done is never called.
func (w *Window) Fetch(req *Request, done func(*Response, error)) {
	if w.closed {
		return
	}
	w.inflight++
	ctx := w.ctx
	fetcher := w.fetcher
	go func() {
		resp, err := fetcher.Do(ctx, req)
		if err == nil && !resp.OK() {
			status := 0
			if resp != nil {
				status = resp.Status
			}
			err = &StatusError{Status: status, URL: req.URL}
		}
		w.Post(func() {
			w.inflight--
			if done != nil {
				done(resp, err)
			}
		})
	}()
}
