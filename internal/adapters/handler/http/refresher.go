package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RefreshOutcome is what a refresh call answered: its status and the cookies
// it set.
type RefreshOutcome struct {
	StatusCode int
	Cookies    []*http.Cookie
}

// SessionRefresher performs the refresh endpoint call on behalf of a request,
// forwarding the request's cookies. Implementations must honour ctx.
type SessionRefresher interface {
	Refresh(ctx context.Context, r *http.Request) (*RefreshOutcome, error)
}

// HandlerRefresher calls the refresh handler in process.
type HandlerRefresher struct {
	handler http.Handler
	path    string
}

func NewHandlerRefresher(handler http.Handler, path string) *HandlerRefresher {
	return &HandlerRefresher{handler: handler, path: path}
}

func (h *HandlerRefresher) Refresh(ctx context.Context, r *http.Request) (*RefreshOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.path, http.NoBody)
	if err != nil {
		return nil, err
	}
	forwardCookies(req, r)
	req.RemoteAddr = r.RemoteAddr

	cw := newCaptureWriter()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.handler.ServeHTTP(cw, req)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("refresh did not complete: %w", ctx.Err())
	}

	resp := &http.Response{Header: cw.header}
	return &RefreshOutcome{StatusCode: cw.status, Cookies: resp.Cookies()}, nil
}

// captureWriter records a handler's response. It belongs to a single refresh
// call and is dropped if that call times out.
type captureWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: make(http.Header), status: http.StatusOK}
}

func (c *captureWriter) Header() http.Header { return c.header }

func (c *captureWriter) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.status = status
	c.wroteHeader = true
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.wroteHeader = true
	return c.body.Write(b)
}

// HTTPRefresher calls a refresh endpoint over the network, for deployments
// where the API runs behind a separate front end.
type HTTPRefresher struct {
	client *http.Client
	url    string
}

func NewHTTPRefresher(client *http.Client, baseURL, path string) *HTTPRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRefresher{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + path,
	}
}

func (h *HTTPRefresher) Refresh(ctx context.Context, r *http.Request) (*RefreshOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	forwardCookies(req, r)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call refresh endpoint: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return &RefreshOutcome{StatusCode: resp.StatusCode, Cookies: resp.Cookies()}, nil
}

func forwardCookies(dst, src *http.Request) {
	if cookie := src.Header.Get("Cookie"); cookie != "" {
		dst.Header.Set("Cookie", cookie)
	}
}
