package view

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is what a Service returns to be written to the client.
type Response interface {
	StatusCode() int
	Header() http.Header
	Write(w http.ResponseWriter) error
}

// BufferedResponse is a Response whose body is held in memory.
type BufferedResponse struct {
	status int
	header http.Header
	body   []byte
}

var _ Response = (*BufferedResponse)(nil)

// NewResponse returns a BufferedResponse with the given status code, content
// type and body. An empty contentType leaves the header unset.
func NewResponse(status int, contentType string, body []byte) *BufferedResponse {
	resp := &BufferedResponse{status: status, header: http.Header{}, body: body}
	if contentType != "" {
		resp.header.Set("Content-Type", contentType)
	}
	return resp
}

// JSON returns a response with v encoded as JSON.
//
//nolint:ireturn // Services always deal in Response values.
func JSON(status int, v any) (Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed marshalling response into JSON: %w", err)
	}

	return NewResponse(status, "application/json", data), nil
}

// Text returns a plain text response.
func Text(status int, s string) *BufferedResponse {
	return NewResponse(status, "text/plain; charset=utf-8", []byte(s))
}

// NoContent returns an empty 204 response.
func NoContent() *BufferedResponse {
	return NewResponse(http.StatusNoContent, "", nil)
}

// StatusCode returns the HTTP status code.
func (r *BufferedResponse) StatusCode() int {
	return r.status
}

// Header returns the response headers, which may be modified by layers before
// the response is written.
func (r *BufferedResponse) Header() http.Header {
	return r.header
}

// Body returns the response body.
func (r *BufferedResponse) Body() []byte {
	return r.body
}

// Write writes the headers, status code and body to w.
func (r *BufferedResponse) Write(w http.ResponseWriter) error {
	for k, v := range r.header {
		w.Header()[k] = v
	}
	w.WriteHeader(r.status)
	if len(r.body) == 0 {
		return nil
	}
	_, err := w.Write(r.body)

	return err //nolint:wrapcheck // Wrapped by caller.
}

// recorder captures the output of a plain http.Handler.
type recorder struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

var _ http.ResponseWriter = (*recorder)(nil)

func newRecorder() *recorder {
	return &recorder{header: http.Header{}, status: http.StatusOK}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *recorder) Write(p []byte) (int, error) {
	r.WriteHeader(http.StatusOK)
	return r.body.Write(p) //nolint:wrapcheck // bytes.Buffer never fails.
}

func (r *recorder) response() *BufferedResponse {
	return &BufferedResponse{
		status: r.status,
		header: r.header.Clone(),
		body:   bytes.Clone(r.body.Bytes()),
	}
}
