package rest

import (
	"github.com/tidwall/gjson"
)

const (
	statOK   = "ok"
	statFail = "fail"
)

// Response is a decoded payload returned by Get and Post.
//
// The service wraps JSON payloads in an envelope carrying "stat" and, on
// failure, "code" and "message". Non-JSON payloads are kept as raw text.
type Response struct {
	raw string
}

// NewResponse wraps a decoded payload
func NewResponse(raw string) *Response {
	return &Response{raw: raw}
}

func (r *Response) Raw() string {
	return r.raw
}

// IsJSON reports whether the payload is well-formed JSON
func (r *Response) IsJSON() bool {
	return gjson.Valid(r.raw)
}

// Get returns the value at a gjson path, e.g. "photos.photo.0.id"
func (r *Response) Get(path string) gjson.Result {
	return gjson.Get(r.raw, path)
}

// Stat returns the envelope status, "" when absent
func (r *Response) Stat() string {
	return r.Get("stat").String()
}

func (r *Response) IsFail() bool {
	return r.Stat() == statFail
}

func (r *Response) ErrorCode() int {
	return int(r.Get("code").Int())
}

func (r *Response) ErrorMessage() string {
	return r.Get("message").String()
}

// Err returns an *APIError when the envelope reports failure
func (r *Response) Err() error {
	if !r.IsFail() {
		return nil
	}
	return &APIError{Code: r.ErrorCode(), Message: r.ErrorMessage()}
}

// Pretty returns the payload indented, or the raw text when it is not JSON
func (r *Response) Pretty() string {
	if !r.IsJSON() {
		return r.raw
	}
	return gjson.Get(r.raw, "@pretty").String()
}

func (r *Response) String() string {
	return r.raw
}
