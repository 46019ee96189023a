// Package rest provides the REST transport used to talk to the photo
// service's /services/rest/ endpoint.
//
// It covers the request/response pipeline only:
//   - Form-urlencoded and quoted parameter encoding
//   - GET and POST dispatch, one connection per call
//   - Proxy routing with optional Basic proxy authorization
//   - Decoding of response bodies into a raw string or a flat key/value map
//
// Parameters are expected to arrive already signed. A Transport is immutable
// after construction and safe for concurrent use.
package rest
