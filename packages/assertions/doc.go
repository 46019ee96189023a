// Package assertions checks decoded API responses against expectations.
//
// Expectations are written as "subject operator [value]":
//
//	stat == ok
//	photos.total > 0
//	photos.photo.0.id exists
//	photos.photo length 5
//	user.username._content matches /^m/
//	body schema ./photo-list.schema.json
//
// Subjects are gjson paths into the JSON payload; "body" is the whole
// payload. Values are parsed as JSON literals when possible.
package assertions
