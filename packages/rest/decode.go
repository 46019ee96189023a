package rest

import (
	"bufio"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
)

// ReadLines reads r to EOF line by line and concatenates the lines without
// separators. "\n", "\r\n" and "\r" all terminate a line.
func ReadLines(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	var b strings.Builder
	for {
		line, err := br.ReadString('\n')
		b.WriteString(strings.ReplaceAll(strings.TrimRight(line, "\r\n"), "\r", ""))
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// textReader converts body to UTF-8 according to the charset declared in
// contentType. Bodies without a declared charset are read as UTF-8.
func textReader(body io.Reader, contentType string) (io.Reader, error) {
	if contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	label := params["charset"]
	if label == "" {
		return body, nil
	}
	r, err := charset.NewReaderLabel(label, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return r, nil
}

// DecodeBody applies one URL-decoding pass. The service sends form-encoded
// payloads ("k=v&k2=v2") whose text is itself URL-encoded, so callers apply
// this step explicitly wherever that layer has to be removed.
func DecodeBody(s string) (string, error) {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return decoded, nil
}

// DataAsMap splits "name=value&name=value" into a map. Segments that do not
// split into exactly one non-empty name and one non-empty value are dropped;
// the last occurrence of a duplicate name wins.
func DataAsMap(data string) map[string]string {
	result := make(map[string]string)
	for _, segment := range strings.Split(data, "&") {
		if segment == "" {
			continue
		}
		parts := strings.Split(segment, "=")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		result[parts[0]] = parts[1]
	}
	return result
}
