package api

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// etagMatches reports whether an If-None-Match header matches etag. Weak
// and strong tags compare equal.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for candidate := range strings.SplitSeq(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == etag {
			return true
		}
	}
	return false
}

// parseIfMatch extracts the flag ID and version from an If-Match header.
// An empty header or "*" yields ok=false.
func parseIfMatch(header string) (id uuid.UUID, version int, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return uuid.Nil, 0, false, nil
	}
	tag := strings.TrimPrefix(header, "W/")
	if len(tag) < 2 || tag[0] != '"' || tag[len(tag)-1] != '"' {
		return uuid.Nil, 0, false, errInvalidIfMatch
	}
	tag = tag[1 : len(tag)-1]

	i := strings.LastIndex(tag, "-v")
	if i < 0 {
		return uuid.Nil, 0, false, errInvalidIfMatch
	}
	id, err = uuid.Parse(tag[:i])
	if err != nil {
		return uuid.Nil, 0, false, errInvalidIfMatch
	}
	version, err = strconv.Atoi(tag[i+2:])
	if err != nil || version < 1 {
		return uuid.Nil, 0, false, errInvalidIfMatch
	}
	return id, version, true, nil
}
