// Package locator resolves source video links into direct media URLs.
package locator

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidReference is returned for links outside the accepted shapes.
var ErrInvalidReference = errors.New("invalid source reference")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Path prefixes on youtube.com that carry the video id as the next segment.
var idPathPrefixes = []string{"shorts", "embed", "live"}

// ValidateReference checks raw against the accepted link shapes and returns the video id.
//
// Accepted: youtube.com/watch?v=ID, youtube.com/{shorts,embed,live}/ID and youtu.be/ID,
// on the bare, www., m. and music. hosts, over http or https.
func ValidateReference(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidReference, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	for _, sub := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, sub)
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	var id string
	switch host {
	case "youtu.be":
		if len(segments) == 1 {
			id = segments[0]
		}
	case "youtube.com":
		switch {
		case len(segments) == 1 && segments[0] == "watch":
			id = u.Query().Get("v")
		case len(segments) == 2:
			for _, prefix := range idPathPrefixes {
				if segments[0] == prefix {
					id = segments[1]
					break
				}
			}
		}
	default:
		return "", fmt.Errorf("%w: unsupported host %q", ErrInvalidReference, u.Host)
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", ErrInvalidReference, raw)
	}
	return id, nil
}
