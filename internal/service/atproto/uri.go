package atproto

import (
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"github.com/librenews/weblog-bridge/internal/fault"
	"github.com/librenews/weblog-bridge/internal/model/lexicon"
)

// URI is a parsed at://repo/collection/rkey record address.
type URI struct {
	Repo       string
	Collection string
	RecordKey  string
}

func (u URI) String() string {
	return "at://" + u.Repo + "/" + u.Collection + "/" + u.RecordKey
}

// ParseURI validates a record URI with indigo's AT-URI syntax rules. Anything
// that does not name a repo, collection and record key is rejected as NotFound.
func ParseURI(raw string) (URI, error) {
	raw = strings.TrimSpace(raw)
	aturi, err := syntax.ParseATURI(raw)
	if err != nil {
		return URI{}, fault.NotFound("Invalid post ID format: %q", raw)
	}
	collection := aturi.Collection().String()
	if collection == "" || !strings.Contains(collection, ".") {
		return URI{}, fault.NotFound("Could not extract collection from post ID %q", raw)
	}
	rkey := aturi.RecordKey().String()
	if rkey == "" {
		return URI{}, fault.NotFound("Invalid post ID format: %q", raw)
	}
	return URI{
		Repo:       aturi.Authority().String(),
		Collection: collection,
		RecordKey:  rkey,
	}, nil
}

// WebURL returns a browser link for a record, or "" for collections without one.
func WebURL(u URI) string {
	switch u.Collection {
	case lexicon.FeedPost:
		return "https://bsky.app/profile/" + u.Repo + "/post/" + u.RecordKey
	case lexicon.WhitewindEntry:
		return "https://whtwnd.com/" + u.Repo + "/" + u.RecordKey
	default:
		return ""
	}
}
