package lexicon

import (
	"sort"
	"strings"
)

// Collections the bridge knows how to shape records for.
const (
	FeedPost       = "app.bsky.feed.post"
	WhitewindEntry = "com.whtwnd.blog.entry"

	// Default is used when neither the hint nor any tag names a known schema.
	Default = FeedPost
)

// Kind describes the record shape a collection expects.
type Kind int

const (
	// KindShortPost records carry a size-limited text and may be chained into threads.
	KindShortPost Kind = iota
	// KindLongForm records carry a separate title and long content; never threaded.
	KindLongForm
)

func (k Kind) String() string {
	if k == KindLongForm {
		return "longform"
	}
	return "post"
}

// Schema is one entry of the short-name table.
type Schema struct {
	Name        string `json:"name"`
	Collection  string `json:"collection"`
	Description string `json:"description"`
}

var schemas = []Schema{
	{Name: "blog", Collection: FeedPost, Description: "Standard Bluesky post (auto-threads longer content)"},
	{Name: "sapphire", Collection: FeedPost, Description: "Standard Bluesky post (same as blog)"},
	{Name: "longform", Collection: FeedPost, Description: "Standard Bluesky post with automatic threading support"},
	{Name: "whitewind", Collection: WhitewindEntry, Description: "Whitewind blog entry (long-form content with title)"},
	{Name: "default", Collection: Default, Description: "Fallback when no schema is named"},
}

var byName = func() map[string]string {
	m := make(map[string]string, len(schemas))
	for _, s := range schemas {
		m[s.Name] = s.Collection
	}
	return m
}()

// Lookup maps a short name to its collection, ignoring case and surrounding space.
func Lookup(name string) (string, bool) {
	collection, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return collection, ok
}

// Resolve picks the target collection for a post. An explicit hint wins over
// tags; a hint containing a dot is taken as a fully-qualified collection.
func Resolve(hint string, tags []string) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		if collection, ok := Lookup(hint); ok {
			return collection
		}
		if strings.Contains(hint, ".") {
			return hint
		}
	}
	return ResolveByTags(tags)
}

// ResolveByTags returns the collection of the first tag naming a known schema.
func ResolveByTags(tags []string) string {
	for _, tag := range tags {
		if collection, ok := Lookup(tag); ok {
			return collection
		}
	}
	return Default
}

// KindOf reports the record shape for a collection. Unknown collections are
// treated as short posts.
func KindOf(collection string) Kind {
	if collection == WhitewindEntry {
		return KindLongForm
	}
	return KindShortPost
}

// Schemas returns the short-name table in declaration order.
func Schemas() []Schema {
	return append([]Schema(nil), schemas...)
}

// Names returns the sorted short names.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Limits advertises the size rules the bridge applies.
type Limits struct {
	MaxSinglePost int  `json:"maxSinglePost"`
	MaxRecord     int  `json:"maxRecord"`
	MaxLongForm   int  `json:"maxLongForm"`
	ThreadSupport bool `json:"threadSupport"`
	AutoThreading bool `json:"autoThreading"`
}

// Info is the document served by the lexicon endpoint.
type Info struct {
	Supported []string `json:"supported"`
	Default   string   `json:"default"`
	Schemas   []Schema `json:"schemas"`
	Limits    Limits   `json:"limits"`
}

// Describe builds the info document for the given limits.
func Describe(limits Limits) Info {
	return Info{
		Supported: Names(),
		Default:   Default,
		Schemas:   Schemas(),
		Limits:    limits,
	}
}
