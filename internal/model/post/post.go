package post

import (
	"strings"
	"time"

	"github.com/librenews/weblog-bridge/internal/fault"
)

// Post is what an editor submits through create-post. It lives for one publish call.
type Post struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Tags       []string  `json:"tags"`
	SchemaHint string    `json:"schemaHint,omitempty"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Keywords   string    `json:"keywords,omitempty"` // comma-separated mt_keywords
	CreatedAt  time.Time `json:"createdAt"`
}

// HasTitle reports whether the title carries any visible text.
func (p Post) HasTitle() bool {
	return strings.TrimSpace(p.Title) != ""
}

// Validate rejects posts with neither title nor body.
func (p Post) Validate() error {
	if !p.HasTitle() && strings.TrimSpace(p.Body) == "" {
		return fault.Validation("Post must have either title or description")
	}
	return nil
}

// HintTags lists the labels consulted for schema selection: categories first,
// then each comma-separated keyword.
func (p Post) HintTags() []string {
	tags := append([]string(nil), p.Tags...)
	for _, kw := range strings.Split(p.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			tags = append(tags, kw)
		}
	}
	return tags
}

// FullText joins title and body with a blank line, dropping whichever is empty.
func (p Post) FullText() string {
	title := strings.TrimSpace(p.Title)
	switch {
	case title == "":
		return p.Body
	case strings.TrimSpace(p.Body) == "":
		return title
	default:
		return title + TitleSeparator + p.Body
	}
}

// TitleSeparator sits between a prepended title and the body.
const TitleSeparator = "\n\n"

// Fragment is one size-bounded slice of post text. Index is 1-based.
type Fragment struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}
