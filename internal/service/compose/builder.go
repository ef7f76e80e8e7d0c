package compose

import (
	"strings"

	"github.com/librenews/weblog-bridge/internal/model/post"
)

const (
	// UntitledTitle is used for long-form entries submitted without a title.
	UntitledTitle = "Untitled Post"

	maxEntryTitle = 1000
)

// Builder turns text into schema-shaped records.
type Builder struct {
	// RecordLimit is the absolute size of a short-post record.
	RecordLimit int
	// LongFormLimit bounds the content of long-form entries.
	LongFormLimit int
}

// Build produces a single short-post record. The title is prepended when
// title, blank line and body fit together; otherwise the body is used alone
// and, if it is still too long, cut with an ellipsis (see fitSingle).
func (b Builder) Build(body, title, createdAt, collection string) post.Record {
	return post.Record{
		Collection: collection,
		Text:       fitSingle(title, body, b.RecordLimit),
		CreatedAt:  createdAt,
	}
}

// BuildThread maps each fragment to one record. Fragment text is used verbatim.
func (b Builder) BuildThread(fragments []post.Fragment, createdAt, collection string) []post.Record {
	records := make([]post.Record, len(fragments))
	for i, f := range fragments {
		records[i] = post.Record{
			Collection: collection,
			Text:       f.Text,
			CreatedAt:  createdAt,
		}
	}
	return records
}

// BuildEntry produces a long-form entry carrying the title in its own field.
func (b Builder) BuildEntry(p post.Post, createdAt, collection string) post.Record {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = UntitledTitle
	}
	return post.Record{
		Collection: collection,
		Text:       truncate(p.Body, b.LongFormLimit),
		Title:      truncate(title, maxEntryTitle),
		Subtitle:   strings.TrimSpace(p.Excerpt),
		CreatedAt:  createdAt,
	}
}

// fitSingle applies the single-record rules. Three runes are reserved for the
// ellipsis whenever anything is cut. The "title + blank line" prefix is kept
// only while it is strictly shorter than that budget; otherwise the title
// alone is cut and the body dropped.
func fitSingle(title, body string, limit int) string {
	title = strings.TrimSpace(title)
	if title != "" {
		if strings.TrimSpace(body) == "" {
			return truncate(title, limit)
		}
		if withTitle := title + post.TitleSeparator + body; runeLen(withTitle) <= limit {
			return withTitle
		}
	}
	if runeLen(body) <= limit {
		return body
	}

	budget := limit - len(Ellipsis)
	if title == "" {
		return takeRunes(body, budget) + Ellipsis
	}
	prefix := title + post.TitleSeparator
	if n := runeLen(prefix); n < budget {
		return prefix + takeRunes(body, budget-n) + Ellipsis
	}
	return takeRunes(title, budget) + Ellipsis
}
