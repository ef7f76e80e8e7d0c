package post

import (
	"encoding/json"
	"time"

	"github.com/librenews/weblog-bridge/internal/model/lexicon"
)

// TimestampLayout is the ISO-8601 form used for createdAt (UTC, milliseconds).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t the way records carry it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Address identifies a created record: its at:// URI and content hash.
type Address struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// IsZero reports whether the address was never assigned.
func (a Address) IsZero() bool {
	return a.URI == "" && a.CID == ""
}

// ReplyRef links a record into a thread.
type ReplyRef struct {
	Root   Address `json:"root"`
	Parent Address `json:"parent"`
}

// Record is a payload ready to be created in the remote store.
type Record struct {
	Collection string
	Text       string
	Title      string
	Subtitle   string
	CreatedAt  string
	Reply      *ReplyRef
}

// Kind reports the record shape of the target collection.
func (r Record) Kind() lexicon.Kind {
	return lexicon.KindOf(r.Collection)
}

type feedPost struct {
	Type      string    `json:"$type"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"createdAt"`
	Reply     *ReplyRef `json:"reply,omitempty"`
}

type blogEntry struct {
	Type       string `json:"$type"`
	Content    string `json:"content"`
	Title      string `json:"title,omitempty"`
	Subtitle   string `json:"subtitle,omitempty"`
	Visibility string `json:"visibility"`
	CreatedAt  string `json:"createdAt"`
}

// Value returns the JSON-encodable body for the collection.
func (r Record) Value() any {
	if r.Kind() == lexicon.KindLongForm {
		return blogEntry{
			Type:       r.Collection,
			Content:    r.Text,
			Title:      r.Title,
			Subtitle:   r.Subtitle,
			Visibility: "public",
			CreatedAt:  r.CreatedAt,
		}
	}
	return feedPost{
		Type:      r.Collection,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
		Reply:     r.Reply,
	}
}

// MarshalJSON encodes the record as its collection's body.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

// StoredValue is the union of fields the bridge reads back from either record shape.
type StoredValue struct {
	Type      string    `json:"$type"`
	Text      string    `json:"text,omitempty"`
	Content   string    `json:"content,omitempty"`
	Title     string    `json:"title,omitempty"`
	Subtitle  string    `json:"subtitle,omitempty"`
	CreatedAt string    `json:"createdAt,omitempty"`
	Reply     *ReplyRef `json:"reply,omitempty"`
}

// Body returns the text or content field, whichever the shape uses.
func (v StoredValue) Body() string {
	if v.Content != "" {
		return v.Content
	}
	return v.Text
}

// Entry is a record fetched back from the remote store.
type Entry struct {
	Address
	Collection string
	RecordKey  string
	Repo       string
	Value      StoredValue
}
