// Package compose turns a submitted post into the ordered records that
// represent it in the remote store: one record when the text fits, or a
// thread of fragments when it does not.
package compose

import (
	"github.com/librenews/weblog-bridge/internal/model/lexicon"
	"github.com/librenews/weblog-bridge/internal/model/post"
)

// Options control size limits and threading.
type Options struct {
	// ThreadLimit is the per-record size used when deciding to split and when splitting.
	ThreadLimit int
	// RecordLimit is the absolute size of a single short-post record.
	RecordLimit int
	// LongFormLimit bounds long-form entry content.
	LongFormLimit int
	// AutoThread splits over-limit short posts; when false they are truncated instead.
	AutoThread bool
}

// DefaultOptions mirrors the limits of the public Bluesky network.
func DefaultOptions() Options {
	return Options{
		ThreadLimit:   280,
		RecordLimit:   300,
		LongFormLimit: 100000,
		AutoThread:    true,
	}
}

// Composer plans the records for a post.
type Composer struct {
	opts    Options
	builder Builder
}

// New creates a Composer.
func New(opts Options) *Composer {
	return &Composer{
		opts: opts,
		builder: Builder{
			RecordLimit:   opts.RecordLimit,
			LongFormLimit: opts.LongFormLimit,
		},
	}
}

// Options returns the limits the composer was built with.
func (c *Composer) Options() Options {
	return c.opts
}

// Compose returns the records for p in creation order. Every record shares
// p.CreatedAt. Callers validate p first.
func (c *Composer) Compose(p post.Post, collection string) []post.Record {
	createdAt := post.FormatTimestamp(p.CreatedAt)

	if lexicon.KindOf(collection) == lexicon.KindLongForm {
		return []post.Record{c.builder.BuildEntry(p, createdAt, collection)}
	}

	full := p.FullText()
	if !c.opts.AutoThread || runeLen(full) <= c.opts.ThreadLimit {
		return []post.Record{c.builder.Build(p.Body, p.Title, createdAt, collection)}
	}

	fragments := Split(full, c.opts.ThreadLimit)
	return c.builder.BuildThread(fragments, createdAt, collection)
}
