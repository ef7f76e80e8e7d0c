package atproto

import (
	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"

	"github.com/librenews/weblog-bridge/internal/model/lexicon"
	"github.com/librenews/weblog-bridge/internal/model/post"
)

// FeedPostOf converts a short-post record into indigo's app.bsky.feed.post,
// carrying the thread linkage as strong refs.
func FeedPostOf(r post.Record) *bsky.FeedPost {
	fp := &bsky.FeedPost{
		LexiconTypeID: lexicon.FeedPost,
		Text:          r.Text,
		CreatedAt:     r.CreatedAt,
	}
	if r.Reply != nil {
		fp.Reply = &bsky.FeedPost_ReplyRef{
			Root:   strongRef(r.Reply.Root),
			Parent: strongRef(r.Reply.Parent),
		}
	}
	return fp
}

func strongRef(a post.Address) *comatproto.RepoStrongRef {
	return &comatproto.RepoStrongRef{Uri: a.URI, Cid: a.CID}
}

func storedFeedPost(fp *bsky.FeedPost) post.StoredValue {
	v := post.StoredValue{
		Type:      lexicon.FeedPost,
		Text:      fp.Text,
		CreatedAt: fp.CreatedAt,
	}
	if fp.Reply != nil && fp.Reply.Root != nil && fp.Reply.Parent != nil {
		v.Reply = &post.ReplyRef{
			Root:   post.Address{URI: fp.Reply.Root.Uri, CID: fp.Reply.Root.Cid},
			Parent: post.Address{URI: fp.Reply.Parent.Uri, CID: fp.Reply.Parent.Cid},
		}
	}
	return v
}
