package atproto

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/librenews/weblog-bridge/internal/fault"
	"github.com/librenews/weblog-bridge/internal/model/account"
	"github.com/librenews/weblog-bridge/internal/model/post"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAuthenticate(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.server.createSession" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var in comatproto.ServerCreateSession_Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Identifier != "alice.bsky.social" || in.Password != "app-pass" {
			writeJSON(w, http.StatusUnauthorized, xrpc.XRPCError{ErrStr: "AuthenticationRequired", Message: "Invalid identifier or password"})
			return
		}
		writeJSON(w, http.StatusOK, account.Session{DID: "did:plc:alice", Handle: "alice.bsky.social", AccessJwt: "access"})
	})

	session, err := client.Authenticate(context.Background(), "alice.bsky.social", "app-pass")
	if err != nil {
		t.Fatalf("Authenticate err: %v", err)
	}
	if session.DID != "did:plc:alice" || session.AccessJwt != "access" {
		t.Fatalf("unexpected session %+v", session)
	}

	_, err = client.Authenticate(context.Background(), "alice.bsky.social", "wrong")
	if !errors.Is(err, fault.ErrAuth) {
		t.Fatalf("expected auth fault, got %v", err)
	}
}

func TestCreateRecord(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.repo.createRecord" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access" {
			t.Errorf("authorization header = %q", got)
		}
		var in struct {
			Repo       string         `json:"repo"`
			Collection string         `json:"collection"`
			Record     map[string]any `json:"record"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Repo != "did:plc:alice" || in.Collection != "app.bsky.feed.post" {
			t.Errorf("unexpected input %+v", in)
		}
		if in.Record["$type"] != "app.bsky.feed.post" || in.Record["text"] != "hi" || in.Record["createdAt"] != "2025-01-01T00:00:00.000Z" {
			t.Errorf("unexpected record %v", in.Record)
		}
		if _, ok := in.Record["reply"]; ok {
			t.Errorf("a lone record carries no reply: %v", in.Record)
		}
		writeJSON(w, http.StatusOK, post.Address{URI: "at://did:plc:alice/app.bsky.feed.post/3k", CID: "bafy"})
	})

	session := account.Session{DID: "did:plc:alice", AccessJwt: "access"}
	record := post.Record{Collection: "app.bsky.feed.post", Text: "hi", CreatedAt: "2025-01-01T00:00:00.000Z"}
	addr, err := client.CreateRecord(context.Background(), session, record.Collection, record)
	if err != nil {
		t.Fatalf("CreateRecord err: %v", err)
	}
	if addr.URI != "at://did:plc:alice/app.bsky.feed.post/3k" || addr.CID != "bafy" {
		t.Fatalf("unexpected address %+v", addr)
	}
}

func TestCreateRecordCarriesReplyRefs(t *testing.T) {
	var got map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Record map[string]any `json:"record"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		got = in.Record
		writeJSON(w, http.StatusOK, post.Address{URI: "at://did:plc:alice/app.bsky.feed.post/3m", CID: "bafy3"})
	})

	record := post.Record{
		Collection: "app.bsky.feed.post",
		Text:       "part two (2/2)",
		CreatedAt:  "2025-01-01T00:00:00.000Z",
		Reply: &post.ReplyRef{
			Root:   post.Address{URI: "at://did:plc:alice/app.bsky.feed.post/3k", CID: "bafy1"},
			Parent: post.Address{URI: "at://did:plc:alice/app.bsky.feed.post/3l", CID: "bafy2"},
		},
	}
	if _, err := client.CreateRecord(context.Background(), account.Session{DID: "did:plc:alice", AccessJwt: "access"}, record.Collection, record); err != nil {
		t.Fatalf("CreateRecord err: %v", err)
	}

	reply, ok := got["reply"].(map[string]any)
	if !ok {
		t.Fatalf("record has no reply: %v", got)
	}
	root := reply["root"].(map[string]any)
	parent := reply["parent"].(map[string]any)
	if root["uri"] != "at://did:plc:alice/app.bsky.feed.post/3k" || root["cid"] != "bafy1" {
		t.Fatalf("unexpected root %v", root)
	}
	if parent["uri"] != "at://did:plc:alice/app.bsky.feed.post/3l" || parent["cid"] != "bafy2" {
		t.Fatalf("unexpected parent %v", parent)
	}
}

func TestCreateRecordLongFormEntry(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Collection string         `json:"collection"`
			Record     map[string]any `json:"record"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Collection != "com.whtwnd.blog.entry" {
			t.Errorf("unexpected collection %q", in.Collection)
		}
		if in.Record["$type"] != "com.whtwnd.blog.entry" || in.Record["title"] != "Essay" ||
			in.Record["content"] != "long body" || in.Record["visibility"] != "public" {
			t.Errorf("unexpected record %v", in.Record)
		}
		writeJSON(w, http.StatusOK, post.Address{URI: "at://did:plc:alice/com.whtwnd.blog.entry/3k", CID: "bafy"})
	})

	record := post.Record{Collection: "com.whtwnd.blog.entry", Title: "Essay", Text: "long body", CreatedAt: "2025-01-01T00:00:00.000Z"}
	addr, err := client.CreateRecord(context.Background(), account.Session{DID: "did:plc:alice", AccessJwt: "access"}, record.Collection, record)
	if err != nil {
		t.Fatalf("CreateRecord err: %v", err)
	}
	if addr.URI != "at://did:plc:alice/com.whtwnd.blog.entry/3k" {
		t.Fatalf("unexpected address %+v", addr)
	}
}

func TestCreateRecordErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   xrpc.XRPCError
		want   error
	}{
		{"expired token", http.StatusBadRequest, xrpc.XRPCError{ErrStr: "ExpiredToken", Message: "Token has expired"}, fault.ErrAuth},
		{"invalid record", http.StatusBadRequest, xrpc.XRPCError{ErrStr: "InvalidRequest", Message: "Record/text must not be longer than 300 graphemes"}, fault.ErrRemote},
		{"rate limited", http.StatusTooManyRequests, xrpc.XRPCError{ErrStr: "RateLimitExceeded"}, fault.ErrRemote},
		{"server error", http.StatusBadGateway, xrpc.XRPCError{}, fault.ErrRemote},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := client.CreateRecord(context.Background(), account.Session{DID: "did:plc:a"}, "app.bsky.feed.post", map[string]any{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGetRecord(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("rkey") == "missing" {
			writeJSON(w, http.StatusBadRequest, xrpc.XRPCError{ErrStr: "RecordNotFound", Message: "Could not locate record"})
			return
		}
		if q.Get("repo") != "did:plc:alice" || q.Get("collection") != "app.bsky.feed.post" || q.Get("rkey") != "123" {
			t.Errorf("unexpected query %v", q)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"uri": "at://did:plc:alice/app.bsky.feed.post/123",
			"cid": "bafy",
			"value": map[string]any{
				"$type":     "app.bsky.feed.post",
				"text":      "Test post content",
				"createdAt": "2023-08-07T10:00:00.000Z",
			},
		})
	})

	session := account.Session{DID: "did:plc:alice"}
	entry, err := client.GetRecord(context.Background(), session, "did:plc:alice", "app.bsky.feed.post", "123")
	if err != nil {
		t.Fatalf("GetRecord err: %v", err)
	}
	if entry.Value.Body() != "Test post content" || entry.Value.CreatedAt != "2023-08-07T10:00:00.000Z" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	_, err = client.GetRecord(context.Background(), session, "did:plc:alice", "app.bsky.feed.post", "missing")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetRecordLongFormEntry(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("collection"); got != "com.whtwnd.blog.entry" {
			t.Errorf("unexpected collection %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"uri": "at://did:plc:alice/com.whtwnd.blog.entry/3k",
			"cid": "bafy",
			"value": map[string]any{
				"$type":      "com.whtwnd.blog.entry",
				"title":      "Essay",
				"subtitle":   "short",
				"content":    "long body",
				"visibility": "public",
				"createdAt":  "2023-08-07T10:00:00.000Z",
			},
		})
	})

	entry, err := client.GetRecord(context.Background(), account.Session{DID: "did:plc:alice", AccessJwt: "access"}, "did:plc:alice", "com.whtwnd.blog.entry", "3k")
	if err != nil {
		t.Fatalf("GetRecord err: %v", err)
	}
	if entry.CID != "bafy" || entry.Value.Title != "Essay" || entry.Value.Subtitle != "short" || entry.Value.Body() != "long body" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestExpiredSessionOnGetIsAuth(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, xrpc.XRPCError{ErrStr: "ExpiredToken", Message: "Token has expired"})
	})
	_, err := client.GetRecord(context.Background(), account.Session{DID: "did:plc:alice", AccessJwt: "stale"}, "did:plc:alice", "app.bsky.feed.post", "1")
	if !errors.Is(err, fault.ErrAuth) {
		t.Fatalf("expected auth fault, got %v", err)
	}
}

func TestFeedPostOf(t *testing.T) {
	fp := FeedPostOf(post.Record{Collection: "app.bsky.feed.post", Text: "hi", CreatedAt: "2025-01-01T00:00:00.000Z"})
	if fp.Text != "hi" || fp.CreatedAt != "2025-01-01T00:00:00.000Z" || fp.Reply != nil {
		t.Fatalf("unexpected feed post %+v", fp)
	}

	fp = FeedPostOf(post.Record{Text: "two", Reply: &post.ReplyRef{
		Root:   post.Address{URI: "at://a/app.bsky.feed.post/1", CID: "c1"},
		Parent: post.Address{URI: "at://a/app.bsky.feed.post/2", CID: "c2"},
	}})
	if fp.Reply == nil || fp.Reply.Root.Uri != "at://a/app.bsky.feed.post/1" || fp.Reply.Parent.Cid != "c2" {
		t.Fatalf("unexpected reply %+v", fp.Reply)
	}
}

func TestNetworkFailureIsRemote(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	_, err := client.CreateRecord(context.Background(), account.Session{}, "app.bsky.feed.post", map[string]any{})
	if !errors.Is(err, fault.ErrRemote) {
		t.Fatalf("expected remote fault, got %v", err)
	}
}
