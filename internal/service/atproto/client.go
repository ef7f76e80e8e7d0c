// Package atproto wraps the indigo XRPC client for the record operations the
// bridge needs from a personal data server.
package atproto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/librenews/weblog-bridge/internal/fault"
	"github.com/librenews/weblog-bridge/internal/model/account"
	"github.com/librenews/weblog-bridge/internal/model/lexicon"
	"github.com/librenews/weblog-bridge/internal/model/post"
)

const (
	nsidCreateSession = "com.atproto.server.createSession"
	nsidCreateRecord  = "com.atproto.repo.createRecord"
	nsidGetRecord     = "com.atproto.repo.getRecord"
)

// Client talks XRPC to one service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL (e.g. https://bsky.social).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// xrpcFor returns an indigo client carrying the session's access token.
// A zero session yields an anonymous client.
func (c *Client) xrpcFor(session account.Session) *xrpc.Client {
	xc := &xrpc.Client{Client: c.httpClient, Host: c.baseURL}
	if session.AccessJwt != "" {
		xc.Auth = &xrpc.AuthInfo{
			AccessJwt:  session.AccessJwt,
			RefreshJwt: session.RefreshJwt,
			Handle:     session.Handle,
			Did:        session.DID,
		}
	}
	return xc
}

// Authenticate creates a session with a handle (or DID/email) and app password.
func (c *Client) Authenticate(ctx context.Context, identifier, password string) (account.Session, error) {
	out, err := comatproto.ServerCreateSession(ctx, c.xrpcFor(account.Session{}), &comatproto.ServerCreateSession_Input{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		err = classify(nsidCreateSession, err)
		if fault.KindOf(err) == fault.KindAuth {
			return account.Session{}, fault.Wrap(fault.KindAuth, err, "Invalid Bluesky handle or app password")
		}
		return account.Session{}, err
	}
	if out.Did == "" {
		return account.Session{}, fault.Auth("Failed to authenticate with Bluesky")
	}
	return account.Session{
		DID:        out.Did,
		Handle:     out.Handle,
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
	}, nil
}

type createRecordInput struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	Record     any    `json:"record"`
}

// CreateRecord writes record into the session owner's repo and returns its address.
// Feed posts go through indigo's typed app.bsky.feed.post; any other collection
// is sent as the record's own JSON.
func (c *Client) CreateRecord(ctx context.Context, session account.Session, collection string, record any) (post.Address, error) {
	xc := c.xrpcFor(session)

	var (
		out *comatproto.RepoCreateRecord_Output
		err error
	)
	if r, ok := record.(post.Record); ok && collection == lexicon.FeedPost {
		out, err = comatproto.RepoCreateRecord(ctx, xc, &comatproto.RepoCreateRecord_Input{
			Repo:       session.DID,
			Collection: collection,
			Record:     &lexutil.LexiconTypeDecoder{Val: FeedPostOf(r)},
		})
	} else {
		out = &comatproto.RepoCreateRecord_Output{}
		err = xc.Do(ctx, xrpc.Procedure, "application/json", nsidCreateRecord, nil, createRecordInput{
			Repo:       session.DID,
			Collection: collection,
			Record:     record,
		}, out)
	}
	if err != nil {
		return post.Address{}, classify(nsidCreateRecord, err)
	}
	if out.Uri == "" {
		return post.Address{}, fault.Remote(nil, "createRecord returned no uri")
	}
	return post.Address{URI: out.Uri, CID: out.Cid}, nil
}

type getRecordOutput struct {
	URI   string          `json:"uri"`
	CID   *string         `json:"cid,omitempty"`
	Value json.RawMessage `json:"value"`
}

// GetRecord fetches one record by repo, collection and record key.
func (c *Client) GetRecord(ctx context.Context, session account.Session, repo, collection, rkey string) (post.Entry, error) {
	xc := c.xrpcFor(session)
	entry := post.Entry{
		Collection: collection,
		RecordKey:  rkey,
		Repo:       repo,
	}

	// indigo only decodes lexicons it registers; other shapes are read raw.
	if collection == lexicon.FeedPost {
		out, err := comatproto.RepoGetRecord(ctx, xc, "", collection, repo, rkey)
		if err != nil {
			return post.Entry{}, classify(nsidGetRecord, err)
		}
		entry.Address = post.Address{URI: out.Uri, CID: deref(out.Cid)}
		if out.Value != nil {
			fp, ok := out.Value.Val.(*bsky.FeedPost)
			if !ok {
				return post.Entry{}, fault.Remote(nil, "getRecord returned %T for %s", out.Value.Val, collection)
			}
			entry.Value = storedFeedPost(fp)
		}
		return entry, nil
	}

	var out getRecordOutput
	params := map[string]any{"repo": repo, "collection": collection, "rkey": rkey}
	if err := xc.Do(ctx, xrpc.Query, "", nsidGetRecord, params, nil, &out); err != nil {
		return post.Entry{}, classify(nsidGetRecord, err)
	}
	entry.Address = post.Address{URI: out.URI, CID: deref(out.CID)}
	if len(out.Value) > 0 {
		if err := json.Unmarshal(out.Value, &entry.Value); err != nil {
			return post.Entry{}, fault.Remote(err, "decode record value")
		}
	}
	return entry, nil
}

// classify maps an XRPC failure onto the fault taxonomy.
func classify(nsid string, err error) error {
	var xerr *xrpc.Error
	if !errors.As(err, &xerr) {
		if errors.Is(err, context.Canceled) {
			return fault.Remote(err, "%s cancelled", nsid)
		}
		return fault.Remote(err, "%s request failed", nsid)
	}

	var name, detail string
	var body *xrpc.XRPCError
	if errors.As(xerr.Wrapped, &body) {
		name, detail = body.ErrStr, body.Message
	}
	log.Printf("[atproto] %s failed: status=%d error=%s message=%s", nsid, xerr.StatusCode, name, detail)

	if detail == "" {
		detail = name
	}
	if detail == "" {
		detail = http.StatusText(xerr.StatusCode)
	}
	cause := fmt.Errorf("%s: %s", nsid, detail)

	switch {
	case xerr.StatusCode == http.StatusUnauthorized,
		name == "AuthenticationRequired",
		name == "ExpiredToken",
		name == "InvalidToken",
		name == "AccountTakedown":
		return fault.Wrap(fault.KindAuth, cause, "authentication rejected")
	case xerr.StatusCode == http.StatusNotFound,
		name == "RecordNotFound",
		strings.Contains(detail, "Could not locate record"):
		return fault.Wrap(fault.KindNotFound, cause, "record not found")
	case xerr.StatusCode == http.StatusTooManyRequests:
		if xerr.Ratelimit != nil {
			return fault.Remote(cause, "rate limited by remote store until %s", xerr.Ratelimit.Reset.UTC().Format(time.RFC3339))
		}
		return fault.Remote(cause, "rate limited by remote store")
	default:
		return fault.Remote(cause, "remote store rejected %s", nsid)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
