// Package publish authenticates against the remote store and turns posts
// into created records, threading them when they do not fit one record.
package publish

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/librenews/weblog-bridge/internal/fault"
	"github.com/librenews/weblog-bridge/internal/model/account"
	"github.com/librenews/weblog-bridge/internal/model/lexicon"
	"github.com/librenews/weblog-bridge/internal/model/post"
	"github.com/librenews/weblog-bridge/internal/service/atproto"
	"github.com/librenews/weblog-bridge/internal/service/compose"
	"github.com/librenews/weblog-bridge/internal/service/progress"
)

// RemoteStore is the capability set the bridge needs from the record store.
type RemoteStore interface {
	Authenticate(ctx context.Context, identifier, password string) (account.Session, error)
	RecordCreator
	GetRecord(ctx context.Context, session account.Session, repo, collection, rkey string) (post.Entry, error)
}

// Authenticator yields a session for credentials, possibly from a cache.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (account.Session, error)
}

// forgetter is implemented by caching authenticators.
type forgetter interface {
	Forget(ctx context.Context, identifier, password string)
}

// Service publishes and fetches posts.
type Service struct {
	store    RemoteStore
	auth     Authenticator
	composer *compose.Composer
	chain    *Chain
	hub      *progress.Hub
	now      func() time.Time
}

// NewService wires a Service. auth may be nil to log in through store on
// every call; hub may be nil to skip progress events.
func NewService(store RemoteStore, auth Authenticator, composer *compose.Composer, pause time.Duration, hub *progress.Hub) *Service {
	if auth == nil {
		auth = store
	}
	return &Service{
		store:    store,
		auth:     auth,
		composer: composer,
		chain:    NewChain(store, pause),
		hub:      hub,
		now:      time.Now,
	}
}

// Publish creates the records for p and returns the address editors should
// use as the post id: the only record, or the first record of a thread.
func (s *Service) Publish(ctx context.Context, creds account.Credentials, p post.Post) (post.Address, error) {
	if !creds.Complete() {
		return post.Address{}, fault.Validation("Handle and app password are required")
	}
	if err := p.Validate(); err != nil {
		return post.Address{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	collection := lexicon.Resolve(p.SchemaHint, p.HintTags())
	records := s.composer.Compose(p, collection)

	session, err := s.auth.Authenticate(ctx, creds.Identifier, creds.Password)
	if err != nil {
		return post.Address{}, err
	}

	publishID := uuid.NewString()
	handle := session.Handle
	if handle == "" {
		handle = creds.Identifier
	}
	log.Printf("[publish] %s: %d record(s) to %s for %s", publishID, len(records), collection, handle)
	s.notify(progress.Event{PublishID: publishID, Handle: handle, Stage: progress.StageStarted, Total: len(records)})

	addr, err := s.chain.Publish(ctx, session, records, func(index int, created post.Address) {
		log.Printf("[publish] %s: record %d/%d created: %s", publishID, index, len(records), created.URI)
		s.notify(progress.Event{
			PublishID: publishID,
			Handle:    handle,
			Stage:     progress.StageRecord,
			Index:     index,
			Total:     len(records),
			URI:       created.URI,
		})
	})
	if err != nil {
		if errors.Is(err, fault.ErrAuth) {
			if f, ok := s.auth.(forgetter); ok {
				f.Forget(ctx, creds.Identifier, creds.Password)
			}
		}
		log.Printf("[publish] %s: failed: %v", publishID, err)
		s.notify(progress.Event{PublishID: publishID, Handle: handle, Stage: progress.StageFailed, Total: len(records), Error: err.Error()})
		return post.Address{}, err
	}

	s.notify(progress.Event{PublishID: publishID, Handle: handle, Stage: progress.StageCompleted, Total: len(records), URI: addr.URI})
	return addr, nil
}

// GetPost fetches a record previously created by the authenticated identity.
func (s *Service) GetPost(ctx context.Context, creds account.Credentials, postID string) (post.Entry, error) {
	if postID == "" || !creds.Complete() {
		return post.Entry{}, fault.Validation("Post ID, handle, and app password are required")
	}

	uri, err := atproto.ParseURI(postID)
	if err != nil {
		return post.Entry{}, err
	}

	session, err := s.auth.Authenticate(ctx, creds.Identifier, creds.Password)
	if err != nil {
		return post.Entry{}, err
	}
	if !session.Owns(uri.Repo) {
		return post.Entry{}, fault.Auth("Post %s does not belong to %s", postID, creds.Identifier)
	}

	entry, err := s.store.GetRecord(ctx, session, session.DID, uri.Collection, uri.RecordKey)
	if err != nil {
		return post.Entry{}, err
	}
	return entry, nil
}

// Limits exposes the composer's size rules for the lexicon info endpoint.
func (s *Service) Limits() compose.Options {
	return s.composer.Options()
}

func (s *Service) notify(ev progress.Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}
