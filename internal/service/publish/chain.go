package publish

import (
	"context"
	"time"

	"github.com/librenews/weblog-bridge/internal/fault"
	"github.com/librenews/weblog-bridge/internal/model/account"
	"github.com/librenews/weblog-bridge/internal/model/post"
)

// RecordCreator is the slice of the remote store the chain needs.
type RecordCreator interface {
	CreateRecord(ctx context.Context, session account.Session, collection string, record any) (post.Address, error)
}

// Chain creates records one after another, linking each to the first
// (root) and the one before it (parent).
type Chain struct {
	store RecordCreator
	pause time.Duration
	sleep func(time.Duration)
}

// NewChain returns a Chain pausing for pause between records.
func NewChain(store RecordCreator, pause time.Duration) *Chain {
	return &Chain{store: store, pause: pause, sleep: time.Sleep}
}

// Publish creates records in order and returns the first record's address.
//
// Once started the chain is not cancelled by ctx: a thread cut short by a
// client timeout would be left half-posted anyway. If record k fails,
// records 1..k-1 stay in the remote store and the error reports how many
// were created; nothing is rolled back or retried. onCreated, when non-nil,
// is called with the 1-based index of each created record.
func (c *Chain) Publish(ctx context.Context, session account.Session, records []post.Record, onCreated func(index int, addr post.Address)) (post.Address, error) {
	if len(records) == 0 {
		return post.Address{}, fault.Validation("nothing to publish")
	}
	ctx = context.WithoutCancel(ctx)

	var first, previous post.Address
	for i, record := range records {
		if i > 0 {
			record.Reply = &post.ReplyRef{Root: first, Parent: previous}
		}

		addr, err := c.store.CreateRecord(ctx, session, record.Collection, record)
		if err != nil {
			if i == 0 {
				return post.Address{}, err
			}
			return post.Address{}, fault.Remote(err, "thread interrupted: %d of %d records created, starting at %s", i, len(records), first.URI)
		}

		if i == 0 {
			first = addr
		}
		previous = addr
		if onCreated != nil {
			onCreated(i+1, addr)
		}

		if i < len(records)-1 && c.pause > 0 {
			c.sleep(c.pause)
		}
	}
	return first, nil
}
