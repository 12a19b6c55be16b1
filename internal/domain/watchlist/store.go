package watchlist

import "context"

// Store persists watchlist entries and pushes live snapshots of the collection
type Store interface {
	// FetchAll returns every entry owned by ownerUserID
	FetchAll(ctx context.Context, ownerUserID string) ([]Stock, error)

	// Save inserts or updates an entry and returns it with its id assigned.
	// An empty id upserts on (owner, symbol).
	Save(ctx context.Context, stock Stock, ownerUserID string) (Stock, error)

	// Delete removes the entry with the given id
	Delete(ctx context.Context, id string) error

	// Subscribe delivers the full collection every time it changes.
	// Snapshots are not filtered by owner; consumers must do that.
	Subscribe(ctx context.Context, onSnapshot func([]Stock), onError func(error)) (Subscription, error)
}

// Subscription is a live snapshot feed opened by Store.Subscribe
type Subscription interface {
	Unsubscribe()
}
