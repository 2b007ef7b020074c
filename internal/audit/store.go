package audit

import "context"

// Store persists the request trail. Append is called on every dispatched
// request; List serves the admin read API.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, q Query) ([]Record, error)
}
