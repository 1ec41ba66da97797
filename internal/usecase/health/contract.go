package health

import "context"

// Backend is one component behind the pipeline: the Redis search index or
// the Postgres canonical store.
type Backend interface {
	Ping(ctx context.Context) error
}
