package engineports

import "context"

// RateLimiter coordinates outbound call throughput across tools.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
