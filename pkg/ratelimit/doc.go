// Package ratelimit throttles outgoing backend calls.
//
// TokenBucket wraps golang.org/x/time/rate and is shared by every worker so
// the whole job stays under a requests-per-minute budget. Unlimited is used
// when no budget is configured.
package ratelimit
