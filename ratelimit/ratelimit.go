// Package ratelimit admits or rejects events against per-identity quotas.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-link-redirector/types"
)

// Scope separates quotas that share identity keys.
type Scope string

const (
	ScopeCreate Scope = "create"
	ScopeFollow Scope = "follow"
)

var (
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrInvalidQuota = errors.New("invalid quota")
)

// Quota bounds admitted events per window.
type Quota struct {
	Limit  int
	Window time.Duration
}

func (q Quota) validate() error {
	if q.Limit <= 0 || q.Window <= 0 {
		return fmt.Errorf("%w: limit=%d window=%s", ErrInvalidQuota, q.Limit, q.Window)
	}
	return nil
}

// Result describes one admission check.
type Result struct {
	Allowed bool
	// RetryAfter is a hint for rejected requests; zero when allowed.
	RetryAfter time.Duration
}

// Limiter atomically checks and counts one event for (scope, key). Concurrent
// calls for the same key never admit more than quota.Limit events per window.
type Limiter interface {
	Allow(ctx context.Context, scope Scope, key string, quota Quota) (Result, error)
	Close() error
}

// CreateKey identifies a creator: the explicit user id when supplied, otherwise
// the network address.
func CreateKey(r types.Requester) string {
	if r.IdentityOverride != "" {
		return "user:" + r.IdentityOverride
	}
	return "ip:" + r.Address
}

// FollowKey identifies an (address, short code) pair.
func FollowKey(address, shortCode string) string {
	return address + "|" + shortCode
}
