package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go-link-redirector/metrics"
	"go.uber.org/zap"
)

// Policy is the quota of one scope plus what to do when the limiter backend
// fails: FailOpen admits the event, otherwise it is rejected.
type Policy struct {
	Quota    Quota
	FailOpen bool
}

// Guard applies per-scope policies on top of a Limiter.
type Guard struct {
	limiter  Limiter
	policies map[Scope]Policy
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewGuard returns a Guard. m may be nil.
func NewGuard(limiter Limiter, policies map[Scope]Policy, logger *zap.Logger, m *metrics.Metrics) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{limiter: limiter, policies: policies, logger: logger, metrics: m}
}

// Quota returns the configured quota of scope.
func (g *Guard) Quota(scope Scope) Quota {
	return g.policies[scope].Quota
}

// Admit counts one event for (scope, key). It returns an error wrapping
// ErrRateLimited when the event must be rejected; the Result carries the
// retry hint.
func (g *Guard) Admit(ctx context.Context, scope Scope, key string) (Result, error) {
	policy, ok := g.policies[scope]
	if !ok {
		return Result{}, fmt.Errorf("no rate limit policy for scope %q", scope)
	}

	res, err := g.limiter.Allow(ctx, scope, key, policy.Quota)
	if err != nil {
		if policy.FailOpen {
			g.logger.Warn("Rate limiter unavailable, admitting request",
				zap.String("scope", string(scope)), zap.Error(err))
			g.record(scope, "fail_open")
			return Result{Allowed: true}, nil
		}
		g.logger.Error("Rate limiter unavailable, rejecting request",
			zap.String("scope", string(scope)), zap.Error(err))
		g.record(scope, "fail_closed")
		return Result{Allowed: false, RetryAfter: time.Second}, fmt.Errorf("%w: limiter unavailable: %w", ErrRateLimited, err)
	}

	if !res.Allowed {
		g.logger.Info("Rate limit exceeded", zap.String("scope", string(scope)), zap.String("key", key))
		g.record(scope, "rejected")
		return res, ErrRateLimited
	}
	g.record(scope, "allowed")
	return res, nil
}

func (g *Guard) record(scope Scope, decision string) {
	if g.metrics != nil {
		g.metrics.RateLimitDecisions.WithLabelValues(string(scope), decision).Inc()
	}
}
