package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/clubhouse/internal/config"
)

const (
	keyBillingRunOrgLock  = "clubhouse:billing_run:lock:%s"
	keyInternalRunCaller  = "clubhouse:internal_run:caller:%s"
	defaultBillingLockTTL = 5 * time.Minute
)

// BillingRunGuard serializes billing runs per organization across scheduler
// replicas and throttles the internal run endpoint. A nil or disabled guard
// allows everything.
type BillingRunGuard struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	lockTTL     time.Duration
	callerRate  float64
	callerBurst int
}

func NewBillingRunGuard(cfg config.Config, client redis.UniversalClient) *BillingRunGuard {
	if client == nil {
		return &BillingRunGuard{}
	}

	lockTTL := cfg.Scheduler.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultBillingLockTTL
	}
	return &BillingRunGuard{
		enabled:     true,
		bucket:      NewTokenBucket(client),
		locker:      NewLocker(client),
		lockTTL:     lockTTL,
		callerRate:  cfg.RateLimit.InternalRunRate,
		callerBurst: cfg.RateLimit.InternalRunBurst,
	}
}

func (g *BillingRunGuard) Enabled() bool {
	return g != nil && g.enabled
}

// TryLockOrg returns ok=false when another runner holds the org.
func (g *BillingRunGuard) TryLockOrg(ctx context.Context, orgID string) (token string, ok bool, err error) {
	if !g.Enabled() {
		return "", true, nil
	}
	return g.locker.TryLock(ctx, fmt.Sprintf(keyBillingRunOrgLock, strings.TrimSpace(orgID)), g.lockTTL)
}

func (g *BillingRunGuard) ReleaseOrg(ctx context.Context, orgID, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.locker.Release(ctx, fmt.Sprintf(keyBillingRunOrgLock, strings.TrimSpace(orgID)), token)
}

// AllowCaller throttles the internal billing run endpoint per caller address.
func (g *BillingRunGuard) AllowCaller(ctx context.Context, caller string) (Result, error) {
	if !g.Enabled() || g.callerRate <= 0 || g.callerBurst <= 0 {
		return Result{Allowed: true}, nil
	}
	return g.bucket.Allow(ctx, fmt.Sprintf(keyInternalRunCaller, strings.TrimSpace(caller)), g.callerRate, g.callerBurst)
}
