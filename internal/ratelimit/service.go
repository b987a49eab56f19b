// file: internal/ratelimit/service.go
// version: 1.0.0
// guid: e8a3d1f5-2b96-47c0-8d14-6f9e0c7a35b2

package ratelimit

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// ScopeFunc derives the bucket identity for a request: client IP for
// anonymous routes, account id for authenticated ones.
type ScopeFunc func(c *gin.Context) string

// ExemptFunc reports whether a request bypasses a rule entirely. It runs
// before consumption, so an exempt request leaves the quota untouched.
type ExemptFunc func(c *gin.Context) bool

// Rule binds a quota to a bucket derivation. Two routes share a bucket
// exactly when they carry the same rule ID and their scope funcs derive the
// same key, e.g. the shared OTP limit across request/resend/check.
type Rule struct {
	ID         string
	Quota      Quota
	Scope      ScopeFunc
	ExemptWhen ExemptFunc
}

// NewRule builds a rule from a textual quota, parsed once here.
func NewRule(id, quota string, scope ScopeFunc) (Rule, error) {
	q, err := ParseQuota(quota)
	if err != nil {
		return Rule{}, err
	}
	return Rule{ID: id, Quota: q, Scope: scope}, nil
}

// WithExemption returns a copy of the rule carrying a bypass predicate.
func (r Rule) WithExemption(exempt ExemptFunc) Rule {
	r.ExemptWhen = exempt
	return r
}

// ByClientIP scopes a bucket to the requesting client IP.
func ByClientIP() ScopeFunc {
	return func(c *gin.Context) string {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		return "ip:" + ip
	}
}

// Decision is the outcome of checking a request against a set of rules.
type Decision struct {
	Allowed    bool
	RuleID     string
	RetryAfter time.Duration
}

var admitted = Decision{Allowed: true}

// Service checks requests against rate-limit rules using a shared counter
// store. Constructed once at startup and injected into the route table.
type Service struct {
	store CounterStore
	now   func() time.Time
}

// NewService creates a rate-limit service on top of a counter store.
func NewService(store CounterStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Check runs every rule in order. All rules must admit for the request to
// proceed; the first denial wins. A store failure fails closed: the request
// is treated as rate limited rather than silently bypassing protection.
func (s *Service) Check(c *gin.Context, rules ...Rule) Decision {
	for _, rule := range rules {
		if rule.ExemptWhen != nil && rule.ExemptWhen(c) {
			continue
		}

		key := rule.ID + ":" + rule.Scope(c)
		count, reset, err := s.store.IncrementAndGet(key, rule.Quota.Window)
		if err != nil {
			log.Printf("[ERROR] rate-limit store failure for rule %s: %v (failing closed)", rule.ID, err)
			return Decision{Allowed: false, RuleID: rule.ID, RetryAfter: rule.Quota.Window}
		}

		if count > rule.Quota.Count {
			retryAfter := reset.Sub(s.now())
			if retryAfter < time.Second {
				retryAfter = time.Second
			}
			return Decision{Allowed: false, RuleID: rule.ID, RetryAfter: retryAfter}
		}
	}
	return admitted
}
