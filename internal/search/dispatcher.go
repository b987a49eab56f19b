// file: internal/search/dispatcher.go
// version: 1.0.0
// guid: 7d0a3f58-91c6-4eb2-8f47-c2b6e9d01a53

package search

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/cache"
	"github.com/jdfalk/matchwell/internal/metrics"
	"github.com/jdfalk/matchwell/internal/ratelimit"
)

// Result is a served search page tagged with how it was served.
type Result struct {
	Classification Classification `json:"classification"`
	Profiles       []Profile      `json:"profiles"`
}

// Dispatcher picks between the cached and uncached search paths. The cached
// path reuses the person's materialized result window at bounded cost, so it
// carries no extra throttle. The uncached path runs a full fresh query, so it
// is gated by an account-scoped quota before the backend is ever touched.
type Dispatcher struct {
	backend      Backend
	limiter      *ratelimit.Service
	uncachedRule ratelimit.Rule
	windows      *cache.Cache[*ResultWindow]
}

// NewDispatcher wires a dispatcher. uncachedRule gates the fresh-query path
// only; windowTTL bounds how long a materialized window stays servable.
func NewDispatcher(backend Backend, limiter *ratelimit.Service, uncachedRule ratelimit.Rule, windowTTL time.Duration) *Dispatcher {
	return &Dispatcher{
		backend:      backend,
		limiter:      limiter,
		uncachedRule: uncachedRule,
		windows:      cache.New[*ResultWindow](windowTTL),
	}
}

func windowKey(personID int) string {
	return strconv.Itoa(personID)
}

// InvalidateWindow drops a person's materialized window, forcing the next
// search to take the fresh-query path. Called when the person's skip set or
// search preferences change underneath the window.
func (d *Dispatcher) InvalidateWindow(personID int) {
	d.windows.Invalidate(windowKey(personID))
}

// Search serves one page for the person. Cached pages come straight from the
// window. Uncached pages consume the fresh-query quota first; when that quota
// denies, the denying decision is returned and no result is produced.
func (d *Dispatcher) Search(c *gin.Context, personID, limit, offset int) (*Result, ratelimit.Decision, error) {
	window, _ := d.windows.Get(windowKey(personID))

	classification := Classify(window, limit, offset)
	metrics.IncSearchClassification(string(classification))

	if classification == ClassificationCached {
		return &Result{
			Classification: ClassificationCached,
			Profiles:       window.Slice(limit, offset),
		}, ratelimit.Decision{Allowed: true}, nil
	}

	decision := d.limiter.Check(c, d.uncachedRule)
	if !decision.Allowed {
		return nil, decision, nil
	}

	profiles, err := d.backend.FreshQuery(c.Request.Context(), personID, limit, offset)
	if err != nil {
		return nil, decision, err
	}

	d.windows.Set(windowKey(personID), &ResultWindow{Offset: offset, Profiles: profiles})

	return &Result{
		Classification: ClassificationUncached,
		Profiles:       profiles,
	}, decision, nil
}
