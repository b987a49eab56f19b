// file: internal/search/classify.go
// version: 1.0.0
// guid: 9c4e7a21-d5f8-4b60-8e3a-0f72c1d69b84

package search

// Classification tags which code path serves a search request.
type Classification string

const (
	// ClassificationCached means the requested page lies within a fresh
	// materialized result window and is served without a ranking query.
	ClassificationCached Classification = "cached"
	// ClassificationUncached means a fresh ranking query is required.
	ClassificationUncached Classification = "uncached"
)

// Profile is the search-facing view of a person.
type Profile struct {
	PersonUUID string  `json:"person_uuid"`
	Name       string  `json:"name"`
	AboutMe    string  `json:"about_me"`
	Gender     string  `json:"gender"`
	PhotoUUID  *string `json:"photo_uuid,omitempty"`
}

// ResultWindow is the page of profiles materialized by the last fresh query
// for one person. A request whose [offset, offset+limit) range falls inside
// the window can be answered from it directly.
type ResultWindow struct {
	Offset   int
	Profiles []Profile
}

// Classify decides which path serves a request for `limit` results starting
// at `offset`. Pure and total: any input yields a classification, degenerate
// pagination always classifies as uncached so it is throttled like a fresh
// query rather than slipping through the cheap path.
func Classify(window *ResultWindow, limit, offset int) Classification {
	if limit < 1 || offset < 0 {
		return ClassificationUncached
	}
	if window == nil {
		return ClassificationUncached
	}
	if offset < window.Offset || offset+limit > window.Offset+len(window.Profiles) {
		return ClassificationUncached
	}
	return ClassificationCached
}

// Slice extracts the requested page from the window. Callers must have
// classified the request as cached first.
func (w *ResultWindow) Slice(limit, offset int) []Profile {
	start := offset - w.Offset
	return w.Profiles[start : start+limit]
}
