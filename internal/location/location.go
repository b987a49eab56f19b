// file: internal/location/location.go
// version: 1.0.0
// guid: 0b5e8c21-f4d7-4a36-92b8-6e1f0d7a53c9

package location

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// locations is the static gazetteer offered during onboarding. The client
// free-types a location and picks from ranked suggestions.
var locations = []string{
	"Amsterdam, Netherlands",
	"Athens, Greece",
	"Auckland, New Zealand",
	"Austin, United States",
	"Bangkok, Thailand",
	"Barcelona, Spain",
	"Berlin, Germany",
	"Bogota, Colombia",
	"Boston, United States",
	"Brisbane, Australia",
	"Brussels, Belgium",
	"Bucharest, Romania",
	"Budapest, Hungary",
	"Buenos Aires, Argentina",
	"Cape Town, South Africa",
	"Chicago, United States",
	"Copenhagen, Denmark",
	"Dublin, Ireland",
	"Edinburgh, United Kingdom",
	"Helsinki, Finland",
	"Hong Kong",
	"Istanbul, Turkey",
	"Jakarta, Indonesia",
	"Kyiv, Ukraine",
	"Lagos, Nigeria",
	"Lisbon, Portugal",
	"London, United Kingdom",
	"Los Angeles, United States",
	"Madrid, Spain",
	"Manila, Philippines",
	"Melbourne, Australia",
	"Mexico City, Mexico",
	"Montreal, Canada",
	"Mumbai, India",
	"Nairobi, Kenya",
	"New York, United States",
	"Oslo, Norway",
	"Paris, France",
	"Prague, Czechia",
	"Reykjavik, Iceland",
	"Rome, Italy",
	"San Francisco, United States",
	"Santiago, Chile",
	"Sao Paulo, Brazil",
	"Seattle, United States",
	"Seoul, South Korea",
	"Singapore",
	"Stockholm, Sweden",
	"Sydney, Australia",
	"Tallinn, Estonia",
	"Tokyo, Japan",
	"Toronto, Canada",
	"Vancouver, Canada",
	"Vienna, Austria",
	"Warsaw, Poland",
	"Wellington, New Zealand",
	"Zurich, Switzerland",
}

// Search ranks locations against the query, best matches first. An empty
// query returns the full list up to limit.
func Search(query string, limit int) []string {
	if limit < 1 {
		limit = 10
	}

	if query == "" {
		if limit > len(locations) {
			limit = len(locations)
		}
		return append([]string(nil), locations[:limit]...)
	}

	ranks := fuzzy.RankFindNormalizedFold(query, locations)
	sort.Sort(ranks)

	matches := make([]string, 0, limit)
	for _, rank := range ranks {
		matches = append(matches, rank.Target)
		if len(matches) >= limit {
			break
		}
	}
	return matches
}
