// Package dedupe provides shared singleflight groups used to deduplicate
// concurrent read-side work. A centralized singleflight.Group ensures only
// one aggregation job runs for a given key while other callers wait for
// the result.
package dedupe

import "golang.org/x/sync/singleflight"

// StatsGroup deduplicates per-user statistics aggregation keyed by user
// id. Statistics reads fan out from the UI on every reward grant, so
// bursts collapse into a single query.
var StatsGroup singleflight.Group
