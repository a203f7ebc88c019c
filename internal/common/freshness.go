// Package common provides shared utilities for fundview
package common

import "time"

// Freshness TTLs for cached data
const (
	FreshnessEntity = 5 * time.Minute // individual client/fund/account snapshots
	FreshnessQuery  = 2 * time.Minute // memoized query results
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
