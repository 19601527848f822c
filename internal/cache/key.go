package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// hashPrefixLen is the number of hex characters of the query digest kept in
// the cache key. 16 hex chars (64 bits) keeps keys short while making
// accidental collisions implausible at any realistic query volume.
const hashPrefixLen = 16

// NormalizeQuery canonicalizes a query for cache lookup: lowercased, leading
// and trailing whitespace removed, interior runs of whitespace collapsed to a
// single space. "  What IS   Go? " and "what is go?" share one cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Key derives the cache key for a tenant's query. The tenant ID is embedded
// verbatim and the normalized query is hashed, so two tenants asking the same
// question always resolve to different keys.
func Key(tenantID, query string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(query)))
	return "query:" + tenantID + ":" + hex.EncodeToString(sum[:])[:hashPrefixLen]
}
