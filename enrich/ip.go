// Package enrich classifies parsed events: IP class bucketing, user-agent
// browser/OS detection, and the suspicious-event heuristic.
//
// Every classifier is a pure function. The IP memo cache exists only for
// throughput; correctness never depends on it.
package enrich

import (
	"strings"
	"sync"

	"github.com/justapithecus/palisade/types"
)

// DefaultIPCacheSize is the memo capacity used by parser workers.
const DefaultIPCacheSize = 10000

// ClassifyIP buckets an address by prefix.
//
// This is a trivial stand-in for a GeoIP lookup: private ranges, loopback,
// and everything else. The empty string classifies as public.
func ClassifyIP(ip string) types.IPClass {
	switch {
	case strings.HasPrefix(ip, "10.") || strings.HasPrefix(ip, "192.168.") || strings.HasPrefix(ip, "172."):
		return types.IPClassPrivate
	case strings.HasPrefix(ip, "127."):
		return types.IPClassLocalhost
	default:
		return types.IPClassPublic
	}
}

// IPCache memoizes ClassifyIP results up to a fixed capacity.
//
// Eviction resets the whole map when full. Real traffic repeats a small set
// of addresses, so the reset is rare; any bounded policy satisfies the
// contract since the classifier is pure.
type IPCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]types.IPClass
}

// NewIPCache creates a memo cache with the given capacity.
// Capacity <= 0 falls back to DefaultIPCacheSize.
func NewIPCache(capacity int) *IPCache {
	if capacity <= 0 {
		capacity = DefaultIPCacheSize
	}
	return &IPCache{
		capacity: capacity,
		entries:  make(map[string]types.IPClass, 64),
	}
}

// Classify returns the memoized IP class for ip.
func (c *IPCache) Classify(ip string) types.IPClass {
	c.mu.Lock()
	defer c.mu.Unlock()

	if class, ok := c.entries[ip]; ok {
		return class
	}

	class := ClassifyIP(ip)
	if len(c.entries) >= c.capacity {
		c.entries = make(map[string]types.IPClass, 64)
	}
	c.entries[ip] = class
	return class
}

// Len returns the number of memoized addresses.
func (c *IPCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
