package tempid

import (
	"crypto/sha256"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streetpass_tempid_cache_hits_total",
		Help: "Temp ID decryptions served from the cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streetpass_tempid_cache_misses_total",
		Help: "Temp ID decryptions that had to run the cipher.",
	})
)

// Decrypter opens one blob with one key.
type Decrypter interface {
	Decrypt(blob string, key []byte) (TempID, error)
}

type cacheKey struct {
	blob string
	key  [sha256.Size]byte
}

// CachingDecrypter remembers successful decryptions. A device repeats the
// same temp ID for every beacon in its rotation period, so one upload holds
// many copies of each blob. Failures are not cached.
type CachingDecrypter struct {
	next  Decrypter
	cache *expirable.LRU[cacheKey, TempID]
}

// NewCachingDecrypter wraps next with an LRU of maxSize entries living ttl.
func NewCachingDecrypter(next Decrypter, maxSize int, ttl time.Duration) *CachingDecrypter {
	return &CachingDecrypter{
		next:  next,
		cache: expirable.NewLRU[cacheKey, TempID](maxSize, nil, ttl),
	}
}

// Decrypt implements Decrypter.
func (c *CachingDecrypter) Decrypt(blob string, key []byte) (TempID, error) {
	k := cacheKey{blob: blob, key: sha256.Sum256(key)}
	if id, ok := c.cache.Get(k); ok {
		cacheHitsTotal.Inc()
		return id, nil
	}
	cacheMissesTotal.Inc()
	id, err := c.next.Decrypt(blob, key)
	if err != nil {
		return TempID{}, err
	}
	c.cache.Add(k, id)
	return id, nil
}
