package remind

import (
	"log"
	"sync"
	"time"

	"tempo/internal/database"
)

const deliveredPrefix = "delivered:"

// stampLen is the width of the instant suffix in a delivery key. The instant
// is always formatted as UTC RFC3339 with whole seconds, which is exactly 20
// bytes, so the stamp can be recovered from the key's tail even when the
// reminder id itself contains colons.
const stampLen = len("2006-01-02T15:04:05Z")

// DedupGuard records which (reminder id, scheduled instant) pairs have been
// delivered, so the one-shot timer and the sweep checker cannot both fire the
// same occurrence. Entries are write-once; old ones are pruned by retention
// instead of growing forever.
type DedupGuard struct {
	mu        sync.Mutex
	kv        *database.KV
	retention time.Duration
}

func NewDedupGuard(kv *database.KV, retention time.Duration) *DedupGuard {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &DedupGuard{kv: kv, retention: retention}
}

func deliveryKey(id string, at time.Time) string {
	return deliveredPrefix + id + ":" + at.UTC().Format(time.RFC3339)
}

// MarkIfNew records the occurrence and reports whether it was unseen. A false
// return means the occurrence was already delivered and must be skipped. On a
// storage read error it returns false: suppressing one delivery is safer than
// double-delivering.
func (g *DedupGuard) MarkIfNew(id string, at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := deliveryKey(id, at)
	_, exists, err := g.kv.Get(key)
	if err != nil {
		log.Printf("Dedup guard read failed for %s: %v", key, err)
		return false
	}
	if exists {
		return false
	}
	if err := g.kv.Set(key, "true"); err != nil {
		log.Printf("Dedup guard write failed for %s: %v", key, err)
	}
	return true
}

// Seen reports whether the occurrence was already delivered, without
// recording anything.
func (g *DedupGuard) Seen(id string, at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, exists, err := g.kv.Get(deliveryKey(id, at))
	if err != nil {
		log.Printf("Dedup guard read failed: %v", err)
		return true
	}
	return exists
}

// Prune removes entries whose scheduled instant is older than the retention
// window. Returns the number of entries removed.
func (g *DedupGuard) Prune(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	keys, err := g.kv.Keys(deliveredPrefix)
	if err != nil {
		log.Printf("Dedup guard prune scan failed: %v", err)
		return 0
	}

	cutoff := now.Add(-g.retention)
	removed := 0
	for _, key := range keys {
		if len(key) < len(deliveredPrefix)+stampLen {
			continue
		}
		at, err := time.Parse(time.RFC3339, key[len(key)-stampLen:])
		if err != nil {
			continue
		}
		if at.Before(cutoff) {
			if err := g.kv.Delete(key); err != nil {
				log.Printf("Dedup guard prune failed for %s: %v", key, err)
				continue
			}
			removed++
		}
	}
	return removed
}
