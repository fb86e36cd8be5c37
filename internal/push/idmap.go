package push

import "sync"

// IdentifierMap is the push-run-scoped translation table from source-side
// identifiers to target-side identifiers. Entries are added as baseline
// resources are matched or created, and consulted when rewriting references
// embedded in not-yet-pushed payloads.
//
// Both the source remote id and the natural key register for each resource,
// since baseline payloads may reference a dependency either way.
type IdentifierMap struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewIdentifierMap returns an empty map.
func NewIdentifierMap() *IdentifierMap {
	return &IdentifierMap{m: make(map[string]string)}
}

// Register records a source → target identifier pair. Empty source keys are
// ignored.
func (im *IdentifierMap) Register(sourceID, targetID string) {
	if sourceID == "" || targetID == "" {
		return
	}
	im.mu.Lock()
	im.m[sourceID] = targetID
	im.mu.Unlock()
}

// Resolve looks up the target identifier for a source identifier.
func (im *IdentifierMap) Resolve(sourceID string) (string, bool) {
	im.mu.RLock()
	target, ok := im.m[sourceID]
	im.mu.RUnlock()
	return target, ok
}

// Len returns the number of registered pairs.
func (im *IdentifierMap) Len() int {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return len(im.m)
}
