// cache.go - Per-user in-memory cache of pattern model snapshots
//
// Readers get an immutable snapshot and never block learners. Learning
// is the single-writer path: serialized per user, it loads the current
// model, derives the next snapshot and publishes it by swapping the
// cached pointer. In-flight matches keep scoring against the snapshot
// they already hold.

package storage

import (
	"sync"
	"time"

	"github.com/bosocmputer/expense_scan_gemini/configs"
	"github.com/bosocmputer/expense_scan_gemini/internal/pattern"
)

// patternCacheEntry holds one user's published snapshot
type patternCacheEntry struct {
	model    *pattern.PatternModel
	loadedAt time.Time
}

var patternCacheMap = make(map[string]*patternCacheEntry)
var patternCacheMutex sync.RWMutex

// Per-user learn locks so concurrent learns for the same user serialize
// while different users proceed independently.
var learnLocks = make(map[string]*sync.Mutex)
var learnLocksMutex sync.Mutex

func cacheTTL() time.Duration {
	return time.Duration(configs.PATTERN_CACHE_TTL_SECONDS) * time.Second
}

// GetPatternModel returns the user's current pattern model snapshot,
// loading it from the store when the cache is cold or expired.
func GetPatternModel(userID string) (*pattern.PatternModel, error) {
	patternCacheMutex.RLock()
	entry, exists := patternCacheMap[userID]
	patternCacheMutex.RUnlock()

	if exists && time.Since(entry.loadedAt) < cacheTTL() {
		return entry.model, nil
	}

	patternCacheMutex.Lock()
	defer patternCacheMutex.Unlock()

	// Double-check after acquiring write lock
	entry, exists = patternCacheMap[userID]
	if exists && time.Since(entry.loadedAt) < cacheTTL() {
		return entry.model, nil
	}

	model, err := LoadPatternModel(userID)
	if err != nil {
		return nil, err
	}

	patternCacheMap[userID] = &patternCacheEntry{
		model:    model,
		loadedAt: time.Now(),
	}
	return model, nil
}

// LearnCategory records an accepted categorization and publishes the
// resulting snapshot. Returns the new model.
func LearnCategory(userID, description, category string) (*pattern.PatternModel, error) {
	lock := learnLockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	model, err := GetPatternModel(userID)
	if err != nil {
		return nil, err
	}

	next := pattern.Learn(model, description, category)

	if err := SavePatternModel(userID, next); err != nil {
		return nil, err
	}

	patternCacheMutex.Lock()
	patternCacheMap[userID] = &patternCacheEntry{
		model:    next,
		loadedAt: time.Now(),
	}
	patternCacheMutex.Unlock()

	return next, nil
}

func learnLockFor(userID string) *sync.Mutex {
	learnLocksMutex.Lock()
	defer learnLocksMutex.Unlock()
	lock, exists := learnLocks[userID]
	if !exists {
		lock = &sync.Mutex{}
		learnLocks[userID] = lock
	}
	return lock
}

// InvalidatePatternCache removes the cached snapshot for one user
func InvalidatePatternCache(userID string) {
	patternCacheMutex.Lock()
	defer patternCacheMutex.Unlock()
	delete(patternCacheMap, userID)
}

// ClearPatternCache removes all cached snapshots
func ClearPatternCache() {
	patternCacheMutex.Lock()
	defer patternCacheMutex.Unlock()
	patternCacheMap = make(map[string]*patternCacheEntry)
}
