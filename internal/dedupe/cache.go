// ABOUTME: Thread-safe window of recently accepted registration fingerprints
// ABOUTME: Rejects a second identical registration posted inside the window

package dedupe

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/2389/household-registry/internal/household"
)

// Defaults for a guard built from an empty config.
const (
	DefaultWindow     = 10 * time.Minute
	DefaultMaxEntries = 10_000
)

type guardEntry struct {
	claimed time.Time
	element *list.Element
}

// Guard remembers fingerprints of submissions that are being or have been
// registered. Insertion order is kept in a list so the oldest entry can be
// evicted in O(1) when the guard is full.
type Guard struct {
	mu      sync.RWMutex
	seen    map[string]*guardEntry
	order   *list.List // oldest at front
	window  time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a guard and starts its sweeper. Non-positive arguments take
// the defaults.
func New(window time.Duration, maxEntries int) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	g := &Guard{
		seen:    make(map[string]*guardEntry),
		order:   list.New(),
		window:  window,
		maxSize: maxEntries,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go g.sweep()
	return g
}

// Seen reports whether key was claimed inside the window.
func (g *Guard) Seen(key string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entry, ok := g.seen[key]
	return ok && g.now().Sub(entry.claimed) < g.window
}

// Claim atomically records key. It returns false when key was already
// claimed inside the window, meaning the caller holds a duplicate.
func (g *Guard) Claim(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if entry, ok := g.seen[key]; ok && g.now().Sub(entry.claimed) < g.window {
		return false
	}
	g.claimLocked(key)
	return true
}

// Release forgets key, so a submission that failed can be retried at once.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if entry, ok := g.seen[key]; ok {
		g.order.Remove(entry.element)
		delete(g.seen, key)
	}
}

// Len returns the number of remembered keys, expired or not.
func (g *Guard) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.seen)
}

// claimLocked must be called with mu held.
func (g *Guard) claimLocked(key string) {
	now := g.now()

	if entry, exists := g.seen[key]; exists {
		entry.claimed = now
		g.order.MoveToBack(entry.element)
		return
	}

	if len(g.seen) >= g.maxSize {
		g.evictOldest()
	}

	g.seen[key] = &guardEntry{claimed: now, element: g.order.PushBack(key)}
}

// evictOldest must be called with mu held.
func (g *Guard) evictOldest() {
	front := g.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	g.order.Remove(front)
	delete(g.seen, key)
}

func (g *Guard) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.removeExpired()
		case <-g.done:
			return
		}
	}
}

func (g *Guard) removeExpired() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	// Entries are in claim order, so stop at the first live one.
	for e := g.order.Front(); e != nil; {
		key, _ := e.Value.(string)
		if now.Sub(g.seen[key].claimed) < g.window {
			return
		}
		next := e.Next()
		g.order.Remove(e)
		delete(g.seen, key)
		e = next
	}
}

// Close stops the sweeper. It is safe to call multiple times.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.closed {
		close(g.done)
		g.closed = true
	}
}

// Fingerprint identifies a registration by its normalized content, so the
// same form posted twice maps to the same key regardless of spacing or
// full-width digits.
func Fingerprint(sub household.Submission) string {
	sub = household.Normalize(household.DropIncomplete(sub))
	sub.Household.HouseholdID = ""
	sub.Household.LoginEmail = strings.ToLower(sub.Household.LoginEmail)
	// Marshal cannot fail: the submission holds only strings, ints and bools.
	b, _ := json.Marshal(sub)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
