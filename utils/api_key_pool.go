package utils

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrNoAvailableKeys is returned when every key is blacklisted
var ErrNoAvailableKeys = errors.New("no available API keys")

// KeyPool rotates API keys for a rate-limited provider. Keys that fail are
// blacklisted for a cooldown and the least used keys are preferred.
type KeyPool struct {
	keys        []string
	usageCounts map[string]int
	blacklist   map[string]time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewKeyPool creates a pool; it returns nil when keys is empty
func NewKeyPool(keys []string) *KeyPool {
	if len(keys) == 0 {
		return nil
	}

	return &KeyPool{
		keys:        append([]string(nil), keys...),
		usageCounts: make(map[string]int),
		blacklist:   make(map[string]time.Time),
		now:         time.Now,
	}
}

// Acquire returns the least used key that is not blacklisted
func (p *KeyPool) Acquire() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	minUsage := -1
	candidates := make([]string, 0, len(p.keys))
	for _, key := range p.keys {
		if until, ok := p.blacklist[key]; ok {
			if now.Before(until) {
				continue
			}
			delete(p.blacklist, key)
		}

		count := p.usageCounts[key]
		switch {
		case minUsage == -1 || count < minUsage:
			minUsage = count
			candidates = append(candidates[:0], key)
		case count == minUsage:
			candidates = append(candidates, key)
		}
	}

	if len(candidates) == 0 {
		return "", ErrNoAvailableKeys
	}

	selected := candidates[rand.Intn(len(candidates))]
	p.usageCounts[selected]++
	return selected, nil
}

// MarkFailed blacklists a key for retryAfter
func (p *KeyPool) MarkFailed(key string, retryAfter time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blacklist[key] = p.now().Add(retryAfter)
}

// Available returns how many keys are usable right now
func (p *KeyPool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	n := 0
	for _, key := range p.keys {
		if until, ok := p.blacklist[key]; ok && now.Before(until) {
			continue
		}
		n++
	}
	return n
}
