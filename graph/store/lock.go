package store

import "sync"

// KeyLocks hands out non-blocking, per-key exclusive locks.
//
// Only one holder may own a key at a time; a second TryLock on a held key
// fails immediately instead of waiting. Entries are removed on release so
// the map only ever holds keys that are in use.
type KeyLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewKeyLocks creates an empty lock table.
func NewKeyLocks() *KeyLocks {
	return &KeyLocks{held: make(map[string]struct{})}
}

// TryLock acquires key if it is free. On success it returns a release
// function (safe to call more than once) and true.
func (l *KeyLocks) TryLock(key string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, false
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true
}

// Held reports how many keys are currently locked.
func (l *KeyLocks) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
