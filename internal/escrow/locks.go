package escrow

import "sync"

// accountLocks hands out one mutex per escrow id. Entries are dropped once no
// caller holds or waits on them.
type accountLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{entries: make(map[string]*lockEntry)}
}

func (l *accountLocks) lock(escrowId string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.entries[escrowId]
	if !ok {
		entry = &lockEntry{}
		l.entries[escrowId] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, escrowId)
		}
		l.mu.Unlock()
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
