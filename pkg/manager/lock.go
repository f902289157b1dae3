package manager

import "sync"

////////////////////////////////////////////////////////////////////////////////
// TYPES

// locks serializes operations on the same upload id. Entries are removed
// when the last holder releases them.
type locks struct {
	sync.Mutex
	m map[string]*lockEntry
}

type lockEntry struct {
	sync.Mutex
	refs int
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// lock blocks until the id is held and returns the release function
func (l *locks) lock(id string) func() {
	l.Lock()
	if l.m == nil {
		l.m = make(map[string]*lockEntry)
	}
	entry, exists := l.m[id]
	if !exists {
		entry = new(lockEntry)
		l.m[id] = entry
	}
	entry.refs++
	l.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.Lock()
		if entry.refs--; entry.refs == 0 {
			delete(l.m, id)
		}
		l.Unlock()
	}
}

// len returns the number of ids held or waited on
func (l *locks) len() int {
	l.Lock()
	defer l.Unlock()
	return len(l.m)
}
