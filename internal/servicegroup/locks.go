package servicegroup

import "sync"

// participantLocks serializes the SML-then-store sequences of one participant.
// Entries are dropped once no caller holds or waits for them.
type participantLocks struct {
	mu    sync.Mutex
	locks map[string]*participantLock
}

type participantLock struct {
	mu   sync.Mutex
	refs int
}

func newParticipantLocks() *participantLocks {
	return &participantLocks{locks: make(map[string]*participantLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (l *participantLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	pl, ok := l.locks[id]
	if !ok {
		pl = &participantLock{}
		l.locks[id] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// held reports how many participants are locked or awaited.
func (l *participantLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
