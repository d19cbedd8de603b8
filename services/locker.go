package services

import "sync"

// LockTable hands out one mutex per match and one RWMutex per tournament.
//
// Arrow writes hold the tournament read lock plus the match mutex: two
// writers hitting the same series serialize, while matches on different
// targets stay concurrent. A stage transition takes the tournament write
// lock, which excludes every arrow write into that stage while the stage
// result is computed and applied.
type LockTable struct {
	mu          sync.Mutex
	matches     map[int]*sync.Mutex
	tournaments map[int]*sync.RWMutex
}

func NewLockTable() *LockTable {
	return &LockTable{
		matches:     make(map[int]*sync.Mutex),
		tournaments: make(map[int]*sync.RWMutex),
	}
}

func (l *LockTable) match(id int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.matches[id]
	if !ok {
		m = &sync.Mutex{}
		l.matches[id] = m
	}
	return m
}

func (l *LockTable) tournament(id int) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tournaments[id]
	if !ok {
		t = &sync.RWMutex{}
		l.tournaments[id] = t
	}
	return t
}

func (l *LockTable) forgetMatch(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.matches, id)
}
