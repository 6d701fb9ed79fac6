package parties

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// lockTable hands out one mutex per key. Entries are reference counted and
// dropped once nobody holds or waits on them. Waiting honours ctx.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*keyLock)}
}

func partyKey(id int64) string {
	return fmt.Sprintf("party:%d", id)
}

func playerKey(id uuid.UUID) string {
	return "player:" + id.String()
}

// acquire blocks until key is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (t *lockTable) acquire(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			t.release(key, l)
		}, nil
	case <-ctx.Done():
		t.release(key, l)
		return nil, ctx.Err()
	}
}

func (t *lockTable) release(key string, l *keyLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, key)
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
