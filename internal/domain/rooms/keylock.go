package rooms

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

// KeyedMutex serializes work per room id. Entries are reference counted and
// dropped once nobody holds or waits for them, so idle rooms cost nothing.
type KeyedMutex struct {
	locks *xsync.MapOf[snowflake.ID, *keyLock]
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: xsync.NewMapOf[snowflake.ID, *keyLock]()}
}

// Lock blocks until the key is free or ctx is done. The returned func
// releases the key and must be called exactly once.
func (m *KeyedMutex) Lock(ctx context.Context, key snowflake.ID) (func(), error) {
	l, _ := m.locks.Compute(key, func(old *keyLock, loaded bool) (*keyLock, bool) {
		if !loaded {
			old = &keyLock{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			m.release(key)
		}, nil
	case <-ctx.Done():
		m.release(key)
		return nil, ctx.Err()
	}
}

// Len reports how many keys are currently held or awaited.
func (m *KeyedMutex) Len() int {
	return m.locks.Size()
}

func (m *KeyedMutex) release(key snowflake.ID) {
	m.locks.Compute(key, func(old *keyLock, loaded bool) (*keyLock, bool) {
		if !loaded {
			return nil, true
		}
		old.refs--
		return old, old.refs == 0
	})
}
