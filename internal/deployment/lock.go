package deployment

import (
	"fmt"
	"sync"
)

// ServerBusyError is returned when another run in this process already holds
// one of the servers a run targets.
type ServerBusyError struct {
	ServerID string
}

func (e *ServerBusyError) Error() string {
	return fmt.Sprintf("a deployment to server %s is already in progress", e.ServerID)
}

// ServerLocks prevents two runs sharing a process from deploying to the same
// server at once.
//
// The outer mutex protects the map; each server then has its own mutex so
// runs against disjoint server sets never wait on each other.
type ServerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewServerLocks creates an empty lock set
func NewServerLocks() *ServerLocks {
	return &ServerLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// TryLock attempts to acquire the lock for one server without blocking.
func (sl *ServerLocks) TryLock(serverID string) bool {
	sl.mu.Lock()
	lock, exists := sl.locks[serverID]
	if !exists {
		lock = &sync.Mutex{}
		sl.locks[serverID] = lock
	}
	sl.mu.Unlock()

	return lock.TryLock()
}

// Unlock releases the lock for serverID. Unknown IDs are ignored.
func (sl *ServerLocks) Unlock(serverID string) {
	sl.mu.Lock()
	lock := sl.locks[serverID]
	sl.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}

// AcquireAll locks every server in ids or none of them. On success the
// returned function releases them all.
func (sl *ServerLocks) AcquireAll(ids []string) (func(), error) {
	held := make([]string, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			sl.Unlock(held[i])
		}
	}

	for _, id := range ids {
		if !sl.TryLock(id) {
			release()
			return nil, &ServerBusyError{ServerID: id}
		}
		held = append(held, id)
	}

	return release, nil
}
