package store

import (
	"context"
	"sync"
)

// LocalSessions keeps session blobs in process memory. It backs single
// instance runs and tests; production uses MemoryStore on Redis.
type LocalSessions struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewLocalSessions() *LocalSessions {
	return &LocalSessions{data: make(map[string][]byte)}
}

func (l *LocalSessions) Load(_ context.Context, sessionID, name string) ([]byte, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.data[sessionKey(sessionID, name)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (l *LocalSessions) Save(_ context.Context, sessionID, name string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[sessionKey(sessionID, name)] = append([]byte(nil), data...)
	return nil
}

func (l *LocalSessions) Delete(_ context.Context, sessionID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, sessionKey(sessionID, name))
	return nil
}

func sessionKey(sessionID, name string) string {
	return "session:" + sessionID + ":" + name
}
