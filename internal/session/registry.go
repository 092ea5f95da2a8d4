// Package session owns the in-memory per-user sessions and the level
// progression rules applied to them.
package session

import (
	"hash/fnv"
	"sync"

	"github.com/sofia-labs/sofia/internal/domain"
)

const shardCount = 32

// Registry is a sharded store of live sessions. Each session carries its
// own lock, so one user's turn never blocks another's; within a user,
// turns run strictly one at a time.
type Registry struct {
	shards [shardCount]shard
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*lockedSession
}

type lockedSession struct {
	mu   sync.Mutex
	sess *domain.UserSession
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*lockedSession)
	}
	return r
}

func shardFor(userID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return h.Sum32() % shardCount
}

func (r *Registry) get(userID string) *lockedSession {
	s := &r.shards[shardFor(userID)]

	s.mu.RLock()
	ls, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return ls
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.sessions[userID]; ok {
		return ls
	}
	ls = &lockedSession{sess: domain.NewSession(userID)}
	s.sessions[userID] = ls
	return ls
}

// Do runs fn with exclusive access to the user's session, creating it
// with defaults on first contact. fn must not retain the session pointer.
func (r *Registry) Do(userID string, fn func(*domain.UserSession)) {
	ls := r.get(userID)
	ls.mu.Lock()
	defer ls.mu.Unlock()
	fn(ls.sess)
}

// Drop removes a user's session, forcing re-creation on next contact.
func (r *Registry) Drop(userID string) {
	s := &r.shards[shardFor(userID)]
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	total := 0
	for i := range r.shards {
		r.shards[i].mu.RLock()
		total += len(r.shards[i].sessions)
		r.shards[i].mu.RUnlock()
	}
	return total
}
