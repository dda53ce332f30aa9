package ws

import (
	"sort"
	"sync"
)

// Registry maps usernames to live sessions. The reverse mapping is kept on the
// session itself and only changes under the registry lock.
type Registry struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register binds username to s. A session that was already bound to another
// name gives that name up. The last login wins: a session previously bound to
// username is returned and no longer receives routed messages.
func (r *Registry) Register(username string, s *Session) (displaced *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev := s.Username(); prev != "" && prev != username && r.sessions[prev] == s {
		delete(r.sessions, prev)
	}

	if old, ok := r.sessions[username]; ok && old != s {
		displaced = old
	}
	r.sessions[username] = s
	s.setUsername(username)

	return displaced
}

// Unregister removes the session's binding if it still owns it.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Username()
	if name == "" {
		return
	}
	if r.sessions[name] == s {
		delete(r.sessions, name)
	}
}

func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[username]
	return s, ok
}

// Online lists bound usernames in lexical order.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
