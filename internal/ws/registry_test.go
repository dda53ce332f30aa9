package ws

import (
	"fmt"
	"sync"
	"testing"

	"parley/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterLookupUnregister(t *testing.T) {
	r := NewRegistry()
	s := NewSession(1)

	_, ok := r.Lookup("alice")
	assert.False(t, ok)

	assert.Nil(t, r.Register("alice", s))
	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, "alice", s.Username())

	r.Unregister(s)
	_, ok = r.Lookup("alice")
	assert.False(t, ok)
	assert.Empty(t, r.Online())
}

func TestRegistry_LastLoginWins(t *testing.T) {
	r := NewRegistry()
	first := NewSession(1)
	second := NewSession(1)

	r.Register("alice", first)
	displaced := r.Register("alice", second)
	assert.Same(t, first, displaced)

	got, _ := r.Lookup("alice")
	assert.Same(t, second, got)

	// The displaced connection closing must not unbind the new one.
	r.Unregister(first)
	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistry_Relogin(t *testing.T) {
	r := NewRegistry()
	s := NewSession(1)

	r.Register("alice", s)
	r.Register("bob", s)

	_, ok := r.Lookup("alice")
	assert.False(t, ok, "session gives up its previous name")
	assert.Equal(t, []string{"bob"}, r.Online())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Go(func() {
			s := NewSession(1)
			name := fmt.Sprintf("user%d", i%5)
			r.Register(name, s)
			r.Lookup(name)
			r.Unregister(s)
		})
	}
	wg.Wait()

	// The last session bound to each name always unregisters after binding.
	assert.Empty(t, r.Online())
}

func TestSession_SendAfterClose(t *testing.T) {
	s := NewSession(1)
	assert.True(t, s.Send(protocol.Live("a", "1")))
	assert.False(t, s.Send(protocol.Live("a", "2")), "queue full")

	s.Close()
	s.Close()
	assert.False(t, s.Send(protocol.Live("a", "3")))
}
