package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup(1)
	assert.False(t, ok)

	r.Register(1, "conn-a")
	connID, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "conn-a", connID)
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := NewRegistry()

	r.Register(1, "conn-a")
	r.Register(1, "conn-b")

	connID, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "conn-b", connID)
}

func TestRegistry_UnregisterDisplacedConnectionKeepsNewMapping(t *testing.T) {
	r := NewRegistry()

	r.Register(1, "conn-a")
	r.Register(1, "conn-b")

	// The displaced connection closes later; the newer mapping must survive.
	r.Unregister("conn-a")

	connID, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "conn-b", connID)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()

	r.Register(1, "conn-a")
	r.Unregister("conn-a")

	_, ok := r.Lookup(1)
	assert.False(t, ok)
}

func TestRegistry_UnregisterUnknownConnIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Register(1, "conn-a")

	r.Unregister("never-registered")

	connID, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "conn-a", connID)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := int64(n % 10)
			connID := fmt.Sprintf("conn-%d", n)
			r.Register(userID, connID)
			r.Lookup(userID)
			r.Unregister(connID)
		}(i)
	}
	wg.Wait()
}
