package analytics

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityStore_IdentifyAndReset(t *testing.T) {
	store := NewIdentityStore("dev-1", false)

	_, ok := store.DistinctID()
	assert.False(t, ok, "a new store has no distinct id")

	for _, id := range []string{"alice", "", "bob", "$device:other"} {
		store.Identify(id)
		got, ok := store.DistinctID()
		assert.True(t, ok)
		assert.Equal(t, id, got)
	}

	store.Reset()
	_, ok = store.DistinctID()
	assert.False(t, ok, "reset clears the distinct id")

	store.Reset()
	_, ok = store.DistinctID()
	assert.False(t, ok, "reset on an empty store stays empty")
}

func TestIdentityStore_EffectiveID(t *testing.T) {
	tests := []struct {
		name         string
		autoIdentify bool
		override     string
		want         string
	}{
		{name: "override wins", autoIdentify: true, override: "user-9", want: "user-9"},
		{name: "auto id when enabled", autoIdentify: true, want: "$device:dev-1"},
		{name: "raw device id when disabled", autoIdentify: false, want: "dev-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewIdentityStore("dev-1", tt.autoIdentify)
			if tt.override != "" {
				store.Identify(tt.override)
			}
			assert.Equal(t, tt.want, store.EffectiveID())
			assert.Equal(t, "dev-1", store.DeviceID())
		})
	}
}

func TestIdentityStore_RegenerateAutoID(t *testing.T) {
	enabled := NewIdentityStore("dev-1", true)
	enabled.Identify("someone")
	assert.True(t, enabled.RegenerateAutoID())
	id, ok := enabled.DistinctID()
	assert.True(t, ok)
	assert.Equal(t, "$device:dev-1", id)

	disabled := NewIdentityStore("dev-1", false)
	assert.False(t, disabled.RegenerateAutoID())
	_, ok = disabled.DistinctID()
	assert.False(t, ok)
}

func TestIdentityStore_ConcurrentIdentify(t *testing.T) {
	for round := 0; round < 50; round++ {
		store := NewIdentityStore("dev-1", false)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); store.Identify("a") }()
		go func() { defer wg.Done(); store.Identify("b") }()
		wg.Wait()

		got, ok := store.DistinctID()
		assert.True(t, ok)
		assert.Contains(t, []string{"a", "b"}, got, "round %d", round)
	}
}

func TestIdentityStore_ConcurrentReadersAndWriters(t *testing.T) {
	store := NewIdentityStore("dev-1", true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if j%10 == 0 {
					store.Reset()
				} else {
					store.Identify(fmt.Sprintf("user-%d", i))
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := store.EffectiveID()
				assert.NotEmpty(t, id)
			}
		}()
	}
	wg.Wait()
}
