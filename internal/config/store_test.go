package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreSnapshotAndSwap(t *testing.T) {
	first := validConfig()
	store := NewStore(first)
	assert.Same(t, first, store.Snapshot())

	second := validConfig()
	second.Engine.ROIThresholds.Strong = 0.40
	store.Swap(second)
	assert.Same(t, second, store.Snapshot())
}

// A snapshot taken before a swap stays internally consistent for the
// caller that holds it.
func TestStoreSnapshotIsStable(t *testing.T) {
	store := NewStore(validConfig())

	held := store.Snapshot()
	strong := held.Engine.ROIThresholds.Strong

	replacement := validConfig()
	replacement.Engine.ROIThresholds.Strong = 0.99
	store.Swap(replacement)

	assert.Equal(t, strong, held.Engine.ROIThresholds.Strong)
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore(validConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := store.Snapshot()
				assert.NotNil(t, cfg)
				store.Swap(validConfig())
			}
		}()
	}
	wg.Wait()

	assert.NotNil(t, store.Snapshot())
}
