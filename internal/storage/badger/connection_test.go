package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/shepard/internal/common"
)

func TestBadgerDBValueLogGCLifecycle(t *testing.T) {
	cfg := &common.BadgerConfig{
		Path:       filepath.Join(t.TempDir(), "db"),
		GCInterval: "10ms",
	}
	db, err := NewBadgerDB(arbor.NewLogger(), cfg)
	require.NoError(t, err)
	require.NotNil(t, db.gcStop, "GC loop must start for a positive interval")

	// Churn some values so GC ticks have something to look at, then give
	// the loop a few intervals before shutdown.
	kv := NewKVStorage(db, arbor.NewLogger())
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("churn-%d", i)
		require.NoError(t, kv.Set(ctx, key, "value", ""))
		require.NoError(t, kv.Delete(ctx, key))
	}
	time.Sleep(50 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- db.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not stop the GC loop")
	}
}

func TestBadgerDBValueLogGCDisabled(t *testing.T) {
	cfg := &common.BadgerConfig{
		Path:       filepath.Join(t.TempDir(), "db"),
		GCInterval: "0",
	}
	db, err := NewBadgerDB(arbor.NewLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Nil(t, db.gcStop, "gc_interval = \"0\" must disable the loop")
}

func TestBadgerDBValueLogGCDefaultInterval(t *testing.T) {
	cfg := &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	}
	db, err := NewBadgerDB(arbor.NewLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NotNil(t, db.gcStop, "an unset gc_interval must fall back to the default")
}
