package stub_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/simpleab/pkg/stub"
)

func TestWatch_ReloadsFixture(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "experiments.yaml")
	require.NoError(t, os.WriteFile(path, []byte("experiments:\n  - id: first\n"), 0o644))

	store, err := stub.LoadFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stub.Watch(ctx, store, path, nil) }()

	ids := func() []string {
		var out []string
		for _, d := range store.Experiments() {
			out = append(out, d.ID)
		}
		return out
	}

	// The watcher may not be registered yet; keep rewriting until it notices.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("experiments:\n  - id: second\n  - id: third\n"), 0o644)
		return assert.ObjectsAreEqual([]string{"second", "third"}, ids())
	}, 5*time.Second, 300*time.Millisecond)

	// Broken fixtures keep the previous data.
	require.NoError(t, os.WriteFile(path, []byte("experiments: [\n"), 0o644))
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, []string{"second", "third"}, ids())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	t.Parallel()

	err := stub.Watch(context.Background(), stub.NewStore(), filepath.Join(t.TempDir(), "nope", "x.yaml"), nil)
	assert.Error(t, err)
}
