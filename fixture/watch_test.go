package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsYAMLChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{dir}, WatchConfig{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan []string, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) { batches <- changed })
	}()

	target := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("x: 1"), 0o644))

	select {
	case changed := <-batches:
		assert.Equal(t, []string{target}, changed)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{dir}, WatchConfig{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan []string, 16)
	go w.Run(ctx, func(changed []string) { batches <- changed })

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	target := filepath.Join(sub, "later.yml")

	// The new directory is picked up asynchronously; keep touching the file
	// until the watcher reports it.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case changed := <-batches:
			if len(changed) == 1 && changed[0] == target {
				return
			}
		case <-ticker.C:
			require.NoError(t, os.WriteFile(target, []byte("x: 1"), 0o644))
		case <-ctx.Done():
			t.Fatal("change in new directory not reported")
		}
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, WatchConfig{})
	assert.Error(t, err)
}
