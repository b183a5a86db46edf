package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funcfile/internal/cache"
)

func TestWatcherEvictsChangedFile(t *testing.T) {
	dir := t.TempDir()
	changed := filepath.Join(dir, "changed.js")
	untouched := filepath.Join(dir, "untouched.js")
	require.NoError(t, os.WriteFile(changed, []byte("function a() { return 1; }"), 0o644))
	require.NoError(t, os.WriteFile(untouched, []byte("function b() { return 1; }"), 0o644))

	c := cache.New()
	c.Put(changed, &cache.ParsedSource{Text: "function a() { return 1; }"})
	c.Put(untouched, &cache.ParsedSource{Text: "function b() { return 1; }"})

	w, err := New(c, nil)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(changed, []byte("function a() { return 2; }"), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := c.Get(changed)
		return !ok
	}, 5*time.Second, 20*time.Millisecond)

	_, ok := c.Get(untouched)
	assert.True(t, ok, "unrelated entries stay cached")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcherIgnoresNonSourceFiles(t *testing.T) {
	t.Parallel()

	c := cache.New()
	c.Put("notes.txt", &cache.ParsedSource{})
	w := &Watcher{cache: c, logger: nil}

	w.handle(fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write})
	assert.Equal(t, 1, c.Len())
}

func TestWatcherIgnoresChmod(t *testing.T) {
	t.Parallel()

	c := cache.New()
	c.Put("lib.js", &cache.ParsedSource{})
	w := &Watcher{cache: c}

	w.handle(fsnotify.Event{Name: "lib.js", Op: fsnotify.Chmod})
	assert.Equal(t, 1, c.Len())
}

func TestWatcherAddMissingPath(t *testing.T) {
	t.Parallel()

	w, err := New(cache.New(), nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Add(filepath.Join(t.TempDir(), "missing")))
}
