package build

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personakit/internal/config"
)

func TestWatcher_RebuildsOnModuleChange(t *testing.T) {
	cfg, personaPath := workspace(t)
	p := New(cfg)

	results := make(chan *Result, 8)
	w, err := NewWatcher(p, personaPath, func(res *Result, err error) {
		if err == nil {
			results <- res
		}
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { assert.NoError(t, w.Stop()) }()

	writeFile(t, filepath.Join(cfg.BaseDir, "mods", "foundation", "a.module.yml"), moduleDoc("foundation/a", "Do A again."))

	select {
	case res := <-results:
		assert.Contains(t, res.Markdown, "Do A again.")
		assert.GreaterOrEqual(t, w.Builds(), 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after module change")
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	cfg, personaPath := workspace(t)

	w, err := NewWatcher(New(cfg), personaPath, nil)
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)

	require.NoError(t, w.Start(context.Background()))
	writeFile(t, filepath.Join(cfg.BaseDir, "mods", "notes.txt"), "scratch")
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Zero(t, w.Builds())
}

func TestWatcher_Roots(t *testing.T) {
	cfg, personaPath := workspace(t)
	w, err := NewWatcher(New(cfg), personaPath, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, []string{
		filepath.Dir(personaPath),
		filepath.Join(cfg.BaseDir, "mods"),
	}, w.Roots())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	cfg, personaPath := workspace(t)
	w, err := NewWatcher(New(cfg), personaPath, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_StopAfterFailedStart(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.StandardLibrary.Enabled = false
	cfg.LocalModulePaths = []config.ModulePath{{Path: "missing"}}
	cfg.BaseDir = dir

	w, err := NewWatcher(New(cfg), filepath.Join(dir, "nowhere", "tester.persona.yml"), nil)
	require.NoError(t, err)

	require.EqualError(t, w.Start(context.Background()), "no directories to watch")

	stopped := make(chan error, 1)
	go func() { stopped <- w.Stop() }()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
}
