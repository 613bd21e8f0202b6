package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personakit/internal/ums"
)

var (
	stdSrc   = ums.Source{Type: ums.SourceStandard, Path: "embedded"}
	localSrc = ums.Source{Type: ums.SourceLocal, Path: "./modules"}
	teamSrc  = ums.Source{Type: ums.SourceLocal, Path: "./team"}
)

func mod(id, version string) *ums.Module {
	return &ums.Module{ID: id, Version: version, Content: ums.Instruction{Goal: version}}
}

func TestRegistry_Basics(t *testing.T) {
	r := New("")
	assert.Equal(t, ums.StrategyWarn, r.DefaultStrategy())
	assert.Equal(t, 0, r.Size())
	assert.False(t, r.Has("foundation/a"))

	r.Add(mod("foundation/a", "1.0.0"), stdSrc)
	r.Add(mod("foundation/b", "1.0.0"), stdSrc)
	r.Add(mod("foundation/a", "2.0.0"), localSrc)
	r.Add(nil, localSrc)

	assert.True(t, r.Has("foundation/a"))
	assert.Equal(t, 2, r.Size())
	assert.Nil(t, r.Conflicts("foundation/b"))
	assert.Nil(t, r.Conflicts("missing"))
	assert.Len(t, r.Conflicts("foundation/a"), 2)
	assert.Equal(t, []string{"foundation/a"}, r.ConflictingIDs())
	assert.Equal(t, []string{"foundation/a", "foundation/b"}, r.IDs())
	assert.Equal(t, map[string]int{
		"standard:embedded": 2,
		"local:./modules":   1,
	}, r.SourceSummary())
}

func TestRegistry_ArrivalSequence(t *testing.T) {
	r := New(ums.StrategyWarn)
	r.Add(mod("foundation/a", "1"), stdSrc)
	r.Add(mod("foundation/b", "1"), stdSrc)
	r.Add(mod("foundation/a", "2"), localSrc)

	entries := r.Conflicts("foundation/a")
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].AddedAt)
	assert.Equal(t, uint64(3), entries[1].AddedAt)
}

func TestRegistry_ResolveStrategies(t *testing.T) {
	r := New(ums.StrategyWarn)
	r.Add(mod("foundation/a", "first"), stdSrc)
	r.Add(mod("foundation/a", "second"), localSrc)
	r.Add(mod("foundation/a", "third"), teamSrc)

	t.Run("error reports count", func(t *testing.T) {
		m, err := r.Resolve("foundation/a", ums.StrategyError)
		assert.Nil(t, m)
		var ce *ums.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "foundation/a", ce.ID)
		assert.Equal(t, 3, ce.ConflictCount)
		assert.Equal(t, []ums.Source{stdSrc, localSrc, teamSrc}, ce.Sources)
		assert.Equal(t, ums.KindConflict, ums.KindOf(err))
	})

	t.Run("warn returns first added", func(t *testing.T) {
		m, err := r.Resolve("foundation/a", ums.StrategyWarn)
		require.NoError(t, err)
		assert.Equal(t, "first", m.Version)
	})

	t.Run("replace returns last added", func(t *testing.T) {
		m, err := r.Resolve("foundation/a", ums.StrategyReplace)
		require.NoError(t, err)
		assert.Equal(t, "third", m.Version)
	})

	t.Run("empty strategy uses default", func(t *testing.T) {
		e, err := r.ResolveEntry("foundation/a", "")
		require.NoError(t, err)
		assert.Equal(t, stdSrc, e.Source)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := r.Resolve("foundation/a", "merge")
		assert.Error(t, err)
	})
}

func TestRegistry_ResolveSingleIgnoresStrategy(t *testing.T) {
	r := New(ums.StrategyError)
	r.Add(mod("foundation/a", "only"), stdSrc)

	for _, s := range []ums.ConflictStrategy{ums.StrategyError, ums.StrategyWarn, ums.StrategyReplace, "bogus"} {
		m, err := r.Resolve("foundation/a", s)
		require.NoError(t, err, s)
		assert.Equal(t, "only", m.Version)
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := New(ums.StrategyError)
	m, err := r.Resolve("foundation/nope", ums.StrategyError)
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestRegistry_WarnDiagnosticsDeduplicated(t *testing.T) {
	r := New(ums.StrategyWarn)
	r.Add(mod("foundation/a", "1"), stdSrc)
	r.Add(mod("foundation/a", "2"), localSrc)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve("foundation/a", ums.StrategyWarn)
		require.NoError(t, err)
	}
	diags := r.Diagnostics()
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "foundation/a")
	assert.Contains(t, diags[0], "standard:embedded")
}

func TestRegistry_ResolveAll(t *testing.T) {
	r := New(ums.StrategyWarn)
	r.Add(mod("foundation/a", "1"), stdSrc)
	r.Add(mod("foundation/b", "1"), stdSrc)
	r.Add(mod("foundation/b", "2"), localSrc)

	all, err := r.ResolveAll(ums.StrategyReplace)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2", all["foundation/b"].Version)

	_, err = r.ResolveAll(ums.StrategyError)
	var ce *ums.ConflictError
	require.ErrorAs(t, err, &ce, "one conflicting id fails the whole call")
	assert.Equal(t, "foundation/b", ce.ID)
}

func TestRegistry_ModulesCatalogView(t *testing.T) {
	r := New(ums.StrategyReplace)
	r.Add(mod("principle/z", "1"), stdSrc)
	r.Add(mod("foundation/a", "1"), stdSrc)
	r.Add(mod("foundation/a", "2"), localSrc)

	mods := r.Modules()
	require.Len(t, mods, 2)
	assert.Equal(t, "foundation/a", mods[0].ID)
	assert.Equal(t, "1", mods[0].Version)
	assert.Equal(t, "principle/z", mods[1].ID)
}

func TestRegistry_ConcurrentAddIsSafe(t *testing.T) {
	r := New(ums.StrategyWarn)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Add(mod(fmt.Sprintf("foundation/m%d", i%10), "1"), localSrc)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, r.Size())
	total := 0
	for _, n := range r.SourceSummary() {
		total += n
	}
	assert.Equal(t, 50, total)

	seen := map[uint64]bool{}
	for _, id := range r.IDs() {
		for _, e := range r.Conflicts(id) {
			assert.False(t, seen[e.AddedAt], "sequence numbers are unique")
			seen[e.AddedAt] = true
		}
	}
}
