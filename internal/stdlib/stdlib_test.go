package stdlib_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personakit/internal/loader"
	"personakit/internal/stdlib"
	"personakit/internal/ums"
)

func TestLibraryLoadsCleanly(t *testing.T) {
	d, err := loader.Discover(context.Background(), []loader.SourceSpec{{Source: stdlib.Source, FS: stdlib.FS()}})
	require.NoError(t, err)
	require.Empty(t, d.Problems)
	require.NotEmpty(t, d.Modules)

	tiers := map[ums.Tier]int{}
	for _, l := range d.Modules {
		m := l.Module
		// the file path mirrors the module id
		rel := strings.TrimPrefix(m.Origin.Path, stdlib.Source.Path+"/")
		assert.Equal(t, m.ID+".module.yml", rel)
		tiers[ums.TierOf(m.ID)]++
	}
	for _, tier := range ums.AllTiers() {
		assert.NotZero(t, tiers[tier], "tier %s has no modules", tier)
	}
}
