package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"personakit/internal/ums"
)

func ids(mods []*ums.Module) []string {
	out := []string{}
	for _, m := range mods {
		out = append(out, m.ID)
	}
	return out
}

func fixture() []*ums.Module {
	return []*ums.Module{
		{ID: "technology/go/errors", Capabilities: []string{"error-handling"}, Metadata: ums.Metadata{Name: "Go Errors", Tags: []string{"go"}}},
		{ID: "foundation/reasoning/first-principles", Metadata: ums.Metadata{Name: "First Principles", Semantic: "Decomposition of problems"}},
		nil,
		{ID: "execution/review/code-review", Metadata: ums.Metadata{Name: "Code Review", Description: "Review a change"}},
		{ID: "foundation/ethics/do-no-harm", Metadata: ums.Metadata{Name: "Do No Harm"}},
	}
}

func TestList(t *testing.T) {
	tests := []struct {
		tier string
		want []string
	}{
		{"", []string{"execution/review/code-review", "foundation/ethics/do-no-harm", "foundation/reasoning/first-principles", "technology/go/errors"}},
		{"foundation", []string{"foundation/ethics/do-no-harm", "foundation/reasoning/first-principles"}},
		{"principle", []string{}},
	}
	for _, tt := range tests {
		t.Run("tier="+tt.tier, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(List(fixture(), tt.tier)))
		})
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"review", []string{"execution/review/code-review"}},
		{"DECOMPOSITION", []string{"foundation/reasoning/first-principles"}},
		{"error-handling", []string{"technology/go/errors"}},
		{"go", []string{"technology/go/errors"}},
		{"harm", []string{"foundation/ethics/do-no-harm"}},
		{"nothing-matches", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Search(fixture(), tt.query)))
		})
	}
}

func TestTier(t *testing.T) {
	assert.Equal(t, "technology", Tier("technology/go/errors"))
	assert.Equal(t, "", Tier("noslash"))
}
