package ums

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"foundation/logic/deductive-reasoning", true},
		{"principle/testing/tdd", true},
		{"technology/go/error-handling-v2", true},
		{"execution/review", true},
		{"foundation", false},
		{"unknown/logic/a", false},
		{"foundation/Logic/a", false},
		{"foundation/logic/-a", false},
		{"foundation/logic/a-", false},
		{"foundation//a", false},
		{"foundation/logic/a_b", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidID(tt.id))
		})
	}
}

func TestIsSemVer(t *testing.T) {
	assert.True(t, IsSemVer("1.0.0"))
	assert.True(t, IsSemVer("0.3.12-beta.1+build.5"))
	assert.False(t, IsSemVer("1.0"))
	assert.False(t, IsSemVer("01.0.0"))
	assert.False(t, IsSemVer("v1.0.0"))
}

func TestTierOf(t *testing.T) {
	assert.Equal(t, TierTechnology, TierOf("technology/go/testing"))
	assert.Equal(t, Tier(""), TierOf("noslash"))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"conflict", &ConflictError{ID: "foundation/a", ConflictCount: 2}, KindConflict},
		{"validation", &ValidationError{Path: "id", Message: "bad"}, KindValidation},
		{"module load", &ModuleLoadError{FilePath: "a.module.yml", Err: errors.New("eof")}, KindModuleLoad},
		{"persona load", &PersonaLoadError{FilePath: "p.persona.yml", Err: errors.New("eof")}, KindPersonaLoad},
		{"build", &BuildError{Op: "render"}, KindBuild},
		{"wrapped conflict", fmt.Errorf("resolve: %w", &ConflictError{ID: "x"}), KindConflict},
		{"foreign", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestLoadErrorsUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := fmt.Errorf("discover: %w", &ModuleLoadError{FilePath: "x", Err: cause})
	assert.ErrorIs(t, err, cause)

	var mle *ModuleLoadError
	require.ErrorAs(t, err, &mle)
	assert.Equal(t, "x", mle.FilePath)
}

func TestValidationErrorMessage(t *testing.T) {
	e := &ValidationError{Path: "metadata.tags[1]", Message: "must be lowercase", Section: "metadata"}
	assert.Equal(t, "metadata.tags[1]: must be lowercase [metadata]", e.Error())
}

func TestValidationResult(t *testing.T) {
	r := NewValidationResult()
	assert.True(t, r.Valid)
	assert.NoError(t, r.Err())

	r.AddWarning("semantic", "short")
	assert.True(t, r.Valid)

	r.AddError("id", "", "invalid id %q", "X")
	assert.False(t, r.Valid)
	require.Error(t, r.Err())
	assert.Equal(t, KindValidation, KindOf(r.Err()))
}

func TestParseConflictStrategy(t *testing.T) {
	for _, s := range []string{"error", "warn", "replace"} {
		got, err := ParseConflictStrategy(s)
		require.NoError(t, err)
		assert.Equal(t, ConflictStrategy(s), got)
	}
	_, err := ParseConflictStrategy("merge")
	assert.Error(t, err)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "local:./modules", Source{Type: SourceLocal, Path: "./modules"}.String())
	assert.Equal(t, "unknown", Source{}.String())
}

func TestFlatten(t *testing.T) {
	content := MultiComponent{Components: []Component{
		Knowledge{
			Explanation: "Background.",
			Principles:  []string{"k1"},
			Examples:    []Example{{Title: "E", Snippet: "x"}},
		},
		Instruction{
			Goal:        " Do the thing. ",
			Principles:  []string{"p1"},
			Constraints: []string{"c1"},
			Process:     []string{"s1", "s2"},
			Criteria:    []string{"ok"},
		},
		Data{MediaType: "application/json", Value: "{}"},
	}}

	got := Flatten(content)
	want := Directives{
		Goal:        "Do the thing.",
		Principles:  []string{"k1", "p1"},
		Constraints: []string{"c1"},
		Process:     []string{"s1", "s2"},
		Criteria:    []string{"ok"},
		Data:        []Data{{MediaType: "application/json", Value: "{}"}},
		Examples:    []Example{{Title: "E", Snippet: "x"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_KnowledgeOnlyUsesExplanationAsGoal(t *testing.T) {
	got := Flatten(Knowledge{Explanation: "Why it matters."})
	assert.Equal(t, "Why it matters.", got.Goal)
}

func TestComponents(t *testing.T) {
	assert.Len(t, Components(Instruction{Goal: "g"}), 1)
	assert.Nil(t, Components(nil))
	assert.Len(t, Components(MultiComponent{Components: []Component{Data{}, Knowledge{}}}), 2)
}

func TestPersonaModuleIDs(t *testing.T) {
	p := &Persona{Modules: []ModuleEntry{
		BareEntry("foundation/a"),
		GroupEntry("Core", "principle/b", "principle/c"),
	}}
	assert.Equal(t, []string{"foundation/a", "principle/b", "principle/c"}, p.ModuleIDs())
}
