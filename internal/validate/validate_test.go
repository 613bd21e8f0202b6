package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personakit/internal/ums"
)

func validModule() *ums.Module {
	return &ums.Module{
		ID:            "foundation/logic/deductive-reasoning",
		Version:       "1.0.0",
		SchemaVersion: "2.0",
		Capabilities:  []string{"reasoning", "logic"},
		Metadata: ums.Metadata{
			Name:        "Deductive Reasoning",
			Description: "Reason from premises to conclusions.",
			Semantic:    "deductive reasoning premises conclusions validity soundness",
			Tags:        []string{"logic"},
		},
		Content: ums.Instruction{Goal: "Reason deductively.", Process: []string{"State premises"}},
	}
}

func errorPaths(res ums.ValidationResult) []string {
	out := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		out[i] = e.Path
	}
	return out
}

func TestModule_Valid(t *testing.T) {
	res := Module(validModule())
	assert.True(t, res.Valid, "%+v", res.Errors)
	assert.Empty(t, res.Errors)
}

func TestModule_Errors(t *testing.T) {
	level := 9
	tests := []struct {
		name     string
		mutate   func(m *ums.Module)
		wantPath string
	}{
		{"bad id", func(m *ums.Module) { m.ID = "Foundation/x" }, "id"},
		{"missing id", func(m *ums.Module) { m.ID = "" }, "id"},
		{"schema version", func(m *ums.Module) { m.SchemaVersion = "1.0" }, "schemaVersion"},
		{"semver", func(m *ums.Module) { m.Version = "1.0" }, "version"},
		{"capabilities", func(m *ums.Module) { m.Capabilities = nil }, "capabilities"},
		{"cognitive level", func(m *ums.Module) { m.CognitiveLevel = &level }, "cognitiveLevel"},
		{"name", func(m *ums.Module) { m.Metadata.Name = " " }, "metadata.name"},
		{"description", func(m *ums.Module) { m.Metadata.Description = "" }, "metadata.description"},
		{"semantic", func(m *ums.Module) { m.Metadata.Semantic = "" }, "metadata.semantic"},
		{"uppercase tag", func(m *ums.Module) { m.Metadata.Tags = []string{"ok", "Bad"} }, "metadata.tags[1]"},
		{"replacedBy without deprecated", func(m *ums.Module) { m.Metadata.ReplacedBy = "foundation/x" }, "metadata.replacedBy"},
		{"no content", func(m *ums.Module) { m.Content = nil }, ""},
		{"empty instruction", func(m *ums.Module) { m.Content = ums.Instruction{} }, "instruction"},
		{"empty list item", func(m *ums.Module) {
			m.Content = ums.Instruction{Goal: "g", Constraints: []string{"a", " "}}
		}, "instruction.constraints[1]"},
		{"empty components", func(m *ums.Module) { m.Content = ums.MultiComponent{} }, "components"},
		{"bad data component", func(m *ums.Module) {
			m.Content = ums.MultiComponent{Components: []ums.Component{
				ums.Instruction{Goal: "g"},
				ums.Data{MediaType: "json", Value: "{}"},
			}}
		}, "components[1].mediaType"},
		{"example without snippet", func(m *ums.Module) {
			m.Content = ums.Knowledge{Examples: []ums.Example{{Title: "t"}}}
		}, "knowledge.examples[0].snippet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModule()
			tt.mutate(m)
			res := Module(m)
			assert.False(t, res.Valid)
			assert.Contains(t, errorPaths(res), tt.wantPath)
		})
	}
}

func TestModule_Warnings(t *testing.T) {
	m := validModule()
	m.Metadata.Deprecated = true
	m.Metadata.Semantic = "short"
	m.Capabilities = []string{"Reasoning"}

	res := Module(m)
	assert.True(t, res.Valid)
	assert.Len(t, res.Warnings, 3)
}

func TestModule_DeprecatedWithReplacementIsClean(t *testing.T) {
	m := validModule()
	m.Metadata.Deprecated = true
	m.Metadata.ReplacedBy = "foundation/logic/new"
	res := Module(m)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)
}

func TestModule_Nil(t *testing.T) {
	assert.False(t, Module(nil).Valid)
}

func validPersona() *ums.Persona {
	return &ums.Persona{
		Name:          "Reviewer",
		Version:       "1.0.0",
		SchemaVersion: "2.0",
		Description:   "Reviews code.",
		Semantic:      "code review",
		Modules: []ums.ModuleEntry{
			ums.BareEntry("foundation/logic/a"),
			ums.GroupEntry("Review", "execution/review/b", "execution/review/c"),
		},
	}
}

func TestPersona_Valid(t *testing.T) {
	res := Persona(validPersona())
	assert.True(t, res.Valid, "%+v", res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestPersona_DuplicateAcrossGroups(t *testing.T) {
	p := validPersona()
	p.Modules = append(p.Modules, ums.GroupEntry("Again", "execution/review/c"), ums.BareEntry("foundation/logic/a"))

	res := Persona(p)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "modules[2].ids[0]", res.Errors[0].Path)
	assert.True(t, strings.Contains(res.Errors[0].Message, "modules[1].ids[1]"), res.Errors[0].Message)
	assert.Equal(t, "modules[3]", res.Errors[1].Path)
	assert.Equal(t, SectionModules, res.Errors[1].Section)
}

func TestPersona_UnnamedGroupIsValid(t *testing.T) {
	p := validPersona()
	p.Modules = append(p.Modules, ums.GroupEntry("", "execution/review/d"))

	res := Persona(p)
	assert.True(t, res.Valid, "%+v", res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestPersona_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *ums.Persona)
		wantPath string
	}{
		{"name", func(p *ums.Persona) { p.Name = "" }, "name"},
		{"schema", func(p *ums.Persona) { p.SchemaVersion = "" }, "schemaVersion"},
		{"version", func(p *ums.Persona) { p.Version = "one" }, "version"},
		{"no modules", func(p *ums.Persona) { p.Modules = nil }, "modules"},
		{"empty group", func(p *ums.Persona) { p.Modules[1].IDs = nil }, "modules[1].ids"},
		{"bad id", func(p *ums.Persona) { p.Modules[0] = ums.BareEntry("nope") }, "modules[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPersona()
			tt.mutate(p)
			res := Persona(p)
			assert.False(t, res.Valid)
			assert.Contains(t, errorPaths(res), tt.wantPath)
		})
	}
}

func TestPersona_Warnings(t *testing.T) {
	p := validPersona()
	p.Description = ""
	p.Semantic = ""
	res := Persona(p)
	assert.True(t, res.Valid)
	assert.Len(t, res.Warnings, 2)
}
