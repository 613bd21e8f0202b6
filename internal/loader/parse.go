// Package loader reads module and persona files. Files are YAML and are decoded
// strictly: unknown fields are errors so typos surface at load time instead of
// silently dropping content.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"personakit/internal/ums"
)

// File suffixes recognized by discovery.
var (
	ModuleSuffixes  = []string{".module.yml", ".module.yaml"}
	PersonaSuffixes = []string{".persona.yml", ".persona.yaml"}
)

// IsModuleFile reports whether name looks like a module file.
func IsModuleFile(name string) bool {
	return hasAnySuffix(strings.ToLower(name), ModuleSuffixes)
}

// IsPersonaFile reports whether name looks like a persona file.
func IsPersonaFile(name string) bool {
	return hasAnySuffix(strings.ToLower(name), PersonaSuffixes)
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

type moduleFile struct {
	ID             string           `yaml:"id"`
	Version        string           `yaml:"version"`
	SchemaVersion  string           `yaml:"schemaVersion"`
	Capabilities   []string         `yaml:"capabilities"`
	CognitiveLevel *int             `yaml:"cognitiveLevel,omitempty"`
	Metadata       metadataFile     `yaml:"metadata"`
	Instruction    *instructionFile `yaml:"instruction,omitempty"`
	Knowledge      *knowledgeFile   `yaml:"knowledge,omitempty"`
	Data           *dataFile        `yaml:"data,omitempty"`
	Components     []componentFile  `yaml:"components,omitempty"`
}

type metadataFile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Semantic    string   `yaml:"semantic"`
	Tags        []string `yaml:"tags,omitempty"`
	Deprecated  bool     `yaml:"deprecated,omitempty"`
	ReplacedBy  string   `yaml:"replacedBy,omitempty"`
	Authors     []string `yaml:"authors,omitempty"`
	License     string   `yaml:"license,omitempty"`
}

type instructionFile struct {
	Goal        string   `yaml:"goal,omitempty"`
	Principles  []string `yaml:"principles,omitempty"`
	Constraints []string `yaml:"constraints,omitempty"`
	Process     []string `yaml:"process,omitempty"`
	Criteria    []string `yaml:"criteria,omitempty"`
}

type knowledgeFile struct {
	Explanation string        `yaml:"explanation,omitempty"`
	Principles  []string      `yaml:"principles,omitempty"`
	Examples    []exampleFile `yaml:"examples,omitempty"`
}

type exampleFile struct {
	Title     string `yaml:"title"`
	Rationale string `yaml:"rationale,omitempty"`
	Snippet   string `yaml:"snippet"`
	Language  string `yaml:"language,omitempty"`
}

type dataFile struct {
	MediaType   string    `yaml:"mediaType"`
	Description string    `yaml:"description,omitempty"`
	Value       yaml.Node `yaml:"value"`
}

// componentFile is the flat union of every component field, discriminated by Type.
type componentFile struct {
	Type string `yaml:"type"`

	Goal        string   `yaml:"goal,omitempty"`
	Principles  []string `yaml:"principles,omitempty"`
	Constraints []string `yaml:"constraints,omitempty"`
	Process     []string `yaml:"process,omitempty"`
	Criteria    []string `yaml:"criteria,omitempty"`

	Explanation string        `yaml:"explanation,omitempty"`
	Examples    []exampleFile `yaml:"examples,omitempty"`

	MediaType   string    `yaml:"mediaType,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Value       yaml.Node `yaml:"value,omitempty"`
}

func decodeStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("file is empty")
		}
		return err
	}
	return nil
}

// ParseModule decodes a module file. path is recorded as the module origin.
func ParseModule(data []byte, path string) (*ums.Module, error) {
	var f moduleFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, &ums.ModuleLoadError{FilePath: path, Err: fmt.Errorf("YAML parse failed: %w", err)}
	}

	content, err := f.content()
	if err != nil {
		return nil, &ums.ModuleLoadError{FilePath: path, Err: err}
	}

	return &ums.Module{
		ID:             f.ID,
		Version:        f.Version,
		SchemaVersion:  f.SchemaVersion,
		Capabilities:   f.Capabilities,
		CognitiveLevel: f.CognitiveLevel,
		Metadata: ums.Metadata{
			Name:        f.Metadata.Name,
			Description: f.Metadata.Description,
			Semantic:    f.Metadata.Semantic,
			Tags:        f.Metadata.Tags,
			Deprecated:  f.Metadata.Deprecated,
			ReplacedBy:  f.Metadata.ReplacedBy,
			Authors:     f.Metadata.Authors,
			License:     f.Metadata.License,
		},
		Content: content,
		Origin:  ums.Origin{Path: path},
	}, nil
}

// content converts the authoring shape into the Content union. Shorthand keys
// and a components list are mutually exclusive.
func (f *moduleFile) content() (ums.Content, error) {
	var present []string
	if f.Instruction != nil {
		present = append(present, "instruction")
	}
	if f.Knowledge != nil {
		present = append(present, "knowledge")
	}
	if f.Data != nil {
		present = append(present, "data")
	}
	if f.Components != nil {
		present = append(present, "components")
	}
	if len(present) > 1 {
		return nil, &ums.ValidationError{
			Message: fmt.Sprintf("%s are mutually exclusive; use one shorthand key or a components list", strings.Join(present, ", ")),
			Section: "content",
		}
	}

	switch {
	case f.Instruction != nil:
		return f.Instruction.toInstruction(), nil
	case f.Knowledge != nil:
		return f.Knowledge.toKnowledge(), nil
	case f.Data != nil:
		return toData(f.Data.MediaType, f.Data.Description, &f.Data.Value, "data")
	case f.Components != nil:
		mc := ums.MultiComponent{Components: make([]ums.Component, 0, len(f.Components))}
		for i := range f.Components {
			c, err := f.Components[i].toComponent(fmt.Sprintf("components[%d]", i))
			if err != nil {
				return nil, err
			}
			mc.Components = append(mc.Components, c)
		}
		return mc, nil
	}
	return nil, nil
}

func (in *instructionFile) toInstruction() ums.Instruction {
	return ums.Instruction{
		Goal:        strings.TrimSpace(in.Goal),
		Principles:  in.Principles,
		Constraints: in.Constraints,
		Process:     in.Process,
		Criteria:    in.Criteria,
	}
}

func (k *knowledgeFile) toKnowledge() ums.Knowledge {
	return ums.Knowledge{
		Explanation: strings.TrimSpace(k.Explanation),
		Principles:  k.Principles,
		Examples:    toExamples(k.Examples),
	}
}

func toExamples(in []exampleFile) []ums.Example {
	if in == nil {
		return nil
	}
	out := make([]ums.Example, len(in))
	for i, e := range in {
		out[i] = ums.Example{Title: e.Title, Rationale: e.Rationale, Snippet: e.Snippet, Language: e.Language}
	}
	return out
}

func (c *componentFile) toComponent(path string) (ums.Component, error) {
	var stray []string
	hasInstruction := c.Goal != "" || c.Constraints != nil || c.Process != nil || c.Criteria != nil
	hasKnowledge := c.Explanation != "" || c.Examples != nil
	hasData := c.MediaType != "" || c.Description != "" || c.Value.Kind != 0

	switch ums.ComponentType(c.Type) {
	case ums.ComponentInstruction:
		if hasKnowledge || hasData {
			stray = append(stray, "knowledge/data fields")
		}
		if len(stray) == 0 {
			return ums.Instruction{
				Goal:        strings.TrimSpace(c.Goal),
				Principles:  c.Principles,
				Constraints: c.Constraints,
				Process:     c.Process,
				Criteria:    c.Criteria,
			}, nil
		}
	case ums.ComponentKnowledge:
		if hasInstruction || hasData {
			stray = append(stray, "instruction/data fields")
		}
		if len(stray) == 0 {
			return ums.Knowledge{
				Explanation: strings.TrimSpace(c.Explanation),
				Principles:  c.Principles,
				Examples:    toExamples(c.Examples),
			}, nil
		}
	case ums.ComponentData:
		if hasInstruction || hasKnowledge || c.Principles != nil {
			stray = append(stray, "instruction/knowledge fields")
		}
		if len(stray) == 0 {
			return toData(c.MediaType, c.Description, &c.Value, path)
		}
	case "":
		return nil, &ums.ValidationError{Path: path + ".type", Message: "component type is required", Section: "content"}
	default:
		return nil, &ums.ValidationError{Path: path + ".type", Message: fmt.Sprintf("unknown component type %q", c.Type), Section: "content"}
	}
	return nil, &ums.ValidationError{
		Path:    path,
		Message: fmt.Sprintf("%s component must not carry %s", c.Type, strings.Join(stray, ", ")),
		Section: "content",
	}
}

// toData renders a data value to text. Scalars are used verbatim; structured
// values are serialized as JSON for JSON media types and as YAML otherwise.
func toData(mediaType, description string, value *yaml.Node, path string) (ums.Data, error) {
	d := ums.Data{MediaType: mediaType, Description: strings.TrimSpace(description)}
	switch value.Kind {
	case 0:
		return d, nil
	case yaml.ScalarNode:
		d.Value = value.Value
		return d, nil
	}

	var decoded interface{}
	if err := value.Decode(&decoded); err != nil {
		return d, fmt.Errorf("%s.value: %w", path, err)
	}
	if strings.Contains(strings.ToLower(mediaType), "json") {
		out, err := json.MarshalIndent(decoded, "", "  ")
		if err != nil {
			return d, fmt.Errorf("%s.value: %w", path, err)
		}
		d.Value = string(out)
		return d, nil
	}
	out, err := yaml.Marshal(value)
	if err != nil {
		return d, fmt.Errorf("%s.value: %w", path, err)
	}
	d.Value = strings.TrimRight(string(out), "\n")
	return d, nil
}

type personaFile struct {
	Name          string      `yaml:"name"`
	Version       string      `yaml:"version"`
	SchemaVersion string      `yaml:"schemaVersion"`
	Description   string      `yaml:"description"`
	Semantic      string      `yaml:"semantic"`
	Identity      string      `yaml:"identity,omitempty"`
	Attribution   bool        `yaml:"attribution,omitempty"`
	Modules       []entryFile `yaml:"modules"`
}

// entryFile accepts either a bare module id or {group, ids}. The group name
// is optional and may also be spelled groupName.
type entryFile ums.ModuleEntry

func (e *entryFile) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var id string
		if err := node.Decode(&id); err != nil {
			return err
		}
		*e = entryFile(ums.BareEntry(id))
		return nil
	case yaml.MappingNode:
		named := 0
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch key := node.Content[i].Value; key {
			case "group", "groupName":
				named++
			case "ids":
			default:
				return fmt.Errorf("line %d: field %s not found in module group", node.Content[i].Line, key)
			}
		}
		if named > 1 {
			return fmt.Errorf("line %d: module group sets both group and groupName", node.Line)
		}
		var g struct {
			Group     string   `yaml:"group"`
			GroupName string   `yaml:"groupName"`
			IDs       []string `yaml:"ids"`
		}
		if err := node.Decode(&g); err != nil {
			return err
		}
		name := g.Group
		if name == "" {
			name = g.GroupName
		}
		*e = entryFile(ums.GroupEntry(strings.TrimSpace(name), g.IDs...))
		return nil
	default:
		return fmt.Errorf("line %d: module entry must be an id or a {group, ids} mapping", node.Line)
	}
}

// ParsePersona decodes a persona file.
func ParsePersona(data []byte, path string) (*ums.Persona, error) {
	var f personaFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, &ums.PersonaLoadError{FilePath: path, Err: fmt.Errorf("YAML parse failed: %w", err)}
	}

	p := &ums.Persona{
		Name:          f.Name,
		Version:       f.Version,
		SchemaVersion: f.SchemaVersion,
		Description:   f.Description,
		Semantic:      f.Semantic,
		Identity:      f.Identity,
		Attribution:   f.Attribution,
		Modules:       make([]ums.ModuleEntry, len(f.Modules)),
		Origin:        ums.Origin{Path: path},
	}
	for i, e := range f.Modules {
		p.Modules[i] = ums.ModuleEntry(e)
	}
	return p, nil
}

// LoadPersona reads and parses a persona file from disk.
func LoadPersona(path string) (*ums.Persona, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ums.PersonaLoadError{FilePath: path, Err: err}
	}
	p, err := ParsePersona(data, path)
	if err != nil {
		return nil, nil, err
	}
	return p, data, nil
}

// LoadModule reads and parses a module file from disk.
func LoadModule(path string) (*ums.Module, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ums.ModuleLoadError{FilePath: path, Err: err}
	}
	m, err := ParseModule(data, path)
	if err != nil {
		return nil, nil, err
	}
	return m, data, nil
}
