// Package validate performs structural and schema checks on modules and
// personas. Errors are fatal for the record; warnings are advisory.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"personakit/internal/logging"
	"personakit/internal/ums"
)

// Section tags name the part of the schema a rule belongs to.
const (
	SectionIdentity = "identity"
	SectionMetadata = "metadata"
	SectionContent  = "content"
	SectionModules  = "modules"
)

const (
	maxCognitiveLevel = 6
	minSemanticLength = 20
)

var kebab = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Module validates a single module.
func Module(m *ums.Module) ums.ValidationResult {
	res := ums.NewValidationResult()
	if m == nil {
		res.AddError("", "", "module is nil")
		return res
	}

	if m.ID == "" {
		res.AddError("id", SectionIdentity, "id is required")
	} else if !ums.IsValidID(m.ID) {
		res.AddError("id", SectionIdentity, "invalid module id %q: must be <tier>/<segment>[/<segment>...] with tier one of foundation, principle, technology, execution and lowercase kebab-case segments", m.ID)
	}

	if m.SchemaVersion != ums.SchemaVersion {
		res.AddError("schemaVersion", SectionIdentity, "schemaVersion must be %q, got %q", ums.SchemaVersion, m.SchemaVersion)
	}
	if !ums.IsSemVer(m.Version) {
		res.AddError("version", SectionIdentity, "version %q is not a semantic version", m.Version)
	}

	if len(m.Capabilities) == 0 {
		res.AddError("capabilities", SectionIdentity, "at least one capability is required")
	}
	for i, c := range m.Capabilities {
		if !kebab.MatchString(c) {
			res.AddWarning(fmt.Sprintf("capabilities[%d]", i), "capability %q should be lowercase kebab-case", c)
		}
	}

	if m.CognitiveLevel != nil && (*m.CognitiveLevel < 0 || *m.CognitiveLevel > maxCognitiveLevel) {
		res.AddError("cognitiveLevel", SectionIdentity, "cognitiveLevel must be between 0 and %d, got %d", maxCognitiveLevel, *m.CognitiveLevel)
	}

	validateMetadata(&res, m.Metadata)
	validateContent(&res, m.Content)

	if !res.Valid {
		logging.Get(logging.CategoryValidate).Debug("module %s: %d errors, %d warnings", m.ID, len(res.Errors), len(res.Warnings))
	}
	return res
}

func validateMetadata(res *ums.ValidationResult, md ums.Metadata) {
	if strings.TrimSpace(md.Name) == "" {
		res.AddError("metadata.name", SectionMetadata, "name is required")
	}
	if strings.TrimSpace(md.Description) == "" {
		res.AddError("metadata.description", SectionMetadata, "description is required")
	}
	if strings.TrimSpace(md.Semantic) == "" {
		res.AddError("metadata.semantic", SectionMetadata, "semantic is required")
	} else if len(strings.TrimSpace(md.Semantic)) < minSemanticLength {
		res.AddWarning("metadata.semantic", "semantic text is short; it drives search and should describe the module in a sentence or more")
	}

	for i, tag := range md.Tags {
		if tag != strings.ToLower(tag) {
			res.AddError(fmt.Sprintf("metadata.tags[%d]", i), SectionMetadata, "tag %q must be lowercase", tag)
		}
	}

	if md.ReplacedBy != "" && !md.Deprecated {
		res.AddError("metadata.replacedBy", SectionMetadata, "replacedBy requires deprecated: true")
	}
	if md.Deprecated && md.ReplacedBy == "" {
		res.AddWarning("metadata.deprecated", "deprecated module does not name a replacement")
	}
}

func validateContent(res *ums.ValidationResult, c ums.Content) {
	switch v := c.(type) {
	case nil:
		res.AddError("", SectionContent, "module must define instruction, knowledge, data or components")
	case ums.Instruction:
		validateInstruction(res, "instruction", v)
	case ums.Knowledge:
		validateKnowledge(res, "knowledge", v)
	case ums.Data:
		validateData(res, "data", v)
	case ums.MultiComponent:
		if len(v.Components) == 0 {
			res.AddError("components", SectionContent, "components must contain at least one component")
		}
		for i, comp := range v.Components {
			path := fmt.Sprintf("components[%d]", i)
			switch cv := comp.(type) {
			case ums.Instruction:
				validateInstruction(res, path, cv)
			case ums.Knowledge:
				validateKnowledge(res, path, cv)
			case ums.Data:
				validateData(res, path, cv)
			default:
				res.AddError(path, SectionContent, "unknown component type %T", comp)
			}
		}
	default:
		res.AddError("", SectionContent, "unknown content shape %T", c)
	}
}

func validateInstruction(res *ums.ValidationResult, path string, in ums.Instruction) {
	if strings.TrimSpace(in.Goal) == "" && len(in.Process) == 0 {
		res.AddError(path, SectionContent, "instruction needs a goal or a process")
	}
	checkItems(res, path+".principles", in.Principles)
	checkItems(res, path+".constraints", in.Constraints)
	checkItems(res, path+".process", in.Process)
	checkItems(res, path+".criteria", in.Criteria)
}

func validateKnowledge(res *ums.ValidationResult, path string, k ums.Knowledge) {
	if strings.TrimSpace(k.Explanation) == "" && len(k.Examples) == 0 {
		res.AddError(path, SectionContent, "knowledge needs an explanation or examples")
	}
	checkItems(res, path+".principles", k.Principles)
	for i, ex := range k.Examples {
		p := fmt.Sprintf("%s.examples[%d]", path, i)
		if strings.TrimSpace(ex.Title) == "" {
			res.AddError(p+".title", SectionContent, "example title is required")
		}
		if strings.TrimSpace(ex.Snippet) == "" {
			res.AddError(p+".snippet", SectionContent, "example snippet is required")
		}
	}
}

func validateData(res *ums.ValidationResult, path string, d ums.Data) {
	if strings.TrimSpace(d.MediaType) == "" {
		res.AddError(path+".mediaType", SectionContent, "data mediaType is required")
	} else if !strings.Contains(d.MediaType, "/") {
		res.AddError(path+".mediaType", SectionContent, "data mediaType %q is not a media type", d.MediaType)
	}
	if strings.TrimSpace(d.Value) == "" {
		res.AddError(path+".value", SectionContent, "data value is required")
	}
}

func checkItems(res *ums.ValidationResult, path string, items []string) {
	for i, it := range items {
		if strings.TrimSpace(it) == "" {
			res.AddError(fmt.Sprintf("%s[%d]", path, i), SectionContent, "list item is empty")
		}
	}
}

// Persona validates a persona, including duplicate module references across
// all entries and groups.
func Persona(p *ums.Persona) ums.ValidationResult {
	res := ums.NewValidationResult()
	if p == nil {
		res.AddError("", "", "persona is nil")
		return res
	}

	if strings.TrimSpace(p.Name) == "" {
		res.AddError("name", SectionIdentity, "name is required")
	}
	if p.SchemaVersion != ums.SchemaVersion {
		res.AddError("schemaVersion", SectionIdentity, "schemaVersion must be %q, got %q", ums.SchemaVersion, p.SchemaVersion)
	}
	if !ums.IsSemVer(p.Version) {
		res.AddError("version", SectionIdentity, "version %q is not a semantic version", p.Version)
	}
	if strings.TrimSpace(p.Description) == "" {
		res.AddWarning("description", "persona has no description")
	}
	if strings.TrimSpace(p.Semantic) == "" {
		res.AddWarning("semantic", "persona has no semantic text")
	}

	if len(p.Modules) == 0 {
		res.AddError("modules", SectionModules, "modules must list at least one module")
	}

	firstSeen := make(map[string]string)
	for i, entry := range p.Modules {
		entryPath := fmt.Sprintf("modules[%d]", i)
		if len(entry.IDs) == 0 {
			res.AddError(entryPath+".ids", SectionModules, "entry lists no module ids")
		}
		for j, id := range entry.IDs {
			path := fmt.Sprintf("%s.ids[%d]", entryPath, j)
			if entry.Bare {
				path = entryPath
			}
			if !ums.IsValidID(id) {
				res.AddError(path, SectionModules, "invalid module id %q", id)
			}
			if prev, dup := firstSeen[id]; dup {
				res.AddError(path, SectionModules, "duplicate module id %s (first referenced at %s)", id, prev)
				continue
			}
			firstSeen[id] = path
		}
	}

	if !res.Valid {
		logging.Get(logging.CategoryValidate).Debug("persona %s: %d errors, %d warnings", p.Name, len(res.Errors), len(res.Warnings))
	}
	return res
}
