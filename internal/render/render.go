// Package render turns a persona and its resolved modules into a Markdown
// instruction document. Rendering is pure and byte-stable: the same inputs
// always produce the same output.
package render

import (
	"fmt"
	"strings"

	"personakit/internal/logging"
	"personakit/internal/ums"
)

// Directive names a renderable section of a module body.
type Directive string

const (
	DirectiveGoal        Directive = "goal"
	DirectivePrinciples  Directive = "principles"
	DirectiveConstraints Directive = "constraints"
	DirectiveProcess     Directive = "process"
	DirectiveCriteria    Directive = "criteria"
	DirectiveData        Directive = "data"
	DirectiveExamples    Directive = "examples"
)

// Order is the fixed render order. It is independent of authoring order so
// every module reads goal-first.
func Order() []Directive {
	return []Directive{
		DirectiveGoal,
		DirectivePrinciples,
		DirectiveConstraints,
		DirectiveProcess,
		DirectiveCriteria,
		DirectiveData,
		DirectiveExamples,
	}
}

var titles = map[Directive]string{
	DirectiveGoal:        "Goal",
	DirectivePrinciples:  "Principles",
	DirectiveConstraints: "Constraints",
	DirectiveProcess:     "Process",
	DirectiveCriteria:    "Criteria",
	DirectiveData:        "Data",
	DirectiveExamples:    "Examples",
}

const separator = "---\n"

// RenderMarkdown renders the whole persona document. Modules are placed by the
// persona's entries; modules the persona does not reference are not rendered.
func RenderMarkdown(p *ums.Persona, modules []*ums.Module) string {
	timer := logging.StartTimer(logging.CategoryRender, "RenderMarkdown")
	defer timer.Stop()

	byID := make(map[string]*ums.Module, len(modules))
	for _, m := range modules {
		if m != nil {
			byID[m.ID] = m
		}
	}

	var blocks []string
	if identity := strings.TrimSpace(p.Identity); identity != "" {
		blocks = append(blocks, section("Identity", identity+"\n"))
	}

	rendered := make(map[string]bool)
	written := 0
	for _, entry := range p.Modules {
		var group []*ums.Module
		for _, id := range entry.IDs {
			m, ok := byID[id]
			if !ok || rendered[id] {
				continue
			}
			rendered[id] = true
			group = append(group, m)
		}
		if len(group) == 0 {
			continue
		}

		for i, m := range group {
			if written > 0 {
				blocks = append(blocks, separator)
			}
			if i == 0 && !entry.Bare && entry.Group != "" {
				blocks = append(blocks, fmt.Sprintf("# %s\n", entry.Group))
			}
			blocks = append(blocks, moduleBlock(m, p.Attribution))
			written++
		}
	}

	out := strings.Join(blocks, "\n")
	logging.Get(logging.CategoryRender).Debug("rendered %d modules for %s (%d bytes)", written, p.Name, len(out))
	return out
}

func moduleBlock(m *ums.Module, attribution bool) string {
	body := RenderModule(m)
	if !attribution {
		return body
	}
	if body == "" {
		return fmt.Sprintf("[Attribution: %s]\n", m.ID)
	}
	return body + fmt.Sprintf("\n[Attribution: %s]\n", m.ID)
}

// RenderModule renders one module body in the fixed directive order, skipping
// absent directives. A module without content renders as "".
func RenderModule(m *ums.Module) string {
	if m == nil || m.Content == nil {
		return ""
	}
	d := ums.Flatten(m.Content)

	var sections []string
	for _, dir := range Order() {
		body := directiveBody(dir, d)
		if body == "" {
			continue
		}
		sections = append(sections, section(titles[dir], body))
	}
	return strings.Join(sections, "\n")
}

func directiveBody(dir Directive, d ums.Directives) string {
	switch dir {
	case DirectiveGoal:
		if d.Goal == "" {
			return ""
		}
		return d.Goal + "\n"
	case DirectivePrinciples:
		return bullets(d.Principles, "- ")
	case DirectiveConstraints:
		return bullets(d.Constraints, "- ")
	case DirectiveProcess:
		return numbered(d.Process)
	case DirectiveCriteria:
		return bullets(d.Criteria, "- [ ] ")
	case DirectiveData:
		return dataBody(d.Data)
	case DirectiveExamples:
		return examplesBody(d.Examples)
	}
	return ""
}

func section(title, body string) string {
	return "## " + title + "\n\n" + body
}

func bullets(items []string, marker string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(marker)
		b.WriteString(strings.TrimSpace(it))
		b.WriteString("\n")
	}
	return b.String()
}

func numbered(items []string) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(it))
	}
	return b.String()
}

func fence(lang, content string) string {
	return "```" + lang + "\n" + strings.TrimRight(content, "\n") + "\n```\n"
}

func dataBody(items []ums.Data) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		var b strings.Builder
		if desc := strings.TrimSpace(item.Description); desc != "" {
			b.WriteString(desc)
			b.WriteString("\n\n")
		}
		b.WriteString(fence(LanguageFor(item.MediaType), item.Value))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

func examplesBody(items []ums.Example) string {
	parts := make([]string, 0, len(items))
	for _, ex := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "### %s\n\n", strings.TrimSpace(ex.Title))
		if r := strings.TrimSpace(ex.Rationale); r != "" {
			b.WriteString(r)
			b.WriteString("\n\n")
		}
		b.WriteString(fence(strings.TrimSpace(ex.Language), ex.Snippet))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}
