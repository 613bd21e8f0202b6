package ums

// BuildReport is the provenance record of one build.
// BuildTimestamp is the only field that is not a pure function of the inputs.
type BuildReport struct {
	PersonaName    string              `json:"personaName"`
	SchemaVersion  string              `json:"schemaVersion"`
	ToolVersion    string              `json:"toolVersion"`
	PersonaDigest  string              `json:"personaDigest"`
	BuildTimestamp string              `json:"buildTimestamp"`
	ModuleGroups   []ReportModuleGroup `json:"moduleGroups"`
}

// ReportModuleGroup mirrors one persona module group.
type ReportModuleGroup struct {
	GroupName string         `json:"groupName"`
	Modules   []ReportModule `json:"modules"`
}

// ReportModule records one composed module.
type ReportModule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Source     string `json:"source"`
	Digest     string `json:"digest"`
	Deprecated bool   `json:"deprecated"`
	ReplacedBy string `json:"replacedBy,omitempty"`
}

// Modules returns every report module in document order.
func (r *BuildReport) Modules() []ReportModule {
	var out []ReportModule
	for _, g := range r.ModuleGroups {
		out = append(out, g.Modules...)
	}
	return out
}
