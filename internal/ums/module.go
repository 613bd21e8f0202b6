package ums

import (
	"regexp"
	"strings"
)

// SchemaVersion is the only module/persona schema generation accepted.
const SchemaVersion = "2.0"

// Tier is the first segment of a module ID.
type Tier string

const (
	TierFoundation Tier = "foundation"
	TierPrinciple  Tier = "principle"
	TierTechnology Tier = "technology"
	TierExecution  Tier = "execution"
)

// AllTiers returns the tiers in their conventional reading order.
func AllTiers() []Tier {
	return []Tier{TierFoundation, TierPrinciple, TierTechnology, TierExecution}
}

var (
	idPattern     = regexp.MustCompile(`^(foundation|principle|technology|execution)(/[a-z0-9]+(-[a-z0-9]+)*)+$`)
	semverPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(-[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?(\+[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?$`)
)

// IsValidID reports whether id is a well-formed module identifier.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

// IsSemVer reports whether v is a semantic version (MAJOR.MINOR.PATCH with optional pre-release/build).
func IsSemVer(v string) bool {
	return semverPattern.MatchString(v)
}

// TierOf returns the tier segment of an ID, or "" if the ID has no slash.
func TierOf(id string) Tier {
	i := strings.IndexByte(id, '/')
	if i <= 0 {
		return ""
	}
	return Tier(id[:i])
}

// Module is a reusable, identified unit of instructional content.
// Identity is ID alone; Version is informational and never used for conflict resolution.
type Module struct {
	ID             string
	Version        string
	SchemaVersion  string
	Capabilities   []string
	CognitiveLevel *int
	Metadata       Metadata
	Content        Content

	// Origin is attached by the loader, never by the module author.
	Origin Origin
}

// Metadata holds the descriptive fields of a module.
type Metadata struct {
	Name        string
	Description string
	Semantic    string
	Tags        []string
	Deprecated  bool
	ReplacedBy  string
	Authors     []string
	License     string
}

// Origin records where a record was read from.
type Origin struct {
	Path   string
	Source Source
}

// Name returns the display name, falling back to the ID.
func (m *Module) Name() string {
	if m.Metadata.Name != "" {
		return m.Metadata.Name
	}
	return m.ID
}
