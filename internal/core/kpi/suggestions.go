package kpi

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Severity selects a suggestion set
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

//go:embed suggestions.yaml
var defaultSuggestionsYAML []byte

// SuggestionCatalog is a read-only severity x source lookup table
type SuggestionCatalog struct {
	entries map[Severity]map[Source][]string
}

// ParseSuggestionCatalog decodes a catalog from YAML. Every severity must
// carry a non-empty custom list, which is used as the fallback.
func ParseSuggestionCatalog(data []byte) (*SuggestionCatalog, error) {
	var raw map[Severity]map[Source][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion catalog: %w", err)
	}

	for _, sev := range []Severity{SeverityCritical, SeverityWarning} {
		bySource, ok := raw[sev]
		if !ok {
			return nil, fmt.Errorf("suggestion catalog has no %q section", sev)
		}
		if len(bySource[SourceCustom]) == 0 {
			return nil, fmt.Errorf("suggestion catalog %q section needs a non-empty %q list", sev, SourceCustom)
		}
	}

	return &SuggestionCatalog{entries: raw}, nil
}

var (
	defaultCatalog     *SuggestionCatalog
	defaultCatalogOnce sync.Once
)

// DefaultSuggestionCatalog returns the catalog embedded in the binary
func DefaultSuggestionCatalog() *SuggestionCatalog {
	defaultCatalogOnce.Do(func() {
		catalog, err := ParseSuggestionCatalog(defaultSuggestionsYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = catalog
	})
	return defaultCatalog
}

// Lookup returns a copy of the suggestions for severity and source
func (c *SuggestionCatalog) Lookup(severity Severity, source Source) []string {
	bySource := c.entries[severity]
	list, ok := bySource[source]
	if !ok || len(list) == 0 {
		list = bySource[SourceCustom]
	}

	out := make([]string, len(list))
	copy(out, list)
	return out
}
