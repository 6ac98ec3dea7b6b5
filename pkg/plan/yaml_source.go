package plan

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Source loads the tier hierarchy at startup. The hierarchy is static per
// deployment; changing tiers is a deploy, not a runtime operation.
type Source interface {
	Load(ctx context.Context) (*Hierarchy, error)
}

// YAMLSource loads tiers from a YAML file:
//
//	tiers:
//	  - id: free
//	    name: Free
//	    rank: 0
//	  - id: basic
//	    name: Basic
//	    rank: 1
//	    flags: [voice_calls]
type YAMLSource struct {
	Path string
}

func (s YAMLSource) Load(ctx context.Context) (*Hierarchy, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a hierarchy from raw YAML bytes.
func ParseYAML(data []byte) (*Hierarchy, error) {
	var doc struct {
		Tiers []Tier `yaml:"tiers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	return NewHierarchy(doc.Tiers)
}

// StaticSource serves a fixed hierarchy; useful for tests.
type StaticSource struct {
	Hierarchy *Hierarchy
}

func (s StaticSource) Load(ctx context.Context) (*Hierarchy, error) {
	if s.Hierarchy == nil {
		return nil, ErrFailedToLoadTiers
	}
	return s.Hierarchy, nil
}
