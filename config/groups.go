package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Groups lists the display names of the role groups used by the reports.
type Groups struct {
	PM []string `yaml:"pm"`
	BA []string `yaml:"ba"`
	AV []string `yaml:"av"`
}

// All returns every member of every group, the skip-list of the general report.
func (g Groups) All() []string {
	out := make([]string, 0, len(g.PM)+len(g.BA)+len(g.AV))
	out = append(out, g.PM...)
	out = append(out, g.BA...)
	return append(out, g.AV...)
}

// LoadGroups reads a YAML file of the form:
//
//	pm: [Alice Smith]
//	ba: [Bob Jones]
//	av: []
func LoadGroups(path string) (Groups, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Groups{}, fmt.Errorf("LoadGroups: read %s: %w", path, err)
	}
	var g Groups
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Groups{}, fmt.Errorf("LoadGroups: parse %s: %w", path, err)
	}
	return g, nil
}
