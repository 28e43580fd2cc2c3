// Package region maps French administrative regions to their department
// codes, which double as postal-code prefixes. Pure lookup, no state.
package region

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

type regionTable struct {
	Regions []regionRow `yaml:"regions"`
}

type regionRow struct {
	Name        string   `yaml:"name"`
	Departments []string `yaml:"departments"`
}

var (
	byRegion     map[string][]string
	byDepartment map[string]string
)

func init() {
	var table regionTable
	if err := yaml.Unmarshal(regionsYAML, &table); err != nil {
		panic("region: parse embedded table: " + err.Error())
	}

	byRegion = make(map[string][]string, len(table.Regions))
	byDepartment = make(map[string]string)
	for _, r := range table.Regions {
		byRegion[normalize(r.Name)] = r.Departments
		for _, d := range r.Departments {
			byDepartment[d] = r.Name
		}
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Known reports whether name is a known region (case-insensitive).
func Known(name string) bool {
	_, ok := byRegion[normalize(name)]
	return ok
}

// Departments returns the department codes of a region, nil when unknown.
func Departments(name string) []string {
	return byRegion[normalize(name)]
}

// ForPostalCode returns the region a postal code belongs to, "" when the
// prefix is not a metropolitan department. Corsican postal codes (20xxx)
// cannot be split between 2A and 2B from the code alone and resolve to Corse.
func ForPostalCode(postal string) string {
	if len(postal) < 2 {
		return ""
	}
	prefix := postal[:2]
	if prefix == "20" {
		return byDepartment["2A"]
	}
	return byDepartment[prefix]
}

// ForDepartment returns the region a department code belongs to.
func ForDepartment(dept string) string {
	return byDepartment[dept]
}
