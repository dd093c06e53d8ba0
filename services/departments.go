package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DepartmentAliases maps a department name used for task targeting to the
// role tags that count as members of it. The relation is many-to-many: a
// role may appear under several departments.
type DepartmentAliases struct {
	table map[string][]string
}

func NewDepartmentAliases(table map[string][]string) *DepartmentAliases {
	cp := make(map[string][]string, len(table))
	for dept, roles := range table {
		cp[dept] = append([]string(nil), roles...)
	}
	return &DepartmentAliases{table: cp}
}

func DefaultDepartmentAliases() *DepartmentAliases {
	return NewDepartmentAliases(map[string][]string{
		"Designer":           {"Designer", "Graphic Designer", "UI/UX Designer"},
		"Social Media":       {"Social Media", "Social Media Manager"},
		"SEO Specialist":     {"SEO Specialist"},
		"Meta Ads":           {"Meta Ads", "Meta Ads Specialist"},
		"Software Developer": {"Software Developer", "Developer", "Backend Developer", "Frontend Developer"},
		"Sales":              {"Sales", "Sales Executive"},
		"Graphic Designer":   {"Graphic Designer", "Designer"},
	})
}

type aliasFile struct {
	Departments map[string][]string `yaml:"departments"`
}

// LoadDepartmentAliases reads a YAML file of the form
//
//	departments:
//	  Designer: [Designer, Graphic Designer]
func LoadDepartmentAliases(path string) (*DepartmentAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read department aliases: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse department aliases %s: %w", path, err)
	}
	if len(f.Departments) == 0 {
		return nil, fmt.Errorf("%w: no departments in %s", ErrValidation, path)
	}
	return NewDepartmentAliases(f.Departments), nil
}

// Expand returns the roles a department name stands for. Unmapped names
// stand for themselves.
func (a *DepartmentAliases) Expand(dept string) []string {
	if roles, ok := a.table[dept]; ok {
		return roles
	}
	return []string{dept}
}

// Matches reports whether any of the target departments expands to one of
// the user's roles.
func (a *DepartmentAliases) Matches(targets []string, userRoles []string) bool {
	for _, dept := range targets {
		for _, allowed := range a.Expand(dept) {
			for _, r := range userRoles {
				if r == allowed {
					return true
				}
			}
		}
	}
	return false
}
