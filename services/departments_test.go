package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDepartmentAliasesMatches(t *testing.T) {
	a := DefaultDepartmentAliases()
	cases := []struct {
		targets []string
		roles   []string
		want    bool
	}{
		{[]string{"Designer"}, []string{"UI/UX Designer"}, true},
		{[]string{"Graphic Designer"}, []string{"Designer"}, true},
		{[]string{"Software Developer"}, []string{"Backend Developer"}, true},
		{[]string{"Sales"}, []string{"Designer"}, false},
		{[]string{"Copywriter"}, []string{"Copywriter"}, true}, // unmapped names match themselves
		{[]string{"Copywriter"}, []string{"Writer"}, false},
		{nil, []string{"Designer"}, false},
	}
	for _, tc := range cases {
		if got := a.Matches(tc.targets, tc.roles); got != tc.want {
			t.Errorf("Matches(%v, %v) = %v, want %v", tc.targets, tc.roles, got, tc.want)
		}
	}
}

func TestLoadDepartmentAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := "departments:\n  Video:\n    - Video Editor\n    - Motion Designer\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	a, err := LoadDepartmentAliases(path)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Matches([]string{"Video"}, []string{"Motion Designer"}) {
		t.Errorf("loaded alias not applied")
	}
	if a.Matches([]string{"Designer"}, []string{"UI/UX Designer"}) {
		t.Errorf("defaults leaked into a loaded table")
	}

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("departments: {}\n"), 0600)
	if _, err := LoadDepartmentAliases(empty); !errors.Is(err, ErrValidation) {
		t.Errorf("empty table: %v", err)
	}
	if _, err := LoadDepartmentAliases(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("missing file should fail")
	}
}
