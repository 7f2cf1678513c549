package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Limit int    `yaml:"limit"`
}

func (s *sample) Validate() error {
	if s.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nlimit: 3\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "from-env" || s.Limit != 3 {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "limit: -1\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "default", Limit: 1}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" {
		t.Errorf("defaults changed: %+v", s)
	}

	s = sample{Limit: -5}
	if err := LoadOptional("", &s); err == nil {
		t.Error("invalid defaults were accepted")
	}

	path := writeFile(t, "name: file\n")
	s = sample{Name: "default", Limit: 2}
	if err := LoadOptional(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "file" || s.Limit != 2 {
		t.Errorf("loaded %+v", s)
	}
}
