// Package config loads a project's vela.yaml: the stdlib path, extra
// search paths and the uniqueness toggle. SearchPaths is parsed but not
// passed to the loader, which resolves imports against the stdlib path and
// the source directory only.
//
// The project root is found by walking up from the working directory
// looking for a marker file ("vela.yaml", "go.mod", ".git"); the config
// file itself is read with gopkg.in/yaml.v3.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is a project's vela.yaml.
type Config struct {
	StdlibPath  string   `yaml:"stdlib_path"`
	SearchPaths []string `yaml:"search_paths"`
	Uniqueness  bool     `yaml:"uniqueness"`
}

// markerFiles are checked, in order, when walking up from a starting
// directory looking for the project root.
var markerFiles = []string{"vela.yaml", "go.mod", ".git"}

// FindProjectRoot walks up from dir looking for one of markerFiles,
// returning the first directory that contains one.
func FindProjectRoot(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		for _, marker := range markerFiles {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load reads and parses vela.yaml from projectRoot. A missing file is not
// an error: it returns the zero Config, which callers fill in with
// defaults (no project config is a normal, supported case).
func Load(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, "vela.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveStdlibPath returns cfg.StdlibPath if set (joined to projectRoot
// when relative), else the VELA_STDLIB environment variable, else a
// "stdlib" directory beside the running executable if one exists, else
// projectRoot/stdlib.
func (c *Config) ResolveStdlibPath(projectRoot string) string {
	if c.StdlibPath != "" {
		if filepath.IsAbs(c.StdlibPath) {
			return c.StdlibPath
		}
		return filepath.Join(projectRoot, c.StdlibPath)
	}
	if env := os.Getenv("VELA_STDLIB"); env != "" {
		return env
	}
	exe, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "stdlib")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(projectRoot, "stdlib")
}
