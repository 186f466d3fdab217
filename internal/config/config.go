// # internal/config/config.go
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Project     Project  `toml:"project"`
	SourceRoots []string `toml:"source_roots"`
	Exclude     Exclude  `toml:"exclude"`
	Analysis    Analysis `toml:"analysis"`
	Watch       Watch    `toml:"watch"`
	Store       Store    `toml:"store"`
	Output      Output   `toml:"output"`
	Metrics     Metrics  `toml:"metrics"`
	Tracing     Tracing  `toml:"tracing"`
}

type Project struct {
	Name     string `toml:"name"`
	Revision string `toml:"revision"` // overrides git detection when set
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`  // glob patterns matched against directory names
	Files []string `toml:"files"` // glob patterns matched against file paths
}

type Analysis struct {
	// Annotations whose processors can touch arbitrary classes. A class
	// carrying one invalidates everything on change.
	UnboundedAnnotations []string `toml:"unbounded_annotations"`
}

type Watch struct {
	Debounce  time.Duration `toml:"debounce"`
	RateLimit float64       `toml:"rate_limit"` // passes per second, 0 disables
}

type Store struct {
	Path    string `toml:"path"`
	History int    `toml:"history"` // passes to retain, 0 keeps everything
}

type Output struct {
	// Patterns may use [project], [revision], [pass] and [ext] tokens.
	// Optional segments in parentheses are dropped when their token is empty.
	DOT  string `toml:"dot"`
	TSV  string `toml:"tsv"`
	Plan string `toml:"plan"`
}

type Metrics struct {
	Addr string `toml:"addr"` // e.g. ":9090", empty disables the server
}

type Tracing struct {
	Endpoint string `toml:"endpoint"` // OTLP gRPC endpoint, empty disables
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.SourceRoots) == 0 {
		c.SourceRoots = []string{"."}
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if len(c.Exclude.Dirs) == 0 {
		c.Exclude.Dirs = []string{".git", "build", "target", "out"}
	}
	if c.Store.Path == "" {
		c.Store.Path = "recompile.db"
	}
	if c.Project.Name == "" {
		c.Project.Name = "project"
	}
}
