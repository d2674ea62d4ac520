package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDirName is the directory name for project-level PrologNERD config.
	WorkspaceDirName = ".prolognerd"
	// WorkspaceConfigFile is the config file name inside the workspace directory.
	WorkspaceConfigFile = "config.yaml"
	// MaxSearchDepth limits how many parent directories to walk when discovering a workspace.
	MaxSearchDepth = 10
)

// WorkspaceOptions controls workspace discovery behavior.
type WorkspaceOptions struct {
	// Disable skips workspace discovery entirely (--no-workspace flag).
	Disable bool
	// ExplicitDir uses this directory as workspace root instead of walking up (--workspace-dir flag).
	ExplicitDir string
}

// Config captures all tunable settings for the PrologNERD MCP server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Prolog   PrologConfig   `yaml:"prolog"`
	Sessions SessionsConfig `yaml:"sessions"`
	MCP      MCPConfig      `yaml:"mcp"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Traces   TracesConfig   `yaml:"traces"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// PrologConfig controls the embedded Prolog interpreter.
type PrologConfig struct {
	// Programs consulted at startup, in order. They load through the same
	// merge-semantics path as the loadProgram tool, so their clauses are part
	// of the savable knowledge base.
	Autoload []string `yaml:"autoload"`
	// Upper bound on solutions aggregated per query. Zero means unlimited.
	// Hitting the limit adds a diagnostic note to the result, it is not an error.
	MaxSolutions int `yaml:"max_solutions"`
}

// SessionsConfig locates the directory of persisted knowledge-base snapshots.
type SessionsConfig struct {
	// Directory holding <name>.pl session files. Session names may never
	// resolve outside this directory.
	Dir string `yaml:"dir"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// MetricsConfig exposes Prometheus metrics on a dedicated port.
type MetricsConfig struct {
	// Port for the /metrics endpoint. Zero disables the metrics listener.
	Port int `yaml:"port"`
}

// TracesConfig controls the rotating JSONL invocation recorder.
type TracesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "prolognerd-mcp",
			Version: "0.1.0",
			LogFile: "prolognerd-mcp.log",
		},
		Prolog: PrologConfig{
			Autoload:     nil,
			MaxSolutions: 1024,
		},
		Sessions: SessionsConfig{
			Dir: "data/sessions",
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		Metrics: MetricsConfig{
			Port: 0,
		},
		Traces: TracesConfig{
			Enabled: false,
			Dir:     "data/traces",
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// DiscoverWorkspace walks up from startDir looking for a .prolognerd/config.yaml file.
// Returns the workspace root directory (parent of .prolognerd/) or empty string if not found.
func DiscoverWorkspace(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for i := 0; i < MaxSearchDepth; i++ {
		candidate := filepath.Join(dir, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", nil
}

// LoadWithWorkspace implements multi-layer config merge:
//
//	DefaultConfig() <- .prolognerd/config.yaml <- explicit --config <- CLI flags
//
// Returns the merged config and the workspace directory (empty if none found).
func LoadWithWorkspace(explicitConfig string, opts WorkspaceOptions) (Config, string, error) {
	cfg := DefaultConfig()
	wsDir := ""

	// Layer 1: Workspace config (if not disabled)
	if !opts.Disable {
		var err error
		if opts.ExplicitDir != "" {
			// Verify the explicit workspace dir has a config
			candidate := filepath.Join(opts.ExplicitDir, WorkspaceDirName, WorkspaceConfigFile)
			if _, statErr := os.Stat(candidate); statErr == nil {
				wsDir = opts.ExplicitDir
			}
		} else {
			cwd, cwdErr := os.Getwd()
			if cwdErr != nil {
				return cfg, "", fmt.Errorf("getting working directory: %w", cwdErr)
			}
			wsDir, err = DiscoverWorkspace(cwd)
			if err != nil {
				return cfg, "", fmt.Errorf("discovering workspace: %w", err)
			}
		}

		if wsDir != "" {
			wsConfigPath := filepath.Join(wsDir, WorkspaceDirName, WorkspaceConfigFile)
			raw, err := os.ReadFile(wsConfigPath)
			if err != nil {
				return cfg, "", fmt.Errorf("reading workspace config %s: %w", wsConfigPath, err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, "", fmt.Errorf("parsing workspace config %s: %w", wsConfigPath, err)
			}
			cfg = resolveWorkspacePaths(cfg, wsDir)
		}
	}

	// Layer 2: Explicit config file (--config flag)
	if explicitConfig != "" {
		raw, err := os.ReadFile(explicitConfig)
		if err != nil {
			return cfg, wsDir, fmt.Errorf("reading explicit config %s: %w", explicitConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, wsDir, fmt.Errorf("parsing explicit config %s: %w", explicitConfig, err)
		}
	}

	return cfg, wsDir, cfg.Validate()
}

// InitWorkspace creates a .prolognerd/ directory with template files at root.
func InitWorkspace(root string) error {
	wsDir := filepath.Join(root, WorkspaceDirName)

	// Check if already exists
	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("workspace directory already exists: %s", wsDir)
	}

	// Create directory structure
	dirs := []string{
		wsDir,
		filepath.Join(wsDir, "sessions"),
		filepath.Join(wsDir, "data"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write template config
	templateConfig := `# PrologNERD project-level configuration
# Values here override defaults but are overridden by --config and CLI flags.

sessions:
  dir: ".prolognerd/sessions"

# prolog:
#   autoload:
#     - ".prolognerd/library.pl"
#   max_solutions: 1024

# mcp:
#   sse_port: 8391

# metrics:
#   port: 2112

# traces:
#   enabled: true
#   dir: ".prolognerd/data/traces"
`
	configPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	// Write .gitignore for runtime data
	gitignoreContent := "# Runtime data (logs, sessions, traces) - do not version control\nsessions/\ndata/\n*.log\n"
	gitignorePath := filepath.Join(wsDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}

// resolveWorkspacePaths resolves relative paths in the config against the workspace directory.
func resolveWorkspacePaths(cfg Config, wsDir string) Config {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wsDir, p)
	}

	cfg.Server.LogFile = resolve(cfg.Server.LogFile)
	cfg.Sessions.Dir = resolve(cfg.Sessions.Dir)
	cfg.Traces.Dir = resolve(cfg.Traces.Dir)
	for i, p := range cfg.Prolog.Autoload {
		cfg.Prolog.Autoload[i] = resolve(p)
	}
	return cfg
}

// Validate ensures required fields exist so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.Sessions.Dir == "" {
		return errors.New("sessions.dir is required")
	}
	if c.Prolog.MaxSolutions < 0 {
		return errors.New("prolog.max_solutions must not be negative")
	}
	if c.MCP.SSEPort < 0 || c.MCP.SSEPort > 65535 {
		return fmt.Errorf("mcp.sse_port out of range: %d", c.MCP.SSEPort)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port)
	}
	return nil
}

// SolutionLimit returns the per-query solution cap, clamping negative values
// back to the default so a hand-edited config cannot disable the guard by accident.
func (p PrologConfig) SolutionLimit() int {
	if p.MaxSolutions < 0 {
		return DefaultConfig().Prolog.MaxSolutions
	}
	return p.MaxSolutions
}
