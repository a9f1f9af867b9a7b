/*
Package config resolves the launch-time descriptors for downstream MCP
servers.

The CLI accepts exactly one of two mutually exclusive flags: --config, a
JSON literal, or --config-file, a path to a JSON file. Both resolve to
the same shape:

	{
	  "servers": [
	    {"name": "weather", "command": "npx", "args": ["-y", "@acme/weather-mcp"]}
	  ]
	}
*/
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServerDescriptor is one downstream MCP server to spawn at startup.
type ServerDescriptor struct {
	// Name is the namespace key for this server. Must be unique across
	// the whole descriptor set.
	Name string `json:"name"`

	// Command is the executable to run.
	Command string `json:"command"`

	// Argv holds the command-line arguments passed to Command.
	Argv []string `json:"args,omitempty"`
}

// Config is the fully resolved launch configuration.
type Config struct {
	Servers []ServerDescriptor `json:"servers"`
}

// Validate checks descriptor shape and name uniqueness.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return &InvalidConfigError{Message: "no servers configured"}
	}

	seen := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		if s.Name == "" {
			return &InvalidConfigError{Message: fmt.Sprintf("servers[%d]: name is required", i)}
		}
		if s.Command == "" {
			return &InvalidConfigError{Message: fmt.Sprintf("servers[%d]: command is required", i)}
		}
		if seen[s.Name] {
			return &InvalidConfigError{Message: fmt.Sprintf("duplicate server name %q", s.Name)}
		}
		seen[s.Name] = true
	}
	return nil
}

// ParseLiteral parses a JSON config literal, as passed via --config.
func ParseLiteral(literal string) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(literal), &cfg); err != nil {
		return nil, &InvalidConfigError{Message: fmt.Sprintf("JSON parse error: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom reads and parses the config file passed via --config-file.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to access config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &PermissionError{Path: path, Op: "read"}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &InvalidConfigError{Path: path, Message: fmt.Sprintf("JSON parse error: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve picks exactly one of literal or filePath and parses it.
// Exactly one of the two must be non-empty.
func Resolve(literal, filePath string) (*Config, error) {
	switch {
	case literal != "" && filePath != "":
		return nil, &InvalidConfigError{Message: "--config and --config-file are mutually exclusive"}
	case literal != "":
		return ParseLiteral(literal)
	case filePath != "":
		return LoadFrom(filePath)
	default:
		return nil, &InvalidConfigError{Message: "one of --config or --config-file is required"}
	}
}
