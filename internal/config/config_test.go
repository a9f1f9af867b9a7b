package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLiteralValid(t *testing.T) {
	cfg, err := ParseLiteral(`{"servers":[{"name":"weather","command":"weather-mcp","args":["--fixture"]}]}`)
	if err != nil {
		t.Fatalf("ParseLiteral failed: %v", err)
	}
	if len(cfg.Servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(cfg.Servers))
	}
	if cfg.Servers[0].Name != "weather" || cfg.Servers[0].Command != "weather-mcp" {
		t.Errorf("unexpected descriptor: %+v", cfg.Servers[0])
	}
}

func TestParseLiteralRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseLiteral("{not json"); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestValidateRejectsEmptyServers(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an empty server list")
	}
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	cfg := &Config{Servers: []ServerDescriptor{
		{Name: "weather", Command: "a"},
		{Name: "weather", Command: "b"},
	}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for duplicate server names")
	}
}

func TestValidateRejectsMissingCommand(t *testing.T) {
	cfg := &Config{Servers: []ServerDescriptor{{Name: "weather"}}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a missing command")
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	if _, ok := err.(*ConfigNotFoundError); !ok {
		t.Errorf("expected *ConfigNotFoundError, got %T", err)
	}
}

func TestLoadFromValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	content := `{"servers":[{"name":"weather","command":"weather-mcp"}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if len(cfg.Servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(cfg.Servers))
	}
}

func TestResolveRejectsBothFlags(t *testing.T) {
	if _, err := Resolve("{}", "file.json"); err == nil {
		t.Error("expected an error when both --config and --config-file are set")
	}
}

func TestResolveRejectsNeitherFlag(t *testing.T) {
	if _, err := Resolve("", ""); err == nil {
		t.Error("expected an error when neither --config nor --config-file is set")
	}
}
