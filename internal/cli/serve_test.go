package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewServeCmd(t *testing.T) {
	cmd := NewServeCmd()

	if cmd == nil {
		t.Fatal("NewServeCmd() returned nil")
	}
	if cmd.Use != "serve" {
		t.Errorf("Expected Use='serve', got %q", cmd.Use)
	}
}

func TestServeCommandHelp(t *testing.T) {
	cmd := NewServeCmd()
	cmd.SetArgs([]string{"--help"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() with --help failed: %v", err)
	}

	output := buf.String()
	for _, expected := range []string{"serve", "aggregator", "stdio", "--config"} {
		if !strings.Contains(output, expected) {
			t.Errorf("help output missing %q:\n%s", expected, output)
		}
	}
}

func TestServeCommandRejectsBothConfigFlags(t *testing.T) {
	cmd := NewServeCmd()
	cmd.SetArgs([]string{"--config", "{}", "--config-file", "x.json"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	if err := cmd.Execute(); err == nil {
		t.Error("expected an error when both --config and --config-file are set")
	}
}

func TestServeCommandProperties(t *testing.T) {
	cmd := NewServeCmd()

	if cmd.Short == "" {
		t.Error("command missing short description")
	}
	if cmd.Long == "" {
		t.Error("command missing long description")
	}
	if cmd.RunE == nil {
		t.Error("command RunE function not set")
	}
	if cmd.Flags().Lookup("config") == nil {
		t.Error("expected a --config flag")
	}
	if cmd.Flags().Lookup("config-file") == nil {
		t.Error("expected a --config-file flag")
	}
}
