package registry

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/lvmk/mcp-of-mcps/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "mcps.db"))
	if err := st.Open(); err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(nil, st), st
}

func TestRegisterServerRejectsDuplicate(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.servers["weather"] = &ServerInfo{Name: "weather"}

	err := r.RegisterServer(context.Background(), "weather")
	if err == nil {
		t.Fatal("expected an error registering an already-registered server")
	}
	if _, ok := err.(*RegistryError); !ok {
		t.Errorf("expected *RegistryError, got %T", err)
	}
}

func TestGetTool(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.servers["weather"] = &ServerInfo{
		Name: "weather",
		Tools: []*Tool{
			{Name: "get-forecast", Title: "get_forecast", Description: "forecast"},
		},
	}

	if tool := r.GetTool("weather", "get_forecast"); tool == nil {
		t.Fatal("expected to find the tool by title")
	}
	if tool := r.GetTool("weather", "nonexistent"); tool != nil {
		t.Error("expected nil for unknown tool title")
	}
	if tool := r.GetTool("nonexistent", "get_forecast"); tool != nil {
		t.Error("expected nil for unknown server")
	}
}

func TestAllServersSortedByName(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.servers["zeta"] = &ServerInfo{Name: "zeta"}
	r.servers["alpha"] = &ServerInfo{Name: "alpha"}

	all := r.AllServers()
	if len(all) != 2 || all[0].Name != "alpha" || all[1].Name != "zeta" {
		t.Errorf("expected sorted [alpha, zeta], got %v", all)
	}
}

func TestTotalToolCount(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.servers["weather"] = &ServerInfo{Name: "weather", Tools: []*Tool{{}, {}}}
	r.servers["time"] = &ServerInfo{Name: "time", Tools: []*Tool{{}}}

	if got := r.TotalToolCount(); got != 3 {
		t.Errorf("expected 3 total tools, got %d", got)
	}
}

func TestReconcileOrphansDeletesStaleServers(t *testing.T) {
	r, st := newTestRegistry(t)

	_ = st.SaveOrUpdate(store.Row{ServerName: "ghost", ToolName: "x", LastUpdated: 1})
	_ = st.SaveOrUpdate(store.Row{ServerName: "weather", ToolName: "get_forecast", LastUpdated: 1})

	r.servers["weather"] = &ServerInfo{Name: "weather"}

	r.ReconcileOrphans()

	servers := st.ListAllServers()
	if len(servers) != 1 || servers[0] != "weather" {
		t.Errorf("expected only 'weather' to remain, got %v", servers)
	}
}

func TestUpdateToolSchemaRespectsOriginal(t *testing.T) {
	r, st := newTestRegistry(t)

	r.servers["weather"] = &ServerInfo{
		Name: "weather",
		Tools: []*Tool{
			{Name: "get-forecast", Title: "get_forecast", OutputSchema: json.RawMessage(`{"type":"object"}`), OriginalOutputSchema: true},
		},
	}

	r.UpdateToolSchema("weather", "get_forecast", json.RawMessage(`{"type":"array"}`))

	tool := r.GetTool("weather", "get_forecast")
	if string(tool.OutputSchema) != `{"type":"object"}` {
		t.Errorf("original schema must not be overwritten, got %s", tool.OutputSchema)
	}
	if _, ok := st.GetTool("weather", "get_forecast"); ok {
		t.Error("an original-schema tool's UpdateToolSchema call should not touch the store")
	}
}

func TestUpdateToolSchemaAppliesInferred(t *testing.T) {
	r, st := newTestRegistry(t)

	r.servers["weather"] = &ServerInfo{
		Name:  "weather",
		Tools: []*Tool{{Name: "get-forecast", Title: "get_forecast"}},
	}

	r.UpdateToolSchema("weather", "get_forecast", json.RawMessage(`{"type":"array"}`))

	tool := r.GetTool("weather", "get_forecast")
	if string(tool.OutputSchema) != `{"type":"array"}` {
		t.Errorf("expected inferred schema to apply, got %s", tool.OutputSchema)
	}

	row, ok := st.GetTool("weather", "get_forecast")
	if !ok {
		t.Fatal("expected inferred schema to persist")
	}
	if row.OriginalOutputSchema {
		t.Error("inferred schema must be persisted with OriginalOutputSchema=false")
	}
}
