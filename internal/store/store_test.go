package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcps.db")
	s := New(path)
	if err := s.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDatabase(t *testing.T) {
	s := newTestStore(t)
	if !s.Enabled() {
		t.Fatal("expected store to be enabled after Open")
	}
	if s.Stats() != 0 {
		t.Errorf("expected empty store, got %d rows", s.Stats())
	}
}

func TestSaveAndGetTool(t *testing.T) {
	s := newTestStore(t)

	row := Row{
		ServerName:           "weather",
		ToolName:             "get_forecast",
		OutputSchema:         `{"type":"object"}`,
		OriginalOutputSchema: true,
		LastUpdated:          1000,
	}
	if err := s.SaveOrUpdate(row); err != nil {
		t.Fatalf("SaveOrUpdate failed: %v", err)
	}

	got, ok := s.GetTool("weather", "get_forecast")
	if !ok {
		t.Fatal("expected to find the saved row")
	}
	if got.OutputSchema != row.OutputSchema || !got.OriginalOutputSchema {
		t.Errorf("got %+v, want %+v", got, row)
	}
}

func TestOriginalSchemaWinsOverInferred(t *testing.T) {
	s := newTestStore(t)

	original := Row{
		ServerName:           "weather",
		ToolName:             "get_forecast",
		OutputSchema:         `{"type":"object","properties":{"tempF":{}}}`,
		OriginalOutputSchema: true,
		LastUpdated:          1000,
	}
	if err := s.SaveOrUpdate(original); err != nil {
		t.Fatalf("save original failed: %v", err)
	}

	inferred := Row{
		ServerName:           "weather",
		ToolName:             "get_forecast",
		OutputSchema:         `{"type":"array"}`,
		OriginalOutputSchema: false,
		LastUpdated:          2000,
	}
	if err := s.SaveOrUpdate(inferred); err != nil {
		t.Fatalf("save inferred failed: %v", err)
	}

	got, ok := s.GetTool("weather", "get_forecast")
	if !ok {
		t.Fatal("expected row to still exist")
	}
	if got.OutputSchema != original.OutputSchema {
		t.Errorf("inferred schema must not overwrite an original one; got %q", got.OutputSchema)
	}
	if !got.OriginalOutputSchema {
		t.Error("OriginalOutputSchema flag must remain true")
	}
}

func TestDeleteServerTools(t *testing.T) {
	s := newTestStore(t)

	for _, tool := range []string{"get_forecast", "get_alerts"} {
		row := Row{ServerName: "weather", ToolName: tool, LastUpdated: 1}
		if err := s.SaveOrUpdate(row); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	if err := s.DeleteServerTools("weather"); err != nil {
		t.Fatalf("DeleteServerTools failed: %v", err)
	}

	if tools := s.GetServerTools("weather"); len(tools) != 0 {
		t.Errorf("expected no remaining tools, got %d", len(tools))
	}
}

func TestListAllServers(t *testing.T) {
	s := newTestStore(t)

	_ = s.SaveOrUpdate(Row{ServerName: "weather", ToolName: "get_forecast", LastUpdated: 1})
	_ = s.SaveOrUpdate(Row{ServerName: "time", ToolName: "now", LastUpdated: 1})

	servers := s.ListAllServers()
	if len(servers) != 2 {
		t.Errorf("expected 2 servers, got %d: %v", len(servers), servers)
	}
}

func TestDisabledStoreIsNoOp(t *testing.T) {
	s := &Store{} // never Open()'d, enabled defaults false

	if err := s.SaveOrUpdate(Row{ServerName: "a", ToolName: "b"}); err != nil {
		t.Errorf("SaveOrUpdate on disabled store should be a no-op, got %v", err)
	}
	if _, ok := s.GetTool("a", "b"); ok {
		t.Error("GetTool on disabled store should report not found")
	}
	if got := s.ListAllServers(); got != nil {
		t.Errorf("ListAllServers on disabled store should be nil, got %v", got)
	}
}
