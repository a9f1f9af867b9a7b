package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lvmk/mcp-of-mcps/internal/registry"
)

func TestMaterializeWritesOneStubPerTool(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sandbox")
	sb := New(root, nil, nil)

	servers := []*registry.ServerInfo{
		{
			Name: "weather",
			Tools: []*registry.Tool{
				{Name: "get-forecast", Title: "get_forecast"},
			},
		},
	}

	if err := sb.Materialize(servers); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	path := filepath.Join(root, "weather", "get_forecast.cjs")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected stub file at %s: %v", path, err)
	}
}

func TestMaterializeWipesPreviousTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sandbox")
	sb := New(root, nil, nil)

	stale := filepath.Join(root, "ghost-server")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := sb.Materialize(nil); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected stale server directory to be removed")
	}
}

func TestStubSourceReferencesCorrectNames(t *testing.T) {
	body := stubSource("weather", "get-forecast", "get_forecast")
	if !strings.Contains(body, "weather") || !strings.Contains(body, "get-forecast") {
		t.Error("expected stub source to reference server and wire tool names")
	}
}
