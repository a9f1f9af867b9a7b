package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lvmk/mcp-of-mcps/internal/registry"
)

// Materialize wipes the sandbox root and regenerates one stub file per
// tool, at <root>/<server>/<title>.cjs (invariant I1). The
// orchestrator calls it once, at startup.
func (sb *Sandbox) Materialize(servers []*registry.ServerInfo) error {
	if err := os.RemoveAll(sb.root); err != nil {
		return &SandboxError{Op: "materialize", Err: err}
	}
	if err := os.MkdirAll(sb.root, 0o755); err != nil {
		return &SandboxError{Op: "materialize", Err: err}
	}

	for _, server := range servers {
		dir := filepath.Join(sb.root, server.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &SandboxError{Op: "materialize", Err: err}
		}
		for _, tool := range server.Tools {
			path := filepath.Join(dir, tool.Title+".cjs")
			body := stubSource(server.Name, tool.Name, tool.Title)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				return &SandboxError{Op: "materialize", Err: err}
			}
		}
	}
	return nil
}

// stubSource is the generated CommonJS body for one tool: an async
// function that reads the server's connection state from the injected
// serversInfo mock, dispatches the call through the host-bound
// __invokeTool, records the raw response into toolOutputCache, and
// resolves to the standardized envelope.
func stubSource(serverName, toolName, title string) string {
	return fmt.Sprintf(`module.exports = async function(args) {
  var info = require('serversInfo')['%[1]s'];
  if (!info || !info.connected) {
    throw new Error("server '%[1]s' is not connected");
  }
  var rawResponse = __invokeTool('%[1]s', '%[2]s', args || {});
  var cache = require('toolOutputCache');
  if (!cache['%[1]s']) {
    cache['%[1]s'] = [];
  }
  cache['%[1]s'].push({ toolName: '%[2]s', rawResponse: rawResponse });
  return {
    content: (rawResponse && rawResponse.content) || [],
    isError: (rawResponse && rawResponse.isError) || false,
    _meta: { serverName: '%[1]s', toolName: '%[2]s' }
  };
};
`, serverName, toolName, title)
}
