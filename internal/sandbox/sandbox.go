/*
Package sandbox generates per-tool JavaScript call stubs and runs
caller-supplied scripts against them in an isolated goja interpreter:
no ambient filesystem, network, process, or environment access, a
require() resolver constrained to the sandbox's own stub tree plus two
injected mock modules, and a single well-known export channel.
*/
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lvmk/mcp-of-mcps/internal/registry"
)

// DefaultRoot is the default on-disk location, relative to the
// working directory, for the generated stub tree.
const DefaultRoot = ".sandbox"

// SandboxError wraps a materialize or script-execution failure.
type SandboxError struct {
	Op  string
	Err error
}

func (e *SandboxError) Error() string { return fmt.Sprintf("sandbox %s: %v", e.Op, e.Err) }
func (e *SandboxError) Unwrap() error { return e.Err }

// Caller dispatches a downstream tool call and reports the result as
// a generic JSON-decoded value. *registry.Registry implements this.
type Caller interface {
	CallTool(ctx context.Context, server, toolName string, args map[string]any) (map[string]any, error)
}

// SchemaRecorder is notified of output schemas inferred from observed
// responses, so they can be merged back into the live tool list and,
// subject to invariant I4, persisted. *registry.Registry implements
// this.
type SchemaRecorder interface {
	UpdateToolSchema(server, title string, schema json.RawMessage)
}

// Sandbox is the C7 component: stub materialization plus isolated
// script execution.
type Sandbox struct {
	root   string
	caller Caller
	rec    SchemaRecorder
}

// New creates a Sandbox rooted at root (DefaultRoot if empty),
// dispatching tool calls through caller and recording inferred
// schemas through rec.
func New(root string, caller Caller, rec SchemaRecorder) *Sandbox {
	if root == "" {
		root = DefaultRoot
	}
	return &Sandbox{root: root, caller: caller, rec: rec}
}

// Run executes code in a fresh interpreter against the current
// servers snapshot, returning the JSON-encoded exported value. Output
// observed from any tool call made during execution is drained into
// the schema recorder before Run returns, regardless of whether the
// script itself succeeded.
func (sb *Sandbox) Run(ctx context.Context, servers []*registry.ServerInfo, code string) (json.RawMessage, error) {
	exec := newExecution(sb, ctx, servers)

	result, runErr := exec.run(code)

	for server, calls := range exec.cache {
		for _, call := range calls {
			schema := inferSchemaJSON(call.RawResponse)
			if sb.rec != nil {
				sb.rec.UpdateToolSchema(server, titleFor(servers, server, call.ToolName), schema)
			}
		}
	}

	if runErr != nil {
		return nil, &SandboxError{Op: "run", Err: runErr}
	}
	return result, nil
}

// titleFor maps a tool's wire name back to its sanitized title within
// server, so schema updates can be recorded by the same key the
// registry indexes tools under.
func titleFor(servers []*registry.ServerInfo, server, toolName string) string {
	for _, s := range servers {
		if s.Name != server {
			continue
		}
		for _, t := range s.Tools {
			if t.Name == toolName {
				return t.Title
			}
		}
	}
	return toolName
}
