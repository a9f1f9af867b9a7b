/*
Package mcpconn owns the subprocess lifecycle for every downstream MCP
server: spawning the child process, performing the MCP client handshake,
and handing back a live session other packages can call listTools and
callTool against.
*/
package mcpconn

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultHandshakeTimeout bounds how long a single downstream spawn+
// initialize sequence is allowed to take.
const DefaultHandshakeTimeout = 30 * time.Second

// SpawnError wraps a failure to launch or connect the child process.
type SpawnError struct {
	Server string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Server, e.Err)
}
func (e *SpawnError) Unwrap() error { return e.Err }

// HandshakeError wraps a failure during the MCP initialize exchange.
type HandshakeError struct {
	Server string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake %s: %v", e.Server, e.Err)
}
func (e *HandshakeError) Unwrap() error { return e.Err }

// Handle is the live connection to one downstream MCP server.
type Handle struct {
	Name    string
	client  *mcp.Client
	session *mcp.ClientSession
}

// ListTools returns every tool the downstream server advertises,
// following pagination cursors until exhausted.
func (h *Handle) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	var all []*mcp.Tool
	cursor := ""
	for {
		params := &mcp.ListToolsParams{}
		if cursor != "" {
			params.Cursor = cursor
		}
		res, err := h.session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("list tools on %s: %w", h.Name, err)
		}
		all = append(all, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return all, nil
}

// CallTool invokes a downstream tool by its wire name.
func (h *Handle) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := h.session.CallTool(ctx, &mcp.CallToolParams{Name: toolName, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", toolName, h.Name, err)
	}
	return res, nil
}

// Instructions returns the free-text instructions the downstream server
// advertised during its initialize handshake, if any.
func (h *Handle) Instructions() string {
	if h.session == nil {
		return ""
	}
	if res := h.session.InitializeResult(); res != nil {
		return res.Instructions
	}
	return ""
}

// Close terminates the downstream session and its subprocess.
func (h *Handle) Close() error {
	if h.session == nil {
		return nil
	}
	return h.session.Close()
}

// Descriptor is the minimal launch information a Manager needs per
// downstream server; it mirrors config.ServerDescriptor without this
// package depending on the config package.
type Descriptor struct {
	Name    string
	Command string
	Argv    []string
}

// Manager owns every live downstream connection, keyed by server name.
type Manager struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{handles: make(map[string]*Handle)}
}

// Spawn launches one downstream server and performs its handshake. On
// success the handle is registered under desc.Name.
func (m *Manager) Spawn(ctx context.Context, desc Descriptor) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultHandshakeTimeout)
	defer cancel()

	cmd := exec.Command(desc.Command, desc.Argv...)
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "mcp-of-mcps-client-" + desc.Name,
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, &SpawnError{Server: desc.Name, Err: err}
	}

	handle := &Handle{Name: desc.Name, client: client, session: session}

	m.mu.Lock()
	m.handles[desc.Name] = handle
	m.mu.Unlock()

	return handle, nil
}

// SpawnAll launches every descriptor concurrently. Per-server failures
// are returned in the map keyed by server name; a server present in
// errs has no handle registered.
func (m *Manager) SpawnAll(ctx context.Context, descs []Descriptor) map[string]error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	errs := make(map[string]error)

	for _, d := range descs {
		wg.Add(1)
		go func(d Descriptor) {
			defer wg.Done()
			if _, err := m.Spawn(ctx, d); err != nil {
				mu.Lock()
				errs[d.Name] = err
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()
	return errs
}

// Get returns the live handle for name, or nil if none is registered.
func (m *Manager) Get(name string) *Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handles[name]
}

// All returns a snapshot copy of every live handle keyed by server name.
func (m *Manager) All() map[string]*Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Handle, len(m.handles))
	for k, v := range m.handles {
		out[k] = v
	}
	return out
}

// Shutdown closes every live connection. An error does not stop the
// remaining closes from being attempted; only the first error is
// returned.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, h := range m.handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
	}
	m.handles = make(map[string]*Handle)
	return firstErr
}
