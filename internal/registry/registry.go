/*
Package registry is the authoritative in-memory projection of every
downstream server's live tool list, merged with persisted output
schemas. It is the one place that reconciles what the connection
manager reports right now against what the metadata store remembers
from previous runs.
*/
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lvmk/mcp-of-mcps/internal/mcpconn"
	"github.com/lvmk/mcp-of-mcps/internal/store"
)

// RegistryError wraps a server-registration failure: duplicate name,
// missing connection handle, or a downstream listTools error.
type RegistryError struct {
	Server string
	Err    error
}

func (e *RegistryError) Error() string { return fmt.Sprintf("registry %s: %v", e.Server, e.Err) }
func (e *RegistryError) Unwrap() error { return e.Err }

// Tool is the in-memory, registry-owned view of one downstream tool.
type Tool struct {
	Name                 string // wire name, as advertised by the downstream server
	Title                string // sanitized, identifier- and path-safe alias
	Description          string
	InputSchema          json.RawMessage
	OutputSchema         json.RawMessage
	OriginalOutputSchema bool
}

// ServerInfo is the runtime-only view of one registered downstream
// server: its live connection handle plus its resolved tool list.
type ServerInfo struct {
	Name         string
	Handle       *mcpconn.Handle
	Instructions string
	Tools        []*Tool
}

// Registry owns the live server/tool projection. All mutation happens
// through its methods; callers never write to ServerInfo/Tool fields
// directly except where explicitly read-only views are documented.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*ServerInfo

	store *store.Store
	conns *mcpconn.Manager
}

// New creates a Registry backed by the given connection manager and
// metadata store.
func New(conns *mcpconn.Manager, st *store.Store) *Registry {
	return &Registry{
		servers: make(map[string]*ServerInfo),
		store:   st,
		conns:   conns,
	}
}

// RegisterServer fetches name's live tool list from the connection
// manager, computes sanitized titles, and merges in any persisted
// output schema. A tool whose live response carries no output schema
// but whose persisted row has one with OriginalOutputSchema=true has
// that schema injected (invariant I4). A tool with no live schema and
// no persisted row is persisted with an empty schema.
func (r *Registry) RegisterServer(ctx context.Context, name string) error {
	r.mu.Lock()
	if _, exists := r.servers[name]; exists {
		r.mu.Unlock()
		return &RegistryError{Server: name, Err: fmt.Errorf("already registered")}
	}
	r.mu.Unlock()

	handle := r.conns.Get(name)
	if handle == nil {
		return &RegistryError{Server: name, Err: fmt.Errorf("no live connection")}
	}

	liveTools, err := handle.ListTools(ctx)
	if err != nil {
		return &RegistryError{Server: name, Err: err}
	}

	titles := make(map[string]bool, len(liveTools))
	tools := make([]*Tool, 0, len(liveTools))

	for _, lt := range liveTools {
		if lt == nil || lt.Name == "" {
			continue
		}
		title := Disambiguate(Sanitize(lt.Name), titles)

		tool := &Tool{
			Name:        lt.Name,
			Title:       title,
			Description: lt.Description,
			InputSchema: schemaToRaw(lt.InputSchema),
		}

		if raw := schemaToRaw(lt.OutputSchema); len(raw) > 0 {
			tool.OutputSchema = raw
			tool.OriginalOutputSchema = true
			if r.store != nil {
				_ = r.store.SaveOrUpdate(store.Row{
					ServerName:           name,
					ToolName:             lt.Name,
					OutputSchema:         string(raw),
					OriginalOutputSchema: true,
					LastUpdated:          time.Now().Unix(),
				})
			}
		} else if r.store != nil {
			persisted, ok := r.store.GetTool(name, lt.Name)
			switch {
			case ok && persisted.OutputSchema != "":
				tool.OutputSchema = json.RawMessage(persisted.OutputSchema)
				tool.OriginalOutputSchema = persisted.OriginalOutputSchema
			case !ok:
				_ = r.store.SaveOrUpdate(store.Row{
					ServerName:  name,
					ToolName:    lt.Name,
					LastUpdated: time.Now().Unix(),
				})
			}
		}

		tools = append(tools, tool)
	}

	info := &ServerInfo{
		Name:         name,
		Handle:       handle,
		Instructions: handle.Instructions(),
		Tools:        tools,
	}

	r.mu.Lock()
	r.servers[name] = info
	r.mu.Unlock()
	return nil
}

// RegisterAll registers every server with a live connection,
// concurrently. Per-server failures are returned in the map, keyed by
// server name, and do not prevent the remaining servers from
// registering.
func (r *Registry) RegisterAll(ctx context.Context) map[string]error {
	handles := r.conns.All()
	var wg sync.WaitGroup
	var mu sync.Mutex
	errs := make(map[string]error)
	for name := range handles {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := r.RegisterServer(ctx, name); err != nil {
				mu.Lock()
				errs[name] = err
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()
	return errs
}

// ReconcileOrphans deletes every persisted server from the metadata
// store that is not currently registered in memory (invariant I3).
func (r *Registry) ReconcileOrphans() {
	if r.store == nil {
		return
	}
	r.mu.RLock()
	live := make(map[string]bool, len(r.servers))
	for name := range r.servers {
		live[name] = true
	}
	r.mu.RUnlock()

	for _, persisted := range r.store.ListAllServers() {
		if !live[persisted] {
			_ = r.store.DeleteServerTools(persisted)
		}
	}
}

// GetServer returns the registered server info, or nil if unknown.
func (r *Registry) GetServer(name string) *ServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.servers[name]
}

// GetTool returns the tool for (server, title), or nil if either is
// unknown. Lookup is by title (the sanitized, user-facing alias), not
// by wire name.
func (r *Registry) GetTool(server, title string) *Tool {
	info := r.GetServer(server)
	if info == nil {
		return nil
	}
	for _, t := range info.Tools {
		if t.Title == title {
			return t
		}
	}
	return nil
}

// AllServers returns every registered server, sorted by name.
func (r *Registry) AllServers() []*ServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ServerInfo, 0, len(r.servers))
	for _, info := range r.servers {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ServerCount reports how many servers are currently registered.
func (r *Registry) ServerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}

// TotalToolCount reports the sum of tool counts across every
// registered server.
func (r *Registry) TotalToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, info := range r.servers {
		total += len(info.Tools)
	}
	return total
}

// HasServer reports whether name is currently registered.
func (r *Registry) HasServer(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.servers[name]
	return ok
}

// UpdateToolSchema records an inferred output schema for (server,
// title) in both the in-memory tool and, subject to invariant I4, the
// metadata store. No-op if the tool is unknown.
func (r *Registry) UpdateToolSchema(server, title string, schema json.RawMessage) {
	r.mu.Lock()
	info, ok := r.servers[server]
	if !ok {
		r.mu.Unlock()
		return
	}
	var tool *Tool
	for _, t := range info.Tools {
		if t.Title == title {
			tool = t
			break
		}
	}
	if tool == nil {
		r.mu.Unlock()
		return
	}
	alreadyOriginal := tool.OriginalOutputSchema
	if !alreadyOriginal {
		tool.OutputSchema = schema
	}
	name := tool.Name
	r.mu.Unlock()

	if alreadyOriginal || r.store == nil {
		return
	}
	_ = r.store.SaveOrUpdate(store.Row{
		ServerName:           server,
		ToolName:             name,
		OutputSchema:         string(schema),
		OriginalOutputSchema: false,
		LastUpdated:          time.Now().Unix(),
	})
}

// CallTool dispatches to server's live connection by the tool's wire
// name and returns the result as a generic JSON-decoded value, the
// shape the sandbox needs to cache and later infer a schema from.
func (r *Registry) CallTool(ctx context.Context, server, toolName string, args map[string]any) (map[string]any, error) {
	info := r.GetServer(server)
	if info == nil || info.Handle == nil {
		return nil, &RegistryError{Server: server, Err: fmt.Errorf("not connected")}
	}

	res, err := info.Handle.CallTool(ctx, toolName, args)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal call result: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode call result: %w", err)
	}
	return generic, nil
}

// Clear removes every registered server from memory. It does not touch
// the store.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = make(map[string]*ServerInfo)
}

// schemaToRaw marshals whatever schema representation the SDK's Tool
// struct carries (a *jsonschema.Schema at the time of writing) into a
// JSON document. A nil interface value yields a nil result.
func schemaToRaw(s any) json.RawMessage {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil || string(raw) == "null" {
		return nil
	}
	return raw
}
