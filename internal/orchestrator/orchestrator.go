/*
Package orchestrator sequences startup: it parses server descriptors,
opens the metadata store, spawns every downstream subprocess, folds
their live tool lists into the registry, rebuilds the vector index,
materializes the sandbox stub tree, and finally binds the upstream
transport. Everything it does is a one-shot sequence run once at
process start; nothing here runs again until the next restart.
*/
package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lvmk/mcp-of-mcps/internal/config"
	"github.com/lvmk/mcp-of-mcps/internal/dispatcher"
	"github.com/lvmk/mcp-of-mcps/internal/embeddings"
	"github.com/lvmk/mcp-of-mcps/internal/mcpconn"
	"github.com/lvmk/mcp-of-mcps/internal/registry"
	"github.com/lvmk/mcp-of-mcps/internal/sandbox"
	"github.com/lvmk/mcp-of-mcps/internal/store"
	"github.com/lvmk/mcp-of-mcps/internal/vectorindex"
)

// ServerName and ServerVersion identify this process to the upstream
// MCP client during initialize.
const (
	ServerName    = "mcp-of-mcps"
	ServerVersion = "0.1.0"
)

// StartupError wraps a fatal failure: opening the metadata store,
// opening or rebuilding the vector index, materializing the sandbox
// stubs, or running the upstream transport. Per-server spawn and
// registration failures are logged and skipped instead.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string { return fmt.Sprintf("startup %s: %v", e.Stage, e.Err) }
func (e *StartupError) Unwrap() error { return e.Err }

// Orchestrator owns every component Run assembles and the order it
// assembles them in.
type Orchestrator struct {
	conns   *mcpconn.Manager
	store   *store.Store
	reg     *registry.Registry
	index   *vectorindex.Index
	model   *embeddings.Model
	sandbox *sandbox.Sandbox
}

// Run executes the full startup sequence against cfg and then blocks,
// serving the upstream stdio transport, until ctx is canceled or the
// transport closes. It returns a *StartupError for any fatal failure,
// including an error returned by the upstream transport.
func Run(ctx context.Context, cfg *config.Config) error {
	o := &Orchestrator{
		conns: mcpconn.NewManager(),
		store: store.New(store.DefaultPath),
		model: embeddings.New(embeddings.DefaultDimension),
	}

	if err := o.store.Open(); err != nil {
		return &StartupError{Stage: "open metadata store", Err: err}
	}
	defer func() {
		if err := o.store.Close(); err != nil {
			log.Printf("mcp-of-mcps: closing metadata store: %v", err)
		}
	}()

	o.reg = registry.New(o.conns, o.store)

	descs := make([]mcpconn.Descriptor, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		descs = append(descs, mcpconn.Descriptor{Name: s.Name, Command: s.Command, Argv: s.Argv})
	}

	spawnErrs := o.conns.SpawnAll(ctx, descs)
	for name, err := range spawnErrs {
		log.Printf("mcp-of-mcps: spawning %q: %v", name, err)
	}

	registerErrs := o.reg.RegisterAll(ctx)
	for name, err := range registerErrs {
		log.Printf("mcp-of-mcps: registering %q: %v", name, err)
	}

	o.reg.ReconcileOrphans()

	index, err := vectorindex.Open(vectorindex.DefaultPath, o.model.Dimension())
	if err != nil {
		return &StartupError{Stage: "open vector index", Err: err}
	}
	o.index = index

	if err := o.rebuildIndex(); err != nil {
		return &StartupError{Stage: "rebuild vector index", Err: err}
	}

	o.sandbox = sandbox.New(sandbox.DefaultRoot, o.reg, o.reg)
	if err := o.sandbox.Materialize(o.reg.AllServers()); err != nil {
		return &StartupError{Stage: "materialize sandbox stubs", Err: err}
	}

	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)
	d := dispatcher.New(o.reg, o.index, o.model, o.sandbox)
	d.Register(server)

	log.Printf("mcp-of-mcps: %d server(s), %d tool(s) registered", o.reg.ServerCount(), o.reg.TotalToolCount())

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return &StartupError{Stage: "bind upstream transport", Err: err}
	}
	return nil
}

// rebuildIndex re-embeds every currently registered tool's description
// and atomically swaps it into the live vector index.
func (o *Orchestrator) rebuildIndex() error {
	var docs []vectorindex.Document
	for _, s := range o.reg.AllServers() {
		for _, t := range s.Tools {
			docs = append(docs, vectorindex.Document{
				ServerName:  s.Name,
				ToolName:    t.Title,
				Description: t.Description,
				Vector:      o.model.Embed(t.Description),
			})
		}
	}
	return o.index.Rebuild(docs)
}
