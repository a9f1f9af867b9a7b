/*
Package dispatcher registers the four upstream meta-tools on an
*mcp.Server and routes each call into the registry, formatter, vector
index, and sandbox. It owns the one rule the rest of the system never
has to think about: a handler never returns a Go error to the SDK,
because that would surface as a transport-level JSON-RPC error instead
of the tool-result error envelope the upstream contract requires.
*/
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lvmk/mcp-of-mcps/internal/formatter"
	"github.com/lvmk/mcp-of-mcps/internal/registry"
	"github.com/lvmk/mcp-of-mcps/internal/vectorindex"
)

// Servers is the read-only registry view the dispatcher renders
// overviews and resolves tool paths against.
type Servers interface {
	AllServers() []*registry.ServerInfo
}

// Searcher performs nearest-neighbor lookup over the tool index.
type Searcher interface {
	Search(queryVector []float32, k int) ([]vectorindex.Result, error)
}

// Embedder turns free text into the vector space Searcher indexes.
type Embedder interface {
	Embed(text string) []float32
}

// Runner executes a user script in the sandbox and returns its
// JSON-encoded exported value.
type Runner interface {
	Run(ctx context.Context, servers []*registry.ServerInfo, code string) (json.RawMessage, error)
}

// Dispatcher holds the collaborators every meta-tool handler needs.
type Dispatcher struct {
	servers Servers
	search  Searcher
	embed   Embedder
	run     Runner
}

// New creates a Dispatcher wired to the given collaborators.
func New(servers Servers, search Searcher, embed Embedder, run Runner) *Dispatcher {
	return &Dispatcher{servers: servers, search: search, embed: embed, run: run}
}

// Register adds the four meta-tools to server.
func (d *Dispatcher) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "semantic_search_tools",
		Description: "Search every downstream tool by natural-language description and return the closest matches.",
	}, d.semanticSearchTools)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_mcps_servers_overview",
		Description: "List every connected downstream server and the tools it exposes.",
	}, d.getMcpsServersOverview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_tools_overview",
		Description: "Fetch full input/output schemas and example usage for one or more tool paths.",
	}, d.getToolsOverview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_functions_code",
		Description: "Run a short script that composes one or more downstream tool calls and returns its exported result.",
	}, d.runFunctionsCode)
}

// searchHit mirrors the JSON shape the upstream client expects back
// from semantic_search_tools.
type searchHit struct {
	ServerName      string `json:"serverName"`
	ToolName        string `json:"toolName"`
	Description     string `json:"description"`
	SimilarityScore string `json:"similarityScore"`
	FullPath        string `json:"fullPath"`
}

type semanticSearchArgs struct {
	Query string `json:"query" jsonschema:"the natural-language query to match tool descriptions against"`
	Limit *int   `json:"limit,omitempty" jsonschema:"maximum number of results to return,default=5"`
}

// resolveLimit distinguishes an omitted limit (default 5) from an
// explicit limit of 0 (spec boundary: yields an empty result set),
// which a plain int field can't tell apart from its zero value.
func resolveLimit(limit *int) (int, error) {
	if limit == nil {
		return 5, nil
	}
	if *limit < 0 {
		return 0, fmt.Errorf("limit must not be negative")
	}
	return *limit, nil
}

func (d *Dispatcher) semanticSearchTools(_ context.Context, _ *mcp.CallToolRequest, args semanticSearchArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult(fmt.Errorf("query must not be empty")), nil, nil
	}
	limit, err := resolveLimit(args.Limit)
	if err != nil {
		return errorResult(err), nil, nil
	}

	hits := make([]searchHit, 0, limit)
	if limit > 0 {
		vector := d.embed.Embed(args.Query)
		results, err := d.search.Search(vector, limit)
		if err != nil {
			return errorResult(err), nil, nil
		}
		for _, r := range results {
			hits = append(hits, searchHit{
				ServerName:      r.ServerName,
				ToolName:        r.ToolName,
				Description:     r.Description,
				SimilarityScore: fmt.Sprintf("%.3f", r.Score),
				FullPath:        r.ServerName + "/" + r.ToolName,
			})
		}
	}

	encoded, err := json.Marshal(hits)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(string(encoded)), nil, nil
}

type emptyArgs struct{}

func (d *Dispatcher) getMcpsServersOverview(_ context.Context, _ *mcp.CallToolRequest, _ emptyArgs) (*mcp.CallToolResult, any, error) {
	return textResult(formatter.GetServersOverview(d.servers.AllServers())), nil, nil
}

type getToolsOverviewArgs struct {
	ToolPaths []string `json:"toolPaths" jsonschema:"the server/title paths to fetch full details for"`
}

func (d *Dispatcher) getToolsOverview(_ context.Context, _ *mcp.CallToolRequest, args getToolsOverviewArgs) (*mcp.CallToolResult, any, error) {
	encoded, err := formatter.GetToolsOverview(d.servers.AllServers(), args.ToolPaths)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(string(encoded)), nil, nil
}

type runFunctionsCodeArgs struct {
	Code string `json:"code" jsonschema:"the script to run; its module.exports value is returned"`
}

func (d *Dispatcher) runFunctionsCode(ctx context.Context, _ *mcp.CallToolRequest, args runFunctionsCodeArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Code) == "" {
		return errorResult(fmt.Errorf("code must not be empty")), nil, nil
	}
	result, err := d.run.Run(ctx, d.servers.AllServers(), args.Code)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(string(result)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}
