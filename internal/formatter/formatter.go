/*
Package formatter produces the two discovery artifacts meta-tools hand
back to the client: the plain-text servers overview and the per-tool
JSON descriptions with example usage.
*/
package formatter

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/lvmk/mcp-of-mcps/internal/registry"
)

// NotFoundError reports an unknown server or tool path.
type NotFoundError struct {
	What string // "server" or "tool path"
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.What, e.Name) }

// ArgumentError reports a malformed tool path.
type ArgumentError struct {
	Path string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("malformed tool path %q, expected \"server/title\"", e.Path)
}

// GetServersOverview renders the standing catalog: one header line per
// server (sorted by name) carrying its instructions if any, followed
// by one "server/title" line per tool (sorted by title), and a
// closing hint pointing the reader at GetToolsOverview.
func GetServersOverview(servers []*registry.ServerInfo) string {
	var b strings.Builder

	sorted := make([]*registry.ServerInfo, len(servers))
	copy(sorted, servers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, s := range sorted {
		header := fmt.Sprintf("# %s mcp server instructions: %s", s.Name, s.Instructions)
		b.WriteString(header)
		b.WriteString("\n")

		titles := make([]string, 0, len(s.Tools))
		for _, t := range s.Tools {
			titles = append(titles, t.Title)
		}
		sort.Strings(titles)

		for _, title := range titles {
			b.WriteString(s.Name)
			b.WriteString("/")
			b.WriteString(title)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nCall get_tools_overview with one or more of the paths above to see full input/output schemas and example usage.\n")
	return b.String()
}

// toolOverview is the per-tool artifact returned by GetToolsOverview.
type toolOverview struct {
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	InputSchema  json.RawMessage `json:"inputSchema,omitempty"`
	OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
	ExampleUsage string          `json:"exampleUsage"`
}

// GetToolsOverview resolves each "server/title" path against servers
// and returns the JSON array of resolved tool descriptions. A
// malformed path or unknown server fails the whole call; an unknown
// tool within a known server is skipped with a logged warning.
func GetToolsOverview(servers []*registry.ServerInfo, paths []string) ([]byte, error) {
	byName := make(map[string]*registry.ServerInfo, len(servers))
	for _, s := range servers {
		byName[s.Name] = s
	}

	out := make([]toolOverview, 0, len(paths))

	for _, p := range paths {
		parts := strings.SplitN(p, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, &ArgumentError{Path: p}
		}
		serverName, title := parts[0], parts[1]

		server, ok := byName[serverName]
		if !ok {
			return nil, &NotFoundError{What: "server", Name: serverName}
		}

		var tool *registry.Tool
		for _, t := range server.Tools {
			if t.Title == title {
				tool = t
				break
			}
		}
		if tool == nil {
			log.Printf("formatter: skipping unknown tool %q on server %q", title, serverName)
			continue
		}

		out = append(out, toolOverview{
			Name:         tool.Name,
			Title:        tool.Title,
			Description:  tool.Description,
			InputSchema:  tool.InputSchema,
			OutputSchema: tool.OutputSchema,
			ExampleUsage: exampleUsage(serverName, title),
		})
	}

	return json.Marshal(out)
}

func exampleUsage(server, title string) string {
	return fmt.Sprintf(
		"const %s = require('./%s/%s.cjs');\nmodule.exports = %s({ /* your parameters here */ });",
		title, server, title, title,
	)
}
