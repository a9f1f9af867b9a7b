/*
Package vectorindex is the restart-stable nearest-neighbor index over
tool descriptions. It wraps bleve's scorch backend, using its
vector-field and KNN search support rather than bleve's BM25 keyword
search path.
*/
package vectorindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// DefaultPath is the default on-disk location, relative to the
// working directory, for the persisted vector index.
const DefaultPath = ".vector-index"

// IndexError wraps a rebuild or search failure.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string { return fmt.Sprintf("vector index %s: %v", e.Op, e.Err) }
func (e *IndexError) Unwrap() error { return e.Err }

// Document is one tool description to embed and index.
type Document struct {
	ServerName  string
	ToolName    string
	Description string
	Vector      []float32
}

// Result is one nearest-neighbor hit.
type Result struct {
	ServerName  string
	ToolName    string
	Description string
	Score       float64 // cosine similarity in [0,1] after bleve's KNN scoring
}

// Index is the disk-backed vector index. It holds no lock of its own:
// Rebuild closes and replaces the live index handle, so Search and
// Close must not run concurrently with Rebuild.
type Index struct {
	root string
	dim  int

	live bleve.Index
}

// Open creates or opens the index directory at root. A missing
// directory is treated as "no index yet"; the first Rebuild call
// populates it.
func Open(root string, dim int) (*Index, error) {
	if root == "" {
		root = DefaultPath
	}
	idx := &Index{root: root, dim: dim}

	live, err := openLive(filepath.Join(root, "current"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, &IndexError{Op: "open", Err: err}
		}
		live = nil
	}
	idx.live = live
	return idx, nil
}

func openLive(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return bleve.Open(path)
}

func buildMapping(dim int) mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	desc := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt("description", desc)

	server := bleve.NewTextFieldMapping()
	server.Index = true
	doc.AddFieldMappingsAt("serverName", server)

	tool := bleve.NewTextFieldMapping()
	tool.Index = true
	doc.AddFieldMappingsAt("toolName", tool)

	vec := mapping.NewVectorFieldMapping()
	vec.Dims = dim
	vec.Similarity = "cosine"
	doc.AddFieldMappingsAt("vector", vec)

	im := bleve.NewIndexMapping()
	im.AddDocumentMapping("_default", doc)
	return im
}

// Rebuild replaces the index's contents atomically: a fresh index is
// built at a staging path and only swapped in on success, so a crash
// mid-rebuild leaves the previous (possibly stale, but internally
// consistent) index in place at <root>/current.
func (idx *Index) Rebuild(docs []Document) error {
	stagingName := "staging-" + uuid.NewString()
	stagingPath := filepath.Join(idx.root, stagingName)

	if err := os.MkdirAll(idx.root, 0o755); err != nil {
		return &IndexError{Op: "rebuild", Err: err}
	}

	built, err := bleve.NewUsing(stagingPath, buildMapping(idx.dim), scorch.Name, scorch.Name, nil)
	if err != nil {
		return &IndexError{Op: "rebuild", Err: err}
	}

	batch := built.NewBatch()
	for _, d := range docs {
		doc := map[string]any{
			"serverName":  d.ServerName,
			"toolName":    d.ToolName,
			"description": d.Description,
			"vector":      d.Vector,
		}
		id := d.ServerName + "/" + d.ToolName
		if err := batch.Index(id, doc); err != nil {
			built.Close()
			os.RemoveAll(stagingPath)
			return &IndexError{Op: "rebuild", Err: err}
		}
	}
	if err := built.Batch(batch); err != nil {
		built.Close()
		os.RemoveAll(stagingPath)
		return &IndexError{Op: "rebuild", Err: err}
	}
	if err := built.Close(); err != nil {
		os.RemoveAll(stagingPath)
		return &IndexError{Op: "rebuild", Err: err}
	}

	currentPath := filepath.Join(idx.root, "current")
	if idx.live != nil {
		idx.live.Close()
		idx.live = nil
	}
	os.RemoveAll(currentPath)
	if err := os.Rename(stagingPath, currentPath); err != nil {
		return &IndexError{Op: "rebuild", Err: err}
	}

	reopened, err := bleve.Open(currentPath)
	if err != nil {
		return &IndexError{Op: "rebuild", Err: err}
	}
	idx.live = reopened
	return nil
}

// Search returns the k nearest documents to queryVector by cosine
// similarity, sorted descending by score with ties broken
// lexicographically on "serverName/toolName" for determinism.
func (idx *Index) Search(queryVector []float32, k int) ([]Result, error) {
	if k <= 0 || idx.live == nil {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchNoneQuery())
	req.AddKNN("vector", queryVector, int64(k), 1.0)
	req.Fields = []string{"serverName", "toolName", "description"}

	res, err := idx.live.Search(req)
	if err != nil {
		return nil, &IndexError{Op: "search", Err: err}
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, Result{
			ServerName:  fieldString(hit.Fields, "serverName"),
			ToolName:    fieldString(hit.Fields, "toolName"),
			Description: fieldString(hit.Fields, "description"),
			Score:       hit.Score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ServerName+"/"+out[i].ToolName < out[j].ServerName+"/"+out[j].ToolName
	})

	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func fieldString(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Close releases the underlying index handle.
func (idx *Index) Close() error {
	if idx.live == nil {
		return nil
	}
	err := idx.live.Close()
	idx.live = nil
	return err
}
