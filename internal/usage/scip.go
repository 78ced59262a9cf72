package usage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"whence/internal/errors"
	"whence/internal/logging"
)

// SCIPProvider answers reference queries from a pre-built SCIP index file.
// The index is loaded once and queried read-only, so the provider is safe
// for concurrent use.
type SCIPProvider struct {
	repoRoot  string
	documents map[string]*scippb.Document
	order     []string // deterministic iteration order for results
	logger    *logging.Logger
}

// DefaultIndexName is the conventional SCIP index location at the repo root.
const DefaultIndexName = "index.scip"

// LoadSCIPIndex reads and decodes a SCIP index. A missing index file returns
// (nil, nil): the caller falls back to a nil provider and usage stays
// unknown rather than failing the analysis.
func LoadSCIPIndex(indexPath, repoRoot string, logger *logging.Logger) (*SCIPProvider, error) {
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No SCIP index found, usage reporting disabled", map[string]interface{}{
				"path": indexPath,
			})
			return nil, nil
		}
		return nil, errors.New(errors.ReferenceCapabilityUnavailable,
			"failed to read SCIP index", err)
	}

	var index scippb.Index
	if err := proto.Unmarshal(raw, &index); err != nil {
		return nil, errors.New(errors.ReferenceCapabilityUnavailable,
			"failed to decode SCIP index", err).WithDetails(map[string]interface{}{
			"path": indexPath,
		})
	}

	p := &SCIPProvider{
		repoRoot:  repoRoot,
		documents: make(map[string]*scippb.Document, len(index.Documents)),
		logger:    logger,
	}
	for _, doc := range index.Documents {
		rel := filepath.ToSlash(doc.RelativePath)
		if _, dup := p.documents[rel]; dup {
			continue
		}
		p.documents[rel] = doc
		p.order = append(p.order, rel)
	}

	logger.Debug("SCIP index loaded", map[string]interface{}{
		"path":      indexPath,
		"documents": len(p.documents),
	})
	return p, nil
}

// References locates the symbol declared at (line, column) and returns every
// occurrence of it across the index, declaration included. Line is 1-based,
// column 0-based; SCIP ranges are 0-based on both axes.
func (p *SCIPProvider) References(ctx context.Context, filePath string, line, column int) ([]ReferenceSite, error) {
	rel := p.relativize(filePath)
	doc, ok := p.documents[rel]
	if !ok {
		return nil, errors.New(errors.ReferenceCapabilityUnavailable,
			"file is not covered by the SCIP index", nil).WithDetails(map[string]interface{}{
			"file": rel,
		})
	}

	symbol := symbolAt(doc, line-1, column)
	if symbol == "" {
		return nil, errors.New(errors.ReferenceCapabilityUnavailable,
			"no indexed symbol at the declaration position", nil).WithDetails(map[string]interface{}{
			"file":   rel,
			"line":   line,
			"column": column,
		})
	}

	// Local symbols are scoped to their document; only cross-file symbols
	// need the full index scan.
	var sites []ReferenceSite
	if strings.HasPrefix(symbol, "local ") {
		sites = occurrencesOf(doc, rel, symbol)
	} else {
		for _, docPath := range p.order {
			if err := ctx.Err(); err != nil {
				return nil, errors.New(errors.Timeout, "reference scan cancelled", err)
			}
			sites = append(sites, occurrencesOf(p.documents[docPath], docPath, symbol)...)
		}
	}
	return sites, nil
}

// relativize maps an absolute or repo-relative path onto the index's
// relative-path keyspace.
func (p *SCIPProvider) relativize(filePath string) string {
	if p.repoRoot != "" && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(p.repoRoot, filePath); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(strings.TrimPrefix(filePath, "./"))
}

// symbolAt finds the occurrence covering (line0, column) on its start line
// and returns its symbol. Occurrence.Range is [startLine, startCol, endCol]
// for single-line ranges or [startLine, startCol, endLine, endCol] otherwise.
func symbolAt(doc *scippb.Document, line0, column int) string {
	for _, occ := range doc.Occurrences {
		start, startCol, _, endCol, ok := spanOf(occ.Range)
		if !ok || start != line0 {
			continue
		}
		if column >= startCol && column < endCol {
			return occ.Symbol
		}
	}
	return ""
}

// occurrencesOf collects every occurrence of symbol in doc as reference
// sites, converting to 1-based lines.
func occurrencesOf(doc *scippb.Document, docPath, symbol string) []ReferenceSite {
	var sites []ReferenceSite
	for _, occ := range doc.Occurrences {
		if occ.Symbol != symbol {
			continue
		}
		start, startCol, _, _, ok := spanOf(occ.Range)
		if !ok {
			continue
		}
		sites = append(sites, ReferenceSite{
			FilePath: docPath,
			Line:     start + 1,
			Column:   startCol,
		})
	}
	return sites
}

// spanOf decodes the SCIP range encoding.
func spanOf(r []int32) (startLine, startCol, endLine, endCol int, ok bool) {
	switch len(r) {
	case 3:
		return int(r[0]), int(r[1]), int(r[0]), int(r[2]), true
	case 4:
		return int(r[0]), int(r[1]), int(r[2]), int(r[3]), true
	default:
		return 0, 0, 0, 0, false
	}
}
