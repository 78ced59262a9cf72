//go:build cgo

package scope

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"whence/internal/errors"
	"whence/internal/source"
)

// Resolver resolves scope chains using tree-sitter. Parsers are created
// lazily per language and reused; grammars are immutable once loaded.
// Results are never cached, since file content changes between calls.
type Resolver struct {
	mu      sync.Mutex
	parsers map[Language]*sitter.Parser
}

// NewResolver creates a scope resolver.
func NewResolver() *Resolver {
	return &Resolver{parsers: make(map[Language]*sitter.Parser)}
}

// IsAvailable returns whether structural analysis is compiled in.
func IsAvailable() bool {
	return true
}

// grammarFor returns the tree-sitter grammar for a language. The registry is
// static: every supported language is bound at compile time, everything else
// is nil.
func grammarFor(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangJava:
		return java.GetLanguage()
	case LangC:
		return c.GetLanguage()
	case LangCpp:
		return cpp.GetLanguage()
	case LangCSharp:
		return csharp.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	case LangRuby:
		return ruby.GetLanguage()
	case LangPHP:
		return php.GetLanguage()
	case LangSwift:
		return swift.GetLanguage()
	case LangKotlin:
		return kotlin.GetLanguage()
	case LangBash:
		return bash.GetLanguage()
	default:
		return nil
	}
}

// containerTableFor returns the normalization table for a language. TSX
// shares the TypeScript table, JSX parses with the JavaScript grammar.
func containerTableFor(lang Language) map[string]containerSpec {
	if lang == LangTSX {
		return containerTables[LangTypeScript]
	}
	return containerTables[lang]
}

// Resolve parses content and returns the chain of containers enclosing the
// target range, innermost first. An unsupported language yields a
// ParseUnavailable error; a range that no longer fits the content yields an
// empty chain. Neither aborts the overall analysis.
func (r *Resolver) Resolve(ctx context.Context, content []byte, lang Language, target source.Range) (Chain, error) {
	grammar := grammarFor(lang)
	table := containerTableFor(lang)
	if grammar == nil || table == nil {
		return nil, errors.New(errors.ParseUnavailable,
			"no grammar registered for language", nil).WithDetails(map[string]interface{}{
			"language": string(lang),
		})
	}

	span, err := source.ByteSpanOf(content, target)
	if err != nil {
		// Stale range (file shorter than the selection). Structural context
		// is simply unavailable; this is not an analysis failure.
		return Chain{}, nil
	}

	root, err := r.parse(ctx, content, lang, grammar)
	if err != nil {
		return nil, errors.New(errors.ParseUnavailable, "parse failed", err)
	}
	if root == nil {
		return Chain{}, nil
	}

	node := smallestNamedNodeSpanning(root, span)
	if node == nil {
		return Chain{}, nil
	}

	var chain Chain
	for cur := node; cur != nil; cur = cur.Parent() {
		spec, ok := table[cur.Type()]
		if !ok {
			continue
		}
		// A container counts only if it spans the whole selection.
		if cur.StartByte() > span.Start || cur.EndByte() < span.End {
			continue
		}
		chain = append(chain, buildNode(cur, content, spec, lang, target.FilePath))
	}

	return chain, nil
}

// smallestNamedNodeSpanning descends from root to the smallest named node
// whose byte extent covers the span. At each level at most one named child
// can cover the span, since siblings do not overlap.
func smallestNamedNodeSpanning(root *sitter.Node, span source.ByteSpan) *sitter.Node {
	cur := root
	for {
		var next *sitter.Node
		for i := 0; i < int(cur.NamedChildCount()); i++ {
			child := cur.NamedChild(i)
			if child == nil {
				continue
			}
			if child.StartByte() <= span.Start && child.EndByte() >= span.End {
				next = child
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// parse runs the tree-sitter parser for lang under the resolver lock.
// Parsers are not safe for concurrent use.
func (r *Resolver) parse(ctx context.Context, content []byte, lang Language, grammar *sitter.Language) (*sitter.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parser, ok := r.parsers[lang]
	if !ok {
		parser = sitter.NewParser()
		parser.SetLanguage(grammar)
		r.parsers[lang] = parser
	}

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	return tree.RootNode(), nil
}

// buildNode converts a grammar node into a normalized container node.
func buildNode(node *sitter.Node, content []byte, spec containerSpec, lang Language, filePath string) Node {
	body := source.Range{
		FilePath:  filePath,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}

	kind := spec.kind
	name, nameNode := extractName(node, content, spec)

	var nameRange *source.Range
	var nameColumn int
	if nameNode != nil {
		nameRange = &source.Range{
			FilePath:  filePath,
			StartLine: int(nameNode.StartPoint().Row) + 1,
			EndLine:   int(nameNode.EndPoint().Row) + 1,
		}
		nameColumn = int(nameNode.StartPoint().Column)
	}

	return Node{
		Kind:       kind,
		Name:       name,
		BodyRange:  body,
		NameRange:  nameRange,
		NameColumn: nameColumn,
	}
}

// extractName applies the name extraction ladder:
//  1. grammar "name" field
//  2. declarator descent for C-family definitions
//  3. immediate-child scan for an identifier-kind token
//  4. "(anonymous)" for anonymous-function kinds
//  5. the raw grammar type as a last resort
func extractName(node *sitter.Node, content []byte, spec containerSpec) (string, *sitter.Node) {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return text(nameNode, content), nameNode
	}

	if spec.declarator {
		if nameNode := descendDeclarators(node); nameNode != nil {
			return text(nameNode, content), nameNode
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if identifierKinds[child.Type()] {
			return text(child, content), child
		}
		// Go type declarations nest the name one level down in a type_spec.
		if child.Type() == "type_spec" {
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				return text(nameNode, content), nameNode
			}
		}
	}

	if spec.anonymous {
		return AnonymousName, nil
	}

	return node.Type(), nil
}

// descendDeclarators walks nested declarator wrappers (pointer declarators,
// function declarators) until an identifier leaf appears.
func descendDeclarators(node *sitter.Node) *sitter.Node {
	cur := node.ChildByFieldName("declarator")
	for depth := 0; cur != nil && depth < 8; depth++ {
		if identifierKinds[cur.Type()] {
			return cur
		}
		next := cur.ChildByFieldName("declarator")
		if next == nil {
			// Some wrappers keep the identifier as a plain child.
			for i := 0; i < int(cur.ChildCount()); i++ {
				child := cur.Child(i)
				if child != nil && identifierKinds[child.Type()] {
					return child
				}
			}
			return nil
		}
		cur = next
	}
	return nil
}

func text(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}
