// Package scope resolves the chain of syntactic containers enclosing a line
// range, using tree-sitter grammars. Resolution is a pure function of
// (content, language, range); nothing is cached across calls except the
// per-language parsers themselves.
package scope

import (
	"fmt"
	"strings"

	"whence/internal/source"
)

// Kind classifies a syntactic container, normalized across grammars.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
	KindNamespace Kind = "namespace"
	KindModule    Kind = "module"
	KindType      Kind = "type"
)

// AnonymousName is the display name for containers without a declared name.
const AnonymousName = "(anonymous)"

// Node is one enclosing syntactic container.
type Node struct {
	Kind      Kind          `json:"kind"`
	Name      string        `json:"name"`
	BodyRange source.Range  `json:"bodyRange"`
	NameRange *source.Range `json:"nameRange,omitempty"`
	// NameColumn is the 0-based column of the declared name's first
	// character, valid only when NameRange is set. Reference queries anchor
	// at (NameRange.StartLine, NameColumn).
	NameColumn int `json:"nameColumn,omitempty"`
}

// Chain is the ordered sequence of containers enclosing a target range,
// innermost first. The body range of element i is always contained in the
// body range of element i+1.
type Chain []Node

// OutermostNamed returns the outermost node with a resolvable name range.
// This is the anchor the usage correlator queries references for: the
// broadest named container is the more meaningful blast-radius unit than any
// inner anonymous block.
func (c Chain) OutermostNamed() (Node, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].NameRange != nil {
			return c[i], true
		}
	}
	return Node{}, false
}

// Innermost returns the tightest container, if any.
func (c Chain) Innermost() (Node, bool) {
	if len(c) == 0 {
		return Node{}, false
	}
	return c[0], true
}

// Path renders the chain outermost-first as "kind: name -> kind: name".
func (c Chain) Path() string {
	if len(c) == 0 {
		return ""
	}
	parts := make([]string, 0, len(c))
	for i := len(c) - 1; i >= 0; i-- {
		parts = append(parts, fmt.Sprintf("%s: %s", c[i].Kind, c[i].Name))
	}
	return strings.Join(parts, " -> ")
}

// Validate checks the nesting invariant: every body range contains the
// target, and each body range is contained in the next-outer one.
func (c Chain) Validate(target source.Range) error {
	for i, node := range c {
		if !node.BodyRange.Contains(target) {
			return fmt.Errorf("scope %q does not contain target %s", node.Name, target)
		}
		if i+1 < len(c) && !c[i+1].BodyRange.Contains(node.BodyRange) {
			return fmt.Errorf("scope %q not nested inside %q", node.Name, c[i+1].Name)
		}
	}
	return nil
}
