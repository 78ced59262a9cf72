//go:build !cgo

package scope

import (
	"context"

	"whence/internal/errors"
	"whence/internal/source"
)

// Resolver is a stub for non-CGO builds. Structural analysis degrades to an
// empty scope chain; the rest of the pipeline keeps working.
type Resolver struct{}

// NewResolver creates a stub resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// IsAvailable returns whether structural analysis is compiled in.
func IsAvailable() bool {
	return false
}

// Resolve always reports structural analysis as unavailable.
func (r *Resolver) Resolve(ctx context.Context, content []byte, lang Language, target source.Range) (Chain, error) {
	return nil, errors.New(errors.ParseUnavailable,
		"structural analysis requires CGO (tree-sitter)", nil)
}
