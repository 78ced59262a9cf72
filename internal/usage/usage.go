// Package usage correlates a resolved scope's declared symbol against a
// project-wide reference index and reports the blast radius.
package usage

import (
	"context"

	"whence/internal/errors"
	"whence/internal/logging"
	"whence/internal/scope"
)

// DefaultSampleCap bounds how many reference locations are carried into the
// prompt. The true total is always preserved separately.
const DefaultSampleCap = 10

// ReferenceSite is one location referencing the symbol. Line is 1-based,
// Column is 0-based, matching the scope resolver's name anchors.
type ReferenceSite struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Availability distinguishes a confirmed reference count from the absence of
// any reference capability. Conflating the two would let "no provider for
// this language" masquerade as "orphaned code".
type Availability string

const (
	// Confirmed means a reference index answered the query; TotalCount is real.
	Confirmed Availability = "confirmed"
	// Unavailable means no reference capability exists for this file; the
	// true usage is unknown.
	Unavailable Availability = "unavailable"
)

// Report is the blast-radius summary for one analysis.
type Report struct {
	TotalCount      int             `json:"totalCount"`
	SampleLocations []ReferenceSite `json:"sampleLocations"`
	Availability    Availability    `json:"availability"`
}

// ReferenceProvider answers "who references the symbol declared at this
// position". Implementations: the SCIP index provider, fakes in tests.
type ReferenceProvider interface {
	// References returns every occurrence of the symbol whose declaration
	// name starts at (line, column) in filePath, including the declaration
	// itself. Line is 1-based, column 0-based.
	References(ctx context.Context, filePath string, line, column int) ([]ReferenceSite, error)
}

// Correlator runs usage queries for analysis requests.
type Correlator struct {
	provider  ReferenceProvider // nil when no index is configured
	sampleCap int
	logger    *logging.Logger
}

// NewCorrelator creates a correlator. A nil provider is valid and yields
// Unavailable reports.
func NewCorrelator(provider ReferenceProvider, logger *logging.Logger) *Correlator {
	return &Correlator{
		provider:  provider,
		sampleCap: DefaultSampleCap,
		logger:    logger,
	}
}

// WithSampleCap overrides the sample cap. Non-positive values keep the default.
func (c *Correlator) WithSampleCap(cap int) *Correlator {
	if cap > 0 {
		c.sampleCap = cap
	}
	return c
}

// Correlate queries references for the outermost named container in the
// chain and filters out the declaration site itself. Capability gaps are
// reported through Availability, never as a fatal error.
func (c *Correlator) Correlate(ctx context.Context, chain scope.Chain, filePath string) (*Report, error) {
	anchor, ok := chain.OutermostNamed()
	if !ok || c.provider == nil {
		return &Report{Availability: Unavailable, SampleLocations: []ReferenceSite{}}, nil
	}

	line := anchor.NameRange.StartLine
	column := anchor.NameColumn

	sites, err := c.provider.References(ctx, filePath, line, column)
	if err != nil {
		c.logger.Warn("Reference query failed, usage unknown", map[string]interface{}{
			"file":  filePath,
			"error": err.Error(),
		})
		return &Report{Availability: Unavailable, SampleLocations: []ReferenceSite{}},
			errors.New(errors.ReferenceCapabilityUnavailable, "reference query failed", err)
	}

	declaration := ReferenceSite{FilePath: filePath, Line: line, Column: column}
	filtered := make([]ReferenceSite, 0, len(sites))
	for _, site := range sites {
		if site == declaration {
			continue
		}
		filtered = append(filtered, site)
	}

	sample := filtered
	if len(sample) > c.sampleCap {
		sample = sample[:c.sampleCap]
	}
	// Copy so the report never aliases provider-owned memory.
	sampleCopy := make([]ReferenceSite, len(sample))
	copy(sampleCopy, sample)

	return &Report{
		TotalCount:      len(filtered),
		SampleLocations: sampleCopy,
		Availability:    Confirmed,
	}, nil
}
