// Package source holds the line-range model shared by every gathering component.
package source

import (
	"fmt"

	"whence/internal/errors"
)

// Range identifies a span of lines in a file. Lines are 1-based and the
// range is inclusive on both ends. A Range is created once per analysis
// request and never mutated.
type Range struct {
	FilePath  string `json:"filePath"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// NewRange validates and constructs a Range.
func NewRange(filePath string, startLine, endLine int) (Range, error) {
	if filePath == "" {
		return Range{}, errors.New(errors.InternalError, "file path is required", nil)
	}
	if startLine < 1 || endLine < startLine {
		return Range{}, errors.New(errors.InternalError,
			fmt.Sprintf("invalid line range %d:%d", startLine, endLine), nil)
	}
	return Range{FilePath: filePath, StartLine: startLine, EndLine: endLine}, nil
}

// Contains reports whether r fully contains other.
func (r Range) Contains(other Range) bool {
	return r.StartLine <= other.StartLine && r.EndLine >= other.EndLine
}

// Overlaps reports whether r and other share at least one line.
func (r Range) Overlaps(other Range) bool {
	return r.StartLine <= other.EndLine && other.StartLine <= r.EndLine
}

// LineCount returns the number of lines covered by the range.
func (r Range) LineCount() int {
	return r.EndLine - r.StartLine + 1
}

// String renders the range in file:start-end form.
func (r Range) String() string {
	return fmt.Sprintf("%s:%d-%d", r.FilePath, r.StartLine, r.EndLine)
}

// ByteSpan is a half-open [Start, End) byte interval into a source buffer.
type ByteSpan struct {
	Start uint32
	End   uint32
}

// ByteSpanOf computes the byte span covering the range's lines in content.
// Working in bytes rather than line/column pairs keeps multi-byte characters
// and tabs from skewing containment checks. The end offset excludes the
// trailing newline of the last line, so the span ends where the last line's
// final token does.
func ByteSpanOf(content []byte, r Range) (ByteSpan, error) {
	if r.StartLine < 1 || r.EndLine < r.StartLine {
		return ByteSpan{}, errors.New(errors.InternalError,
			fmt.Sprintf("invalid line range %d:%d", r.StartLine, r.EndLine), nil)
	}

	line := 1
	var start, end uint32
	startFound := r.StartLine == 1

	for i := 0; i < len(content); i++ {
		if content[i] != '\n' {
			continue
		}
		line++
		if line == r.StartLine {
			start = uint32(i + 1)
			startFound = true
		}
		if line == r.EndLine+1 {
			end = uint32(i)
			return ByteSpan{Start: start, End: end}, nil
		}
	}

	if !startFound {
		return ByteSpan{}, errors.New(errors.InternalError,
			fmt.Sprintf("start line %d beyond end of file (%d lines)", r.StartLine, line), nil)
	}

	// Range runs to EOF without a trailing newline.
	return ByteSpan{Start: start, End: uint32(len(content))}, nil
}

// LineOfByte returns the 1-based line containing the given byte offset.
func LineOfByte(content []byte, offset uint32) int {
	line := 1
	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}
	for i := 0; i < limit; i++ {
		if content[i] == '\n' {
			line++
		}
	}
	return line
}
