package xmldoc

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is wrapped by every ParseError
	ErrParse = errors.New("xml parse error")

	// ErrUnsupportedEncoding is returned when the declared encoding cannot be decoded
	ErrUnsupportedEncoding = errors.New("unsupported xml encoding")

	// ErrNotLeaf is returned when writing text into an element that has child elements
	ErrNotLeaf = errors.New("element is not a leaf")

	// ErrUnencodable is returned when edited text cannot be represented in the document encoding
	ErrUnencodable = errors.New("text cannot be represented in document encoding")
)

// ParseError describes why raw bytes could not be loaded as a document
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xml parse error at offset %d: %v", e.Offset, e.Err)
}

// Unwrap lets errors.Is match both ErrParse and the underlying cause
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
