package xmldoc

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
	declEncodingRe  = regexp.MustCompile(`^\s*<\?xml[^>]*?encoding\s*=\s*["']([^"']+)["']`)
	declarationSize = 256
)

// source holds the UTF-8 view of the raw input plus what is needed to write it back
type source struct {
	text  []byte
	label string
	enc   encoding.Encoding
	bom   bool
}

// decodeSource sniffs the XML declaration and converts the input to UTF-8.
// Single and multi byte legacy charsets are supported; UTF-16 is not.
func decodeSource(raw []byte) (*source, error) {
	src := &source{label: "UTF-8"}

	body := raw
	if bytes.HasPrefix(body, utf8BOM) {
		src.bom = true
		body = body[len(utf8BOM):]
	}

	head := body
	if len(head) > declarationSize {
		head = head[:declarationSize]
	}
	if m := declEncodingRe.FindSubmatch(head); m != nil {
		src.label = string(m[1])
	}

	enc, err := lookupEncoding(src.label)
	if err != nil {
		return nil, err
	}

	if enc == nil {
		if !utf8.Valid(body) {
			return nil, fmt.Errorf("%w: input is not valid UTF-8", ErrUnsupportedEncoding)
		}
		src.text = body
		return src, nil
	}

	if src.bom {
		return nil, fmt.Errorf("%w: UTF-8 byte order mark with %s declaration", ErrUnsupportedEncoding, src.label)
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedEncoding, src.label, err)
	}
	src.enc = enc
	src.text = decoded
	return src, nil
}

// lookupEncoding returns nil for UTF-8 and ASCII, which need no transcoding
func lookupEncoding(label string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return nil, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, label)
	}

	name, _ := htmlindex.Name(enc)
	switch name {
	case "utf-8":
		return nil, nil
	case "utf-16be", "utf-16le", "replacement":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, label)
	}
	return enc, nil
}

// encode converts the UTF-8 output back to the document's original charset
func (s *source) encode(out []byte) ([]byte, error) {
	if s.enc == nil {
		if s.bom {
			return append(append([]byte{}, utf8BOM...), out...), nil
		}
		return out, nil
	}

	encoded, err := s.enc.NewEncoder().Bytes(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return encoded, nil
}
