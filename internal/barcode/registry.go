package barcode

import (
	"fmt"
	"sort"
	"strings"
)

// Factory builds a decoder capability for the given options.
type Factory func(opts Options) Decoder

// Strategy is the ordered list of decoder identifiers a cascade tries.
type Strategy []string

// DefaultStrategy returns linear symbologies first, then matrix codes.
// UPC-A precedes EAN-13 so a UPC-A symbol reports its 12 digits rather than
// the zero-prefixed EAN-13 reading of the same bars.
func DefaultStrategy() Strategy {
	return Strategy{
		"upca", "ean13", "ean8", "upce",
		"code128", "code39", "itf", "codabar",
		"qr", "datamatrix", "aztec",
	}
}

func builtinFactories() map[string]Factory {
	fs := zxingFactories()
	fs["qr-goqr"] = func(Options) Decoder { return goqrDecoder{} }
	return fs
}

// IDs returns every registered decoder identifier, sorted.
func IDs() []string {
	fs := builtinFactories()
	ids := make([]string, 0, len(fs))
	for id := range fs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup builds the decoder registered under id.
func Lookup(id string, opts Options) (Decoder, error) {
	f, ok := builtinFactories()[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("unknown decoder %q (available: %s)", id, strings.Join(IDs(), ", "))
	}
	return f(opts), nil
}

// Validate checks that every identifier is known and appears once.
func (s Strategy) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("decode strategy is empty")
	}
	fs := builtinFactories()
	seen := make(map[string]bool, len(s))
	for _, id := range s {
		key := strings.ToLower(strings.TrimSpace(id))
		if _, ok := fs[key]; !ok {
			return fmt.Errorf("unknown decoder %q in strategy", id)
		}
		if seen[key] {
			return fmt.Errorf("decoder %q listed twice in strategy", id)
		}
		seen[key] = true
	}
	return nil
}

// Build resolves every identifier into a decoder, preserving order.
func (s Strategy) Build(opts Options) ([]Decoder, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := make([]Decoder, 0, len(s))
	for _, id := range s {
		d, err := Lookup(id, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
