package barcode

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/codescan/internal/frame"
)

// Match is a successful cascade decode.
type Match struct {
	Text    string
	Format  Format
	Decoder string
}

// Cascade tries decoders in order and returns the first success.
type Cascade struct {
	decoders []Decoder
}

// NewCascade builds a cascade over decoders in the given order.
func NewCascade(decoders ...Decoder) *Cascade {
	return &Cascade{decoders: append([]Decoder(nil), decoders...)}
}

// NewCascadeFromStrategy resolves a strategy into a cascade.
func NewCascadeFromStrategy(s Strategy, opts Options) (*Cascade, error) {
	ds, err := s.Build(opts)
	if err != nil {
		return nil, err
	}
	return NewCascade(ds...), nil
}

// Decoders returns the configured decoder identifiers in order.
func (c *Cascade) Decoders() []string {
	ids := make([]string, len(c.decoders))
	for i, d := range c.decoders {
		ids[i] = d.ID()
	}
	return ids
}

// Decode runs each decoder on buf until one succeeds. It returns an error
// wrapping ErrNotFound when every decoder fails.
func (c *Cascade) Decode(buf frame.Buffer) (Match, error) {
	for _, d := range c.decoders {
		text, err := safeDecode(d, buf)
		if err == nil {
			return Match{Text: text, Format: d.Format(), Decoder: d.ID()}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			slog.Debug("Decoder failed", "decoder", d.ID(), "error", err)
		}
	}
	return Match{}, ErrNotFound
}

// safeDecode contains decoder panics; a crashing decoder counts as a miss.
func safeDecode(d Decoder, buf frame.Buffer) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Decoder panicked", "decoder", d.ID(), "panic", r)
			text, err = "", fmt.Errorf("%w: %s panicked: %v", ErrNotFound, d.ID(), r)
		}
	}()
	return d.Decode(buf)
}
