// Package barcode provides pluggable per-format decoder capabilities and the
// ordered cascade that tries them against one prepared frame.
//
// Every decoder is stateless: given the same frame it returns the same text
// or ErrNotFound. When a frame satisfies more than one configured format the
// first decoder in the strategy wins, so strategy order is policy. The
// default strategy lists the cheaper 1-D symbologies before the 2-D ones.
//
// Backends:
//   - gozxing (github.com/makiuchi-d/gozxing) for every format listed by IDs().
//   - goqr (github.com/liyue201/goqr) as the alternative QR decoder "qr-goqr".
package barcode
