// Package wire implements the length-prefixed, NUL-delimited frame codec
// (spec.md §4.1): uint32 big-endian length, followed by that many bytes of
// payload, payload being fields joined by a single NUL with a trailing NUL
// after the last field.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const maxFrameLen = 64 << 20 // defensive upper bound against a corrupt length prefix

// Reader reads length-prefixed frames off a duplex byte stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for frame reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame reads one frame and splits its payload into fields on NUL,
// dropping the final empty field produced by the trailing NUL (spec.md
// §4.1).
func (fr *Reader) ReadFrame() ([]string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(fr.r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("wire: frame length %d exceeds maximum", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}
	return splitFields(payload), nil
}

func splitFields(payload []byte) []string {
	if len(payload) == 0 {
		return nil
	}
	var fields []string
	start := 0
	for i, b := range payload {
		if b == 0 {
			fields = append(fields, string(payload[start:i]))
			start = i + 1
		}
	}
	// A well-formed payload ends with a trailing NUL, so start == len(payload)
	// here; any bytes left over (a malformed frame missing its trailing NUL)
	// are appended as a final field rather than silently dropped.
	if start < len(payload) {
		fields = append(fields, string(payload[start:]))
	}
	return fields
}

// Writer writes length-prefixed frames onto a duplex byte stream.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for frame writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame joins fields with NUL, appends a trailing NUL, and writes the
// uint32 big-endian length prefix followed by the payload.
func (fw *Writer) WriteFrame(fields []string) error {
	payload := joinFields(fields)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := fw.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write frame length: %w", err)
	}
	if _, err := fw.w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame payload: %w", err)
	}
	return nil
}

func joinFields(fields []string) []byte {
	var buf []byte
	for _, f := range fields {
		buf = append(buf, f...)
		buf = append(buf, 0)
	}
	return buf
}

// WriteHandshake writes the initial `API\0` literal followed by a
// length-prefixed ASCII version range string (spec.md §4.1, §6).
func WriteHandshake(w io.Writer, rangeASCII string) error {
	if _, err := w.Write([]byte("API\x00")); err != nil {
		return fmt.Errorf("wire: write handshake preamble: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(rangeASCII)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write handshake length: %w", err)
	}
	if _, err := w.Write([]byte(rangeASCII)); err != nil {
		return fmt.Errorf("wire: write handshake range: %w", err)
	}
	return nil
}
