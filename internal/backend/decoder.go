package backend

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TextDecoder decodes a UTF-8 byte stream chunk by chunk. A multi-byte
// sequence split across chunks is held back until the rest arrives, so the
// concatenated output never depends on where the transport cut the stream.
// Invalid bytes become U+FFFD.
type TextDecoder struct {
	t       transform.Transformer
	pending []byte
}

func NewTextDecoder() *TextDecoder {
	return &TextDecoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the text completed by chunk
func (d *TextDecoder) Decode(chunk []byte) string {
	return d.decode(chunk, false)
}

// Flush returns whatever is still buffered once the stream has ended. A
// truncated trailing sequence decodes to U+FFFD.
func (d *TextDecoder) Flush() string {
	out := d.decode(nil, true)
	d.t.Reset()
	return out
}

// Pending reports how many bytes are held back waiting for a sequence to complete
func (d *TextDecoder) Pending() int {
	return len(d.pending)
}

func (d *TextDecoder) decode(chunk []byte, atEOF bool) string {
	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(append(src, d.pending...), chunk...)
	d.pending = d.pending[:0]

	if len(src) == 0 {
		return ""
	}

	// Worst case every byte is invalid and expands to a 3-byte U+FFFD
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	var out []byte
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]

		switch err {
		case transform.ErrShortDst:
			continue
		case transform.ErrShortSrc:
			d.pending = append(d.pending, src...)
		}
		return string(out)
	}
}
