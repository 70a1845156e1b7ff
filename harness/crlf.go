package harness

import (
	"bytes"
	"io"
)

// CRLFWriter translates every bare "\n" into "\r\n", as expected by serial
// terminals. Line feeds already preceded by "\r" are passed through, also
// when the "\r" ended the previous Write.
type CRLFWriter struct {
	w      io.Writer
	lastCR bool
}

// NewCRLFWriter wraps w.
func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{w: w}
}

// Write implements io.Writer. On success it reports len(p) bytes written.
func (c *CRLFWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	out := make([]byte, 0, len(p)+bytes.Count(p, []byte("\n")))
	prevCR := c.lastCR
	for _, b := range p {
		if b == '\n' && !prevCR {
			out = append(out, '\r')
		}
		out = append(out, b)
		prevCR = b == '\r'
	}

	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	c.lastCR = prevCR
	return len(p), nil
}
