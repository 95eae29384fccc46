package console

import (
	"bytes"
	"io"
)

// crlfConn translates terminal line endings. Input \r\n and a lone \r (an ssh client
// without a pty) both read as \n; output \n is written as \r\n.
type crlfConn struct {
	rw      io.ReadWriter
	afterCR bool
}

func newCRLFReadWriter(rw io.ReadWriter) io.ReadWriter {
	return &crlfConn{rw: rw}
}

func (c *crlfConn) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)

	out := p[:0]
	for _, b := range p[:n] {
		if b == '\n' && c.afterCR {
			c.afterCR = false
			continue
		}
		c.afterCR = b == '\r'
		if c.afterCR {
			b = '\n'
		}
		out = append(out, b)
	}
	return len(out), err
}

func (c *crlfConn) Write(p []byte) (int, error) {
	if _, err := c.rw.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
