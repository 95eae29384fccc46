package console

import (
	"bytes"
	"io"
	"testing"

	"github.com/pixil98/go-testutil"
)

// chunkedConn returns one chunk per Read.
type chunkedConn struct {
	chunks []string
	out    bytes.Buffer
}

func (c *chunkedConn) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func (c *chunkedConn) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

func TestCRLF_Read(t *testing.T) {
	tests := map[string]struct {
		chunks []string
		exp    string
	}{
		"crlf":               {chunks: []string{"status\r\n"}, exp: "status\n"},
		"bare cr":            {chunks: []string{"help\rquit\r"}, exp: "help\nquit\n"},
		"bare lf":            {chunks: []string{"help\n"}, exp: "help\n"},
		"split across reads": {chunks: []string{"join public\r", "\nstatus\r\n"}, exp: "join public\nstatus\n"},
		"blank lines":        {chunks: []string{"\r\n\r\n"}, exp: "\n\n"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rw := newCRLFReadWriter(&chunkedConn{chunks: tt.chunks})
			got, err := io.ReadAll(rw)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			testutil.AssertEqual(t, "read", string(got), tt.exp)
		})
	}
}

func TestCRLF_Write(t *testing.T) {
	conn := &chunkedConn{}
	rw := newCRLFReadWriter(conn)

	n, err := rw.Write([]byte("a\nb\n"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	testutil.AssertEqual(t, "reported length", n, 4)
	testutil.AssertEqual(t, "written", conn.out.String(), "a\r\nb\r\n")
}
