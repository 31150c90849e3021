package transport

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
)

// StdioTransport is the legacy blocking duplex Transport over a pair of
// byte streams: typically os.Stdin/os.Stdout when this process is itself
// the MCP server, or a subprocess's stdin/stdout pipes when this process
// is acting as an MCP client. Messages are newline-delimited JSON-RPC,
// matching the teacher's stdio framing convention.
type StdioTransport struct {
	reader *bufio.Reader
	writer io.Writer

	writeMu   sync.Mutex
	closeOnce sync.Once
	closer    io.Closer
}

// NewStdioTransport builds a StdioTransport over r/w. If the underlying
// streams need closing (a subprocess's pipes), pass a non-nil closer;
// Close will call it. closer may be nil for os.Stdin/os.Stdout, which the
// process doesn't own.
func NewStdioTransport(r io.Reader, w io.Writer, closer io.Closer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(r),
		writer: w,
		closer: closer,
	}
}

// Send writes msg followed by the frame delimiter, under a mutex so
// concurrent callers don't interleave partial writes. ctx is not
// consulted: a write blocks until the underlying writer returns.
func (t *StdioTransport) Send(ctx context.Context, msg jsonrpc.Message) error {
	b, err := jsonrpc.EncodeFramed(msg)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(b); err != nil {
		return errs.Wrap(errs.KindTransportIO, err, "stdio write")
	}
	return nil
}

// Receive blocks on the next newline-delimited frame, decodes it, and
// returns the result. Returns a KindTransportClosed error at EOF. ctx is
// not consulted: a blocked read returns only when a line, EOF or a read
// error arrives.
func (t *StdioTransport) Receive(ctx context.Context) (jsonrpc.Message, error) {
	for {
		line, err := t.reader.ReadBytes(jsonrpc.Delimiter)
		if err != nil {
			if err == io.EOF && len(line) == 0 {
				return jsonrpc.Message{}, errs.Wrap(errs.KindTransportClosed, err, "stdio transport closed")
			}
			if err != io.EOF {
				return jsonrpc.Message{}, errs.Wrap(errs.KindTransportIO, err, "stdio read")
			}
		}
		trimmed := trimTrailingDelimiter(line)
		if len(trimmed) == 0 {
			if err == io.EOF {
				return jsonrpc.Message{}, errs.Wrap(errs.KindTransportClosed, err, "stdio transport closed")
			}
			continue
		}
		return jsonrpc.Decode(trimmed)
	}
}

func trimTrailingDelimiter(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == jsonrpc.Delimiter {
		return line[:n-1]
	}
	return line
}

// Close releases the underlying streams, if this transport owns them.
// Safe to call multiple times.
func (t *StdioTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.closer != nil {
			err = t.closer.Close()
		}
	})
	return err
}

var _ Transport = (*StdioTransport)(nil)
