package transport

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// ChildProcess launches an MCP server as a subprocess and exposes its
// stdin/stdout as a closable io pair, grounded on the teacher's
// StdioClient subprocess-spawning pattern. The child's stderr is
// forwarded to this process's stderr, matching the MCP convention that
// server logging goes there rather than interleaving with the protocol
// stream on stdout.
type ChildProcess struct {
	path string
	args []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// NewChildProcess builds a ChildProcess for the given executable and args.
func NewChildProcess(path string, args ...string) *ChildProcess {
	return &ChildProcess{path: path, args: args}
}

// Start launches the subprocess, rooted at ctx so cancelling ctx kills it.
// Returns a StdioTransport wired to the child's pipes.
func (c *ChildProcess) Start(ctx context.Context) (*StdioTransport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return nil, errs.New(errs.KindProtocol, "child process already started")
	}

	cmd := exec.CommandContext(ctx, c.path, c.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errs.Wrap(errs.KindTransportIO, err, "open child stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, errs.Wrap(errs.KindTransportIO, err, "open child stdout pipe")
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, errs.Wrap(errs.KindTransportIO, err, "start child process")
	}

	c.cmd = cmd
	c.stdin = stdin
	c.stdout = stdout

	return NewStdioTransport(stdout, stdin, c), nil
}

// Wait blocks until the subprocess exits.
func (c *ChildProcess) Wait() error {
	c.mu.Lock()
	cmd := c.cmd
	c.mu.Unlock()
	if cmd == nil {
		return errs.New(errs.KindProtocol, "child process not started")
	}
	if err := cmd.Wait(); err != nil {
		return errs.Wrap(errs.KindTransportIO, err, "child process exited with error")
	}
	return nil
}

// Close implements io.Closer: it closes stdin (signaling EOF to the
// child), then kills the process if it's still running. Called by the
// StdioTransport returned from Start.
func (c *ChildProcess) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var joined []error
	if c.stdin != nil {
		if err := c.stdin.Close(); err != nil {
			joined = append(joined, err)
		}
		c.stdin = nil
	}
	if c.cmd != nil && c.cmd.Process != nil {
		if err := c.cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
			joined = append(joined, err)
		}
	}
	if c.stdout != nil {
		if err := c.stdout.Close(); err != nil {
			joined = append(joined, err)
		}
		c.stdout = nil
	}
	c.cmd = nil

	if len(joined) == 0 {
		return nil
	}
	return errs.Wrap(errs.KindTransportIO, joined[0], "close child process")
}
