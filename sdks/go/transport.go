package mcpclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// transport delivers encoded JSON-RPC envelopes to a peer and reads
// envelopes it sends back. A transport may either push responses
// asynchronously (stdio: call dispatch, read loop dispatches by id) or
// synchronously (HTTP: one POST per call, response read in place).
type transport interface {
	// call sends req and returns the matching response envelope, or an
	// error if the transport could not deliver it or was closed first.
	call(ctx context.Context, req envelope) (envelope, error)
	// notify sends a one-way message with no id and does not wait for
	// a response.
	notify(ctx context.Context, req envelope) error
	close() error
}

// stdioTransport speaks newline-delimited JSON-RPC over a subprocess's
// stdin/stdout, the same framing convention the runtime's own stdio
// transport uses. A background read loop demultiplexes responses by id
// so concurrent calls can be in flight at once.
type stdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan envelope
	closed  bool
	readErr error

	readDone chan struct{}
}

func newStdioTransport(cmd *exec.Cmd, stdin io.WriteCloser, stdout io.ReadCloser) *stdioTransport {
	t := &stdioTransport{
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		pending:  make(map[int64]chan envelope),
		readDone: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *stdioTransport) readLoop() {
	defer close(t.readDone)
	scanner := bufio.NewScanner(t.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			continue
		}
		if env.ID == nil {
			// Server-initiated notification; this SDK has no
			// subscriber surface for it yet.
			continue
		}
		t.mu.Lock()
		ch, ok := t.pending[*env.ID]
		if ok {
			delete(t.pending, *env.ID)
		}
		t.mu.Unlock()
		if ok {
			ch <- env
		}
	}
	if err := scanner.Err(); err != nil {
		t.readErr = err
	} else {
		t.readErr = io.EOF
	}
	t.mu.Lock()
	for id, ch := range t.pending {
		delete(t.pending, id)
		close(ch)
	}
	t.mu.Unlock()
}

func (t *stdioTransport) call(ctx context.Context, req envelope) (envelope, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return envelope{}, &ServerUnreachableError{Cause: fmt.Errorf("transport is closed")}
	}
	ch := make(chan envelope, 1)
	t.pending[*req.ID] = ch
	t.mu.Unlock()

	b, err := json.Marshal(req)
	if err != nil {
		return envelope{}, err
	}
	b = append(b, '\n')

	t.writeMu.Lock()
	_, werr := t.stdin.Write(b)
	t.writeMu.Unlock()
	if werr != nil {
		t.mu.Lock()
		delete(t.pending, *req.ID)
		t.mu.Unlock()
		return envelope{}, &ServerUnreachableError{Cause: werr}
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return envelope{}, &ServerUnreachableError{Cause: t.readErr}
		}
		return resp, nil
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, *req.ID)
		t.mu.Unlock()
		return envelope{}, ctx.Err()
	}
}

func (t *stdioTransport) notify(ctx context.Context, req envelope) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return &ServerUnreachableError{Cause: fmt.Errorf("transport is closed")}
	}

	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	t.writeMu.Lock()
	_, werr := t.stdin.Write(b)
	t.writeMu.Unlock()
	if werr != nil {
		return &ServerUnreachableError{Cause: werr}
	}
	return nil
}

func (t *stdioTransport) close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	_ = t.stdin.Close()
	_ = t.stdout.Close()
	<-t.readDone
	if t.cmd != nil {
		_ = t.cmd.Wait()
	}
	return nil
}
