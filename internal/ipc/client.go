package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
)

// ErrClientClosed is returned for calls on a closed client
var ErrClientClosed = errors.New("ipc client closed")

// Client talks to a running daemon over its socket. Calls may be made
// concurrently; responses are matched to requests by id.
type Client struct {
	conn   net.Conn
	writeM sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *Response
	closed  bool
	err     error

	pushes chan PushMessage
	done   chan struct{}
}

// Dial connects to the daemon socket
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", socketPath, err)
	}
	return newClient(conn), nil
}

func newClient(conn net.Conn) *Client {
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan *Response),
		pushes:  make(chan PushMessage, outboxSize),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Pushes delivers state and waveform pushes after Subscribe. The channel is
// closed when the connection ends.
func (c *Client) Pushes() <-chan PushMessage {
	return c.pushes
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Call sends cmd with data and decodes the response data into result, which
// may be nil. A response with success=false becomes an error.
func (c *Client) Call(ctx context.Context, cmd CommandType, data, result interface{}) error {
	req := &Request{ID: uuid.NewString(), Cmd: cmd}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode %s data: %w", cmd, err)
		}
		req.Data = raw
	}

	line, err := EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	ch := make(chan *Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	c.writeM.Lock()
	_, err = c.conn.Write(append(line, '\n'))
	c.writeM.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closeErr()
	case resp := <-ch:
		if !resp.Success {
			return &RemoteError{Cmd: cmd, Message: resp.Error}
		}
		if result != nil && len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, result); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", cmd, err)
			}
		}
		return nil
	}
}

// Status returns the current session state
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var status StatusResponse
	err := c.Call(ctx, CmdStatus, nil, &status)
	return status, err
}

// Waveform returns the current track's waveform
func (c *Client) Waveform(ctx context.Context) (WaveformResponse, error) {
	var wf WaveformResponse
	err := c.Call(ctx, CmdWaveform, nil, &wf)
	return wf, err
}

// Subscribe starts state pushes and returns the state at subscription time
func (c *Client) Subscribe(ctx context.Context) (StatusResponse, error) {
	var status StatusResponse
	err := c.Call(ctx, CmdSubscribe, nil, &status)
	return status, err
}

// Close closes the connection
func (c *Client) Close() error {
	c.shutdown(ErrClientClosed)
	return nil
}

// RemoteError is a command failure reported by the daemon
type RemoteError struct {
	Cmd     CommandType
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Cmd, e.Message)
}

func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		var env envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			continue
		}

		if env.isPush() {
			select {
			case c.pushes <- PushMessage{Type: env.Type, Data: env.Data}:
			default:
				// consumer is behind; newer state will follow
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		c.mu.Unlock()
		if ok {
			ch <- &Response{ID: env.ID, Success: env.Success, Error: env.Error, Data: env.Data}
		}
	}

	err := scanner.Err()
	if err == nil {
		err = errors.New("connection closed by daemon")
	}
	c.shutdown(err)
	close(c.pushes)
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = err
	c.mu.Unlock()

	c.conn.Close()
	close(c.done)
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
