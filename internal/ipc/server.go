package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/austinkregel/local-media/playerd/internal/logging"
	"github.com/austinkregel/local-media/playerd/internal/player"
)

// outboxSize bounds the pushes queued for a slow client
const outboxSize = 64

// maxLineSize bounds a single request line; playTrack carries whole queues
const maxLineSize = 4 << 20

// Server handles IPC communication with clients
type Server struct {
	socketPath string
	player     *player.Controller
	log        zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	clients  map[net.Conn]*clientConn

	// last pushed waveform, so waveform pushes only go out when it changes
	waveformKey string

	unsubscribe func()
}

// clientConn serialises writes to one connection. Responses always queue;
// pushes are dropped when the client falls behind.
type clientConn struct {
	conn       net.Conn
	out        chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.Mutex
	subscribed bool
}

// NewServer creates a new IPC server for the controller
func NewServer(socketPath string, ctrl *player.Controller) *Server {
	s := &Server{
		socketPath: socketPath,
		player:     ctrl,
		log:        logging.For("ipc"),
		clients:    make(map[net.Conn]*clientConn),
	}
	s.unsubscribe = ctrl.Subscribe(s.broadcast)
	return s
}

// Start listens on the socket and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Listen creates the unix socket, replacing a stale one
func (s *Server) Listen() error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// user-only
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info().Str("socket", s.socketPath).Msg("listening")
	return nil
}

// Serve accepts connections until ctx is cancelled, then closes every
// client and removes the socket
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	go s.acceptLoop(ctx, listener)

	<-ctx.Done()
	s.log.Info().Msg("shutting down")

	s.unsubscribe()

	s.mu.Lock()
	clientCount := len(s.clients)
	for _, c := range s.clients {
		c.close()
	}
	s.mu.Unlock()

	listener.Close()
	os.RemoveAll(s.socketPath)

	s.log.Info().Int("clients", clientCount).Msg("server stopped")
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn().Err(err).Msg("accept error")
			continue
		}

		c := &clientConn{
			conn: conn,
			out:  make(chan []byte, outboxSize),
			done: make(chan struct{}),
		}

		s.mu.Lock()
		s.clients[conn] = c
		clientCount := len(s.clients)
		s.mu.Unlock()

		s.log.Debug().Int("clients", clientCount).Msg("client connected")

		go c.writeLoop(s.log)
		go s.handleConnection(ctx, c)
	}
}

func (s *Server) handleConnection(ctx context.Context, c *clientConn) {
	defer func() {
		c.close()
		s.mu.Lock()
		delete(s.clients, c.conn)
		clientCount := len(s.clients)
		s.mu.Unlock()
		s.log.Debug().Int("clients", clientCount).Msg("client disconnected")
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		req, err := DecodeRequest(line)
		if err != nil {
			s.log.Debug().Err(err).Msg("invalid request")
			c.send(NewErrorResponse("invalid request format"))
			continue
		}

		resp := s.handleRequest(ctx, c, req)
		resp.ID = req.ID

		// status polling is too chatty to log
		if req.Cmd != CmdStatus && req.Cmd != CmdWaveform {
			ev := s.log.Debug().Str("cmd", string(req.Cmd)).Bool("success", resp.Success)
			if resp.Error != "" {
				ev = ev.Str("error", resp.Error)
			}
			ev.Msg("request")
		}

		if !c.send(resp) {
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		s.log.Debug().Err(err).Msg("read error")
	}
}

// broadcast pushes state to subscribed clients. It runs on controller
// goroutines and must not block.
func (s *Server) broadcast(snap player.Snapshot) {
	state, err := NewPushMessage(PushState, NewStatusResponse(snap))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode state push")
		return
	}

	wf := NewWaveformResponse(snap)
	key := fmt.Sprintf("%s/%d", wf.TrackID, len(wf.Samples))

	s.mu.Lock()
	var waveform []byte
	if key != s.waveformKey {
		s.waveformKey = key
		waveform, err = NewPushMessage(PushWaveform, wf)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to encode waveform push")
		}
	}
	clients := make([]*clientConn, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if !c.isSubscribed() {
			continue
		}
		c.push(state)
		if waveform != nil {
			c.push(waveform)
		}
	}
}

func (c *clientConn) setSubscribed(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = v
}

func (c *clientConn) isSubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed
}

// send queues a response; it reports false once the connection is closed
func (c *clientConn) send(resp *Response) bool {
	data, err := EncodeResponse(resp)
	if err != nil {
		data, _ = EncodeResponse(&Response{ID: resp.ID, Error: "failed to encode response"})
	}
	select {
	case c.out <- data:
		return true
	case <-c.done:
		return false
	}
}

// push queues a push message, dropping it if the client is behind
func (c *clientConn) push(msg []byte) {
	select {
	case c.out <- msg:
	case <-c.done:
	default:
	}
}

func (c *clientConn) writeLoop(log zerolog.Logger) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			if _, err := c.conn.Write(append(data, '\n')); err != nil {
				log.Debug().Err(err).Msg("write error")
				c.close()
				return
			}
		}
	}
}

func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
