package controlplane

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/pinnacle/internal/logger"
	"github.com/google/uuid"
)

// clientIdKey is the context.Value key serveConn stores each connection's
// generated client id under, so handlers and logs can correlate multiple
// calls from the same peer without the wire protocol carrying an identity
// of its own.
type clientIdKey struct{}

// ClientId returns the per-connection id assigned to ctx by serveConn, or
// "" if ctx did not come from a Server connection.
func ClientId(ctx context.Context) string {
	id, _ := ctx.Value(clientIdKey{}).(string)
	return id
}

// ResolveSocketDir picks the control-plane socket directory, per spec.md
// §4.8 "Socket discovery": preferDir if set, else $XDG_RUNTIME_DIR, else
// /tmp.
func ResolveSocketDir(preferDir string) string {
	if preferDir != "" {
		return preferDir
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// ResolveSocketPath finds the lowest-numbered unused `pinnacle-grpc[-N].sock`
// path under dir, per spec.md §4.8 ("name pinnacle-grpc.sock when only one
// compositor instance is running, else pinnacle-grpc-N.sock with N the
// lowest unused integer").
func ResolveSocketPath(dir string) string {
	base := filepath.Join(dir, "pinnacle-grpc.sock")
	if !socketInUse(base) {
		return base
	}
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("pinnacle-grpc-%d.sock", n))
		if !socketInUse(candidate) {
			return candidate
		}
	}
}

// socketInUse reports whether a path names a live unix socket (a stale
// socket file with nothing listening is treated as available, matching the
// teacher's NewSocketServer which unconditionally os.RemoveAll's the old
// path before listening).
func socketInUse(path string) bool {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ConnWriter serializes writes to one connection, since a streaming RPC's
// background pusher and the request-handling goroutine both write to the
// same net.Conn. Per spec.md §5 "the only lock in the design is the
// peer-facing outbound stream queue, which is held for the duration of a
// single emission and nothing else."
type ConnWriter struct {
	mu   sync.Mutex
	conn net.Conn
}

// Write sends one framed Envelope, holding the lock only for the write.
func (c *ConnWriter) Write(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteEnvelope(c.conn, env)
}

// Handler processes one decoded Envelope (already read off the wire). It
// may write replies/stream frames through w at any point, including from a
// goroutine it spawns for a long-lived stream.
type Handler func(ctx context.Context, w *ConnWriter, env Envelope) error

// Server is the unix-domain-socket RPC listener from spec.md §4.8,
// grounded on the teacher's internal/ipc.SocketServer (0600 perms,
// accept-loop + cancel + WaitGroup shape).
type Server struct {
	mu       sync.Mutex
	listener net.Listener
	path     string
	handler  Handler
	token    []byte
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	running  bool
}

// NewServer constructs a Server bound to a resolved socket path.
func NewServer(path string, handler Handler) *Server {
	return &Server{path: path, handler: handler}
}

// SetToken installs a per-run control token; once set, every connection
// must open with a matching handshake digest (see auth.go) before its
// envelopes are dispatched.
func (s *Server) SetToken(token []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Path returns the socket path this server listens on.
func (s *Server) Path() string { return s.path }

// Start creates the unix socket listener and begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	logger.Infof("control plane socket listening at %s", s.path)
	return nil
}

// Stop closes the listener, waits for in-flight connections to unwind, and
// removes the socket file.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.RemoveAll(s.path)
	logger.Info("control plane socket stopped")
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Errorf("control plane accept: %v", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != nil {
		if err := VerifyHandshake(conn, token); err != nil {
			logger.Errorf("control plane handshake: %v", err)
			return
		}
	}

	clientId := uuid.NewString()
	ctx = context.WithValue(ctx, clientIdKey{}, clientId)
	logger.Debugf("control plane client %s connected", clientId)
	defer logger.Debugf("control plane client %s disconnected", clientId)

	w := &ConnWriter{conn: conn}
	for {
		env, err := ReadEnvelope(conn)
		if err != nil {
			return // peer closed its half; per-stream cleanup happens in the handler's ctx.Done path
		}
		if err := s.handler(ctx, w, env); err != nil {
			logger.Errorf("control plane handler (%s.%s): %v", env.Service, env.Method, err)
			return
		}
	}
}
