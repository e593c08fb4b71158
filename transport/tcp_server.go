package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vireo-automation/modbusd/codec"
	"github.com/vireo-automation/modbusd/frame"
	"github.com/vireo-automation/modbusd/logging"
)

// TcpServer implements the Modbus TCP slave session: one goroutine per
// accepted connection, each session tracking one outstanding request at a
// time (a request decoded while an earlier one is unanswered replaces it, and
// the earlier request's response is dropped) and closing after
// InactivityTimeout of silence.
// Ref: Modbus_Messaging_Implementation_Guide_V1_0b.pdf, Section 3 (MBAP).
type TcpServer struct {
	Address           string
	InactivityTimeout time.Duration

	logger logging.LoggerInterface
	reqCh  chan<- Request

	mu       sync.Mutex
	listener net.Listener
	running  bool
	cancel   context.CancelFunc
	group    *errgroup.Group

	sessionsMu sync.Mutex
	sessions   map[string]context.CancelFunc
}

// TcpServerOption configures a TcpServer.
type TcpServerOption func(*TcpServer)

// WithTCPLogger sets the logger for the server and its sessions.
func WithTCPLogger(logger logging.LoggerInterface) TcpServerOption {
	return func(s *TcpServer) {
		s.logger = logger
	}
}

// WithTCPInactivityTimeout overrides the default 30s per-session inactivity
// timeout.
func WithTCPInactivityTimeout(d time.Duration) TcpServerOption {
	return func(s *TcpServer) {
		s.InactivityTimeout = d
	}
}

// NewTcpServer creates a TcpServer bound to address, publishing decoded
// requests on reqCh.
func NewTcpServer(address string, reqCh chan<- Request, options ...TcpServerOption) *TcpServer {
	s := &TcpServer{
		Address:           address,
		InactivityTimeout: 30 * time.Second,
		logger:            logging.NewNoopLogger(),
		reqCh:             reqCh,
		sessions:          make(map[string]context.CancelFunc),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Start binds the listener and begins accepting connections in the
// background. It returns once the listener is bound.
func (s *TcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("transport: tcp server already running")
	}

	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	s.listener = listener
	s.running = true
	s.cancel = cancel
	s.group = g
	s.mu.Unlock()

	s.logger.Info(ctx, "tcp server listening on %s", s.Address)

	g.Go(func() error {
		return s.acceptLoop(gctx)
	})

	return nil
}

// Addr returns the listener's bound address, or nil before Start succeeds.
func (s *TcpServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting new connections, cancels every active session,
// and waits for them to finish.
func (s *TcpServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	listener := s.listener
	g := s.group
	s.mu.Unlock()

	cancel()
	if listener != nil {
		listener.Close()
	}

	s.sessionsMu.Lock()
	for _, sessionCancel := range s.sessions {
		sessionCancel()
	}
	s.sessionsMu.Unlock()

	if g != nil {
		g.Wait()
	}

	s.logger.Info(ctx, "tcp server stopped")
	return nil
}

func (s *TcpServer) acceptLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if tcpListener, ok := s.listener.(*net.TCPListener); ok {
			tcpListener.SetDeadline(time.Now().Add(time.Second))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Error(ctx, "accept error: %v", err)
				continue
			}
		}

		remote := conn.RemoteAddr().String()
		s.logger.Info(ctx, "session opened: %s", remote)

		sessionCtx, sessionCancel := context.WithCancel(ctx)
		s.sessionsMu.Lock()
		s.sessions[remote] = sessionCancel
		s.sessionsMu.Unlock()

		s.group.Go(func() error {
			defer func() {
				s.sessionsMu.Lock()
				delete(s.sessions, remote)
				s.sessionsMu.Unlock()
			}()
			s.handleSession(sessionCtx, conn)
			return nil
		})
	}
}

// pendingReply records the one request a session has dispatched and not yet
// answered: the correlation UUID the response must carry and the MBAP
// transaction id the client used.
type pendingReply struct {
	id   uuid.UUID
	mbid uint16
}

// taggedResponse pairs a handler reply with the correlation UUID of the
// request it answers, so the session can tell a current reply from a stale
// one.
type taggedResponse struct {
	id   uuid.UUID
	resp frame.ResponseFrame
}

// readResult is one socket read delivered to the session select loop.
type readResult struct {
	data []byte
	err  error
}

// tcpSession is the per-connection state: the socket, its codec, the input
// buffer, the single response channel every reply forwarder feeds, and the
// record of the request currently awaiting a response.
type tcpSession struct {
	server  *TcpServer
	conn    net.Conn
	remote  string
	codec   *codec.SlaveCodec
	buf     *bytes.Buffer
	respCh  chan taggedResponse
	waitFor *pendingReply
}

func (s *TcpServer) handleSession(ctx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := &tcpSession{
		server: s,
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		codec:  &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Stream},
		buf:    new(bytes.Buffer),
		respCh: make(chan taggedResponse, 1),
	}
	defer func() {
		conn.Close()
		s.logger.Info(ctx, "session closed: %s", sess.remote)
	}()

	sess.run(ctx)
}

// run is the session select loop: socket bytes and handler responses are
// awaited concurrently, so a response can be written while the client is
// already pipelining its next request, and the inactivity deadline keeps
// counting down even when the handler never replies.
func (sess *tcpSession) run(ctx context.Context) {
	s := sess.server
	readCh := make(chan readResult)
	go sess.readLoop(ctx, readCh)

	for {
		select {
		case <-ctx.Done():
			return

		case rr := <-readCh:
			if rr.err != nil {
				if netErr, ok := rr.err.(net.Error); ok && netErr.Timeout() {
					s.logger.Warn(ctx, "session %s: closing after %v of inactivity", sess.remote, s.InactivityTimeout)
					return
				}
				s.logger.Debug(ctx, "session %s: read ended: %v", sess.remote, rr.err)
				return
			}
			traceWire(ctx, s.logger, rr.data)
			sess.buf.Write(rr.data)
			if !sess.decodeAndDispatch(ctx) {
				return
			}

		case tagged := <-sess.respCh:
			if !sess.writeResponse(ctx, tagged) {
				return
			}
		}
	}
}

// readLoop performs the blocking socket reads on its own goroutine so run
// can keep selecting on responses while a read is pending. Every read is
// armed with the inactivity deadline; expiry surfaces as a timeout error,
// which is also what bounds a session whose handler never replies.
func (sess *tcpSession) readLoop(ctx context.Context, readCh chan<- readResult) {
	chunk := make([]byte, 4096)
	for {
		if err := sess.conn.SetReadDeadline(time.Now().Add(sess.server.InactivityTimeout)); err != nil {
			sess.deliver(ctx, readCh, readResult{err: err})
			return
		}

		n, err := sess.conn.Read(chunk)
		if err != nil {
			sess.deliver(ctx, readCh, readResult{err: err})
			return
		}

		data := make([]byte, n)
		copy(data, chunk[:n])
		if !sess.deliver(ctx, readCh, readResult{data: data}) {
			return
		}
	}
}

func (sess *tcpSession) deliver(ctx context.Context, readCh chan<- readResult, rr readResult) bool {
	select {
	case readCh <- rr:
		return true
	case <-ctx.Done():
		return false
	}
}

// decodeAndDispatch drains every complete frame already buffered. Only one
// request is meant to be in flight per session; a pipelined client whose
// second frame decodes while the first is unanswered gets a warning and the
// older correlation is overwritten, so the older request's eventual response
// is dropped by UUID mismatch in writeResponse. Returns false if the session
// should close.
func (sess *tcpSession) decodeAndDispatch(ctx context.Context) bool {
	s := sess.server
	for {
		reqFrame, err := sess.codec.Decode(sess.buf)
		if err != nil {
			s.logger.Error(ctx, "session %s: decode error: %v", sess.remote, err)
			return false
		}
		if reqFrame == nil {
			return true
		}

		if sess.waitFor != nil {
			s.logger.Warn(ctx, "session %s: request mbid %d decoded while mbid %d is unanswered, overwriting the older correlation",
				sess.remote, reqFrame.ID, sess.waitFor.mbid)
		}
		id := uuid.New()
		sess.waitFor = &pendingReply{id: id, mbid: reqFrame.ID}

		replyCh := make(chan frame.ResponseFrame, 1)
		go forwardReply(ctx, id, replyCh, sess.respCh)

		select {
		case s.reqCh <- Request{ID: id, Frame: *reqFrame, RespCh: replyCh}:
		case <-ctx.Done():
			return false
		}
	}
}

// forwardReply tags the handler's reply with its request UUID and feeds the
// session's single response channel. One forwarder runs per dispatched
// request; an abandoned one exits when the session ends.
func forwardReply(ctx context.Context, id uuid.UUID, replyCh <-chan frame.ResponseFrame, respCh chan<- taggedResponse) {
	select {
	case resp := <-replyCh:
		select {
		case respCh <- taggedResponse{id: id, resp: resp}:
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}
}

// writeResponse writes a handler reply back to the client if it answers the
// request currently waited for; replies whose correlation was overwritten
// are dropped. Returns false if the session should close.
func (sess *tcpSession) writeResponse(ctx context.Context, tagged taggedResponse) bool {
	s := sess.server
	if sess.waitFor == nil || tagged.id != sess.waitFor.id {
		s.logger.Warn(ctx, "session %s: dropping stale response for an overwritten request", sess.remote)
		return true
	}
	sess.waitFor = nil

	out, err := sess.codec.Encode(tagged.resp)
	if err != nil {
		s.logger.Error(ctx, "session %s: encode error: %v", sess.remote, err)
		return false
	}
	traceWire(ctx, s.logger, out)
	if _, err := sess.conn.Write(out); err != nil {
		s.logger.Error(ctx, "session %s: write error: %v", sess.remote, err)
		return false
	}
	return true
}
