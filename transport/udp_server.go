package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vireo-automation/modbusd/codec"
	"github.com/vireo-automation/modbusd/frame"
	"github.com/vireo-automation/modbusd/logging"
)

const (
	// MaxBufferSize bounds a single UDP datagram; anything larger than the
	// MBAP length field can ever describe would be a malformed send anyway.
	MaxBufferSize = 512
	// MaxRequestsNum bounds how many UDP requests can be awaiting a response
	// at once. There is no per-peer session, so the bound is global.
	MaxRequestsNum = 256
)

// UdpServer implements the Modbus UDP slave session. Unlike TcpServer there
// is no connection and no ordering: each datagram is decoded independently
// (never accumulated with bytes left over from a previous datagram) and
// replies race back to whichever peer address they were sent from.
type UdpServer struct {
	Address string

	logger logging.LoggerInterface
	reqCh  chan<- Request

	mu      sync.Mutex
	conn    *net.UDPConn
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group

	pending *FixedQueue[pendingUDPReply]
}

type pendingUDPReply struct {
	id     uuid.UUID
	peer   *net.UDPAddr
	cancel context.CancelFunc
}

// UdpServerOption configures a UdpServer.
type UdpServerOption func(*UdpServer)

// WithUDPLogger sets the logger for the server.
func WithUDPLogger(logger logging.LoggerInterface) UdpServerOption {
	return func(s *UdpServer) {
		s.logger = logger
	}
}

// NewUdpServer creates a UdpServer bound to address, publishing decoded
// requests on reqCh.
func NewUdpServer(address string, reqCh chan<- Request, options ...UdpServerOption) *UdpServer {
	s := &UdpServer{
		Address: address,
		logger:  logging.NewNoopLogger(),
		reqCh:   reqCh,
		pending: NewFixedQueue[pendingUDPReply](MaxRequestsNum),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Start binds the UDP socket and begins reading datagrams in the
// background.
func (s *UdpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("transport: udp server already running")
	}

	addr, err := net.ResolveUDPAddr("udp", s.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	s.conn = conn
	s.running = true
	s.cancel = cancel
	s.group = g
	s.mu.Unlock()

	s.logger.Info(ctx, "udp server listening on %s", s.Address)

	g.Go(func() error {
		return s.readLoop(gctx)
	})

	return nil
}

// Addr returns the socket's bound address, or nil before Start succeeds.
func (s *UdpServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Shutdown closes the socket and waits for in-flight datagram handlers to
// notice cancellation.
func (s *UdpServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	conn := s.conn
	g := s.group
	s.mu.Unlock()

	cancel()
	if conn != nil {
		conn.Close()
	}
	if g != nil {
		g.Wait()
	}

	s.logger.Info(ctx, "udp server stopped")
	return nil
}

func (s *UdpServer) readLoop(ctx context.Context) error {
	buf := make([]byte, MaxBufferSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Error(ctx, "udp read error: %v", err)
				continue
			}
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		s.group.Go(func() error {
			s.handleDatagram(ctx, datagram, peer)
			return nil
		})
	}
}

func (s *UdpServer) handleDatagram(ctx context.Context, datagram []byte, peer *net.UDPAddr) {
	traceWire(ctx, s.logger, datagram)
	sc := &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Packet}
	buf := bytes.NewBuffer(datagram)

	reqFrame, err := sc.Decode(buf)
	if err != nil {
		s.logger.Error(ctx, "udp decode error from %s: %v", peer, err)
		return
	}
	if reqFrame == nil {
		s.logger.Warn(ctx, "udp datagram from %s too short for a full frame, dropped", peer)
		return
	}

	respCh := make(chan frame.ResponseFrame, 1)
	id := uuid.New()
	reqCtx, reqCancel := context.WithCancel(ctx)

	evicted, didEvict := s.pending.PushReplace(pendingUDPReply{id: id, peer: peer, cancel: reqCancel})
	if didEvict {
		evicted.cancel()
		s.logger.Warn(ctx, "udp pending queue full, dropping oldest correlation for %s", evicted.peer)
	}

	select {
	case s.reqCh <- Request{ID: id, Frame: *reqFrame, RespCh: respCh}:
	case <-reqCtx.Done():
		return
	}

	select {
	case resp := <-respCh:
		out, err := sc.Encode(resp)
		if err != nil {
			s.logger.Error(ctx, "udp encode error for %s: %v", peer, err)
			return
		}
		traceWire(ctx, s.logger, out)
		if _, err := s.conn.WriteToUDP(out, peer); err != nil {
			s.logger.Error(ctx, "udp write error to %s: %v", peer, err)
		}
		s.pending.TakeIf(func(p pendingUDPReply) bool { return p.id == id })
	case <-reqCtx.Done():
		return
	}
}
