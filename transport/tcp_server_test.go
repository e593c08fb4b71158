package transport_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vireo-automation/modbusd/frame"
	"github.com/vireo-automation/modbusd/transport"
)

// echoHandler answers every ReadHoldingRegistersRequest with a fixed
// payload and everything else with IllegalFunction, simulating the
// out-of-scope collaborator a real binary would wire in.
func echoHandler(reqCh <-chan transport.Request, stop <-chan struct{}) {
	for {
		select {
		case req := <-reqCh:
			switch p := req.Frame.PDU.(type) {
			case frame.ReadHoldingRegistersRequest:
				// native-pair encoding (low byte, high byte) for wire value 0x002A.
				resp, _ := frame.NewReadHoldingRegistersResponse(p.NObjs, []byte{0x2A, 0x00})
				req.RespCh <- frame.ResponseFrame{ID: req.Frame.ID, Slave: req.Frame.Slave, PDU: resp}
			default:
				resp := frame.NewExceptionResponse(req.Frame.PDU.FunctionCode(), frame.IllegalFunction)
				req.RespCh <- frame.ResponseFrame{ID: req.Frame.ID, Slave: req.Frame.Slave, PDU: resp}
			}
		case <-stop:
			return
		}
	}
}

func TestTcpServerRoundTrip(t *testing.T) {
	reqCh := make(chan transport.Request)
	stop := make(chan struct{})
	defer close(stop)
	go echoHandler(reqCh, stop)

	srv := transport.NewTcpServer("127.0.0.1:0", reqCh)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, srv.Start(ctx))
	defer srv.Shutdown(context.Background())

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	// transaction 1, unit 0x11, ReadHoldingRegisters addr 0x006B count 1.
	request := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x01}
	_, err = conn.Write(request)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := make([]byte, 32)
	n, err := conn.Read(resp)
	require.NoError(t, err)

	require.Equal(t, []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x05,
		0x11, 0x03, 0x02, 0x00, 0x2A,
	}, resp[:n])
}

func TestTcpServerPipelinedRequestsDropOverwrittenResponse(t *testing.T) {
	reqCh := make(chan transport.Request)
	stop := make(chan struct{})
	defer close(stop)

	// Delay every reply so both pipelined frames are decoded and dispatched
	// before the first answer can arrive; the first correlation is then
	// overwritten and its response must be dropped, not written.
	go func() {
		for {
			select {
			case req := <-reqCh:
				go func(req transport.Request) {
					time.Sleep(150 * time.Millisecond)
					p := req.Frame.PDU.(frame.ReadHoldingRegistersRequest)
					resp, _ := frame.NewReadHoldingRegistersResponse(p.NObjs, []byte{0x2A, 0x00})
					req.RespCh <- frame.ResponseFrame{ID: req.Frame.ID, Slave: req.Frame.Slave, PDU: resp}
				}(req)
			case <-stop:
				return
			}
		}
	}()

	srv := transport.NewTcpServer("127.0.0.1:0", reqCh)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, srv.Start(ctx))
	defer srv.Shutdown(context.Background())

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	// Two back-to-back requests in one write: transactions 1 and 2.
	pipelined := []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x01,
		0x00, 0x02, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x01,
	}
	_, err = conn.Write(pipelined)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := make([]byte, 32)
	n, err := conn.Read(resp)
	require.NoError(t, err)

	// Only the newer request survives; its response carries transaction 2.
	require.Equal(t, []byte{
		0x00, 0x02, 0x00, 0x00, 0x00, 0x05,
		0x11, 0x03, 0x02, 0x00, 0x2A,
	}, resp[:n])

	// The overwritten transaction-1 response never arrives.
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, err = conn.Read(resp)
	require.Error(t, err)
}

func TestTcpServerNonRespondingHandlerClosesOnInactivity(t *testing.T) {
	reqCh := make(chan transport.Request)
	stop := make(chan struct{})
	defer close(stop)

	// Drain requests but never reply.
	go func() {
		for {
			select {
			case <-reqCh:
			case <-stop:
				return
			}
		}
	}()

	srv := transport.NewTcpServer("127.0.0.1:0", reqCh,
		transport.WithTCPInactivityTimeout(200*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, srv.Start(ctx))
	defer srv.Shutdown(context.Background())

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	request := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x01}
	_, err = conn.Write(request)
	require.NoError(t, err)

	// The session must not hang on the missing reply: the inactivity
	// deadline still fires and the server closes the connection.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(make([]byte, 32))
	require.Error(t, err)
	netErr, ok := err.(net.Error)
	require.False(t, ok && netErr.Timeout(), "expected the server to close the connection, not a client-side read timeout")
}

func TestTcpServerUnknownFunctionReturnsException(t *testing.T) {
	reqCh := make(chan transport.Request)
	stop := make(chan struct{})
	defer close(stop)
	go echoHandler(reqCh, stop)

	srv := transport.NewTcpServer("127.0.0.1:0", reqCh)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, srv.Start(ctx))
	defer srv.Shutdown(context.Background())

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	// function 0x07 is not decodable as a known request, surfaces as Raw and
	// the demo handler answers with IllegalFunction.
	request := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x02, 0x11, 0x07}
	_, err = conn.Write(request)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := make([]byte, 32)
	n, err := conn.Read(resp)
	require.NoError(t, err)

	require.Equal(t, []byte{
		0x00, 0x02, 0x00, 0x00, 0x00, 0x03,
		0x11, 0x87, 0x01,
	}, resp[:n])
}
