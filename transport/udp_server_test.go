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

func TestUdpServerRoundTrip(t *testing.T) {
	reqCh := make(chan transport.Request)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case req := <-reqCh:
				p := req.Frame.PDU.(frame.ReadCoilsRequest)
				resp, _ := frame.NewReadCoilsResponse(p.NObjs, []byte{0x0D})
				req.RespCh <- frame.ResponseFrame{ID: req.Frame.ID, Slave: req.Frame.Slave, PDU: resp}
			case <-stop:
				return
			}
		}
	}()

	srv := transport.NewUdpServer("127.0.0.1:0", reqCh)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, srv.Start(ctx))
	defer srv.Shutdown(context.Background())

	clientConn, err := net.Dial("udp", srv.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	// transaction 5, unit 0x01, ReadCoils addr 0x0000 count 8.
	request := []byte{0x00, 0x05, 0x00, 0x00, 0x00, 0x06, 0x01, 0x01, 0x00, 0x00, 0x00, 0x08}
	_, err = clientConn.Write(request)
	require.NoError(t, err)

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := make([]byte, 32)
	n, err := clientConn.Read(resp)
	require.NoError(t, err)

	require.Equal(t, []byte{
		0x00, 0x05, 0x00, 0x00, 0x00, 0x04,
		0x01, 0x01, 0x01, 0x0D,
	}, resp[:n])
}
