package transport

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/vireo-automation/modbusd/codec"
	"github.com/vireo-automation/modbusd/frame"
	"github.com/vireo-automation/modbusd/logging"
)

// SilenceInterval is the inter-frame silence RTU uses to tell a partial
// frame apart from the start of the next one. A read that times out while a
// partial frame is buffered is treated as that much silence and the stale
// bytes are discarded. Ref: Modbus_over_serial_line_V1_02.pdf, Section 2.5.1.
const SilenceInterval = 250 * time.Millisecond

// RtuChannel implements the Modbus RTU slave session over a serial port.
// The link is half-duplex: a request is fully processed and answered before
// the next read.
type RtuChannel struct {
	Device string
	Mode   *serial.Mode

	logger logging.LoggerInterface
	reqCh  chan<- Request

	mu      sync.Mutex
	port    serial.Port
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// RtuChannelOption configures an RtuChannel.
type RtuChannelOption func(*RtuChannel)

// WithRTULogger sets the logger for the channel.
func WithRTULogger(logger logging.LoggerInterface) RtuChannelOption {
	return func(c *RtuChannel) {
		c.logger = logger
	}
}

// NewRtuChannel creates an RtuChannel for device with the given serial
// mode, publishing decoded requests on reqCh.
func NewRtuChannel(device string, mode *serial.Mode, reqCh chan<- Request, options ...RtuChannelOption) *RtuChannel {
	c := &RtuChannel{
		Device: device,
		Mode:   mode,
		logger: logging.NewNoopLogger(),
		reqCh:  reqCh,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// minRTUDeviceNameLen rejects device names too short to be a real path.
const minRTUDeviceNameLen = 4

// ParseRTUDeviceURI parses the "NAME:SPEED-DATABITS-PARITY-STOPBITS" device
// grammar, validating name length, then speed, then parity, then stop bits
// in that order. DATABITS must be present to satisfy the grammar but is
// otherwise ignored by this layer: the driver's own default applies, so it
// is never copied into the returned serial.Mode.
func ParseRTUDeviceURI(uri string) (device string, mode *serial.Mode, err error) {
	name, rest, found := strings.Cut(uri, ":")
	if !found || len(name) < minRTUDeviceNameLen {
		return "", nil, fmt.Errorf("transport: rtu uri %q has a device name shorter than %d characters", uri, minRTUDeviceNameLen)
	}

	parts := strings.Split(rest, "-")
	if len(parts) != 4 {
		return "", nil, fmt.Errorf("transport: rtu uri %q must be NAME:SPEED-DATABITS-PARITY-STOPBITS", uri)
	}

	speed, err := strconv.Atoi(parts[0])
	if err != nil || speed <= 0 {
		return "", nil, fmt.Errorf("transport: rtu uri %q has invalid speed %q", uri, parts[0])
	}

	var parity serial.Parity
	switch parts[2] {
	case "N":
		parity = serial.NoParity
	case "E":
		parity = serial.EvenParity
	case "O":
		parity = serial.OddParity
	default:
		return "", nil, fmt.Errorf("transport: rtu uri %q has invalid parity %q", uri, parts[2])
	}

	var stopBits serial.StopBits
	switch parts[3] {
	case "1":
		stopBits = serial.OneStopBit
	case "2":
		stopBits = serial.TwoStopBits
	default:
		return "", nil, fmt.Errorf("transport: rtu uri %q has invalid stop bits %q", uri, parts[3])
	}

	return name, &serial.Mode{
		BaudRate: speed,
		Parity:   parity,
		StopBits: stopBits,
	}, nil
}

// Start opens the serial port, clears the driver's input and output buffers,
// and begins the read/process/reply loop in the background.
func (c *RtuChannel) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("transport: rtu channel already running")
	}

	port, err := serial.Open(c.Device, c.Mode)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("transport: opening %s: %w", c.Device, err)
	}
	if err := port.SetReadTimeout(SilenceInterval); err != nil {
		port.Close()
		c.mu.Unlock()
		return fmt.Errorf("transport: setting read timeout on %s: %w", c.Device, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		c.mu.Unlock()
		return fmt.Errorf("transport: clearing input buffer on %s: %w", c.Device, err)
	}
	if err := port.ResetOutputBuffer(); err != nil {
		port.Close()
		c.mu.Unlock()
		return fmt.Errorf("transport: clearing output buffer on %s: %w", c.Device, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.port = port
	c.running = true
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.logger.Info(ctx, "rtu channel opened on %s", c.Device)

	go func() {
		defer close(c.done)
		c.readLoop(runCtx)
	}()

	return nil
}

// Shutdown cancels the read loop and closes the serial port.
func (c *RtuChannel) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	cancel := c.cancel
	port := c.port
	done := c.done
	c.mu.Unlock()

	cancel()
	if port != nil {
		port.Close()
	}
	if done != nil {
		<-done
	}

	c.logger.Info(ctx, "rtu channel closed on %s", c.Device)
	return nil
}

func (c *RtuChannel) readLoop(ctx context.Context) {
	sc := &codec.SlaveCodec{Mode: codec.ModeRtu, FlowType: codec.Stream}
	buf := new(bytes.Buffer)
	chunk := make([]byte, 256)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := c.port.Read(chunk)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				c.logger.Error(ctx, "rtu read error on %s: %v", c.Device, err)
				return
			}
		}

		if n == 0 {
			// SetReadTimeout expired: SilenceInterval passed with nothing
			// received. A partial frame sitting in buf is now stale noise,
			// not a continuation of the next one.
			if buf.Len() > 0 {
				c.logger.Debug(ctx, "rtu %s: discarding %d stale byte(s) after silence", c.Device, buf.Len())
				buf.Reset()
			}
			continue
		}

		traceWire(ctx, c.logger, chunk[:n])
		buf.Write(chunk[:n])

		for {
			reqFrame, err := sc.Decode(buf)
			if err != nil {
				c.logger.Error(ctx, "rtu %s: decode error: %v", c.Device, err)
				buf.Reset()
				break
			}
			if reqFrame == nil {
				break
			}
			c.dispatchAndReply(ctx, sc, *reqFrame)
		}
	}
}

// dispatchAndReply sends one decoded frame to the handler channel and
// blocks for its response before returning, enforcing half-duplex ordering:
// nothing else is read from the port while a reply is outstanding.
func (c *RtuChannel) dispatchAndReply(ctx context.Context, sc *codec.SlaveCodec, reqFrame frame.RequestFrame) {
	respCh := make(chan frame.ResponseFrame, 1)
	req := Request{ID: uuid.New(), Frame: reqFrame, RespCh: respCh}

	select {
	case c.reqCh <- req:
	case <-ctx.Done():
		return
	}

	select {
	case resp := <-respCh:
		out, err := sc.Encode(resp)
		if err != nil {
			c.logger.Error(ctx, "rtu %s: encode error: %v", c.Device, err)
			return
		}
		traceWire(ctx, c.logger, out)
		if _, err := c.port.Write(out); err != nil {
			c.logger.Error(ctx, "rtu %s: write error: %v", c.Device, err)
		}
	case <-ctx.Done():
	}
}
