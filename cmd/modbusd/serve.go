package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vireo-automation/modbusd/logging"
	"github.com/vireo-automation/modbusd/transport"
)

var serveLogLevel string

var serveCmd = &cobra.Command{
	Use:   "serve <listen-uri>",
	Short: "run a Modbus slave session against an in-memory data table",
	Long: `serve starts one Modbus slave session and answers requests against
an in-memory data table. listen-uri selects the transport:

  tcp:<host>:<port>
  udp:<host>:<port>
  serial:<device>:<speed>-<databits>-<parity>-<stopbits>

Example: modbusd serve tcp:0.0.0.0:502
         modbusd serve serial:/dev/ttyUSB0:9600-8-N-1`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "trace, debug, info, warn, error, or none")
}

func runServe(cmd *cobra.Command, args []string) error {
	level, err := parseLogLevel(serveLogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(logging.WithLevel(level))

	session, err := buildSession(args[0], logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("starting %s: %w", args[0], err)
	}

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return session.Shutdown(shutdownCtx)
}

type session interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// buildSession parses listenURI and wires the matching transport to a fresh
// demo handler consuming its request channel.
func buildSession(listenURI string, logger logging.LoggerInterface) (session, error) {
	store := newMemoryStore()
	reqCh := make(chan transport.Request)
	handler := newDemoHandler(store, logger)
	go runHandler(reqCh, handler)

	scheme, rest, found := strings.Cut(listenURI, ":")
	if !found {
		return nil, fmt.Errorf("modbusd: listen uri %q must start with tcp:, udp:, or serial:", listenURI)
	}

	switch scheme {
	case "tcp":
		return transport.NewTcpServer(rest, reqCh, transport.WithTCPLogger(logger)), nil
	case "udp":
		return transport.NewUdpServer(rest, reqCh, transport.WithUDPLogger(logger)), nil
	case "serial":
		device, mode, err := transport.ParseRTUDeviceURI(rest)
		if err != nil {
			return nil, err
		}
		return transport.NewRtuChannel(device, mode, reqCh, transport.WithRTULogger(logger)), nil
	default:
		return nil, fmt.Errorf("modbusd: unknown transport scheme %q", scheme)
	}
}

// runHandler drains reqCh for the lifetime of the process, handling each
// request in its own goroutine so one slow session never blocks another.
func runHandler(reqCh <-chan transport.Request, handler transport.Handler) {
	for req := range reqCh {
		go handler(context.Background(), req)
	}
}

func parseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "trace":
		return logging.LevelTrace, nil
	case "debug":
		return logging.LevelDebug, nil
	case "info":
		return logging.LevelInfo, nil
	case "warn":
		return logging.LevelWarn, nil
	case "error":
		return logging.LevelError, nil
	case "none":
		return logging.LevelNone, nil
	default:
		return 0, fmt.Errorf("modbusd: unknown log level %q", s)
	}
}

const shutdownGrace = 5 * time.Second
