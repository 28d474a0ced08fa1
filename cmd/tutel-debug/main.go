// Command tutel-debug exposes the Tutel debugger over stdio or a TCP
// socket, per spec §4.6's two transports.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"go.tutel.dev/debugger"
	tutel "go.tutel.dev/pkg"
)

func main() {
	var transportKind string
	var addr string
	var verbose bool

	pflag.StringVar(&transportKind, "transport", "stdio", "transport to serve on: stdio or socket")
	pflag.StringVar(&addr, "addr", "localhost:4747", "address to listen on when --transport=socket")
	pflag.BoolVar(&verbose, "verbose", false, "log debug session activity to stderr")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	var transport debugger.Transport
	switch transportKind {
	case "stdio":
		transport = debugger.NewStdioTransport(os.Stdin, os.Stdout)
	case "socket":
		transport = debugger.NewSocketTransport(addr)
	default:
		fmt.Fprintf(os.Stderr, "unknown transport %q: want stdio or socket\n", transportKind)
		os.Exit(1)
	}

	d := debugger.New(tutel.NullGuiHost{}, logger)

	if err := transport.Start(d.Dispatch); err != nil {
		logger.Fatal().Err(err).Msg("failed to start transport")
	}

	go func() {
		for ev := range d.Events() {
			if err := transport.Emit(ev); err != nil {
				logger.Error().Err(err).Msg("failed to emit event")
			}
		}
	}()

	if err := transport.Join(); err != nil {
		logger.Error().Err(err).Msg("transport stopped with error")
	}
}
