// Command tutel runs a Tutel program to completion without a debugger
// attached, printing any error in spec §7's user-visible format and
// exiting with the code listed in spec §6.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	tutel "go.tutel.dev/pkg"
)

const (
	exitFileNotFound = -1
	exitLexError     = -2
	exitParseError   = -3
	exitRuntimeError = -4
	exitOK           = 0
)

func main() {
	var entry string
	var verbose bool

	pflag.StringVar(&entry, "entry", "", "function to run (defaults to the program's entry function)")
	pflag.BoolVar(&verbose, "verbose", false, "log each executed line to stderr")
	pflag.Parse()

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tutel [--entry name] [--verbose] <source.tu>")
		os.Exit(exitFileNotFound)
	}

	os.Exit(run(pflag.Arg(0), entry, verbose))
}

func run(path, entry string, verbose bool) int {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("cannot open source file")
		return exitFileNotFound
	}
	defer file.Close()

	lexer := tutel.NewLexer(tutel.NewSource(file))
	program, err := tutel.NewParser(lexer).Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		if _, ok := err.(*tutel.LexError); ok {
			return exitLexError
		}
		return exitParseError
	}

	interp := tutel.NewInterpreter(tutel.NullGuiHost{}, os.Stdout)
	if verbose {
		interp.SetDebugCallback(func(i *tutel.Interpreter) error {
			frame := i.CallStack().FrameFromTop(0)
			if frame != nil {
				logger.Debug().Str("function", frame.FunctionName).Uint32("line", frame.CurrentLine).Msg("line")
			}
			return nil
		})
	}

	runErr := interp.Execute(program, entry)
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)

		if rte, ok := runErr.(*tutel.RuntimeError); ok {
			fmt.Fprint(os.Stderr, rte.Traceback())
		}
		return exitRuntimeError
	}

	return exitOK
}
