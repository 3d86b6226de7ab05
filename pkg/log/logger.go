package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

var (
	Root    zerolog.Logger
	Chain   zerolog.Logger
	Runtime zerolog.Logger
	Store   zerolog.Logger
)

// Options for Init
type Options struct {
	// LogLevel defaults to Info
	LogLevel zerolog.Level
	Type     LoggerType
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

func Init(opts Options) {
	switch opts.Type {
	case ConsoleLogger:
		Root = zerolog.New(newConsoleWriter()).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		Root = zerolog.New(os.Stdout).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}
	Chain = Root.With().Str("component", "chain").Logger()
	Runtime = Root.With().Str("component", "runtime").Logger()
	Store = Root.With().Str("component", "store").Logger()
}

func newConsoleWriter() zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}
	return cw
}
