// Command flowdoc combines, validates and infers schemas of JSON documents.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/reoring/flowdoc"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "combine":
		combineCmd(ctx, os.Args[2:])
	case "infer":
		inferCmd(ctx, os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `flowdoc CLI

Usage:
  flowdoc combine -config combine.yaml [-shards N] [-metrics-addr :9090] [input flags] [files...]
  flowdoc infer [-schema s.yaml] [-openapi] [-root-limit 750] [-nested-limit 200] [input flags] [files...]
  flowdoc validate -schema s.yaml [input flags] [files...]

Documents are read as JSON lines from the named files, or stdin.

Input flags:
  -strict                duplicate keys fail, depth 256, 64MiB per document
  -duplicate-keys P      ignore, warn or error
  -max-depth N           maximum nesting depth (0 disables)
  -max-bytes N           maximum bytes per document (0 disables)

Environment (also read from .env):
  FLOWDOC_LOG_LEVEL     debug, info, warn or error
  FLOWDOC_SPILL_DIR     directory of combine spill files
  FLOWDOC_METRICS_ADDR  default of combine -metrics-addr`)
}

func setupLogging(verbose bool) error {
	level := getEnv("FLOWDOC_LOG_LEVEL", "info")
	if verbose {
		level = "debug"
	}
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(level))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
	return err
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// openInputs concatenates the named files, or returns stdin if there are
// none. The returned func closes them.
func openInputs(paths []string) (io.Reader, func(), error) {
	if len(paths) == 0 {
		return os.Stdin, func() {}, nil
	}
	var (
		readers []io.Reader
		files   []*os.File
	)
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	return io.MultiReader(readers...), closeAll, nil
}

const maxLineSize = 64 << 20

// scanLines calls fn with each non-empty line of r and its 1-based number.
// The line is only valid during the call.
func scanLines(r io.Reader, fn func(n int, line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineSize)
	for n := 1; sc.Scan(); n++ {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// inputFlags are the parse limits applied to each input document.
type inputFlags struct {
	strict   bool
	dupKeys  string
	maxDepth int
	maxBytes int64
}

func (f *inputFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&f.strict, "strict", false, "apply strict limits to input documents")
	fs.StringVar(&f.dupKeys, "duplicate-keys", "", "duplicate key policy: ignore, warn or error")
	fs.IntVar(&f.maxDepth, "max-depth", -1, "maximum nesting depth of input documents")
	fs.Int64Var(&f.maxBytes, "max-bytes", -1, "maximum size of an input document")
}

// parseOpt resolves the flags. Explicit limits override -strict.
func (f *inputFlags) parseOpt() (flowdoc.ParseOpt, error) {
	var opt flowdoc.ParseOpt
	if f.strict {
		opt = flowdoc.StrictParseOpt()
	}
	switch f.dupKeys {
	case "":
	case "ignore":
		opt.OnDuplicateKey = flowdoc.DuplicateIgnore
	case "warn":
		opt.OnDuplicateKey = flowdoc.DuplicateWarn
	case "error":
		opt.OnDuplicateKey = flowdoc.DuplicateError
	default:
		return opt, fmt.Errorf("unknown duplicate key policy %q", f.dupKeys)
	}
	if f.maxDepth >= 0 {
		opt.MaxDepth = f.maxDepth
	}
	if f.maxBytes >= 0 {
		opt.MaxBytes = f.maxBytes
	}
	if opt.OnDuplicateKey == flowdoc.DuplicateWarn {
		opt.IssueSink = func(is flowdoc.Issue) {
			slog.Warn("input issue", "code", is.Code, "path", is.Path, "msg", is.Message)
		}
	}
	return opt, nil
}

func fatalf(format string, a ...any) {
	slog.Error(fmt.Sprintf(format, a...))
	os.Exit(1)
}
