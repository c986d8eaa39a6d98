package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	j "github.com/goccy/go-json"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var (
		schemaPath string
		verbose    bool
		input      inputFlags
	)
	fs.StringVar(&schemaPath, "schema", "", "schema to validate against (JSON or YAML)")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	input.register(fs)
	_ = fs.Parse(args)
	if schemaPath == "" {
		fs.Usage()
		os.Exit(2)
	}
	if err := setupLogging(verbose); err != nil {
		slog.Warn("invalid log level", "err", err)
	}

	popt, err := input.parseOpt()
	if err != nil {
		fatalf("%v", err)
	}
	ls, err := loadSchema(schemaPath)
	if err != nil {
		fatalf("loading schema: %v", err)
	}
	in, closeInputs, err := openInputs(fs.Args())
	if err != nil {
		fatalf("opening input: %v", err)
	}
	defer closeInputs()

	out := bufio.NewWriter(os.Stdout)
	invalid, err := validateLines(ls.validator, popt, in, out)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		fatalf("validate: %v", err)
	}
	if invalid != 0 {
		slog.Info("documents failed validation", "count", invalid)
		os.Exit(1)
	}
}

// validateLines writes the failed validation of each invalid document of
// in, and returns how many there were.
func validateLines(v *schema.Validator, popt flowdoc.ParseOpt, in io.Reader, out io.Writer) (int, error) {
	arena := doc.NewArena()
	invalid := 0
	err := scanLines(in, func(n int, line []byte) error {
		arena.Reset()
		root, err := doc.ParseJSON(arena, line, popt)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		res, err := v.Validate("", doc.FromHeap(&root))
		if err != nil {
			return err
		}
		if res.Valid() {
			return nil
		}
		invalid++
		_, failed := res.Ok()
		body, err := j.Marshal(failed)
		if err != nil {
			return err
		}
		_, err = out.Write(append(body, '\n'))
		return err
	})
	return invalid, err
}
