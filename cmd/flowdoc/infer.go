package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	j "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/shape"
)

func inferCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("infer", flag.ExitOnError)
	var (
		schemaPath string
		openapi    bool
		verbose    bool
		run        inferRun
		input      inputFlags
	)
	fs.StringVar(&schemaPath, "schema", "", "schema to widen from (JSON or YAML)")
	fs.BoolVar(&openapi, "openapi", false, "print an OpenAPI schema as YAML")
	fs.IntVar(&run.rootLimit, "root-limit", shape.MaxRootFields, "maximum properties of the root object")
	fs.IntVar(&run.nestedLimit, "nested-limit", shape.MaxNestedFields, "maximum properties of nested objects")
	fs.IntVar(&run.complexity, "complexity", shape.DefaultComplexityLimit, "maximum shape complexity")
	fs.IntVar(&run.shards, "shards", 1, "number of parallel workers")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	input.register(fs)
	_ = fs.Parse(args)
	if run.shards < 1 {
		fs.Usage()
		os.Exit(2)
	}
	if err := setupLogging(verbose); err != nil {
		slog.Warn("invalid log level", "err", err)
	}
	var err error
	if run.parseOpt, err = input.parseOpt(); err != nil {
		fatalf("%v", err)
	}

	run.start = shape.Invalid()
	if schemaPath != "" {
		ls, err := loadSchema(schemaPath)
		if err != nil {
			fatalf("loading schema: %v", err)
		}
		run.start = shape.Infer(ls.root, ls.index)
	}

	in, closeInputs, err := openInputs(fs.Args())
	if err != nil {
		fatalf("opening input: %v", err)
	}
	defer closeInputs()

	s, err := run.run(ctx, in)
	if err != nil {
		fatalf("infer: %v", err)
	}
	if err := writeShape(os.Stdout, s, openapi); err != nil {
		fatalf("writing output: %v", err)
	}
}

type inferRun struct {
	start       shape.Shape
	rootLimit   int
	nestedLimit int
	complexity  int
	shards      int
	parseOpt    flowdoc.ParseOpt
}

// run widens the starting shape by every document of in, then applies the
// field count and complexity limits.
func (r *inferRun) run(ctx context.Context, in io.Reader) (shape.Shape, error) {
	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan []byte, 64)
	shapes := make([]shape.Shape, r.shards)

	for i := range shapes {
		shapes[i] = shape.Invalid()
		s := &shapes[i]
		g.Go(func() error {
			arena := doc.NewArena()
			for line := range lines {
				arena.Reset()
				root, err := doc.ParseJSON(arena, line, r.parseOpt)
				if err != nil {
					return err
				}
				s.Widen(doc.FromHeap(&root))
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(lines)
		return scanLines(in, func(n int, line []byte) error {
			select {
			case lines <- bytes.Clone(line):
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})
	if err := g.Wait(); err != nil {
		return shape.Shape{}, err
	}

	out := r.start
	for _, s := range shapes {
		out = shape.Union(out, s)
	}
	out.EnforceFieldCountLimits(r.rootLimit, r.nestedLimit)
	out.EnforceComplexityLimit(r.complexity)

	for _, err := range out.Inspect() {
		slog.Warn("inferred shape has a problem", "err", err)
	}
	return out, nil
}

func writeShape(w io.Writer, s shape.Shape, openapi bool) error {
	if !openapi {
		b, err := j.MarshalIndent(shape.ToSchema(s), "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	}

	b, err := j.Marshal(shape.ToOpenAPI(s))
	if err != nil {
		return err
	}
	// JSON is YAML. A yaml.Node keeps the key order of the rendering.
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return fmt.Errorf("converting OpenAPI schema to YAML: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}
