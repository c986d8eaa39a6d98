package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	j "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/combine"
	"github.com/reoring/flowdoc/doc"
)

func combineCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("combine", flag.ExitOnError)
	var (
		configPath  string
		shards      int
		metricsAddr string
		verbose     bool
		input       inputFlags
	)
	fs.StringVar(&configPath, "config", "", "combine config file (YAML)")
	fs.IntVar(&shards, "shards", 1, "number of combiners, keyed by document hash")
	fs.StringVar(&metricsAddr, "metrics-addr", getEnv("FLOWDOC_METRICS_ADDR", ""), "serve Prometheus /metrics on this address")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	input.register(fs)
	_ = fs.Parse(args)
	if configPath == "" || shards < 1 {
		fs.Usage()
		os.Exit(2)
	}
	if err := setupLogging(verbose); err != nil {
		slog.Warn("invalid log level", "err", err)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fatalf("loading config: %v", err)
	}
	spec, err := cfg.spec(filepath.Dir(configPath))
	if err != nil {
		fatalf("loading config: %v", err)
	}

	popt, err := input.parseOpt()
	if err != nil {
		fatalf("%v", err)
	}
	run := &combineRun{
		spec:     spec,
		opts:     cfg.options(),
		parseOpt: popt,
		shards:   shards,
		spillDir: getEnv("FLOWDOC_SPILL_DIR", os.TempDir()),
	}
	run.opts.Logger = slog.Default()

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		if run.opts.Metrics, err = combine.NewMetrics(reg); err != nil {
			fatalf("registering metrics: %v", err)
		}
		srv := serveMetrics(metricsAddr, reg)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	in, closeInputs, err := openInputs(fs.Args())
	if err != nil {
		fatalf("opening input: %v", err)
	}
	defer closeInputs()

	out := bufio.NewWriter(os.Stdout)
	if err := run.run(ctx, in, out); err != nil {
		fatalf("combine: %v", err)
	}
	if err := out.Flush(); err != nil {
		fatalf("writing output: %v", err)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
	return srv
}

// record is one input line. Lines are either an envelope
//
//	{"binding": 1, "front": true, "doc": {...}}
//
// or a bare document of binding zero.
type record struct {
	line    int
	binding int
	front   bool
	doc     []byte
}

func parseRecord(n int, line []byte) record {
	var env struct {
		Binding int          `json:"binding"`
		Front   bool         `json:"front"`
		Doc     j.RawMessage `json:"doc"`
	}
	dec := j.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err == nil && env.Doc != nil {
		return record{line: n, binding: env.Binding, front: env.Front, doc: env.Doc}
	}
	return record{line: n, doc: line}
}

type combinedDoc struct {
	Binding      int          `json:"binding"`
	FullyReduced bool         `json:"fullyReduced"`
	Deleted      bool         `json:"deleted,omitempty"`
	Doc          j.RawMessage `json:"doc"`
}

type combineRun struct {
	spec     *combine.Spec
	opts     combine.Options
	parseOpt flowdoc.ParseOpt
	shards   int
	spillDir string
}

// run combines the documents of in and writes them to out, shard by shard.
// Within a shard, documents are ordered by binding and key.
func (r *combineRun) run(ctx context.Context, in io.Reader, out io.Writer) error {
	opts := r.opts
	opts.ParseOpt = &r.parseOpt

	combiners := make([]*combine.Combiner, r.shards)
	for i := range combiners {
		path := filepath.Join(r.spillDir, fmt.Sprintf("flowdoc-%s.spill", uuid.NewString()))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer os.Remove(path)
		defer f.Close()

		if combiners[i], err = combine.NewCombiner(r.spec, f, opts); err != nil {
			return err
		}
		slog.Debug("started combiner", "shard", i, "spill", path)
	}

	g, gctx := errgroup.WithContext(ctx)
	queues := make([]chan record, r.shards)
	for i := range queues {
		queues[i] = make(chan record, 64)
		c, q := combiners[i], queues[i]
		g.Go(func() error {
			for rec := range q {
				if err := addRecord(c, rec); err != nil {
					return fmt.Errorf("line %d: %w", rec.line, err)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		arena := doc.NewArena()
		return scanLines(in, func(n int, line []byte) error {
			rec := parseRecord(n, bytes.Clone(line))
			if rec.binding < 0 || rec.binding >= len(r.spec.Bindings) {
				return fmt.Errorf("line %d: %w: %d", n, combine.ErrUnknownBinding, rec.binding)
			}
			arena.Reset()
			root, err := doc.ParseJSON(arena, rec.doc, r.parseOpt)
			if err != nil {
				return fmt.Errorf("line %d: %w", n, err)
			}
			shard := doc.HashKey(r.spec.Bindings[rec.binding].Key, doc.FromHeap(&root)) % uint64(r.shards)

			select {
			case queues[shard] <- rec:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	var drained int
	for i, c := range combiners {
		if err := c.Drain(); err != nil {
			return err
		}
		_, err := c.DrainWhile(func(d combine.DrainedDoc, fullyReduced bool) (bool, error) {
			body, err := doc.MarshalJSON(d.Root, doc.SerPolicy{})
			if err != nil {
				return false, err
			}
			line, err := j.Marshal(combinedDoc{Binding: d.Binding, FullyReduced: fullyReduced, Deleted: d.Deleted, Doc: body})
			if err != nil {
				return false, err
			}
			if _, err := out.Write(append(line, '\n')); err != nil {
				return false, err
			}
			drained++
			return ctx.Err() == nil, nil
		})
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Debug("drained shard", "shard", i)
	}
	slog.Info("combined documents", "shards", r.shards, "documents", drained)
	return nil
}

func addRecord(c *combine.Combiner, rec record) error {
	mt, err := c.Memtable()
	if err != nil {
		return err
	}
	n, err := mt.Parse(rec.doc)
	if err != nil {
		return err
	}
	return mt.Add(rec.binding, n, rec.front)
}
