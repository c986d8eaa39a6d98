package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/flowdoc/combine"
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

type combineConfig struct {
	SpillThreshold  int             `yaml:"spillThreshold"`
	ChunkTargetSize int             `yaml:"chunkTargetSize"`
	Compress        bool            `yaml:"compress"`
	Bindings        []bindingConfig `yaml:"bindings"`
}

type bindingConfig struct {
	Name string `yaml:"name"`
	// Schema is a JSON or YAML schema file, relative to the config file.
	Schema string   `yaml:"schema"`
	Key    []string `yaml:"key"`
	Full   bool     `yaml:"full"`
}

func loadConfig(path string) (*combineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg combineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(cfg.Bindings) == 0 {
		return nil, fmt.Errorf("%s: no bindings", path)
	}
	return &cfg, nil
}

// spec builds the combine Spec, resolving schema files against dir.
func (c *combineConfig) spec(dir string) (*combine.Spec, error) {
	spec := &combine.Spec{}
	for i, bc := range c.Bindings {
		name := bc.Name
		if name == "" {
			name = fmt.Sprintf("binding%d", i)
		}
		if len(bc.Key) == 0 {
			return nil, fmt.Errorf("binding %q: key is required", name)
		}
		b := combine.Binding{Name: name, Full: bc.Full}
		for _, ptr := range bc.Key {
			b.Key = append(b.Key, doc.NewExtractor(ptr))
		}
		if bc.Schema != "" {
			path := bc.Schema
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			ls, err := loadSchema(path)
			if err != nil {
				return nil, fmt.Errorf("binding %q: %w", name, err)
			}
			b.Validator = ls.validator
		}
		spec.Bindings = append(spec.Bindings, b)
	}
	return spec, nil
}

func (c *combineConfig) options() combine.Options {
	return combine.Options{
		SpillThreshold:  c.SpillThreshold,
		ChunkTargetSize: c.ChunkTargetSize,
		Compress:        c.Compress,
	}
}

type loadedSchema struct {
	root      *schema.Schema
	index     *schema.Index
	validator *schema.Validator
}

// loadSchema builds the schema file at path, decoding it as YAML unless it
// has a .json extension. Its canonical URI is its file URL.
func loadSchema(path string) (*loadedSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	curi := "file://" + filepath.ToSlash(abs)

	var root *schema.Schema
	if strings.EqualFold(filepath.Ext(path), ".json") {
		root, err = schema.BuildJSON(curi, data)
	} else {
		root, err = schema.BuildYAML(curi, data)
	}
	if err != nil {
		return nil, err
	}
	ib := schema.NewIndexBuilder()
	if err := ib.Add(root); err != nil {
		return nil, err
	}
	idx, err := ib.Build()
	if err != nil {
		return nil, err
	}
	return &loadedSchema{
		root:      idx.Roots()[0],
		index:     idx,
		validator: schema.NewValidator(idx).WithDefault(curi),
	}, nil
}
