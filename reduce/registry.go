package reduce

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	j "github.com/goccy/go-json"

	"github.com/reoring/flowdoc/doc"
)

// Strategy reduces the RHS at a cursor into its LHS. Apply returns the
// reduced value and whether the location should be deleted from its parent.
type Strategy interface {
	Name() string
	Apply(c *Cursor) (doc.HeapNode, bool, error)
}

// Factory builds a Strategy from the fields of a reduce annotation other
// than "strategy".
type Factory func(cfg map[string]any) (Strategy, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes a strategy available to reduce annotations. Registering a
// name twice replaces the earlier factory.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Parse builds the Strategy described by a reduce annotation value, such as
// {"strategy": "merge", "key": ["/id"]}.
func Parse(v any) (Strategy, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("reduce annotation must be an object, not %T", v)
	}
	name, ok := m["strategy"].(string)
	if !ok {
		return nil, fmt.Errorf("reduce annotation requires a 'strategy' string")
	}
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown reduce strategy %q", name)
	}
	cfg := make(map[string]any, len(m)-1)
	for k, v := range m {
		if k != "strategy" {
			cfg[k] = v
		}
	}
	s, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("reduce strategy %q: %w", name, err)
	}
	return s, nil
}

// DecodeConfig decodes cfg into out, rejecting fields out doesn't declare.
// Factories use it to read their options.
func DecodeConfig(cfg map[string]any, out any) error {
	if len(cfg) == 0 {
		return nil
	}
	b, err := j.Marshal(cfg)
	if err != nil {
		return err
	}
	dec := j.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

type keyConfig struct {
	Key []string `json:"key"`
}

type mergeConfig struct {
	Key    []string `json:"key"`
	Delete bool     `json:"delete"`
}

type lwwConfig struct {
	Delete      bool  `json:"delete"`
	Associative *bool `json:"associative"`
}

func init() {
	Register("append", simple(Append{}))
	Register("firstWriteWins", simple(FirstWriteWins{}))
	Register("sum", simple(Sum{}))
	Register("lastWriteWins", func(cfg map[string]any) (Strategy, error) {
		var c lwwConfig
		if err := DecodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		s := LastWriteWins{Delete: c.Delete, Associative: true}
		if c.Associative != nil {
			s.Associative = *c.Associative
		}
		return s, nil
	})
	Register("minimize", func(cfg map[string]any) (Strategy, error) {
		var c keyConfig
		if err := DecodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		return Minimize{Key: ParseKey(c.Key)}, nil
	})
	Register("maximize", func(cfg map[string]any) (Strategy, error) {
		var c keyConfig
		if err := DecodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		return Maximize{Key: ParseKey(c.Key)}, nil
	})
	Register("merge", func(cfg map[string]any) (Strategy, error) {
		var c mergeConfig
		if err := DecodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		return Merge{Key: ParseKey(c.Key), Delete: c.Delete}, nil
	})
	Register("set", func(cfg map[string]any) (Strategy, error) {
		var c keyConfig
		if err := DecodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		return Set{Key: ParseKey(c.Key)}, nil
	})
}

func simple(s Strategy) Factory {
	return func(cfg map[string]any) (Strategy, error) {
		if err := DecodeConfig(cfg, &struct{}{}); err != nil {
			return nil, err
		}
		return s, nil
	}
}
