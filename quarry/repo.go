// Package quarry is the query execution and result-materialization core
// of the quarry data-access layer. Given a logical query and runtime
// options it compiles an execution plan, drives a storage adapter, and
// reconstructs the caller-requested result shape from the flat,
// positionally decoded values the adapter returns.
//
// PIPELINE:
//
//	caller → derivation helpers (get/get_by/one) → orchestrator
//	       → planner compile → adapter execute (leaf decoding happens
//	         adapter-side via a supplied callback) → association merge
//	       → preload → row shaping → results
//
// The core holds no state across calls: each invocation is one compiled
// plan, one adapter round trip, one shaping pass. Failures from the
// planner, adapter, record loader, or scalar decoder propagate
// immediately and abort the whole operation.
package quarry

import (
	"github.com/quarrydb/quarry/quarry/plan"
	"github.com/quarrydb/quarry/quarry/schema"
	"github.com/quarrydb/quarry/quarry/storage"
)

// Repo executes logical queries against one storage adapter.
type Repo struct {
	adapter storage.Adapter
	planner *plan.Compiler
	loader  schema.Loader
	prefix  string
}

// Config customizes a Repo beyond its adapter.
type Config struct {
	// Prefix is the default source prefix (schema/attach name)
	// statements are qualified with. Overridable per call.
	Prefix string

	// Loader builds typed records; defaults to schema.MapLoader.
	Loader schema.Loader
}

// New creates a Repo over an adapter with default configuration.
func New(adapter storage.Adapter) *Repo {
	return NewWithConfig(adapter, Config{})
}

// NewWithConfig creates a Repo with explicit configuration.
func NewWithConfig(adapter storage.Adapter, cfg Config) *Repo {
	loader := cfg.Loader
	if loader == nil {
		loader = schema.MapLoader{}
	}
	return &Repo{
		adapter: adapter,
		planner: &plan.Compiler{Style: adapter.PlaceholderStyle(), Prefix: cfg.Prefix},
		loader:  loader,
		prefix:  cfg.Prefix,
	}
}

// Option adjusts one call. Unrecognized adapter options are forwarded
// verbatim and never validated here.
type Option func(*callOptions)

type callOptions struct {
	prefix  string
	traceID string
	extra   map[string]any
}

// WithPrefix overrides the source prefix for one call.
func WithPrefix(prefix string) Option {
	return func(o *callOptions) { o.prefix = prefix }
}

// WithTraceID sets the trace token forwarded to the adapter. When
// absent, the orchestrator generates one per execution.
func WithTraceID(id string) Option {
	return func(o *callOptions) { o.traceID = id }
}

// WithAdapterOption forwards one adapter-specific option verbatim.
func WithAdapterOption(key string, value any) Option {
	return func(o *callOptions) {
		if o.extra == nil {
			o.extra = make(map[string]any)
		}
		o.extra[key] = value
	}
}

func applyOptions(opts []Option) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// asOptions re-expands resolved call options so a nested repo call runs
// under the same prefix, trace token, and adapter options as its parent.
func (o callOptions) asOptions() []Option {
	out := []Option{WithPrefix(o.prefix), WithTraceID(o.traceID)}
	for k, v := range o.extra {
		out = append(out, WithAdapterOption(k, v))
	}
	return out
}
