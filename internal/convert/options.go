// Package convert turns the tabular output of external planners into
// transfer plans.
//
// Two upstream producers are supported. A KV-cache planner emits one row per
// proposed tier transfer plus admission and eviction page streams; these
// become a plan.CachePlan. A checkpoint differ emits per-version raw
// manifests and a list of byte buckets; these become a plan.SwapPlan.
//
// Upstream rows are loosely typed. Every column is optional and defaults are
// applied once, in Resolve, rather than at each use site.
package convert

import (
	"io"
	"log/slog"
	"time"

	"github.com/danieljhkim/bwplan/internal/clock"
)

// Defaults applied to absent upstream columns.
const (
	DefaultTensor    = "kv"
	DefaultNode      = "node-0"
	DefaultPageBytes = 256 * 1024
	DefaultGrace     = 5 * time.Second

	// DefaultMaxPagesPerRow bounds the page refs a single cache row expands to.
	DefaultMaxPagesPerRow = 1 << 16

	DefaultSwapTensor = "tensor"
	DefaultModelID    = "model"
	DefaultVersion    = "0"
)

// Options configures both converters. Zero fields take the package defaults.
type Options struct {
	// Tensor names the KV tensor referenced by cache ops (default "kv")
	Tensor string

	// DefaultNode is used for rows without a node column (default "node-0")
	DefaultNode string

	// DefaultPageBytes is used for rows without a page_bytes column
	DefaultPageBytes int64

	// MaxPagesPerRow caps the inclusive page range of one row
	MaxPagesPerRow int64

	// Backend labels the upstream planner backend in log output only
	Backend string

	// Grace is added to the window start when no deadline is supplied
	Grace time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Tensor == "" {
		o.Tensor = DefaultTensor
	}
	if o.DefaultNode == "" {
		o.DefaultNode = DefaultNode
	}
	if o.DefaultPageBytes <= 0 {
		o.DefaultPageBytes = DefaultPageBytes
	}
	if o.MaxPagesPerRow <= 0 {
		o.MaxPagesPerRow = DefaultMaxPagesPerRow
	}
	if o.Grace <= 0 {
		o.Grace = DefaultGrace
	}
	o.Clock = clock.OrReal(o.Clock)
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
