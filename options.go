package vamana

import (
	"log/slog"

	"github.com/hupe1980/vamana/graph"
	"github.com/hupe1980/vamana/pager"
	"github.com/hupe1980/vamana/quantizer"
	"github.com/hupe1980/vamana/resource"
)

// DefaultMaxFanOut is the neighbor budget used when WithMaxFanOut is not
// given. Reasonable for datasets up to the low millions of vectors.
const DefaultMaxFanOut = 64

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	controller       *resource.Controller
	maxFanOut        int
	alpha            float32
	policy           graph.PruningPolicy
	distFn           graph.DistanceFunc
	codebook         *quantizer.Codebook
	compression      pager.CompressionType
}

// Option configures an IndexWriter.
type Option func(*options)

// WithLogger configures structured logging for build operations.
//
// Example with JSON logging:
//
//	logger := vamana.NewJSONLogger(slog.LevelInfo)
//	w, _ := vamana.NewIndexWriter(128, vamana.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// build, snapshot and archive operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vamana.BasicMetricsCollector{}
//	w, _ := vamana.NewIndexWriter(128, vamana.WithMetricsCollector(metrics))
//	// ... build ...
//	stats := metrics.GetStats()
//	fmt.Printf("nodes: %d, prunes: %d\n", stats.NodesWritten, stats.PruneCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithResourceController bounds the memory, background concurrency and IO
// bandwidth the writer may consume. Snapshot saves and archive uploads are
// throttled against the controller's IO budget; archive part uploads take
// background worker slots.
//
// A nil controller enforces nothing.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithMaxFanOut sets the per-node neighbor budget (R in the DiskANN
// papers). Values below 1 keep the default.
//
// Higher values improve recall at the cost of larger node records and
// slower builds. Typical range is 32-128.
func WithMaxFanOut(maxFanOut int) Option {
	return func(o *options) {
		if maxFanOut > 0 {
			o.maxFanOut = maxFanOut
		}
	}
}

// WithAlpha sets the diversity factor of the default pruning policy.
// Values below 1 keep the default of 1.2. Ignored when WithPruningPolicy
// is given.
func WithAlpha(alpha float32) Option {
	return func(o *options) {
		if alpha >= 1 {
			o.alpha = alpha
		}
	}
}

// WithPruningPolicy replaces the default RobustPrune policy used when a
// neighbor list exceeds the fan-out budget during Finalize.
func WithPruningPolicy(p graph.PruningPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithDistanceFunc sets the metric used for pruning distances. Defaults
// to squared L2.
func WithDistanceFunc(fn graph.DistanceFunc) Option {
	return func(o *options) {
		o.distFn = fn
	}
}

// WithQuantization enables product-quantized code storage. Every node's
// vector is encoded against the trained codebook during Finalize and the
// code persisted next to the graph.
//
// The codebook must be trained elsewhere; its dimensionality has to match
// the writer's.
func WithQuantization(cb *quantizer.Codebook) Option {
	return func(o *options) {
		o.codebook = cb
	}
}

// WithCompression selects the snapshot compression algorithm. The default
// is zstd. Use pager.CompressionNone when the snapshot must be reopened
// via mmap without a decompression pass.
func WithCompression(c pager.CompressionType) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		maxFanOut:        DefaultMaxFanOut,
		alpha:            graph.DefaultAlpha,
		compression:      pager.CompressionZSTD,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
