package corrfuse

import (
	"log/slog"
	"time"

	"github.com/hupe1980/corrfuse/codec"
	"github.com/hupe1980/corrfuse/rbf"
)

type options struct {
	rbfWidth         float64
	meta             map[string]any
	created          time.Time
	codec            codec.Codec
	compression      CompressionType
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Model constructor/load behavior.
//
// Options exist to avoid exploding the API surface with per-field
// constructor variants.
type Option func(*options)

// WithRBFWidth configures the width of the Gaussian kernel used to spread
// correlation evidence across space, in the units of the location
// coordinates. Non-positive values fall back to rbf.DefaultWidth.
//
// Wider kernels smooth more aggressively and suit sparse electrode
// coverage; narrow kernels preserve local structure on dense grids.
func WithRBFWidth(width float64) Option {
	return func(o *options) {
		if width > 0 {
			o.rbfWidth = width
		}
	}
}

// WithMeta attaches free-form metadata to the model. The map is carried
// through merges (receiver keys win on conflict) and snapshots.
func WithMeta(meta map[string]any) Option {
	return func(o *options) {
		o.meta = meta
	}
}

// WithCreatedAt overrides the creation timestamp, e.g. when rebuilding a
// model that represents an older dataset. The default is time.Now.
func WithCreatedAt(t time.Time) Option {
	return func(o *options) {
		o.created = t
	}
}

// WithCodec configures the codec used for the metadata section of
// snapshots.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures block compression for snapshot matrix data.
// The default is CompressionZstd.
func WithCompression(ct CompressionType) Option {
	return func(o *options) {
		o.compression = ct
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &corrfuse.BasicMetricsCollector{}
//	m, _ := corrfuse.NewFromSubjects(subs, corrfuse.WithMetricsCollector(metrics))
//	// ... use m ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := corrfuse.NewJSONLogger(slog.LevelInfo)
//	m, _ := corrfuse.New(locations, corrfuse.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		rbfWidth:         rbf.DefaultWidth,
		codec:            codec.Default,
		compression:      CompressionZstd,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
