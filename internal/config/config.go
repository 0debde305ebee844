// Package config loads the YAML description of a convolution run: which
// device and algorithms to use, how to log, and the layer geometries to
// execute.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/parallel"
	"github.com/born-ml/blitz/internal/tensor"
)

// Devices accepted by the device field.
const (
	DeviceCPU    = "cpu"
	DeviceWebGPU = "webgpu"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Layer is one convolution problem. Pad and stride apply to both spatial
// dimensions unless the per-axis fields are set.
type Layer struct {
	Name   string `yaml:"name"`
	N      int    `yaml:"n"`
	C      int    `yaml:"c"`
	H      int    `yaml:"h"`
	W      int    `yaml:"w"`
	K      int    `yaml:"k"`
	R      int    `yaml:"r"`
	S      int    `yaml:"s"`
	Pad    int    `yaml:"pad"`
	Stride int    `yaml:"stride"`

	PadH    *int `yaml:"pad_h,omitempty"`
	PadW    *int `yaml:"pad_w,omitempty"`
	StrideH *int `yaml:"stride_h,omitempty"`
	StrideW *int `yaml:"stride_w,omitempty"`
}

// Parallel mirrors parallel.Config. Zero workers means one per CPU.
type Parallel struct {
	Workers  int `yaml:"workers"`
	MinChunk int `yaml:"min_chunk"`
}

// Config is the run configuration file.
type Config struct {
	Device     string   `yaml:"device"`
	Algorithms []string `yaml:"algorithms"`
	Layout     string   `yaml:"layout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Instrument bool  `yaml:"instrument"`
	Warmup     int   `yaml:"warmup"`
	Runs       int   `yaml:"runs"`
	Seed       int64 `yaml:"seed"`

	Parallel Parallel `yaml:"parallel"`
	Layers   []Layer  `yaml:"layers"`
}

// Defaults returns a configuration that runs every algorithm on the CPU over
// a small set of representative layers.
func Defaults() Config {
	return Config{
		Device:     DeviceCPU,
		Algorithms: []string{"direct", "gemm_blas", "gemm_fused"},
		Layout:     "NCHW",
		LogLevel:   "info",
		LogFormat:  "text",
		Instrument: true,
		Warmup:     1,
		Runs:       3,
		Seed:       42,
		Layers: []Layer{
			{Name: "conv3x3_c64", N: 8, C: 64, H: 28, W: 28, K: 64, R: 3, S: 3, Pad: 1, Stride: 1},
			{Name: "conv3x3_c63", N: 8, C: 63, H: 28, W: 28, K: 64, R: 3, S: 3, Pad: 1, Stride: 1},
			{Name: "conv5x5_s2", N: 4, C: 32, H: 32, W: 32, K: 48, R: 5, S: 5, Pad: 2, Stride: 2},
			{Name: "conv1x1", N: 16, C: 128, H: 14, W: 14, K: 256, R: 1, S: 1, Pad: 0, Stride: 1},
		},
	}
}

// Load reads a YAML file on top of Defaults. Keys absent from the file keep
// their default values; a layers list replaces the default layers.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, rejecting unknown keys.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves cfg untouched.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate checks every field and layer.
func (c Config) Validate() error {
	switch strings.ToLower(c.Device) {
	case DeviceCPU, DeviceWebGPU:
	default:
		return fmt.Errorf("%w: device %q (expected cpu or webgpu)", ErrInvalid, c.Device)
	}
	if _, err := c.ParsedAlgorithms(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := tensor.ParseLayout(c.Layout); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q (expected text or json)", ErrInvalid, c.LogFormat)
	}
	if c.Warmup < 0 || c.Runs < 1 {
		return fmt.Errorf("%w: warmup must be >= 0 and runs >= 1 (got %d, %d)", ErrInvalid, c.Warmup, c.Runs)
	}
	if c.Parallel.Workers < 0 || c.Parallel.MinChunk < 0 {
		return fmt.Errorf("%w: parallel settings must be non-negative", ErrInvalid)
	}
	if len(c.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalid)
	}
	for i, l := range c.Layers {
		if err := l.validate(); err != nil {
			return fmt.Errorf("%w: layer %d (%s): %v", ErrInvalid, i, l.Name, err)
		}
	}
	return nil
}

// ParsedAlgorithms converts the algorithm names. An empty list selects every
// algorithm.
func (c Config) ParsedAlgorithms() ([]conv.Algorithm, error) {
	if len(c.Algorithms) == 0 {
		return conv.Algorithms(), nil
	}
	algos := make([]conv.Algorithm, 0, len(c.Algorithms))
	for _, name := range c.Algorithms {
		a, err := conv.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		algos = append(algos, a)
	}
	return algos, nil
}

// ParsedLayout returns the activation layout, NCHW when unset.
func (c Config) ParsedLayout() tensor.Layout {
	layout, err := tensor.ParseLayout(c.Layout)
	if err != nil {
		return tensor.NCHW
	}
	return layout
}

// ParallelConfig converts the parallel section.
func (c Config) ParallelConfig() parallel.Config {
	cfg := parallel.DefaultConfig()
	if c.Parallel.Workers > 0 {
		cfg.NumWorkers = c.Parallel.Workers
		cfg.Enabled = c.Parallel.Workers > 1
	}
	if c.Parallel.MinChunk > 0 {
		cfg.MinChunkSize = c.Parallel.MinChunk
	}
	return cfg
}

// Conv returns the context configuration for algo.
func (l Layer) Conv(algo conv.Algorithm) conv.Config {
	return conv.Config{
		PadH:      pick(l.PadH, l.Pad),
		PadW:      pick(l.PadW, l.Pad),
		StrH:      pick(l.StrideH, l.stride()),
		StrW:      pick(l.StrideW, l.stride()),
		Algorithm: algo,
	}
}

// Geometry resolves the full problem geometry, including the output extent.
func (l Layer) Geometry() tensor.Conv2DGeometry {
	cfg := l.Conv(conv.Direct)
	return tensor.Conv2DGeometry{
		N: l.N, C: l.C, H: l.H, W: l.W, K: l.K, R: l.R, S: l.S,
		P:    tensor.OutputExtent(l.H, l.R, cfg.PadH, cfg.StrH),
		Q:    tensor.OutputExtent(l.W, l.S, cfg.PadW, cfg.StrW),
		PadH: cfg.PadH, PadW: cfg.PadW, StrH: cfg.StrH, StrW: cfg.StrW,
	}
}

func (l Layer) stride() int {
	if l.Stride == 0 {
		return 1
	}
	return l.Stride
}

func (l Layer) validate() error {
	for _, d := range []struct {
		name string
		v    int
	}{{"n", l.N}, {"c", l.C}, {"h", l.H}, {"w", l.W}, {"k", l.K}, {"r", l.R}, {"s", l.S}} {
		if d.v < 1 {
			return fmt.Errorf("%s must be positive, got %d", d.name, d.v)
		}
	}
	cfg := l.Conv(conv.Direct)
	if cfg.PadH < 0 || cfg.PadW < 0 {
		return fmt.Errorf("padding must be non-negative")
	}
	if cfg.StrH < 1 || cfg.StrW < 1 {
		return fmt.Errorf("stride must be positive")
	}
	if l.H+2*cfg.PadH < l.R || l.W+2*cfg.PadW < l.S {
		return fmt.Errorf("kernel %dx%d larger than padded input %dx%d", l.R, l.S, l.H+2*cfg.PadH, l.W+2*cfg.PadW)
	}
	return nil
}

func pick(override *int, fallback int) int {
	if override != nil {
		return *override
	}
	return fallback
}
