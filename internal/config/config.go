package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-normalizer-mcp/internal/convert"
	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/sizing"
)

// Environment variables that override file settings.
const (
	EnvLogLevel   = "IMAGE_MCP_LOG_LEVEL"
	EnvResampler  = "IMAGE_NORMALIZER_RESAMPLER"
	EnvTimeout    = "IMAGE_NORMALIZER_TIMEOUT"
	EnvBackground = "IMAGE_NORMALIZER_BACKGROUND"
	EnvOutputType = "IMAGE_NORMALIZER_OUTPUT_TYPE"
)

// Config represents the application configuration
type Config struct {
	LogLevel   string       `yaml:"log_level"`
	Output     OutputConfig `yaml:"output"`
	Resize     sizing.Spec  `yaml:"resize"`
	Resampler  string       `yaml:"resampler"`
	MaxPixels  int          `yaml:"max_pixels"`
	Background string       `yaml:"background"`
	Timeout    Duration     `yaml:"timeout"`
	Watch      WatchConfig  `yaml:"watch"`
	HTTP       HTTPConfig   `yaml:"http"`
}

type OutputConfig struct {
	Type    string  `yaml:"type"`
	Quality float64 `yaml:"quality"`
}

type WatchConfig struct {
	InputDir  string   `yaml:"input_dir"`
	OutputDir string   `yaml:"output_dir"`
	Debounce  Duration `yaml:"debounce"`
}

type HTTPConfig struct {
	UserAgent string   `yaml:"user_agent"`
	Timeout   Duration `yaml:"timeout"`
}

// Duration is a time.Duration that reads Go duration strings ("30s")
// from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		Output:     OutputConfig{Quality: 1},
		Resampler:  string(imaging.ResampleLanczos),
		MaxPixels:  imaging.DefaultMaxPixels,
		Background: imaging.DefaultBackground,
		Timeout:    Duration(time.Minute),
		Watch: WatchConfig{
			Debounce: Duration(500 * time.Millisecond),
		},
		HTTP: HTTPConfig{
			UserAgent: imaging.DefaultUserAgent,
			Timeout:   Duration(imaging.DefaultFetchTimeout),
		},
	}
}

// Load reads and parses the configuration file. Keys missing from the file
// keep their Default values. A ".env" file next to the working directory is
// loaded first so its variables take part in the environment overrides. An
// empty path skips the file and returns the defaults with overrides applied.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from the process environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvResampler); v != "" {
		c.Resampler = v
	}
	if v := os.Getenv(EnvBackground); v != "" {
		c.Background = v
	}
	if v := os.Getenv(EnvOutputType); v != "" {
		c.Output.Type = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			// Bare numbers are seconds.
			secs, serr := strconv.Atoi(v)
			if serr != nil {
				return fmt.Errorf("%s: %w", EnvTimeout, err)
			}
			d = time.Duration(secs) * time.Second
		}
		c.Timeout = Duration(d)
	}
	return nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := imaging.ParseResampler(c.Resampler); err != nil {
		return fmt.Errorf("resampler: %w", err)
	}
	if _, err := imaging.NewEncoder(c.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if c.Output.Type != "" && !strings.HasPrefix(c.Output.Type, "image/") {
		return fmt.Errorf("output.type must be an image MIME type, got %q", c.Output.Type)
	}
	if c.Output.Quality < 0 || c.Output.Quality > 1 {
		return fmt.Errorf("output.quality must be between 0 and 1, got %v", c.Output.Quality)
	}
	r := c.Resize
	if r.Width < 0 || r.Height < 0 || r.MaxWidth < 0 || r.MaxHeight < 0 {
		return fmt.Errorf("resize dimensions must not be negative")
	}
	if c.MaxPixels < 0 {
		return fmt.Errorf("max_pixels must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Watch.OutputDir != "" && c.Watch.InputDir == c.Watch.OutputDir {
		return fmt.Errorf("watch.output_dir must differ from watch.input_dir")
	}
	return nil
}

// Level returns the parsed log level. Validate guarantees it parses.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// ConvertOptions returns the default conversion options described by the
// configuration.
func (c *Config) ConvertOptions() convert.Options {
	return convert.Options{
		Type:    c.Output.Type,
		Quality: c.Output.Quality,
		Resize:  c.Resize,
		Timeout: time.Duration(c.Timeout),
	}
}

// NewDispatcher builds a Dispatcher wired to the configured collaborators.
func (c *Config) NewDispatcher(log logrus.FieldLogger) (*convert.Dispatcher, error) {
	resampler, err := imaging.ParseResampler(c.Resampler)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.NewEncoder(c.Background)
	if err != nil {
		return nil, err
	}
	return convert.New(
		convert.WithLogger(log),
		convert.WithRasterizer(imaging.NewRasterizer(resampler)),
		convert.WithEncoder(enc),
		convert.WithFetcher(c.NewLoader()),
		convert.WithMaxPixels(c.MaxPixels),
	), nil
}

// NewLoader builds a Loader honouring the http settings.
func (c *Config) NewLoader() *imaging.Loader {
	l := imaging.NewLoader(&http.Client{Timeout: time.Duration(c.HTTP.Timeout)})
	if c.HTTP.UserAgent != "" {
		l.UserAgent = c.HTTP.UserAgent
	}
	return l
}
