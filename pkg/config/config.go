// Package config loads strata settings from defaults, an optional
// strata.yaml in the config directory, and STRATA_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	fileName  = "strata"
	fileType  = "yaml"
	envPrefix = "STRATA"

	KeySolverMaxIterations = "solver.max_iterations"
	KeySolverTolerance     = "solver.tolerance"
	KeyMeshCells           = "kernel.mesh_cells"
	KeyEvalTimeout         = "eval.timeout"
	KeyStorePath           = "store.path"
	KeyLogLevel            = "log.level"
	KeyLogFormat           = "log.format"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config is the typed form of the settings.
type Config struct {
	Solver SolverConfig
	Kernel KernelConfig
	Eval   EvalConfig
	Store  StoreConfig
	Log    LogConfig
}

type SolverConfig struct {
	MaxIterations int
	Tolerance     float64
}

type KernelConfig struct {
	MeshCells int
}

type EvalConfig struct {
	Timeout time.Duration
}

type StoreConfig struct {
	Path string
}

type LogConfig struct {
	Level  string // debug, info, warn or error
	Format string // text or json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeySolverMaxIterations, 100)
	v.SetDefault(KeySolverTolerance, 1e-9)
	v.SetDefault(KeyMeshCells, 200)
	v.SetDefault(KeyEvalTimeout, 5*time.Second)
	v.SetDefault(KeyStorePath, "strata.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// Default returns the built-in settings.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v, "")
}

// Load reads settings for dir. A missing strata.yaml is not an error, and
// an empty dir skips the file entirely. A relative store path is resolved
// against dir.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir != "" {
		v.SetConfigName(fileName)
		v.SetConfigType(fileType)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := fromViper(v, dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper, dir string) Config {
	path := v.GetString(KeyStorePath)
	if dir != "" && path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return Config{
		Solver: SolverConfig{
			MaxIterations: v.GetInt(KeySolverMaxIterations),
			Tolerance:     v.GetFloat64(KeySolverTolerance),
		},
		Kernel: KernelConfig{MeshCells: v.GetInt(KeyMeshCells)},
		Eval:   EvalConfig{Timeout: v.GetDuration(KeyEvalTimeout)},
		Store:  StoreConfig{Path: path},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString(KeyLogLevel)),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
	}
}

// Validate checks ranges and enumerated values.
func (c Config) Validate() error {
	switch {
	case c.Solver.MaxIterations <= 0:
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, KeySolverMaxIterations, c.Solver.MaxIterations)
	case c.Solver.Tolerance <= 0:
		return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalid, KeySolverTolerance, c.Solver.Tolerance)
	case c.Kernel.MeshCells <= 0:
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, KeyMeshCells, c.Kernel.MeshCells)
	case c.Eval.Timeout <= 0:
		return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, KeyEvalTimeout, c.Eval.Timeout)
	case c.Store.Path == "":
		return fmt.Errorf("%w: %s is empty", ErrInvalid, KeyStorePath)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: %s must be text or json, got %q", ErrInvalid, KeyLogFormat, c.Log.Format)
	}
	return nil
}

// SlogLevel maps Level onto a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, KeyLogLevel, err)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w, or to stderr when w is nil.
// verbose forces debug level.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := l.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
