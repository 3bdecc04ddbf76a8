package toolcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/config"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/guard"
)

// Globals are the flags shared by every command
type Globals struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// Bind registers the global flags on the root command
func (g *Globals) Bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default info, or $"+config.EnvLogLevel+")")
	cmd.PersistentFlags().StringVar(&g.LogFormat, "log-format", "", "Log format: text or json (default text, or $"+config.EnvLogFormat+")")
}

type configKey struct{}

// Setup loads the configuration, installs the process logger and attaches
// the configuration to the command context. Flags win over the environment,
// which wins over the config file.
func Setup(cmd *cobra.Command, g Globals) error {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger, err := NewLogger(os.Stderr, level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	slog.Debug("Configuration loaded", "config", g.ConfigPath, "level", level, "font_dir", cfg.FontDir)
	return nil
}

// configFrom returns the configuration attached by Setup, or the defaults
func configFrom(cmd *cobra.Command) *config.Config {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
			return cfg
		}
	}
	return config.Default()
}

// NewLogger builds a text or json slog logger that prints guard failures
// as FATAL.
func NewLogger(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
	return slog.New(handler), nil
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= guard.LevelFatal {
		a.Value = slog.StringValue("FATAL")
	}
	return a
}
