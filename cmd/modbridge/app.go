// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/modbridge/modbridge/internal/cache"
	"github.com/modbridge/modbridge/internal/config"
	"github.com/modbridge/modbridge/internal/issue"
	"github.com/modbridge/modbridge/internal/remap"
	"github.com/modbridge/modbridge/pkg/mapping"
)

// errNoMappings is returned when neither the config nor a flag names a
// mappings file.
var errNoMappings = errors.New("no mappings file configured")

type (
	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App reference and go through its providers for configuration and
	// mappings.
	App struct {
		Config   ConfigProvider
		Mappings MappingsLoader
		stdout   io.Writer
		stderr   io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Mappings MappingsLoader
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Loaded, error)
	}

	// MappingsLoader reads the mapping set at path.
	MappingsLoader func(path string) (mapping.Resolver, error)

	// globalOptions are the persistent root flags.
	globalOptions struct {
		configPath string
		verbose    bool
	}

	// remapOverrides are flag values applied on top of the loaded configuration.
	remapOverrides struct {
		mappings    string
		cacheDir    string
		target      string
		gameVersion string
		workers     int
		exclude     []string
		watch       bool
	}

	// session is everything one scan or remap invocation needs.
	session struct {
		cfg      *config.Config
		logger   *log.Logger
		remapper *remap.Remapper
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Mappings == nil {
		deps.Mappings = loadTinyMappings
	}

	return &App{
		Config:   deps.Config,
		Mappings: deps.Mappings,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}
}

func loadTinyMappings(path string) (mapping.Resolver, error) {
	return mapping.LoadTinyFile(path)
}

// loadConfig loads configuration and applies flag overrides.
func (a *App) loadConfig(ctx context.Context, global *globalOptions, over remapOverrides) (*config.Config, error) {
	loaded, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: global.configPath})
	if err != nil {
		return nil, err
	}

	cfg := *loaded.Config
	if over.mappings != "" {
		cfg.Mappings = over.mappings
	}
	if over.cacheDir != "" {
		cfg.CacheDir = over.cacheDir
	}
	if over.target != "" {
		cfg.TargetNamespace = mapping.Namespace(over.target)
	}
	if over.gameVersion != "" {
		cfg.GameVersion = over.gameVersion
	}
	if over.workers > 0 {
		cfg.Workers = over.workers
	}
	cfg.Exclude = append(cfg.Exclude, over.exclude...)
	if global.verbose {
		cfg.LogLevel = config.LogLevelDebug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newLogger creates the logger shared by every component of one invocation.
func (a *App) newLogger(level config.LogLevel) *log.Logger {
	return log.NewWithOptions(a.stderr, log.Options{
		Level:           level.Level(),
		ReportTimestamp: false,
	})
}

// newSession loads configuration and mappings and builds the remapper.
func (a *App) newSession(ctx context.Context, global *globalOptions, over remapOverrides) (*session, error) {
	cfg, err := a.loadConfig(ctx, global, over)
	if err != nil {
		return nil, err
	}
	logger := a.newLogger(cfg.LogLevel)

	if cfg.Mappings == "" {
		return nil, issue.NewErrorContext().
			WithOperation("load mappings").
			WithSuggestion("Set 'mappings' in config.cue or MODBRIDGE_MAPPINGS").
			WithSuggestion("Pass --mappings <file.tiny>").
			Wrap(errNoMappings).
			BuildError()
	}
	resolver, err := a.Mappings(cfg.Mappings)
	if err != nil {
		return nil, issue.Actionable(err, "load mappings", cfg.Mappings)
	}
	logger.Debug("loaded mappings", "path", cfg.Mappings, "namespaces", resolver.Namespaces())
	mappingsID, err := cache.HashFile(cfg.Mappings)
	if err != nil {
		logger.Debug("mappings not hashable, keying cache by path", "path", cfg.Mappings, "error", err)
		mappingsID = cfg.Mappings
	}

	r, err := remap.New(remap.Options{
		CacheDir:     cfg.ResolvedCacheDir(),
		Target:       cfg.TargetNamespace,
		Source:       cfg.SourceNamespace,
		RefmapSource: cfg.RefmapNamespace,
		GameVersion:  cfg.GameVersion,
		MappingsID:   mappingsID,
	}, mapping.NewBuilder(resolver), cache.New(logger), logger)
	if err != nil {
		return nil, fmt.Errorf("configure remapper: %w", err)
	}

	return &session{cfg: cfg, logger: logger, remapper: r}, nil
}
