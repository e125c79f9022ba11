// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/modbridge/modbridge/pkg/mapping"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func load(t *testing.T, opts LoadOptions) (*Loaded, error) {
	t.Helper()
	return NewProvider().Load(t.Context(), opts)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.ModsDir != "mods" {
		t.Errorf("ModsDir = %q, want %q", cfg.ModsDir, "mods")
	}
	if cfg.SourceNamespace != mapping.Intermediary || cfg.RefmapNamespace != mapping.Intermediary {
		t.Errorf("source/refmap = %q/%q, want intermediary", cfg.SourceNamespace, cfg.RefmapNamespace)
	}
	if cfg.TargetNamespace != mapping.Srg {
		t.Errorf("TargetNamespace = %q, want %q", cfg.TargetNamespace, mapping.Srg)
	}
	if cfg.LogLevel != LogLevelInfo {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, LogLevelInfo)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestConfig_ResolvedCacheDir(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ModsDir = filepath.Join("srv", "mods")
	if got, want := cfg.ResolvedCacheDir(), filepath.Join("srv", "mods", "connector"); got != want {
		t.Errorf("ResolvedCacheDir() = %q, want %q", got, want)
	}

	cfg.CacheDir = "cache"
	if got := cfg.ResolvedCacheDir(); got != "cache" {
		t.Errorf("ResolvedCacheDir() = %q, want %q", got, "cache")
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty mods dir", mutate: func(c *Config) { c.ModsDir = " " }, wantErr: "mods_dir"},
		{name: "blank namespace", mutate: func(c *Config) { c.TargetNamespace = "" }, wantErr: "target_namespace"},
		{name: "namespace with space", mutate: func(c *Config) { c.SourceNamespace = "a b" }, wantErr: "source_namespace"},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -2 }, wantErr: "workers"},
		{name: "bad exclude", mutate: func(c *Config) { c.Exclude = []string{"[abc"} }, wantErr: "exclude"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLogLevel_Level(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		want  log.Level
	}{
		{LogLevelDebug, log.DebugLevel},
		{LogLevelInfo, log.InfoLevel},
		{LogLevelWarn, log.WarnLevel},
		{LogLevelError, log.ErrorLevel},
		{"nonsense", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := tt.level.Level(); got != tt.want {
			t.Errorf("LogLevel(%q).Level() = %v, want %v", tt.level, got, tt.want)
		}
	}

	if err := LogLevel("nonsense").Validate(); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("Validate() = %v, want ErrInvalidLogLevel", err)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	loaded, err := load(t, LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != "" {
		t.Errorf("Path = %q, want empty", loaded.Path)
	}
	if !reflect.DeepEqual(loaded.Config, DefaultConfig()) {
		t.Errorf("Load() = %+v, want defaults %+v", loaded.Config, DefaultConfig())
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
mods_dir:         "/srv/mods"
mappings:         "/srv/mappings.tiny"
target_namespace: "named"
game_version:     "1.20.1"
workers:          3
exclude: ["optifine*.jar", "**/*-dev.jar"]
log_level: "debug"
`)

	loaded, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != path {
		t.Errorf("Path = %q, want %q", loaded.Path, path)
	}

	want := DefaultConfig()
	want.ModsDir = "/srv/mods"
	want.Mappings = "/srv/mappings.tiny"
	want.TargetNamespace = mapping.Named
	want.GameVersion = "1.20.1"
	want.Workers = 3
	want.Exclude = []string{"optifine*.jar", "**/*-dev.jar"}
	want.LogLevel = LogLevelDebug
	if !reflect.DeepEqual(loaded.Config, want) {
		t.Errorf("Load() = %+v, want %+v", loaded.Config, want)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), `cache_dir: "/tmp/remapped"`)
	loaded, err := load(t, LoadOptions{ConfigFilePath: path, ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.CacheDir != "/tmp/remapped" {
		t.Errorf("CacheDir = %q, want %q", loaded.CacheDir, "/tmp/remapped")
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "syntax error", content: `mods_dir: "unterminated`},
		{name: "negative workers", content: `workers: -1`},
		{name: "unknown log level", content: `log_level: "loud"`},
		{name: "unknown key", content: `threads: 4`},
		{name: "namespace with space", content: `target_namespace: "two words"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			if _, err := load(t, LoadOptions{ConfigDirPath: dir}); err == nil {
				t.Fatal("Load() error = nil, want error")
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "absent.cue")
	_, err := load(t, LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("Load() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error = %q, want it to mention the missing file", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
target_namespace: "named"
workers: 2
`)
	t.Setenv("MODBRIDGE_TARGET_NAMESPACE", "srg")
	t.Setenv("MODBRIDGE_WORKERS", "6")
	t.Setenv("MODBRIDGE_EXCLUDE", "a*.jar, b.jar")

	loaded, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.TargetNamespace != mapping.Srg {
		t.Errorf("TargetNamespace = %q, want env value %q", loaded.TargetNamespace, mapping.Srg)
	}
	if loaded.Workers != 6 {
		t.Errorf("Workers = %d, want 6", loaded.Workers)
	}
	if want := []string{"a*.jar", "b.jar"}; !reflect.DeepEqual(loaded.Exclude, want) {
		t.Errorf("Exclude = %q, want %q", loaded.Exclude, want)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("MODBRIDGE_SOURCE_NAMESPACE", "not valid")

	_, err := load(t, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ModsDir = "/games/mc/mods"
	cfg.CacheDir = "/games/mc/cache"
	cfg.Mappings = "/games/mc/mappings.tiny"
	cfg.GameVersion = "1.20.1"
	cfg.Workers = 8
	cfg.Exclude = []string{"*-sources.jar"}
	cfg.LogLevel = LogLevelWarn

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(cfg))

	loaded, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v\n%s", err, GenerateCUE(cfg))
	}
	if !reflect.DeepEqual(loaded.Config, cfg) {
		t.Errorf("round trip = %+v, want %+v", loaded.Config, cfg)
	}
}

func TestConfigDir_Override(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if want := filepath.Join(dir, "config.cue"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	// A second call keeps the existing file.
	if err := os.WriteFile(path, []byte(`workers: 5`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	loaded, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Workers != 5 {
		t.Errorf("Workers = %d, want existing file to be preserved", loaded.Workers)
	}
}
