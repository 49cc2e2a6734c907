package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/ljfeed/internal/model"
)

var allEnvVars = []string{
	"LJ_USER", "LJ_PASSWORD", "LJ_PASSWORD_MD5",
	"LJFEED_OUTPUT", "LJFEED_OUTPUT_PUBLIC", "LJFEED_OUTPUT_PRIVATE",
	"LJFEED_ENDPOINT", "LJFEED_TIMEOUT", "LJFEED_INTERVAL", "LJFEED_CONCURRENCY",
	"LJFEED_SANITIZE", "LJFEED_DEBUG", "SERVER_PORT", "LJFEED_CONFIG",
}

// clearEnv はテスト実行環境の設定が混入しないよう全ての環境変数を空にする。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allEnvVars {
		t.Setenv(k, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ljfeed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, DefaultEndpoint)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, 30*time.Second)
	}
	if cfg.Interval != 30*time.Minute {
		t.Errorf("Interval = %v, want %v", cfg.Interval, 30*time.Minute)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.Sanitize || cfg.Debug {
		t.Errorf("Sanitize/Debug should default to false")
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LJ_USER", "alice")
	t.Setenv("LJ_PASSWORD_MD5", "abc")
	t.Setenv("LJFEED_OUTPUT_PUBLIC", "pub.xml")
	t.Setenv("LJFEED_TIMEOUT", "5s")
	t.Setenv("LJFEED_INTERVAL", "1h")
	t.Setenv("LJFEED_CONCURRENCY", "3")
	t.Setenv("LJFEED_SANITIZE", "true")
	t.Setenv("LJFEED_DEBUG", "1")
	t.Setenv("SERVER_PORT", "3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.User != "alice" || cfg.PasswordMD5 != "abc" {
		t.Errorf("account = %q/%q", cfg.User, cfg.PasswordMD5)
	}
	if cfg.OutputPublic != "pub.xml" {
		t.Errorf("OutputPublic = %q", cfg.OutputPublic)
	}
	if cfg.Timeout != 5*time.Second || cfg.Interval != time.Hour {
		t.Errorf("Timeout/Interval = %v/%v", cfg.Timeout, cfg.Interval)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if !cfg.Sanitize || !cfg.Debug {
		t.Errorf("Sanitize/Debug = %v/%v, want true/true", cfg.Sanitize, cfg.Debug)
	}
	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LJFEED_TIMEOUT", "soon")
	t.Setenv("LJFEED_CONCURRENCY", "many")
	t.Setenv("LJFEED_DEBUG", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default", cfg.Timeout)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want default", cfg.Concurrency)
	}
	if cfg.Debug {
		t.Error("Debug should fall back to false")
	}
}

// TestLoadFile_Precedence は設定ファイルより環境変数が優先されることを検証する。
func TestLoadFile_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
user: fromfile
password: pw
outputs:
  combined: /srv/feeds/all.xml
  private: /srv/feeds/private.xml
interval: 10m
concurrency: 2
debug: true
`)
	t.Setenv("LJ_USER", "fromenv")
	t.Setenv("LJFEED_INTERVAL", "15m")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"環境変数が優先", cfg.User, "fromenv"},
		{"ファイルの値", cfg.Password, "pw"},
		{"ファイルの出力先", cfg.Output, "/srv/feeds/all.xml"},
		{"ファイルの非公開出力先", cfg.OutputPrivate, "/srv/feeds/private.xml"},
		{"環境変数の間隔", cfg.Interval, 15 * time.Minute},
		{"ファイルの並行数", cfg.Concurrency, 2},
		{"ファイルのデバッグ", cfg.Debug, true},
		{"デフォルトのタイムアウト", cfg.Timeout, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_ConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("LJFEED_CONFIG", writeConfigFile(t, "user: bob\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.User != "bob" {
		t.Errorf("User = %q, want bob", cfg.User)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		path string
	}{
		{"存在しないファイル", filepath.Join(t.TempDir(), "missing.yaml")},
		{"YAMLとして不正", writeConfigFile(t, "user: [unclosed\n")},
		{"不正な期間", writeConfigFile(t, "timeout: forever\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFile(tt.path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestTargets(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []model.Target
	}{
		{
			name: "デフォルトは{user}.xmlのみ",
			cfg:  Config{User: "alice"},
			want: []model.Target{{Variant: model.VariantCombined, Path: "alice.xml"}},
		},
		{
			name: "全ターゲット",
			cfg:  Config{User: "alice", Output: "all.xml", OutputPublic: "pub.xml", OutputPrivate: "priv.xml"},
			want: []model.Target{
				{Variant: model.VariantCombined, Path: "all.xml"},
				{Variant: model.VariantPublic, Path: "pub.xml"},
				{Variant: model.VariantPrivate, Path: "priv.xml"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.Targets()
			if len(got) != len(tt.want) {
				t.Fatalf("Targets() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Targets()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.User = "alice"
		c.Password = "pw"
		return c
	}

	tests := []struct {
		name               string
		mutate             func(*Config)
		requireCredentials bool
		wantErr            bool
	}{
		{"正常", func(*Config) {}, true, false},
		{"ユーザー未設定", func(c *Config) { c.User = "" }, false, true},
		{"認証情報未設定で不要", func(c *Config) { c.Password = "" }, false, false},
		{"認証情報未設定で必要", func(c *Config) { c.Password = "" }, true, true},
		{"MD5のみ", func(c *Config) { c.Password = ""; c.PasswordMD5 = "abc" }, true, false},
		{"並行数0", func(c *Config) { c.Concurrency = 0 }, false, true},
		{"間隔0", func(c *Config) { c.Interval = 0 }, false, true},
		{"タイムアウト負", func(c *Config) { c.Timeout = -time.Second }, false, true},
		{"出力先の重複", func(c *Config) { c.OutputPublic = "alice.xml" }, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate(tt.requireCredentials)
			if tt.wantErr {
				if !model.HasCode(err, model.ErrCodeInvalidConfig) {
					t.Errorf("error = %v, want %s", err, model.ErrCodeInvalidConfig)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
