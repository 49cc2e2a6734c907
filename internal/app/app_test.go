package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

var envKeys = []string{
	"LJ_USER", "LJ_PASSWORD", "LJ_PASSWORD_MD5",
	"LJFEED_OUTPUT", "LJFEED_OUTPUT_PUBLIC", "LJFEED_OUTPUT_PRIVATE",
	"LJFEED_ENDPOINT", "LJFEED_TIMEOUT", "LJFEED_INTERVAL", "LJFEED_CONCURRENCY",
	"LJFEED_SANITIZE", "LJFEED_DEBUG", "SERVER_PORT", "LJFEED_CONFIG",
}

// clearEnv はテスト実行環境の設定が混入しないよう環境変数を空にし、グローバルロガーを復元する。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestInit_SetsUpJSONLogger(t *testing.T) {
	clearEnv(t)
	t.Setenv("LJ_USER", "alice")

	var buf bytes.Buffer
	opts, err := parseFlags(CommandRun, nil, &buf)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := Init(&buf, opts)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.User != "alice" {
		t.Errorf("User = %q, want alice", cfg.User)
	}

	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

// TestInit_Precedence はフラグ > 環境変数 > 設定ファイルの優先順位を検証する。
func TestInit_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ljfeed.yaml")
	if err := os.WriteFile(cfgPath, []byte("user: fromfile\npassword: filepw\noutputs:\n  public: file-public.xml\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LJ_PASSWORD", "envpw")

	var buf bytes.Buffer
	opts, err := parseFlags(CommandRun, []string{"-config", cfgPath, "-user", "fromflag", "-output-private", "p.xml", "-debug"}, &buf)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := Init(&buf, opts)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"フラグが最優先", cfg.User, "fromflag"},
		{"環境変数がファイルより優先", cfg.Password, "envpw"},
		{"ファイルの値", cfg.OutputPublic, "file-public.xml"},
		{"フラグの値", cfg.OutputPrivate, "p.xml"},
		{"フラグのdebug", cfg.Debug, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

// TestInit_ConfigFromEnv は-config未指定時にLJFEED_CONFIGの設定ファイルを読むことを検証する。
func TestInit_ConfigFromEnv(t *testing.T) {
	clearEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "ljfeed.yaml")
	if err := os.WriteFile(cfgPath, []byte("user: fromenvfile\nconcurrency: 3\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LJFEED_CONFIG", cfgPath)

	var buf bytes.Buffer
	opts, err := parseFlags(CommandRun, nil, &buf)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := Init(&buf, opts)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if cfg.User != "fromenvfile" || cfg.Concurrency != 3 {
		t.Errorf("cfg = user %q concurrency %d, want fromenvfile 3", cfg.User, cfg.Concurrency)
	}
}

func TestInit_MissingConfigFile(t *testing.T) {
	clearEnv(t)

	var buf bytes.Buffer
	opts, err := parseFlags(CommandRun, []string{"-config", filepath.Join(t.TempDir(), "none.yaml")}, &buf)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := Init(&buf, opts)
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestParseFlags(t *testing.T) {
	var buf bytes.Buffer

	if _, err := parseFlags(CommandRun, []string{"-input", "x.json"}, &buf); err == nil {
		t.Error("-input should only be accepted by build")
	}
	if _, err := parseFlags(CommandRun, []string{"extra"}, &buf); err == nil {
		t.Error("positional arguments should be rejected")
	}

	opts, err := parseFlags(CommandBuild, nil, &buf)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.input != "-" {
		t.Errorf("input default = %q, want -", opts.input)
	}
}
