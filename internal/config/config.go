package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/ljfeed/internal/model"
)

// DefaultEndpoint はLiveJournalのXML-RPCエンドポイント。
const DefaultEndpoint = "http://livejournal.com/interface/xmlrpc"

// Config はアプリケーション全体の設定を保持する。
// 優先順位はデフォルト < 設定ファイル < 環境変数 < コマンドライン引数。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Account
	User        string
	Password    string
	PasswordMD5 string

	// Output
	Output        string // 空の場合は{user}.xml
	OutputPublic  string
	OutputPrivate string

	// Fetch
	Endpoint    string
	Timeout     time.Duration
	Interval    time.Duration
	Concurrency int

	// Rendering
	Sanitize bool

	// Logging
	Debug bool

	// Server
	ServerPort string
}

// fileConfig は設定ファイル（YAML）の構造。
// 省略されたキーは下位レイヤーの値を維持する。
type fileConfig struct {
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	PasswordMD5 string `yaml:"password_md5"`
	Outputs     struct {
		Combined string `yaml:"combined"`
		Public   string `yaml:"public"`
		Private  string `yaml:"private"`
	} `yaml:"outputs"`
	Endpoint    string `yaml:"endpoint"`
	Timeout     string `yaml:"timeout"`
	Interval    string `yaml:"interval"`
	Concurrency *int   `yaml:"concurrency"`
	Sanitize    *bool  `yaml:"sanitize"`
	Debug       *bool  `yaml:"debug"`
	ServerPort  string `yaml:"server_port"`
}

// Default はデフォルト値のみのConfigを返す。
func Default() *Config {
	return &Config{
		Endpoint:    DefaultEndpoint,
		Timeout:     30 * time.Second,
		Interval:    30 * time.Minute,
		Concurrency: 1,
		ServerPort:  "9090",
	}
}

// Load はLJFEED_CONFIGが指す設定ファイルと環境変数からConfigを読み込む。
func Load() (*Config, error) {
	return LoadFile(os.Getenv("LJFEED_CONFIG"))
}

// LoadFile はpathの設定ファイル（空なら読まない）と環境変数からConfigを読み込む。
// 必須項目の検証はValidateで行う。
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.User, fc.User)
	setString(&c.Password, fc.Password)
	setString(&c.PasswordMD5, fc.PasswordMD5)
	setString(&c.Output, fc.Outputs.Combined)
	setString(&c.OutputPublic, fc.Outputs.Public)
	setString(&c.OutputPrivate, fc.Outputs.Private)
	setString(&c.Endpoint, fc.Endpoint)
	setString(&c.ServerPort, fc.ServerPort)

	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse config file %s: timeout: %w", path, err)
		}
		c.Timeout = d
	}
	if fc.Interval != "" {
		d, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return fmt.Errorf("parse config file %s: interval: %w", path, err)
		}
		c.Interval = d
	}
	if fc.Concurrency != nil {
		c.Concurrency = *fc.Concurrency
	}
	if fc.Sanitize != nil {
		c.Sanitize = *fc.Sanitize
	}
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	return nil
}

func (c *Config) applyEnv() {
	c.User = getEnvString("LJ_USER", c.User)
	c.Password = getEnvString("LJ_PASSWORD", c.Password)
	c.PasswordMD5 = getEnvString("LJ_PASSWORD_MD5", c.PasswordMD5)
	c.Output = getEnvString("LJFEED_OUTPUT", c.Output)
	c.OutputPublic = getEnvString("LJFEED_OUTPUT_PUBLIC", c.OutputPublic)
	c.OutputPrivate = getEnvString("LJFEED_OUTPUT_PRIVATE", c.OutputPrivate)
	c.Endpoint = getEnvString("LJFEED_ENDPOINT", c.Endpoint)
	c.Timeout = getEnvDuration("LJFEED_TIMEOUT", c.Timeout)
	c.Interval = getEnvDuration("LJFEED_INTERVAL", c.Interval)
	c.Concurrency = getEnvInt("LJFEED_CONCURRENCY", c.Concurrency)
	c.Sanitize = getEnvBool("LJFEED_SANITIZE", c.Sanitize)
	c.Debug = getEnvBool("LJFEED_DEBUG", c.Debug)
	c.ServerPort = getEnvString("SERVER_PORT", c.ServerPort)
}

// Targets は設定された出力ターゲットを返す。
// 統合フィードは常に含まれ、公開・非公開フィードはパスが設定された場合のみ含まれる。
func (c *Config) Targets() []model.Target {
	combined := c.Output
	if combined == "" {
		combined = c.User + ".xml"
	}

	targets := []model.Target{{Variant: model.VariantCombined, Path: combined}}
	if c.OutputPublic != "" {
		targets = append(targets, model.Target{Variant: model.VariantPublic, Path: c.OutputPublic})
	}
	if c.OutputPrivate != "" {
		targets = append(targets, model.Target{Variant: model.VariantPrivate, Path: c.OutputPrivate})
	}
	return targets
}

// Validate は設定の整合性を検証する。
// requireCredentialsがtrueの場合、パスワードまたはそのMD5が必要となる。
func (c *Config) Validate(requireCredentials bool) error {
	var missing []string
	if c.User == "" {
		missing = append(missing, "LJ_USER")
	}
	if requireCredentials && c.Password == "" && c.PasswordMD5 == "" {
		missing = append(missing, "LJ_PASSWORD or LJ_PASSWORD_MD5")
	}
	if len(missing) > 0 {
		return model.NewInvalidConfigError(fmt.Sprintf("required settings are not set: %v", missing))
	}

	if c.Concurrency < 1 {
		return model.NewInvalidConfigError(fmt.Sprintf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if c.Timeout <= 0 {
		return model.NewInvalidConfigError(fmt.Sprintf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Interval <= 0 {
		return model.NewInvalidConfigError(fmt.Sprintf("interval must be positive, got %s", c.Interval))
	}

	seen := make(map[string]model.Variant)
	for _, t := range c.Targets() {
		if prev, ok := seen[t.Path]; ok {
			return model.NewInvalidConfigError(fmt.Sprintf("outputs %s and %s share the path %s", prev, t.Variant, t.Path))
		}
		seen[t.Path] = t.Variant
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
