package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingSetting は必須設定が欠けている場合のエラーです
var ErrMissingSetting = errors.New("必須設定がありません")

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Azure DevOps API設定
	OrgURL     string `mapstructure:"org_url"`
	Project    string `mapstructure:"project"`
	Team       string `mapstructure:"team"`
	PAT        string `mapstructure:"pat"`
	User       string `mapstructure:"user"`
	APIVersion string `mapstructure:"api_version"`

	// スプリント指定
	SprintName    string `mapstructure:"sprint_name"`
	IterationPath string `mapstructure:"iteration_path"`

	// 出力設定
	OutputDir    string `mapstructure:"output_dir"`
	ReportFormat string `mapstructure:"report_format"`

	// 並列処理設定
	BatchConcurrency    int `mapstructure:"batch_concurrency"`
	RevisionConcurrency int `mapstructure:"revision_concurrency"`

	// 0 の場合はタイムアウトなし
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// envBindings は設定キーと環境変数名の対応です
var envBindings = map[string]string{
	"org_url":              "AZDO_ORG_URL",
	"project":              "AZDO_PROJECT",
	"team":                 "AZDO_TEAM",
	"pat":                  "AZDO_PAT",
	"user":                 "AZDO_USER",
	"api_version":          "AZDO_API_VERSION",
	"iteration_path":       "AZDO_ITERATION_PATH",
	"sprint_name":          "SPRINT_NAME",
	"output_dir":           "OUTPUT_DIR",
	"report_format":        "REPORT_FORMAT",
	"batch_concurrency":    "BATCH_CONCURRENCY",
	"revision_concurrency": "REVISION_CONCURRENCY",
	"http_timeout":         "HTTP_TIMEOUT",
	"log_level":            "LOG_LEVEL",
	"log_format":           "LOG_FORMAT",
}

// LoadConfig は .env・環境変数・設定ファイル(任意)から設定を読み込みます
func LoadConfig(configFile string) (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("環境変数バインドエラー (%s): %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定の展開に失敗しました: %w", err)
	}

	cfg.OrgURL = strings.TrimRight(strings.TrimSpace(cfg.OrgURL), "/")
	applyDefaults(cfg)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_version", "7.1")
	v.SetDefault("output_dir", "reports")
	v.SetDefault("report_format", "markdown")
	v.SetDefault("batch_concurrency", 5)
	v.SetDefault("revision_concurrency", 10)
	v.SetDefault("http_timeout", "0s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// 数値設定が不正な場合のフォールバック
func applyDefaults(cfg *Config) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "7.1"
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 5
	}
	if cfg.RevisionConcurrency <= 0 {
		cfg.RevisionConcurrency = 10
	}
	if cfg.HTTPTimeout < 0 {
		cfg.HTTPTimeout = 0
	}
}

// Validate はネットワークアクセス前に必須の接続設定を確認します
func (c *Config) Validate() error {
	var missing []string
	if c.OrgURL == "" {
		missing = append(missing, "AZDO_ORG_URL")
	}
	if c.Project == "" {
		missing = append(missing, "AZDO_PROJECT")
	}
	if c.PAT == "" {
		missing = append(missing, "AZDO_PAT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}
