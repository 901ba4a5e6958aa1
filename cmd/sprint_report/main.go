package main

import (
	"os"

	"github.com/spf13/cobra"

	"sprintreport/config"
	"sprintreport/utils"
	"sprintreport/version"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sprint_report",
	Short: "Azure DevOps スプリントレポート生成ツール",
	Long: `Azure DevOps のスプリント(イテレーション)の作業項目とキャパシティを集計し、
レポートファイルを出力します。

スプリント内の作業項目に加えて、スプリント期間中にチームメンバーが
他のイテレーションで実施した作業も照合して集計に含めます。

例:
  sprint_report run --sprint "Sprint 12"
  sprint_report current`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runReport,
}

func init() {
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "設定ファイル (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力する")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "ログ形式 (console, json)")

	addRunFlags(rootCmd)
	rootCmd.AddCommand(runCmd, currentCmd)
}

// loadConfig は設定を読み込み、フラグで上書きしてからロガーを初期化します
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	applyRunFlags(cmd, cfg)

	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		utils.LogError("%v", err)
		os.Exit(1)
	}
}
