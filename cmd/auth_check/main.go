package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"sprintreport/api"
	"sprintreport/config"
	"sprintreport/utils"
)

func main() {
	// フラグの定義
	configFile := flag.String("config", "", "設定ファイル (YAML)")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	utils.LogInfo("Azure DevOps 認証確認ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		utils.LogError("%v", err)
		os.Exit(1)
	}

	client := api.NewDevOpsClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 認証チェック
	utils.LogInfo("Azure DevOps APIの認証を確認しています...")
	if err := client.CheckAuth(ctx); err != nil {
		utils.LogError("認証エラー: %v", err)
		utils.LogError("AZDO_PAT と組織・プロジェクト・チームの設定を確認してください。")
		os.Exit(1)
	}

	utils.LogInfo("認証成功！ 接続先: %s/%s", cfg.OrgURL, cfg.Project)
	if cfg.Team != "" {
		utils.LogInfo("チーム: %s", cfg.Team)
	}
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Azure DevOps 認証確認ツール

使用方法:
  %s [オプション]

オプション:
  -config FILE        設定ファイル (YAML)
  -help               このヘルプを表示する

環境変数:
  AZDO_ORG_URL        組織URL (必須) 例: https://dev.azure.com/acme
  AZDO_PROJECT        プロジェクト名 (必須)
  AZDO_PAT            個人用アクセストークン (必須)
  AZDO_TEAM           チーム名 (省略時はプロジェクトの既定チーム)

説明:
  チームのイテレーション一覧を取得して、認証情報と接続設定が正しいかを確認します。
  認証が成功すれば、sprint_report も正常に動作する可能性が高いです。
`, os.Args[0])
}
