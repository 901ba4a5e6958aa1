package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sprintreport/api"
	"sprintreport/config"
	"sprintreport/report"
	"sprintreport/services"
	"sprintreport/utils"
)

func main() {
	// コマンドラインフラグの定義
	configFile := flag.String("config", "", "設定ファイル (YAML)")
	sprint := flag.String("sprint", "", "スプリント名（指定しない場合は環境変数、なければ現在のスプリント）")
	output := flag.String("output", "", "CSVの出力先（指定しない場合は出力フォルダに自動命名）")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	// 開始時間の記録
	startTime := time.Now()

	utils.LogInfo("スプリント作業項目 CSV 出力ツール")

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

	if *sprint != "" {
		cfg.SprintName = *sprint
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := services.NewSprintService(cfg, api.NewDevOpsClient(cfg))

	sprintName := cfg.SprintName
	if sprintName == "" && cfg.IterationPath == "" {
		name, ok := svc.CurrentSprintName(ctx)
		if !ok {
			utils.LogError("スプリント名が指定されておらず、現在のスプリントも取得できませんでした")
			os.Exit(1)
		}
		sprintName = name
	}

	data, err := svc.FetchSprintData(ctx, sprintName)
	if err != nil {
		utils.LogError("スプリントデータ取得エラー: %v", err)
		os.Exit(1)
	}
	if !data.Found {
		utils.LogError("スプリントが見つかりません: %s", sprintName)
		os.Exit(1)
	}

	path := *output
	if path == "" {
		name, err := report.FileName(data.Iteration.Name, report.FormatCSV, startTime)
		if err != nil {
			utils.LogError("%v", err)
			os.Exit(1)
		}
		path = filepath.Join(cfg.OutputDir, name)
	}

	if err := services.WriteWorkItemsCSV(path, data.Items, data.IterationItemIDs); err != nil {
		utils.LogError("CSV書き込みエラー: %v", err)
		os.Exit(1)
	}

	// 処理時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("CSV出力が完了しました: %s (%d 件, 処理時間: %s)", path, len(data.Items), elapsed)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
スプリント作業項目 CSV 出力ツール

使用方法:
  %s [オプション]

オプション:
  -config FILE        設定ファイル (YAML)
  -sprint NAME        スプリント名
  -output PATH        CSVの出力先
  -help               このヘルプを表示する

環境変数:
  AZDO_ORG_URL        組織URL (必須)
  AZDO_PROJECT        プロジェクト名 (必須)
  AZDO_PAT            個人用アクセストークン (必須)
  AZDO_TEAM           チーム名
  SPRINT_NAME         スプリント名
  OUTPUT_DIR          出力フォルダ (デフォルト: reports)

説明:
  スプリント内の作業項目と、期間中にチームが他イテレーションで実施した作業項目を
  1行1件のCSVに書き出します。集計レポートは sprint_report を使用してください。
`, os.Args[0])
}
