package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sprintreport/api"
	"sprintreport/config"
	"sprintreport/report"
	"sprintreport/services"
	"sprintreport/utils"
)

// errNoSprint はスプリント名が決められなかった場合のエラーです
var errNoSprint = errors.New("スプリント名が指定されておらず、現在のスプリントも取得できませんでした")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "スプリントレポートを生成する",
	Long: `指定したスプリントのデータを取得して集計し、レポートファイルを書き出します。
--sprint を省略した場合は SPRINT_NAME、それもなければ現在のスプリントを使います。

例:
  sprint_report run --sprint "Sprint 12" --format yaml
  sprint_report run --iteration-path "Platform\Release 2\Sprint 12"`,
	RunE: runReport,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("sprint", "", "スプリント名 (大文字小文字を区別しない完全一致)")
	cmd.Flags().String("iteration-path", "", "イテレーションパスで直接指定する")
	cmd.Flags().String("output-dir", "", "レポートの出力フォルダ")
	cmd.Flags().String("format", "", "出力形式 (markdown, yaml, csv)")
	cmd.Flags().Int("batch-concurrency", 0, "作業項目一括取得の並列数")
	cmd.Flags().Int("revision-concurrency", 0, "更新履歴取得の並列数")
}

// applyRunFlags は指定されたフラグだけ設定を上書きします
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("sprint") == nil {
		return
	}
	if flags.Changed("sprint") {
		cfg.SprintName, _ = flags.GetString("sprint")
	}
	if flags.Changed("iteration-path") {
		cfg.IterationPath, _ = flags.GetString("iteration-path")
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("format") {
		cfg.ReportFormat, _ = flags.GetString("format")
	}
	if n, _ := flags.GetInt("batch-concurrency"); n > 0 {
		cfg.BatchConcurrency = n
	}
	if n, _ := flags.GetInt("revision-concurrency"); n > 0 {
		cfg.RevisionConcurrency = n
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := report.Extension(cfg.ReportFormat); err != nil {
		return err
	}

	runID := uuid.New().String()
	utils.WithRunID(runID)
	utils.LogInfo("スプリントレポート生成を開始します (接続先: %s/%s)", cfg.OrgURL, cfg.Project)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewDevOpsClient(cfg)
	path, err := generateReport(ctx, cfg, client, runID, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// generateReport はスプリント名の決定から集計、レポート書き込みまでを行います。
// 途中でエラーになった場合はファイルを書きません
func generateReport(ctx context.Context, cfg *config.Config, source services.WorkItemSource, runID string, now time.Time) (string, error) {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "スプリントレポート生成")

	svc := services.NewSprintService(cfg, source)

	sprintName := strings.TrimSpace(cfg.SprintName)
	if sprintName == "" && cfg.IterationPath == "" {
		name, ok := svc.CurrentSprintName(ctx)
		if !ok {
			return "", errNoSprint
		}
		utils.LogInfo("現在のスプリントを使用します: %s", name)
		sprintName = name
	}

	data, err := svc.FetchSprintData(ctx, sprintName)
	if err != nil {
		return "", fmt.Errorf("スプリントデータ取得に失敗しました: %w", err)
	}
	if sprintName == "" {
		sprintName = data.Iteration.Name
	}

	result := svc.Analyze(data)
	utilization := services.SummarizeCapacity(data.Capacities, data.Items)
	utils.LogInfo("集計完了: %d 件 (完了 %d 件, %.1f%%)", result.TotalItems, result.CompletedCount, result.CompletedPct)

	name, err := report.FileName(sprintName, cfg.ReportFormat, now)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(cfg.ReportFormat) {
	case report.FormatCSV:
		path := filepath.Join(cfg.OutputDir, name)
		if err := services.WriteWorkItemsCSV(path, data.Items, data.IterationItemIDs); err != nil {
			return "", err
		}
		return path, nil
	case report.FormatYAML, "yml":
		var buf bytes.Buffer
		if err := report.WriteYAML(&buf, sprintName, data, result, utilization, runID); err != nil {
			return "", err
		}
		return report.Write(cfg.OutputDir, name, buf.Bytes())
	default:
		body := report.RenderMarkdown(sprintName, data, result, utilization, runID)
		return report.Write(cfg.OutputDir, name, []byte(body))
	}
}
