package services

import (
	"context"
	"fmt"
	"strings"

	"sprintreport/models"
	"sprintreport/utils"
)

const wiqlDateFormat = "2006-01-02"

// ItemSetFetcher はWIQLで作業項目IDの集合を取得します
type ItemSetFetcher struct {
	source WorkItemSource
}

// NewItemSetFetcher は新しいフェッチャーを作成します
func NewItemSetFetcher(source WorkItemSource) *ItemSetFetcher {
	return &ItemSetFetcher{source: source}
}

// QueryIDsInIteration はイテレーションパスが完全一致する作業項目IDを返します
func (f *ItemSetFetcher) QueryIDsInIteration(ctx context.Context, iterationPath string) (map[int]struct{}, error) {
	query := IterationQuery(iterationPath)
	ids, err := f.runQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("イテレーション内の作業項目取得エラー: %w", err)
	}
	utils.LogInfo("イテレーション内の作業項目: %d 件", len(ids))
	return ids, nil
}

// QueryIDsChangedInRange は期間内に更新され、かつ別イテレーションにある作業項目IDを返します
func (f *ItemSetFetcher) QueryIDsChangedInRange(ctx context.Context, window models.Window, excludePath string) (map[int]struct{}, error) {
	query := ChangedInRangeQuery(window, excludePath)
	ids, err := f.runQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("期間内更新の作業項目取得エラー: %w", err)
	}
	utils.LogInfo("期間内に更新された他イテレーションの作業項目: %d 件", len(ids))
	return ids, nil
}

// runQuery は継続トークンが返らなくなるまで同じクエリを繰り返し、IDを集めます
func (f *ItemSetFetcher) runQuery(ctx context.Context, query string) (map[int]struct{}, error) {
	ids := make(map[int]struct{})
	seen := make(map[string]bool)
	token := ""
	pages := 0

	for {
		page, err := f.source.QueryWIQL(ctx, query, token)
		if err != nil {
			return nil, err
		}
		pages++

		for _, id := range page.IDs {
			if id > 0 {
				ids[id] = struct{}{}
			}
		}

		token = page.ContinuationToken
		if token == "" {
			break
		}
		if seen[token] {
			return nil, fmt.Errorf("継続トークンが繰り返されました: %s", token)
		}
		seen[token] = true
	}

	utils.LogDebug("WIQL: %d ページ, %d 件", pages, len(ids))
	return ids, nil
}

// IterationQuery はイテレーションパス完全一致のWIQLを組み立てます
func IterationQuery(iterationPath string) string {
	return fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = @project AND [System.IterationPath] = '%s'",
		escapeWIQL(iterationPath),
	)
}

// ChangedInRangeQuery は更新日時が [From, Until) にあり、指定パス以外にある作業項目のWIQLを組み立てます
func ChangedInRangeQuery(window models.Window, excludePath string) string {
	return fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = @project"+
			" AND [System.ChangedDate] >= '%s' AND [System.ChangedDate] < '%s'"+
			" AND [System.IterationPath] <> '%s'",
		window.From.Format(wiqlDateFormat),
		window.Until.Format(wiqlDateFormat),
		escapeWIQL(excludePath),
	)
}

func escapeWIQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
