package services

import (
	"context"
	"strings"

	"sprintreport/models"
	"sprintreport/utils"
)

// IterationResolver はスプリント名またはパスからイテレーションを特定します
type IterationResolver struct {
	source WorkItemSource
}

// NewIterationResolver は新しいリゾルバーを作成します
func NewIterationResolver(source WorkItemSource) *IterationResolver {
	return &IterationResolver{source: source}
}

// Resolve はイテレーションを検索します。
// pathOverride が指定されていればパスで、なければ名前で大文字小文字を無視した完全一致を行い、
// 最初に一致したものを返します。一覧の取得失敗・不一致はどちらも「見つからない」です
func (r *IterationResolver) Resolve(ctx context.Context, sprintName, pathOverride string) (*models.Iteration, bool) {
	iterations, err := r.source.ListIterations(ctx)
	if err != nil {
		utils.LogWarn("イテレーション一覧を取得できませんでした: %v", err)
		return nil, false
	}

	pathOverride = strings.TrimSpace(pathOverride)
	sprintName = strings.TrimSpace(sprintName)

	for _, dto := range iterations {
		var matched bool
		if pathOverride != "" {
			matched = strings.EqualFold(dto.Path, pathOverride)
		} else {
			matched = sprintName != "" && strings.EqualFold(dto.Name, sprintName)
		}
		if matched {
			it := dto.ToModel()
			utils.LogInfo("イテレーションを特定しました: %s (%s)", it.Name, it.Path)
			return &it, true
		}
	}

	if pathOverride != "" {
		utils.LogWarn("イテレーションパス '%s' が見つかりません", pathOverride)
	} else {
		utils.LogWarn("スプリント '%s' が見つかりません", sprintName)
	}
	return nil, false
}

// CurrentSprintName は現在のスプリント名を返します。取得できない場合は ok=false です
func (r *IterationResolver) CurrentSprintName(ctx context.Context) (string, bool) {
	iterations, err := r.source.CurrentIterations(ctx)
	if err != nil {
		utils.LogWarn("現在のスプリントを取得できませんでした: %v", err)
		return "", false
	}
	if len(iterations) == 0 || iterations[0].Name == "" {
		return "", false
	}
	return iterations[0].Name, true
}
