package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"sprintreport/config"
	"sprintreport/models"
	"sprintreport/utils"
)

// SprintService はスプリントデータ取得のパイプライン全体を実行します
type SprintService struct {
	config     *config.Config
	resolver   *IterationResolver
	ids        *ItemSetFetcher
	details    *DetailFetcher
	reconciler *Reconciler
	capacity   *CapacityAggregator
}

// NewSprintService は新しいスプリントサービスを作成します
func NewSprintService(cfg *config.Config, source WorkItemSource) *SprintService {
	ids := NewItemSetFetcher(source)
	details := NewDetailFetcher(source, cfg.BatchConcurrency)
	return &SprintService{
		config:     cfg,
		resolver:   NewIterationResolver(source),
		ids:        ids,
		details:    details,
		reconciler: NewReconciler(source, ids, details, cfg.RevisionConcurrency),
		capacity:   NewCapacityAggregator(source),
	}
}

// CurrentSprintName は現在のスプリント名を返します (ベストエフォート)
func (s *SprintService) CurrentSprintName(ctx context.Context) (string, bool) {
	return s.resolver.CurrentSprintName(ctx)
}

// FetchSprintData はスプリントの作業項目とキャパシティを取得します。
// イテレーション内のID取得と、キャパシティ取得から他イテレーション照合までを並行して行います。
// スプリントが見つからない場合はエラーではなく Found=false の空データを返します
func (s *SprintService) FetchSprintData(ctx context.Context, sprintName string) (*models.SprintData, error) {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "スプリントデータ取得")

	data := &models.SprintData{IterationItemIDs: map[int]struct{}{}}

	iteration, found := s.resolver.Resolve(ctx, sprintName, s.config.IterationPath)
	if !found {
		utils.LogWarn("スプリントのデータはありません: %s", sprintName)
		return data, nil
	}
	data.Found = true
	data.Iteration = *iteration

	var (
		iterationIDs map[int]struct{}
		crossItems   []models.WorkItem
	)

	// 照合にはチームの識別子が要るのでキャパシティ取得の後に行う
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.ids.QueryIDsInIteration(gctx, iteration.Path)
		if err != nil {
			return err
		}
		iterationIDs = ids
		return nil
	})
	g.Go(func() error {
		capacities, err := s.capacity.FetchCapacities(gctx, iteration.ID, iteration.Start, iteration.End)
		if err != nil {
			return err
		}
		data.Capacities = capacities

		if !iteration.HasDates() {
			utils.LogWarn("イテレーション %s に期間が設定されていないため、他イテレーションの作業は照合しません", iteration.Path)
			return nil
		}
		items, err := s.reconciler.Reconcile(gctx, iteration.Window(), iteration.Path, TeamIdentities(capacities))
		if err != nil {
			return fmt.Errorf("他イテレーション作業の照合エラー: %w", err)
		}
		crossItems = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	union := make(map[int]struct{}, len(iterationIDs)+len(crossItems))
	for id := range iterationIDs {
		union[id] = struct{}{}
	}
	for _, item := range crossItems {
		union[item.ID] = struct{}{}
	}
	utils.LogInfo("対象作業項目: イテレーション内 %d 件 + 他イテレーション %d 件 = %d 件",
		len(iterationIDs), len(crossItems), len(union))

	items, err := s.details.FetchDetails(ctx, union)
	if err != nil {
		return nil, fmt.Errorf("作業項目詳細取得エラー: %w", err)
	}
	BackfillParents(items)

	data.Items = items
	data.IterationItemIDs = iterationIDs
	return data, nil
}

// Analyze は取得済みデータを集計します
func (s *SprintService) Analyze(data *models.SprintData) models.AnalysisResult {
	return Analyze(data.Items, data.Iteration.Start, data.IterationItemIDs)
}

// BackfillParents は取得済みの作業項目から親のタイトル・状態・担当者を補完します。
// 取得対象外の親は別途取得しません
func BackfillParents(items []models.WorkItem) {
	index := make(map[int]int, len(items))
	for i, item := range items {
		index[item.ID] = i
	}
	for i := range items {
		if items[i].ParentID == nil {
			continue
		}
		j, ok := index[*items[i].ParentID]
		if !ok {
			continue
		}
		parent := items[j]
		items[i].ParentTitle = parent.Title
		items[i].ParentState = parent.State
		items[i].ParentAssignee = parent.AssigneeName()
	}
}
