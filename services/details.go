package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sprintreport/api"
	"sprintreport/models"
	"sprintreport/utils"
)

// 作業項目のフィールド参照名
const (
	fieldTitle            = "System.Title"
	fieldWorkItemType     = "System.WorkItemType"
	fieldState            = "System.State"
	fieldAreaPath         = "System.AreaPath"
	fieldIterationPath    = "System.IterationPath"
	fieldAssignedTo       = "System.AssignedTo"
	fieldCreatedDate      = "System.CreatedDate"
	fieldChangedDate      = "System.ChangedDate"
	fieldPriority         = "Microsoft.VSTS.Common.Priority"
	fieldActivatedBy      = "Microsoft.VSTS.Common.ActivatedBy"
	fieldResolvedBy       = "Microsoft.VSTS.Common.ResolvedBy"
	fieldClosedBy         = "Microsoft.VSTS.Common.ClosedBy"
	fieldClosedDate       = "Microsoft.VSTS.Common.ClosedDate"
	fieldOriginalEstimate = "Microsoft.VSTS.Scheduling.OriginalEstimate"
	fieldCompletedWork    = "Microsoft.VSTS.Scheduling.CompletedWork"
	fieldRemainingWork    = "Microsoft.VSTS.Scheduling.RemainingWork"

	relHierarchyReverse = "System.LinkTypes.Hierarchy-Reverse"
)

// DetailFetcher は作業項目の詳細をバッチ単位で並列取得します
type DetailFetcher struct {
	source      WorkItemSource
	batchSize   int
	concurrency int
}

// NewDetailFetcher は新しいフェッチャーを作成します
func NewDetailFetcher(source WorkItemSource, concurrency int) *DetailFetcher {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &DetailFetcher{
		source:      source,
		batchSize:   api.MaxBatchSize,
		concurrency: concurrency,
	}
}

// FetchDetails はID集合の作業項目を取得します。
// 返す順序はバッチの到着順で、呼び出し側は順序に依存してはいけません
func (f *DetailFetcher) FetchDetails(ctx context.Context, ids map[int]struct{}) ([]models.WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	startTime := time.Now()
	defer utils.TrackTime(startTime, "作業項目詳細取得")

	batches := ChunkIDs(SortedIDs(ids), f.batchSize)
	utils.LogInfo("作業項目詳細を取得します: %d 件 (%d バッチ, 並列数 %d)", len(ids), len(batches), f.concurrency)

	results := make(chan []models.WorkItem, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for idx, batch := range batches {
		idx, batch := idx, batch
		g.Go(func() error {
			dtos, err := f.source.WorkItemsBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("バッチ %d/%d の取得に失敗: %w", idx+1, len(batches), err)
			}
			items := make([]models.WorkItem, 0, len(dtos))
			for _, dto := range dtos {
				item, ok := ParseWorkItem(dto)
				if !ok {
					utils.LogWarn("作業項目 %d: フィールドがないためスキップします", dto.ID)
					continue
				}
				items = append(items, item)
			}
			results <- items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	out := make([]models.WorkItem, 0, len(ids))
	for items := range results {
		out = append(out, items...)
	}
	return out, nil
}

// SortedIDs はID集合を昇順スライスにします
func SortedIDs(ids map[int]struct{}) []int {
	out := make([]int, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// ChunkIDs はIDを size 件ずつに分割します
func ChunkIDs(ids []int, size int) [][]int {
	if size <= 0 {
		size = api.MaxBatchSize
	}
	var chunks [][]int
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// ParseWorkItem はAPIの作業項目をドメイン型に変換します。フィールドブロックがなければ ok=false です
func ParseWorkItem(dto api.WorkItemDTO) (models.WorkItem, bool) {
	if dto.Fields == nil {
		return models.WorkItem{}, false
	}
	f := dto.Fields

	item := models.WorkItem{
		ID:            dto.ID,
		Title:         fieldString(f, fieldTitle),
		Type:          fieldString(f, fieldWorkItemType),
		State:         fieldString(f, fieldState),
		Priority:      fieldInt(f, fieldPriority),
		AreaPath:      fieldString(f, fieldAreaPath),
		IterationPath: fieldString(f, fieldIterationPath),

		AssignedTo:  api.IdentityFromValue(f[fieldAssignedTo]),
		ActivatedBy: api.IdentityFromValue(f[fieldActivatedBy]),
		ResolvedBy:  api.IdentityFromValue(f[fieldResolvedBy]),
		ClosedBy:    api.IdentityFromValue(f[fieldClosedBy]),

		CreatedDate: fieldTime(f, fieldCreatedDate),
		ChangedDate: fieldTime(f, fieldChangedDate),
		ClosedDate:  fieldTime(f, fieldClosedDate),

		OriginalEstimate: fieldHours(f, fieldOriginalEstimate),
		CompletedWork:    fieldHours(f, fieldCompletedWork),
		RemainingWork:    fieldHours(f, fieldRemainingWork),

		ParentID: ParentIDFromRelations(dto.Relations),
	}
	return item, true
}

// ParentIDFromRelations は親リンクのURL末尾から親IDを取り出します。不正・なしの場合は nil です
func ParentIDFromRelations(relations []api.RelationDTO) *int {
	for _, rel := range relations {
		if rel.Rel != relHierarchyReverse {
			continue
		}
		u := strings.TrimRight(rel.URL, "/")
		idx := strings.LastIndex(u, "/")
		if idx < 0 {
			return nil
		}
		id, err := strconv.Atoi(u[idx+1:])
		if err != nil || id <= 0 {
			return nil
		}
		return &id
	}
	return nil
}

func fieldString(f map[string]interface{}, key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func fieldInt(f map[string]interface{}, key string) int {
	n, ok := toFloat(f[key])
	if !ok {
		return 0
	}
	return int(n)
}

// 工数は0以上のみ有効。負の値は未設定として扱う
func fieldHours(f map[string]interface{}, key string) *float64 {
	n, ok := toFloat(f[key])
	if !ok || n < 0 {
		return nil
	}
	return &n
}

func fieldTime(f map[string]interface{}, key string) *time.Time {
	s, ok := f[key].(string)
	if !ok {
		return nil
	}
	t, ok := parseTime(s)
	if !ok {
		return nil
	}
	return &t
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
