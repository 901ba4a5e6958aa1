package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sprintreport/api"
	"sprintreport/models"
	"sprintreport/utils"
)

// meaningfulStates は状態遷移を「実作業」とみなす状態です
var meaningfulStates = []string{"Active", "In Progress", "Resolved", "Closed", "Done"}

var effortFields = []string{fieldOriginalEstimate, fieldCompletedWork, fieldRemainingWork}

// Reconciler は他イテレーションの作業項目のうち、スプリント期間中にチームが実際に作業したものを抽出します
type Reconciler struct {
	source      WorkItemSource
	ids         *ItemSetFetcher
	details     *DetailFetcher
	concurrency int
}

// NewReconciler は新しいリコンサイラーを作成します
func NewReconciler(source WorkItemSource, ids *ItemSetFetcher, details *DetailFetcher, concurrency int) *Reconciler {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Reconciler{
		source:      source,
		ids:         ids,
		details:     details,
		concurrency: concurrency,
	}
}

// Reconcile は候補の検索・詳細取得・事前フィルタ・更新履歴チェックを順に行います。
// 返す順序は並列処理の完了順です
func (r *Reconciler) Reconcile(ctx context.Context, window models.Window, excludePath string, team models.IdentitySet) ([]models.WorkItem, error) {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "他イテレーション作業の照合")

	if len(team) == 0 {
		utils.LogWarn("チームメンバーが不明なため、他イテレーションの作業は照合しません")
		return nil, nil
	}

	candidateIDs, err := r.ids.QueryIDsChangedInRange(ctx, window, excludePath)
	if err != nil {
		return nil, err
	}

	candidates, err := r.details.FetchDetails(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("候補の詳細取得エラー: %w", err)
	}

	filtered := make([]models.WorkItem, 0, len(candidates))
	for _, item := range candidates {
		if PassesPreFilter(item, window, team) {
			filtered = append(filtered, item)
		}
	}
	utils.LogInfo("事前フィルタ: %d 件中 %d 件が更新履歴チェック対象", len(candidates), len(filtered))

	confirmed, err := r.checkRevisions(ctx, filtered, window, team)
	if err != nil {
		return nil, err
	}

	utils.LogInfo("他イテレーションの作業として確認: %d 件", len(confirmed))
	return confirmed, nil
}

// checkRevisions は更新履歴を並列数を制限して確認し、条件を満たす作業項目だけを集めます
func (r *Reconciler) checkRevisions(ctx context.Context, items []models.WorkItem, window models.Window, team models.IdentitySet) ([]models.WorkItem, error) {
	var (
		confirmed []models.WorkItem
		mu        sync.Mutex
		wg        sync.WaitGroup
	)

	// セマフォとしてのチャネル（並列数を制限）
	semaphore := make(chan struct{}, r.concurrency)

dispatch:
	for _, item := range items {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}

		wg.Add(1)
		go func(it models.WorkItem) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if !r.hasTeamActivity(ctx, it, window, team) {
				return
			}

			mu.Lock()
			confirmed = append(confirmed, it)
			mu.Unlock()
		}(item)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return confirmed, nil
}

// hasTeamActivity は1件の更新履歴を確認します。取得エラーは「根拠なし」として扱います
func (r *Reconciler) hasTeamActivity(ctx context.Context, item models.WorkItem, window models.Window, team models.IdentitySet) bool {
	updates, err := r.source.WorkItemUpdates(ctx, item.ID)
	if err != nil {
		if ctx.Err() == nil {
			utils.LogWarn("作業項目 %d の更新履歴を取得できません: %v", item.ID, err)
		}
		return false
	}
	return HasQualifyingRevision(updates, window, team)
}

// PassesPreFilter はメモリ上のフィールドだけで候補を絞り込みます
func PassesPreFilter(item models.WorkItem, window models.Window, team models.IdentitySet) bool {
	assigned := team.Matches(item.AssignedTo)
	activated := team.Matches(item.ActivatedBy)
	resolved := team.Matches(item.ResolvedBy)
	closed := team.Matches(item.ClosedBy)

	if !(assigned || activated || resolved || closed) {
		return false
	}

	switch {
	case positive(item.OriginalEstimate), positive(item.CompletedWork), positive(item.RemainingWork):
		return true
	case closed && window.ContainsPtr(item.ClosedDate):
		return true
	case resolved, activated:
		return true
	case assigned && window.ContainsPtr(item.ChangedDate):
		return true
	}
	return false
}

// HasQualifyingRevision は期間内にチームメンバーが意味のある変更をしたリビジョンがあるかを返します
func HasQualifyingRevision(updates []api.UpdateDTO, window models.Window, team models.IdentitySet) bool {
	for _, u := range updates {
		if !window.Contains(revisionTime(u)) {
			continue
		}
		if !team.Matches(u.RevisedBy.ToModel()) {
			continue
		}
		if qualifyingChange(u.Fields, team) {
			return true
		}
	}
	return false
}

// revisionTime は変更日時を返します。revisedDate は次のリビジョンの日時になるため System.ChangedDate を優先します
func revisionTime(u api.UpdateDTO) time.Time {
	if fc, ok := u.Fields[fieldChangedDate]; ok {
		if s, ok := fc.NewValue.(string); ok {
			if t, ok := parseTime(s); ok {
				return t
			}
		}
	}
	return u.RevisedDate
}

func qualifyingChange(fields map[string]api.FieldChange, team models.IdentitySet) bool {
	for _, name := range effortFields {
		fc, ok := fields[name]
		if !ok {
			continue
		}
		oldVal, _ := toFloat(fc.OldValue)
		newVal, _ := toFloat(fc.NewValue)
		if oldVal != newVal {
			return true
		}
	}

	if fc, ok := fields[fieldState]; ok {
		oldState := strings.TrimSpace(stringValue(fc.OldValue))
		newState := strings.TrimSpace(stringValue(fc.NewValue))
		if oldState != "" && newState != "" && !strings.EqualFold(oldState, newState) &&
			(isMeaningfulState(oldState) || isMeaningfulState(newState)) {
			return true
		}
	}

	if fc, ok := fields[fieldAssignedTo]; ok {
		oldID := api.IdentityFromValue(fc.OldValue)
		newID := api.IdentityFromValue(fc.NewValue)
		if !newID.IsEmpty() && !sameIdentity(oldID, newID) && team.Matches(newID) {
			return true
		}
	}

	return false
}

func isMeaningfulState(state string) bool {
	for _, s := range meaningfulStates {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}

// sameIdentity は一意名が両方あれば一意名で、どちらかが欠けていれば表示名で比較します
func sameIdentity(a, b models.Identity) bool {
	ua, ub := strings.TrimSpace(a.UniqueName), strings.TrimSpace(b.UniqueName)
	if ua != "" && ub != "" {
		return ua == ub
	}
	return strings.TrimSpace(a.DisplayName) == strings.TrimSpace(b.DisplayName)
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}
