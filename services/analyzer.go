package services

import (
	"sort"
	"strings"
	"time"

	"sprintreport/models"
)

// UnassignedLabel は担当者なしの作業項目に使う表示名です
const UnassignedLabel = "Unassigned"

// 状態の分類。大文字小文字を無視した完全一致で判定します
var (
	completedStates  = []string{"Closed", "Done", "Resolved"}
	inProgressStates = []string{"Active", "In Progress"}
	notStartedStates = []string{"New", "To Do"}
	blockedStates    = []string{"Blocked"}
)

// Analyze は作業項目を1回走査して集計します。
// 入力の順序に関係なく同じ結果になるよう、ID順に並べたコピーを対象にします
func Analyze(items []models.WorkItem, sprintStart time.Time, sprintIterationIDs map[int]struct{}) models.AnalysisResult {
	sorted := make([]models.WorkItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	r := models.AnalysisResult{
		TotalItems:          len(sorted),
		ByState:             map[string]int{},
		CompletedByState:    map[string]int{},
		ByType:              map[string]int{},
		CompletedByType:     map[string]int{},
		ByPriority:          map[int]int{},
		CompletedByPriority: map[int]int{},
		ByAssignee:          map[string]int{},
		CompletedByAssignee: map[string]int{},
		Items:               sorted,
	}

	// 開始日当日に作成されたものも当初計画に含める
	var planCutoff time.Time
	if !sprintStart.IsZero() {
		planCutoff = models.StartOfDay(sprintStart).AddDate(0, 0, 1)
	}

	for i := range sorted {
		item := &sorted[i]

		if _, ok := sprintIterationIDs[item.ID]; ok {
			r.SprintIteration = append(r.SprintIteration, item)
		} else {
			r.CrossIteration = append(r.CrossIteration, item)
		}

		if planCutoff.IsZero() || item.CreatedDate == nil || item.CreatedDate.Before(planCutoff) {
			r.OriginalPlan = append(r.OriginalPlan, item)
		} else {
			r.AddedDuringSprint = append(r.AddedDuringSprint, item)
		}

		completed := false
		switch {
		case stateIn(item.State, completedStates):
			r.CompletedCount++
			completed = true
		case stateIn(item.State, inProgressStates):
			r.InProgressCount++
		case stateIn(item.State, notStartedStates):
			r.NotStartedCount++
		case stateIn(item.State, blockedStates):
			r.BlockedCount++
			r.BlockedItems = append(r.BlockedItems, item)
		}

		assignee := item.AssigneeName()
		if isUnassigned(assignee) {
			assignee = UnassignedLabel
			r.Unassigned = append(r.Unassigned, item)
		}

		r.ByState[item.State]++
		r.ByType[item.Type]++
		r.ByPriority[item.Priority]++
		r.ByAssignee[assignee]++
		if completed {
			r.CompletedByState[item.State]++
			r.CompletedByType[item.Type]++
			r.CompletedByPriority[item.Priority]++
			r.CompletedByAssignee[assignee]++
		}

		if item.OriginalEstimate != nil {
			r.TotalOriginalEstimate += *item.OriginalEstimate
			r.ItemsWithEstimate++
		}
		if item.CompletedWork != nil {
			r.TotalCompletedWork += *item.CompletedWork
		}
		if item.RemainingWork != nil {
			r.TotalRemainingWork += *item.RemainingWork
		}
	}

	r.CompletedPct = percent(r.CompletedCount, r.TotalItems)
	r.InProgressPct = percent(r.InProgressCount, r.TotalItems)
	r.NotStartedPct = percent(r.NotStartedCount, r.TotalItems)
	r.BlockedPct = percent(r.BlockedCount, r.TotalItems)
	r.EstimateCoveragePct = percent(r.ItemsWithEstimate, r.TotalItems)

	return r
}

// SummarizeCapacity はメンバーごとのキャパシティと実績工数を突き合わせます
func SummarizeCapacity(entries []models.TeamCapacityEntry, items []models.WorkItem) []models.MemberUtilization {
	byMember := map[string]*models.MemberUtilization{}
	get := func(name string) *models.MemberUtilization {
		m, ok := byMember[name]
		if !ok {
			m = &models.MemberUtilization{Member: name}
			byMember[name] = m
		}
		return m
	}

	for _, e := range entries {
		name := strings.TrimSpace(e.Member.DisplayName)
		if name == "" {
			name = strings.TrimSpace(e.Member.UniqueName)
		}
		if name == "" {
			continue
		}
		get(name).CapacityHours += e.SprintHours
	}

	for _, item := range items {
		name := item.AssigneeName()
		if isUnassigned(name) {
			continue
		}
		m := get(name)
		m.ItemCount++
		if item.CompletedWork != nil {
			m.CompletedWork += *item.CompletedWork
		}
		if item.RemainingWork != nil {
			m.RemainingWork += *item.RemainingWork
		}
	}

	out := make([]models.MemberUtilization, 0, len(byMember))
	for _, m := range byMember {
		if m.CapacityHours > 0 {
			m.UtilizationPct = m.CompletedWork / m.CapacityHours * 100
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Member < out[j].Member })
	return out
}

func stateIn(state string, vocabulary []string) bool {
	for _, s := range vocabulary {
		if strings.EqualFold(state, s) {
			return true
		}
	}
	return false
}

func isUnassigned(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || name == UnassignedLabel
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
