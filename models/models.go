package models

import (
	"strings"
	"time"
)

// Identity はユーザーの表示名と一意名(メール/ドメインアカウント)の組です
type Identity struct {
	DisplayName string `json:"displayName" yaml:"display_name"`
	UniqueName  string `json:"uniqueName" yaml:"unique_name,omitempty"`
}

// IsEmpty は表示名・一意名のどちらも空かどうかを返します
func (i Identity) IsEmpty() bool {
	return strings.TrimSpace(i.DisplayName) == "" && strings.TrimSpace(i.UniqueName) == ""
}

// IdentitySet はチームメンバーの識別子集合です (前後空白を除去した完全一致)
type IdentitySet map[string]struct{}

// Add は空でない識別子を追加します
func (s IdentitySet) Add(name string) {
	name = strings.TrimSpace(name)
	if name != "" {
		s[name] = struct{}{}
	}
}

// Contains は識別子が集合に含まれるかを返します
func (s IdentitySet) Contains(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	_, ok := s[name]
	return ok
}

// Matches は表示名か一意名のいずれかが集合に含まれるかを返します
func (s IdentitySet) Matches(id Identity) bool {
	return s.Contains(id.DisplayName) || s.Contains(id.UniqueName)
}

// Iteration はスプリント(イテレーション)を表します
type Iteration struct {
	ID    string    `yaml:"id"`
	Name  string    `yaml:"name"`
	Path  string    `yaml:"path"`
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
}

// HasDates は開始日・終了日が両方わかっているかを返します
func (it Iteration) HasDates() bool {
	return !it.Start.IsZero() && !it.End.IsZero()
}

// Window はスプリント期間の半開区間 [Start, End+1日) を返します
func (it Iteration) Window() Window {
	return NewWindow(it.Start, it.End)
}

// Window は日付単位の半開区間 [From, Until) です
type Window struct {
	From  time.Time
	Until time.Time
}

// NewWindow は開始日と終了日(いずれも含む)から区間を作ります
func NewWindow(start, end time.Time) Window {
	return Window{
		From:  StartOfDay(start),
		Until: StartOfDay(end).AddDate(0, 0, 1),
	}
}

// Contains は t が区間内かどうかを返します
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(w.From) && t.Before(w.Until)
}

// ContainsPtr は nil を区間外として扱います
func (w Window) ContainsPtr(t *time.Time) bool {
	return t != nil && w.Contains(*t)
}

// StartOfDay は同じタイムゾーンでの 00:00 を返します
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WorkItem は作業項目を表します
type WorkItem struct {
	ID            int
	Title         string
	Type          string
	State         string
	Priority      int
	AreaPath      string
	IterationPath string

	AssignedTo  Identity
	ActivatedBy Identity
	ResolvedBy  Identity
	ClosedBy    Identity

	CreatedDate *time.Time
	ChangedDate *time.Time
	ClosedDate  *time.Time

	OriginalEstimate *float64
	CompletedWork    *float64
	RemainingWork    *float64

	// 親の情報は取得後に ParentID から補完されます
	ParentID       *int
	ParentTitle    string
	ParentState    string
	ParentAssignee string
}

// AssigneeName はレポート用の担当者名を返します
func (w WorkItem) AssigneeName() string {
	name := strings.TrimSpace(w.AssignedTo.DisplayName)
	if name == "" {
		name = strings.TrimSpace(w.AssignedTo.UniqueName)
	}
	return name
}

// TeamCapacityEntry はメンバー×アクティビティごとのキャパシティです
type TeamCapacityEntry struct {
	Member         Identity `yaml:"member"`
	Activity       string   `yaml:"activity"`
	CapacityPerDay float64  `yaml:"capacity_per_day"`
	DaysOff        int      `yaml:"days_off"`
	// スプリント全体の時間。稼働日数が不明な場合は1日あたりの値のまま
	SprintHours float64 `yaml:"sprint_hours"`
}

// SprintData はパイプラインが集めた1スプリント分のデータです
type SprintData struct {
	Found            bool
	Iteration        Iteration
	Items            []WorkItem
	Capacities       []TeamCapacityEntry
	IterationItemIDs map[int]struct{}
}

// AnalysisResult は作業項目の集計結果です
type AnalysisResult struct {
	TotalItems      int `yaml:"total_items"`
	CompletedCount  int `yaml:"completed"`
	InProgressCount int `yaml:"in_progress"`
	NotStartedCount int `yaml:"not_started"`
	BlockedCount    int `yaml:"blocked"`

	CompletedPct  float64 `yaml:"completed_pct"`
	InProgressPct float64 `yaml:"in_progress_pct"`
	NotStartedPct float64 `yaml:"not_started_pct"`
	BlockedPct    float64 `yaml:"blocked_pct"`

	ByState             map[string]int `yaml:"by_state"`
	CompletedByState    map[string]int `yaml:"completed_by_state"`
	ByType              map[string]int `yaml:"by_type"`
	CompletedByType     map[string]int `yaml:"completed_by_type"`
	ByPriority          map[int]int    `yaml:"by_priority"`
	CompletedByPriority map[int]int    `yaml:"completed_by_priority"`
	ByAssignee          map[string]int `yaml:"by_assignee"`
	CompletedByAssignee map[string]int `yaml:"completed_by_assignee"`

	TotalOriginalEstimate float64 `yaml:"total_original_estimate"`
	TotalCompletedWork    float64 `yaml:"total_completed_work"`
	TotalRemainingWork    float64 `yaml:"total_remaining_work"`
	ItemsWithEstimate     int     `yaml:"items_with_estimate"`
	EstimateCoveragePct   float64 `yaml:"estimate_coverage_pct"`

	// Items はID順。以下のパーティションは Items の要素を指すビューです
	Items             []WorkItem  `yaml:"-"`
	Unassigned        []*WorkItem `yaml:"-"`
	BlockedItems      []*WorkItem `yaml:"-"`
	OriginalPlan      []*WorkItem `yaml:"-"`
	AddedDuringSprint []*WorkItem `yaml:"-"`
	SprintIteration   []*WorkItem `yaml:"-"`
	CrossIteration    []*WorkItem `yaml:"-"`
}

// MemberUtilization はメンバーごとのキャパシティ消化状況です
type MemberUtilization struct {
	Member         string  `yaml:"member"`
	CapacityHours  float64 `yaml:"capacity_hours"`
	CompletedWork  float64 `yaml:"completed_work"`
	RemainingWork  float64 `yaml:"remaining_work"`
	ItemCount      int     `yaml:"items"`
	UtilizationPct float64 `yaml:"utilization_pct"`
}
