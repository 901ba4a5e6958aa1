package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sprintreport/api"
	"sprintreport/models"
	"sprintreport/utils"
)

// UnspecifiedActivity はアクティビティ未設定のメンバーに付けるラベルです
const UnspecifiedActivity = "Unspecified"

// CapacityAggregator はメンバー別キャパシティをスプリント全体の時間に換算します
type CapacityAggregator struct {
	source WorkItemSource
}

// NewCapacityAggregator は新しいアグリゲーターを作成します
func NewCapacityAggregator(source WorkItemSource) *CapacityAggregator {
	return &CapacityAggregator{source: source}
}

// FetchCapacities はイテレーションのキャパシティを取得して正規化します。
// iterationID が空の場合は何も取得しません
func (c *CapacityAggregator) FetchCapacities(ctx context.Context, iterationID string, start, end time.Time) ([]models.TeamCapacityEntry, error) {
	if iterationID == "" {
		return nil, nil
	}

	members, err := c.source.IterationCapacities(ctx, iterationID)
	if err != nil {
		return nil, fmt.Errorf("キャパシティ取得エラー: %w", err)
	}

	entries := NormalizeCapacities(members, start, end)
	utils.LogInfo("キャパシティ: メンバー %d 人, %d エントリ", len(members), len(entries))
	return entries, nil
}

// NormalizeCapacities はメンバー×アクティビティごとのエントリを作ります。
// 稼働日数が0(日付不明)の場合、SprintHours は1日あたりの値のままです
func NormalizeCapacities(members []api.CapacityDTO, start, end time.Time) []models.TeamCapacityEntry {
	workingDays := WorkingDays(start, end)

	var entries []models.TeamCapacityEntry
	for _, m := range members {
		member := m.TeamMember.ToModel()
		daysOff := countDaysOff(m.DaysOff, start, end)

		// アクティビティのないメンバーも一覧に残すため0時間のエントリを作る
		if len(m.Activities) == 0 {
			entries = append(entries, models.TeamCapacityEntry{
				Member:   member,
				Activity: UnspecifiedActivity,
				DaysOff:  daysOff,
			})
			continue
		}

		for _, a := range m.Activities {
			activity := strings.TrimSpace(a.Name)
			if activity == "" {
				activity = UnspecifiedActivity
			}
			entries = append(entries, models.TeamCapacityEntry{
				Member:         member,
				Activity:       activity,
				CapacityPerDay: a.CapacityPerDay,
				DaysOff:        daysOff,
				SprintHours:    SprintHours(a.CapacityPerDay, workingDays, daysOff),
			})
		}
	}
	return entries
}

// SprintHours は perDay × max(0, workingDays − daysOff) を返します
func SprintHours(perDay float64, workingDays, daysOff int) float64 {
	if workingDays == 0 {
		return perDay
	}
	days := workingDays - daysOff
	if days < 0 {
		days = 0
	}
	return perDay * float64(days)
}

// WorkingDays は [start, end] の土日を除いた日数です。日付が不明な場合は0です
func WorkingDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return countWeekdays(models.StartOfDay(start), models.StartOfDay(end))
}

func countWeekdays(from, to time.Time) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// countDaysOff は休暇期間の平日数を数えます。スプリント期間がわかっていればその範囲に切り詰めます
func countDaysOff(ranges []api.DateRange, start, end time.Time) int {
	known := !start.IsZero() && !end.IsZero()
	total := 0
	for _, r := range ranges {
		if r.Start.IsZero() || r.End.IsZero() {
			continue
		}
		from := models.StartOfDay(r.Start.UTC())
		to := models.StartOfDay(r.End.UTC())
		if known {
			if s := models.StartOfDay(start); from.Before(s) {
				from = s
			}
			if e := models.StartOfDay(end); to.After(e) {
				to = e
			}
		}
		if to.Before(from) {
			continue
		}
		total += countWeekdays(from, to)
	}
	return total
}

// TeamIdentities はキャパシティからチームメンバーの識別子集合を作ります。
// 表示名が "名前 <識別子>" の形なら両方を別々に追加します
func TeamIdentities(entries []models.TeamCapacityEntry) models.IdentitySet {
	set := models.IdentitySet{}
	for _, e := range entries {
		display := e.Member.DisplayName
		set.Add(display)
		if strings.Contains(display, "<") && strings.HasSuffix(strings.TrimSpace(display), ">") {
			parts := api.ParseIdentityString(display)
			set.Add(parts.DisplayName)
			set.Add(parts.UniqueName)
		}
		set.Add(e.Member.UniqueName)
	}
	return set
}
