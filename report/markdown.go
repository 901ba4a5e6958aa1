package report

import (
	"fmt"
	"sort"
	"strings"

	"sprintreport/models"
)

const dateLayout = "2006-01-02"

// RenderMarkdown はスプリントレポートをMarkdownで組み立てます。
// 同じ入力からは常に同じ文字列になります
func RenderMarkdown(sprintName string, data *models.SprintData, result models.AnalysisResult, utilization []models.MemberUtilization, runID string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Sprint Report: %s\n\n", sprintName)
	if runID != "" {
		fmt.Fprintf(&b, "_Run ID: %s_\n\n", runID)
	}

	if data == nil || !data.Found {
		b.WriteString("No data: the sprint was not found in the configured project.\n")
		return b.String()
	}

	writeIteration(&b, data.Iteration)

	if result.TotalItems == 0 {
		b.WriteString("No work items were found for this sprint.\n\n")
	} else {
		writeSummary(&b, result)
		writeEffort(&b, result)
		writeScope(&b, result)
		writeBreakdown(&b, "By State", result.ByState, result.CompletedByState)
		writeBreakdown(&b, "By Type", result.ByType, result.CompletedByType)
		writePriorityBreakdown(&b, result)
		writeBreakdown(&b, "By Assignee", result.ByAssignee, result.CompletedByAssignee)
	}

	writeCapacity(&b, len(data.Capacities) > 0, utilization)

	if result.TotalItems > 0 {
		writeItemList(&b, "Blocked Items", result.BlockedItems)
		writeItemList(&b, "Unassigned Items", result.Unassigned)
		writeItemList(&b, "Added During Sprint", result.AddedDuringSprint)
		writeItemList(&b, "Work From Other Iterations", result.CrossIteration)
	}

	return b.String()
}

func writeIteration(b *strings.Builder, it models.Iteration) {
	fmt.Fprintf(b, "- Iteration path: `%s`\n", it.Path)
	if it.HasDates() {
		fmt.Fprintf(b, "- Period: %s to %s\n", it.Start.Format(dateLayout), it.End.Format(dateLayout))
	} else {
		b.WriteString("- Period: not set\n")
	}
	b.WriteString("\n")
}

func writeSummary(b *strings.Builder, r models.AnalysisResult) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Items | % |\n|---|---:|---:|\n")
	fmt.Fprintf(b, "| Completed | %d | %s |\n", r.CompletedCount, pct(r.CompletedPct))
	fmt.Fprintf(b, "| In progress | %d | %s |\n", r.InProgressCount, pct(r.InProgressPct))
	fmt.Fprintf(b, "| Not started | %d | %s |\n", r.NotStartedCount, pct(r.NotStartedPct))
	fmt.Fprintf(b, "| Blocked | %d | %s |\n", r.BlockedCount, pct(r.BlockedPct))
	fmt.Fprintf(b, "| **Total** | %d | |\n\n", r.TotalItems)
}

func writeEffort(b *strings.Builder, r models.AnalysisResult) {
	b.WriteString("## Effort\n\n")
	fmt.Fprintf(b, "- Original estimate: %s h\n", hours(r.TotalOriginalEstimate))
	fmt.Fprintf(b, "- Completed work: %s h\n", hours(r.TotalCompletedWork))
	fmt.Fprintf(b, "- Remaining work: %s h\n", hours(r.TotalRemainingWork))
	fmt.Fprintf(b, "- Items with an estimate: %d (%s)\n\n", r.ItemsWithEstimate, pct(r.EstimateCoveragePct))
}

func writeScope(b *strings.Builder, r models.AnalysisResult) {
	b.WriteString("## Scope\n\n")
	fmt.Fprintf(b, "- Original plan: %d\n", len(r.OriginalPlan))
	fmt.Fprintf(b, "- Added during sprint: %d\n", len(r.AddedDuringSprint))
	fmt.Fprintf(b, "- In sprint iteration: %d\n", len(r.SprintIteration))
	fmt.Fprintf(b, "- From other iterations: %d\n\n", len(r.CrossIteration))
}

func writeBreakdown(b *strings.Builder, title string, all, completed map[string]int) {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "## %s\n\n", title)
	b.WriteString("| Name | Items | Completed |\n|---|---:|---:|\n")
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(b, "| %s | %d | %d |\n", escapeCell(name), all[k], completed[k])
	}
	b.WriteString("\n")
}

func writePriorityBreakdown(b *strings.Builder, r models.AnalysisResult) {
	keys := make([]int, 0, len(r.ByPriority))
	for k := range r.ByPriority {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	b.WriteString("## By Priority\n\n")
	b.WriteString("| Priority | Items | Completed |\n|---|---:|---:|\n")
	for _, k := range keys {
		label := fmt.Sprintf("%d", k)
		if k == 0 {
			label = "(none)"
		}
		fmt.Fprintf(b, "| %s | %d | %d |\n", label, r.ByPriority[k], r.CompletedByPriority[k])
	}
	b.WriteString("\n")
}

// キャパシティ未設定でも担当者ごとの実績表は出力します
func writeCapacity(b *strings.Builder, hasCapacity bool, utilization []models.MemberUtilization) {
	b.WriteString("## Team Capacity\n\n")
	if !hasCapacity {
		b.WriteString("No capacity data is configured for this sprint.\n\n")
	}
	if len(utilization) == 0 {
		return
	}
	b.WriteString("| Member | Capacity (h) | Completed (h) | Remaining (h) | Items | Utilization |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|\n")
	for _, m := range utilization {
		utilizationCell := "-"
		if m.CapacityHours > 0 {
			utilizationCell = pct(m.UtilizationPct)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %d | %s |\n",
			escapeCell(m.Member), hours(m.CapacityHours), hours(m.CompletedWork), hours(m.RemainingWork), m.ItemCount, utilizationCell)
	}
	b.WriteString("\n")
}

func writeItemList(b *strings.Builder, title string, items []*models.WorkItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s (%d)\n\n", title, len(items))
	for _, item := range items {
		assignee := item.AssigneeName()
		if assignee == "" {
			assignee = "unassigned"
		}
		fmt.Fprintf(b, "- #%d %s [%s] (%s)", item.ID, item.Title, item.State, assignee)
		if item.ParentID != nil && item.ParentTitle != "" {
			fmt.Fprintf(b, " / parent: #%d %s", *item.ParentID, item.ParentTitle)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func hours(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
