package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"sprintreport/models"
)

// yamlItem はYAML出力用の作業項目の要約です
type yamlItem struct {
	ID       int    `yaml:"id"`
	Title    string `yaml:"title"`
	Type     string `yaml:"type,omitempty"`
	State    string `yaml:"state"`
	Assignee string `yaml:"assignee,omitempty"`
	Parent   *int   `yaml:"parent,omitempty"`
}

type yamlReport struct {
	Sprint      string                     `yaml:"sprint"`
	RunID       string                     `yaml:"run_id,omitempty"`
	Found       bool                       `yaml:"found"`
	Iteration   *models.Iteration          `yaml:"iteration,omitempty"`
	Summary     *models.AnalysisResult     `yaml:"summary,omitempty"`
	Capacity    []models.TeamCapacityEntry `yaml:"capacity,omitempty"`
	Utilization []models.MemberUtilization `yaml:"utilization,omitempty"`

	BlockedItems        []yamlItem `yaml:"blocked_items,omitempty"`
	AddedDuringSprint   []yamlItem `yaml:"added_during_sprint,omitempty"`
	CrossIterationItems []yamlItem `yaml:"cross_iteration_items,omitempty"`
}

// WriteYAML は集計結果を機械可読なYAMLで書き出します
func WriteYAML(w io.Writer, sprintName string, data *models.SprintData, result models.AnalysisResult, utilization []models.MemberUtilization, runID string) error {
	out := yamlReport{Sprint: sprintName, RunID: runID}
	if data != nil && data.Found {
		it := data.Iteration
		out.Found = true
		out.Iteration = &it
		out.Summary = &result
		out.Capacity = data.Capacities
		out.Utilization = utilization
		out.BlockedItems = toYAMLItems(result.BlockedItems)
		out.AddedDuringSprint = toYAMLItems(result.AddedDuringSprint)
		out.CrossIterationItems = toYAMLItems(result.CrossIteration)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("YAMLエンコードエラー: %w", err)
	}
	return enc.Close()
}

func toYAMLItems(items []*models.WorkItem) []yamlItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]yamlItem, 0, len(items))
	for _, item := range items {
		out = append(out, yamlItem{
			ID:       item.ID,
			Title:    item.Title,
			Type:     item.Type,
			State:    item.State,
			Assignee: item.AssigneeName(),
			Parent:   item.ParentID,
		})
	}
	return out
}
