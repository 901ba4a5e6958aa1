package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"sprintreport/models"
	"sprintreport/utils"
)

// csvHeaders は出力するフィールドと順序です
var csvHeaders = []string{
	"ID", "Title", "Type", "State", "Priority", "Assigned To", "Iteration Path",
	"In Sprint Iteration", "Created Date", "Changed Date", "Closed Date",
	"Original Estimate", "Completed Work", "Remaining Work",
	"Parent ID", "Parent Title", "Parent State",
}

// WriteWorkItemsCSV は作業項目をID順にCSVへ書き込みます
func WriteWorkItemsCSV(path string, items []models.WorkItem, iterationIDs map[int]struct{}) error {
	utils.LogInfo("作業項目CSVファイル '%s' を作成します", path)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("出力フォルダ作成エラー: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("CSVファイル作成エラー: %w", err)
	}
	defer file.Close()

	sorted := make([]models.WorkItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("ヘッダー書き込みエラー: %w", err)
	}

	for _, item := range sorted {
		_, inSprint := iterationIDs[item.ID]
		row := []string{
			strconv.Itoa(item.ID),
			item.Title,
			item.Type,
			item.State,
			strconv.Itoa(item.Priority),
			item.AssigneeName(),
			item.IterationPath,
			strconv.FormatBool(inSprint),
			formatCSVTime(item.CreatedDate),
			formatCSVTime(item.ChangedDate),
			formatCSVTime(item.ClosedDate),
			formatCSVHours(item.OriginalEstimate),
			formatCSVHours(item.CompletedWork),
			formatCSVHours(item.RemainingWork),
			formatCSVParent(item.ParentID),
			item.ParentTitle,
			item.ParentState,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("行書き込みエラー: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV書き込み完了エラー: %w", err)
	}

	utils.LogInfo("CSV書き込み完了: %d 行", len(sorted))
	return nil
}

func formatCSVTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatCSVHours(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatCSVParent(id *int) string {
	if id == nil {
		return ""
	}
	return strconv.Itoa(*id)
}
