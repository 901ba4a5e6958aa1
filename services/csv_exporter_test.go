package services

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"sprintreport/models"
)

func TestWriteWorkItemsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "items.csv")
	parent := 1
	items := []models.WorkItem{
		{ID: 5, Title: "Second, with comma", State: "Closed", CompletedWork: ptrFloat(2.5), ParentID: &parent, ParentTitle: "Epic"},
		{ID: 1, Title: "First", State: "Active", AssignedTo: jane, CreatedDate: ptrTime(day(2025, 1, 2))},
	}

	if err := WriteWorkItemsCSV(path, items, map[int]struct{}{1: {}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || len(rows[0]) != len(csvHeaders) {
		t.Errorf("unexpected header: %v", rows[0])
	}

	first, second := rows[1], rows[2]
	if first[0] != "1" || first[5] != "Jane Doe" || first[7] != "true" || first[8] != "2025-01-02T00:00:00Z" {
		t.Errorf("unexpected first row: %v", first)
	}
	if second[0] != "5" || second[1] != "Second, with comma" || second[7] != "false" {
		t.Errorf("unexpected second row: %v", second)
	}
	if second[12] != "2.5" || second[11] != "" || second[14] != "1" || second[15] != "Epic" {
		t.Errorf("unexpected effort or parent columns: %v", second)
	}
}
