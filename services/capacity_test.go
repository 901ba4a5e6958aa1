package services

import (
	"context"
	"testing"
	"time"

	"sprintreport/api"
	"sprintreport/models"
)

func TestWorkingDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"monday to friday", day(2025, 3, 3), day(2025, 3, 7), 5},
		{"two weeks", day(2025, 1, 1), day(2025, 1, 14), 10},
		{"weekend only", day(2025, 3, 8), day(2025, 3, 9), 0},
		{"unknown start", time.Time{}, day(2025, 3, 7), 0},
		{"end before start", day(2025, 3, 7), day(2025, 3, 3), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorkingDays(tt.start, tt.end); got != tt.want {
				t.Errorf("WorkingDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNormalizeCapacities_SprintTotal(t *testing.T) {
	members := []api.CapacityDTO{{
		TeamMember: api.IdentityRef{DisplayName: "Jane Doe", UniqueName: "jane@acme.io"},
		Activities: []api.ActivityDTO{{Name: "Development", CapacityPerDay: 6}},
		DaysOff:    []api.DateRange{{Start: day(2025, 3, 5), End: day(2025, 3, 5)}},
	}}

	entries := NormalizeCapacities(members, day(2025, 3, 3), day(2025, 3, 7))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.DaysOff != 1 {
		t.Errorf("DaysOff = %d, want 1", e.DaysOff)
	}
	if e.SprintHours != 24 {
		t.Errorf("SprintHours = %v, want 24", e.SprintHours)
	}
}

// 金曜〜翌週水曜の休暇。スプリントは月〜金なので金曜の1日だけ数える
func TestNormalizeCapacities_DaysOffClippedToSprintWeekdays(t *testing.T) {
	members := []api.CapacityDTO{{
		TeamMember: api.IdentityRef{DisplayName: "Jane Doe"},
		Activities: []api.ActivityDTO{{Name: "Testing", CapacityPerDay: 2}},
		DaysOff:    []api.DateRange{{Start: day(2025, 3, 7), End: day(2025, 3, 12)}},
	}}

	entries := NormalizeCapacities(members, day(2025, 3, 3), day(2025, 3, 7))
	if entries[0].DaysOff != 1 || entries[0].SprintHours != 8 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestNormalizeCapacities_MemberWithoutActivities(t *testing.T) {
	members := []api.CapacityDTO{{TeamMember: api.IdentityRef{DisplayName: "New Hire"}}}

	entries := NormalizeCapacities(members, day(2025, 3, 3), day(2025, 3, 7))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Activity != UnspecifiedActivity || entries[0].SprintHours != 0 || entries[0].CapacityPerDay != 0 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestNormalizeCapacities_UnknownDatesKeepPerDay(t *testing.T) {
	members := []api.CapacityDTO{{
		TeamMember: api.IdentityRef{DisplayName: "Jane Doe"},
		Activities: []api.ActivityDTO{{Name: "Development", CapacityPerDay: 6}},
	}}

	entries := NormalizeCapacities(members, time.Time{}, time.Time{})
	if entries[0].SprintHours != 6 {
		t.Errorf("SprintHours = %v, want unscaled 6", entries[0].SprintHours)
	}
}

func TestSprintHours_NeverNegative(t *testing.T) {
	if got := SprintHours(6, 5, 7); got != 0 {
		t.Errorf("SprintHours() = %v, want 0", got)
	}
}

func TestFetchCapacities_NoIterationID(t *testing.T) {
	src := newFakeSource()
	c := NewCapacityAggregator(src)

	entries, err := c.FetchCapacities(context.Background(), "", day(2025, 3, 3), day(2025, 3, 7))
	if err != nil || len(entries) != 0 {
		t.Fatalf("FetchCapacities() = %v, %v", entries, err)
	}
	if src.capacityCalls != 0 {
		t.Error("no call expected without iteration id")
	}
}

func TestTeamIdentities(t *testing.T) {
	entries := []models.TeamCapacityEntry{
		{Member: models.Identity{DisplayName: "Jane Doe <ACME\\jdoe>", UniqueName: "jane@acme.io"}},
		{Member: models.Identity{DisplayName: "Bob Smith"}},
		{Member: models.Identity{}},
	}

	set := TeamIdentities(entries)
	for _, want := range []string{"Jane Doe <ACME\\jdoe>", "Jane Doe", "ACME\\jdoe", "jane@acme.io", "Bob Smith"} {
		if !set.Contains(want) {
			t.Errorf("identity set missing %q", want)
		}
	}
	if len(set) != 5 {
		t.Errorf("len = %d, want 5: %v", len(set), set)
	}
}
