package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"sprintreport/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *DevOpsClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		OrgURL:     server.URL,
		Project:    "Platform",
		Team:       "Core Team",
		PAT:        "pat-token",
		APIVersion: "7.1",
	}
	return NewDevOpsClient(cfg)
}

func TestListIterations_SendsAuthAndParses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/Platform/Core Team/_apis/work/teamsettings/iterations" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if v := r.URL.Query().Get("api-version"); v != "7.1" {
			t.Errorf("api-version = %q", v)
		}
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":pat-token"))
		if auth := r.Header.Get("Authorization"); auth != want {
			t.Errorf("unexpected auth header: %s", auth)
		}
		w.Write([]byte(`{"count":2,"value":[
			{"id":"it-1","name":"Sprint 8","path":"Platform\\Sprint 8","attributes":{"startDate":"2025-01-01T00:00:00Z","finishDate":"2025-01-14T00:00:00Z"}},
			{"id":"it-2","name":"Sprint 9","path":"Platform\\Sprint 9","attributes":{"startDate":null,"finishDate":null}}]}`))
	})

	iterations, err := client.ListIterations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(iterations) != 2 {
		t.Fatalf("expected 2 iterations, got %d", len(iterations))
	}
	first := iterations[0].ToModel()
	if !first.HasDates() || first.Start.Day() != 1 || first.End.Day() != 14 {
		t.Errorf("unexpected dates: %+v", first)
	}
	if iterations[1].ToModel().HasDates() {
		t.Error("null dates should stay unknown")
	}
}

func TestCurrentIterations_UsesTimeframe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if tf := r.URL.Query().Get("$timeframe"); tf != "current" {
			t.Errorf("$timeframe = %q", tf)
		}
		w.Write([]byte(`{"value":[{"name":"Sprint 12"}]}`))
	})

	its, err := client.CurrentIterations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(its) != 1 || its[0].Name != "Sprint 12" {
		t.Errorf("unexpected result: %+v", its)
	}
}

func TestQueryWIQL_PassesContinuationToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
			return
		}
		if !strings.Contains(body.Query, "SELECT [System.Id]") {
			t.Errorf("unexpected query: %s", body.Query)
		}
		if tok := r.URL.Query().Get("continuationToken"); tok != "abc" {
			t.Errorf("continuationToken = %q", tok)
		}
		w.Write([]byte(`{"workItems":[{"id":1},{"id":2}],"continuationToken":"def"}`))
	})

	page, err := client.QueryWIQL(context.Background(), "SELECT [System.Id] FROM WorkItems", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.IDs) != 2 || page.ContinuationToken != "def" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestWorkItemsBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Platform/_apis/wit/workitems" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ids := r.URL.Query().Get("ids"); ids != "3,4" {
			t.Errorf("ids = %q", ids)
		}
		if exp := r.URL.Query().Get("$expand"); exp != "all" {
			t.Errorf("$expand = %q", exp)
		}
		w.Write([]byte(`{"count":2,"value":[
			{"id":3,"fields":{"System.State":"Active"},"relations":[{"rel":"System.LinkTypes.Hierarchy-Reverse","url":"https://x/_apis/wit/workItems/1"}]},
			{"id":4}]}`))
	})

	items, err := client.WorkItemsBatch(context.Background(), []int{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Fields["System.State"] != "Active" || len(items[0].Relations) != 1 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Fields != nil {
		t.Error("missing fields block should decode as nil")
	}
}

func TestWorkItemsBatch_RejectsOversizedBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	ids := make([]int, MaxBatchSize+1)
	if _, err := client.WorkItemsBatch(context.Background(), ids); err == nil {
		t.Fatal("expected error for oversized batch")
	}
}

func TestWorkItemUpdates_ParsesIdentityForms(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Platform/_apis/wit/workItems/42/updates" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"count":2,"value":[
			{"id":1,"rev":1,"revisedBy":{"displayName":"Jane Doe","uniqueName":"jane@acme.io"},"revisedDate":"2025-01-03T10:00:00Z",
			 "fields":{"System.State":{"oldValue":"New","newValue":"Active"}}},
			{"id":2,"rev":2,"revisedBy":"Bob Smith <bob@acme.io>","revisedDate":"9999-01-01T00:00:00Z"}]}`))
	})

	updates, err := client.WorkItemUpdates(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Fields["System.State"].NewValue != "Active" {
		t.Errorf("unexpected state change: %+v", updates[0].Fields)
	}
	bob := updates[1].RevisedBy.ToModel()
	if bob.DisplayName != "Bob Smith" || bob.UniqueName != "bob@acme.io" {
		t.Errorf("unexpected identity: %+v", bob)
	}
}

func TestWorkItemUpdates_FollowsPages(t *testing.T) {
	const total = 450
	var skips []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		skips = append(skips, q.Get("$skip"))
		if q.Get("$top") != strconv.Itoa(UpdatesPageSize) {
			t.Errorf("unexpected $top: %q", q.Get("$top"))
		}
		skip, _ := strconv.Atoi(q.Get("$skip"))

		var page []map[string]interface{}
		for rev := skip + 1; rev <= total && len(page) < UpdatesPageSize; rev++ {
			page = append(page, map[string]interface{}{"id": rev, "rev": rev})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"count": len(page), "value": page})
	})

	updates, err := client.WorkItemUpdates(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != total {
		t.Fatalf("expected %d updates, got %d", total, len(updates))
	}
	if updates[total-1].Rev != total {
		t.Errorf("newest revision missing: last rev = %d", updates[total-1].Rev)
	}
	if strings.Join(skips, ",") != "0,200,400" {
		t.Errorf("unexpected page requests: %v", skips)
	}
}

func TestWorkItemUpdates_ExactPageBoundary(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		n := UpdatesPageSize
		if r.URL.Query().Get("$skip") != "0" {
			n = 0
		}
		page := make([]map[string]interface{}, n)
		for i := range page {
			page[i] = map[string]interface{}{"id": i + 1, "rev": i + 1}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"count": n, "value": page})
	})

	updates, err := client.WorkItemUpdates(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != UpdatesPageSize || calls != 2 {
		t.Errorf("got %d updates in %d calls", len(updates), calls)
	}
}

func TestIterationCapacities_AcceptsBothShapes(t *testing.T) {
	for _, body := range []string{
		`{"value":[{"teamMember":{"displayName":"Jane"},"activities":[{"name":"Development","capacityPerDay":6}],"daysOff":[]}]}`,
		`{"teamMembers":[{"teamMember":{"displayName":"Jane"},"activities":[{"name":"Development","capacityPerDay":6}],"daysOff":[]}],"totalCapacityPerDay":6}`,
	} {
		body := body
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/iterations/it-1/capacities") {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Write([]byte(body))
		})
		caps, err := client.IterationCapacities(context.Background(), "it-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(caps) != 1 || caps[0].Activities[0].CapacityPerDay != 6 {
			t.Errorf("unexpected capacities: %+v", caps)
		}
	}
}

func TestDoJSON_StatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad token"))
	})

	err := client.CheckAuth(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Body != "bad token" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestParseIdentityString(t *testing.T) {
	tests := []struct {
		in      string
		display string
		unique  string
	}{
		{"Jane Doe <ACME\\jdoe>", "Jane Doe", "ACME\\jdoe"},
		{"Jane Doe", "Jane Doe", ""},
		{"  ", "", ""},
	}
	for _, tt := range tests {
		got := ParseIdentityString(tt.in)
		if got.DisplayName != tt.display || got.UniqueName != tt.unique {
			t.Errorf("ParseIdentityString(%q) = %+v", tt.in, got)
		}
	}
}
