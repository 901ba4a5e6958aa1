package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sprintreport/api"
)

// fakeSource はテスト用の WorkItemSource です
type fakeSource struct {
	mu sync.Mutex

	iterations    []api.IterationDTO
	iterationsErr error
	current       []api.IterationDTO
	currentErr    error
	capacities    []api.CapacityDTO
	capacitiesFn  func(ctx context.Context) ([]api.CapacityDTO, error)
	capacityCalls int

	// クエリ文字列とトークンから結果を返す
	wiql      func(query, token string) (*api.WiqlPage, error)
	wiqlCalls []string

	items      map[int]api.WorkItemDTO
	batchErr   error
	batchCalls [][]int

	updates     map[int][]api.UpdateDTO
	updatesErr  map[int]error
	updateCalls []int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		items:      map[int]api.WorkItemDTO{},
		updates:    map[int][]api.UpdateDTO{},
		updatesErr: map[int]error{},
	}
}

func (f *fakeSource) ListIterations(ctx context.Context) ([]api.IterationDTO, error) {
	return f.iterations, f.iterationsErr
}

func (f *fakeSource) CurrentIterations(ctx context.Context) ([]api.IterationDTO, error) {
	return f.current, f.currentErr
}

func (f *fakeSource) IterationCapacities(ctx context.Context, iterationID string) ([]api.CapacityDTO, error) {
	f.mu.Lock()
	f.capacityCalls++
	f.mu.Unlock()
	if f.capacitiesFn != nil {
		return f.capacitiesFn(ctx)
	}
	return f.capacities, nil
}

func (f *fakeSource) QueryWIQL(ctx context.Context, query, token string) (*api.WiqlPage, error) {
	f.mu.Lock()
	f.wiqlCalls = append(f.wiqlCalls, query)
	f.mu.Unlock()
	if f.wiql == nil {
		return &api.WiqlPage{}, nil
	}
	return f.wiql(query, token)
}

func (f *fakeSource) WorkItemsBatch(ctx context.Context, ids []int) ([]api.WorkItemDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, append([]int(nil), ids...))
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([]api.WorkItemDTO, 0, len(ids))
	for _, id := range ids {
		if dto, ok := f.items[id]; ok {
			out = append(out, dto)
			continue
		}
		out = append(out, api.WorkItemDTO{
			ID:     id,
			Fields: map[string]interface{}{fieldTitle: fmt.Sprintf("Item %d", id), fieldState: "New"},
		})
	}
	return out, nil
}

func (f *fakeSource) WorkItemUpdates(ctx context.Context, id int) ([]api.UpdateDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, id)
	if err := f.updatesErr[id]; err != nil {
		return nil, err
	}
	return f.updates[id], nil
}

func ptrFloat(v float64) *float64 { return &v }

func ptrTime(t time.Time) *time.Time { return &t }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
