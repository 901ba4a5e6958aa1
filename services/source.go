package services

import (
	"context"

	"sprintreport/api"
)

// WorkItemSource はリモートの作業項目APIです。*api.DevOpsClient が実装します
type WorkItemSource interface {
	ListIterations(ctx context.Context) ([]api.IterationDTO, error)
	CurrentIterations(ctx context.Context) ([]api.IterationDTO, error)
	IterationCapacities(ctx context.Context, iterationID string) ([]api.CapacityDTO, error)
	QueryWIQL(ctx context.Context, query, token string) (*api.WiqlPage, error)
	WorkItemsBatch(ctx context.Context, ids []int) ([]api.WorkItemDTO, error)
	WorkItemUpdates(ctx context.Context, id int) ([]api.UpdateDTO, error)
}

var _ WorkItemSource = (*api.DevOpsClient)(nil)
