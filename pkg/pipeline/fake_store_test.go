package pipeline

import (
	"context"
	"sync"

	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/models"
)

// fakeStore is an in-test record store with per-method overrides and
// call counting.
type fakeStore struct {
	mu sync.Mutex

	listCalls       int
	updateCalls     int
	assignCalls     int
	autoAssignCalls int
	deleteCalls     int
	rescoreCalls    int
	bulkCreateCalls int

	listFn       func(q models.QueryDescriptor, page, limit int) (*models.LeadPage, error)
	updateFn     func(id string, patch map[string]any) (*models.Lead, error)
	assignFn     func(id, agentID string) (*models.Lead, error)
	autoAssignFn func(id, method, agencyID string) error
	deleteFn     func(id string) error
	bulkCreateFn func(rows []models.ImportRow) (*models.BulkCreateResult, error)
}

func (f *fakeStore) count(field *int) {
	f.mu.Lock()
	*field++
	f.mu.Unlock()
}

func (f *fakeStore) calls(field *int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *field
}

func (f *fakeStore) ListLeads(_ context.Context, q models.QueryDescriptor, page, limit int) (*models.LeadPage, error) {
	f.count(&f.listCalls)
	if f.listFn != nil {
		return f.listFn(q, page, limit)
	}
	return &models.LeadPage{Pagination: models.Pagination{Page: page, Limit: limit}}, nil
}

func (f *fakeStore) UpdateLead(_ context.Context, id string, patch map[string]any) (*models.Lead, error) {
	f.count(&f.updateCalls)
	if f.updateFn != nil {
		return f.updateFn(id, patch)
	}
	lead := models.Lead{ID: id}
	for field, value := range patch {
		if s, ok := value.(string); ok {
			lead.SetFieldValue(field, s)
		}
	}
	return &lead, nil
}

func (f *fakeStore) AssignAgent(_ context.Context, id, agentID string) (*models.Lead, error) {
	f.count(&f.assignCalls)
	if f.assignFn != nil {
		return f.assignFn(id, agentID)
	}
	return &models.Lead{ID: id, AssignedAgent: &models.Ref{ID: agentID}}, nil
}

func (f *fakeStore) AutoAssign(_ context.Context, id, method, agencyID string) error {
	f.count(&f.autoAssignCalls)
	if f.autoAssignFn != nil {
		return f.autoAssignFn(id, method, agencyID)
	}
	return nil
}

func (f *fakeStore) Rescore(_ context.Context, id string) error {
	f.count(&f.rescoreCalls)
	return nil
}

func (f *fakeStore) DeleteLead(_ context.Context, id string) error {
	f.count(&f.deleteCalls)
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

func (f *fakeStore) BulkCreate(_ context.Context, rows []models.ImportRow) (*models.BulkCreateResult, error) {
	f.count(&f.bulkCreateCalls)
	if f.bulkCreateFn != nil {
		return f.bulkCreateFn(rows)
	}
	return &models.BulkCreateResult{Created: len(rows)}, nil
}

func testLogger() logger.Logger {
	return logger.New("error", "text")
}

func seedState(leads ...models.Lead) *State {
	state := NewState()
	listSeq := state.BeginListFetch()
	state.CompleteListFetch(listSeq, cloneAll(leads), models.Pagination{
		Page: 1, Limit: 50, Total: len(leads), Pages: 1,
	})
	boardSeq := state.BeginBoardFetch()
	state.CompleteBoardFetch(boardSeq, cloneAll(leads), false)
	return state
}
