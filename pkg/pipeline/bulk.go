package pipeline

import (
	"context"
	"sync"

	"github.com/propertydeck/leadsync/pkg/domain"
	"github.com/propertydeck/leadsync/pkg/fieldnorm"
	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/models"
	"github.com/propertydeck/leadsync/pkg/recordstore"
)

// Coordinator fans one operation out across a selection set, runs every
// request concurrently, and aggregates per-item outcomes into a single
// summary. Bulk operations are reconciled by a full refetch afterwards,
// never by per-item optimistic patching; the caller owns that refetch.
type Coordinator struct {
	store recordstore.Store
	state *State
	log   logger.Logger
}

// NewCoordinator creates a bulk operation coordinator
func NewCoordinator(store recordstore.Store, state *State, log logger.Logger) *Coordinator {
	return &Coordinator{store: store, state: state, log: log}
}

// Operation is the action applied to every selected lead
type Operation struct {
	Action string
	Value  string
	Method string
}

// Apply dispatches the operation to every id concurrently. One failing
// item never aborts the rest; successCount plus failures always accounts
// for the whole selection.
func (c *Coordinator) Apply(ctx context.Context, ids []string, op Operation) (*models.BulkSummary, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidationError("no leads selected")
	}
	if err := c.validate(op); err != nil {
		return nil, err
	}

	reasons := make([]string, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			if err := c.applyOne(ctx, id, op); err != nil {
				reasons[i] = domain.UserMessage(err)
			}
		}(i, id)
	}
	wg.Wait()

	summary := &models.BulkSummary{}
	for i, reason := range reasons {
		if reason == "" {
			summary.SuccessCount++
		} else {
			summary.Failures = append(summary.Failures, models.BulkFailure{ID: ids[i], Reason: reason})
		}
	}

	c.log.Info("bulk operation finished",
		"action", op.Action, "selected", len(ids),
		"succeeded", summary.SuccessCount, "failed", len(summary.Failures))
	return summary, nil
}

func (c *Coordinator) validate(op Operation) error {
	switch op.Action {
	case models.BulkSetStatus:
		if op.Value == "" {
			return domain.NewValidationError("status value is required")
		}
	case models.BulkSetAgent:
		if op.Value == "" {
			return domain.NewValidationError("agent id is required")
		}
	case models.BulkSetAgency:
		if op.Value == "" {
			return domain.NewValidationError("agency id is required")
		}
	case models.BulkDelete:
	case models.BulkAutoAssign:
		if op.Method == "" {
			return domain.NewValidationError("assignment method is required")
		}
	default:
		return domain.NewValidationError("unknown bulk action: " + op.Action)
	}
	return nil
}

func (c *Coordinator) applyOne(ctx context.Context, id string, op Operation) error {
	switch op.Action {
	case models.BulkSetStatus:
		status := fieldnorm.CanonicalStatus(op.Value)
		_, err := c.store.UpdateLead(ctx, id, map[string]any{"status": string(status)})
		return err

	case models.BulkSetAgent:
		_, err := c.store.AssignAgent(ctx, id, op.Value)
		return err

	case models.BulkSetAgency:
		_, err := c.store.UpdateLead(ctx, id, map[string]any{"agency": op.Value})
		return err

	case models.BulkDelete:
		return c.store.DeleteLead(ctx, id)

	case models.BulkAutoAssign:
		// the owning agency is a prerequisite lookup, not a side effect of
		// the assignment call
		lead, ok := c.state.Get(id)
		if !ok {
			return domain.NewNotFoundError("lead")
		}
		if lead.Agency == nil || lead.Agency.ID == "" {
			return domain.NewValidationError("lead has no agency")
		}
		return c.store.AutoAssign(ctx, id, op.Method, lead.Agency.ID)
	}
	return domain.NewValidationError("unknown bulk action: " + op.Action)
}
