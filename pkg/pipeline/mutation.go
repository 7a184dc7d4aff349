package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/propertydeck/leadsync/pkg/domain"
	"github.com/propertydeck/leadsync/pkg/fieldnorm"
	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/models"
	"github.com/propertydeck/leadsync/pkg/recordstore"
)

// Engine applies a single-field change optimistically, issues the network
// update, reconciles with the authoritative response, and rolls back on
// failure. The record must end up exactly as it was when the call fails.
type Engine struct {
	store recordstore.Store
	state *State
	log   logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewEngine creates a mutation engine over the session's projections
func NewEngine(store recordstore.Store, state *State, log logger.Logger) *Engine {
	return &Engine{
		store:    store,
		state:    state,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// Outcome describes how a mutation settled
type Outcome struct {
	NoOp bool         `json:"no_op"`
	Lead *models.Lead `json:"lead,omitempty"`
}

// enum-like fields compare case- and whitespace-insensitively
func isEnumField(field string) bool {
	switch field {
	case models.FieldStatus, models.FieldPriority, models.FieldSource:
		return true
	}
	return false
}

func sameValue(field, a, b string) bool {
	if isEnumField(field) {
		return fieldnorm.EqualKey(a, b)
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// canonicalize folds enum values onto their stored tokens before the
// optimistic write, so local state cannot disagree with the enum
// invariant while the request is in flight.
func canonicalize(field, value string) string {
	switch field {
	case models.FieldStatus:
		return string(fieldnorm.CanonicalStatus(value))
	case models.FieldPriority:
		return fieldnorm.CanonicalPriority(value)
	case models.FieldSource:
		return fieldnorm.CanonicalSource(value)
	}
	return strings.TrimSpace(value)
}

// Mutate runs the snapshot/apply/reconcile/rollback state machine for one
// record field. A second mutation on the same record field while the
// first is still settling is refused; its rollback data would be stale.
func (e *Engine) Mutate(ctx context.Context, id, field, value string) (*Outcome, error) {
	current, ok := e.state.Get(id)
	if !ok {
		return nil, domain.NewNotFoundError("lead")
	}

	currentValue, ok := current.FieldValue(field)
	if !ok {
		return nil, domain.NewValidationError("unknown field: " + field)
	}

	// no-op guard: redundant writes from UI re-renders issue no request
	if sameValue(field, currentValue, value) {
		return &Outcome{NoOp: true}, nil
	}

	key := id + "\x00" + field
	e.mu.Lock()
	if _, busy := e.inflight[key]; busy {
		e.mu.Unlock()
		return nil, domain.NewConflictError("a change to this field is still saving")
	}
	e.inflight[key] = struct{}{}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.inflight, key)
		e.mu.Unlock()
	}()

	snapshot := e.state.TakeSnapshot(id)
	applied := canonicalize(field, value)
	e.state.ApplyField(id, field, applied)

	serverLead, err := e.dispatch(ctx, id, field, applied)
	if err != nil {
		e.state.Restore(snapshot)
		e.log.Warn("mutation rolled back", "lead", id, "field", field, "error", err)
		return nil, err
	}

	// reconcile: only overwrite when the server's value diverged from the
	// optimistic one, to avoid a needless re-render
	serverValue, _ := serverLead.FieldValue(field)
	if !sameValue(field, serverValue, applied) {
		e.state.Replace(*serverLead)
	}
	return &Outcome{Lead: serverLead}, nil
}

// MoveCard is the board drag-and-drop: the status specialization of
// Mutate, with the extra rule that dropping a card onto its own column
// performs no request.
func (e *Engine) MoveCard(ctx context.Context, id, column string) (*Outcome, error) {
	target := models.LeadStatus(fieldnorm.Key(column))
	if !target.Valid() {
		return nil, domain.NewValidationError("unknown board column: " + column)
	}

	current, ok := e.state.Get(id)
	if !ok {
		return nil, domain.NewNotFoundError("lead")
	}
	if fieldnorm.CanonicalStatus(string(current.Status)) == target {
		return &Outcome{NoOp: true}, nil
	}

	return e.Mutate(ctx, id, models.FieldStatus, string(target))
}

func (e *Engine) dispatch(ctx context.Context, id, field, value string) (*models.Lead, error) {
	if field == models.FieldAssignedAgent {
		return e.store.AssignAgent(ctx, id, value)
	}
	return e.store.UpdateLead(ctx, id, map[string]any{field: value})
}
