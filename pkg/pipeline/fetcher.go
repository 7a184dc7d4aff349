package pipeline

import (
	"context"

	"github.com/propertydeck/leadsync/pkg/domain"
	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/models"
	"github.com/propertydeck/leadsync/pkg/permissions"
	"github.com/propertydeck/leadsync/pkg/recordstore"
)

// Fetcher retrieves leads for either projection, filtered by the shared
// query descriptor, and post-filters every batch through the permission
// resolver before it is stored.
type Fetcher struct {
	store    recordstore.Store
	state    *State
	user     *models.User
	defaults permissions.Defaults
	log      logger.Logger

	boardPageSize int
	boardHardCap  int
}

// NewFetcher creates a fetch orchestrator for one session
func NewFetcher(store recordstore.Store, state *State, user *models.User, defaults permissions.Defaults, log logger.Logger, boardPageSize, boardHardCap int) *Fetcher {
	if boardPageSize <= 0 {
		boardPageSize = 250
	}
	if boardHardCap <= 0 {
		boardHardCap = 500
	}
	return &Fetcher{
		store:         store,
		state:         state,
		user:          user,
		defaults:      defaults,
		log:           log,
		boardPageSize: boardPageSize,
		boardHardCap:  boardHardCap,
	}
}

// Refresh fetches the projection selected by the descriptor's mode.
// A descriptor whose fingerprint equals the last one that triggered a
// fetch is a no-op transition and issues no network call.
func (f *Fetcher) Refresh(ctx context.Context, q models.QueryDescriptor) error {
	q = q.Normalize()
	if f.state.LastFingerprint() == q.Fingerprint() {
		f.log.Debug("fetch skipped, descriptor unchanged", "fingerprint", q.Fingerprint())
		return nil
	}
	return f.Reload(ctx, q)
}

// Reload fetches unconditionally. Bulk operations reconcile through this
// path; their accumulated optimistic state is never trusted.
func (f *Fetcher) Reload(ctx context.Context, q models.QueryDescriptor) error {
	q = q.Normalize()
	f.state.SetLastQuery(q)

	if q.Mode == models.ViewModeBoard {
		return f.fetchBoard(ctx, q)
	}
	return f.fetchList(ctx, q)
}

func (f *Fetcher) fetchList(ctx context.Context, q models.QueryDescriptor) error {
	seq := f.state.BeginListFetch()

	page, err := f.store.ListLeads(ctx, q, q.Page, q.Limit)
	if err != nil {
		f.state.FailListFetch(seq)
		f.log.Error("list fetch failed", "error", err)
		return domain.NewUpstreamError("failed to load leads", err)
	}

	visible := permissions.FilterViewable(page.Leads, f.user, f.defaults)
	if !f.state.CompleteListFetch(seq, visible, page.Pagination) {
		f.log.Debug("stale list fetch discarded", "seq", seq)
	}
	return nil
}

// fetchBoard builds the bounded aggregate: page 1 at the internal page
// size, at most one more page while under the hard cap, never a third.
// A true total above the cap flags the result as capped so the board can
// show its advisory banner.
func (f *Fetcher) fetchBoard(ctx context.Context, q models.QueryDescriptor) error {
	seq := f.state.BeginBoardFetch()

	first, err := f.store.ListLeads(ctx, q, 1, f.boardPageSize)
	if err != nil {
		f.state.FailBoardFetch(seq)
		f.log.Error("board fetch failed", "error", err, "page", 1)
		return domain.NewUpstreamError("failed to load board", err)
	}

	aggregate := first.Leads
	total := first.Pagination.Total

	if total > len(aggregate) && len(aggregate) < f.boardHardCap {
		second, err := f.store.ListLeads(ctx, q, 2, f.boardPageSize)
		if err != nil {
			f.state.FailBoardFetch(seq)
			f.log.Error("board fetch failed", "error", err, "page", 2)
			return domain.NewUpstreamError("failed to load board", err)
		}
		aggregate = append(aggregate, second.Leads...)
	}

	if len(aggregate) > f.boardHardCap {
		aggregate = aggregate[:f.boardHardCap]
	}
	capped := total > f.boardHardCap

	visible := permissions.FilterViewable(aggregate, f.user, f.defaults)
	if !f.state.CompleteBoardFetch(seq, visible, capped) {
		f.log.Debug("stale board fetch discarded", "seq", seq)
	}
	return nil
}
