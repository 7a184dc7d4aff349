package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/propertydeck/leadsync/pkg/models"
	"github.com/propertydeck/leadsync/pkg/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(store *fakeStore) (*Fetcher, *State) {
	state := NewState()
	user := &models.User{ID: "u1", Role: "agent"}
	defaults := permissions.Defaults{View: true, Edit: true, Delete: true}
	return NewFetcher(store, state, user, defaults, testLogger(), 250, 500), state
}

// leadsNumbered builds n distinct leads
func leadsNumbered(prefix string, n int) []models.Lead {
	out := make([]models.Lead, n)
	for i := range out {
		out[i] = models.Lead{ID: fmt.Sprintf("%s%d", prefix, i), Status: models.StatusNew}
	}
	return out
}

func TestRefresh_EqualDescriptorIssuesNoSecondCall(t *testing.T) {
	store := &fakeStore{}
	fetcher, _ := newTestFetcher(store)
	ctx := context.Background()

	q := models.QueryDescriptor{Status: "new", Page: 1, Limit: 50}
	require.NoError(t, fetcher.Refresh(ctx, q))
	require.NoError(t, fetcher.Refresh(ctx, q))

	assert.Equal(t, 1, store.calls(&store.listCalls))
}

func TestRefresh_ChangedFilterFetchesAgain(t *testing.T) {
	store := &fakeStore{}
	fetcher, _ := newTestFetcher(store)
	ctx := context.Background()

	require.NoError(t, fetcher.Refresh(ctx, models.QueryDescriptor{Status: "new"}))
	require.NoError(t, fetcher.Refresh(ctx, models.QueryDescriptor{Status: "qualified"}))

	assert.Equal(t, 2, store.calls(&store.listCalls))
}

func TestRefresh_FilterValueContainingSeparatorFetchesAgain(t *testing.T) {
	store := &fakeStore{}
	fetcher, _ := newTestFetcher(store)
	ctx := context.Background()

	require.NoError(t, fetcher.Refresh(ctx, models.QueryDescriptor{Campaign: "summer:x", AgentID: "7"}))
	require.NoError(t, fetcher.Refresh(ctx, models.QueryDescriptor{Campaign: "summer", AgentID: "x:7"}))

	assert.Equal(t, 2, store.calls(&store.listCalls))
}

func TestFetchList_StoresPageAndEnvelope(t *testing.T) {
	store := &fakeStore{
		listFn: func(q models.QueryDescriptor, page, limit int) (*models.LeadPage, error) {
			return &models.LeadPage{
				Leads:      leadsNumbered("l", 2),
				Pagination: models.Pagination{Page: page, Limit: limit, Total: 2, Pages: 1},
			}, nil
		},
	}
	fetcher, state := newTestFetcher(store)

	require.NoError(t, fetcher.Refresh(context.Background(), models.QueryDescriptor{}))

	list, pagination, loading := state.ListView()
	assert.Len(t, list, 2)
	assert.Equal(t, 2, pagination.Total)
	assert.False(t, loading)
}

func TestFetchBoard_SmallTotalSinglePage(t *testing.T) {
	store := &fakeStore{
		listFn: func(q models.QueryDescriptor, page, limit int) (*models.LeadPage, error) {
			return &models.LeadPage{
				Leads:      leadsNumbered("l", 100),
				Pagination: models.Pagination{Page: page, Limit: limit, Total: 100, Pages: 1},
			}, nil
		},
	}
	fetcher, state := newTestFetcher(store)

	q := models.QueryDescriptor{Mode: models.ViewModeBoard}
	require.NoError(t, fetcher.Refresh(context.Background(), q))

	board, capped, _ := state.BoardView()
	assert.Len(t, board, 100)
	assert.False(t, capped)
	assert.Equal(t, 1, store.calls(&store.listCalls))
}

func TestFetchBoard_NeverMaterializesBeyondCap(t *testing.T) {
	// remote total far above the cap: two pages fetched, never a third,
	// and the aggregate is flagged capped
	store := &fakeStore{
		listFn: func(q models.QueryDescriptor, page, limit int) (*models.LeadPage, error) {
			assert.LessOrEqual(t, page, 2, "a third page must never be requested")
			return &models.LeadPage{
				Leads:      leadsNumbered(fmt.Sprintf("p%d-", page), limit),
				Pagination: models.Pagination{Page: page, Limit: limit, Total: 2000, Pages: 8},
			}, nil
		},
	}
	fetcher, state := newTestFetcher(store)

	q := models.QueryDescriptor{Mode: models.ViewModeBoard}
	require.NoError(t, fetcher.Refresh(context.Background(), q))

	board, capped, _ := state.BoardView()
	assert.Len(t, board, 500)
	assert.True(t, capped)
	assert.Equal(t, 2, store.calls(&store.listCalls))
}

func TestFetchBoard_TotalJustOverCapIsFlagged(t *testing.T) {
	store := &fakeStore{
		listFn: func(q models.QueryDescriptor, page, limit int) (*models.LeadPage, error) {
			count := limit
			if page == 2 {
				count = 251
			}
			return &models.LeadPage{
				Leads:      leadsNumbered(fmt.Sprintf("p%d-", page), count),
				Pagination: models.Pagination{Page: page, Limit: limit, Total: 501, Pages: 3},
			}, nil
		},
	}
	fetcher, state := newTestFetcher(store)

	require.NoError(t, fetcher.Refresh(context.Background(), models.QueryDescriptor{Mode: models.ViewModeBoard}))

	board, capped, _ := state.BoardView()
	assert.Len(t, board, 500)
	assert.True(t, capped)
}

func TestFetch_DropsRecordsTheUserMayNotView(t *testing.T) {
	denied := false
	store := &fakeStore{
		listFn: func(q models.QueryDescriptor, page, limit int) (*models.LeadPage, error) {
			return &models.LeadPage{
				Leads: []models.Lead{
					{ID: "visible"},
					{ID: "hidden", EntryPermissions: map[string]models.PermissionSet{
						"agent": {View: &denied},
					}},
				},
				Pagination: models.Pagination{Total: 2},
			}, nil
		},
	}
	fetcher, state := newTestFetcher(store)

	require.NoError(t, fetcher.Refresh(context.Background(), models.QueryDescriptor{}))

	list, _, _ := state.ListView()
	require.Len(t, list, 1)
	assert.Equal(t, "visible", list[0].ID)

	// dropped at the fetch boundary, not merely hidden
	_, found := state.Get("hidden")
	assert.False(t, found)
}

func TestFetch_ErrorResetsStateAndSurfaces(t *testing.T) {
	store := &fakeStore{
		listFn: func(q models.QueryDescriptor, page, limit int) (*models.LeadPage, error) {
			return nil, errors.New("connection refused")
		},
	}
	fetcher, state := newTestFetcher(store)

	err := fetcher.Refresh(context.Background(), models.QueryDescriptor{})
	require.Error(t, err)

	list, _, loading := state.ListView()
	assert.Empty(t, list)
	assert.False(t, loading, "projection must not stay loading after a failure")

	// the failed descriptor is retryable: same descriptor fetches again
	require.Error(t, fetcher.Refresh(context.Background(), models.QueryDescriptor{}))
	assert.Equal(t, 2, store.calls(&store.listCalls))
}

func TestReload_BypassesFingerprintDedup(t *testing.T) {
	store := &fakeStore{}
	fetcher, _ := newTestFetcher(store)
	ctx := context.Background()

	q := models.QueryDescriptor{Status: "new"}
	require.NoError(t, fetcher.Refresh(ctx, q))
	require.NoError(t, fetcher.Reload(ctx, q))

	assert.Equal(t, 2, store.calls(&store.listCalls))
}
