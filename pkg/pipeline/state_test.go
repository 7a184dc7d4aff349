package pipeline

import (
	"testing"
	"time"

	"github.com/propertydeck/leadsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyField_FansOutToBothProjections(t *testing.T) {
	state := seedState(models.Lead{ID: "l1", Status: models.StatusNew})

	state.ApplyField("l1", models.FieldStatus, "contacted")

	list, _, _ := state.ListView()
	board, _, _ := state.BoardView()
	assert.Equal(t, models.StatusContacted, list[0].Status)
	assert.Equal(t, models.StatusContacted, board[0].Status)
}

func TestSnapshotRestore_IsLossless(t *testing.T) {
	score := 42.5
	followUp := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lead := models.Lead{
		ID:            "l1",
		FirstName:     "Jane",
		Status:        models.StatusQualified,
		Priority:      "Hot",
		Score:         &score,
		FollowUpDate:  &followUp,
		AssignedAgent: &models.Ref{ID: "a1", Name: "Alex"},
		Agency:        &models.Ref{ID: "ag1", Name: "Downtown"},
	}
	state := seedState(lead)

	snap := state.TakeSnapshot("l1")
	state.ApplyField("l1", models.FieldStatus, "lost")
	state.ApplyField("l1", models.FieldAssignedAgent, "")
	state.Restore(snap)

	list, _, _ := state.ListView()
	board, _, _ := state.BoardView()
	assert.Equal(t, lead, list[0])
	assert.Equal(t, lead, board[0])
}

func TestSnapshot_ProjectionsRestoredIndependently(t *testing.T) {
	// the record sits only in the board window
	state := NewState()
	seq := state.BeginBoardFetch()
	state.CompleteBoardFetch(seq, []models.Lead{{ID: "l1", Status: models.StatusNew}}, false)

	snap := state.TakeSnapshot("l1")
	state.ApplyField("l1", models.FieldStatus, "junk")
	state.Restore(snap)

	board, _, _ := state.BoardView()
	require.Len(t, board, 1)
	assert.Equal(t, models.StatusNew, board[0].Status)

	list, _, _ := state.ListView()
	assert.Empty(t, list)
}

func TestCompleteFetch_LastRequestWinsBySequence(t *testing.T) {
	state := NewState()
	first := state.BeginListFetch()
	second := state.BeginListFetch()

	// the newer fetch returns first
	ok := state.CompleteListFetch(second, []models.Lead{{ID: "new"}}, models.Pagination{Total: 1})
	assert.True(t, ok)

	// the superseded result must not be applied, despite arriving later
	ok = state.CompleteListFetch(first, []models.Lead{{ID: "old"}}, models.Pagination{Total: 1})
	assert.False(t, ok)

	list, _, _ := state.ListView()
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].ID)
}

func TestFailFetch_ResetsAndCompletesLoading(t *testing.T) {
	state := seedState(models.Lead{ID: "l1"})
	state.SetLastQuery(models.QueryDescriptor{Status: "x"})

	seq := state.BeginListFetch()
	state.FailListFetch(seq)

	list, pagination, loading := state.ListView()
	assert.Empty(t, list)
	assert.Equal(t, models.Pagination{}, pagination)
	assert.False(t, loading)

	// a retry with the same descriptor must not be deduped away
	assert.Equal(t, "", state.LastFingerprint())
}

func TestRemove_DropsFromBothProjections(t *testing.T) {
	state := seedState(models.Lead{ID: "l1"}, models.Lead{ID: "l2"})

	state.Remove("l1")

	list, pagination, _ := state.ListView()
	board, _, _ := state.BoardView()
	require.Len(t, list, 1)
	require.Len(t, board, 1)
	assert.Equal(t, "l2", list[0].ID)
	assert.Equal(t, "l2", board[0].ID)
	assert.Equal(t, 1, pagination.Total)
}

func TestGet_ReturnsDetachedCopy(t *testing.T) {
	state := seedState(models.Lead{ID: "l1", Agency: &models.Ref{ID: "ag1"}})

	lead, ok := state.Get("l1")
	require.True(t, ok)
	lead.Agency.ID = "mutated"

	stored, _ := state.Get("l1")
	assert.Equal(t, "ag1", stored.Agency.ID)
}
