// Package pipeline keeps the two simultaneous projections of the lead set
// (list page, board aggregate) consistent with the remote record store
// while giving the operator immediate feedback.
package pipeline

import (
	"sync"

	"github.com/propertydeck/leadsync/pkg/models"
)

// State owns the in-memory list and board projections for one session.
// The projections are independent containers (their pagination windows
// diverge), so every mutation path writes through the fan-out helpers
// here instead of touching either container directly.
type State struct {
	mu sync.Mutex

	list           []models.Lead
	listPagination models.Pagination
	listLoading    bool

	board       []models.Lead
	boardCapped bool
	boardLoading bool

	// fetch sequencing: a slot's result is applied only if no newer fetch
	// for that slot has already completed ("last request wins")
	listSeq     uint64
	listApplied uint64
	boardSeq     uint64
	boardApplied uint64

	// descriptor that last triggered a fetch, and its fingerprint
	lastFingerprint string
	lastQuery       models.QueryDescriptor
}

// NewState creates empty projections
func NewState() *State {
	return &State{}
}

// Snapshot holds the pre-mutation copy of a record in every projection
// that contains it. Restore puts both copies back exactly.
type Snapshot struct {
	id    string
	list  *models.Lead
	board *models.Lead
}

// BeginListFetch reserves the next list fetch sequence number and marks
// the projection loading.
func (s *State) BeginListFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listSeq++
	s.listLoading = true
	return s.listSeq
}

// CompleteListFetch stores a fetched page unless a newer fetch has
// already been applied. Loading always completes.
func (s *State) CompleteListFetch(seq uint64, leads []models.Lead, pagination models.Pagination) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.listApplied {
		return false
	}
	s.listApplied = seq
	s.list = leads
	s.listPagination = pagination
	s.listLoading = false
	return true
}

// FailListFetch resets the list projection to empty. The projection is
// never left in a perpetual loading state.
func (s *State) FailListFetch(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.listApplied {
		return
	}
	s.listApplied = seq
	s.list = nil
	s.listPagination = models.Pagination{}
	s.listLoading = false
	s.lastFingerprint = ""
}

// BeginBoardFetch reserves the next board fetch sequence number
func (s *State) BeginBoardFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardSeq++
	s.boardLoading = true
	return s.boardSeq
}

// CompleteBoardFetch stores a bounded aggregate unless superseded
func (s *State) CompleteBoardFetch(seq uint64, leads []models.Lead, capped bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.boardApplied {
		return false
	}
	s.boardApplied = seq
	s.board = leads
	s.boardCapped = capped
	s.boardLoading = false
	return true
}

// FailBoardFetch resets the board projection to empty
func (s *State) FailBoardFetch(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.boardApplied {
		return
	}
	s.boardApplied = seq
	s.board = nil
	s.boardCapped = false
	s.boardLoading = false
	s.lastFingerprint = ""
}

// LastFingerprint returns the fingerprint of the descriptor that last
// actually triggered a fetch.
func (s *State) LastFingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFingerprint
}

// SetLastQuery records the descriptor about to be fetched
func (s *State) SetLastQuery(q models.QueryDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFingerprint = q.Fingerprint()
	s.lastQuery = q
}

// LastQuery returns the descriptor of the last successful fetch, if any
func (s *State) LastQuery() (models.QueryDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery, s.lastFingerprint != ""
}

// Get returns a deep copy of the record from whichever projection holds
// it, preferring the list window.
func (s *State) Get(id string) (models.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.list, id); i >= 0 {
		return s.list[i].Clone(), true
	}
	if i := indexOf(s.board, id); i >= 0 {
		return s.board[i].Clone(), true
	}
	return models.Lead{}, false
}

// TakeSnapshot deep-copies the record from every projection that contains
// it. The copies are what a failed mutation restores.
func (s *State) TakeSnapshot(id string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{id: id}
	if i := indexOf(s.list, id); i >= 0 {
		c := s.list[i].Clone()
		snap.list = &c
	}
	if i := indexOf(s.board, id); i >= 0 {
		c := s.board[i].Clone()
		snap.board = &c
	}
	return snap
}

// Restore puts the snapshot's copies back into both projections exactly
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.list != nil {
		if i := indexOf(s.list, snap.id); i >= 0 {
			s.list[i] = snap.list.Clone()
		}
	}
	if snap.board != nil {
		if i := indexOf(s.board, snap.id); i >= 0 {
			s.board[i] = snap.board.Clone()
		}
	}
}

// ApplyField is the fan-out write: it updates the record's copy in every
// projection that contains it, so the views cannot diverge.
func (s *State) ApplyField(id, field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.list, id); i >= 0 {
		s.list[i].SetFieldValue(field, value)
	}
	if i := indexOf(s.board, id); i >= 0 {
		s.board[i].SetFieldValue(field, value)
	}
}

// Replace overwrites the record's copy in both projections with the
// authoritative server record.
func (s *State) Replace(lead models.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.list, lead.ID); i >= 0 {
		s.list[i] = lead.Clone()
	}
	if i := indexOf(s.board, lead.ID); i >= 0 {
		s.board[i] = lead.Clone()
	}
}

// Remove drops the record from both projections
func (s *State) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.list, id); i >= 0 {
		s.list = append(s.list[:i], s.list[i+1:]...)
		s.listPagination.Total--
	}
	if i := indexOf(s.board, id); i >= 0 {
		s.board = append(s.board[:i], s.board[i+1:]...)
	}
}

// ListView returns a copy of the list projection and its envelope
func (s *State) ListView() ([]models.Lead, models.Pagination, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.list), s.listPagination, s.listLoading
}

// BoardView returns a copy of the board aggregate and whether it was
// capped below the true total.
func (s *State) BoardView() ([]models.Lead, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.board), s.boardCapped, s.boardLoading
}

// Loaded returns the lead set backing the given projection, for the
// stats aggregator.
func (s *State) Loaded(mode models.ViewMode) []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == models.ViewModeBoard {
		return cloneAll(s.board)
	}
	return cloneAll(s.list)
}

func indexOf(leads []models.Lead, id string) int {
	for i := range leads {
		if leads[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(leads []models.Lead) []models.Lead {
	out := make([]models.Lead, len(leads))
	for i := range leads {
		out[i] = leads[i].Clone()
	}
	return out
}
