package models

import "fmt"

// MutateRequest is a single-field optimistic mutation
type MutateRequest struct {
	Field string `json:"field" validate:"required,oneof=status priority source campaignName assignedAgent agency"`
	Value string `json:"value"`
}

// MoveRequest is a board drag-and-drop: the target column id
type MoveRequest struct {
	Column string `json:"column" validate:"required"`
}

// Bulk actions
const (
	BulkSetStatus  = "set_status"
	BulkSetAgent   = "set_agent"
	BulkSetAgency  = "set_agency"
	BulkDelete     = "delete"
	BulkAutoAssign = "auto_assign"
)

// Auto-assignment methods understood by the record store
const (
	AssignRoundRobin = "round_robin"
	AssignLeastBusy  = "least_busy"
	AssignRandom     = "random"
)

// BulkActionRequest fans one operation out across a selection of leads
type BulkActionRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,required"`
	Action string   `json:"action" validate:"required,oneof=set_status set_agent set_agency delete auto_assign"`
	Value  string   `json:"value,omitempty"`
	Method string   `json:"method,omitempty" validate:"omitempty,oneof=round_robin least_busy random"`
}

// BulkFailure is one failed item of a bulk operation
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkSummary aggregates per-item outcomes of a bulk operation.
// SuccessCount+len(Failures) always equals the selection size.
type BulkSummary struct {
	SuccessCount int           `json:"success_count"`
	Failures     []BulkFailure `json:"failures,omitempty"`
}

// Message renders the single user-facing summary line. When every failure
// shares one reason it is named once instead of repeated per item.
func (s *BulkSummary) Message() string {
	total := s.SuccessCount + len(s.Failures)
	if len(s.Failures) == 0 {
		return fmt.Sprintf("%d lead(s) updated successfully", s.SuccessCount)
	}

	common := s.Failures[0].Reason
	for _, f := range s.Failures[1:] {
		if f.Reason != common {
			common = ""
			break
		}
	}

	if common != "" {
		return fmt.Sprintf("%d of %d lead(s) updated; %d failed: %s",
			s.SuccessCount, total, len(s.Failures), common)
	}
	return fmt.Sprintf("%d of %d lead(s) updated; %d failed", s.SuccessCount, total, len(s.Failures))
}

// ImportRow is a normalized row ready for batch creation. Row keeps the
// originating spreadsheet position for server-side error reporting.
type ImportRow struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Status       string `json:"status"`
	Source       string `json:"source"`
	CampaignName string `json:"campaignName,omitempty"`
	Row          int    `json:"-"`
}

// RowError is a per-row rejection from the batch creation call
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BulkCreateResult is the record store's answer to a batch creation:
// it may accept some rows and reject others.
type BulkCreateResult struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors,omitempty"`
}

// ErrorResponse is the JSON error shape returned by the API
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
