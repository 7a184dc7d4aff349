package models

// BoardColumn is one pipeline stage with its cards, in board column order
type BoardColumn struct {
	ID    LeadStatus `json:"id"`
	Leads []Lead     `json:"leads"`
}

// BoardResponse is the bounded kanban aggregate. Capped means the true
// total exceeds what the board materialized.
type BoardResponse struct {
	Columns []BoardColumn `json:"columns"`
	Capped  bool          `json:"capped"`
	Total   int           `json:"total"`
}

// GroupByStatus folds leads into the fixed column set. Unrecognized
// stored statuses land in the default column rather than disappearing.
func GroupByStatus(leads []Lead) []BoardColumn {
	byStatus := make(map[LeadStatus][]Lead, len(PipelineStatuses))
	for _, l := range leads {
		status := l.Status
		if !status.Valid() {
			status = DefaultStatus
		}
		byStatus[status] = append(byStatus[status], l)
	}

	columns := make([]BoardColumn, 0, len(PipelineStatuses))
	for _, status := range PipelineStatuses {
		columns = append(columns, BoardColumn{ID: status, Leads: byStatus[status]})
	}
	return columns
}
