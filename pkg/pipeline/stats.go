package pipeline

import (
	"github.com/propertydeck/leadsync/pkg/fieldnorm"
	"github.com/propertydeck/leadsync/pkg/models"
)

// Stats are pipeline counts recomputed from whichever lead set is
// currently loaded, which may be a filtered subset of the remote table.
type Stats struct {
	Total      int                `json:"total"`
	ByStatus   map[string]int     `json:"by_status"`
	StatusPct  map[string]float64 `json:"status_pct"`
	ByPriority map[string]int     `json:"by_priority"`
	Unassigned int                `json:"unassigned"`
	ByAgency   map[string]int     `json:"by_agency"`
	ByAgent    map[string]int     `json:"by_agent"`
	ByProperty map[string]int     `json:"by_property"`
}

// ComputeStats aggregates the loaded set. Percentages over an empty set
// are zero, never a division error.
func ComputeStats(leads []models.Lead) *Stats {
	stats := &Stats{
		Total:      len(leads),
		ByStatus:   make(map[string]int),
		StatusPct:  make(map[string]float64),
		ByPriority: make(map[string]int),
		ByAgency:   make(map[string]int),
		ByAgent:    make(map[string]int),
		ByProperty: make(map[string]int),
	}

	for i := range leads {
		l := &leads[i]

		status := string(fieldnorm.CanonicalStatus(string(l.Status)))
		stats.ByStatus[status]++

		if l.Priority != "" {
			stats.ByPriority[fieldnorm.CanonicalPriority(l.Priority)]++
		}

		if l.Agency == nil || l.Agency.ID == "" {
			stats.Unassigned++
		} else {
			stats.ByAgency[l.Agency.ID]++
		}
		if l.AssignedAgent != nil && l.AssignedAgent.ID != "" {
			stats.ByAgent[l.AssignedAgent.ID]++
		}
		if l.Property != nil && l.Property.ID != "" {
			stats.ByProperty[l.Property.ID]++
		}
	}

	if stats.Total > 0 {
		for status, count := range stats.ByStatus {
			stats.StatusPct[status] = float64(count) / float64(stats.Total) * 100
		}
	}
	return stats
}
