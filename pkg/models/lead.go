package models

import (
	"encoding/json"
	"time"
)

// LeadStatus is one of the fixed pipeline stages. The stored value is
// always the canonical lower_snake token; board columns share these ids.
type LeadStatus string

const (
	StatusNew                LeadStatus = "new"
	StatusContacted          LeadStatus = "contacted"
	StatusQualified          LeadStatus = "qualified"
	StatusSiteVisitScheduled LeadStatus = "site_visit_scheduled"
	StatusSiteVisitCompleted LeadStatus = "site_visit_completed"
	StatusNegotiation        LeadStatus = "negotiation"
	StatusBooked             LeadStatus = "booked"
	StatusLost               LeadStatus = "lost"
	StatusClosed             LeadStatus = "closed"
	StatusJunk               LeadStatus = "junk"
)

// PipelineStatuses is the ordered set of stages, in board column order.
var PipelineStatuses = []LeadStatus{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusSiteVisitScheduled,
	StatusSiteVisitCompleted,
	StatusNegotiation,
	StatusBooked,
	StatusLost,
	StatusClosed,
	StatusJunk,
}

// DefaultStatus is the column a lead with no recognizable status lands in.
const DefaultStatus = StatusNew

// Valid reports whether s is one of the pipeline stages
func (s LeadStatus) Valid() bool {
	for _, ps := range PipelineStatuses {
		if s == ps {
			return true
		}
	}
	return false
}

// Lead priorities. Stored values may vary in case; comparisons must fold.
const (
	PriorityHot           = "hot"
	PriorityWarm          = "warm"
	PriorityCold          = "cold"
	PriorityNotInterested = "not_interested"
)

// Priorities lists the canonical priority tokens
var Priorities = []string{PriorityHot, PriorityWarm, PriorityCold, PriorityNotInterested}

// Ref is a weak reference to an agent, agency or property. The record
// store returns it either as a bare id string or expanded to an object
// with a display name, so it unmarshals from both shapes.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts "abc123" as well as {"_id": "abc123", "name": "..."}
func (r *Ref) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		r.Name = ""
		return nil
	}

	var obj struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	r.ID = obj.MongoID
	if r.ID == "" {
		r.ID = obj.ID
	}
	r.Name = obj.Name
	return nil
}

// PermissionSet is a per-record override for one role. A nil field means
// "no override for this action"; a non-nil value is applied verbatim.
type PermissionSet struct {
	View   *bool `json:"view,omitempty"`
	Edit   *bool `json:"edit,omitempty"`
	Delete *bool `json:"delete,omitempty"`
}

// Lead is the central entity. Leads are created server-side; the only
// client-constructed copies are optimistic shadows, discarded on every
// mutation round-trip.
type Lead struct {
	ID               string                   `json:"_id"`
	FirstName        string                   `json:"firstName"`
	LastName         string                   `json:"lastName,omitempty"`
	Email            string                   `json:"email,omitempty"`
	Phone            string                   `json:"phone,omitempty"`
	Status           LeadStatus               `json:"status"`
	Priority         string                   `json:"priority,omitempty"`
	Source           string                   `json:"source,omitempty"`
	CampaignName     string                   `json:"campaignName,omitempty"`
	AssignedAgent    *Ref                     `json:"assignedAgent,omitempty"`
	Agency           *Ref                     `json:"agency,omitempty"`
	Property         *Ref                     `json:"property,omitempty"`
	Score            *float64                 `json:"score,omitempty"`
	FollowUpDate     *time.Time               `json:"followUpDate,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`
	UpdatedAt        time.Time                `json:"updatedAt"`
	EntryPermissions map[string]PermissionSet `json:"entryPermissions,omitempty"`
}

// Clone returns a deep copy. Snapshots taken for optimistic rollback must
// not share pointers with the live record.
func (l *Lead) Clone() Lead {
	c := *l
	if l.AssignedAgent != nil {
		agent := *l.AssignedAgent
		c.AssignedAgent = &agent
	}
	if l.Agency != nil {
		agency := *l.Agency
		c.Agency = &agency
	}
	if l.Property != nil {
		property := *l.Property
		c.Property = &property
	}
	if l.Score != nil {
		score := *l.Score
		c.Score = &score
	}
	if l.FollowUpDate != nil {
		followUp := *l.FollowUpDate
		c.FollowUpDate = &followUp
	}
	if l.EntryPermissions != nil {
		perms := make(map[string]PermissionSet, len(l.EntryPermissions))
		for role, set := range l.EntryPermissions {
			copied := set
			if set.View != nil {
				v := *set.View
				copied.View = &v
			}
			if set.Edit != nil {
				v := *set.Edit
				copied.Edit = &v
			}
			if set.Delete != nil {
				v := *set.Delete
				copied.Delete = &v
			}
			perms[role] = copied
		}
		c.EntryPermissions = perms
	}
	return c
}

// Mutable single-value fields addressable by the mutation engine
const (
	FieldStatus        = "status"
	FieldPriority      = "priority"
	FieldSource        = "source"
	FieldCampaignName  = "campaignName"
	FieldAssignedAgent = "assignedAgent"
	FieldAgency        = "agency"
)

// FieldValue returns the lead's current value for a mutable field as a
// string (ref fields yield the referenced id). The second return is false
// for unknown fields.
func (l *Lead) FieldValue(field string) (string, bool) {
	switch field {
	case FieldStatus:
		return string(l.Status), true
	case FieldPriority:
		return l.Priority, true
	case FieldSource:
		return l.Source, true
	case FieldCampaignName:
		return l.CampaignName, true
	case FieldAssignedAgent:
		if l.AssignedAgent == nil {
			return "", true
		}
		return l.AssignedAgent.ID, true
	case FieldAgency:
		if l.Agency == nil {
			return "", true
		}
		return l.Agency.ID, true
	}
	return "", false
}

// SetFieldValue writes a mutable field. Ref fields are replaced by a bare
// id ref (display name arrives with the next authoritative fetch); an
// empty id clears the reference.
func (l *Lead) SetFieldValue(field, value string) bool {
	switch field {
	case FieldStatus:
		l.Status = LeadStatus(value)
	case FieldPriority:
		l.Priority = value
	case FieldSource:
		l.Source = value
	case FieldCampaignName:
		l.CampaignName = value
	case FieldAssignedAgent:
		if value == "" {
			l.AssignedAgent = nil
		} else {
			l.AssignedAgent = &Ref{ID: value}
		}
	case FieldAgency:
		if value == "" {
			l.Agency = nil
		} else {
			l.Agency = &Ref{ID: value}
		}
	default:
		return false
	}
	return true
}

// User is the acting operator, as asserted by the upstream auth proxy
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}
