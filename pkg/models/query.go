package models

import (
	"fmt"
	"net/url"
	"strconv"
)

// ViewMode selects which projection a fetch feeds
type ViewMode string

const (
	ViewModeList  ViewMode = "list"
	ViewModeBoard ViewMode = "board"
)

// QueryDescriptor is the active filter/sort/pagination/view-mode state.
// Two descriptors are equal iff every filter field, page and limit match;
// equality suppresses redundant fetches.
type QueryDescriptor struct {
	Status     string   `query:"status" json:"status,omitempty"`
	Priority   string   `query:"priority" json:"priority,omitempty"`
	Source     string   `query:"source" json:"source,omitempty"`
	Campaign   string   `query:"campaign" json:"campaign,omitempty"`
	AgentID    string   `query:"agent_id" json:"agent_id,omitempty"`
	AgencyID   string   `query:"agency_id" json:"agency_id,omitempty"`
	PropertyID string   `query:"property_id" json:"property_id,omitempty"`
	Search     string   `query:"search" json:"search,omitempty"`
	Page       int      `query:"page" json:"page" validate:"omitempty,min=1"`
	Limit      int      `query:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Mode       ViewMode `query:"-" json:"mode"`
}

// Normalize fills pagination defaults the way the record store expects
func (q QueryDescriptor) Normalize() QueryDescriptor {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Mode == "" {
		q.Mode = ViewModeList
	}
	return q
}

// Fingerprint serializes every filter field plus page/limit/mode into a
// stable key. Fingerprint equality is the dedup test for refetches.
// Free-text fields are escaped so a value containing the separator
// cannot collide with a different descriptor.
func (q QueryDescriptor) Fingerprint() string {
	return fmt.Sprintf("leads:%s:%s:%s:%s:%s:%s:%s:%s:%d:%d:%s",
		url.QueryEscape(q.Status), url.QueryEscape(q.Priority),
		url.QueryEscape(q.Source), url.QueryEscape(q.Campaign),
		url.QueryEscape(q.AgentID), url.QueryEscape(q.AgencyID),
		url.QueryEscape(q.PropertyID), url.QueryEscape(q.Search),
		q.Page, q.Limit, q.Mode)
}

// Equal reports whether two descriptors would produce the same fetch
func (q QueryDescriptor) Equal(other QueryDescriptor) bool {
	return q.Fingerprint() == other.Fingerprint()
}

// Values encodes the filter fields as record store query parameters.
// Page and limit are set by the caller, which may override them for the
// board's bounded aggregate.
func (q QueryDescriptor) Values(page, limit int) url.Values {
	v := url.Values{}
	setIfPresent := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	setIfPresent("status", q.Status)
	setIfPresent("priority", q.Priority)
	setIfPresent("source", q.Source)
	setIfPresent("campaignName", q.Campaign)
	setIfPresent("assignedAgent", q.AgentID)
	setIfPresent("agency", q.AgencyID)
	setIfPresent("property", q.PropertyID)
	setIfPresent("search", q.Search)
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	return v
}

// Pagination is the envelope the record store returns with every page
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// LeadPage is one page of leads plus its pagination envelope
type LeadPage struct {
	Leads      []Lead     `json:"leads"`
	Pagination Pagination `json:"pagination"`
}
