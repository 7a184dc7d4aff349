// Package permissions decides whether the acting user may view, edit or
// delete a given lead, combining a per-record override with the role's
// default for the action.
package permissions

import "github.com/propertydeck/leadsync/pkg/models"

// Action is one of the record-level operations a role can be granted
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// SuperRole always resolves to true, overrides included
const SuperRole = "admin"

// Defaults holds a role's default grant per action, as configured by the
// role management service upstream.
type Defaults struct {
	View   bool
	Edit   bool
	Delete bool
}

// For returns the role default for one action
func (d Defaults) For(action Action) bool {
	switch action {
	case ActionView:
		return d.View
	case ActionEdit:
		return d.Edit
	case ActionDelete:
		return d.Delete
	}
	return false
}

// Resolve applies the rules in order: the super role always passes; an
// explicit per-record override for the user's role is returned verbatim,
// whether it grants or denies; otherwise the role default applies
// unchanged. There is no other fallback.
func Resolve(lead *models.Lead, user *models.User, action Action, roleDefault bool) bool {
	if user.Role == SuperRole {
		return true
	}

	if lead.EntryPermissions != nil {
		if set, ok := lead.EntryPermissions[user.Role]; ok {
			if override := overrideFor(set, action); override != nil {
				return *override
			}
		}
	}

	return roleDefault
}

func overrideFor(set models.PermissionSet, action Action) *bool {
	switch action {
	case ActionView:
		return set.View
	case ActionEdit:
		return set.Edit
	case ActionDelete:
		return set.Delete
	}
	return nil
}

// FilterViewable drops every lead the user may not view. The fetch path
// calls this before storing a batch, so hidden records never reach a
// projection.
func FilterViewable(leads []models.Lead, user *models.User, defaults Defaults) []models.Lead {
	visible := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if Resolve(&l, user, ActionView, defaults.For(ActionView)) {
			visible = append(visible, l)
		}
	}
	return visible
}
