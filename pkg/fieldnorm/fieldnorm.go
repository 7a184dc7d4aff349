// Package fieldnorm maps external representations (free-text spreadsheet
// cells, UI values of varying case) onto the canonical Lead shape.
package fieldnorm

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
	"github.com/propertydeck/leadsync/pkg/models"
	"golang.org/x/text/unicode/norm"
)

// removeAccents removes diacritical marks from Unicode strings
// Example: "José" → "Jose"
func removeAccents(s string) string {
	// NFD breaks "é" into "e" + combining acute
	t := norm.NFD.String(s)

	result := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) { // Mn = Mark, Nonspacing
			return -1
		}
		return r
	}, t)

	return norm.NFC.String(result)
}

// Key canonicalizes a free-text token: trim, accent-fold, lower-case,
// and collapse runs of whitespace/dashes into single underscores.
// "Site Visit - Scheduled" and "site_visit_scheduled" share one key.
func Key(s string) string {
	s = strings.ToLower(removeAccents(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '-' || r == '_' {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EqualKey reports whether two values normalize to the same key. This is
// the comparison the mutation no-op guard uses for enum-like fields.
func EqualKey(a, b string) bool {
	return Key(a) == Key(b)
}

// statusAliases maps normalized keys onto canonical pipeline stages.
// Canonical tokens map to themselves through Key, so only true aliases
// need entries here.
var statusAliases = map[string]models.LeadStatus{
	"fresh":           models.StatusNew,
	"open":            models.StatusNew,
	"contact":         models.StatusContacted,
	"follow_up":       models.StatusContacted,
	"interested":      models.StatusQualified,
	"site_visit":      models.StatusSiteVisitScheduled,
	"visit_scheduled": models.StatusSiteVisitScheduled,
	"visit_done":      models.StatusSiteVisitCompleted,
	"visit_completed": models.StatusSiteVisitCompleted,
	"negotiating":     models.StatusNegotiation,
	"won":             models.StatusBooked,
	"booking":         models.StatusBooked,
	"dead":            models.StatusLost,
	"not_interested":  models.StatusLost,
	"close":           models.StatusClosed,
	"spam":            models.StatusJunk,
	"invalid":         models.StatusJunk,
}

// CanonicalStatus normalizes a status value onto exactly one pipeline
// stage. Unrecognized or empty values fall into the default stage, never
// remain free text.
func CanonicalStatus(s string) models.LeadStatus {
	key := Key(s)
	if key == "" {
		return models.DefaultStatus
	}
	if models.LeadStatus(key).Valid() {
		return models.LeadStatus(key)
	}
	if canonical, ok := statusAliases[key]; ok {
		return canonical
	}
	return models.DefaultStatus
}

// Canonical source tokens
const (
	SourceWalkIn         = "walk_in"
	SourceWebsite        = "website"
	SourceReferral       = "referral"
	SourceSocialMedia    = "social_media"
	SourcePropertyPortal = "property_portal"
	SourcePhoneInquiry   = "phone_inquiry"
	SourceEmail          = "email"
	SourceAdvertisement  = "advertisement"
	SourceOther          = "other"
)

var canonicalSources = map[string]bool{
	SourceWalkIn:         true,
	SourceWebsite:        true,
	SourceReferral:       true,
	SourceSocialMedia:    true,
	SourcePropertyPortal: true,
	SourcePhoneInquiry:   true,
	SourceEmail:          true,
	SourceAdvertisement:  true,
	SourceOther:          true,
}

var sourceAliases = map[string]string{
	"walkin":       SourceWalkIn,
	"walk":         SourceWalkIn,
	"web":          SourceWebsite,
	"site":         SourceWebsite,
	"landing_page": SourceWebsite,
	"referred":     SourceReferral,
	"reference":    SourceReferral,
	"facebook":     SourceSocialMedia,
	"instagram":    SourceSocialMedia,
	"social":       SourceSocialMedia,
	"portal":       SourcePropertyPortal,
	"listing_site": SourcePropertyPortal,
	"call":         SourcePhoneInquiry,
	"phone":        SourcePhoneInquiry,
	"phone_call":   SourcePhoneInquiry,
	"mail":         SourceEmail,
	"newspaper":    SourceAdvertisement,
	"ad":           SourceAdvertisement,
	"ads":          SourceAdvertisement,
	"campaign":     SourceAdvertisement,
}

// CanonicalSource normalizes a lead source; "Walk In" and "walk_in" both
// yield walk_in. Unrecognized values fall back to other.
func CanonicalSource(s string) string {
	key := Key(s)
	if key == "" {
		return SourceOther
	}
	if canonicalSources[key] {
		return key
	}
	if canonical, ok := sourceAliases[key]; ok {
		return canonical
	}
	return SourceOther
}

// CanonicalPriority folds a priority value onto its canonical token,
// or returns the trimmed input unchanged if it is not a known priority.
func CanonicalPriority(s string) string {
	key := Key(s)
	for _, p := range models.Priorities {
		if key == p {
			return p
		}
	}
	return strings.TrimSpace(s)
}

// SplitFullName derives first/last name from a single full-name cell:
// first whitespace token becomes the first name, the remainder the last.
func SplitFullName(full string) (first, last string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// NormalizePhone formats a phone number to E.164 when it parses for the
// given region. Unparseable input is kept trimmed rather than dropped;
// the minimum-viable-record rule only requires the field to be non-empty.
func NormalizePhone(raw, region string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if region == "" {
		region = "US"
	}

	parsed, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
