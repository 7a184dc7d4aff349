package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalsBareString(t *testing.T) {
	var r Ref
	require.NoError(t, json.Unmarshal([]byte(`"abc123"`), &r))
	assert.Equal(t, "abc123", r.ID)
	assert.Empty(t, r.Name)
}

func TestRef_UnmarshalsExpandedObject(t *testing.T) {
	var r Ref
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"abc123","name":"Coastal Realty"}`), &r))
	assert.Equal(t, "abc123", r.ID)
	assert.Equal(t, "Coastal Realty", r.Name)
}

func TestRef_UnmarshalsPlainIDKey(t *testing.T) {
	var r Ref
	require.NoError(t, json.Unmarshal([]byte(`{"id":"abc123"}`), &r))
	assert.Equal(t, "abc123", r.ID)
}

func TestLead_UnmarshalMixedRefShapes(t *testing.T) {
	payload := `{
		"_id": "l1",
		"firstName": "Jane",
		"status": "qualified",
		"assignedAgent": "agent-9",
		"agency": {"_id": "ag1", "name": "Coastal Realty"}
	}`

	var l Lead
	require.NoError(t, json.Unmarshal([]byte(payload), &l))
	require.NotNil(t, l.AssignedAgent)
	assert.Equal(t, "agent-9", l.AssignedAgent.ID)
	require.NotNil(t, l.Agency)
	assert.Equal(t, "Coastal Realty", l.Agency.Name)
}

func TestLead_CloneIsDeep(t *testing.T) {
	score := 88.0
	followUp := time.Now().Add(48 * time.Hour)
	granted := true
	original := Lead{
		ID:            "l1",
		Status:        StatusNegotiation,
		AssignedAgent: &Ref{ID: "agent-1", Name: "Sam"},
		Agency:        &Ref{ID: "ag1"},
		Score:         &score,
		FollowUpDate:  &followUp,
		EntryPermissions: map[string]PermissionSet{
			"agent": {Edit: &granted},
		},
	}

	clone := original.Clone()
	clone.AssignedAgent.ID = "agent-2"
	*clone.Score = 10
	*clone.EntryPermissions["agent"].Edit = false

	assert.Equal(t, "agent-1", original.AssignedAgent.ID)
	assert.Equal(t, 88.0, *original.Score)
	assert.True(t, *original.EntryPermissions["agent"].Edit)
}

func TestFieldValue_RefFieldsYieldID(t *testing.T) {
	l := Lead{Agency: &Ref{ID: "ag1", Name: "Coastal"}}

	value, ok := l.FieldValue(FieldAgency)
	require.True(t, ok)
	assert.Equal(t, "ag1", value)

	value, ok = l.FieldValue(FieldAssignedAgent)
	require.True(t, ok)
	assert.Empty(t, value, "nil ref reads as empty, not as an error")

	_, ok = l.FieldValue("favoriteColor")
	assert.False(t, ok)
}

func TestSetFieldValue_EmptyIDClearsRef(t *testing.T) {
	l := Lead{AssignedAgent: &Ref{ID: "agent-1"}}

	require.True(t, l.SetFieldValue(FieldAssignedAgent, ""))
	assert.Nil(t, l.AssignedAgent)

	require.True(t, l.SetFieldValue(FieldAssignedAgent, "agent-2"))
	require.NotNil(t, l.AssignedAgent)
	assert.Equal(t, "agent-2", l.AssignedAgent.ID)
}

func TestLeadStatus_Valid(t *testing.T) {
	assert.True(t, StatusSiteVisitScheduled.Valid())
	assert.False(t, LeadStatus("archived").Valid())
}
