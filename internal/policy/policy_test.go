package policy

import (
	"testing"

	"purpaws/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, CapabilityUser, CapabilityFor(false, false))
	assert.Equal(t, CapabilityStaff, CapabilityFor(true, false))
	assert.Equal(t, CapabilitySuperuser, CapabilityFor(false, true))
	assert.Equal(t, CapabilitySuperuser, CapabilityFor(true, true))
	assert.Equal(t, "staff", CapabilityStaff.String())
}

func TestAuthorize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		capability Capability
		action     Action
		allowed    bool
	}{
		{CapabilityUser, ActionViewAdminDashboard, false},
		{CapabilityStaff, ActionViewAdminDashboard, true},
		{CapabilitySuperuser, ActionViewAdminDashboard, true},
		{CapabilityUser, ActionModerateReports, false},
		{CapabilityStaff, ActionProcessAdoption, true},
		{CapabilityStaff, ActionPromoteUser, false},
		{CapabilitySuperuser, ActionPromoteUser, true},
		{CapabilityUser, ActionRemoveUser, false},
		{CapabilityStaff, ActionRemoveUser, true},
		{CapabilitySuperuser, Action("unknown"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+tt.capability.String(), func(t *testing.T) {
			err := Authorize(tt.capability, tt.action)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodePermissionDenied))
		})
	}
}

func TestCanRemove(t *testing.T) {
	t.Parallel()
	staff := Actor{UserID: 2, Capability: CapabilityStaff}
	root := Actor{UserID: 1, Capability: CapabilitySuperuser}

	tests := []struct {
		name    string
		actor   Actor
		target  Target
		allowed bool
	}{
		{"staff removes plain user", staff, Target{UserID: 10, Capability: CapabilityUser}, true},
		{"staff cannot remove staff", staff, Target{UserID: 3, Capability: CapabilityStaff}, false},
		{"staff cannot remove superuser", staff, Target{UserID: 1, Capability: CapabilitySuperuser}, false},
		{"superuser removes staff", root, Target{UserID: 3, Capability: CapabilityStaff}, true},
		{"superuser cannot remove superuser", root, Target{UserID: 9, Capability: CapabilitySuperuser}, false},
		{"no self removal", staff, Target{UserID: 2, Capability: CapabilityStaff}, false},
		{"regular user cannot remove", Actor{UserID: 5}, Target{UserID: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanRemove(tt.actor, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, models.HasCode(err, models.CodePermissionDenied))
		})
	}
}

func TestCanPromote(t *testing.T) {
	t.Parallel()
	root := Actor{UserID: 1, Capability: CapabilitySuperuser}

	already, err := CanPromote(root, Target{UserID: 4})
	require.NoError(t, err)
	assert.False(t, already)

	already, err = CanPromote(root, Target{UserID: 4, Capability: CapabilityStaff})
	require.NoError(t, err)
	assert.True(t, already)

	_, err = CanPromote(Actor{UserID: 2, Capability: CapabilityStaff}, Target{UserID: 4})
	assert.True(t, models.HasCode(err, models.CodePermissionDenied))
}

func TestActorFor(t *testing.T) {
	t.Parallel()
	a := ActorFor(&models.User{ID: 7, IsStaff: true})
	assert.Equal(t, Actor{UserID: 7, Capability: CapabilityStaff}, a)
}
