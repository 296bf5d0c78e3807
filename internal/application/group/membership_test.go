package group

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wintercreative/lagoon/internal/domain/group"
	"github.com/wintercreative/lagoon/internal/domain/shared"
)

func TestGetGroupMembership(t *testing.T) {
	ctx := context.Background()

	acme := group.Group{ID: uuid.New(), Name: "acme", Path: "/acme"}
	owners := group.Group{ID: uuid.New(), Name: "acme-owner", Path: "/acme/acme-owner",
		Kind: group.KindRoleSubgroup, RealmRoles: []string{"owner"}}
	broken := group.Group{ID: uuid.New(), Name: "acme-broken", Path: "/acme/acme-broken",
		Kind: group.KindRoleSubgroup}
	alice := group.User{ID: uuid.New(), Email: "alice@example.com"}

	dir := new(MockDirectory)
	dir.On("FindGroupByName", ctx, "acme").Return(acme, nil)
	dir.On("ListGroups", ctx).Return([]group.Group{acme, owners, broken}, nil)
	dir.On("ListGroupMembers", ctx, owners.ID).Return([]group.UserRef{{ID: alice.ID}}, nil)
	dir.On("FindUser", ctx, alice.ID).Return(alice, nil)

	members, err := newTestService(dir).GetGroupMembership(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "owner", members[0].Role)
	assert.Equal(t, alice.Email, members[0].User.Email)
	assert.Equal(t, owners.ID, members[0].RoleSubgroupID)
	// The roleless subgroup must be skipped, never listed.
	dir.AssertNotCalled(t, "ListGroupMembers", ctx, broken.ID)
}

func TestAddUserToGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("role required", func(t *testing.T) {
		dir := new(MockDirectory)
		err := newTestService(dir).AddUserToGroup(ctx, uuid.New(), "acme", "")
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("creates the role subgroup lazily", func(t *testing.T) {
		acme := group.Group{ID: uuid.New(), Name: "acme", Path: "/acme"}
		userID := uuid.New()
		role := group.Role{ID: uuid.New(), Name: "developer"}
		sub := group.Group{ID: uuid.New(), Name: "acme-developer",
			Kind: group.KindRoleSubgroup, RealmRoles: []string{"developer"}}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "acme").Return(acme, nil)
		// No subgroups yet, so the removal pass finds nothing.
		dir.On("ListGroups", ctx).Return([]group.Group{acme}, nil)
		dir.On("FindGroupByName", ctx, "acme-developer").Return(group.Group{}, shared.ErrNotFound)
		dir.On("FindRoleByName", ctx, "developer").Return(role, nil)
		dir.On("CreateGroup", ctx, mock.MatchedBy(func(g group.Group) bool {
			return g.Name == "acme-developer" && g.Kind == group.KindRoleSubgroup &&
				len(g.RealmRoles) == 1 && g.RealmRoles[0] == "developer"
		})).Return(sub, nil)
		dir.On("SetParent", ctx, sub.ID, acme.ID).Return(nil)
		dir.On("BindRealmRole", ctx, sub.ID, role).Return(nil)
		dir.On("AddMember", ctx, userID, sub.ID).Return(nil)

		err := newTestService(dir).AddUserToGroup(ctx, userID, "acme", "developer")
		require.NoError(t, err)
		dir.AssertExpectations(t)
	})

	t.Run("replaces an existing role", func(t *testing.T) {
		acme := group.Group{ID: uuid.New(), Name: "acme", Path: "/acme"}
		owners := group.Group{ID: uuid.New(), Name: "acme-owner", Path: "/acme/acme-owner",
			Kind: group.KindRoleSubgroup, RealmRoles: []string{"owner"}}
		devs := group.Group{ID: uuid.New(), Name: "acme-developer", Path: "/acme/acme-developer",
			Kind: group.KindRoleSubgroup, RealmRoles: []string{"developer"}}
		userID := uuid.New()

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "acme").Return(acme, nil)
		dir.On("ListGroups", ctx).Return([]group.Group{acme, owners, devs}, nil)
		dir.On("ListGroupMembers", ctx, owners.ID).Return([]group.UserRef{{ID: userID}}, nil)
		dir.On("ListGroupMembers", ctx, devs.ID).Return([]group.UserRef{}, nil)
		dir.On("RemoveMember", ctx, userID, owners.ID).Return(nil)
		dir.On("FindGroupByName", ctx, "acme-developer").Return(devs, nil)
		dir.On("AddMember", ctx, userID, devs.ID).Return(nil)

		err := newTestService(dir).AddUserToGroup(ctx, userID, "acme", "developer")
		require.NoError(t, err)
		dir.AssertExpectations(t)
	})

	t.Run("unknown role", func(t *testing.T) {
		acme := group.Group{ID: uuid.New(), Name: "acme", Path: "/acme"}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "acme").Return(acme, nil)
		dir.On("ListGroups", ctx).Return([]group.Group{acme}, nil)
		dir.On("FindGroupByName", ctx, "acme-wizard").Return(group.Group{}, shared.ErrNotFound)
		dir.On("FindRoleByName", ctx, "wizard").Return(group.Role{}, shared.ErrNotFound)

		err := newTestService(dir).AddUserToGroup(ctx, uuid.New(), "acme", "wizard")
		assert.True(t, shared.IsValidation(err))
	})
}

func TestRemoveUserFromGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("not a member is a no-op", func(t *testing.T) {
		acme := group.Group{ID: uuid.New(), Name: "acme", Path: "/acme"}
		owners := group.Group{ID: uuid.New(), Name: "acme-owner", Path: "/acme/acme-owner",
			Kind: group.KindRoleSubgroup, RealmRoles: []string{"owner"}}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "acme").Return(acme, nil)
		dir.On("ListGroups", ctx).Return([]group.Group{acme, owners}, nil)
		dir.On("ListGroupMembers", ctx, owners.ID).Return([]group.UserRef{}, nil)

		err := newTestService(dir).RemoveUserFromGroup(ctx, uuid.New(), "acme")
		assert.NoError(t, err)
		dir.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("removes from the owning subgroup", func(t *testing.T) {
		acme := group.Group{ID: uuid.New(), Name: "acme", Path: "/acme"}
		owners := group.Group{ID: uuid.New(), Name: "acme-owner", Path: "/acme/acme-owner",
			Kind: group.KindRoleSubgroup, RealmRoles: []string{"owner"}}
		userID := uuid.New()

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "acme").Return(acme, nil)
		dir.On("ListGroups", ctx).Return([]group.Group{acme, owners}, nil)
		dir.On("ListGroupMembers", ctx, owners.ID).Return([]group.UserRef{{ID: userID}}, nil)
		dir.On("RemoveMember", ctx, userID, owners.ID).Return(nil)

		err := newTestService(dir).RemoveUserFromGroup(ctx, userID, "acme")
		require.NoError(t, err)
		dir.AssertExpectations(t)
	})
}
