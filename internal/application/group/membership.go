package group

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wintercreative/lagoon/internal/domain/group"
	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// GetGroupMembership resolves the members of a group through its role
// subgroups. A user's role is the subgroup's first realm role; subgroups
// carrying no realm role cannot name a role and are skipped.
func (s *Service) GetGroupMembership(ctx context.Context, ref string) ([]group.Membership, error) {
	g, err := s.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return nil, err
	}
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	node, ok := tree.FindByID(g.ID)
	if !ok {
		return nil, shared.NewGroupNotFoundError(ref)
	}

	var members []group.Membership
	for _, sub := range node.RoleSubgroups {
		role, ok := sub.RoleFromSubgroup()
		if !ok {
			s.logger.Warn("Role subgroup carries no realm role, skipping",
				zap.String("group", g.Name),
				zap.String("subgroup", sub.Name))
			continue
		}
		refs, err := s.dir.ListGroupMembers(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			user, err := s.dir.FindUser(ctx, r.ID)
			if err != nil {
				return nil, err
			}
			members = append(members, group.Membership{
				User:           user,
				Role:           role,
				RoleSubgroupID: sub.ID,
			})
		}
	}
	return members, nil
}

// AddUserToGroup grants a user a role in a group. Membership is
// add-or-replace: any existing role is removed first, then the user joins
// the `<group>-<role>` subgroup, which is created lazily with its realm
// role bound.
func (s *Service) AddUserToGroup(ctx context.Context, userID uuid.UUID, ref, roleName string) error {
	if roleName == "" {
		return shared.NewValidationError("You must provide a role")
	}
	g, err := s.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return err
	}

	if err := s.RemoveUserFromGroup(ctx, userID, ref); err != nil {
		return err
	}

	sub, err := s.ensureRoleSubgroup(ctx, g, roleName)
	if err != nil {
		return err
	}

	if err := s.dir.AddMember(ctx, userID, sub.ID); err != nil {
		s.logger.Error("Failed to add user to role subgroup",
			zap.String("user", userID.String()),
			zap.String("subgroup", sub.Name),
			zap.Error(err))
		return err
	}

	s.logger.Info("User added to group",
		zap.String("user", userID.String()),
		zap.String("group", g.Name),
		zap.String("role", roleName))
	return nil
}

// RemoveUserFromGroup removes a user from every role subgroup of a group.
// Removing a user who is not a member is a no-op.
func (s *Service) RemoveUserFromGroup(ctx context.Context, userID uuid.UUID, ref string) error {
	g, err := s.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return err
	}
	tree, err := s.loadTree(ctx)
	if err != nil {
		return err
	}
	node, ok := tree.FindByID(g.ID)
	if !ok {
		return shared.NewGroupNotFoundError(ref)
	}

	for _, sub := range node.RoleSubgroups {
		refs, err := s.dir.ListGroupMembers(ctx, sub.ID)
		if err != nil {
			return err
		}
		for _, r := range refs {
			if r.ID != userID {
				continue
			}
			if err := s.dir.RemoveMember(ctx, userID, sub.ID); err != nil {
				return err
			}
			s.logger.Info("User removed from group",
				zap.String("user", userID.String()),
				zap.String("group", g.Name),
				zap.String("subgroup", sub.Name))
		}
	}
	return nil
}

// ensureRoleSubgroup finds or creates the `<group>-<role>` subgroup,
// binding the realm role when it has to create one.
func (s *Service) ensureRoleSubgroup(ctx context.Context, parent group.Group, roleName string) (group.Group, error) {
	subName := group.RoleSubgroupName(parent.Name, roleName)
	if sub, err := s.dir.FindGroupByName(ctx, subName); err == nil {
		return sub, nil
	}

	role, err := s.dir.FindRoleByName(ctx, roleName)
	if err != nil {
		return group.Group{}, shared.NewValidationError("Unknown role: " + roleName)
	}

	sub, err := s.dir.CreateGroup(ctx, group.Group{
		Name:       subName,
		Kind:       group.KindRoleSubgroup,
		RealmRoles: []string{role.Name},
	})
	if err != nil {
		// Lost a creation race; the existing subgroup serves just as well.
		if shared.IsCode(err, shared.CodeConflict) {
			return s.dir.FindGroupByName(ctx, subName)
		}
		return group.Group{}, err
	}
	if err := s.dir.SetParent(ctx, sub.ID, parent.ID); err != nil {
		return group.Group{}, err
	}
	if err := s.dir.BindRealmRole(ctx, sub.ID, role); err != nil {
		return group.Group{}, err
	}
	return sub, nil
}
