package group

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wintercreative/lagoon/internal/domain/group"
	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// AddProjectToGroup attaches a project to a group. The project-list
// attribute is a read-modify-write cycle, so updates to one group are
// serialized; attaching an already-attached project is a no-op. A billing
// group refuses projects already owned by another billing group.
func (s *Service) AddProjectToGroup(ctx context.Context, projectID int, ref string) (group.Group, error) {
	g, err := s.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return group.Group{}, err
	}

	if g.IsBilling() {
		owner, err := s.billingGroupForProject(ctx, projectID)
		if err != nil {
			return group.Group{}, err
		}
		if owner != nil && owner.ID != g.ID {
			return group.Group{}, shared.NewDomainError(shared.CodeConflict,
				fmt.Sprintf("Project %d is already in billing group %s", projectID, owner.Name))
		}
	}

	lock := s.lockFor(g.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock so concurrent attach and detach cycles never
	// work from a stale project list.
	fresh, err := s.dir.FindGroupByID(ctx, g.ID)
	if err != nil {
		return group.Group{}, err
	}
	if !fresh.Projects.Add(projectID) {
		return fresh, nil
	}
	updated, err := s.dir.UpdateGroup(ctx, fresh.ID, group.Patch{
		Attributes: group.EncodeAttributes(fresh, nil),
	})
	if err != nil {
		s.logger.Error("Failed to attach project to group",
			zap.Int("project", projectID),
			zap.String("group", fresh.Name),
			zap.Error(err))
		return group.Group{}, err
	}
	s.logger.Info("Project attached to group",
		zap.Int("project", projectID),
		zap.String("group", updated.Name))
	return updated, nil
}

// RemoveProjectFromGroup detaches a project from a group. Detaching a
// project that is not attached is a no-op.
func (s *Service) RemoveProjectFromGroup(ctx context.Context, projectID int, ref string) (group.Group, error) {
	g, err := s.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return group.Group{}, err
	}

	lock := s.lockFor(g.ID)
	lock.Lock()
	defer lock.Unlock()

	fresh, err := s.dir.FindGroupByID(ctx, g.ID)
	if err != nil {
		return group.Group{}, err
	}
	if !fresh.Projects.Remove(projectID) {
		return fresh, nil
	}
	updated, err := s.dir.UpdateGroup(ctx, fresh.ID, group.Patch{
		Attributes: group.EncodeAttributes(fresh, nil),
	})
	if err != nil {
		s.logger.Error("Failed to detach project from group",
			zap.Int("project", projectID),
			zap.String("group", fresh.Name),
			zap.Error(err))
		return group.Group{}, err
	}
	s.logger.Info("Project detached from group",
		zap.Int("project", projectID),
		zap.String("group", updated.Name))
	return updated, nil
}

// UpdateProjectBillingGroup moves a project to a new billing group,
// detaching it from whichever billing group currently owns it.
func (s *Service) UpdateProjectBillingGroup(ctx context.Context, projectID int, ref string) (group.Group, error) {
	target, err := s.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return group.Group{}, err
	}
	if !target.IsBilling() {
		return group.Group{}, shared.NewValidationError(
			fmt.Sprintf("Group %s is not a billing group", target.Name))
	}

	owner, err := s.billingGroupForProject(ctx, projectID)
	if err != nil {
		return group.Group{}, err
	}
	if owner != nil && owner.ID != target.ID {
		if _, err := s.RemoveProjectFromGroup(ctx, projectID, owner.ID.String()); err != nil {
			return group.Group{}, err
		}
	}
	return s.AddProjectToGroup(ctx, projectID, target.ID.String())
}

// billingGroupForProject returns the billing group owning a project, or
// nil when no billing group has it attached.
func (s *Service) billingGroupForProject(ctx context.Context, projectID int) (*group.Group, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range tree.BillingGroups() {
		if n.Projects.Contains(projectID) {
			g := n.Group
			return &g, nil
		}
	}
	return nil, nil
}
