package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/wintercreative/lagoon/internal/domain/group"
	"github.com/wintercreative/lagoon/internal/domain/project"
	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// ProjectsNotInAnyBillingGroup returns every project that no billing group
// owns. These projects consume resources nobody is invoiced for.
func (s *Service) ProjectsNotInAnyBillingGroup(ctx context.Context) ([]project.Project, error) {
	groups, err := s.groups.BillingGroups(ctx)
	if err != nil {
		return nil, err
	}

	owned := group.NewProjectSet()
	for _, g := range groups {
		for _, id := range g.Projects.IDs() {
			owned.Add(id)
		}
	}
	return s.store.ProjectsExcluding(ctx, owned.IDs())
}

// BillingGroupsWithoutProjects returns billing groups with nothing attached
func (s *Service) BillingGroupsWithoutProjects(ctx context.Context) ([]group.Group, error) {
	groups, err := s.groups.BillingGroups(ctx)
	if err != nil {
		return nil, err
	}

	var empty []group.Group
	for _, g := range groups {
		if g.Projects.Len() == 0 {
			empty = append(empty, g)
		}
	}
	return empty, nil
}

// DeleteBillingGroupsWithoutProjects removes every empty billing group,
// attempting all of them and reporting failures together.
func (s *Service) DeleteBillingGroupsWithoutProjects(ctx context.Context) ([]group.Group, error) {
	empty, err := s.BillingGroupsWithoutProjects(ctx)
	if err != nil {
		return nil, err
	}

	var deleted []group.Group
	var failed []string
	var errs []error
	for _, g := range empty {
		if err := s.groups.DeleteGroup(ctx, g.ID.String()); err != nil {
			s.logger.Error("Failed to delete empty billing group",
				zap.String("group", g.Name), zap.Error(err))
			failed = append(failed, g.Name)
			errs = append(errs, err)
			continue
		}
		deleted = append(deleted, g)
	}
	if len(failed) > 0 {
		return deleted, shared.NewPartialFailureError("delete empty billing groups", failed, errs)
	}
	return deleted, nil
}
