package group

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wintercreative/lagoon/internal/domain/group"
	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// Service manages the group hierarchy: group lifecycle, membership through
// role subgroups, and project association. All hierarchy knowledge lives
// behind group.Directory; the service adds validation, traversal and
// write serialization on top.
type Service struct {
	dir    group.Directory
	logger *zap.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates a new group service
func NewService(dir group.Directory, logger *zap.Logger) *Service {
	return &Service{
		dir:    dir,
		logger: logger,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockFor returns the mutation lock for one group. Project-list updates are
// read-modify-write cycles on a single attribute, so writes to the same
// group must not interleave.
func (s *Service) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// AddGroupInput describes a group to create
type AddGroupInput struct {
	Name            string
	ParentGroup     string
	Kind            group.Kind
	Currency        string
	BillingSoftware string
	RealmRoles      []string
}

// LoadAllGroups returns every group in the directory
func (s *Service) LoadAllGroups(ctx context.Context) ([]group.Group, error) {
	return s.dir.ListGroups(ctx)
}

// LoadGroupByIDOrName resolves a group reference, which may be a group id
// or a group name. Misses map to GroupNotFoundError regardless of how the
// lookup was attempted.
func (s *Service) LoadGroupByIDOrName(ctx context.Context, ref string) (group.Group, error) {
	if ref == "" {
		return group.Group{}, shared.NewValidationError("You must provide a group id or name")
	}
	if id, err := uuid.Parse(ref); err == nil {
		g, err := s.dir.FindGroupByID(ctx, id)
		if err != nil {
			return group.Group{}, shared.NewGroupNotFoundError(ref)
		}
		return g, nil
	}
	g, err := s.dir.FindGroupByName(ctx, ref)
	if err != nil {
		return group.Group{}, shared.NewGroupNotFoundError(ref)
	}
	return g, nil
}

// LoadParentGroup returns the parent of a group, resolved from its path
func (s *Service) LoadParentGroup(ctx context.Context, g group.Group) (group.Group, error) {
	parentName := g.ParentName()
	if parentName == "" {
		return group.Group{}, shared.NewGroupNotFoundError(g.Name)
	}
	return s.LoadGroupByIDOrName(ctx, parentName)
}

// LoadGroupsByProjectID returns every group with the project attached
func (s *Service) LoadGroupsByProjectID(ctx context.Context, projectID int) ([]group.Group, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	nodes := tree.GroupsByProjectID(projectID)
	out := make([]group.Group, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Group)
	}
	return out, nil
}

// AddGroup creates a group, optionally nested under a parent. The duplicate
// pre-check and a create-time conflict both surface as GroupExistsError;
// the directory remains the authority under races.
func (s *Service) AddGroup(ctx context.Context, input AddGroupInput) (group.Group, error) {
	if err := group.ValidateName(input.Name); err != nil {
		return group.Group{}, err
	}

	if _, err := s.dir.FindGroupByName(ctx, input.Name); err == nil {
		return group.Group{}, shared.NewGroupExistsError(input.Name)
	}

	var parent group.Group
	if input.ParentGroup != "" {
		var err error
		parent, err = s.LoadGroupByIDOrName(ctx, input.ParentGroup)
		if err != nil {
			return group.Group{}, err
		}
	}

	created, err := s.dir.CreateGroup(ctx, group.Group{
		Name:            input.Name,
		Kind:            input.Kind,
		Currency:        input.Currency,
		BillingSoftware: input.BillingSoftware,
		RealmRoles:      input.RealmRoles,
	})
	if err != nil {
		if shared.IsCode(err, shared.CodeConflict) {
			return group.Group{}, shared.NewGroupExistsError(input.Name)
		}
		s.logger.Error("Failed to create group", zap.String("name", input.Name), zap.Error(err))
		return group.Group{}, err
	}

	if input.ParentGroup != "" {
		if err := s.dir.SetParent(ctx, created.ID, parent.ID); err != nil {
			s.logger.Error("Failed to nest group under parent",
				zap.String("name", input.Name),
				zap.String("parent", parent.Name),
				zap.Error(err))
			return group.Group{}, err
		}
		created.Path = parent.Path + "/" + created.Name
	}

	s.logger.Info("Group created",
		zap.String("name", created.Name),
		zap.String("id", created.ID.String()))
	return created, nil
}

// AddBillingGroup creates a billing group. Currency is mandatory because
// every cost report needs a price list to bill against.
func (s *Service) AddBillingGroup(ctx context.Context, name, currency, billingSoftware string) (group.Group, error) {
	if currency == "" {
		return group.Group{}, shared.NewValidationError("Billing group requires a currency")
	}
	return s.AddGroup(ctx, AddGroupInput{
		Name:            name,
		Kind:            group.KindBilling,
		Currency:        currency,
		BillingSoftware: billingSoftware,
	})
}

// UpdateGroupInput is a partial group update. Nil fields stay as they are.
type UpdateGroupInput struct {
	Name            *string
	Currency        *string
	BillingSoftware *string
}

func (in UpdateGroupInput) empty() bool {
	return in.Name == nil && in.Currency == nil && in.BillingSoftware == nil
}

// UpdateGroup patches a group. Renames cascade to the group's role
// subgroups so the `<group>-<role>` convention stays intact; subgroup
// renames that fail are reported together as a PartialFailureError, and
// already-applied renames are not rolled back.
func (s *Service) UpdateGroup(ctx context.Context, ref string, input UpdateGroupInput) (group.Group, error) {
	if input.empty() {
		return group.Group{}, shared.NewValidationError("You must provide a field to update")
	}

	g, err := s.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return group.Group{}, err
	}

	oldName := g.Name
	if input.Name != nil && *input.Name != oldName {
		if err := group.ValidateName(*input.Name); err != nil {
			return group.Group{}, err
		}
		if _, err := s.dir.FindGroupByName(ctx, *input.Name); err == nil {
			return group.Group{}, shared.NewGroupExistsError(*input.Name)
		}
		g.Name = *input.Name
	}
	if input.Currency != nil {
		g.Currency = *input.Currency
	}
	if input.BillingSoftware != nil {
		g.BillingSoftware = *input.BillingSoftware
	}

	updated, err := s.dir.UpdateGroup(ctx, g.ID, group.Patch{
		Name:       &g.Name,
		Attributes: group.EncodeAttributes(g, nil),
	})
	if err != nil {
		s.logger.Error("Failed to update group", zap.String("name", oldName), zap.Error(err))
		return group.Group{}, err
	}

	if input.Name == nil || *input.Name == oldName {
		return updated, nil
	}

	// Rename every role subgroup carrying the old owner-name prefix.
	tree, err := s.loadTree(ctx)
	if err != nil {
		return updated, err
	}
	node, ok := tree.FindByID(g.ID)
	if !ok {
		return updated, nil
	}

	var failed []string
	var errs []error
	for _, sub := range node.RoleSubgroups {
		newSubName := group.RenameRoleSubgroup(sub.Name, oldName, g.Name)
		if newSubName == sub.Name {
			continue
		}
		if _, err := s.dir.UpdateGroup(ctx, sub.ID, group.Patch{Name: &newSubName}); err != nil {
			s.logger.Error("Failed to rename role subgroup",
				zap.String("subgroup", sub.Name),
				zap.Error(err))
			failed = append(failed, sub.Name)
			errs = append(errs, err)
		}
	}
	if len(failed) > 0 {
		return updated, shared.NewPartialFailureError(
			fmt.Sprintf("rename role subgroups of %s", oldName), failed, errs)
	}
	return updated, nil
}

// DeleteGroup removes a group by reference
func (s *Service) DeleteGroup(ctx context.Context, ref string) error {
	g, err := s.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.dir.DeleteGroup(ctx, g.ID); err != nil {
		s.logger.Error("Failed to delete group", zap.String("name", g.Name), zap.Error(err))
		return err
	}
	s.logger.Info("Group deleted", zap.String("name", g.Name))
	return nil
}

// DeleteAllGroups removes every group, attempting each one and reporting
// all failures at the end instead of stopping at the first.
func (s *Service) DeleteAllGroups(ctx context.Context) error {
	groups, err := s.dir.ListGroups(ctx)
	if err != nil {
		return err
	}

	var failed []string
	var errs []error
	for _, g := range groups {
		if err := s.dir.DeleteGroup(ctx, g.ID); err != nil {
			if shared.IsCode(err, shared.CodeNotFound) {
				// Already gone, likely deleted with its parent.
				continue
			}
			failed = append(failed, g.Name)
			errs = append(errs, err)
		}
	}
	if len(failed) > 0 {
		return shared.NewPartialFailureError("delete all groups", failed, errs)
	}
	return nil
}

// loadTree pulls the full directory and links it into an in-memory tree
func (s *Service) loadTree(ctx context.Context) (*group.Tree, error) {
	groups, err := s.dir.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	return group.BuildTree(groups), nil
}

// ProjectsFromGroupAndSubgroups returns the unique project ids attached to
// a group or any of its descendants.
func (s *Service) ProjectsFromGroupAndSubgroups(ctx context.Context, ref string) ([]int, error) {
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
	return group.UniqueProjects(group.ProjectsFromGroupAndSubgroups(node)), nil
}

// ProjectsFromGroupAndParents returns the unique project ids attached to a
// group or any group on its parent chain.
func (s *Service) ProjectsFromGroupAndParents(ctx context.Context, ref string) ([]int, error) {
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
	return group.UniqueProjects(group.ProjectsFromGroupAndParents(node)), nil
}

// BillingGroups returns every billing group in the directory
func (s *Service) BillingGroups(ctx context.Context) ([]group.Group, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	nodes := tree.BillingGroups()
	out := make([]group.Group, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Group)
	}
	return out, nil
}
