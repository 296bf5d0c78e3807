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

func TestAddProjectToGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches a new project", func(t *testing.T) {
		g := group.Group{ID: uuid.New(), Name: "web", Path: "/web", Projects: group.NewProjectSet(1)}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "web").Return(g, nil)
		dir.On("FindGroupByID", ctx, g.ID).Return(g.Clone(), nil)
		dir.On("UpdateGroup", ctx, g.ID, mock.MatchedBy(func(p group.Patch) bool {
			return p.Attributes != nil && p.Attributes[group.AttrProjects][0] == "1,7"
		})).Return(group.Group{ID: g.ID, Name: "web", Projects: group.NewProjectSet(1, 7)}, nil)

		got, err := newTestService(dir).AddProjectToGroup(ctx, 7, "web")
		require.NoError(t, err)
		assert.True(t, got.Projects.Contains(7))
		dir.AssertExpectations(t)
	})

	t.Run("already attached is a no-op", func(t *testing.T) {
		g := group.Group{ID: uuid.New(), Name: "web", Path: "/web", Projects: group.NewProjectSet(7)}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "web").Return(g, nil)
		dir.On("FindGroupByID", ctx, g.ID).Return(g.Clone(), nil)

		got, err := newTestService(dir).AddProjectToGroup(ctx, 7, "web")
		require.NoError(t, err)
		assert.True(t, got.Projects.Contains(7))
		dir.AssertNotCalled(t, "UpdateGroup", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("billing group refuses a project owned elsewhere", func(t *testing.T) {
		target := group.Group{ID: uuid.New(), Name: "billing-a", Path: "/billing-a",
			Kind: group.KindBilling, Currency: "USD"}
		owner := group.Group{ID: uuid.New(), Name: "billing-b", Path: "/billing-b",
			Kind: group.KindBilling, Currency: "USD", Projects: group.NewProjectSet(7)}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "billing-a").Return(target, nil)
		dir.On("ListGroups", ctx).Return([]group.Group{target, owner}, nil)

		_, err := newTestService(dir).AddProjectToGroup(ctx, 7, "billing-a")
		assert.True(t, shared.IsCode(err, shared.CodeConflict))
	})

	t.Run("re-attaching to the owning billing group is fine", func(t *testing.T) {
		owner := group.Group{ID: uuid.New(), Name: "billing-a", Path: "/billing-a",
			Kind: group.KindBilling, Currency: "USD", Projects: group.NewProjectSet(7)}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "billing-a").Return(owner, nil)
		dir.On("ListGroups", ctx).Return([]group.Group{owner}, nil)
		dir.On("FindGroupByID", ctx, owner.ID).Return(owner.Clone(), nil)

		got, err := newTestService(dir).AddProjectToGroup(ctx, 7, "billing-a")
		require.NoError(t, err)
		assert.True(t, got.Projects.Contains(7))
	})
}

func TestRemoveProjectFromGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("detaches", func(t *testing.T) {
		g := group.Group{ID: uuid.New(), Name: "web", Path: "/web", Projects: group.NewProjectSet(1, 7)}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "web").Return(g, nil)
		dir.On("FindGroupByID", ctx, g.ID).Return(g.Clone(), nil)
		dir.On("UpdateGroup", ctx, g.ID, mock.MatchedBy(func(p group.Patch) bool {
			return p.Attributes != nil && p.Attributes[group.AttrProjects][0] == "1"
		})).Return(group.Group{ID: g.ID, Name: "web", Projects: group.NewProjectSet(1)}, nil)

		got, err := newTestService(dir).RemoveProjectFromGroup(ctx, 7, "web")
		require.NoError(t, err)
		assert.False(t, got.Projects.Contains(7))
		dir.AssertExpectations(t)
	})

	t.Run("not attached is a no-op", func(t *testing.T) {
		g := group.Group{ID: uuid.New(), Name: "web", Path: "/web", Projects: group.NewProjectSet(1)}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "web").Return(g, nil)
		dir.On("FindGroupByID", ctx, g.ID).Return(g.Clone(), nil)

		_, err := newTestService(dir).RemoveProjectFromGroup(ctx, 7, "web")
		require.NoError(t, err)
		dir.AssertNotCalled(t, "UpdateGroup", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateProjectBillingGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("target must be a billing group", func(t *testing.T) {
		g := group.Group{ID: uuid.New(), Name: "web", Path: "/web"}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "web").Return(g, nil)

		_, err := newTestService(dir).UpdateProjectBillingGroup(ctx, 7, "web")
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("moves the project between billing groups", func(t *testing.T) {
		target := group.Group{ID: uuid.New(), Name: "billing-a", Path: "/billing-a",
			Kind: group.KindBilling, Currency: "USD"}
		owner := group.Group{ID: uuid.New(), Name: "billing-b", Path: "/billing-b",
			Kind: group.KindBilling, Currency: "USD", Projects: group.NewProjectSet(7)}
		ownerAfter := group.Group{ID: owner.ID, Name: "billing-b", Path: "/billing-b",
			Kind: group.KindBilling, Currency: "USD"}

		dir := new(MockDirectory)
		dir.On("FindGroupByName", ctx, "billing-a").Return(target, nil)
		// First tree scan finds the current owner, the second (inside the
		// attach) sees the project already detached.
		dir.On("ListGroups", ctx).Return([]group.Group{target, owner}, nil).Once()
		dir.On("FindGroupByID", ctx, owner.ID).Return(owner.Clone(), nil)
		dir.On("UpdateGroup", ctx, owner.ID, mock.Anything).Return(ownerAfter, nil)
		dir.On("ListGroups", ctx).Return([]group.Group{target, ownerAfter}, nil)
		dir.On("FindGroupByID", ctx, target.ID).Return(target.Clone(), nil)
		dir.On("UpdateGroup", ctx, target.ID, mock.MatchedBy(func(p group.Patch) bool {
			return p.Attributes != nil && p.Attributes[group.AttrProjects][0] == "7"
		})).Return(group.Group{ID: target.ID, Name: "billing-a", Kind: group.KindBilling,
			Projects: group.NewProjectSet(7)}, nil)

		got, err := newTestService(dir).UpdateProjectBillingGroup(ctx, 7, "billing-a")
		require.NoError(t, err)
		assert.True(t, got.Projects.Contains(7))
		dir.AssertExpectations(t)
	})
}
