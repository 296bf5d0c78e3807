package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wintercreative/lagoon/internal/domain/group"
	"github.com/wintercreative/lagoon/internal/domain/shared"
	"github.com/wintercreative/lagoon/internal/infrastructure/persistence/models"
)

func TestGroupDirectory_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	dir := NewGormGroupDirectory(newTestDB(t))

	created, err := dir.CreateGroup(ctx, group.Group{
		Name:            "billing-acme",
		Kind:            group.KindBilling,
		Currency:        "USD",
		BillingSoftware: "xero",
		Projects:        group.NewProjectSet(1, 7),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "/billing-acme", created.Path)

	found, err := dir.FindGroupByName(ctx, "billing-acme")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, group.KindBilling, found.Kind)
	assert.Equal(t, "USD", found.Currency)
	assert.Equal(t, "xero", found.BillingSoftware)
	assert.Equal(t, []int{1, 7}, found.Projects.IDs())
	assert.Equal(t, "/billing-acme", found.Path)

	byID, err := dir.FindGroupByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, found, byID)

	t.Run("duplicate name is rejected", func(t *testing.T) {
		_, err := dir.CreateGroup(ctx, group.Group{Name: "billing-acme"})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("lookup misses", func(t *testing.T) {
		_, err := dir.FindGroupByName(ctx, "nope")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = dir.FindGroupByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGroupDirectory_SetParentAndPaths(t *testing.T) {
	ctx := context.Background()
	dir := NewGormGroupDirectory(newTestDB(t))

	acme, err := dir.CreateGroup(ctx, group.Group{Name: "acme"})
	require.NoError(t, err)
	web, err := dir.CreateGroup(ctx, group.Group{Name: "web"})
	require.NoError(t, err)
	drupal, err := dir.CreateGroup(ctx, group.Group{Name: "drupal"})
	require.NoError(t, err)

	require.NoError(t, dir.SetParent(ctx, web.ID, acme.ID))
	require.NoError(t, dir.SetParent(ctx, drupal.ID, web.ID))

	found, err := dir.FindGroupByName(ctx, "drupal")
	require.NoError(t, err)
	assert.Equal(t, "/acme/web/drupal", found.Path)
	assert.Equal(t, "web", found.ParentName())

	groups, err := dir.ListGroups(ctx)
	require.NoError(t, err)
	paths := make(map[string]string, len(groups))
	for _, g := range groups {
		paths[g.Name] = g.Path
	}
	assert.Equal(t, map[string]string{
		"acme":   "/acme",
		"web":    "/acme/web",
		"drupal": "/acme/web/drupal",
	}, paths)

	t.Run("missing parent or child", func(t *testing.T) {
		assert.ErrorIs(t, dir.SetParent(ctx, web.ID, uuid.New()), shared.ErrNotFound)
		assert.ErrorIs(t, dir.SetParent(ctx, uuid.New(), acme.ID), shared.ErrNotFound)
	})
}

func TestGroupDirectory_UpdateGroup(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	dir := NewGormGroupDirectory(db)

	g, err := dir.CreateGroup(ctx, group.Group{
		Name:     "billing-acme",
		Kind:     group.KindBilling,
		Currency: "USD",
		Projects: group.NewProjectSet(1),
	})
	require.NoError(t, err)

	// a key outside the reserved set must survive reserved-key patches
	custom := models.GroupAttributeModel{GroupID: g.ID, Name: "comment", Value: "managed manually"}
	require.NoError(t, db.Create(&custom).Error)

	t.Run("renames and replaces reserved attributes", func(t *testing.T) {
		newName := "billing-megacorp"
		updated := g.Clone()
		updated.Currency = "GBP"
		updated.Projects = group.NewProjectSet(1, 2)

		got, err := dir.UpdateGroup(ctx, g.ID, group.Patch{
			Name:       &newName,
			Attributes: group.EncodeAttributes(updated, nil),
		})
		require.NoError(t, err)
		assert.Equal(t, "billing-megacorp", got.Name)
		assert.Equal(t, "GBP", got.Currency)
		assert.Equal(t, []int{1, 2}, got.Projects.IDs())
		assert.Equal(t, group.KindBilling, got.Kind)

		var rows []models.GroupAttributeModel
		require.NoError(t, db.Where("group_id = ? AND name = ?", g.ID, "comment").Find(&rows).Error)
		assert.Len(t, rows, 1, "non-reserved attribute must be preserved")
	})

	t.Run("omitted reserved key is cleared", func(t *testing.T) {
		plain := group.Group{Name: "billing-megacorp"}
		got, err := dir.UpdateGroup(ctx, g.ID, group.Patch{Attributes: group.EncodeAttributes(plain, nil)})
		require.NoError(t, err)
		assert.Equal(t, group.KindPlain, got.Kind)
		assert.Empty(t, got.Currency)
		assert.Zero(t, got.Projects.Len())
	})

	t.Run("rename conflict", func(t *testing.T) {
		other, err := dir.CreateGroup(ctx, group.Group{Name: "other"})
		require.NoError(t, err)
		taken := "billing-megacorp"
		_, err = dir.UpdateGroup(ctx, other.ID, group.Patch{Name: &taken})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("missing group", func(t *testing.T) {
		name := "ghost"
		_, err := dir.UpdateGroup(ctx, uuid.New(), group.Patch{Name: &name})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGroupDirectory_DeleteGroupCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	dir := NewGormGroupDirectory(db)

	acme, err := dir.CreateGroup(ctx, group.Group{Name: "acme"})
	require.NoError(t, err)
	web, err := dir.CreateGroup(ctx, group.Group{Name: "web", Projects: group.NewProjectSet(3)})
	require.NoError(t, err)
	owner, err := dir.CreateGroup(ctx, group.Group{
		Name:       "web-owner",
		Kind:       group.KindRoleSubgroup,
		RealmRoles: []string{"owner"},
	})
	require.NoError(t, err)
	require.NoError(t, dir.SetParent(ctx, web.ID, acme.ID))
	require.NoError(t, dir.SetParent(ctx, owner.ID, web.ID))

	require.NoError(t, dir.DeleteGroup(ctx, acme.ID))

	for _, name := range []string{"acme", "web", "web-owner"} {
		_, err := dir.FindGroupByName(ctx, name)
		assert.ErrorIs(t, err, shared.ErrNotFound, name)
	}
	var attrCount int64
	require.NoError(t, db.Model(&models.GroupAttributeModel{}).Count(&attrCount).Error)
	assert.Zero(t, attrCount)
	var roleCount int64
	require.NoError(t, db.Model(&models.GroupRealmRoleModel{}).Count(&roleCount).Error)
	assert.Zero(t, roleCount)

	assert.ErrorIs(t, dir.DeleteGroup(ctx, acme.ID), shared.ErrNotFound)
}

func TestGroupDirectory_MembersAndRoles(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	dir := NewGormGroupDirectory(db)

	g, err := dir.CreateGroup(ctx, group.Group{Name: "acme-owner", Kind: group.KindRoleSubgroup})
	require.NoError(t, err)

	user := models.UserModel{ID: uuid.New(), Email: "dev@acme.test", FirstName: "Dana", LastName: "Deploy"}
	require.NoError(t, db.Create(&user).Error)
	role := models.RealmRoleModel{ID: uuid.New(), Name: "owner"}
	require.NoError(t, db.Create(&role).Error)

	t.Run("membership round trip", func(t *testing.T) {
		require.NoError(t, dir.AddMember(ctx, user.ID, g.ID))
		require.NoError(t, dir.AddMember(ctx, user.ID, g.ID))

		refs, err := dir.ListGroupMembers(ctx, g.ID)
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, user.ID, refs[0].ID)

		full, err := dir.FindUser(ctx, refs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "dev@acme.test", full.Email)
		assert.Equal(t, "Dana", full.FirstName)

		require.NoError(t, dir.RemoveMember(ctx, user.ID, g.ID))
		refs, err = dir.ListGroupMembers(ctx, g.ID)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("realm role binding", func(t *testing.T) {
		found, err := dir.FindRoleByName(ctx, "owner")
		require.NoError(t, err)
		assert.Equal(t, role.ID, found.ID)

		_, err = dir.FindRoleByName(ctx, "wizard")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		require.NoError(t, dir.BindRealmRole(ctx, g.ID, found))
		require.NoError(t, dir.BindRealmRole(ctx, g.ID, found))

		sub, err := dir.FindGroupByID(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"owner"}, sub.RealmRoles)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := dir.FindUser(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
