package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wintercreative/lagoon/internal/domain/group"
	"github.com/wintercreative/lagoon/internal/domain/shared"
	"github.com/wintercreative/lagoon/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// reservedAttributes are the attribute keys a group patch fully owns. A patch
// replaces these and leaves every other stored key untouched.
var reservedAttributes = []string{
	group.AttrType,
	group.AttrCurrency,
	group.AttrBillingSoftware,
	group.AttrProjects,
}

// GormGroupDirectory implements group.Directory using GORM
type GormGroupDirectory struct {
	db *gorm.DB
}

// NewGormGroupDirectory creates a new GormGroupDirectory
func NewGormGroupDirectory(db *gorm.DB) *GormGroupDirectory {
	return &GormGroupDirectory{db: db}
}

// FindGroupByID finds a group by ID
func (r *GormGroupDirectory) FindGroupByID(ctx context.Context, id uuid.UUID) (group.Group, error) {
	var model models.GroupModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group.Group{}, shared.ErrNotFound
		}
		return group.Group{}, err
	}
	return r.hydrate(ctx, &model)
}

// FindGroupByName finds a group by its globally unique name
func (r *GormGroupDirectory) FindGroupByName(ctx context.Context, name string) (group.Group, error) {
	var model models.GroupModel
	if err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group.Group{}, shared.ErrNotFound
		}
		return group.Group{}, err
	}
	return r.hydrate(ctx, &model)
}

// ListGroups returns every group, flattened, with paths populated
func (r *GormGroupDirectory) ListGroups(ctx context.Context) ([]group.Group, error) {
	var groupModels []models.GroupModel
	if err := r.db.WithContext(ctx).Order("name asc").Find(&groupModels).Error; err != nil {
		return nil, err
	}

	var attrModels []models.GroupAttributeModel
	if err := r.db.WithContext(ctx).Find(&attrModels).Error; err != nil {
		return nil, err
	}
	attrsByGroup := make(map[uuid.UUID]group.Attributes, len(groupModels))
	for _, a := range attrModels {
		if attrsByGroup[a.GroupID] == nil {
			attrsByGroup[a.GroupID] = group.Attributes{}
		}
		attrsByGroup[a.GroupID][a.Name] = append(attrsByGroup[a.GroupID][a.Name], a.Value)
	}

	var roleModels []models.GroupRealmRoleModel
	if err := r.db.WithContext(ctx).Order("role asc").Find(&roleModels).Error; err != nil {
		return nil, err
	}
	rolesByGroup := make(map[uuid.UUID][]string)
	for _, rr := range roleModels {
		rolesByGroup[rr.GroupID] = append(rolesByGroup[rr.GroupID], rr.Role)
	}

	byID := make(map[uuid.UUID]*models.GroupModel, len(groupModels))
	for i := range groupModels {
		byID[groupModels[i].ID] = &groupModels[i]
	}

	groups := make([]group.Group, 0, len(groupModels))
	for i := range groupModels {
		m := &groupModels[i]
		groups = append(groups, toDomainGroup(m, pathFromIndex(m, byID), attrsByGroup[m.ID], rolesByGroup[m.ID]))
	}
	return groups, nil
}

// CreateGroup stores a new group with its attributes and realm role bindings
func (r *GormGroupDirectory) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.GroupModel{}).
		Where("name = ?", g.Name).
		Count(&count).Error; err != nil {
		return group.Group{}, err
	}
	if count > 0 {
		return group.Group{}, shared.ErrAlreadyExists
	}

	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := time.Now()
	model := models.GroupModel{
		ID:        g.ID,
		Name:      g.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if err := insertAttributes(tx, g.ID, group.EncodeAttributes(g, nil)); err != nil {
			return err
		}
		for _, role := range g.RealmRoles {
			if err := tx.Create(&models.GroupRealmRoleModel{GroupID: g.ID, Role: role}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return group.Group{}, err
	}

	g.Path = "/" + g.Name
	return g, nil
}

// UpdateGroup patches a group's name and reserved attributes
func (r *GormGroupDirectory) UpdateGroup(ctx context.Context, id uuid.UUID, patch group.Patch) (group.Group, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.GroupModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if patch.Name != nil && *patch.Name != model.Name {
			var count int64
			if err := tx.Model(&models.GroupModel{}).
				Where("name = ? AND id <> ?", *patch.Name, id).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return shared.ErrAlreadyExists
			}
			model.Name = *patch.Name
		}

		model.UpdatedAt = time.Now()
		if err := tx.Save(&model).Error; err != nil {
			return err
		}

		if patch.Attributes == nil {
			return nil
		}

		if err := tx.Where("group_id = ? AND name IN ?", id, reservedAttributes).
			Delete(&models.GroupAttributeModel{}).Error; err != nil {
			return err
		}
		nonReserved := group.Attributes{}
		for name, values := range patch.Attributes {
			if !isReservedAttribute(name) {
				nonReserved[name] = values
			}
		}
		for name := range nonReserved {
			if err := tx.Where("group_id = ? AND name = ?", id, name).
				Delete(&models.GroupAttributeModel{}).Error; err != nil {
				return err
			}
		}
		return insertAttributes(tx, id, patch.Attributes)
	})
	if err != nil {
		return group.Group{}, err
	}
	return r.FindGroupByID(ctx, id)
}

// DeleteGroup removes a group together with its whole subtree
func (r *GormGroupDirectory) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	var groupModels []models.GroupModel
	if err := r.db.WithContext(ctx).Select("id", "parent_id").Find(&groupModels).Error; err != nil {
		return err
	}
	children := make(map[uuid.UUID][]uuid.UUID)
	known := make(map[uuid.UUID]bool, len(groupModels))
	for _, m := range groupModels {
		known[m.ID] = true
		if m.ParentID != nil {
			children[*m.ParentID] = append(children[*m.ParentID], m.ID)
		}
	}
	if !known[id] {
		return shared.ErrNotFound
	}

	subtree := []uuid.UUID{id}
	for i := 0; i < len(subtree); i++ {
		subtree = append(subtree, children[subtree[i]]...)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id IN ?", subtree).Delete(&models.GroupAttributeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id IN ?", subtree).Delete(&models.GroupRealmRoleModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id IN ?", subtree).Delete(&models.GroupMemberModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", subtree).Delete(&models.GroupModel{}).Error
	})
}

// SetParent moves childID under parentID
func (r *GormGroupDirectory) SetParent(ctx context.Context, childID, parentID uuid.UUID) error {
	var parent models.GroupModel
	if err := r.db.WithContext(ctx).First(&parent, "id = ?", parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.ErrNotFound
		}
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.GroupModel{}).
		Where("id = ?", childID).
		Updates(map[string]interface{}{"parent_id": parentID, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListGroupMembers returns the direct member refs of a group
func (r *GormGroupDirectory) ListGroupMembers(ctx context.Context, id uuid.UUID) ([]group.UserRef, error) {
	var memberModels []models.GroupMemberModel
	if err := r.db.WithContext(ctx).Where("group_id = ?", id).Find(&memberModels).Error; err != nil {
		return nil, err
	}
	refs := make([]group.UserRef, 0, len(memberModels))
	for _, m := range memberModels {
		refs = append(refs, group.UserRef{ID: m.UserID})
	}
	return refs, nil
}

// AddMember attaches a user to a group. Adding an existing member is a no-op.
func (r *GormGroupDirectory) AddMember(ctx context.Context, userID, groupID uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.GroupMemberModel{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.GroupMemberModel{GroupID: groupID, UserID: userID}).Error
}

// RemoveMember detaches a user from a group
func (r *GormGroupDirectory) RemoveMember(ctx context.Context, userID, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMemberModel{}).Error
}

// FindUser resolves a member ref to the full user record
func (r *GormGroupDirectory) FindUser(ctx context.Context, id uuid.UUID) (group.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group.User{}, shared.ErrNotFound
		}
		return group.User{}, err
	}
	return group.User{
		ID:        model.ID,
		Email:     model.Email,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Comment:   model.Comment,
	}, nil
}

// FindRoleByName looks up a realm role
func (r *GormGroupDirectory) FindRoleByName(ctx context.Context, name string) (group.Role, error) {
	var model models.RealmRoleModel
	if err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group.Role{}, shared.ErrNotFound
		}
		return group.Role{}, err
	}
	return group.Role{ID: model.ID, Name: model.Name}, nil
}

// BindRealmRole binds a realm role to a group. Binding twice is a no-op.
func (r *GormGroupDirectory) BindRealmRole(ctx context.Context, groupID uuid.UUID, role group.Role) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.GroupRealmRoleModel{}).
		Where("group_id = ? AND role = ?", groupID, role.Name).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.GroupRealmRoleModel{GroupID: groupID, Role: role.Name}).Error
}

// hydrate loads a group's attributes and realm roles and derives its path
func (r *GormGroupDirectory) hydrate(ctx context.Context, model *models.GroupModel) (group.Group, error) {
	var attrModels []models.GroupAttributeModel
	if err := r.db.WithContext(ctx).Where("group_id = ?", model.ID).Find(&attrModels).Error; err != nil {
		return group.Group{}, err
	}
	attrs := group.Attributes{}
	for _, a := range attrModels {
		attrs[a.Name] = append(attrs[a.Name], a.Value)
	}

	var roleModels []models.GroupRealmRoleModel
	if err := r.db.WithContext(ctx).Where("group_id = ?", model.ID).Order("role asc").Find(&roleModels).Error; err != nil {
		return group.Group{}, err
	}
	roles := make([]string, 0, len(roleModels))
	for _, rr := range roleModels {
		roles = append(roles, rr.Role)
	}

	path, err := r.pathFor(ctx, model)
	if err != nil {
		return group.Group{}, err
	}
	return toDomainGroup(model, path, attrs, roles), nil
}

// pathFor walks the parent chain to rebuild the slash-delimited path
func (r *GormGroupDirectory) pathFor(ctx context.Context, model *models.GroupModel) (string, error) {
	segments := []string{model.Name}
	parentID := model.ParentID
	for parentID != nil {
		var parent models.GroupModel
		if err := r.db.WithContext(ctx).First(&parent, "id = ?", *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// dangling parent reference, treat the chain as ending here
				break
			}
			return "", err
		}
		segments = append([]string{parent.Name}, segments...)
		parentID = parent.ParentID
	}
	return "/" + strings.Join(segments, "/"), nil
}

// pathFromIndex derives a path from an already loaded id index
func pathFromIndex(model *models.GroupModel, byID map[uuid.UUID]*models.GroupModel) string {
	segments := []string{model.Name}
	parentID := model.ParentID
	for parentID != nil {
		parent, ok := byID[*parentID]
		if !ok {
			break
		}
		segments = append([]string{parent.Name}, segments...)
		parentID = parent.ParentID
	}
	return "/" + strings.Join(segments, "/")
}

func toDomainGroup(model *models.GroupModel, path string, attrs group.Attributes, roles []string) group.Group {
	kind, currency, software, projects := group.DecodeAttributes(attrs)
	return group.Group{
		ID:              model.ID,
		Name:            model.Name,
		Path:            path,
		Kind:            kind,
		Currency:        currency,
		BillingSoftware: software,
		Projects:        projects,
		RealmRoles:      roles,
	}
}

func insertAttributes(tx *gorm.DB, groupID uuid.UUID, attrs group.Attributes) error {
	for name, values := range attrs {
		for _, value := range values {
			row := models.GroupAttributeModel{GroupID: groupID, Name: name, Value: value}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func isReservedAttribute(name string) bool {
	for _, reserved := range reservedAttributes {
		if name == reserved {
			return true
		}
	}
	return false
}
