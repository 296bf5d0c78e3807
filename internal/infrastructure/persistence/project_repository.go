package persistence

import (
	"context"
	"errors"

	"github.com/wintercreative/lagoon/internal/domain/project"
	"github.com/wintercreative/lagoon/internal/domain/shared"
	"github.com/wintercreative/lagoon/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProjectRepository implements project.Store using GORM
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// ProjectByID finds a project by ID
func (r *GormProjectRepository) ProjectByID(ctx context.Context, id int) (project.Project, error) {
	var model models.ProjectModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return project.Project{}, shared.ErrNotFound
		}
		return project.Project{}, err
	}
	return model.ToDomain(), nil
}

// ProjectsExcluding returns every project whose id is not in exclude
func (r *GormProjectRepository) ProjectsExcluding(ctx context.Context, exclude []int) ([]project.Project, error) {
	query := r.db.WithContext(ctx).Order("id asc")
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var projectModels []models.ProjectModel
	if err := query.Find(&projectModels).Error; err != nil {
		return nil, err
	}

	projects := make([]project.Project, 0, len(projectModels))
	for i := range projectModels {
		projects = append(projects, projectModels[i].ToDomain())
	}
	return projects, nil
}

// EnvironmentsByProjectID returns a project's environments, optionally
// including deleted ones
func (r *GormProjectRepository) EnvironmentsByProjectID(ctx context.Context, projectID int, includeDeleted bool) ([]project.Environment, error) {
	query := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id asc")
	if !includeDeleted {
		query = query.Where("deleted_at IS NULL")
	}

	var envModels []models.EnvironmentModel
	if err := query.Find(&envModels).Error; err != nil {
		return nil, err
	}

	environments := make([]project.Environment, 0, len(envModels))
	for i := range envModels {
		environments = append(environments, envModels[i].ToDomain())
	}
	return environments, nil
}
