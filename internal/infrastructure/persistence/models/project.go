package models

import (
	"time"

	"github.com/wintercreative/lagoon/internal/domain/project"
)

// ProjectModel is the persistence model for a deployable project
type ProjectModel struct {
	ID                    int    `gorm:"primary_key;autoIncrement"`
	Name                  string `gorm:"type:varchar(100);not null;uniqueIndex"`
	GitURL                string `gorm:"column:git_url;type:varchar(300)"`
	Availability          string `gorm:"type:varchar(50)"`
	ProductionEnvironment string `gorm:"type:varchar(100)"`
	CreatedAt             time.Time
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the persistence model to a domain Project
func (m *ProjectModel) ToDomain() project.Project {
	return project.Project{
		ID:                    m.ID,
		Name:                  m.Name,
		GitURL:                m.GitURL,
		Availability:          project.Availability(m.Availability),
		ProductionEnvironment: m.ProductionEnvironment,
	}
}

// EnvironmentModel is the persistence model for a project environment.
// Deleted environments keep their row; past billing months still need them.
type EnvironmentModel struct {
	ID                   int    `gorm:"primary_key;autoIncrement"`
	ProjectID            int    `gorm:"not null;index"`
	Name                 string `gorm:"type:varchar(100);not null"`
	EnvironmentType      string `gorm:"type:varchar(50);not null"`
	OpenshiftProjectName string `gorm:"type:varchar(100);index"`
	CreatedAt            time.Time
	DeletedAt            *time.Time
}

// TableName returns the table name for GORM
func (EnvironmentModel) TableName() string {
	return "environments"
}

// ToDomain converts the persistence model to a domain Environment
func (m *EnvironmentModel) ToDomain() project.Environment {
	return project.Environment{
		ID:                   m.ID,
		ProjectID:            m.ProjectID,
		Name:                 m.Name,
		Type:                 project.EnvironmentType(m.EnvironmentType),
		OpenshiftProjectName: m.OpenshiftProjectName,
		Deleted:              m.DeletedAt != nil,
	}
}
