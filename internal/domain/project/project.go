package project

import "context"

// Availability selects which service tier a project is billed on
type Availability string

const (
	AvailabilityStandard Availability = "STANDARD"
	AvailabilityHigh     Availability = "HIGH"
)

// EnvironmentType distinguishes production from everything else for billing
type EnvironmentType string

const (
	EnvironmentProduction  EnvironmentType = "production"
	EnvironmentDevelopment EnvironmentType = "development"
)

// Project is a deployable unit owned by at most one billing group
type Project struct {
	ID                    int
	Name                  string
	GitURL                string
	Availability          Availability
	ProductionEnvironment string
}

// Environment is one running instance of a project. Deleted environments
// are retained because past months still bill for the days they ran.
type Environment struct {
	ID                   int
	ProjectID            int
	Name                 string
	Type                 EnvironmentType
	OpenshiftProjectName string
	Deleted              bool
}

// IsProduction reports whether the environment bills at production rates
func (e Environment) IsProduction() bool {
	return e.Type == EnvironmentProduction
}

// Store retrieves projects and their environments from the project registry
type Store interface {
	// ProjectByID returns the project with the given id
	ProjectByID(ctx context.Context, id int) (Project, error)
	// ProjectsExcluding returns every project whose id is not in exclude
	ProjectsExcluding(ctx context.Context, exclude []int) ([]Project, error)
	// EnvironmentsByProjectID returns a project's environments, including
	// deleted ones when includeDeleted is set
	EnvironmentsByProjectID(ctx context.Context, projectID int, includeDeleted bool) ([]Environment, error)
}
